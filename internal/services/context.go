package services

import (
	"context"
	"strings"
)

type contextKey string

const (
	batchIDKey contextKey = "batch_id"
	sourceKey  contextKey = "source"
	stageKey   contextKey = "stage"
)

// WithBatchID attaches a batch identifier to the context.
func WithBatchID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the batch identifier, if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, batchIDKey)
}

// WithSource attaches the candidate source path to the context.
func WithSource(ctx context.Context, path string) context.Context {
	path = strings.TrimSpace(path)
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceKey, path)
}

// SourceFromContext extracts the candidate source path, if present.
func SourceFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, sourceKey)
}

// WithStage attaches the pipeline stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext extracts the pipeline stage name, if present.
func StageFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, stageKey)
}

func stringFromContext(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}
