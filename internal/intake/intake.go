package intake

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"renderport/internal/assets"
	"renderport/internal/config"
	"renderport/internal/hashing"
	"renderport/internal/journal"
	"renderport/internal/logging"
	"renderport/internal/manifest"
	"renderport/internal/probe"
	"renderport/internal/sandbox"
	"renderport/internal/services"
)

// Stage marks how far a file progressed through the pipeline before its run
// ended.
type Stage string

const (
	StageDiscovered  Stage = "discovered"
	StageStabilizing Stage = "size_stabilizing"
	StageValidated   Stage = "validated"
	StageHashed      Stage = "hashed"
	StageCopying     Stage = "copying"
	StageRecorded    Stage = "recorded"
)

// settleAttempts bounds how many size samples a file gets per scan before it
// is deferred to the next cycle.
const settleAttempts = 5

// Result is the terminal state of one candidate file in one scan.
type Result struct {
	Source       string
	SceneName    string
	QualityLabel string
	Stage        Stage
	Outcome      journal.Outcome
	Destination  string
	Digest       hashing.Digest
	Deferred     bool
	Err          error
	Elapsed      time.Duration

	entry manifest.Entry
}

// Summary aggregates one scan cycle.
type Summary struct {
	BatchID   string
	Scanned   int
	Recorded  int
	Unchanged int
	Rejected  int
	Failed    int
	Deferred  int
	Results   []Result
	Index     assets.Index
}

// Options collects the collaborators a Controller needs. Journal may be nil
// when history is disabled.
type Options struct {
	Config   *config.Config
	Sandbox  *sandbox.Sandbox
	Hasher   *hashing.Hasher
	Manifest *manifest.Manifest
	Copier   *assets.Copier
	Index    *assets.IndexBuilder
	Journal  *journal.Store
	Logger   *slog.Logger
}

// Controller runs the ingest pipeline: discover candidates under the source
// directory, wait for their size to settle, validate, fingerprint, copy the
// new or changed ones, then persist the manifest once and rebuild the index
// once per batch.
type Controller struct {
	cfg      *config.Config
	sandbox  *sandbox.Sandbox
	hasher   *hashing.Hasher
	manifest *manifest.Manifest
	copier   *assets.Copier
	index    *assets.IndexBuilder
	journal  *journal.Store
	logger   *slog.Logger

	settleInterval time.Duration
	pollInterval   time.Duration
	workers        int
	maxInFlight    int64
	extensions     map[string]struct{}
	excludes       []string
	probeBinary    string
}

// NewController wires a controller from its collaborators.
func NewController(opts Options) (*Controller, error) {
	switch {
	case opts.Config == nil:
		return nil, errors.New("intake: config is required")
	case opts.Sandbox == nil:
		return nil, errors.New("intake: sandbox is required")
	case opts.Hasher == nil:
		return nil, errors.New("intake: hasher is required")
	case opts.Manifest == nil:
		return nil, errors.New("intake: manifest is required")
	case opts.Copier == nil:
		return nil, errors.New("intake: copier is required")
	case opts.Index == nil:
		return nil, errors.New("intake: index builder is required")
	}

	cfg := opts.Config
	extensions := make(map[string]struct{}, len(cfg.Intake.Extensions))
	for _, ext := range cfg.Intake.Extensions {
		extensions[strings.ToLower(ext)] = struct{}{}
	}

	workers := cfg.Intake.Workers
	if workers < 1 {
		workers = 1
	}
	maxInFlight := int64(cfg.Intake.MaxInFlight)
	if maxInFlight < 1 {
		maxInFlight = 1
	}

	probeBinary := ""
	if cfg.Probe.Enabled {
		if binary := cfg.FFprobeBinary(); probe.Available(binary) {
			probeBinary = binary
		}
	}

	return &Controller{
		cfg:            cfg,
		sandbox:        opts.Sandbox,
		hasher:         opts.Hasher,
		manifest:       opts.Manifest,
		copier:         opts.Copier,
		index:          opts.Index,
		journal:        opts.Journal,
		logger:         logging.NewComponentLogger(opts.Logger, "intake"),
		settleInterval: time.Duration(cfg.Intake.SettleIntervalMillis) * time.Millisecond,
		pollInterval:   time.Duration(cfg.Intake.PollIntervalSeconds) * time.Second,
		workers:        workers,
		maxInFlight:    maxInFlight,
		extensions:     extensions,
		excludes:       cfg.Intake.ExcludePatterns,
		probeBinary:    probeBinary,
	}, nil
}

// Scan runs one full ingest cycle over the source directory and returns its
// summary. Per-file failures never abort the batch; the summary carries them.
func (c *Controller) Scan(ctx context.Context) (Summary, error) {
	batchID := uuid.NewString()
	ctx = services.WithBatchID(ctx, batchID)
	logger := c.logger.With(logging.String(logging.FieldBatchID, batchID))

	candidates, err := c.discover()
	if err != nil {
		return Summary{BatchID: batchID}, err
	}
	logger.Debug("scan started", logging.Int("candidates", len(candidates)))

	results := make([]Result, len(candidates))
	sem := semaphore.NewWeighted(c.maxInFlight)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.workers)

	for i, candidate := range candidates {
		i, candidate := i, candidate
		group.Go(func() error {
			if err := sem.Acquire(groupCtx, 1); err != nil {
				results[i] = Result{Source: candidate, Stage: StageDiscovered, Deferred: true}
				return nil
			}
			defer sem.Release(1)
			results[i] = c.processFile(groupCtx, candidate)
			return nil
		})
	}
	// Workers never return errors; the group is used for its limit and
	// context plumbing only.
	_ = group.Wait()

	summary := Summary{BatchID: batchID, Scanned: len(candidates), Results: results}
	staged := make(map[string]manifest.Entry, len(results))

	for i := range results {
		result := &results[i]
		switch {
		case result.Deferred:
			summary.Deferred++
		case result.Outcome == journal.OutcomeRecorded:
			summary.Recorded++
			staged[result.Source] = result.entry
		case result.Outcome == journal.OutcomeUnchanged:
			summary.Unchanged++
		case result.Outcome == journal.OutcomeRejected:
			summary.Rejected++
		case result.Outcome == journal.OutcomeFailed:
			summary.Failed++
		}
	}

	if len(staged) > 0 {
		if err := c.manifest.BatchUpdate(staged); err != nil {
			// The copies landed but the manifest did not; the next scan
			// re-fingerprints and records them again.
			logger.Error("manifest batch update failed", logging.Error(err))
			return summary, err
		}
		index, err := c.index.Rebuild()
		if err != nil {
			logger.Error("index rebuild failed", logging.Error(err))
			return summary, err
		}
		summary.Index = index
	}

	c.journalResults(ctx, batchID, results)

	logger.Info("scan complete",
		logging.Int("scanned", summary.Scanned),
		logging.Int("recorded", summary.Recorded),
		logging.Int("unchanged", summary.Unchanged),
		logging.Int("rejected", summary.Rejected),
		logging.Int("failed", summary.Failed),
		logging.Int("deferred", summary.Deferred),
	)
	return summary, nil
}

// Watch runs Scan on the configured poll interval until the context is
// cancelled. Scan-level errors are logged and the loop continues; only
// cancellation stops it.
func (c *Controller) Watch(ctx context.Context) error {
	interval := c.pollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	c.logger.Info("watching source directory",
		logging.String("source", c.cfg.Paths.SourceDir),
		logging.Duration("interval", interval),
	)
	for {
		if _, err := c.Scan(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("scan cycle failed", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			c.logger.Info("watch stopped")
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// discover walks the source directory and returns candidate files in sorted
// order. Filtering here is cheap name-based triage; the sandbox still
// validates every candidate before any bytes are read.
func (c *Controller) discover() ([]string, error) {
	var candidates []string
	root := c.cfg.Paths.SourceDir
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			c.logger.Warn("skipping unreadable entry", logging.Error(walkErr))
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || c.excluded(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || c.excluded(rel) {
			return nil
		}
		if _, ok := c.extensions[strings.ToLower(filepath.Ext(d.Name()))]; !ok {
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "intake", "discover", "source directory walk failed", err)
	}
	sort.Strings(candidates)
	return candidates, nil
}

func (c *Controller) excluded(rel string) bool {
	for _, pattern := range c.excludes {
		if pattern == "" {
			continue
		}
		if strings.Contains(rel, pattern) {
			return true
		}
	}
	return false
}

// processFile advances one candidate through the pipeline stages and returns
// its terminal result. Stage order is fixed: stabilize, validate, hash, copy.
func (c *Controller) processFile(ctx context.Context, path string) (result Result) {
	start := time.Now()
	result = Result{
		Source:       path,
		SceneName:    assets.SceneName(path),
		QualityLabel: assets.QualityLabel(path),
		Stage:        StageDiscovered,
	}
	defer func() { result.Elapsed = time.Since(start) }()

	result.Stage = StageStabilizing
	stable, err := c.waitForStableSize(ctx, path)
	if err != nil {
		return c.fail(result, err)
	}
	if !stable {
		// Still being written; pick it up on the next cycle.
		result.Deferred = true
		c.logger.Debug("file size still changing, deferring",
			logging.String(logging.FieldSource, path))
		return result
	}

	resolved, err := c.sandbox.Validate(path, sandbox.ModeInput)
	if err != nil {
		result.Outcome = journal.OutcomeRejected
		result.Err = err
		return result
	}
	result.Source = resolved
	result.Stage = StageValidated

	digest, err := c.hasher.Fingerprint(resolved)
	if err != nil {
		return c.fail(result, err)
	}
	result.Digest = digest
	result.Stage = StageHashed

	if !c.manifest.NeedsProcessing(resolved, digest) {
		result.Outcome = journal.OutcomeUnchanged
		return result
	}

	result.Stage = StageCopying
	destination, err := c.copier.Copy(resolved, result.SceneName, result.QualityLabel)
	if err != nil {
		if errors.Is(err, services.ErrSecurity) {
			result.Outcome = journal.OutcomeRejected
			result.Err = err
			return result
		}
		return c.fail(result, err)
	}
	result.Destination = destination
	result.Stage = StageRecorded
	result.Outcome = journal.OutcomeRecorded
	result.entry = c.buildEntry(ctx, resolved, destination, digest, result.SceneName, result.QualityLabel)

	c.logger.Info("file ingested",
		logging.String(logging.FieldSource, resolved),
		logging.String("destination", destination),
		logging.String("hash", digest.String()),
	)
	return result
}

func (c *Controller) fail(result Result, err error) Result {
	result.Outcome = journal.OutcomeFailed
	result.Err = err
	c.logger.Warn("file processing failed",
		logging.String(logging.FieldSource, result.Source),
		logging.String(logging.FieldStage, string(result.Stage)),
		logging.Error(err),
	)
	return result
}

// waitForStableSize samples the file size until two consecutive samples agree.
// Returns false when the file keeps growing past the sample limit or
// disappears between samples.
func (c *Controller) waitForStableSize(ctx context.Context, path string) (bool, error) {
	interval := c.settleInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, services.Wrap(services.ErrTransient, "intake", "stabilize", "stat failed", err)
	}
	previous := info.Size()

	for attempt := 0; attempt < settleAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(interval):
		}

		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return false, nil
			}
			return false, services.Wrap(services.ErrTransient, "intake", "stabilize", "stat failed", err)
		}
		if info.Size() == previous {
			return true, nil
		}
		previous = info.Size()
	}
	return false, nil
}

func (c *Controller) buildEntry(ctx context.Context, source, destination string, digest hashing.Digest, scene, quality string) manifest.Entry {
	entry := manifest.Entry{
		ContentHash:     digest.Hex,
		HashAlgorithm:   string(digest.Algorithm),
		DestinationPath: destination,
		ProcessedAt:     time.Now().UTC(),
		SceneName:       scene,
		QualityLabel:    quality,
	}
	if info, err := os.Stat(destination); err == nil {
		entry.SizeBytes = info.Size()
	}
	if c.probeBinary != "" {
		meta, err := probe.Extract(ctx, c.probeBinary, destination)
		if err != nil {
			c.logger.Warn("metadata probe failed",
				logging.String(logging.FieldSource, source),
				logging.Error(err),
			)
		} else {
			entry.DurationSeconds = meta.DurationSeconds
			entry.Resolution = meta.Resolution
			entry.Codec = meta.Codec
		}
	}
	return entry
}

// journalResults records every terminal outcome; deferred files are omitted.
// Journal failures are logged and swallowed, the history is best-effort.
func (c *Controller) journalResults(ctx context.Context, batchID string, results []Result) {
	if c.journal == nil {
		return
	}
	for _, result := range results {
		if result.Deferred || result.Outcome == "" {
			continue
		}
		event := journal.Event{
			BatchID:         batchID,
			SourcePath:      result.Source,
			SceneName:       result.SceneName,
			QualityLabel:    result.QualityLabel,
			ContentHash:     result.Digest.Hex,
			DestinationPath: result.Destination,
			Outcome:         result.Outcome,
			Duration:        result.Elapsed,
		}
		if result.Err != nil {
			event.ErrorMessage = result.Err.Error()
		}
		if _, err := c.journal.Record(ctx, event); err != nil {
			c.logger.Warn("journal write failed", logging.Error(err))
		}
	}
}

// String renders a short human-readable form for log and CLI output.
func (r Result) String() string {
	if r.Deferred {
		return fmt.Sprintf("%s: deferred (%s)", r.Source, r.Stage)
	}
	if r.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", r.Source, r.Outcome, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Source, r.Outcome)
}
