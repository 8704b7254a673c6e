package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"renderport/internal/services"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Metadata is the subset of probe output recorded in manifest entries. All
// fields are optional; a failed or disabled probe leaves them unset.
type Metadata struct {
	DurationSeconds *float64
	Resolution      string
	Codec           string
}

// Available reports whether the probe binary can be found on PATH.
func Available(binary string) bool {
	_, err := exec.LookPath(strings.TrimSpace(binary))
	return err == nil
}

// Inspect executes ffprobe against the provided path and decodes the JSON
// response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("probe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "probe", "inspect",
			fmt.Sprintf("ffprobe failed: %s", strings.TrimSpace(string(output))), err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "probe", "parse", "ffprobe output not parseable", err)
	}
	return result, nil
}

// Extract runs Inspect and reduces the result to manifest metadata.
func Extract(ctx context.Context, binary string, path string) (Metadata, error) {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return Metadata{}, err
	}
	return result.Metadata(), nil
}

// Metadata reduces a probe result to the fields recorded per manifest entry.
func (r Result) Metadata() Metadata {
	meta := Metadata{}
	if seconds, ok := r.DurationSeconds(); ok {
		meta.DurationSeconds = &seconds
	}
	if stream, ok := r.primaryVideoStream(); ok {
		meta.Codec = stream.CodecName
		if stream.Width > 0 && stream.Height > 0 {
			meta.Resolution = fmt.Sprintf("%dx%d", stream.Width, stream.Height)
		}
	}
	return meta
}

// DurationSeconds returns the container duration, preferring format-level
// metadata and falling back to the first video stream.
func (r Result) DurationSeconds() (float64, bool) {
	if seconds, ok := parseSeconds(r.Format.Duration); ok {
		return seconds, true
	}
	if stream, ok := r.primaryVideoStream(); ok {
		return parseSeconds(stream.Duration)
	}
	return 0, false
}

func (r Result) primaryVideoStream() (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream, true
		}
	}
	return Stream{}, false
}

func parseSeconds(value string) (float64, bool) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || parsed < 0 {
		return 0, false
	}
	return parsed, true
}
