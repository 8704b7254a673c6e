package probe

import "testing"

func TestMetadataFromResult(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{Index: 0, CodecType: "audio", CodecName: "aac"},
			{Index: 1, CodecType: "video", CodecName: "h264", Width: 1280, Height: 720, Duration: "12.5"},
		},
		Format: Format{Duration: "12.480000"},
	}

	meta := result.Metadata()
	if meta.DurationSeconds == nil || *meta.DurationSeconds != 12.48 {
		t.Fatalf("duration = %v, want 12.48", meta.DurationSeconds)
	}
	if meta.Resolution != "1280x720" {
		t.Errorf("resolution = %q, want 1280x720", meta.Resolution)
	}
	if meta.Codec != "h264" {
		t.Errorf("codec = %q, want h264", meta.Codec)
	}
}

func TestMetadataFallsBackToStreamDuration(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", CodecName: "vp9", Duration: "3.25"},
		},
	}
	meta := result.Metadata()
	if meta.DurationSeconds == nil || *meta.DurationSeconds != 3.25 {
		t.Fatalf("duration = %v, want 3.25", meta.DurationSeconds)
	}
	if meta.Resolution != "" {
		t.Errorf("resolution = %q, want empty for zero dimensions", meta.Resolution)
	}
}

func TestMetadataOnEmptyResult(t *testing.T) {
	meta := Result{}.Metadata()
	if meta.DurationSeconds != nil || meta.Resolution != "" || meta.Codec != "" {
		t.Fatalf("expected empty metadata, got %+v", meta)
	}
}

func TestParseSeconds(t *testing.T) {
	if _, ok := parseSeconds("garbage"); ok {
		t.Error("garbage should not parse")
	}
	if _, ok := parseSeconds("-1"); ok {
		t.Error("negative durations should not parse")
	}
	if seconds, ok := parseSeconds(" 42.000 "); !ok || seconds != 42 {
		t.Errorf("parseSeconds = %v, %v", seconds, ok)
	}
}
