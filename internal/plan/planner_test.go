package plan_test

// Coverage Notes:
// - The extractor is mocked; window math is tested directly through
//   export_test hooks, and Plan is tested for the manifest it assembles.
// - Window properties checked: full coverage of [0, duration], widened
//   interior boundaries, and clipping at the audio edges.

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alnah/go-scribe/internal/config"
	"github.com/alnah/go-scribe/internal/manifest"
	"github.com/alnah/go-scribe/internal/plan"
	"github.com/alnah/go-scribe/internal/probe"
)

// mockExtractor records extraction calls and can fail on demand.
type mockExtractor struct {
	calls []extractCall
	err   error
}

type extractCall struct {
	src, dst      string
	start, length float64
}

func (m *mockExtractor) Extract(_ context.Context, src, dst string, start, length float64, _ config.Reencode) error {
	m.calls = append(m.calls, extractCall{src: src, dst: dst, start: start, length: length})
	return m.err
}

// ---------------------------------------------------------------------------
// TestChunkWindow - window length from bitrate and target size
// ---------------------------------------------------------------------------

func TestChunkWindow(t *testing.T) {
	t.Parallel()

	base := config.Chunking{MaxFileMB: 25, TargetChunkMB: 16, MaxChunkSecs: 900, OverlapSecs: 3}

	tests := []struct {
		name    string
		bitRate int
		want    float64
	}{
		// 16MB * 8000 / 128kbps = 1000s, clamped to max 900.
		{name: "typical 128kbps clamps to max", bitRate: 128000, want: 900},
		// 16MB * 8000 / 2000kbps = 64s, within range.
		{name: "high bitrate shrinks window", bitRate: 2_000_000, want: 64},
		// 16MB * 8000 / 10000kbps = 12.8s, floored at one minute.
		{name: "very high bitrate floors at minimum", bitRate: 10_000_000, want: 60},
		// Zero bitrate is treated as 1kbps, giving a huge window clamped to max.
		{name: "zero bitrate clamps to max", bitRate: 0, want: 900},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			meta := probe.Metadata{BitRate: tt.bitRate}
			if got := plan.ChunkWindow(meta, base); got != tt.want {
				t.Errorf("ChunkWindow(bitRate=%d) = %v, want %v", tt.bitRate, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestCutPoints - exact windows for a known layout
// ---------------------------------------------------------------------------

func TestCutPoints(t *testing.T) {
	t.Parallel()

	t.Run("125s audio, 60s window, 5s overlap", func(t *testing.T) {
		t.Parallel()

		got := plan.CutPoints(125, 60, 5)
		want := []plan.Window{
			{Start: 0, End: 65},
			{Start: 55, End: 125},
			{Start: 115, End: 125},
		}

		if len(got) != len(want) {
			t.Fatalf("CutPoints() = %d windows, want %d: %+v", len(got), len(want), got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("window %d = %+v, want %+v", i, got[i], want[i])
			}
		}
	})

	t.Run("single window when audio fits", func(t *testing.T) {
		t.Parallel()

		got := plan.CutPoints(50, 60, 5)
		if len(got) != 1 {
			t.Fatalf("CutPoints() = %d windows, want 1", len(got))
		}
		if got[0] != (plan.Window{Start: 0, End: 50}) {
			t.Errorf("window = %+v, want [0, 50]", got[0])
		}
	})

	t.Run("zero overlap produces clean cuts", func(t *testing.T) {
		t.Parallel()

		got := plan.CutPoints(180, 60, 0)
		want := []plan.Window{{0, 60}, {60, 120}, {120, 180}}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("window %d = %+v, want %+v", i, got[i], want[i])
			}
		}
	})
}

// ---------------------------------------------------------------------------
// TestCutPoints_Properties - coverage and boundary invariants
// ---------------------------------------------------------------------------

func TestCutPoints_Properties(t *testing.T) {
	t.Parallel()

	cases := []struct {
		duration, window, overlap float64
	}{
		{3600, 900, 3},
		{125, 60, 5},
		{901, 900, 3},
		{59.9, 60, 3},
	}

	for _, c := range cases {
		windows := plan.CutPoints(c.duration, c.window, c.overlap)
		if len(windows) == 0 {
			t.Fatalf("CutPoints(%v, %v, %v) produced no windows", c.duration, c.window, c.overlap)
		}

		if windows[0].Start != 0 {
			t.Errorf("first window starts at %v, want 0", windows[0].Start)
		}
		last := windows[len(windows)-1]
		if last.End != c.duration {
			t.Errorf("last window ends at %v, want %v", last.End, c.duration)
		}

		for i, w := range windows {
			if w.Start < 0 || w.End > c.duration {
				t.Errorf("window %d = %+v escapes [0, %v]", i, w, c.duration)
			}
			if w.End <= w.Start {
				t.Errorf("window %d = %+v is empty or inverted", i, w)
			}
			// Adjacent windows share a widened boundary: they must overlap by
			// at least the configured amount even when clipped at the edges.
			if i > 0 {
				prev := windows[i-1]
				if shared := prev.End - w.Start; shared < c.overlap-1e-9 {
					t.Errorf("windows %d and %d overlap by %v, want >= %v", i-1, i, shared, c.overlap)
				}
			}
		}
	}
}

// ---------------------------------------------------------------------------
// TestChunkExt
// ---------------------------------------------------------------------------

func TestChunkExt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		enc  config.Reencode
		want string
	}{
		{name: "copy passthrough", enc: config.Reencode{Enabled: false}, want: ".m4a"},
		{name: "aac", enc: config.Reencode{Enabled: true, Codec: "aac"}, want: ".m4a"},
		{name: "libfdk_aac", enc: config.Reencode{Enabled: true, Codec: "libfdk_aac"}, want: ".m4a"},
		{name: "mp3 falls back to wav container", enc: config.Reencode{Enabled: true, Codec: "mp3"}, want: ".wav"},
		{name: "wav", enc: config.Reencode{Enabled: true, Codec: "wav"}, want: ".wav"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := plan.ChunkExt(tt.enc); got != tt.want {
				t.Errorf("ChunkExt(%+v) = %q, want %q", tt.enc, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestEncodeArgs
// ---------------------------------------------------------------------------

func TestEncodeArgs(t *testing.T) {
	t.Parallel()

	t.Run("disabled emits nothing", func(t *testing.T) {
		t.Parallel()

		if got := plan.EncodeArgs(config.Reencode{Enabled: false}); got != nil {
			t.Errorf("EncodeArgs(disabled) = %v, want nil", got)
		}
	})

	t.Run("enabled emits full encode flags", func(t *testing.T) {
		t.Parallel()

		enc := config.Reencode{Enabled: true, Codec: "aac", BitrateKbps: 64, Channels: 1, SampleRate: 16000}
		want := []string{"-ac", "1", "-ar", "16000", "-b:a", "64k", "-c:a", "aac"}

		got := plan.EncodeArgs(enc)
		if len(got) != len(want) {
			t.Fatalf("EncodeArgs() = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("arg %d = %q, want %q", i, got[i], want[i])
			}
		}
	})
}

// ---------------------------------------------------------------------------
// TestPlan
// ---------------------------------------------------------------------------

func TestPlan_BuildsPendingManifest(t *testing.T) {
	t.Parallel()

	meta := probe.Metadata{Duration: 125, BitRate: 2_000_000}
	cfg := config.Default()
	cfg.Chunking = config.Chunking{MaxFileMB: 25, TargetChunkMB: 16, MaxChunkSecs: 900, OverlapSecs: 5}

	ext := &mockExtractor{}
	m, err := plan.New(ext).Plan(context.Background(), "lecture.mp3", meta, cfg, "job/chunks")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	// 2000kbps gives a 64s window over 125s of audio: two chunks.
	if len(m.Chunks) != 2 {
		t.Fatalf("Plan() = %d chunks, want 2", len(m.Chunks))
	}
	if len(ext.calls) != 2 {
		t.Fatalf("extractor called %d times, want 2", len(ext.calls))
	}

	c0, c1 := m.Chunks[0], m.Chunks[1]

	if c0.File != filepath.Join("job/chunks", "chunk_0000.m4a") {
		t.Errorf("chunk 0 file = %q, want chunk_0000.m4a under chunks dir", c0.File)
	}
	if c0.Status != manifest.StatusPending || c1.Status != manifest.StatusPending {
		t.Error("all planned chunks must start pending")
	}

	// First chunk has no head overlap; interior boundary carries overlap on
	// both sides; last chunk has no tail overlap.
	if c0.OverlapHead != 0 {
		t.Errorf("chunk 0 overlap_head = %v, want 0", c0.OverlapHead)
	}
	if c0.OverlapTail != 5 {
		t.Errorf("chunk 0 overlap_tail = %v, want 5", c0.OverlapTail)
	}
	if c1.OverlapHead != 5 {
		t.Errorf("chunk 1 overlap_head = %v, want 5", c1.OverlapHead)
	}
	if c1.OverlapTail != 0 {
		t.Errorf("chunk 1 overlap_tail = %v, want 0", c1.OverlapTail)
	}

	// Extraction length is end-start of the widened window.
	if got := ext.calls[0].length; got != 69 { // [0, 64+5]
		t.Errorf("chunk 0 extraction length = %v, want 69", got)
	}
	if got := ext.calls[1].start; got != 59 { // 64-5
		t.Errorf("chunk 1 extraction start = %v, want 59", got)
	}

	// Manifest header carries the model parameters for the scheduler.
	if m.Model != cfg.Model.Model || m.ResponseFormat != cfg.Model.ResponseFormat {
		t.Errorf("manifest model = %q/%q, want config values", m.Model, m.ResponseFormat)
	}
	if m.Input != "lecture.mp3" {
		t.Errorf("manifest input = %q, want source path", m.Input)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("planned manifest fails validation: %v", err)
	}
}

func TestPlan_NoDuration(t *testing.T) {
	t.Parallel()

	_, err := plan.New(&mockExtractor{}).Plan(context.Background(),
		"broken.mp3", probe.Metadata{Duration: 0}, config.Default(), "chunks")

	if !errors.Is(err, plan.ErrNoDuration) {
		t.Errorf("Plan() error = %v, want ErrNoDuration", err)
	}
}

func TestPlan_ExtractionFailureAborts(t *testing.T) {
	t.Parallel()

	extractErr := errors.New("disk full")
	ext := &mockExtractor{err: extractErr}

	_, err := plan.New(ext).Plan(context.Background(),
		"lecture.mp3", probe.Metadata{Duration: 600, BitRate: 128000}, config.Default(), "chunks")

	if !errors.Is(err, extractErr) {
		t.Errorf("Plan() error = %v, want the extraction error", err)
	}
	if len(ext.calls) != 1 {
		t.Errorf("extractor called %d times, want 1 (abort on first failure)", len(ext.calls))
	}
}
