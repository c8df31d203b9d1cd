// Package plan implements the segmentation planner: it turns probed audio
// metadata and a chunking policy into fixed-length extraction windows with
// head/tail overlap, extracts each window via FFmpeg, and emits a manifest
// with every chunk in the pending state.
//
// The deliberate overlap at interior boundaries duplicates boundary speech
// so the stitcher has real overlapping text to align on.
package plan

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/alnah/go-scribe/internal/config"
	"github.com/alnah/go-scribe/internal/manifest"
	"github.com/alnah/go-scribe/internal/probe"
)

// minChunkSecs floors the computed window so very high bitrates cannot
// produce degenerate sub-minute chunks.
const minChunkSecs = 60.0

// Sentinel errors for planning failures.
var (
	// ErrNoDuration indicates the probe could not determine the audio duration.
	ErrNoDuration = errors.New("could not determine audio duration")

	// ErrExtractFailed indicates the external extraction command failed.
	// Planning aborts immediately; no manifest is produced.
	ErrExtractFailed = errors.New("audio extraction failed")
)

// Window is one extraction window in the source audio, in seconds.
type Window struct {
	Start float64
	End   float64
}

// Planner computes chunk windows and drives the extractor.
type Planner struct {
	extractor Extractor
}

// New creates a Planner using the given extractor.
func New(extractor Extractor) *Planner {
	return &Planner{extractor: extractor}
}

// Plan computes chunk windows for the input, extracts one audio file per
// window into chunksDir, and returns a manifest with all chunks pending.
// The caller is responsible for persisting the manifest.
func (p *Planner) Plan(
	ctx context.Context,
	inputPath string,
	meta probe.Metadata,
	cfg config.Pipeline,
	chunksDir string,
) (*manifest.Manifest, error) {
	if meta.Duration <= 0 {
		return nil, ErrNoDuration
	}

	window := chunkWindow(meta, cfg.Chunking)
	windows := cutPoints(meta.Duration, window, cfg.Chunking.OverlapSecs)
	ext := chunkExt(cfg.Reencode)

	chunks := make([]*manifest.Chunk, 0, len(windows))
	for i, w := range windows {
		outPath := filepath.Join(chunksDir, fmt.Sprintf("chunk_%04d%s", i, ext))
		length := math.Max(0.01, w.End-w.Start)

		if err := p.extractor.Extract(ctx, inputPath, outPath, w.Start, length, cfg.Reencode); err != nil {
			return nil, err
		}

		overlapHead := 0.0
		if i > 0 {
			overlapHead = cfg.Chunking.OverlapSecs
		}
		overlapTail := 0.0
		if w.End < meta.Duration {
			overlapTail = cfg.Chunking.OverlapSecs
		}

		chunks = append(chunks, &manifest.Chunk{
			Index:       i,
			File:        outPath,
			TStart:      w.Start,
			TEnd:        w.End,
			OverlapHead: overlapHead,
			OverlapTail: overlapTail,
			Status:      manifest.StatusPending,
		})
	}

	return &manifest.Manifest{
		Input:          inputPath,
		Meta:           meta,
		Chunks:         chunks,
		Model:          cfg.Model.Model,
		ResponseFormat: cfg.Model.ResponseFormat,
		Prompt:         cfg.Model.Prompt,
	}, nil
}

// chunkWindow computes the chunk length in seconds from the policy's target
// size and the source bitrate: MB ≈ (kbps * secs) / 8000, so
// secs ≈ MB * 8000 / kbps. Clamped to [minChunkSecs, MaxChunkSecs].
func chunkWindow(meta probe.Metadata, c config.Chunking) float64 {
	bitrateKbps := meta.BitRate / 1000
	if bitrateKbps < 1 {
		bitrateKbps = 1
	}
	bySize := float64(c.TargetChunkMB) * 8000 / float64(bitrateKbps)
	return math.Max(minChunkSecs, math.Min(bySize, float64(c.MaxChunkSecs)))
}

// cutPoints generates fixed windows of the given length covering
// [0, duration], widening each window's extraction boundaries by the
// overlap: every window but the first starts overlap earlier, every window
// but the last ends overlap later, clipped to [0, duration].
func cutPoints(duration, window, overlap float64) []Window {
	var windows []Window
	for t := 0.0; t < duration; t += window {
		start := t
		if t > 0 {
			start = math.Max(0, t-overlap)
		}
		end := t + window
		if end < duration {
			end += overlap
		}
		end = math.Min(duration, end)
		windows = append(windows, Window{Start: start, End: end})
	}
	return windows
}

// chunkExt returns the output extension for extracted chunks: .m4a for copy
// passthrough or AAC-family codecs, .wav otherwise.
func chunkExt(r config.Reencode) string {
	if !r.Enabled {
		return ".m4a"
	}
	switch r.Codec {
	case "aac", "libfdk_aac":
		return ".m4a"
	default:
		return ".wav"
	}
}
