// Package output renders the stitched transcript into the selected file
// formats: plain text, a structured JSON snapshot, SRT, and WebVTT.
package output

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-scribe/internal/config"
	"github.com/alnah/go-scribe/internal/format"
	"github.com/alnah/go-scribe/internal/probe"
	"github.com/alnah/go-scribe/internal/stitch"
)

// Output file names, written alongside the manifest.
const (
	TxtName  = "transcript.txt"
	JSONName = "transcript.json"
	SRTName  = "transcript.srt"
	VTTName  = "transcript.vtt"
)

// srtSpanSecs is the target duration of one SRT cue. Chunk spans are
// subdivided into roughly this many seconds each.
const srtSpanSecs = 10.0

// Document is a self-contained snapshot of a run's inputs and outputs.
type Document struct {
	Source         string               `json:"source"`
	Meta           probe.Metadata       `json:"meta"`
	Model          string               `json:"model"`
	ResponseFormat string               `json:"response_format"`
	Prompt         string               `json:"prompt"`
	Chunks         []stitch.MergedChunk `json:"chunks"`
	FullText       string               `json:"full_text"`
}

// Write renders the selected formats into dir and returns the file names
// written, in a fixed order.
func Write(dir string, sel config.Outputs, doc Document) ([]string, error) {
	var written []string

	if sel.WriteTxt {
		if err := writeFile(dir, TxtName, doc.FullText); err != nil {
			return written, err
		}
		written = append(written, TxtName)
	}
	if sel.WriteJSON {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return written, fmt.Errorf("cannot encode transcript JSON: %w", err)
		}
		if err := writeFile(dir, JSONName, string(data)); err != nil {
			return written, err
		}
		written = append(written, JSONName)
	}
	if sel.WriteSRT {
		if err := writeFile(dir, SRTName, RenderSRT(doc.Chunks)); err != nil {
			return written, err
		}
		written = append(written, SRTName)
	}
	if sel.WriteVTT {
		if err := writeFile(dir, VTTName, RenderVTT(doc.Chunks)); err != nil {
			return written, err
		}
		written = append(written, VTTName)
	}

	return written, nil
}

// writeFile writes content to dir/name, replacing any previous run's output.
func writeFile(dir, name, content string) error {
	path := filepath.Join(dir, name)
	// #nosec G306 -- run artifact with standard permissions
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", name, err)
	}
	return nil
}

// RenderSRT renders merged chunks as sequentially numbered SRT cues.
// Each chunk's span is divided into sub-spans targeting ~10 seconds, and the
// chunk's text is partitioned into character-count-equal pieces mapped
// evenly across the span. The split does not respect word boundaries; it is
// a coarse approximation, not linguistic segmentation.
func RenderSRT(chunks []stitch.MergedChunk) string {
	var blocks []string
	idx := 1

	for _, ch := range chunks {
		dur := math.Max(0.001, ch.TEnd-ch.TStart)
		spans := int(math.Round(dur / srtSpanSecs))
		if spans < 1 {
			spans = 1
		}
		parts := splitByChars(ch.Text, spans)

		for j, part := range parts {
			s := ch.TStart + dur*float64(j)/float64(len(parts))
			e := ch.TStart + dur*float64(j+1)/float64(len(parts))
			blocks = append(blocks, fmt.Sprintf("%d\n%s --> %s\n%s\n",
				idx, format.SRTTimestamp(s), format.SRTTimestamp(e), strings.TrimSpace(part)))
			idx++
		}
	}

	return strings.Join(blocks, "\n")
}

// RenderVTT renders merged chunks as WebVTT: one cue per chunk, no
// sub-splitting, period-separated milliseconds.
func RenderVTT(chunks []stitch.MergedChunk) string {
	lines := []string{"WEBVTT", ""}
	for _, ch := range chunks {
		lines = append(lines, fmt.Sprintf("%s --> %s\n%s\n",
			format.VTTTimestamp(ch.TStart), format.VTTTimestamp(ch.TEnd), strings.TrimSpace(ch.Text)))
	}
	return strings.Join(lines, "\n")
}

// splitByChars partitions text into parts contiguous pieces of roughly
// equal rune count; the final piece absorbs the remainder.
func splitByChars(text string, parts int) []string {
	if parts <= 1 {
		return []string{text}
	}

	runes := []rune(text)
	n := len(runes) / parts
	if n < 1 {
		n = 1
	}

	res := make([]string, 0, parts)
	for i := 0; i < parts-1; i++ {
		lo := min(i*n, len(runes))
		hi := min((i+1)*n, len(runes))
		res = append(res, string(runes[lo:hi]))
	}
	res = append(res, string(runes[min((parts-1)*n, len(runes)):]))
	return res
}
