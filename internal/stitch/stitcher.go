// Package stitch reassembles per-chunk transcripts into one document.
// Consecutive chunks share deliberately duplicated boundary audio; the
// stitcher aligns the trailing text of the accumulated transcript with the
// leading text of the next chunk and drops the duplicated run.
//
// Processing is strictly in manifest index order; the alignment depends on
// sequential order, not on the order chunks finished transcribing.
package stitch

import (
	"strings"

	"github.com/alnah/go-scribe/internal/manifest"
)

// Alignment tuning constants. The window must be wide enough to contain the
// text produced by the planner's overlap seconds; the minimum match length
// rejects false matches on generic repeated phrases.
const (
	matchWindow = 500 // runes examined on each side of a boundary
	minMatch    = 30  // runes a common run must span to count as overlap
)

// MergedChunk is one surviving chunk with its normalized (not deduplicated)
// text and original time bounds.
type MergedChunk struct {
	Index  int     `json:"index"`
	TStart float64 `json:"t_start"`
	TEnd   float64 `json:"t_end"`
	Text   string  `json:"text"`
}

// Normalize stabilizes chunk text for matching: carriage returns become
// newlines, zero-width spaces are stripped, and every line is trimmed
// independently.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\u200b", "")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, "\n")
}

// Stitch merges a completed manifest's chunks in index order.
// Chunks without text (failed or empty) are dropped: coverage silently
// shrinks rather than failing the whole run.
func Stitch(m *manifest.Manifest) (string, []MergedChunk) {
	var (
		fullText string
		merged   []MergedChunk
		first    = true
	)

	for _, c := range m.Chunks {
		if c.Text == nil || *c.Text == "" {
			continue
		}
		if first {
			fullText = Normalize(*c.Text)
			first = false
		} else {
			fullText = dedupJoin(fullText, *c.Text)
		}
		merged = append(merged, MergedChunk{
			Index:  c.Index,
			TStart: c.TStart,
			TEnd:   c.TEnd,
			Text:   Normalize(*c.Text),
		})
	}

	return strings.TrimSpace(fullText), merged
}

// dedupJoin appends the next chunk's text onto the accumulated text,
// removing the duplicated boundary speech when it can be found.
//
// The trailing matchWindow runes of prev are aligned against the leading
// matchWindow runes of next; if the longest common contiguous run spans at
// least minMatch runes, everything in next up to and including that run is
// treated as duplicate and dropped. Otherwise the texts are space-joined,
// accepting a visible seam rather than losing text.
func dedupJoin(prev, next string) string {
	prevN := Normalize(prev)
	nextN := Normalize(next)

	prevRunes := []rune(prevN)
	nextRunes := []rune(nextN)

	tail := prevRunes
	if len(tail) > matchWindow {
		tail = tail[len(tail)-matchWindow:]
	}
	head := nextRunes
	if len(head) > matchWindow {
		head = head[:matchWindow]
	}

	_, headStart, length := longestCommonRun(tail, head)
	if length >= minMatch {
		joined := prevN + string(head[headStart+length:]) + string(nextRunes[len(head):])
		return strings.TrimSpace(joined)
	}

	return strings.TrimSpace(prevN + " " + nextN)
}

// longestCommonRun finds the longest contiguous run of runes common to a
// and b, returning its start offset in each and its length. Classic
// longest-common-substring dynamic program over the two windows; the
// windows are bounded by matchWindow so cost stays small.
func longestCommonRun(a, b []rune) (aStart, bStart, length int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	// prev[j] = length of common run ending at a[i-1], b[j-1].
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > length {
					length = curr[j]
					aStart = i - curr[j]
					bStart = j - curr[j]
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}

	return aStart, bStart, length
}
