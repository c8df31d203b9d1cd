// Package manifest defines the persisted state of a transcription run.
// The manifest file is the sole handoff between pipeline stages: the planner
// creates it, the scheduler mutates it in place, the stitcher reads it.
// Each stage can therefore be re-run independently against the same artifact.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alnah/go-scribe/internal/probe"
)

// Chunk lifecycle states. A chunk starts pending and reaches exactly one
// terminal state; it never reverts to pending.
const (
	StatusPending = "pending"
	StatusDone    = "done"
	StatusError   = "error"
)

// ErrInvalid indicates a manifest that violates its structural invariants.
var ErrInvalid = errors.New("invalid manifest")

// Chunk is one planned audio segment and its transcription outcome.
// Text and LatencyMS are present iff Status is done; Error iff error.
type Chunk struct {
	Index       int     `json:"index"`
	File        string  `json:"file"`
	TStart      float64 `json:"t_start"`
	TEnd        float64 `json:"t_end"`
	OverlapHead float64 `json:"overlap_head"`
	OverlapTail float64 `json:"overlap_tail"`
	Status      string  `json:"status"`
	Text        *string `json:"text"`
	LatencyMS   *int64  `json:"latency_ms"`
	Error       string  `json:"error,omitempty"`
	Retries     int     `json:"retries"`
}

// MarkDone transitions the chunk to its done terminal state.
func (c *Chunk) MarkDone(text string, latency time.Duration) {
	ms := latency.Milliseconds()
	c.Status = StatusDone
	c.Text = &text
	c.LatencyMS = &ms
	c.Error = ""
}

// MarkError transitions the chunk to its error terminal state.
func (c *Chunk) MarkError(msg string) {
	c.Status = StatusError
	c.Text = nil
	c.LatencyMS = nil
	c.Error = msg
}

// Manifest is the single persisted, mutable record of a run.
type Manifest struct {
	Input          string         `json:"input"`
	Meta           probe.Metadata `json:"meta"`
	Chunks         []*Chunk       `json:"chunks"`
	Model          string         `json:"model"`
	ResponseFormat string         `json:"response_format"`
	Prompt         string         `json:"prompt"`
}

// Pending returns the chunks that have not yet reached a terminal state.
func (m *Manifest) Pending() []*Chunk {
	var pending []*Chunk
	for _, c := range m.Chunks {
		if c.Status == StatusPending {
			pending = append(pending, c)
		}
	}
	return pending
}

// Validate checks structural invariants: chunk indices must be unique,
// contiguous, and zero-based, matching plan order.
func (m *Manifest) Validate() error {
	for i, c := range m.Chunks {
		if c.Index != i {
			return fmt.Errorf("%w: chunk at position %d has index %d", ErrInvalid, i, c.Index)
		}
		switch c.Status {
		case StatusPending, StatusDone, StatusError:
		default:
			return fmt.Errorf("%w: chunk %d has unknown status %q", ErrInvalid, c.Index, c.Status)
		}
	}
	return nil
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- manifest path comes from the CLI user
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save writes the manifest to path. The write goes through a temp file in
// the same directory followed by a rename, so an interrupted save never
// leaves a truncated manifest behind.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode manifest: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("cannot create temp manifest: %w", err)
	}

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(tmp.Name())
		if werr != nil {
			return fmt.Errorf("cannot write manifest: %w", werr)
		}
		return fmt.Errorf("cannot write manifest: %w", cerr)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("cannot save manifest: %w", err)
	}
	return nil
}
