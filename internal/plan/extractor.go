package plan

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/alnah/go-scribe/internal/config"
)

// Extractor extracts one time window from a source audio file into a new
// file at dst. A failure aborts planning entirely.
type Extractor interface {
	Extract(ctx context.Context, src, dst string, start, length float64, enc config.Reencode) error
}

// commandRunner executes external commands and returns their combined output.
type commandRunner interface {
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
}

// osCommandRunner implements commandRunner using exec.CommandContext.
type osCommandRunner struct{}

func (osCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	// #nosec G204 -- name and args are controlled by the extractor, not user input
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Compile-time interface implementation check.
var _ Extractor = (*FFmpegExtractor)(nil)

// FFmpegExtractor extracts windows by shelling out to ffmpeg.
type FFmpegExtractor struct {
	ffmpegPath string
	cmd        commandRunner
}

// FFmpegExtractorOption configures an FFmpegExtractor.
type FFmpegExtractorOption func(*FFmpegExtractor)

// WithCommandRunner sets the command runner (for testing).
func WithCommandRunner(r commandRunner) FFmpegExtractorOption {
	return func(e *FFmpegExtractor) { e.cmd = r }
}

// NewFFmpegExtractor creates an extractor using the given ffmpeg binary.
func NewFFmpegExtractor(ffmpegPath string, opts ...FFmpegExtractorOption) *FFmpegExtractor {
	e := &FFmpegExtractor{
		ffmpegPath: ffmpegPath,
		cmd:        osCommandRunner{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs ffmpeg to produce one chunk file.
func (e *FFmpegExtractor) Extract(ctx context.Context, src, dst string, start, length float64, enc config.Reencode) error {
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", start),
		"-i", src,
		"-t", fmt.Sprintf("%.3f", length),
	}
	args = append(args, encodeArgs(enc)...)
	args = append(args, dst)

	output, err := e.cmd.CombinedOutput(ctx, e.ffmpegPath, args)
	if err != nil {
		return fmt.Errorf("%w: %s: %v\nOutput: %s", ErrExtractFailed, dst, err, string(output))
	}
	return nil
}

// encodeArgs returns ffmpeg encoding arguments for the re-encode settings.
// When re-encoding is disabled the container default (copy passthrough)
// applies and no arguments are emitted.
func encodeArgs(r config.Reencode) []string {
	if !r.Enabled {
		return nil
	}
	return []string{
		"-ac", strconv.Itoa(r.Channels),
		"-ar", strconv.Itoa(r.SampleRate),
		"-b:a", fmt.Sprintf("%dk", r.BitrateKbps),
		"-c:a", r.Codec,
	}
}
