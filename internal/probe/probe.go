// Package probe extracts audio metadata from a container file via ffprobe.
// The probe is an external collaborator: missing audio-stream fields default
// rather than fail, so a damaged container still yields usable metadata
// (a zero duration is caught later by the planner).
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

// Defaults applied when ffprobe cannot determine a field.
const (
	DefaultBitRate    = 128000
	DefaultSampleRate = 44100
	DefaultChannels   = 2
)

// ErrProbeFailed indicates ffprobe exited non-zero or produced unparseable output.
var ErrProbeFailed = errors.New("audio probe failed")

// Metadata describes the source audio file as reported by ffprobe.
type Metadata struct {
	Duration   float64 `json:"duration"`    // seconds
	BitRate    int     `json:"bit_rate"`    // bits per second
	SampleRate int     `json:"sample_rate"` // Hz
	Channels   int     `json:"channels"`
	FormatName string  `json:"format_name"`
	SizeBytes  int64   `json:"size_bytes"`
}

// commandRunner executes external commands and returns their combined output.
type commandRunner interface {
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
}

// osCommandRunner implements commandRunner using exec.CommandContext.
type osCommandRunner struct{}

func (osCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	// #nosec G204 -- name and args are controlled by the prober, not user input
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Prober reads audio metadata through ffprobe.
type Prober struct {
	ffprobePath string
	cmd         commandRunner
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithCommandRunner sets the command runner (for testing).
func WithCommandRunner(r commandRunner) ProberOption {
	return func(p *Prober) { p.cmd = r }
}

// NewProber creates a Prober using the given ffprobe binary.
func NewProber(ffprobePath string, opts ...ProberOption) *Prober {
	p := &Prober{
		ffprobePath: ffprobePath,
		cmd:         osCommandRunner{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ffprobe emits all numeric fields as JSON strings.
type ffprobeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
		FormatName string `json:"format_name"`
		Size       string `json:"size"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

// Probe returns metadata for the audio file at path.
func (p *Prober) Probe(ctx context.Context, path string) (Metadata, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	out, err := p.cmd.CombinedOutput(ctx, p.ffprobePath, args)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %v: %s", ErrProbeFailed, err, string(out))
	}

	var raw ffprobeOutput
	if err := json.Unmarshal(out, &raw); err != nil {
		return Metadata{}, fmt.Errorf("%w: cannot parse ffprobe output: %v", ErrProbeFailed, err)
	}

	return parseMetadata(raw), nil
}

// parseMetadata converts raw ffprobe output to Metadata, applying defaults
// for fields the probe could not determine.
func parseMetadata(raw ffprobeOutput) Metadata {
	// First audio stream, if any.
	var audio struct {
		duration, bitRate, sampleRate string
		channels                      int
	}
	for _, s := range raw.Streams {
		if s.CodecType == "audio" {
			audio.duration = s.Duration
			audio.bitRate = s.BitRate
			audio.sampleRate = s.SampleRate
			audio.channels = s.Channels
			break
		}
	}

	duration := parseFloat(raw.Format.Duration, 0)
	if duration == 0 {
		duration = parseFloat(audio.duration, 0)
	}

	bitRate := parseInt(raw.Format.BitRate, 0)
	if bitRate == 0 {
		bitRate = parseInt(audio.bitRate, 0)
	}
	if bitRate == 0 {
		bitRate = DefaultBitRate
	}

	sampleRate := parseInt(audio.sampleRate, DefaultSampleRate)
	channels := audio.channels
	if channels == 0 {
		channels = DefaultChannels
	}

	return Metadata{
		Duration:   duration,
		BitRate:    bitRate,
		SampleRate: sampleRate,
		Channels:   channels,
		FormatName: raw.Format.FormatName,
		SizeBytes:  int64(parseInt(raw.Format.Size, 0)),
	}
}

func parseFloat(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// ffprobe sometimes reports fractional bitrates.
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return int(f)
		}
		return fallback
	}
	return v
}
