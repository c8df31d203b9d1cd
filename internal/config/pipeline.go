// Package config holds the validated pipeline configuration and the
// persistent user config file layer.
//
// Pipeline settings are explicit immutable structs validated once at
// construction and passed by value into each stage; no stage reads global
// configuration state.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// ErrInvalid indicates a configuration value outside its allowed range.
var ErrInvalid = errors.New("invalid configuration")

// Transcription model identifiers accepted by the pipeline.
const (
	ModelGPT4oTranscribe     = "gpt-4o-transcribe"
	ModelGPT4oMiniTranscribe = "gpt-4o-mini-transcribe"
)

// Response formats accepted by the transcription API.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Parallelism bounds for concurrent API requests.
const (
	MinParallel = 1
	MaxParallel = 10
)

// Model configures the transcription API calls.
type Model struct {
	Model            string `json:"model"`
	ResponseFormat   string `json:"response_format"`
	Prompt           string `json:"prompt"`
	ParallelRequests int    `json:"parallel_requests"`
	MaxRetries       int    `json:"max_retries"`
	BackoffBaseMS    int    `json:"backoff_base_ms"`
}

// Validate checks model settings against their allowed ranges.
func (m Model) Validate() error {
	if m.Model != ModelGPT4oTranscribe && m.Model != ModelGPT4oMiniTranscribe {
		return fmt.Errorf("%w: model %q (must be %s or %s)",
			ErrInvalid, m.Model, ModelGPT4oTranscribe, ModelGPT4oMiniTranscribe)
	}
	if m.ResponseFormat != FormatJSON && m.ResponseFormat != FormatText {
		return fmt.Errorf("%w: response_format %q (must be json or text)", ErrInvalid, m.ResponseFormat)
	}
	if m.ParallelRequests < MinParallel || m.ParallelRequests > MaxParallel {
		return fmt.Errorf("%w: parallel_requests %d (must be %d-%d)",
			ErrInvalid, m.ParallelRequests, MinParallel, MaxParallel)
	}
	if m.MaxRetries < 0 || m.MaxRetries > 10 {
		return fmt.Errorf("%w: max_retries %d (must be 0-10)", ErrInvalid, m.MaxRetries)
	}
	if m.BackoffBaseMS < 100 || m.BackoffBaseMS > 5000 {
		return fmt.Errorf("%w: backoff_base_ms %d (must be 100-5000)", ErrInvalid, m.BackoffBaseMS)
	}
	return nil
}

// Chunking configures the segmentation planner's windowing policy.
type Chunking struct {
	MaxFileMB     int     `json:"max_file_mb"`
	TargetChunkMB int     `json:"target_chunk_mb"`
	MaxChunkSecs  int     `json:"max_chunk_secs"`
	OverlapSecs   float64 `json:"overlap_secs"`
}

// Validate checks chunking settings against their allowed ranges.
func (c Chunking) Validate() error {
	if c.MaxFileMB < 1 || c.MaxFileMB > 100 {
		return fmt.Errorf("%w: max_file_mb %d (must be 1-100)", ErrInvalid, c.MaxFileMB)
	}
	if c.TargetChunkMB < 1 || c.TargetChunkMB > c.MaxFileMB {
		return fmt.Errorf("%w: target_chunk_mb %d (must be 1-%d)", ErrInvalid, c.TargetChunkMB, c.MaxFileMB)
	}
	if c.MaxChunkSecs < 60 || c.MaxChunkSecs > 3600 {
		return fmt.Errorf("%w: max_chunk_secs %d (must be 60-3600)", ErrInvalid, c.MaxChunkSecs)
	}
	if c.OverlapSecs < 0 || c.OverlapSecs > 30 {
		return fmt.Errorf("%w: overlap_secs %g (must be 0-30)", ErrInvalid, c.OverlapSecs)
	}
	return nil
}

// validCodecs lists re-encode codecs the extractor accepts.
var validCodecs = []string{"aac", "libfdk_aac", "mp3", "wav"}

// validSampleRates lists re-encode sample rates the extractor accepts.
var validSampleRates = []int{8000, 16000, 22050, 44100, 48000}

// Reencode configures optional audio re-encoding during extraction.
// When disabled, chunks are copied without transcoding.
type Reencode struct {
	Enabled     bool   `json:"enabled"`
	Codec       string `json:"codec"`
	BitrateKbps int    `json:"bitrate_kbps"`
	Channels    int    `json:"channels"`
	SampleRate  int    `json:"sample_rate"`
}

// Validate checks re-encode settings against their allowed ranges.
func (r Reencode) Validate() error {
	if !slices.Contains(validCodecs, r.Codec) {
		return fmt.Errorf("%w: codec %q (must be one of %v)", ErrInvalid, r.Codec, validCodecs)
	}
	if r.BitrateKbps < 32 || r.BitrateKbps > 320 {
		return fmt.Errorf("%w: bitrate_kbps %d (must be 32-320)", ErrInvalid, r.BitrateKbps)
	}
	if r.Channels < 1 || r.Channels > 2 {
		return fmt.Errorf("%w: channels %d (must be 1 or 2)", ErrInvalid, r.Channels)
	}
	if !slices.Contains(validSampleRates, r.SampleRate) {
		return fmt.Errorf("%w: sample_rate %d (must be one of %v)", ErrInvalid, r.SampleRate, validSampleRates)
	}
	return nil
}

// Outputs selects which renderings the output writer produces.
type Outputs struct {
	WriteTxt  bool `json:"write_txt"`
	WriteJSON bool `json:"write_json"`
	WriteSRT  bool `json:"write_srt"`
	WriteVTT  bool `json:"write_vtt"`
}

// Pipeline is the full configuration for one run.
type Pipeline struct {
	Model    Model    `json:"model"`
	Chunking Chunking `json:"chunking"`
	Reencode Reencode `json:"reencode"`
	Outputs  Outputs  `json:"outputs"`
}

// Default returns the pipeline configuration with production defaults.
func Default() Pipeline {
	return Pipeline{
		Model: Model{
			Model:            ModelGPT4oTranscribe,
			ResponseFormat:   FormatJSON,
			ParallelRequests: 3,
			MaxRetries:       3,
			BackoffBaseMS:    800,
		},
		Chunking: Chunking{
			MaxFileMB:     25,
			TargetChunkMB: 16,
			MaxChunkSecs:  900,
			OverlapSecs:   3.0,
		},
		Reencode: Reencode{
			Enabled:     true,
			Codec:       "aac",
			BitrateKbps: 64,
			Channels:    1,
			SampleRate:  16000,
		},
		Outputs: Outputs{
			WriteTxt:  true,
			WriteJSON: true,
			WriteSRT:  true,
			WriteVTT:  false,
		},
	}
}

// Validate checks all pipeline settings.
func (p Pipeline) Validate() error {
	if err := p.Model.Validate(); err != nil {
		return err
	}
	if err := p.Chunking.Validate(); err != nil {
		return err
	}
	if err := p.Reencode.Validate(); err != nil {
		return err
	}
	return nil
}

// SaveEffective snapshots the configuration actually used for a run
// (including CLI overrides) into the job directory for later inspection.
func (p Pipeline) SaveEffective(dir string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode effective config: %w", err)
	}
	path := filepath.Join(dir, "effective_config.json")
	// #nosec G306 -- run artifact with standard permissions
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write effective config: %w", err)
	}
	return nil
}
