package cli_test

// Shared fakes for CLI command tests. Each fake implements one Env
// dependency so commands run without ffmpeg, the network, or a home
// directory config file.

import (
	"context"
	"fmt"
	"sync"

	"github.com/alnah/go-scribe/internal/cli"
	"github.com/alnah/go-scribe/internal/config"
	"github.com/alnah/go-scribe/internal/ffmpeg"
	"github.com/alnah/go-scribe/internal/plan"
	"github.com/alnah/go-scribe/internal/probe"
	"github.com/alnah/go-scribe/internal/transcribe"
)

// fakeBinResolver returns fixed binary paths or an error.
type fakeBinResolver struct {
	paths ffmpeg.Paths
	err   error
}

func (f fakeBinResolver) Resolve() (ffmpeg.Paths, error) { return f.paths, f.err }

// fakeConfigLoader returns a fixed user config.
type fakeConfigLoader struct {
	cfg config.File
	err error
}

func (f fakeConfigLoader) Load() (config.File, error) { return f.cfg, f.err }

// fakeProber returns fixed metadata for any input.
type fakeProber struct {
	meta probe.Metadata
	err  error
}

func (f fakeProber) Probe(context.Context, string) (probe.Metadata, error) { return f.meta, f.err }

type fakeProberFactory struct{ prober fakeProber }

func (f fakeProberFactory) NewProber(string) cli.Prober { return f.prober }

// fakeExtractor records extraction calls without producing files.
type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeExtractor) Extract(context.Context, string, string, float64, float64, config.Reencode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fakeExtractorFactory struct{ extractor *fakeExtractor }

func (f fakeExtractorFactory) NewExtractor(string) plan.Extractor { return f.extractor }

// fakeTranscriber returns per-path canned text.
type fakeTranscriber struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string, _ transcribe.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("transcript of %s", audioPath), nil
}

type fakeTranscriberFactory struct {
	transcriber *fakeTranscriber
	gotKey      string
}

func (f *fakeTranscriberFactory) NewTranscriber(apiKey string) transcribe.Transcriber {
	f.gotKey = apiKey
	return f.transcriber
}
