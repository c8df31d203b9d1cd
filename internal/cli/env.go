package cli

import (
	"context"
	"io"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-scribe/internal/config"
	"github.com/alnah/go-scribe/internal/ffmpeg"
	"github.com/alnah/go-scribe/internal/plan"
	"github.com/alnah/go-scribe/internal/probe"
	"github.com/alnah/go-scribe/internal/transcribe"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
type Env struct {
	// I/O and environment
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time

	// Factories for domain objects
	BinResolver        BinResolver
	ConfigLoader       ConfigLoader
	ProberFactory      ProberFactory
	ExtractorFactory   ExtractorFactory
	TranscriberFactory TranscriberFactory
}

// BinResolver locates the external FFmpeg binaries.
type BinResolver interface {
	Resolve() (ffmpeg.Paths, error)
}

// ConfigLoader loads the persistent user configuration.
type ConfigLoader interface {
	Load() (config.File, error)
}

// Prober reads audio metadata from a file.
type Prober interface {
	Probe(ctx context.Context, path string) (probe.Metadata, error)
}

// ProberFactory creates audio probers.
type ProberFactory interface {
	NewProber(ffprobePath string) Prober
}

// ExtractorFactory creates audio extractors.
type ExtractorFactory interface {
	NewExtractor(ffmpegPath string) plan.Extractor
}

// TranscriberFactory creates transcribers for audio-to-text conversion.
type TranscriberFactory interface {
	NewTranscriber(apiKey string) transcribe.Transcriber
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) { e.Getenv = fn }
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) { e.Now = fn }
}

// WithBinResolver sets the FFmpeg binary resolver.
func WithBinResolver(r BinResolver) EnvOption {
	return func(e *Env) { e.BinResolver = r }
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) { e.ConfigLoader = l }
}

// WithProberFactory sets the prober factory.
func WithProberFactory(f ProberFactory) EnvOption {
	return func(e *Env) { e.ProberFactory = f }
}

// WithExtractorFactory sets the extractor factory.
func WithExtractorFactory(f ExtractorFactory) EnvOption {
	return func(e *Env) { e.ExtractorFactory = f }
}

// WithTranscriberFactory sets the transcriber factory.
func WithTranscriberFactory(f TranscriberFactory) EnvOption {
	return func(e *Env) { e.TranscriberFactory = f }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stderr:             os.Stderr,
		Getenv:             os.Getenv,
		Now:                time.Now,
		BinResolver:        &defaultBinResolver{},
		ConfigLoader:       &defaultConfigLoader{},
		ProberFactory:      &defaultProberFactory{},
		ExtractorFactory:   &defaultExtractorFactory{},
		TranscriberFactory: &defaultTranscriberFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultBinResolver implements BinResolver using the ffmpeg package.
type defaultBinResolver struct{}

func (defaultBinResolver) Resolve() (ffmpeg.Paths, error) {
	return ffmpeg.Resolve()
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.File, error) {
	return config.Load()
}

// defaultProberFactory implements ProberFactory using the probe package.
type defaultProberFactory struct{}

func (defaultProberFactory) NewProber(ffprobePath string) Prober {
	return probe.NewProber(ffprobePath)
}

// defaultExtractorFactory implements ExtractorFactory using the plan package.
type defaultExtractorFactory struct{}

func (defaultExtractorFactory) NewExtractor(ffmpegPath string) plan.Extractor {
	return plan.NewFFmpegExtractor(ffmpegPath)
}

// defaultTranscriberFactory implements TranscriberFactory using OpenAI.
type defaultTranscriberFactory struct{}

func (defaultTranscriberFactory) NewTranscriber(apiKey string) transcribe.Transcriber {
	client := openai.NewClient(apiKey)
	return transcribe.NewOpenAITranscriber(client)
}

// Compile-time interface verification.
var (
	_ BinResolver        = (*defaultBinResolver)(nil)
	_ ConfigLoader       = (*defaultConfigLoader)(nil)
	_ ProberFactory      = (*defaultProberFactory)(nil)
	_ ExtractorFactory   = (*defaultExtractorFactory)(nil)
	_ TranscriberFactory = (*defaultTranscriberFactory)(nil)
)
