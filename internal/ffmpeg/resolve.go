// Package ffmpeg locates the external FFmpeg binaries the pipeline shells
// out to. Audio extraction and probing are external collaborators: this
// package only resolves paths, it never interprets media itself.
package ffmpeg

import (
	"fmt"
	"os"
	"os/exec"
)

// Environment variable overrides for binary locations.
const (
	EnvFFmpegPath  = "SCRIBE_FFMPEG"
	EnvFFprobePath = "SCRIBE_FFPROBE"
)

// envProvider abstracts environment and path lookup operations.
type envProvider interface {
	Getenv(key string) string
	LookPath(file string) (string, error)
}

// osEnvProvider implements envProvider using os and exec packages.
type osEnvProvider struct{}

func (osEnvProvider) Getenv(key string) string { return os.Getenv(key) }

func (osEnvProvider) LookPath(file string) (string, error) { return exec.LookPath(file) }

// Compile-time interface verification.
var _ envProvider = osEnvProvider{}

// Paths holds resolved locations of the FFmpeg binaries.
type Paths struct {
	FFmpeg  string
	FFprobe string
}

// Resolver locates FFmpeg binaries with injectable environment access.
type Resolver struct {
	env envProvider
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithEnvProvider sets a custom environment provider (for testing).
func WithEnvProvider(p envProvider) ResolverOption {
	return func(r *Resolver) { r.env = p }
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{env: osEnvProvider{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve locates ffmpeg and ffprobe.
// Precedence per binary: environment override, then PATH lookup.
func (r *Resolver) Resolve() (Paths, error) {
	ffmpegPath, err := r.resolveOne(EnvFFmpegPath, "ffmpeg", ErrNotFound)
	if err != nil {
		return Paths{}, err
	}
	ffprobePath, err := r.resolveOne(EnvFFprobePath, "ffprobe", ErrProbeNotFound)
	if err != nil {
		return Paths{}, err
	}
	return Paths{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
}

// resolveOne resolves a single binary with env override and PATH fallback.
func (r *Resolver) resolveOne(envKey, name string, sentinel error) (string, error) {
	if p := r.env.Getenv(envKey); p != "" {
		return p, nil
	}
	p, err := r.env.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: install it or set %s", sentinel, envKey)
	}
	return p, nil
}

// Resolve locates ffmpeg and ffprobe using the process environment.
func Resolve() (Paths, error) {
	return NewResolver().Resolve()
}
