package ffmpeg

import "errors"

// ErrNotFound indicates the ffmpeg binary is not installed or not on PATH.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrProbeNotFound indicates the ffprobe binary is not installed or not on PATH.
var ErrProbeNotFound = errors.New("ffprobe not found")
