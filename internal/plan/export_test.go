package plan

import (
	"github.com/alnah/go-scribe/internal/config"
	"github.com/alnah/go-scribe/internal/probe"
)

// Internal functions exposed for black-box testing.

func ChunkWindow(meta probe.Metadata, c config.Chunking) float64 {
	return chunkWindow(meta, c)
}

func CutPoints(duration, window, overlap float64) []Window {
	return cutPoints(duration, window, overlap)
}

func ChunkExt(r config.Reencode) string {
	return chunkExt(r)
}

func EncodeArgs(r config.Reencode) []string {
	return encodeArgs(r)
}
