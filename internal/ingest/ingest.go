package ingest

import (
	"context"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	HashHex      string
	FileExt      string
	Size         int64
	Deduplicated bool // same content already claimed, or earlier in the same walk
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the batch command depends on.
type Ingestor interface {
	// IngestPath a single path.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
	// MarkSeen claims a content hash for extraction. It reports false when
	// the hash is already claimed.
	MarkSeen(hash string) bool
	// Forget releases a claimed hash so the same content can be submitted again.
	Forget(hash string)
}
