package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/joseph-ayodele/document-extractor/constants"
	"github.com/joseph-ayodele/document-extractor/internal/common"
)

// FSIngestor reads scans from the local filesystem. It remembers claimed
// content hashes so the same scan under two names is extracted once.
type FSIngestor struct {
	seen   mapset.Set[string]
	logger *slog.Logger
}

var _ Ingestor = (*FSIngestor)(nil)

func NewFSIngestor(logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{seen: mapset.NewSet[string](), logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult
	if err := ctx.Err(); err != nil {
		return out, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, common.InputError("resolve path", err)
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, common.InputError(fmt.Sprintf("unsupported or missing extension %q", ext), nil)
	}

	f, err := os.Open(abs)
	if err != nil {
		return out, common.InputError("open "+abs, err)
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			i.logger.Warn("ingest.close_error", "path", abs, "error", err)
		}
	}(f)

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return out, common.InputError("hash "+abs, err)
	}
	sum := hex.EncodeToString(h.Sum(nil))

	out = IngestionResult{
		SourcePath:   abs,
		HashHex:      sum,
		FileExt:      ext,
		Size:         n,
		Deduplicated: i.seen.Contains(sum),
	}
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []IngestionResult
	var stats DirStats
	walked := mapset.NewThreadUnsafeSet[string]()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		if !walked.Add(r.HashHex) {
			r.Deduplicated = true
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	i.logger.Info("ingest.directory.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

func (i *FSIngestor) MarkSeen(hash string) bool { return i.seen.Add(hash) }

func (i *FSIngestor) Forget(hash string) { i.seen.Remove(hash) }
