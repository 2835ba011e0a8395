package ingest

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/patient-intake/constants"
	"github.com/joseph-ayodele/patient-intake/internal/async"
	"github.com/joseph-ayodele/patient-intake/internal/cache"
	"github.com/joseph-ayodele/patient-intake/internal/intake"
)

// FSIngestor reads from the local filesystem.
type FSIngestor struct {
	Intake      *intake.Service
	Queue       async.Queue
	UseAI       bool
	Force       bool                // enqueue even when identical content was already processed
	AllowedExts map[string]struct{} // lowercased sans '.'; nil -> default set
	Logger      *slog.Logger
}

func NewFSIngestor(svc *intake.Service, q async.Queue, useAI bool, logger *slog.Logger) *FSIngestor {
	return &FSIngestor{
		Intake: svc,
		Queue:  q,
		UseAI:  useAI,
		Logger: logger,
	}
}

func (i *FSIngestor) allowed(ext string) bool {
	allow := i.AllowedExts
	if allow == nil {
		allow = constants.AllowedExtensions
	}
	_, ok := allow[constants.NormalizeExt(ext)]
	return ok
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		i.Logger.Error("abs path error", "path", path, "error", err)
		return out, err
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !i.allowed(ext) {
		i.Logger.Warn("unsupported or missing extension", "path", abs, "ext", ext)
		return out, fmt.Errorf("unsupported or missing extension")
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		i.Logger.Error("read error", "path", abs, "error", err)
		return out, err
	}
	sum := cache.ContentHash(content)
	hashHex := hex.EncodeToString(sum[:])

	if !i.Force {
		prior, err := i.Intake.FindPriorJob(ctx, content)
		if err != nil {
			return out, err
		}
		if prior != nil {
			return IngestionResult{
				SourcePath:   abs,
				JobID:        prior.ID.String(),
				Deduplicated: true,
				HashHex:      hashHex,
				FileExt:      ext,
				EnqueuedAt:   prior.EnqueuedAt,
			}, nil
		}
	}

	job, err := i.Intake.EnqueueDocument(ctx, content, abs, i.UseAI)
	if err != nil {
		return out, err
	}
	if err := i.Queue.Enqueue(ctx, job); err != nil {
		return out, err
	}

	out = IngestionResult{
		SourcePath: abs,
		JobID:      job.ID.String(),
		HashHex:    hashHex,
		FileExt:    ext,
		EnqueuedAt: job.SubmittedAt,
	}
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(
	ctx context.Context,
	root string,
	skipHidden bool,
) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if !i.allowed(ext) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		if r.Deduplicated {
			stats.Deduplicated++
		} else {
			stats.Succeeded++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
