// Package ingest walks a document folder and drives chunking, embedding
// and indexing per file, reporting progress at each step.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/support-agent/backend/internal/chunker"
	"github.com/support-agent/backend/internal/embedding"
	"github.com/support-agent/backend/internal/metrics"
	"github.com/support-agent/backend/internal/vector"
	"github.com/support-agent/backend/pkg/logger"
)

var (
	// ErrInvalidInput marks a missing folder or a path that is not a
	// directory. User-fixable, not retryable.
	ErrInvalidInput = errors.New("invalid ingestion input")

	// ErrNoSupportedFiles means nothing in the folder matched the
	// supported extension set.
	ErrNoSupportedFiles = errors.New("no supported files found")
)

var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Progress receives one call per file state transition plus a final
// aggregate call. Rejected files are reported with current=0.
type Progress func(current, total int, filename, status string)

type Ingestor struct {
	chunker    *chunker.Chunker
	provider   embedding.Provider
	index      vector.Index
	collection string
}

func NewIngestor(c *chunker.Chunker, provider embedding.Provider, index vector.Index, collection string) *Ingestor {
	return &Ingestor{
		chunker:    c,
		provider:   provider,
		index:      index,
		collection: vector.NormalizeName(collection),
	}
}

func (ing *Ingestor) Collection() string { return ing.collection }

// Ingest processes every supported file under folder and returns the
// total number of chunks stored. A file failing at any stage is reported
// and skipped; ingestion continues with the next file. Cancellation is
// checked between files, so completed files stay indexed.
func (ing *Ingestor) Ingest(ctx context.Context, folder string, progress Progress) (int, error) {
	report := func(current, total int, filename, status string) {
		if progress != nil {
			progress(current, total, filename, status)
		}
	}

	info, err := os.Stat(folder)
	if err != nil {
		return 0, fmt.Errorf("%w: folder does not exist: %s", ErrInvalidInput, folder)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%w: path is not a directory: %s", ErrInvalidInput, folder)
	}

	if err := ing.index.CreateOrGet(ctx, ing.collection); err != nil {
		return 0, fmt.Errorf("failed to open collection %q: %w", ing.collection, err)
	}

	accepted, rejected, err := ing.discover(folder)
	if err != nil {
		return 0, err
	}

	for _, rej := range rejected {
		metrics.FilesIngested.WithLabelValues("rejected").Inc()
		report(0, len(accepted), filepath.Base(rej.path), "REJECTED: "+rej.reason)
	}

	if len(accepted) == 0 {
		return 0, fmt.Errorf("%w: no supported files (.txt, .md) found in %s", ErrNoSupportedFiles, folder)
	}

	total := len(accepted)
	totalChunks := 0

	for i, path := range accepted {
		if err := ctx.Err(); err != nil {
			logger.Warn("Ingestion cancelled",
				zap.Int("completed_files", i),
				zap.Int("total_files", total),
			)
			return totalChunks, err
		}

		current := i + 1
		name := filepath.Base(path)

		n, err := ing.ingestFile(ctx, folder, path, current, total, report)
		if err != nil {
			metrics.FilesIngested.WithLabelValues("error").Inc()
			logger.Warn("File ingestion failed", zap.String("file", path), zap.Error(err))
			report(current, total, name, "ERROR: "+err.Error())
			continue
		}

		metrics.FilesIngested.WithLabelValues("done").Inc()
		metrics.ChunksIngested.Add(float64(n))
		totalChunks += n
	}

	logger.Info("Ingestion completed",
		zap.String("collection", ing.collection),
		zap.Int("files", total),
		zap.Int("chunks", totalChunks),
	)

	report(total, total, "", fmt.Sprintf("Completed! %d total chunks ingested.", totalChunks))

	return totalChunks, nil
}

type rejectedFile struct {
	path   string
	reason string
}

// discover walks folder recursively, splitting regular files into
// supported and rejected sets. Directories are skipped silently.
func (ing *Ingestor) discover(folder string) ([]string, []rejectedFile, error) {
	var accepted []string
	var rejected []rejectedFile

	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			rejected = append(rejected, rejectedFile{path: path, reason: fmt.Sprintf("Not a file: %s", path)})
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !supportedExtensions[ext] {
			rejected = append(rejected, rejectedFile{
				path:   path,
				reason: fmt.Sprintf("Unsupported file type: %s. Only .txt and .md files are supported.", ext),
			})
			return nil
		}

		accepted = append(accepted, path)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk folder: %w", err)
	}

	sort.Strings(accepted)

	return accepted, rejected, nil
}

func (ing *Ingestor) ingestFile(ctx context.Context, folder, path string, current, total int, report Progress) (int, error) {
	name := filepath.Base(path)

	report(current, total, name, "Reading...")
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	report(current, total, name, "Chunking...")
	chunks := ing.chunker.Split(string(content))

	report(current, total, name, fmt.Sprintf("Embedding %d chunks...", len(chunks)))
	vectors, err := ing.provider.EmbedDocuments(ctx, chunks)
	if err != nil {
		return 0, err
	}

	report(current, total, name, "Saving...")
	relPath, err := filepath.Rel(folder, path)
	if err != nil {
		return 0, err
	}
	relPath = filepath.ToSlash(relPath)

	records := make([]vector.Record, len(chunks))
	for j, text := range chunks {
		records[j] = vector.Record{
			ID:     fmt.Sprintf("%s_%d", relPath, j),
			Vector: vectors[j],
			Text:   text,
			Metadata: vector.Metadata{
				Filename:    name,
				Filepath:    relPath,
				ChunkIndex:  j,
				TotalChunks: len(chunks),
			},
		}
	}

	if err := ing.index.Upsert(ctx, ing.collection, records); err != nil {
		return 0, err
	}

	report(current, total, name, fmt.Sprintf("✓ Done (%d chunks)", len(chunks)))

	return len(chunks), nil
}
