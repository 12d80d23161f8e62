package ingest

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/support-agent/backend/internal/chunker"
	"github.com/support-agent/backend/internal/embedding"
	"github.com/support-agent/backend/internal/vector/memory"
)

// fakeProvider derives a deterministic unit vector from the text so the
// same text always embeds to the same point.
type fakeProvider struct{}

func (f *fakeProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.Contains(text, "EMBED-FAILURE") {
			return nil, fmt.Errorf("model rejected input")
		}
		out[i] = fakeVector(text)
	}
	return out, nil
}

func (f *fakeProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return fakeVector(text), nil
}

func (f *fakeProvider) Model() string  { return "fake-model" }
func (f *fakeProvider) Dimension() int { return 4 }

func fakeVector(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vec := make([]float32, 4)
	for i := range vec {
		vec[i] = float32((seed>>(i*8))&0xff) + 1
	}
	embedding.Normalize(vec)
	return vec
}

type event struct {
	current  int
	total    int
	filename string
	status   string
}

func collectEvents(events *[]event) Progress {
	return func(current, total int, filename, status string) {
		*events = append(*events, event{current, total, filename, status})
	}
}

func newTestIngestor(t *testing.T, collection string) (*Ingestor, *memory.Index) {
	t.Helper()
	c, err := chunker.New(1000, 200)
	require.NoError(t, err)
	idx := memory.NewIndex()
	return NewIngestor(c, &fakeProvider{}, idx, collection), idx
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestIngest_GuideScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "guide.md", strings.Repeat("g", 1500))

	ing, idx := newTestIngestor(t, "Test Docs")

	var events []event
	total, err := ing.Ingest(context.Background(), dir, collectEvents(&events))
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	recs, err := idx.GetByIDs(context.Background(), "test_docs", []string{"guide.md_0", "guide.md_1"})
	require.NoError(t, err)
	require.NotNil(t, recs[0])
	require.NotNil(t, recs[1])
	assert.Equal(t, "guide.md", recs[0].Metadata.Filename)
	assert.Equal(t, 0, recs[0].Metadata.ChunkIndex)
	assert.Equal(t, 1, recs[1].Metadata.ChunkIndex)
	assert.Equal(t, 2, recs[1].Metadata.TotalChunks)

	var statuses []string
	for _, e := range events {
		statuses = append(statuses, e.status)
	}
	assert.Equal(t, []string{
		"Reading...",
		"Chunking...",
		"Embedding 2 chunks...",
		"Saving...",
		"✓ Done (2 chunks)",
		"Completed! 2 total chunks ingested.",
	}, statuses)

	final := events[len(events)-1]
	assert.Equal(t, 1, final.current)
	assert.Equal(t, 1, final.total)
	assert.Equal(t, "", final.filename)
}

func TestIngest_RejectsUnsupportedAndContinues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "manual.pdf", "%PDF-1.4 binary stuff")
	writeFile(t, dir, "notes.md", "markdown notes about the product")

	ing, idx := newTestIngestor(t, "docs")

	var events []event
	total, err := ing.Ingest(context.Background(), dir, collectEvents(&events))
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	var rejected *event
	for i := range events {
		if strings.HasPrefix(events[i].status, "REJECTED:") {
			rejected = &events[i]
			break
		}
	}
	require.NotNil(t, rejected, "expected a REJECTED event")
	assert.Equal(t, 0, rejected.current)
	assert.Equal(t, 1, rejected.total)
	assert.Equal(t, "manual.pdf", rejected.filename)
	assert.Contains(t, rejected.status, "Unsupported file type: .pdf")

	count, err := idx.Count(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIngest_InvalidFolder(t *testing.T) {
	ing, _ := newTestIngestor(t, "docs")

	_, err := ing.Ingest(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIngest_FolderIsAFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file.md", "content")

	ing, _ := newTestIngestor(t, "docs")

	_, err := ing.Ingest(context.Background(), filepath.Join(dir, "file.md"), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIngest_NoSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "image.png", "not text")

	ing, _ := newTestIngestor(t, "docs")

	_, err := ing.Ingest(context.Background(), dir, nil)
	assert.ErrorIs(t, err, ErrNoSupportedFiles)
}

func TestIngest_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", strings.Repeat("a", 1200))
	writeFile(t, dir, "b.txt", "short file")

	ing, idx := newTestIngestor(t, "docs")
	ctx := context.Background()

	first, err := ing.Ingest(ctx, dir, nil)
	require.NoError(t, err)
	count1, err := idx.Count(ctx, "docs")
	require.NoError(t, err)

	second, err := ing.Ingest(ctx, dir, nil)
	require.NoError(t, err)
	count2, err := idx.Count(ctx, "docs")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, count1, count2)
	assert.Equal(t, int64(first), count1)
}

func TestIngest_SubdirectoriesNamespaceIDs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	writeFile(t, dir, "top.md", "top level")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "nested.md"), []byte("nested file"), 0644))

	ing, idx := newTestIngestor(t, "docs")

	total, err := ing.Ingest(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	recs, err := idx.GetByIDs(context.Background(), "docs", []string{"top.md_0", "sub/nested.md_0"})
	require.NoError(t, err)
	assert.NotNil(t, recs[0])
	assert.NotNil(t, recs[1])
}

func TestIngest_PerFileErrorIsIsolated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.md", "this document triggers an EMBED-FAILURE downstream")
	writeFile(t, dir, "good.md", "this one is fine")

	ing, idx := newTestIngestor(t, "docs")

	var events []event
	total, err := ing.Ingest(context.Background(), dir, collectEvents(&events))
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	var sawError bool
	for _, e := range events {
		if strings.HasPrefix(e.status, "ERROR:") && e.filename == "bad.md" {
			sawError = true
		}
	}
	assert.True(t, sawError, "expected an ERROR event for bad.md")

	count, err := idx.Count(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	final := events[len(events)-1]
	assert.Equal(t, "Completed! 1 total chunks ingested.", final.status)
}

func TestIngest_CancellationBetweenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "first file")
	writeFile(t, dir, "b.md", "second file")

	ing, idx := newTestIngestor(t, "docs")

	ctx, cancel := context.WithCancel(context.Background())
	progress := func(current, total int, filename, status string) {
		if strings.HasPrefix(status, "✓ Done") {
			cancel()
		}
	}

	total, err := ing.Ingest(ctx, dir, progress)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, total)

	// The completed file stays indexed.
	count, err := idx.Count(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
