package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/support-agent/backend/internal/vector"
	"github.com/support-agent/backend/internal/vector/memory"
)

type stubProvider struct {
	vec []float32
	err error
}

func (p *stubProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = p.vec
	}
	return out, nil
}

func (p *stubProvider) EmbedQuery(context.Context, string) ([]float32, error) {
	return p.vec, p.err
}

func (p *stubProvider) Model() string  { return "stub" }
func (p *stubProvider) Dimension() int { return len(p.vec) }

// failingIndex fails every operation, standing in for an unreachable
// similarity service.
type failingIndex struct{}

func (failingIndex) CreateOrGet(context.Context, string) error { return vector.ErrUnreachable }
func (failingIndex) Upsert(context.Context, string, []vector.Record) error {
	return vector.ErrUnreachable
}
func (failingIndex) Query(context.Context, string, []float32, int) ([]vector.QueryMatch, error) {
	return nil, vector.ErrUnreachable
}
func (failingIndex) GetByIDs(context.Context, string, []string) ([]*vector.Record, error) {
	return nil, vector.ErrUnreachable
}
func (failingIndex) Delete(context.Context, string) error { return vector.ErrUnreachable }
func (failingIndex) List(context.Context) ([]string, error) {
	return nil, vector.ErrUnreachable
}
func (failingIndex) Count(context.Context, string) (int64, error) {
	return 0, vector.ErrUnreachable
}

func TestSearch_ReturnsOrderedMatches(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex()
	require.NoError(t, idx.CreateOrGet(ctx, "docs"))
	require.NoError(t, idx.Upsert(ctx, "docs", []vector.Record{
		{ID: "near", Vector: []float32{1, 0}, Text: "near"},
		{ID: "far", Vector: []float32{0, 1}, Text: "far"},
	}))

	r := NewRetriever(&stubProvider{vec: []float32{1, 0}}, idx, "docs", nil)

	matches := r.Search(ctx, "anything", 5)
	require.Len(t, matches, 2)
	assert.Equal(t, "near", matches[0].ID)
	assert.True(t, matches[0].Distance <= matches[1].Distance)
}

func TestSearch_EmptyCollectionName(t *testing.T) {
	r := NewRetriever(&stubProvider{vec: []float32{1, 0}}, memory.NewIndex(), "", nil)

	matches := r.Search(context.Background(), "anything", 5)
	assert.Nil(t, matches)
}

func TestSearch_EmbeddingFailureDegradesToEmpty(t *testing.T) {
	r := NewRetriever(
		&stubProvider{err: errors.New("embedding service down")},
		memory.NewIndex(),
		"docs",
		nil,
	)

	matches := r.Search(context.Background(), "anything", 5)
	assert.Nil(t, matches)
}

func TestSearch_IndexFailureDegradesToEmpty(t *testing.T) {
	r := NewRetriever(&stubProvider{vec: []float32{1, 0}}, failingIndex{}, "docs", nil)

	matches := r.Search(context.Background(), "anything", 5)
	assert.Nil(t, matches)
}

func TestSearch_NormalizesCollectionName(t *testing.T) {
	ctx := context.Background()
	idx := memory.NewIndex()
	require.NoError(t, idx.CreateOrGet(ctx, "product_docs"))
	require.NoError(t, idx.Upsert(ctx, "product_docs", []vector.Record{
		{ID: "a", Vector: []float32{1, 0}, Text: "a"},
	}))

	r := NewRetriever(&stubProvider{vec: []float32{1, 0}}, idx, "Product Docs", nil)
	assert.Equal(t, "product_docs", r.Collection())

	matches := r.Search(ctx, "anything", 5)
	assert.Len(t, matches, 1)
}
