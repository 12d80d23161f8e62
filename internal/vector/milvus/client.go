// Package milvus implements vector.Index against a Milvus deployment.
package milvus

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/support-agent/backend/internal/vector"
	"github.com/support-agent/backend/pkg/logger"
	"github.com/support-agent/backend/pkg/retry"
)

const (
	idField          = "id"
	vectorField      = "embedding"
	textField        = "text"
	filenameField    = "filename"
	filepathField    = "filepath"
	chunkIndexField  = "chunk_index"
	totalChunksField = "total_chunks"
)

type Client struct {
	client      client.Client
	vectorDim   int
	timeout     time.Duration
	retryConfig retry.Config
}

func NewClient(host string, port, vectorDim int, timeout time.Duration) (*Client, error) {
	endpoint := fmt.Sprintf("%s:%d", host, port)

	c, err := client.NewGrpcClient(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrUnreachable, err)
	}

	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	retryConfig := retry.DefaultConfig()
	retryConfig.Logger = logger.GetLogger()

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.Int("vector_dim", vectorDim),
	)

	return &Client{
		client:      c,
		vectorDim:   vectorDim,
		timeout:     timeout,
		retryConfig: retryConfig,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) CreateOrGet(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	has, err := m.client.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: %v", vector.ErrUnreachable, err)
	}
	if has {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: name,
		Description:    "document chunk embeddings",
		Fields: []*entity.Field{
			{
				Name:       idField,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "512"},
			},
			{
				Name:     vectorField,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(m.vectorDim),
				},
			},
			{
				Name:       textField,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "8192"},
			},
			{
				Name:       filenameField,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "256"},
			},
			{
				Name:       filepathField,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "512"},
			},
			{
				Name:     chunkIndexField,
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     totalChunksField,
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection %q: %w", name, err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.COSINE, 1024)
	if err != nil {
		return fmt.Errorf("failed to build index definition: %w", err)
	}
	if err := m.client.CreateIndex(ctx, name, vectorField, idx, false); err != nil {
		return fmt.Errorf("failed to create index on %q: %w", name, err)
	}

	if err := m.client.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("failed to load collection %q: %w", name, err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", name))

	return nil
}

func (m *Client) Upsert(ctx context.Context, name string, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	vectors := make([][]float32, len(records))
	texts := make([]string, len(records))
	filenames := make([]string, len(records))
	filepaths := make([]string, len(records))
	chunkIndexes := make([]int64, len(records))
	totalChunks := make([]int64, len(records))

	for i, rec := range records {
		ids[i] = rec.ID
		vectors[i] = rec.Vector
		texts[i] = rec.Text
		filenames[i] = rec.Metadata.Filename
		filepaths[i] = rec.Metadata.Filepath
		chunkIndexes[i] = int64(rec.Metadata.ChunkIndex)
		totalChunks[i] = int64(rec.Metadata.TotalChunks)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := retry.Do(ctx, m.retryConfig, func() error {
		_, err := m.client.Upsert(
			ctx,
			name,
			"",
			entity.NewColumnVarChar(idField, ids),
			entity.NewColumnFloatVector(vectorField, m.vectorDim, vectors),
			entity.NewColumnVarChar(textField, texts),
			entity.NewColumnVarChar(filenameField, filenames),
			entity.NewColumnVarChar(filepathField, filepaths),
			entity.NewColumnInt64(chunkIndexField, chunkIndexes),
			entity.NewColumnInt64(totalChunksField, totalChunks),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %v", vector.ErrUnreachable, err)
	}

	if err := m.client.Flush(ctx, name, false); err != nil {
		return fmt.Errorf("%w: %v", vector.ErrUnreachable, err)
	}

	logger.Debug("Records upserted",
		zap.String("collection", name),
		zap.Int("count", len(records)),
	)

	return nil
}

func (m *Client) Query(ctx context.Context, name string, vec []float32, k int) ([]vector.QueryMatch, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	results, err := retry.DoWithResult(ctx, m.retryConfig, func() ([]client.SearchResult, error) {
		return m.client.Search(
			ctx,
			name,
			[]string{},
			"",
			[]string{idField, textField, filenameField, filepathField, chunkIndexField, totalChunksField},
			[]entity.Vector{entity.FloatVector(vec)},
			vectorField,
			entity.COSINE,
			k,
			sp,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrUnreachable, err)
	}

	matches := make([]vector.QueryMatch, 0, k)
	for _, sr := range results {
		for i := 0; i < sr.ResultCount; i++ {
			rec, err := recordAt(sr.Fields, i)
			if err != nil {
				return nil, fmt.Errorf("failed to decode search result: %w", err)
			}
			// Milvus reports cosine similarity; convert to distance.
			matches = append(matches, vector.QueryMatch{
				ID:       rec.ID,
				Text:     rec.Text,
				Metadata: rec.Metadata,
				Distance: 1 - float64(sr.Scores[i]),
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > k {
		matches = matches[:k]
	}

	return matches, nil
}

func (m *Client) GetByIDs(ctx context.Context, name string, ids []string) ([]*vector.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = strconv.Quote(id)
	}
	expr := fmt.Sprintf("%s in [%s]", idField, strings.Join(quoted, ", "))

	rs, err := m.client.Query(ctx, name, []string{}, expr,
		[]string{idField, textField, filenameField, filepathField, chunkIndexField, totalChunksField})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrUnreachable, err)
	}

	// ResultSet carries no row count of its own; take it from a column.
	idCol := rs.GetColumn(idField)
	if idCol == nil {
		return nil, fmt.Errorf("missing column %q", idField)
	}

	found := make(map[string]*vector.Record)
	for i := 0; i < idCol.Len(); i++ {
		rec, err := recordAt(rs, i)
		if err != nil {
			return nil, fmt.Errorf("failed to decode query result: %w", err)
		}
		found[rec.ID] = rec
	}

	out := make([]*vector.Record, len(ids))
	for i, id := range ids {
		out[i] = found[id]
	}

	return out, nil
}

func (m *Client) Delete(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.client.DropCollection(ctx, name); err != nil {
		return fmt.Errorf("%w: %v", vector.ErrUnreachable, err)
	}

	logger.Info("Collection deleted", zap.String("collection", name))

	return nil
}

func (m *Client) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	collections, err := m.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrUnreachable, err)
	}

	names := make([]string, 0, len(collections))
	for _, c := range collections {
		names = append(names, c.Name)
	}
	sort.Strings(names)

	return names, nil
}

func (m *Client) Count(ctx context.Context, name string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	stats, err := m.client.GetCollectionStatistics(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", vector.ErrUnreachable, err)
	}

	count, err := strconv.ParseInt(stats["row_count"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected row_count %q: %w", stats["row_count"], err)
	}

	return count, nil
}

// recordAt decodes one row of a search/query result set. The embedding
// column is not requested back, so Vector stays nil.
func recordAt(rs client.ResultSet, i int) (*vector.Record, error) {
	id, err := columnString(rs, idField, i)
	if err != nil {
		return nil, err
	}
	text, err := columnString(rs, textField, i)
	if err != nil {
		return nil, err
	}
	filename, err := columnString(rs, filenameField, i)
	if err != nil {
		return nil, err
	}
	filepath, err := columnString(rs, filepathField, i)
	if err != nil {
		return nil, err
	}
	chunkIndex, err := columnInt64(rs, chunkIndexField, i)
	if err != nil {
		return nil, err
	}
	totalChunks, err := columnInt64(rs, totalChunksField, i)
	if err != nil {
		return nil, err
	}

	return &vector.Record{
		ID:   id,
		Text: text,
		Metadata: vector.Metadata{
			Filename:    filename,
			Filepath:    filepath,
			ChunkIndex:  int(chunkIndex),
			TotalChunks: int(totalChunks),
		},
	}, nil
}

func columnString(rs client.ResultSet, name string, i int) (string, error) {
	col := rs.GetColumn(name)
	if col == nil {
		return "", fmt.Errorf("missing column %q", name)
	}
	v, err := col.Get(i)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("column %q is not a string", name)
	}
	return s, nil
}

func columnInt64(rs client.ResultSet, name string, i int) (int64, error) {
	col := rs.GetColumn(name)
	if col == nil {
		return 0, fmt.Errorf("missing column %q", name)
	}
	v, err := col.Get(i)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("column %q is not an int64", name)
	}
	return n, nil
}
