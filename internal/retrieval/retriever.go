// Package retrieval embeds questions, queries the vector index and
// scores how trustworthy the retrieved context is.
package retrieval

import (
	"context"

	"go.uber.org/zap"

	"github.com/support-agent/backend/internal/cache/redis"
	"github.com/support-agent/backend/internal/embedding"
	"github.com/support-agent/backend/internal/metrics"
	"github.com/support-agent/backend/internal/vector"
	"github.com/support-agent/backend/pkg/logger"
)

type Retriever struct {
	provider   embedding.Provider
	index      vector.Index
	collection string
	cache      *redis.Client
}

// NewRetriever builds a retriever bound to one collection. cache may be
// nil; query embeddings are then computed on every call.
func NewRetriever(provider embedding.Provider, index vector.Index, collection string, cache *redis.Client) *Retriever {
	return &Retriever{
		provider:   provider,
		index:      index,
		collection: vector.NormalizeName(collection),
		cache:      cache,
	}
}

func (r *Retriever) Collection() string { return r.collection }

// Search returns up to k matches ordered by ascending distance. It never
// fails: with no collection configured, an embedding failure or an
// unreachable index it degrades to an empty result, so the answer path
// keeps working without context.
func (r *Retriever) Search(ctx context.Context, query string, k int) []vector.QueryMatch {
	if r.collection == "" {
		logger.Debug("No collection configured, skipping retrieval")
		return nil
	}

	vec, ok := r.cache.GetEmbedding(ctx, query)
	if !ok {
		var err error
		vec, err = r.provider.EmbedQuery(ctx, query)
		if err != nil {
			logger.Warn("Query embedding failed", zap.Error(err))
			return nil
		}
		r.cache.SetEmbedding(ctx, query, vec)
	}

	matches, err := r.index.Query(ctx, r.collection, vec, k)
	if err != nil {
		logger.Warn("Vector query failed",
			zap.String("collection", r.collection),
			zap.Error(err),
		)
		return nil
	}

	metrics.RetrievedChunks.Observe(float64(len(matches)))
	logger.Debug("Retrieval completed",
		zap.String("collection", r.collection),
		zap.Int("matches", len(matches)),
	)

	return matches
}
