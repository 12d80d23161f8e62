// Package redis caches query embeddings so repeated questions skip the
// embedding API round trip.
package redis

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/support-agent/backend/internal/metrics"
	"github.com/support-agent/backend/pkg/logger"
)

type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = time.Hour
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// GetEmbedding is nil-safe so the retriever can hold an optional cache.
func (c *Client) GetEmbedding(ctx context.Context, text string) ([]float32, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, embeddingKey(text)).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.WithLabelValues("embedding").Inc()
		return nil, false
	}
	if err != nil {
		logger.Warn("Embedding cache read failed", zap.Error(err))
		return nil, false
	}

	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		logger.Warn("Embedding cache entry corrupt", zap.Error(err))
		return nil, false
	}

	metrics.CacheHits.WithLabelValues("embedding").Inc()
	return embedding, true
}

func (c *Client) SetEmbedding(ctx context.Context, text string, embedding []float32) {
	if c == nil {
		return
	}

	data, err := json.Marshal(embedding)
	if err != nil {
		logger.Warn("Failed to marshal embedding for cache", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, embeddingKey(text), data, c.ttl).Err(); err != nil {
		logger.Warn("Embedding cache write failed", zap.Error(err))
	}
}

func embeddingKey(text string) string {
	return fmt.Sprintf("embedding:%x", md5.Sum([]byte(text)))
}
