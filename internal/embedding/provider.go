// Package embedding maps text to fixed-dimension unit vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/support-agent/backend/pkg/logger"
	"github.com/support-agent/backend/pkg/retry"
)

// ErrUnavailable means no embedding provider could be initialized. The
// pipeline cannot run without one, so callers treat it as fatal at
// startup.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Provider produces L2-normalized vectors. EmbedDocuments is batched,
// order-preserving and 1:1 with its input.
type Provider interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() string
	Dimension() int
}

const batchSize = 100

// OpenAIProvider implements Provider on the OpenAI embeddings API.
// Safe for concurrent use: the underlying client is stateless per call.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	dimension   int
	timeout     time.Duration
	retryConfig retry.Config
}

type Options struct {
	APIKey    string
	Dimension int
	Timeout   time.Duration
	BaseURL   string
}

func NewOpenAIProvider(model string, opts Options) (*OpenAIProvider, error) {
	if model == "" {
		return nil, fmt.Errorf("%w: no model configured", ErrUnavailable)
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", ErrUnavailable)
	}
	if opts.Dimension <= 0 {
		opts.Dimension = 1536
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	clientConfig := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = opts.BaseURL
	}

	retryConfig := retry.DefaultConfig()
	retryConfig.Logger = logger.GetLogger()

	logger.Info("Embedding provider initialized",
		zap.String("model", model),
		zap.Int("dimension", opts.Dimension),
	)

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		dimension:   opts.Dimension,
		timeout:     opts.Timeout,
		retryConfig: retryConfig,
	}, nil
}

func (p *OpenAIProvider) Model() string  { return p.model }
func (p *OpenAIProvider) Dimension() int { return p.dimension }

func (p *OpenAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := p.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}

	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(embeddings), len(texts))
	}

	logger.Debug("Documents embedded", zap.Int("count", len(embeddings)))

	return embeddings, nil
}

func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *OpenAIProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := retry.DoWithResult(ctx, p.retryConfig, func() (openai.EmbeddingResponse, error) {
		return p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(p.model),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vec := make([]float32, len(data.Embedding))
		copy(vec, data.Embedding)
		Normalize(vec)
		vectors[i] = vec
	}

	return vectors, nil
}

// Normalize scales vec to unit length in place so cosine distance and
// dot product are interchangeable. Zero vectors are left untouched.
func Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
