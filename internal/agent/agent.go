// Package agent composes retrieval, confidence scoring and text
// generation into a single answer operation.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/support-agent/backend/internal/history"
	"github.com/support-agent/backend/internal/metrics"
	"github.com/support-agent/backend/internal/retrieval"
	"github.com/support-agent/backend/internal/vector"
	"github.com/support-agent/backend/pkg/logger"
)

const retrievalTopK = 5

const contextualInstruction = `You are a helpful technical support assistant. Answer the user's question based on the following documentation excerpts. If the answer is not in the documentation, say so.

Documentation:
%s`

const genericInstruction = "You are a helpful technical support assistant. Answer the user's question to the best of your ability."

// Completer is the external text-generation capability.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

type Agent struct {
	retriever *retrieval.Retriever
	scorer    retrieval.Scorer
	completer Completer
	history   *history.Store
}

// Answer is the structured response to one question. The assessment
// fields are retrieval-derived and valid even when generation failed.
type Answer struct {
	Text        string              `json:"response"`
	References  []vector.QueryMatch `json:"references"`
	Confidence  float64             `json:"confidence"`
	IsUncertain bool                `json:"is_uncertain"`
	Escalated   bool                `json:"escalated"`
}

func New(retriever *retrieval.Retriever, scorer retrieval.Scorer, completer Completer, store *history.Store) *Agent {
	return &Agent{
		retriever: retriever,
		scorer:    scorer,
		completer: completer,
		history:   store,
	}
}

// Answer retrieves context for the question, scores it, generates a
// response and records the interaction. Generation failures surface as a
// visible error text in the answer, never as a panic or a lost record.
func (a *Agent) Answer(ctx context.Context, question string) *Answer {
	start := time.Now()

	matches := a.retriever.Search(ctx, question, retrievalTopK)
	assessment := a.scorer.Assess(matches)

	systemPrompt := buildSystemPrompt(matches)

	text, genErr := a.completer.Complete(ctx, systemPrompt, question)
	if genErr != nil {
		logger.Error("Generation failed", zap.Error(genErr))
		text = fmt.Sprintf("Error generating response: %v", genErr)
	}

	answer := &Answer{
		Text:        text,
		References:  matches,
		Confidence:  assessment.Score,
		IsUncertain: assessment.IsUncertain,
		Escalated:   assessment.Escalated,
	}

	a.record(question, answer, genErr, time.Since(start))

	return answer
}

func buildSystemPrompt(matches []vector.QueryMatch) string {
	if len(matches) == 0 {
		return genericInstruction
	}

	passages := make([]string, len(matches))
	for i, m := range matches {
		passages[i] = fmt.Sprintf("[%s - chunk %d]\n%s", m.Metadata.Filename, m.Metadata.ChunkIndex+1, m.Text)
	}

	return fmt.Sprintf(contextualInstruction, strings.Join(passages, "\n\n---\n\n"))
}

// record writes the interaction to the history store and the structured
// log. Every answer path lands here, including generation failures.
func (a *Agent) record(question string, answer *Answer, genErr error, latency time.Duration) {
	status := "ok"
	errText := ""
	if genErr != nil {
		status = "generation_error"
		errText = genErr.Error()
	}

	metrics.QueryTotal.WithLabelValues(status).Inc()
	metrics.QueryDuration.Observe(latency.Seconds())
	metrics.ConfidenceScore.Observe(answer.Confidence)
	if answer.Escalated {
		metrics.Escalations.Inc()
	}

	logger.Info("Question answered",
		zap.String("collection", a.retriever.Collection()),
		zap.Float64("confidence", answer.Confidence),
		zap.Bool("is_uncertain", answer.IsUncertain),
		zap.Bool("escalated", answer.Escalated),
		zap.Int("references", len(answer.References)),
		zap.String("status", status),
		zap.Duration("latency", latency),
	)

	if a.history == nil {
		return
	}

	retrieved := make([]history.RetrievedChunk, len(answer.References))
	for i, m := range answer.References {
		retrieved[i] = history.RetrievedChunk{
			ChunkID:  m.ID,
			Filename: m.Metadata.Filename,
			Distance: m.Distance,
		}
	}

	rec := &history.Interaction{
		ID:          uuid.New().String(),
		Query:       question,
		Collection:  a.retriever.Collection(),
		Response:    answer.Text,
		Confidence:  answer.Confidence,
		IsUncertain: answer.IsUncertain,
		Escalated:   answer.Escalated,
		Error:       errText,
		Retrieved:   retrieved,
		LatencyMS:   int(latency.Milliseconds()),
	}

	if err := a.history.LogInteraction(rec); err != nil {
		logger.Error("Failed to log interaction", zap.Error(err))
	}
}
