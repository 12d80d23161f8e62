// Package history persists one record per answered question so every
// answer path, including failures, leaves an auditable trace.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/support-agent/backend/pkg/logger"
)

type Store struct {
	db *sql.DB
}

// RetrievedChunk is the per-match slice of an interaction record.
type RetrievedChunk struct {
	ChunkID  string  `json:"chunk_id"`
	Filename string  `json:"filename"`
	Distance float64 `json:"distance"`
}

type Interaction struct {
	ID          string
	Query       string
	Collection  string
	Response    string
	Confidence  float64
	IsUncertain bool
	Escalated   bool
	Error       string
	Retrieved   []RetrievedChunk
	LatencyMS   int
	CreatedAt   time.Time
}

func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("History store initialized", zap.String("path", dbPath))

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS interactions (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		collection TEXT,
		response TEXT,
		confidence REAL,
		is_uncertain INTEGER NOT NULL DEFAULT 0,
		escalated INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		retrieved TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions(created_at);
	CREATE INDEX IF NOT EXISTS idx_interactions_escalated ON interactions(escalated);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

func (s *Store) LogInteraction(rec *Interaction) error {
	retrieved, err := json.Marshal(rec.Retrieved)
	if err != nil {
		return fmt.Errorf("failed to marshal retrieved chunks: %w", err)
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err = s.db.Exec(`
		INSERT INTO interactions
			(id, query, collection, response, confidence, is_uncertain, escalated, error, retrieved, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Query,
		rec.Collection,
		rec.Response,
		rec.Confidence,
		boolToInt(rec.IsUncertain),
		boolToInt(rec.Escalated),
		rec.Error,
		string(retrieved),
		rec.LatencyMS,
		rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}

	return nil
}

func (s *Store) Recent(limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, query, collection, response, confidence, is_uncertain, escalated, error, retrieved, latency_ms, created_at
		FROM interactions
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var records []Interaction
	for rows.Next() {
		var rec Interaction
		var isUncertain, escalated int
		var retrieved string
		var createdAt int64

		err := rows.Scan(
			&rec.ID,
			&rec.Query,
			&rec.Collection,
			&rec.Response,
			&rec.Confidence,
			&isUncertain,
			&escalated,
			&rec.Error,
			&retrieved,
			&rec.LatencyMS,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}

		rec.IsUncertain = isUncertain != 0
		rec.Escalated = escalated != 0
		rec.CreatedAt = time.Unix(createdAt, 0)
		if retrieved != "" {
			if err := json.Unmarshal([]byte(retrieved), &rec.Retrieved); err != nil {
				logger.Warn("Corrupt retrieved column", zap.String("id", rec.ID), zap.Error(err))
			}
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
