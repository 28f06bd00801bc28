package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/careerbot/internal/domain"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Repository = (*SQLiteStore)(nil)

// NewSQLite opens or creates the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS conversation_events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		transport TEXT NOT NULL,
		direction TEXT NOT NULL,
		mode TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_user ON conversation_events(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_events_created ON conversation_events(created_at);

	CREATE TABLE IF NOT EXISTS inventory_results (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		top_json TEXT NOT NULL,
		scores_json TEXT NOT NULL,
		completed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_results_user ON inventory_results(user_id, completed_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordEvent appends one conversation event. A missing ID or timestamp is filled in.
func (s *SQLiteStore) RecordEvent(ctx context.Context, ev domain.ConversationEvent) error {
	if ev.ID == "" {
		ev.ID = ulid.Make().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}

	query := `
	INSERT INTO conversation_events (id, user_id, transport, direction, mode, text, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	err := withBusyRetry(ctx, "record event", func() error {
		_, err := s.db.ExecContext(ctx, query,
			ev.ID, ev.UserID, ev.Transport, string(ev.Direction),
			ev.Mode, ev.Text, ev.CreatedAt.UnixMilli(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert conversation event: %w", err)
	}
	return nil
}

// RecordResult stores a completed inventory. A missing ID or timestamp is filled in.
func (s *SQLiteStore) RecordResult(ctx context.Context, res domain.InventoryResult) error {
	if res.ID == "" {
		res.ID = ulid.Make().String()
	}
	if res.CompletedAt.IsZero() {
		res.CompletedAt = s.now()
	}
	top := res.Top
	if top == nil {
		top = []string{}
	}
	topJSON, err := json.Marshal(top)
	if err != nil {
		return fmt.Errorf("marshal top categories: %w", err)
	}
	scores := res.Scores
	if scores == nil {
		scores = map[string]int{}
	}
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}

	query := `
	INSERT INTO inventory_results (id, user_id, kind, top_json, scores_json, completed_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	err = withBusyRetry(ctx, "record result", func() error {
		_, err := s.db.ExecContext(ctx, query,
			res.ID, res.UserID, res.Kind.String(),
			string(topJSON), string(scoresJSON), res.CompletedAt.UnixMilli(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert inventory result: %w", err)
	}
	return nil
}

// ListResults returns up to limit results for userID, newest first.
func (s *SQLiteStore) ListResults(ctx context.Context, userID string, limit int) ([]domain.InventoryResult, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, user_id, kind, top_json, scores_json, completed_at
		FROM inventory_results WHERE user_id = ?
		ORDER BY completed_at DESC, id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query inventory results: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close inventory result rows", "error", closeErr)
		}
	}()

	results := []domain.InventoryResult{}
	for rows.Next() {
		var (
			res                      domain.InventoryResult
			kind, topJSON, scoreJSON string
			completedAt              int64
		)
		if err := rows.Scan(&res.ID, &res.UserID, &kind, &topJSON, &scoreJSON, &completedAt); err != nil {
			return nil, fmt.Errorf("scan inventory result row: %w", err)
		}
		if res.Kind, err = domain.ParseInventoryKind(kind); err != nil {
			return nil, fmt.Errorf("decode result %s: %w", res.ID, err)
		}
		if err := json.Unmarshal([]byte(topJSON), &res.Top); err != nil {
			return nil, fmt.Errorf("decode result %s top: %w", res.ID, err)
		}
		if err := json.Unmarshal([]byte(scoreJSON), &res.Scores); err != nil {
			return nil, fmt.Errorf("decode result %s scores: %w", res.ID, err)
		}
		res.CompletedAt = time.UnixMilli(completedAt)
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory results: %w", err)
	}
	return results, nil
}

// CleanupEvents removes conversation events older than olderThan.
func (s *SQLiteStore) CleanupEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	threshold := s.now().Add(-olderThan).UnixMilli()
	var affected int64
	err := withBusyRetry(ctx, "cleanup events", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM conversation_events WHERE created_at < ?`, threshold)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("cleanup conversation events: %w", err)
	}
	return affected, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
