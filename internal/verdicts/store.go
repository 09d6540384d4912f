// Package verdicts persists compatibility verdicts.
package verdicts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sahtech/sahtech-ai-agent/internal/rules"
	"github.com/sahtech/sahtech-ai-agent/internal/tools"
)

// Record is one persisted verdict.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Barcode   string    `json:"barcode"`
	Product   string    `json:"product"`
	Suitable  bool      `json:"suitable"`
	Issues    []string  `json:"issues"`
	CreatedAt time.Time `json:"created_at"`
}

// Store handles verdict persistence with a SQLite backend.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the verdict database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS verdicts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		barcode TEXT NOT NULL,
		product TEXT NOT NULL,
		suitable INTEGER NOT NULL,
		issues_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_verdicts_user_id ON verdicts(user_id);
	CREATE INDEX IF NOT EXISTS idx_verdicts_created_at ON verdicts(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// NewID generates a new UUIDv7.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		return uuid.New().String()
	}
	return id.String()
}

// Save implements [tools.Sink]: it records the verdict for the session's
// user/product pairing.
func (s *Store) Save(ctx context.Context, sess *tools.Session, v *rules.Verdict) error {
	rec := Record{
		Suitable:  v.Suitable,
		Issues:    v.Issues,
		CreatedAt: time.Now(),
	}
	if sess != nil {
		if sess.Profile != nil {
			rec.UserID = sess.Profile.UserID
		}
		if sess.Product != nil {
			rec.Barcode = sess.Product.Barcode
			rec.Product = sess.Product.Name
		}
	}
	return s.Insert(ctx, &rec)
}

// Insert persists a record, assigning an ID when absent.
func (s *Store) Insert(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	issues, err := json.Marshal(rec.Issues)
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verdicts (id, user_id, barcode, product, suitable, issues_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Barcode, rec.Product, rec.Suitable, string(issues),
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert verdict: %w", err)
	}

	return nil
}

// Recent returns up to limit verdicts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, barcode, product, suitable, issues_json, created_at
		FROM verdicts
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var issuesJSON, createdAt string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Barcode, &rec.Product, &rec.Suitable, &issuesJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		if err := json.Unmarshal([]byte(issuesJSON), &rec.Issues); err != nil {
			return nil, fmt.Errorf("unmarshal issues: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			rec.CreatedAt = t
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}
