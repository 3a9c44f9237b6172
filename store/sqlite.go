// Package store persists tasks, categories, context entries and the AI
// artifact tables in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite for persistence.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database under basePath. Pass
// ":memory:" for an ephemeral store in tests.
func NewSQLiteStore(basePath string) (*SQLiteStore, error) {
	var dbPath string
	if basePath == ":memory:" {
		dbPath = ":memory:"
	} else {
		dbPath = filepath.Join(basePath, "tasksense.db")
		if err := os.MkdirAll(basePath, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		color TEXT NOT NULL DEFAULT '#3B82F6',
		icon TEXT NOT NULL DEFAULT 'folder',
		description TEXT NOT NULL DEFAULT '',
		usage_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT 'medium',
		status TEXT NOT NULL DEFAULT 'pending',
		category_id TEXT REFERENCES categories(id) ON DELETE SET NULL,
		due_date TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		completed_at TEXT,
		ai_enhanced INTEGER NOT NULL DEFAULT 0,
		ai_enhanced_description TEXT NOT NULL DEFAULT '',
		ai_estimated_duration TEXT NOT NULL DEFAULT '',
		ai_suggested_deadline TEXT,
		priority_score REAL NOT NULL DEFAULT 0.5,
		ai_insights TEXT,                   -- JSON object
		tags TEXT,                          -- JSON array
		estimated_duration INTEGER,         -- minutes
		actual_duration INTEGER             -- minutes
	);

	CREATE TABLE IF NOT EXISTS context_entries (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		source_type TEXT NOT NULL DEFAULT 'manual',
		timestamp TEXT NOT NULL,
		is_processed INTEGER NOT NULL DEFAULT 0,
		processed_at TEXT,
		extracted_keywords TEXT,            -- JSON array
		sentiment_score REAL NOT NULL DEFAULT 0,
		urgency_indicators TEXT,            -- JSON array
		deadline_mentions TEXT,             -- JSON array
		processed_insights TEXT,            -- JSON object
		source_metadata TEXT                -- JSON object
	);

	CREATE TABLE IF NOT EXISTS task_context_relations (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		context_entry_id TEXT NOT NULL REFERENCES context_entries(id) ON DELETE CASCADE,
		relevance_score REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		UNIQUE(task_id, context_entry_id)
	);

	CREATE TABLE IF NOT EXISTS ai_insights (
		id TEXT PRIMARY KEY,
		insight_type TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		data TEXT,                          -- JSON object
		confidence_score REAL NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		expires_at TEXT
	);

	CREATE TABLE IF NOT EXISTS context_analyses (
		id TEXT PRIMARY KEY,
		analysis_date TEXT NOT NULL,
		context_summary TEXT NOT NULL DEFAULT '',
		key_themes TEXT,                    -- JSON array
		urgency_indicators TEXT,            -- JSON array
		suggested_actions TEXT,             -- JSON array
		productivity_score REAL NOT NULL DEFAULT 0,
		focus_areas TEXT                    -- JSON array
	);

	CREATE TABLE IF NOT EXISTS productivity_metrics (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL UNIQUE,          -- YYYY-MM-DD
		tasks_completed INTEGER NOT NULL DEFAULT 0,
		tasks_created INTEGER NOT NULL DEFAULT 0,
		average_completion_time REAL NOT NULL DEFAULT 0,
		productivity_score REAL NOT NULL DEFAULT 0,
		focus_time REAL NOT NULL DEFAULT 0,
		distraction_events INTEGER NOT NULL DEFAULT 0,
		peak_productivity_hour INTEGER
	);

	CREATE TABLE IF NOT EXISTS ai_processing_logs (
		id TEXT PRIMARY KEY,
		operation_type TEXT NOT NULL,
		input_data TEXT,                    -- JSON object
		output_data TEXT,                   -- JSON object
		processing_time REAL NOT NULL DEFAULT 0,
		success INTEGER NOT NULL DEFAULT 1,
		error_message TEXT NOT NULL DEFAULT '',
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_tasks_priority ON tasks(priority);
	CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks(category_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at);
	CREATE INDEX IF NOT EXISTS idx_contexts_source ON context_entries(source_type);
	CREATE INDEX IF NOT EXISTS idx_contexts_timestamp ON context_entries(timestamp);
	CREATE INDEX IF NOT EXISTS idx_insights_type ON ai_insights(insight_type);
	CREATE INDEX IF NOT EXISTS idx_logs_operation ON ai_processing_logs(operation_type);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle for advanced queries in tests.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// === Column helpers ===

func timeToDB(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func timePtrToDB(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timeToDB(*t)
}

func timeFromDB(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func timePtrFromDB(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := timeFromDB(ns.String)
	return &t
}

// jsonToDB marshals v for a TEXT column. Nil and empty collections are
// stored as NULL so the round trip yields nil again.
func jsonToDB(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if len(x) == 0 {
			return nil, nil
		}
	case []string:
		if len(x) == 0 {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json column: %w", err)
	}
	return string(b), nil
}

func jsonMapFromDB(ns sql.NullString) map[string]any {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(ns.String), &m); err != nil {
		return nil
	}
	return m
}

func jsonListFromDB(ns sql.NullString) []string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var l []string
	if err := json.Unmarshal([]byte(ns.String), &l); err != nil {
		return nil
	}
	return l
}

func intPtrFromDB(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

func intPtrToDB(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
