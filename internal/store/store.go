package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'teacher',
		password_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		question_text TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '',
		answer TEXT NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		has_geometry INTEGER NOT NULL DEFAULT 0,
		geometry_svg TEXT NOT NULL DEFAULT '',
		geometry_tikz TEXT NOT NULL DEFAULT '',
		knowledge_points TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT 'medium',
		question_type TEXT NOT NULL DEFAULT 'solve',
		source TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		ai_generated INTEGER NOT NULL DEFAULT 1,
		is_public INTEGER NOT NULL DEFAULT 0,
		created_by TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS question_embeddings (
		question_id TEXT PRIMARY KEY,
		embedding TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS papers (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		template_type TEXT NOT NULL DEFAULT 'custom',
		total_score INTEGER NOT NULL DEFAULT 0,
		time_limit INTEGER NOT NULL DEFAULT 0,
		tags TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT 'math',
		grade_level TEXT NOT NULL DEFAULT 'high',
		created_by TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS paper_questions (
		id TEXT PRIMARY KEY,
		paper_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 1,
		score INTEGER NOT NULL DEFAULT 0,
		custom_label TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (paper_id) REFERENCES papers(id),
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS question_reviews (
		id TEXT PRIMARY KEY,
		question_id TEXT NOT NULL,
		reviewer_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		comment TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS ingest_items (
		id TEXT PRIMARY KEY,
		file_name TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		content BLOB NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		result TEXT NOT NULL DEFAULT '',
		question_id TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// encodeJSON marshals a slice column. Empty slices become the empty string
// so the schema defaults stay meaningful.
func encodeJSON(v []string) (string, error) {
	if len(v) == 0 {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeJSON(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}
