package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mlserve/serving"
)

// Journal records every model load attempt in SQLite.
type Journal struct {
	database *sql.DB
}

// LoadRecord is one row of the model_loads table.
type LoadRecord struct {
	ModelID    string    `json:"model_id"`
	Framework  string    `json:"framework,omitempty"`
	Adapter    string    `json:"adapter,omitempty"`
	Features   int       `json:"features"`
	DurationMs float64   `json:"duration_ms"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// Open opens (or creates) the journal database at path in WAL mode.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	database, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	database.SetMaxOpenConns(4)

	query := `
    CREATE TABLE IF NOT EXISTS model_loads (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_id TEXT NOT NULL,
        framework TEXT,
        adapter TEXT,
        features INTEGER DEFAULT 0,
        duration_ms REAL DEFAULT 0,
        success INTEGER NOT NULL,
        error TEXT,
        loaded_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_model_loads_model ON model_loads(model_id, loaded_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, err
	}
	return &Journal{database: database}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.database == nil {
		return nil
	}
	return j.database.Close()
}

// RecordLoad implements serving.LoadRecorder.
func (j *Journal) RecordLoad(ctx context.Context, event serving.LoadEvent) error {
	if j == nil || j.database == nil {
		return errors.New("database not initialized")
	}
	var errText sql.NullString
	if event.Err != nil {
		errText = sql.NullString{String: event.Err.Error(), Valid: true}
	}
	_, err := j.database.ExecContext(ctx, `
        INSERT INTO model_loads (model_id, framework, adapter, features, duration_ms, success, error, loaded_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ModelID, event.Framework, event.Adapter, event.Features,
		float64(event.Duration.Microseconds())/1000, event.Err == nil, errText, event.At.UTC())
	return err
}

// History returns the latest load attempts for a model, newest first.
func (j *Journal) History(ctx context.Context, modelID string, limit int) ([]LoadRecord, error) {
	if j == nil || j.database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.database.QueryContext(ctx, `
        SELECT model_id, framework, adapter, features, duration_ms, success, error, loaded_at
        FROM model_loads
        WHERE model_id = ?
        ORDER BY loaded_at DESC, id DESC
        LIMIT ?`, modelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]LoadRecord, 0)
	for rows.Next() {
		var r LoadRecord
		var framework, adapter, errText sql.NullString
		if err := rows.Scan(&r.ModelID, &framework, &adapter, &r.Features, &r.DurationMs, &r.Success, &errText, &r.LoadedAt); err != nil {
			return nil, err
		}
		r.Framework = framework.String
		r.Adapter = adapter.String
		r.Error = errText.String
		records = append(records, r)
	}
	return records, rows.Err()
}
