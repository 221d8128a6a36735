// Package chatlog records answered questions in SQLite.
package chatlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Lllllllleong/documentqa/internal/models"
)

// UnknownFileName is recorded when a question has no associated file.
const UnknownFileName = "Unknown"

// SQLiteLog stores chat log entries in a SQLite database.
type SQLiteLog struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteLog opens or creates the database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteLog(dbPath string) (*SQLiteLog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteLog{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_name TEXT NOT NULL DEFAULT 'Unknown',
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chat_logs_timestamp ON chat_logs(timestamp);
	`
	_, err := db.Exec(schema)
	return err
}

// Record inserts an entry and returns it with its id and timestamp set.
func (l *SQLiteLog) Record(ctx context.Context, fileName, question, answer string) (*models.ChatLogEntry, error) {
	if strings.TrimSpace(fileName) == "" {
		fileName = UnknownFileName
	}
	entry := &models.ChatLogEntry{
		FileName:  fileName,
		Question:  question,
		Answer:    answer,
		Timestamp: l.now().UTC(),
	}

	res, err := l.db.ExecContext(ctx,
		`INSERT INTO chat_logs (file_name, question, answer, timestamp) VALUES (?, ?, ?, ?)`,
		entry.FileName, entry.Question, entry.Answer, entry.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat log: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read chat log id: %w", err)
	}
	return entry, nil
}

// List returns up to limit entries, newest first. A limit of zero or less
// returns every entry.
func (l *SQLiteLog) List(ctx context.Context, limit int) ([]models.ChatLogEntry, error) {
	query := `SELECT id, file_name, question, answer, timestamp FROM chat_logs ORDER BY timestamp DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat logs: %w", err)
	}
	defer rows.Close()

	entries := []models.ChatLogEntry{}
	for rows.Next() {
		var e models.ChatLogEntry
		if err := rows.Scan(&e.ID, &e.FileName, &e.Question, &e.Answer, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan chat log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}
