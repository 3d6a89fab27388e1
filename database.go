package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite leaderboard
type DB struct {
	conn *sql.DB
}

// ScoreRow is one finished session on the leaderboard
type ScoreRow struct {
	SessionID string    `json:"session_id"`
	Username  string    `json:"username"`
	Mode      string    `json:"mode"`
	Score     int       `json:"score"`
	Duration  float64   `json:"duration"` // seconds
	CreatedAt time.Time `json:"created_at"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL,
		score INTEGER NOT NULL DEFAULT 0,
		duration REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT,
		event_type TEXT NOT NULL,
		peer TEXT,
		data TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scores_mode ON scores(mode, score DESC);
	CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("leaderboard: migration error: %v", err)
	}
	return err
}

// RecordScore stores the result of a finished session
func (db *DB) RecordScore(r SessionResult) error {
	_, err := db.conn.Exec(
		`INSERT INTO scores (session_id, username, mode, score, duration, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Username, r.Mode.String(), r.Score, r.Duration.Seconds(), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record score: %w", err)
	}
	return nil
}

// TopScores returns the best scores of a mode, highest first
func (db *DB) TopScores(mode GameMode, limit int) ([]ScoreRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := db.conn.Query(`
		SELECT session_id, username, mode, score, duration, created_at
		FROM scores WHERE mode = ?
		ORDER BY score DESC, created_at ASC
		LIMIT ?
	`, mode.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ScoreRow
	for rows.Next() {
		var r ScoreRow
		var created string
		if err := rows.Scan(&r.SessionID, &r.Username, &r.Mode, &r.Score, &r.Duration, &created); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, created)
		result = append(result, r)
	}
	return result, rows.Err()
}

// CountEvents returns how many events of a type a session logged
func (db *DB) CountEvents(sessionID, eventType string) (int, error) {
	var n int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM session_events WHERE session_id = ? AND event_type = ?",
		sessionID, eventType,
	).Scan(&n)
	return n, err
}
