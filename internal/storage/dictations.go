package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Dictation is one recorded transcription attempt, failed or not.
type Dictation struct {
	ID        int64
	CreatedAt time.Time

	Provider string
	Model    string
	Language string

	DurationMs int64
	LatencyMs  int64

	Text      string
	WordCount int

	Success      bool
	ErrorMessage string
}

// Insert stores one dictation and fills in its ID.
func (db *DB) Insert(d *Dictation) error {
	res, err := db.conn.Exec(`
		INSERT INTO dictations (
			provider, model, language, duration_ms, latency_ms,
			text, word_count, success, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Provider, d.Model, d.Language, d.DurationMs, d.LatencyMs,
		d.Text, d.WordCount, d.Success, d.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert dictation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	d.ID = id
	return nil
}

// Recent returns the newest dictations, newest first.
func (db *DB) Recent(limit int) ([]Dictation, error) {
	rows, err := db.conn.Query(`
		SELECT id, created_at, provider, model, language,
		       duration_ms, latency_ms, text, word_count, success, error_message
		FROM dictations
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query dictations: %w", err)
	}
	defer rows.Close()

	var out []Dictation
	for rows.Next() {
		var d Dictation
		var errMsg sql.NullString
		if err := rows.Scan(
			&d.ID, &d.CreatedAt, &d.Provider, &d.Model, &d.Language,
			&d.DurationMs, &d.LatencyMs, &d.Text, &d.WordCount, &d.Success, &errMsg,
		); err != nil {
			return nil, fmt.Errorf("scan dictation: %w", err)
		}
		d.ErrorMessage = errMsg.String
		out = append(out, d)
	}
	return out, rows.Err()
}

// Stats summarizes the history grouped by provider.
type Stats struct {
	Provider     string
	Count        int
	Words        int
	Failures     int
	AvgLatencyMs float64
}

// ProviderStats aggregates the full history per provider, busiest first.
func (db *DB) ProviderStats() ([]Stats, error) {
	rows, err := db.conn.Query(`
		SELECT provider,
		       COUNT(*),
		       COALESCE(SUM(word_count), 0),
		       SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END),
		       COALESCE(AVG(latency_ms), 0)
		FROM dictations
		GROUP BY provider
		ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var out []Stats
	for rows.Next() {
		var s Stats
		if err := rows.Scan(&s.Provider, &s.Count, &s.Words, &s.Failures, &s.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Prune deletes dictations older than the retention window and returns how
// many were removed.
func (db *DB) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format("2006-01-02 15:04:05")
	res, err := db.conn.Exec(`DELETE FROM dictations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune dictations: %w", err)
	}
	return res.RowsAffected()
}
