package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// pruneEvery is how many writes pass between retention sweeps.
const pruneEvery = 100

// SQLiteSink stores event lines in a local SQLite file and keeps at most
// maxRows of them.
type SQLiteSink struct {
	mu      sync.Mutex
	db      *sql.DB
	maxRows int
	writes  int
}

func OpenSQLite(path string, maxRows int) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite mkdir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS event_log(id INTEGER PRIMARY KEY AUTOINCREMENT, session TEXT NOT NULL, seq INTEGER NOT NULL, level TEXT NOT NULL, line TEXT NOT NULL, ts INTEGER NOT NULL); CREATE INDEX IF NOT EXISTS idx_event_log_session ON event_log(session);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite init schema: %w", err)
	}
	return &SQLiteSink{db: db, maxRows: maxRows}, nil
}

func (s *SQLiteSink) Write(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO event_log(session, seq, level, line, ts) VALUES(?,?,?,?,?)`,
		e.Session, int64(e.Seq), string(e.Level), e.Line, e.Time.UnixMilli()); err != nil {
		return err
	}
	s.writes++
	if s.maxRows > 0 && s.writes%pruneEvery == 0 {
		return s.prune(ctx)
	}
	return nil
}

// Prune drops everything but the newest maxRows lines.
func (s *SQLiteSink) Prune(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prune(ctx)
}

func (s *SQLiteSink) prune(ctx context.Context) error {
	if s.maxRows <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM event_log WHERE id NOT IN (SELECT id FROM event_log ORDER BY id DESC LIMIT ?)`, s.maxRows)
	return err
}

// Recent returns up to limit persisted lines, oldest first.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT session, seq, level, line, ts FROM event_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			seq   int64
			level string
			ts    int64
		)
		if err := rows.Scan(&e.Session, &seq, &level, &e.Line, &ts); err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		e.Level = Level(level)
		e.Time = time.UnixMilli(ts)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(out)
	return out, nil
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func reverse(entries []Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
