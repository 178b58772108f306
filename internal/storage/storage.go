package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Store wraps the message log database. Two drivers are supported: "sqlite"
// for single-host deployments and "pgx" for a shared PostgreSQL instance.
type Store struct {
	db     *sql.DB
	driver string
}

// Message is one command received by the daemon and the reply it produced.
type Message struct {
	ID         string
	ReceivedAt time.Time
	Remote     string
	Text       string
	Command    string
	Reply      string
	Status     string
}

// Message statuses.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusUnknown = "unknown_command"
)

// Open connects to the database named by driver and dsn, verifies the
// connection, and ensures the schema exists.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case "sqlite":
		db, err = openSQLite(ctx, dsn)
	case "pgx":
		db, err = openPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.Bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Bootstrap creates tables/indexes if missing.
func (s *Store) Bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS message_log (
  id          TEXT PRIMARY KEY,
  received_at TEXT NOT NULL,
  remote      TEXT NOT NULL,
  text        TEXT NOT NULL,
  command     TEXT,
  reply       TEXT,
  status      TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS message_log_received_at_idx ON message_log(received_at);`,
		`CREATE INDEX IF NOT EXISTS message_log_command_status_idx ON message_log(command, status);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap %s: %w", s.driver, err)
		}
	}
	return nil
}

// Record inserts one message into the log.
func (s *Store) Record(ctx context.Context, m Message) error {
	q := s.rebind(`INSERT INTO message_log (id, received_at, remote, text, command, reply, status)
VALUES (?, ?, ?, ?, ?, ?, ?);`)
	_, err := s.db.ExecContext(ctx, q,
		m.ID,
		m.ReceivedAt.UTC().Format(time.RFC3339Nano),
		m.Remote,
		m.Text,
		m.Command,
		m.Reply,
		m.Status,
	)
	if err != nil {
		return fmt.Errorf("record message %s: %w", m.ID, err)
	}
	return nil
}

// Recent returns up to limit messages, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	q := s.rebind(`SELECT id, received_at, remote, text, command, reply, status
FROM message_log ORDER BY received_at DESC LIMIT ?;`)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m  Message
			ts string
		)
		if err := rows.Scan(&m.ID, &ts, &m.Remote, &m.Text, &m.Command, &m.Reply, &m.Status); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.ReceivedAt, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse received_at %q: %w", ts, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountByStatus returns message counts keyed by status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM message_log GROUP BY status;`)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for callers with bespoke queries.
func (s *Store) DB() *sql.DB { return s.db }

// rebind converts ? placeholders to $n for the pgx driver. SQLite takes
// ? natively.
func (s *Store) rebind(q string) string {
	if s.driver != "pgx" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
