package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "messages.db")
	s, err := Open(context.Background(), "sqlite", dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenBootstrapsSchema(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)

	var name string
	err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='message_log';").Scan(&name)
	if err != nil {
		t.Fatalf("message_log missing: %v", err)
	}
}

func TestRecordAndRecent(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	msgs := []Message{
		{ID: "m1", ReceivedAt: base, Remote: "10.0.0.5:4410", Text: "status", Command: "status", Reply: "ok", Status: StatusOK},
		{ID: "m2", ReceivedAt: base.Add(time.Second), Remote: "10.0.0.5:4411", Text: "frobnicate", Command: "", Reply: "unknown command", Status: StatusUnknown},
		{ID: "m3", ReceivedAt: base.Add(2 * time.Second), Remote: "10.0.0.6:8812", Text: "quit", Command: "quit", Reply: "bye", Status: StatusOK},
	}
	for _, m := range msgs {
		if err := s.Record(ctx, m); err != nil {
			t.Fatalf("Record %s: %v", m.ID, err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].ID != "m3" || got[1].ID != "m2" {
		t.Fatalf("expected newest first [m3 m2], got [%s %s]", got[0].ID, got[1].ID)
	}
	if !got[0].ReceivedAt.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("received_at round-trip mismatch: %v", got[0].ReceivedAt)
	}
}

func TestCountByStatus(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	now := time.Now()
	for i, status := range []string{StatusOK, StatusOK, StatusError, StatusUnknown} {
		m := Message{
			ID:         string(rune('a' + i)),
			ReceivedAt: now,
			Remote:     "127.0.0.1:9",
			Text:       "x",
			Status:     status,
		}
		if err := s.Record(ctx, m); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	counts, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[StatusOK] != 2 || counts[StatusError] != 1 || counts[StatusUnknown] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), "oracle", "whatever"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestRebindPostgresPlaceholders(t *testing.T) {
	t.Parallel()

	s := &Store{driver: "pgx"}
	got := s.rebind("INSERT INTO t (a, b) VALUES (?, ?);")
	want := "INSERT INTO t (a, b) VALUES ($1, $2);"
	if got != want {
		t.Fatalf("rebind: got %q, want %q", got, want)
	}
}
