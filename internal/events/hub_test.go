package events

import (
	"fmt"
	"testing"
	"time"
)

func TestSubscribeReceivesPublished(t *testing.T) {
	t.Parallel()

	h := NewHub(8)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(KindDispatched, "conn-1", map[string]string{"command": "status"})

	select {
	case ev := <-ch:
		if ev.Kind != KindDispatched {
			t.Fatalf("expected %s, got %s", KindDispatched, ev.Kind)
		}
		if ev.Conn != "conn-1" {
			t.Fatalf("expected conn-1, got %s", ev.Conn)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSinceReturnsNewerThanCursor(t *testing.T) {
	t.Parallel()

	h := NewHub(8)
	for i := 0; i < 5; i++ {
		h.Publish(KindConnOpened, fmt.Sprintf("c%d", i), nil)
	}

	evs := h.Since(3)
	if len(evs) != 2 {
		t.Fatalf("expected 2 events after seq 3, got %d", len(evs))
	}
	if evs[0].Seq != 4 || evs[1].Seq != 5 {
		t.Fatalf("expected seqs [4 5], got [%d %d]", evs[0].Seq, evs[1].Seq)
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	t.Parallel()

	h := NewHub(3)
	for i := 0; i < 5; i++ {
		h.Publish(KindConnClosed, "", nil)
	}

	evs := h.Since(0)
	if len(evs) != 3 {
		t.Fatalf("expected ring capacity 3, got %d", len(evs))
	}
	if evs[0].Seq != 3 {
		t.Fatalf("expected oldest surviving seq 3, got %d", evs[0].Seq)
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	t.Parallel()

	h := NewHub(4)
	_, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// 200 > channel buffer; Publish must not stall.
		for i := 0; i < 200; i++ {
			h.Publish(KindDispatched, "", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}

func TestCancelClosesChannel(t *testing.T) {
	t.Parallel()

	h := NewHub(4)
	ch, cancel := h.Subscribe()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after cancel")
	}
}
