package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tweetcompare/internal/amqp"
	"tweetcompare/internal/core"
	"tweetcompare/internal/log"
)

func event(yearA, yearB, month int) *amqp.ComparisonViewedMessage {
	return amqp.NewComparisonViewedMessage(core.ComparisonRequest{YearA: yearA, YearB: yearB, Month: month}, 1, 2)
}

func TestHandleAndTop(t *testing.T) {
	w := NewEventsWorker(log.New(log.Config{Output: &bytes.Buffer{}}))
	ctx := context.Background()

	for _, msg := range []*amqp.ComparisonViewedMessage{
		event(2020, 2022, 1),
		event(2021, 2022, 3),
		event(2020, 2022, 1),
		event(2019, 2022, 3),
	} {
		if err := w.HandleComparisonViewed(ctx, msg); err != nil {
			t.Fatalf("HandleComparisonViewed: %v", err)
		}
	}

	if got := w.Total(); got != 4 {
		t.Fatalf("Total() = %d, want 4", got)
	}

	want := []SelectionCount{
		{Request: core.ComparisonRequest{YearA: 2020, YearB: 2022, Month: 1}, Views: 2},
		{Request: core.ComparisonRequest{YearA: 2019, YearB: 2022, Month: 3}, Views: 1},
	}
	if diff := cmp.Diff(want, w.Top(2)); diff != "" {
		t.Fatalf("Top(2) mismatch (-want +got):\n%s", diff)
	}
	if got := len(w.Top(-1)); got != 3 {
		t.Fatalf("Top(-1) returned %d selections, want 3", got)
	}
}

func TestHandleRejectsInvalidEvents(t *testing.T) {
	w := NewEventsWorker(nil)

	if err := w.HandleComparisonViewed(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil event")
	}
	err := w.HandleComparisonViewed(context.Background(), event(2020, 2022, 0))
	if !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
	if w.Total() != 0 {
		t.Fatal("invalid events must not be counted")
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Contains(s string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Contains(b.buf.Bytes(), []byte(s))
}

func TestReportLogsSummary(t *testing.T) {
	out := &lockedBuffer{}
	w := NewEventsWorker(log.New(log.Config{Level: slog.LevelInfo, Output: out}))
	_ = w.HandleComparisonViewed(context.Background(), event(2020, 2022, 5))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Report(ctx, 5*time.Millisecond, 3)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for !out.Contains("Comparison views") {
		select {
		case <-deadline:
			cancel()
			t.Fatal("summary was not logged")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if !out.Contains("2020-2022-5") {
		t.Fatal("expected selection key in summary")
	}
}
