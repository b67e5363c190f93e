package monitor

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingTimer struct {
	calls  int
	server time.Time
	err    error
}

func (c *countingTimer) ServerTime(context.Context) (time.Time, error) {
	c.calls++
	return c.server, c.err
}

func TestServerClockAppliesOffsetBetweenResyncs(t *testing.T) {
	local := time.Unix(1_000, 0)
	src := &countingTimer{server: time.Unix(1_100, 400_000_000)}
	clock := NewServerClock(src, 30*time.Second)
	clock.local = func() time.Time { return local }

	got, err := clock.Now(context.Background())
	if err != nil {
		t.Fatalf("Now returned error: %v", err)
	}
	if !got.Equal(time.Unix(1_100, 0)) {
		t.Fatalf("expected truncated server time, got %s", got)
	}

	local = local.Add(10 * time.Second)
	got, _ = clock.Now(context.Background())
	if !got.Equal(time.Unix(1_110, 0)) {
		t.Fatalf("expected extrapolated time, got %s", got)
	}
	if src.calls != 1 {
		t.Fatalf("expected a single sync inside the resync interval, got %d", src.calls)
	}

	local = local.Add(30 * time.Second)
	src.server = time.Unix(1_200, 0)
	got, _ = clock.Now(context.Background())
	if src.calls != 2 {
		t.Fatalf("expected resync after interval, got %d calls", src.calls)
	}
	if !got.Equal(time.Unix(1_200, 0)) {
		t.Fatalf("expected new server time after resync, got %s", got)
	}
}

func TestServerClockPropagatesErrors(t *testing.T) {
	src := &countingTimer{err: errors.New("teapot")}
	clock := NewServerClock(src, 0)
	if _, err := clock.Now(context.Background()); err == nil {
		t.Fatalf("expected error from server timer")
	}
}
