package monitor

import (
	"context"
	"sync"
	"time"
)

// Clock supplies the time the horizon check is measured against.
type Clock interface {
	Now(ctx context.Context) (time.Time, error)
}

// LocalClock reads the host clock.
type LocalClock struct{}

// Now returns the host time.
func (LocalClock) Now(context.Context) (time.Time, error) { return time.Now(), nil }

// ServerTimer is implemented by the reference service client.
type ServerTimer interface {
	ServerTime(ctx context.Context) (time.Time, error)
}

// ServerClock follows the reference service clock. It re-reads server time at most once per
// resync interval and extrapolates with the local monotonic clock in between.
type ServerClock struct {
	src    ServerTimer
	resync time.Duration

	mu       sync.Mutex
	offset   time.Duration
	lastSync time.Time
	local    func() time.Time
}

// NewServerClock builds a ServerClock; resync <= 0 queries the server on every call.
func NewServerClock(src ServerTimer, resync time.Duration) *ServerClock {
	return &ServerClock{src: src, resync: resync, local: time.Now}
}

// Now returns server time truncated to whole seconds.
func (c *ServerClock) Now(ctx context.Context) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	local := c.local()
	if c.lastSync.IsZero() || c.resync <= 0 || local.Sub(c.lastSync) >= c.resync {
		server, err := c.src.ServerTime(ctx)
		if err != nil {
			return time.Time{}, err
		}
		local = c.local()
		c.offset = server.Sub(local)
		c.lastSync = local
	}
	return local.Add(c.offset).Truncate(time.Second), nil
}
