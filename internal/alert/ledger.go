package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"pairwatch/internal/signal"
)

// Ledger keeps the most recent alerts in memory and serves them as JSON for debugging.
type Ledger struct {
	mu     sync.Mutex
	limit  int
	alerts []signal.Alert
}

// NewLedger returns a ledger holding at most limit alerts, oldest evicted first.
// A limit <= 0 keeps everything.
func NewLedger(limit int) *Ledger {
	if limit < 0 {
		limit = 0
	}
	return &Ledger{limit: limit, alerts: make([]signal.Alert, 0, limit)}
}

// Publish records a, evicting the oldest alert when the ledger is at its limit.
func (l *Ledger) Publish(_ context.Context, a signal.Alert) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limit > 0 && len(l.alerts) >= l.limit {
		n := copy(l.alerts, l.alerts[1:])
		l.alerts = l.alerts[:n]
	}
	l.alerts = append(l.alerts, a)
	return nil
}

// Snapshot returns a copy of the recorded alerts, oldest first.
func (l *Ledger) Snapshot() []signal.Alert {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]signal.Alert, len(l.alerts))
	copy(out, l.alerts)
	return out
}

// Count returns how many recorded alerts are of kind.
func (l *Ledger) Count(kind signal.AlertKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, a := range l.alerts {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// Reset clears all stored alerts.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.alerts = l.alerts[:0]
	l.mu.Unlock()
}

// ServeHTTP writes the snapshot as a JSON array; ?kind= filters by alert kind.
func (l *Ledger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	alerts := l.Snapshot()
	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := alerts[:0]
		for _, a := range alerts {
			if string(a.Kind) == kind {
				filtered = append(filtered, a)
			}
		}
		alerts = filtered
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(alerts)
}
