// Package signal standardizes payloads shared between ingestion, the coordinator and alert sinks.
package signal

import (
	"fmt"
	"strings"
	"time"
)

// Tick models a single trade price observed on one instrument's stream.
type Tick struct {
	Symbol string
	Price  float64
	Seq    uint64 // arrival order within the producing feed
	Ts     time.Time
}

// AlertKind names the condition that produced an alert.
type AlertKind string

const (
	// KindCorrelation is emitted when the windowed correlation crosses the border threshold.
	KindCorrelation AlertKind = "correlation"
	// KindPriceChange is emitted when the follower moved more than the configured percent.
	KindPriceChange AlertKind = "price_change"
)

// Alert is the user-visible outcome of a coordinator cycle.
type Alert struct {
	Kind     AlertKind     `json:"kind"`
	Symbols  []string      `json:"symbols"`
	Value    float64       `json:"value,omitempty"`
	Strength string        `json:"strength,omitempty"`
	Percent  int64         `json:"percent,omitempty"`
	Horizon  time.Duration `json:"horizon,omitempty"`
	Ts       time.Time     `json:"ts"`
}

// Text renders the alert as the human-readable lines written to stdout.
func (a Alert) Text() string {
	switch a.Kind {
	case KindPriceChange:
		return fmt.Sprintf("[TIME=%dsec] PRICE CHANGE = %d%%", int64(a.Horizon/time.Second), a.Percent)
	case KindCorrelation:
		leader, follower := "", ""
		if len(a.Symbols) > 0 {
			leader = a.Symbols[0]
		}
		if len(a.Symbols) > 1 {
			follower = a.Symbols[1]
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Correlation: %.4f", a.Value)
		if a.Strength != "" {
			fmt.Fprintf(&b, " (%s)", a.Strength)
		}
		fmt.Fprintf(&b, "\n%s price affects %s price!", leader, follower)
		return b.String()
	default:
		return fmt.Sprintf("%s alert for %s", a.Kind, strings.Join(a.Symbols, "/"))
	}
}
