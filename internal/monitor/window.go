package monitor

// Window is a bounded, ordered buffer of one instrument's most recent prices.
// It accepts appends until full and is emptied as a unit by Reset.
type Window struct {
	capacity int
	prices   []float64
}

// NewWindow allocates a window holding at most capacity prices.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{capacity: capacity, prices: make([]float64, 0, capacity)}
}

// Append adds px and reports whether it was kept; a full window rejects it.
func (w *Window) Append(px float64) bool {
	if len(w.prices) >= w.capacity {
		return false
	}
	w.prices = append(w.prices, px)
	return true
}

// Len reports how many prices are buffered.
func (w *Window) Len() int { return len(w.prices) }

// Cap reports the window capacity N.
func (w *Window) Cap() int { return w.capacity }

// Full reports whether the window holds N prices and is ready to correlate.
func (w *Window) Full() bool { return len(w.prices) >= w.capacity }

// Prices returns a copy of the buffered prices in arrival order.
func (w *Window) Prices() []float64 {
	out := make([]float64, len(w.prices))
	copy(out, w.prices)
	return out
}

// Reset empties the window, keeping its storage.
func (w *Window) Reset() { w.prices = w.prices[:0] }
