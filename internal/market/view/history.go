package view

// PriceHistory is a ring buffer of recent prices (bounded memory).
type PriceHistory struct {
	buf   []float64
	size  int
	start int
	count int
}

// NewPriceHistory creates a new PriceHistory with the given capacity.
func NewPriceHistory(capacity int) *PriceHistory {
	if capacity <= 0 {
		capacity = 1
	}
	return &PriceHistory{
		buf:  make([]float64, capacity),
		size: capacity,
	}
}

// Append adds a price sample to the history.
func (h *PriceHistory) Append(p float64) {
	if h.count < h.size {
		h.buf[(h.start+h.count)%h.size] = p
		h.count++
		return
	}
	// overwrite oldest
	h.buf[h.start] = p
	h.start = (h.start + 1) % h.size
}

// Last returns the last n samples in chronological order.
// Returns a copy (not internal references).
func (h *PriceHistory) Last(n int) []float64 {
	if n <= 0 || h.count == 0 {
		return nil
	}
	if n > h.count {
		n = h.count
	}
	out := make([]float64, n)
	first := (h.start + (h.count - n)) % h.size
	for i := 0; i < n; i++ {
		out[i] = h.buf[(first+i)%h.size]
	}
	return out
}

// All returns every sample currently held, oldest first.
func (h *PriceHistory) All() []float64 {
	return h.Last(h.count)
}

// Clear drops all samples.
func (h *PriceHistory) Clear() {
	h.start = 0
	h.count = 0
}

// Count returns the number of samples in the history.
func (h *PriceHistory) Count() int {
	return h.count
}
