package strata

// HistorySize is the default capacity of a History.
const HistorySize = 1024

// Plotter renders a recorded training series to some medium. The stack never
// needs one to train; plotting is diagnostics only. encoding/chart has a file
// based implementation.
type Plotter interface {
	Plot(title string, step int, series []float32, width, height int) error
}

// History is a bounded record of a training signal over arbitrarily long
// runs. Every Record call counts, but only every step'th value is kept; when
// the series fills its capacity it is compacted in place by dropping every
// second sample and recording half as often from then on, so memory stays
// fixed while the curve keeps its overall shape.
type History struct {
	Label string

	series   []float32
	capacity int
	ctr      int
	step     int
	itns     uint32
}

// NewHistory builds a recorder with the given capacity and label.
// Capacities below 2 fall back to HistorySize.
func NewHistory(capacity int, label string) *History {
	if capacity < 2 {
		capacity = HistorySize
	}
	return &History{
		Label:    label,
		series:   make([]float32, 0, capacity),
		capacity: capacity,
		step:     1,
	}
}

// Record observes one value. A value the caller does not actually know yet
// (known false) is stored as zero rather than inventing a sentinel.
func (h *History) Record(v float32, known bool) {
	h.itns++
	if !known {
		v = 0
	}
	h.ctr++
	if h.ctr < h.step {
		return
	}
	h.ctr = 0
	h.series = append(h.series, v)
	if len(h.series) >= h.capacity {
		n := len(h.series) / 2
		for i := 0; i < n; i++ {
			h.series[i] = h.series[i*2]
		}
		h.series = h.series[:n]
		h.step *= 2
	}
}

// Len returns how many samples are currently held.
func (h *History) Len() int { return len(h.series) }

// Step returns the current decimation factor: one stored sample per Step
// recorded values.
func (h *History) Step() int { return h.step }

// Iterations returns how many times Record has been called.
func (h *History) Iterations() uint32 { return h.itns }

// Series returns a copy of the stored samples, oldest first. Sample i covers
// recorded value i*Step() approximately.
func (h *History) Series() []float32 {
	retVal := make([]float32, len(h.series))
	copy(retVal, h.series)
	return retVal
}

// Plot renders the series through p. A nil plotter is a no-op; failures are
// the caller's to log, they never affect recording.
func (h *History) Plot(p Plotter, width, height int) error {
	if p == nil {
		return nil
	}
	return p.Plot(h.Label, h.step, h.Series(), width, height)
}
