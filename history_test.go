package strata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryRecordsEveryValueWhileSparse(t *testing.T) {
	assert := assert.New(t)
	h := NewHistory(8, "err")

	for i := 1; i <= 5; i++ {
		h.Record(float32(i), true)
	}
	assert.Equal(5, h.Len())
	assert.Equal(1, h.Step())
	assert.Equal([]float32{1, 2, 3, 4, 5}, h.Series())
	assert.Equal(uint32(5), h.Iterations())
}

func TestHistoryUnknownValuesStoreZero(t *testing.T) {
	assert := assert.New(t)
	h := NewHistory(8, "err")
	h.Record(7, false)
	h.Record(7, true)
	assert.Equal([]float32{0, 7}, h.Series())
}

func TestHistoryCompaction(t *testing.T) {
	assert := assert.New(t)
	h := NewHistory(8, "err")

	// the eighth sample fills the buffer, which halves by keeping every
	// other sample and doubles the step
	for i := 1; i <= 8; i++ {
		h.Record(float32(i), true)
	}
	assert.Equal([]float32{1, 3, 5, 7}, h.Series())
	assert.Equal(2, h.Step())

	// at step 2 only every second recording lands
	h.Record(9, true)
	assert.Equal(4, h.Len())
	h.Record(10, true)
	assert.Equal([]float32{1, 3, 5, 7, 10}, h.Series())
	assert.Equal(uint32(10), h.Iterations())
}

func TestHistoryStaysBounded(t *testing.T) {
	h := NewHistory(16, "err")
	for i := 0; i < 5000; i++ {
		h.Record(float32(i), true)
		if h.Len() >= 16 {
			t.Fatalf("series grew to %d at iteration %d", h.Len(), i)
		}
	}
	step := h.Step()
	if step&(step-1) != 0 || step < 1 {
		t.Fatalf("step = %d, want a power of two", step)
	}
	if h.Iterations() != 5000 {
		t.Fatalf("iterations = %d", h.Iterations())
	}
}

func TestHistoryDefaultCapacity(t *testing.T) {
	assert := assert.New(t)
	h := NewHistory(0, "err")
	for i := 0; i < HistorySize-1; i++ {
		h.Record(1, true)
	}
	assert.Equal(HistorySize-1, h.Len())
	assert.Equal(1, h.Step())
	h.Record(1, true)
	assert.Equal(HistorySize/2, h.Len())
	assert.Equal(2, h.Step())
}

type capturePlotter struct {
	title  string
	step   int
	series []float32
	w, h   int
	calls  int
}

func (p *capturePlotter) Plot(title string, step int, series []float32, width, height int) error {
	p.title, p.step, p.series, p.w, p.h = title, step, series, width, height
	p.calls++
	return nil
}

func TestHistoryPlot(t *testing.T) {
	assert := assert.New(t)
	h := NewHistory(8, "training error")
	h.Record(0.5, true)
	h.Record(0.25, true)

	assert.NoError(h.Plot(nil, 640, 480))

	p := &capturePlotter{}
	if err := h.Plot(p, 640, 480); err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(1, p.calls)
	assert.Equal("training error", p.title)
	assert.Equal(1, p.step)
	assert.Equal([]float32{0.5, 0.25}, p.series)
	assert.Equal(640, p.w)
	assert.Equal(480, p.h)
}
