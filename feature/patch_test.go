package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatchBounds(t *testing.T) {
	tests := []struct {
		name               string
		cx, cy             int
		coarseW, coarseH   int
		radius, srcW, srcH int
		want               Rect
		ok                 bool
	}{
		{"interior cell", 2, 2, 4, 4, 2, 16, 16, Rect{6, 6, 10, 10}, true},
		{"interior rectangular", 1, 3, 4, 8, 1, 8, 16, Rect{1, 5, 3, 7}, true},
		{"left edge falls out", 0, 2, 4, 4, 2, 16, 16, Rect{}, false},
		{"top edge falls out", 2, 0, 4, 4, 2, 16, 16, Rect{}, false},
		{"right edge falls out", 3, 2, 4, 4, 3, 8, 8, Rect{}, false},
		{"exact fit at far edge", 1, 1, 2, 2, 4, 8, 8, Rect{0, 0, 8, 8}, true},
		{"last interior column", 3, 2, 4, 4, 2, 16, 16, Rect{10, 6, 14, 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			r, ok := PatchBounds(tt.cx, tt.cy, tt.coarseW, tt.coarseH, tt.radius, tt.srcW, tt.srcH)
			assert.Equal(tt.ok, ok)
			assert.Equal(tt.want, r)
			if ok {
				assert.Equal(2*tt.radius, r.Width())
				assert.Equal(2*tt.radius, r.Height())
			}
		})
	}
}
