package feature

// Rect is a half-open pixel box [X0,X1) × [Y0,Y1) in source coordinates.
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Width returns the horizontal extent of the box.
func (r Rect) Width() int { return r.X1 - r.X0 }

// Height returns the vertical extent of the box.
func (r Rect) Height() int { return r.Y1 - r.Y0 }

// PatchBounds maps the coarse cell (cx, cy) of a coarseW×coarseH grid onto a
// square box of side 2*radius centred at the proportionally scaled position
// in a srcW×srcH source grid. ok is false when the box would not lie fully
// inside the source; callers skip such cells and leave their output zeroed.
func PatchBounds(cx, cy, coarseW, coarseH, radius, srcW, srcH int) (r Rect, ok bool) {
	px := cx * srcW / coarseW
	py := cy * srcH / coarseH
	r = Rect{
		X0: px - radius,
		Y0: py - radius,
		X1: px + radius,
		Y1: py + radius,
	}
	if r.X0 < 0 || r.Y0 < 0 || r.X1 > srcW || r.Y1 > srcH {
		return Rect{}, false
	}
	return r, true
}
