package strata

// Config describes the geometry and training schedule of a Stack.
//
// Layer grids interpolate linearly from the input dimensions down to the
// output dimensions, so with L layers, layer l is
// Width - (Width-OutputWidth)*l/L across (same scheme for height). The
// input layer's channel depth is Depth; every deeper layer's depth is the
// feature count of the layer below it. Template sides scale with the layer
// width, never below 3.
type Config struct {
	Layers       int // number of convolutional layers
	Width        int // input width in pixels
	Height       int // input height in pixels
	Depth        int // input channels
	Features     int // templates learned per layer
	FeatureWidth int // template side length at the input layer

	// OutputWidth and OutputHeight size the final response grid.
	OutputWidth  int
	OutputHeight int

	// Thresholds holds one advancement threshold per layer: training moves
	// to the next layer once the running average match score drops below the
	// current layer's entry. Nil means all zero, which never advances.
	Thresholds []float32

	// LearnRate scales the template update step; 1 steps by 1/255 per pull,
	// the byte-image equivalent of moving one greyscale unit.
	LearnRate float32

	// Seed initialises the stack's random source.
	Seed int64
}

// DefaultConfig returns a three layer configuration for the given input
// geometry, with 16 templates of side 8 per layer and the output grid at a
// quarter of the input on each axis. Thresholds are zero; calibrate them
// before relying on layer advancement.
func DefaultConfig(width, height, depth int) Config {
	return Config{
		Layers:       3,
		Width:        width,
		Height:       height,
		Depth:        depth,
		Features:     16,
		FeatureWidth: 8,
		OutputWidth:  width / 4,
		OutputHeight: height / 4,
		LearnRate:    1,
	}
}

// IsValid reports whether the static parts of the configuration make sense.
// Derived per-layer geometry is checked again at construction.
func (c Config) IsValid() bool {
	return c.Layers >= 1 &&
		c.Width >= c.FeatureWidth &&
		c.Height >= c.FeatureWidth &&
		c.Depth >= 1 &&
		c.Features >= 1 &&
		c.FeatureWidth >= 3 &&
		c.OutputWidth >= 1 && c.OutputWidth <= c.Width &&
		c.OutputHeight >= 1 && c.OutputHeight <= c.Height &&
		(c.Thresholds == nil || len(c.Thresholds) == c.Layers) &&
		c.LearnRate > 0
}
