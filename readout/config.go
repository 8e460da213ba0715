package readout

// Config configures the classification head.
type Config struct {
	Hidden int // hidden layer width
	L2     float64

	BatchSize int
	Inputs    int // length of one pooled response vector
	Classes   int

	FwdOnly bool // is this a fwd only graph?
}

// DefaultConf sizes the hidden layer off the input width.
func DefaultConf(inputs, classes int) Config {
	h := round(inputs / 3)
	if h < 2 {
		h = 2
	}
	return Config{
		Hidden:    h,
		BatchSize: 32,
		Inputs:    inputs,
		Classes:   classes,
	}
}

func (conf Config) IsValid() bool {
	return conf.Hidden >= 1 &&
		conf.Inputs >= 1 &&
		conf.Classes >= 2 &&
		conf.BatchSize >= 1
}

// round rounds up or down to the nearest power of two.
func round(a int) int {
	n := a - 1
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++

	lt := n / 2
	if (a - lt) < (n - a) {
		return lt
	}
	return n
}
