package strata

// OutputEncoder consumes training snapshots as whatever: an animation, a
// live stream, a logger. Encode is called whenever the driver wants the
// current state recorded; Flush once, at the end of the run.
type OutputEncoder interface {
	Encode(s *Stack) error
	Flush() error
}
