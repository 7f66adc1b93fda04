package pipeline

// Throttle decides which loop iterations run detection. With every = 2 the
// iterations 0, 2, 4 and so on are processed.
type Throttle struct {
	every int
	n     int
}

// NewThrottle creates a throttle. every <= 1 processes every iteration.
func NewThrottle(every int) *Throttle {
	return &Throttle{every: max(every, 1)}
}

// Next reports whether the current iteration is processed and advances.
func (t *Throttle) Next() bool {
	process := t.n%t.every == 0
	t.n++
	return process
}
