package engine

// Budget is the running disk-utilization counter of one retention pass.
//
// Admit is called from the task producer, which the pool drives from a
// single goroutine, and the counter moves at dispatch time rather than on
// pin completion. Concurrent pins therefore cannot jointly overshoot the
// limit. Budget is not safe for use from several goroutines.
type Budget struct {
	limit int64
	used  int64
}

// NewBudget starts a counter at used bytes against limit.
func NewBudget(limit, used int64) *Budget {
	return &Budget{limit: limit, used: used}
}

// Admit reserves size bytes if used+size stays strictly below the limit.
// A rejected size leaves the counter unchanged.
func (b *Budget) Admit(size int64) bool {
	if size <= 0 || b.used+size >= b.limit {
		return false
	}
	b.used += size
	return true
}

// Used returns the bytes reserved so far, including the baseline.
func (b *Budget) Used() int64 {
	return b.used
}

// Limit returns the configured ceiling.
func (b *Budget) Limit() int64 {
	return b.limit
}

// Remaining returns the bytes still available, never negative.
func (b *Budget) Remaining() int64 {
	if b.used >= b.limit {
		return 0
	}
	return b.limit - b.used
}
