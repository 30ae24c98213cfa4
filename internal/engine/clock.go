package engine

import "time"

// Clock supplies wall time for ledger timestamps and staleness cut-offs.
// Tests substitute a fixed clock so that due-for-check queries are exact.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time in UTC.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
