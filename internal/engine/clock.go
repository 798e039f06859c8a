package engine

import "time"

// Clock is the engine's only source of elapsed time. Elapsed seconds are always
// derived from the delta between two Now() reads, never from counting ticks, so
// throttled or suspended hosts cannot introduce drift.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// SystemClock reads the wall clock in UTC.
var SystemClock Clock = systemClock{}
