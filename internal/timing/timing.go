// Package timing measures wall-clock duration of operations.
package timing

import "time"

// Span records when an operation started and finished.
type Span struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// Measure runs fn and returns its value along with a Span. The Span is
// populated even when fn fails, so callers can report timing for failed
// calls.
func Measure[T any](fn func() (T, error)) (T, Span, error) {
	start := time.Now()
	val, err := fn()
	end := time.Now()
	return val, Span{Start: start, End: end, Duration: end.Sub(start)}, err
}
