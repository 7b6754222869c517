package app

import "time"

// QuestionDuration is how long each question stays answerable.
const QuestionDuration = 25 * time.Second

// Timer recomputes the per-question countdown from the persisted start
// instant. The service clock, not the client's, supplies "now".
type Timer struct {
	Duration time.Duration
}

// NewTimer returns a Timer with the standard question duration.
func NewTimer() Timer {
	return Timer{Duration: QuestionDuration}
}

// Remaining returns how much answer time is left for a question started at
// startedAt. A nil start instant means the question has not been put on the
// clock yet and the full duration remains; callers must persist a start
// instant before trusting that value, or a reload would reset the countdown
// indefinitely.
func (t Timer) Remaining(startedAt *time.Time, now time.Time) time.Duration {
	if startedAt == nil {
		return t.Duration
	}
	remaining := t.Duration - now.Sub(*startedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the question must resolve to a timeout instead of
// showing a countdown.
func (t Timer) Expired(startedAt *time.Time, now time.Time) bool {
	return startedAt != nil && t.Remaining(startedAt, now) == 0
}

// RemainingSeconds is Remaining rounded down to whole seconds for transport.
func (t Timer) RemainingSeconds(startedAt *time.Time, now time.Time) int {
	return int(t.Remaining(startedAt, now) / time.Second)
}
