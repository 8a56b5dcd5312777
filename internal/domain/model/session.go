package model

import "time"

// SleepSession is a sleep period rebuilt from a sleep event and, when known,
// the wake event that closed it. It is never persisted.
type SleepSession struct {
	ID           string
	StartTime    time.Time
	EndTime      *time.Time // nil while the puppy is still asleep
	StartEventID string
	EndEventID   string
}

// Ongoing reports whether no wake event closed the session.
func (s SleepSession) Ongoing() bool { return s.EndTime == nil }

// Duration returns the session length; ongoing sessions are measured up to now.
func (s SleepSession) Duration(now time.Time) time.Duration {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	if end.Before(s.StartTime) {
		return 0
	}
	return end.Sub(s.StartTime)
}

// WalkSession groups a walk event with the potty events logged against it.
type WalkSession struct {
	ID               string
	WalkEvent        Event
	ChildPottyEvents []Event
}

// HadPee reports whether a pee was logged during the walk.
func (w WalkSession) HadPee() bool { return w.had(EventPee) }

// HadPoop reports whether a poop was logged during the walk.
func (w WalkSession) HadPoop() bool { return w.had(EventPoop) }

func (w WalkSession) had(t EventType) bool {
	for _, e := range w.ChildPottyEvents {
		if e.Type == t {
			return true
		}
	}
	return false
}

// CoverageGap is a caregiver-declared period during which the log is known to
// be incomplete, e.g. while the puppy stays with a sitter.
type CoverageGap struct {
	ID     string
	Start  time.Time
	End    *time.Time
	Reason string
}

// ActiveAt reports whether the gap covers t.
func (g CoverageGap) ActiveAt(t time.Time) bool {
	if t.Before(g.Start) {
		return false
	}
	return g.End == nil || t.Before(*g.End)
}
