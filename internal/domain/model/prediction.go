package model

import (
	"fmt"
	"strings"
	"time"
)

// Urgency classifies how soon the next occurrence of a recurring event is due.
//
// JustOccurred through Overdue form an ordered ladder. PostIncident,
// TrackingPaused and Unknown sit outside it and override the ladder.
type Urgency uint8

// Urgency levels.
const (
	UrgencyUnknown Urgency = iota
	UrgencyJustOccurred
	UrgencyNormal
	UrgencyAttention
	UrgencyDueSoon
	UrgencyOverdue
	UrgencyPostIncident
	UrgencyTrackingPaused
)

// String returns the wire name of the urgency.
func (u Urgency) String() string {
	switch u {
	case UrgencyJustOccurred:
		return "just_occurred"
	case UrgencyNormal:
		return "normal"
	case UrgencyAttention:
		return "attention"
	case UrgencyDueSoon:
		return "due_soon"
	case UrgencyOverdue:
		return "overdue"
	case UrgencyPostIncident:
		return "post_incident"
	case UrgencyTrackingPaused:
		return "tracking_paused"
	case UrgencyUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("urgency(%d)", uint8(u))
	}
}

// ParseUrgency converts a wire name into an Urgency.
func ParseUrgency(s string) (Urgency, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for u := UrgencyUnknown; u <= UrgencyTrackingPaused; u++ {
		if u.String() == want {
			return u, nil
		}
	}
	return UrgencyUnknown, fmt.Errorf("%w: %q", ErrUnknownUrgency, s)
}

// MarshalText implements encoding.TextMarshaler.
func (u Urgency) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Urgency) UnmarshalText(b []byte) error {
	parsed, err := ParseUrgency(string(b))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// IsOverride reports whether u lies outside the timing ladder.
func (u Urgency) IsOverride() bool {
	switch u {
	case UrgencyPostIncident, UrgencyTrackingPaused, UrgencyUnknown:
		return true
	default:
		return false
	}
}

// Rank returns the position of u on the ladder, or -1 for override states.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyJustOccurred:
		return 0
	case UrgencyNormal:
		return 1
	case UrgencyAttention:
		return 2
	case UrgencyDueSoon:
		return 3
	case UrgencyOverdue:
		return 4
	default:
		return -1
	}
}

// Trigger names the context that shortened a predicted gap.
type Trigger uint8

// Trigger contexts.
const (
	TriggerNone Trigger = iota
	TriggerMeal
	TriggerSleep
)

// String returns the wire name of the trigger.
func (t Trigger) String() string {
	switch t {
	case TriggerMeal:
		return "meal"
	case TriggerSleep:
		return "sleep"
	default:
		return "none"
	}
}

// Prediction estimates when the next occurrence is due and how urgent it is.
// It is derived from a log snapshot and stale as soon as the log changes.
type Prediction struct {
	ExpectedNextTime *time.Time
	Urgency          Urgency

	// BaseGap is the historical or default gap before any trigger applied.
	BaseGap time.Duration
	// GapMinutes is the adjusted gap before rounding.
	GapMinutes float64
	// Gap is the adjusted gap rounded half-up to whole minutes.
	Gap     time.Duration
	Trigger Trigger

	HistorySufficient bool
	// Overnight is set when the expected time falls inside the night window.
	Overnight        bool
	LastOccurrenceID string
}
