// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// EventType enumerates the kinds of caregiving events that can be logged.
type EventType uint8

// Known event types. The zero value is not a valid type.
const (
	EventFeed EventType = iota + 1
	EventDrink
	EventPee
	EventPoop
	EventSleep
	EventWake
	EventWalk
	EventGarden
	EventTraining
	EventCrate
	EventSocial
	EventMilestone
	EventBehavior
	EventWeight
	EventPhotoMoment
	EventMedication
)

var eventTypeNames = map[EventType]string{
	EventFeed:        "feed",
	EventDrink:       "drink",
	EventPee:         "pee",
	EventPoop:        "poop",
	EventSleep:       "sleep",
	EventWake:        "wake",
	EventWalk:        "walk",
	EventGarden:      "garden",
	EventTraining:    "training",
	EventCrate:       "crate",
	EventSocial:      "social",
	EventMilestone:   "milestone",
	EventBehavior:    "behavior",
	EventWeight:      "weight",
	EventPhotoMoment: "photo_moment",
	EventMedication:  "medication",
}

// EventTypes returns every known event type in declaration order.
func EventTypes() []EventType {
	out := make([]EventType, 0, len(eventTypeNames))
	for t := EventFeed; t <= EventMedication; t++ {
		out = append(out, t)
	}
	return out
}

// String returns the wire name of the event type.
func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("event_type(%d)", uint8(t))
}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	_, ok := eventTypeNames[t]
	return ok
}

// ParseEventType converts a wire name into an EventType.
func ParseEventType(s string) (EventType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range eventTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEventType, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t EventType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEventType, uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *EventType) UnmarshalText(b []byte) error {
	parsed, err := ParseEventType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// IsPotty reports whether the type is a toileting event.
func (t EventType) IsPotty() bool {
	switch t {
	case EventPee, EventPoop:
		return true
	default:
		return false
	}
}

// IsOpening reports whether the type opens a sleep session.
func (t EventType) IsOpening() bool { return t == EventSleep }

// IsClosing reports whether the type closes a sleep session.
func (t EventType) IsClosing() bool { return t == EventWake }

// IsMeal reports whether the type counts as eating for trigger purposes.
func (t EventType) IsMeal() bool { return t == EventFeed }

// Location records where a potty event happened.
type Location uint8

// Known locations.
const (
	LocationUnknown Location = iota
	LocationOutdoor
	LocationIndoor
)

// String returns the wire name of the location.
func (l Location) String() string {
	switch l {
	case LocationOutdoor:
		return "outdoor"
	case LocationIndoor:
		return "indoor"
	default:
		return "unknown"
	}
}

// ParseLocation converts a wire name into a Location. Empty input maps to LocationUnknown.
func ParseLocation(s string) (Location, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown":
		return LocationUnknown, nil
	case "outdoor", "outside":
		return LocationOutdoor, nil
	case "indoor", "inside":
		return LocationIndoor, nil
	default:
		return LocationUnknown, fmt.Errorf("%w: %q", ErrUnknownLocation, s)
	}
}

// Event is a single immutable entry of the caregiving log. Edits replace the
// whole record while keeping ID.
type Event struct {
	ID   string
	Time time.Time
	Type EventType

	// SessionLinkID pairs an opening event with its closing event.
	SessionLinkID string
	// ParentID marks containment, e.g. a pee logged during a walk.
	ParentID string

	Location Location
	Duration time.Duration
	Value    *float64
	MediaRef string
	Note     string
}

// IsAccident reports whether the event is a potty event that happened indoors.
func (e Event) IsAccident() bool {
	return e.Type.IsPotty() && e.Location == LocationIndoor
}

// Before orders events by time and then by ID so that ties are deterministic.
func (e Event) Before(o Event) bool {
	if !e.Time.Equal(o.Time) {
		return e.Time.Before(o.Time)
	}
	return e.ID < o.ID
}
