// Package sessions rebuilds sleep and walk sessions from the flat event log.
//
// Sessions are derived views: they are recomputed from a snapshot on every
// call and never stored. All functions are pure and deterministic; input order
// does not matter because every algorithm sorts what it needs.
package sessions

import (
	"sort"
	"time"

	"github.com/okian/pupcare/internal/domain/model"
)

// SleepSessions pairs every sleep event with the wake event that closed it.
//
// Sleeps are visited oldest first. A wake sharing the sleep's SessionLinkID
// wins over any timing heuristic. Otherwise the earliest unmatched wake after
// the sleep is taken, provided it does not fall after the next sleep started:
// a wake always closes the latest sleep before it. A consumed wake is never
// reused. Sleeps left without a wake are reported as ongoing, so several
// ongoing sessions may appear here; see OngoingSleep for the single "in
// progress" view.
func SleepSessions(events []model.Event) []model.SleepSession {
	openings, closings := partition(events)
	if len(openings) == 0 {
		return []model.SleepSession{}
	}

	matched := make([]bool, len(closings))
	out := make([]model.SleepSession, 0, len(openings))

	for i, open := range openings {
		var limit *time.Time
		if i+1 < len(openings) {
			next := openings[i+1].Time
			limit = &next
		}

		idx := linkedClosing(open, closings, matched)
		if idx < 0 {
			idx = nearestFollowing(open, closings, matched, limit)
		}

		session := model.SleepSession{
			ID:           sessionID(open),
			StartTime:    open.Time,
			StartEventID: open.ID,
		}
		if idx >= 0 {
			matched[idx] = true
			end := closings[idx].Time
			session.EndTime = &end
			session.EndEventID = closings[idx].ID
		}
		out = append(out, session)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].StartEventID < out[j].StartEventID
	})
	return out
}

// OngoingSleep returns the sleep currently in progress, if any.
//
// Only the most recent unmatched sleep is surfaced: only one sleep can be in
// progress from the caregiver's point of view, even when SleepSessions
// reports older sleeps that never got a wake.
func OngoingSleep(events []model.Event) (model.SleepSession, bool) {
	openings, closings := partition(events)

	for i := len(openings) - 1; i >= 0; i-- {
		open := openings[i]
		if hasLinkedClosing(open, closings) || hasClosingAfter(open, closings) {
			continue
		}
		return model.SleepSession{
			ID:           sessionID(open),
			StartTime:    open.Time,
			StartEventID: open.ID,
		}, true
	}
	return model.SleepSession{}, false
}

// OngoingSleepLinkID returns the link that a wake closing the ongoing sleep
// should carry: the sleep's SessionLinkID, or its event ID when it has none.
func OngoingSleepLinkID(events []model.Event) (string, bool) {
	s, ok := OngoingSleep(events)
	if !ok {
		return "", false
	}
	return s.ID, true
}

// SleepSummary aggregates completed sleep sessions.
type SleepSummary struct {
	Completed int
	Ongoing   int
	Total     time.Duration
	Longest   time.Duration
}

// SleepStats summarises sessions as of now. Ongoing sessions are counted but
// their partial duration is not added to Total or Longest.
func SleepStats(sessions []model.SleepSession, now time.Time) SleepSummary {
	var sum SleepSummary
	for _, s := range sessions {
		if s.Ongoing() {
			sum.Ongoing++
			continue
		}
		d := s.Duration(now)
		sum.Completed++
		sum.Total += d
		if d > sum.Longest {
			sum.Longest = d
		}
	}
	return sum
}

// partition splits events into sleeps and wakes, each sorted by time then ID.
func partition(events []model.Event) (openings, closings []model.Event) {
	for _, e := range events {
		switch {
		case e.Type.IsOpening():
			openings = append(openings, e)
		case e.Type.IsClosing():
			closings = append(closings, e)
		}
	}
	sortEvents(openings)
	sortEvents(closings)
	return openings, closings
}

func sortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Before(events[j]) })
}

func sessionID(open model.Event) string {
	if open.SessionLinkID != "" {
		return open.SessionLinkID
	}
	return open.ID
}

// linkedClosing finds the earliest unmatched wake sharing open's link that
// happened after it. Returns -1 when there is none.
func linkedClosing(open model.Event, closings []model.Event, matched []bool) int {
	if open.SessionLinkID == "" {
		return -1
	}
	for i, c := range closings {
		if matched[i] || c.SessionLinkID != open.SessionLinkID {
			continue
		}
		if c.Time.After(open.Time) {
			return i
		}
	}
	return -1
}

// nearestFollowing finds the earliest unmatched wake strictly after open and
// not after limit. closings is sorted, so the first hit is the nearest one.
func nearestFollowing(open model.Event, closings []model.Event, matched []bool, limit *time.Time) int {
	for i, c := range closings {
		if matched[i] || !c.Time.After(open.Time) {
			continue
		}
		if limit != nil && c.Time.After(*limit) {
			return -1
		}
		return i
	}
	return -1
}

func hasLinkedClosing(open model.Event, closings []model.Event) bool {
	if open.SessionLinkID == "" {
		return false
	}
	for _, c := range closings {
		if c.SessionLinkID == open.SessionLinkID && c.Time.After(open.Time) {
			return true
		}
	}
	return false
}

func hasClosingAfter(open model.Event, closings []model.Event) bool {
	for _, c := range closings {
		if c.Time.After(open.Time) {
			return true
		}
	}
	return false
}
