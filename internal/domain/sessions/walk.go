package sessions

import (
	"sort"

	"github.com/okian/pupcare/internal/domain/model"
)

// WalkSessions groups each walk with the potty events whose ParentID names it.
//
// Containment is exact: timing is never consulted, so a potty event that
// names walk A is never attached to walk B even if it happened during B.
// Potty events without a matching parent stay standalone.
func WalkSessions(events []model.Event) []model.WalkSession {
	var walks []model.Event
	children := make(map[string][]model.Event)

	for _, e := range events {
		switch {
		case e.Type == model.EventWalk:
			walks = append(walks, e)
		case e.Type.IsPotty() && e.ParentID != "":
			children[e.ParentID] = append(children[e.ParentID], e)
		}
	}
	sortEvents(walks)

	out := make([]model.WalkSession, 0, len(walks))
	for _, w := range walks {
		kids := append([]model.Event(nil), children[w.ID]...)
		sortEvents(kids)
		if kids == nil {
			kids = []model.Event{}
		}
		out = append(out, model.WalkSession{
			ID:               w.ID,
			WalkEvent:        w,
			ChildPottyEvents: kids,
		})
	}
	return out
}

// Standalone returns potty events that do not belong to any walk in events.
func Standalone(events []model.Event) []model.Event {
	walkIDs := make(map[string]struct{})
	for _, e := range events {
		if e.Type == model.EventWalk {
			walkIDs[e.ID] = struct{}{}
		}
	}

	var out []model.Event
	for _, e := range events {
		if !e.Type.IsPotty() {
			continue
		}
		if _, ok := walkIDs[e.ParentID]; ok && e.ParentID != "" {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
