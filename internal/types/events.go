package types

import "time"

// Event represents an audit trail entry
type Event struct {
	ID        int64     `json:"id"`
	IssueID   string    `json:"issue_id"`
	EventType EventType `json:"event_type"`
	Actor     string    `json:"actor"`
	OldValue  *string   `json:"old_value,omitempty"`
	NewValue  *string   `json:"new_value,omitempty"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EventType categorizes audit trail events
type EventType string

// Event type constants for the audit trail
const (
	EventCreated            EventType = "created"
	EventStatusChanged      EventType = "status_changed"
	EventTitleChanged       EventType = "title_changed"
	EventPriorityChanged    EventType = "priority_changed"
	EventAssigneeChanged    EventType = "assignee_changed"
	EventDescriptionChanged EventType = "description_changed"
	EventNotesChanged       EventType = "notes_changed"
	EventFieldsChanged      EventType = "fields_changed"
	EventParentChanged      EventType = "parent_changed"
	EventClaimed            EventType = "claimed"
	EventReleased           EventType = "released"
	EventCommented          EventType = "commented"
	EventLabelAdded         EventType = "label_added"
	EventLabelRemoved       EventType = "label_removed"
	EventDependencyAdded    EventType = "dependency_added"
	EventDependencyRemoved  EventType = "dependency_removed"
	EventArchived           EventType = "archived"
	EventUndone             EventType = "undone"
	EventTransitionWarning  EventType = "transition_warning"
)

// reversibleEvents is the set of event types undo can invert.
// Notably absent: created, released, archived, undone. Releasing an issue
// is deliberately one-way; undoing it would resurrect a stale assignee.
var reversibleEvents = map[EventType]bool{
	EventStatusChanged:      true,
	EventTitleChanged:       true,
	EventPriorityChanged:    true,
	EventAssigneeChanged:    true,
	EventClaimed:            true,
	EventDependencyAdded:    true,
	EventDependencyRemoved:  true,
	EventDescriptionChanged: true,
	EventNotesChanged:       true,
}

// IsReversible reports whether undo can invert this event type.
func (e EventType) IsReversible() bool {
	return reversibleEvents[e]
}

// ReversibleEventTypes returns the reversible set as a slice, for SQL IN clauses.
func ReversibleEventTypes() []EventType {
	out := make([]EventType, 0, len(reversibleEvents))
	for et := range reversibleEvents {
		out = append(out, et)
	}
	return out
}
