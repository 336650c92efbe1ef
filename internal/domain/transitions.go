package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Event is a named input to the content status machine.
type Event string

const (
	// EventSubmit hands an idea or draft to a human reviewer.
	EventSubmit Event = "submit"
	// EventApprove moves a reviewed item onto the schedule.
	EventApprove Event = "approve"
	// EventReject discards an item from any state.
	EventReject Event = "reject"
	// EventPublish marks a scheduled item as published.
	EventPublish Event = "publish"

	// Feedback-driven events, one per FeedbackKind.
	EventFeedbackApproved Event = "feedback_approved"
	EventFeedbackEdited   Event = "feedback_edited"
	EventFeedbackRejected Event = "feedback_rejected"
)

// ErrInvalidTransition is matched (via errors.Is) by every *TransitionError.
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError reports an event applied to an item whose current status
// does not allow it.
type TransitionError struct {
	From     Status
	Event    Event
	Required []Status
}

func (e *TransitionError) Error() string {
	req := make([]string, len(e.Required))
	for i, s := range e.Required {
		req[i] = "'" + string(s) + "'"
	}
	return fmt.Sprintf("cannot %s item with status '%s': must be %s",
		e.Event, e.From, strings.Join(req, " or "))
}

// Is makes errors.Is(err, ErrInvalidTransition) hold.
func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// rule describes one event: the statuses it may fire from (nil = any) and
// the status it leads to.
type rule struct {
	from []Status
	to   Status
}

var transitions = map[Event]rule{
	EventSubmit:           {from: []Status{StatusIdea, StatusDraft}, to: StatusReview},
	EventApprove:          {from: []Status{StatusReview}, to: StatusScheduled},
	EventReject:           {to: StatusRejected},
	EventPublish:          {from: []Status{StatusScheduled}, to: StatusPublished},
	EventFeedbackApproved: {to: StatusScheduled},
	EventFeedbackEdited:   {to: StatusScheduled},
	EventFeedbackRejected: {to: StatusRejected},
}

// Next returns the status an item in status from moves to when ev fires.
// It returns a *TransitionError when the event is not allowed from the
// current status, and a plain error for an unknown event.
func Next(from Status, ev Event) (Status, error) {
	r, ok := transitions[ev]
	if !ok {
		return from, fmt.Errorf("unknown event %q", ev)
	}
	if r.from == nil {
		return r.to, nil
	}
	for _, s := range r.from {
		if s == from {
			return r.to, nil
		}
	}
	return from, &TransitionError{From: from, Event: ev, Required: r.from}
}

// FeedbackEvent maps a feedback verdict to the status-machine event it fires.
func FeedbackEvent(k FeedbackKind) (Event, bool) {
	switch k {
	case FeedbackApproved:
		return EventFeedbackApproved, true
	case FeedbackEdited:
		return EventFeedbackEdited, true
	case FeedbackRejected:
		return EventFeedbackRejected, true
	}
	return "", false
}
