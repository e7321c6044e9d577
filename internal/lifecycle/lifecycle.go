// Package lifecycle holds the review state machine of a content item and
// the archived/current classification of its schedule date.
package lifecycle

import (
	"strings"
	"time"

	"contentflow/internal/errors"
	"contentflow/internal/model"
)

// CanTransition reports whether an item may move from one status to another.
// Only pending items move, and only to approved or rejected.
func CanTransition(from, to model.ContentStatus) bool {
	if from != model.ContentStatusPending {
		return false
	}
	return to == model.ContentStatusApproved || to == model.ContentStatusRejected
}

// Approve moves a pending item to approved. Rejection fields stay empty.
func Approve(item *model.ContentItem) error {
	if !CanTransition(item.Status, model.ContentStatusApproved) {
		return errors.ErrInvalidTransition
	}
	item.Status = model.ContentStatusApproved
	return nil
}

// Reject moves a pending item to rejected, recording notes and the
// rejection time together with the status.
func Reject(item *model.ContentItem, notes string, now time.Time) error {
	if strings.TrimSpace(notes) == "" {
		return errors.ErrRejectionNotesRequired
	}
	if !CanTransition(item.Status, model.ContentStatusRejected) {
		return errors.ErrInvalidTransition
	}
	item.Status = model.ContentStatusRejected
	item.RejectionNotes = &notes
	item.RejectedAt = &now
	return nil
}

// Apply dispatches a requested status change to Approve or Reject.
func Apply(item *model.ContentItem, to model.ContentStatus, notes string, now time.Time) error {
	switch to {
	case model.ContentStatusApproved:
		return Approve(item)
	case model.ContentStatusRejected:
		return Reject(item, notes, now)
	case model.ContentStatusPending:
		if item.Status == model.ContentStatusPending {
			return nil
		}
		return errors.ErrInvalidTransition
	default:
		return errors.ErrInvalidStatus
	}
}

// Classification partitions items by schedule date relative to today.
type Classification string

const (
	Current  Classification = "current"
	Archived Classification = "archived"
)

// Classify returns Archived iff the schedule date falls strictly before the
// start of the current day in loc. Only the calendar date of scheduleDate
// is considered.
func Classify(scheduleDate, now time.Time, loc *time.Location) Classification {
	if DateOnly(scheduleDate).Before(StartOfDay(now, loc)) {
		return Archived
	}
	return Current
}

// IsArchived is shorthand for Classify(...) == Archived.
func IsArchived(scheduleDate, now time.Time, loc *time.Location) bool {
	return Classify(scheduleDate, now, loc) == Archived
}

// StartOfDay returns the calendar date of now in loc, expressed as a
// date-only value (midnight UTC) comparable with stored schedule dates.
func StartOfDay(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return DateOnly(now.In(loc))
}

// DateOnly drops the clock and zone of t, keeping its calendar date as
// midnight UTC. Schedule dates are stored in this form.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
