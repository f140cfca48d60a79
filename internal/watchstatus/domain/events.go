package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// StatusChangesAppliedEvent is published after a cascade commits with at
// least one change.
type StatusChangesAppliedEvent struct {
	ID        uuid.UUID
	ProfileID int64
	Changes   []StatusChange
	timestamp int64
}

func NewStatusChangesAppliedEvent(profileID int64, changes []StatusChange) *StatusChangesAppliedEvent {
	return &StatusChangesAppliedEvent{
		ID:        uuid.New(),
		ProfileID: profileID,
		Changes:   changes,
		timestamp: time.Now().Unix(),
	}
}

func (e *StatusChangesAppliedEvent) EventType() string {
	return "watchstatus.changes.applied"
}

func (e *StatusChangesAppliedEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *StatusChangesAppliedEvent) AggregateID() string {
	return strconv.FormatInt(e.ProfileID, 10)
}

// NewContentDetectedEvent is published when previously watched shows flip
// back to WATCHING because fresh episodes arrived.
type NewContentDetectedEvent struct {
	ID        uuid.UUID
	ProfileID int64
	ShowIDs   []int64
	timestamp int64
}

func NewNewContentDetectedEvent(profileID int64, showIDs []int64) *NewContentDetectedEvent {
	return &NewContentDetectedEvent{
		ID:        uuid.New(),
		ProfileID: profileID,
		ShowIDs:   showIDs,
		timestamp: time.Now().Unix(),
	}
}

func (e *NewContentDetectedEvent) EventType() string {
	return "watchstatus.newcontent"
}

func (e *NewContentDetectedEvent) Timestamp() int64 {
	return e.timestamp
}

func (e *NewContentDetectedEvent) AggregateID() string {
	return strconv.FormatInt(e.ProfileID, 10)
}
