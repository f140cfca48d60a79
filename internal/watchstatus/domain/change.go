package domain

import "time"

// Change reasons recorded on StatusChange rows.
const (
	ReasonUserSet    = "set by user"
	ReasonDerived    = "recomputed from descendants"
	ReasonCascade    = "rewritten by ancestor update"
	ReasonNewContent = "new content arrived"
)

// StatusChange records a single status transition applied during a cascade.
type StatusChange struct {
	EntityType EntityType `json:"entity_type"`
	EntityID   int64      `json:"entity_id"`
	From       Status     `json:"from"`
	To         Status     `json:"to"`
	Timestamp  time.Time  `json:"timestamp"`
	Reason     string     `json:"reason"`
}

// StatusUpdateResult is the outcome of one cascade operation. Success=false
// means an expected write matched no rows; the transaction was rolled back
// and nothing was applied.
type StatusUpdateResult struct {
	Success      bool           `json:"success"`
	Changes      []StatusChange `json:"changes"`
	AffectedRows int64          `json:"affected_rows"`
	Message      string         `json:"message"`
}

// HasChangeFor reports whether the change set touched the given entity kind.
func (r *StatusUpdateResult) HasChangeFor(entity EntityType) bool {
	for _, c := range r.Changes {
		if c.EntityType == entity {
			return true
		}
	}
	return false
}
