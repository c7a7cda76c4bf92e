package models

import "time"

// NATS audit subjects
const (
	AuditEventCreated        = "event.created"
	AuditEventUpdated        = "event.updated"
	AuditEventApproved       = "event.approved"
	AuditEventRejected       = "event.rejected"
	AuditEventActivated      = "event.activated"
	AuditEventDeactivated    = "event.deactivated"
	AuditEventUpvoted        = "event.upvoted"
	AuditEventDownvoted      = "event.downvoted"
	AuditEventFavourited     = "event.favourited"
	AuditEventUnfavourited   = "event.unfavourited"
	AuditComplaintFiled      = "complaint.filed"
	AuditComplaintReplied    = "complaint.replied"
	AuditSubscriptionChanged = "subscription.changed"
)

// AuditSubjects lists every subject the consumers subscribe to
var AuditSubjects = []string{
	AuditEventCreated,
	AuditEventUpdated,
	AuditEventApproved,
	AuditEventRejected,
	AuditEventActivated,
	AuditEventDeactivated,
	AuditEventUpvoted,
	AuditEventDownvoted,
	AuditEventFavourited,
	AuditEventUnfavourited,
	AuditComplaintFiled,
	AuditComplaintReplied,
	AuditSubscriptionChanged,
}

// ReindexSubjects change searchable fields of an event
var ReindexSubjects = map[string]bool{
	AuditEventCreated:     true,
	AuditEventUpdated:     true,
	AuditEventApproved:    true,
	AuditEventRejected:    true,
	AuditEventActivated:   true,
	AuditEventDeactivated: true,
}

// AuditRecord is published after a state-changing command succeeds
type AuditRecord struct {
	Subject     string         `json:"subject"`
	EventID     string         `json:"event_id,omitempty"`
	ComplaintID int64          `json:"complaint_id,omitempty"`
	ActorID     string         `json:"actor_id"`
	Timestamp   time.Time      `json:"timestamp"`
	Details     map[string]any `json:"details,omitempty"`
}
