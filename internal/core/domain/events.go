package domain

import "time"

// ActivityAction enumerates the privileged mutations recorded in the activity log.
type ActivityAction string

const (
	ActionRoleUpdated     ActivityAction = "RoleUpdated"
	ActionUserDeleted     ActivityAction = "UserDeleted"
	ActionPasswordChanged ActivityAction = "PasswordChanged"
	ActionRecordCreated   ActivityAction = "RecordCreated"
	ActionRecordUpdated   ActivityAction = "RecordUpdated"
	ActionRecordDeleted   ActivityAction = "RecordDeleted"
)

// ActivityEntry is a single append-only audit record.
// Ordering is defined by insertion into the log, not by Timestamp.
type ActivityEntry struct {
	ID              string         `json:"id"`
	Action          ActivityAction `json:"action"`
	SubjectUsername string         `json:"subjectUsername,omitempty"`
	RecordID        string         `json:"recordId,omitempty"`
	PerformedBy     string         `json:"performedBy"`
	Timestamp       time.Time      `json:"timestamp"`
}
