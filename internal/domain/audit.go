package domain

import "time"

// AuditLog is one recorded authentication event. UserID is zero for events
// without a verified user.
type AuditLog struct {
	ID        int64          `db:"id" json:"id"`
	UserID    int64          `db:"user_id" json:"user_id,omitempty"`
	Action    string         `db:"action" json:"action"`
	Category  string         `db:"category" json:"category"`
	Details   map[string]any `db:"details" json:"details"`
	IP        string         `db:"ip" json:"ip,omitempty"`
	UserAgent string         `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

const AuditCategoryAuth = "auth"

const (
	AuditActionLogin    = "login"
	AuditActionRejected = "login_rejected"
)
