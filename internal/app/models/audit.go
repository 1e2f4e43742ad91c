package models

import "time"

// TrialScope selects whether a trial applies to a user or to a community
type TrialScope string

const (
	TrialScopeUser      TrialScope = "user"
	TrialScopeCommunity TrialScope = "community"
)

// TrialAudit is a row of the Postgres trial_audit ledger
type TrialAudit struct {
	ID          int64      `json:"id" db:"id"`
	UserID      string     `json:"userId" db:"user_id"`
	Scope       TrialScope `json:"scope" db:"scope"`
	CommunityID *string    `json:"communityId,omitempty" db:"community_id"`
	IPAddress   string     `json:"ipAddress" db:"ip_address"`
	UserAgent   string     `json:"userAgent" db:"user_agent"`
	Eligible    bool       `json:"eligible" db:"eligible"`
	Reason      string     `json:"reason" db:"reason"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}

// WebhookEvent is a row of the Postgres webhook_events ledger
type WebhookEvent struct {
	EventID    string    `json:"eventId" db:"event_id"`
	EventType  string    `json:"eventType" db:"event_type"`
	ReceivedAt time.Time `json:"receivedAt" db:"received_at"`
}
