package dto

import "github.com/yigit/circlehub/internal/app/models"

// TrialRequest selects the trial scope; CommunityID is required for community scope
type TrialRequest struct {
	Scope       models.TrialScope `json:"scope" binding:"required,oneof=user community"`
	CommunityID string            `json:"communityId"`
}

// TrialEligibilityResponse reports whether a trial may be activated
type TrialEligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// TrialActivationResponse is returned after a trial starts
type TrialActivationResponse struct {
	Scope       models.TrialScope `json:"scope"`
	CommunityID string            `json:"communityId,omitempty"`
	StartDate   string            `json:"startDate"`
	EndDate     string            `json:"endDate"`
}

// CheckoutRequest starts a gateway checkout
type CheckoutRequest struct {
	Purpose     models.PaymentPurpose `json:"purpose" binding:"required,oneof=community_membership platform_subscription"`
	CommunityID string                `json:"communityId" binding:"required,len=24,hexadecimal"`
	PlanCode    string                `json:"planCode"`
}

// CheckoutResponse carries the hosted checkout url
type CheckoutResponse struct {
	CheckoutURL   string `json:"checkoutUrl"`
	TransactionID string `json:"transactionId"`
}

// SweepResponse reports what the expiration sweep changed
type SweepResponse struct {
	Skipped              bool  `json:"skipped"`
	CommunitiesSuspended int64 `json:"communitiesSuspended"`
	UserTrialsExpired    int64 `json:"userTrialsExpired"`
	UserPlansExpired     int64 `json:"userPlansExpired"`
	SubscriptionsExpired int64 `json:"subscriptionsExpired"`
}

// ReminderResponse reports how many trial reminders went out
type ReminderResponse struct {
	Sent int `json:"sent"`
}

// TransactionListResponse is a page of the caller's transactions
type TransactionListResponse struct {
	Transactions []models.Transaction `json:"transactions"`
	PaginationInfo
}

// WebhookResponse acknowledges a gateway event
type WebhookResponse struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
	EventType string `json:"eventType,omitempty"`
}
