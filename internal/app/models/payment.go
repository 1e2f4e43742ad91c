package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentPurpose tells what a checkout pays for
type PaymentPurpose string

const (
	// PurposeMembership is a member paying for access to a paid community
	PurposeMembership PaymentPurpose = "community_membership"
	// PurposePlatform is a community admin paying the platform fee
	PurposePlatform PaymentPurpose = "platform_subscription"
)

// TransactionStatus mirrors the gateway payment state
type TransactionStatus string

const (
	TransactionCreated    TransactionStatus = "created"
	TransactionAuthorized TransactionStatus = "authorized"
	TransactionCaptured   TransactionStatus = "captured"
	TransactionFailed     TransactionStatus = "failed"
	TransactionRefunded   TransactionStatus = "refunded"
)

// transactionPredecessors lists, for each target status, the statuses it may be reached from.
var transactionPredecessors = map[TransactionStatus][]TransactionStatus{
	TransactionAuthorized: {TransactionCreated},
	TransactionCaptured:   {TransactionCreated, TransactionAuthorized},
	TransactionFailed:     {TransactionCreated, TransactionAuthorized},
	TransactionRefunded:   {TransactionCaptured},
}

// AllowedPredecessors returns the statuses from which a transaction may move to target.
func AllowedPredecessors(target TransactionStatus) []TransactionStatus {
	return transactionPredecessors[target]
}

// CanTransition reports whether from -> to is a legal transaction move.
func CanTransition(from, to TransactionStatus) bool {
	for _, s := range transactionPredecessors[to] {
		if s == from {
			return true
		}
	}
	return false
}

// Transaction is stored in the transactions collection
type Transaction struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	User             primitive.ObjectID  `bson:"user" json:"userId"`
	Community        *primitive.ObjectID `bson:"community,omitempty" json:"communityId,omitempty"`
	PlanCode         string              `bson:"planCode,omitempty" json:"planCode,omitempty"`
	Purpose          PaymentPurpose      `bson:"purpose" json:"purpose"`
	Amount           int64               `bson:"amount" json:"amount"`
	Currency         string              `bson:"currency" json:"currency"`
	Status           TransactionStatus   `bson:"status" json:"status"`
	GatewaySessionID string              `bson:"gatewaySessionId,omitempty" json:"gatewaySessionId,omitempty"`
	GatewayPaymentID string              `bson:"gatewayPaymentId,omitempty" json:"gatewayPaymentId,omitempty"`
	FailureReason    string              `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	CreatedAt        time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// PlanInterval is the billing period of a plan
type PlanInterval string

const (
	IntervalMonth PlanInterval = "month"
	IntervalYear  PlanInterval = "year"
)

// PaymentPlan is stored in the payment_plans collection
type PaymentPlan struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code           string             `bson:"code" json:"code"`
	Name           string             `bson:"name" json:"name"`
	Purpose        PaymentPurpose     `bson:"purpose" json:"purpose"`
	Amount         int64              `bson:"amount" json:"amount"`
	Currency       string             `bson:"currency" json:"currency"`
	Interval       PlanInterval       `bson:"interval" json:"interval"`
	GatewayPriceID string             `bson:"gatewayPriceId,omitempty" json:"-"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CommunitySubscriptionStatus is the local copy of the gateway subscription state
type CommunitySubscriptionStatus string

const (
	CommunitySubscriptionActive    CommunitySubscriptionStatus = "active"
	CommunitySubscriptionPastDue   CommunitySubscriptionStatus = "past_due"
	CommunitySubscriptionCancelled CommunitySubscriptionStatus = "cancelled"
	CommunitySubscriptionExpired   CommunitySubscriptionStatus = "expired"
)

// CommunitySubscription is stored in the subscriptions collection
type CommunitySubscription struct {
	ID                    primitive.ObjectID          `bson:"_id,omitempty" json:"id"`
	Community             primitive.ObjectID          `bson:"community" json:"communityId"`
	User                  primitive.ObjectID          `bson:"user" json:"userId"`
	PlanCode              string                      `bson:"planCode,omitempty" json:"planCode,omitempty"`
	Purpose               PaymentPurpose              `bson:"purpose" json:"purpose"`
	Status                CommunitySubscriptionStatus `bson:"status" json:"status"`
	GatewaySubscriptionID string                      `bson:"gatewaySubscriptionId" json:"gatewaySubscriptionId"`
	CurrentPeriodEnd      *time.Time                  `bson:"currentPeriodEnd,omitempty" json:"currentPeriodEnd,omitempty"`
	CancelledAt           *time.Time                  `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CreatedAt             time.Time                   `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time                   `bson:"updatedAt" json:"updatedAt"`
}

// GrantsAccess is true while the subscription still covers the current period.
func (s *CommunitySubscription) GrantsAccess(now time.Time) bool {
	switch s.Status {
	case CommunitySubscriptionActive, CommunitySubscriptionPastDue:
		return true
	case CommunitySubscriptionCancelled:
		return s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.After(now)
	default:
		return false
	}
}
