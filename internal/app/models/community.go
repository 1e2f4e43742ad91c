package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus is the platform billing state of a community
type PaymentStatus string

const (
	PaymentStatusUnpaid    PaymentStatus = "unpaid"
	PaymentStatusTrial     PaymentStatus = "trial"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusSuspended PaymentStatus = "suspended"
)

// Suspension reasons written by the expiration sweep
const (
	SuspensionTrialExpired        = "trial_expired"
	SuspensionSubscriptionExpired = "subscription_expired"
)

// JoinRequest is a pending membership request on a private community
type JoinRequest struct {
	UserID      primitive.ObjectID `bson:"user" json:"userId"`
	Message     string             `bson:"message,omitempty" json:"message,omitempty"`
	RequestedAt time.Time          `bson:"requestedAt" json:"requestedAt"`
}

// Community is stored in the communities collection
type Community struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category,omitempty" json:"category,omitempty"`
	ImageURL    string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	IsPrivate   bool               `bson:"isPrivate" json:"isPrivate"`

	Admin        primitive.ObjectID   `bson:"admin" json:"admin"`
	SubAdmins    []primitive.ObjectID `bson:"subAdmins" json:"subAdmins"`
	Members      []primitive.ObjectID `bson:"members" json:"members"`
	JoinRequests []JoinRequest        `bson:"joinRequests" json:"joinRequests,omitempty"`

	PaymentEnabled       bool   `bson:"paymentEnabled" json:"paymentEnabled"`
	SubscriptionRequired bool   `bson:"subscriptionRequired" json:"subscriptionRequired"`
	SubscriptionPrice    int64  `bson:"subscriptionPrice" json:"subscriptionPrice"`
	Currency             string `bson:"currency" json:"currency"`

	PaymentStatus       PaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	HasUsedTrial        bool          `bson:"hasUsedTrial" json:"hasUsedTrial"`
	TrialStartDate      *time.Time    `bson:"trialStartDate,omitempty" json:"trialStartDate,omitempty"`
	TrialEndDate        *time.Time    `bson:"trialEndDate,omitempty" json:"trialEndDate,omitempty"`
	SubscriptionEndDate *time.Time    `bson:"subscriptionEndDate,omitempty" json:"subscriptionEndDate,omitempty"`
	SuspendedAt         *time.Time    `bson:"suspendedAt,omitempty" json:"suspendedAt,omitempty"`
	SuspensionReason    string        `bson:"suspensionReason,omitempty" json:"suspensionReason,omitempty"`
	GatewayCustomerID   string        `bson:"gatewayCustomerId,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (c *Community) IsAdmin(userID primitive.ObjectID) bool {
	return c.Admin == userID
}

func (c *Community) IsSubAdmin(userID primitive.ObjectID) bool {
	return ContainsID(c.SubAdmins, userID)
}

// IsModerator is true for the admin and every sub-admin.
func (c *Community) IsModerator(userID primitive.ObjectID) bool {
	return c.IsAdmin(userID) || c.IsSubAdmin(userID)
}

func (c *Community) IsMember(userID primitive.ObjectID) bool {
	return ContainsID(c.Members, userID)
}

// HasPendingRequest reports whether userID already waits for approval.
func (c *Community) HasPendingRequest(userID primitive.ObjectID) bool {
	for _, r := range c.JoinRequests {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// RequiresPaidMembership is true when non-members must subscribe before joining.
func (c *Community) RequiresPaidMembership() bool {
	return c.PaymentEnabled && c.SubscriptionRequired
}
