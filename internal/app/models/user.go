package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubscriptionStatus is the personal plan state of a user
type SubscriptionStatus string

const (
	SubscriptionNone      SubscriptionStatus = "none"
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// User is stored in the users collection
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	Username string             `bson:"username" json:"username"`
	Password string             `bson:"password" json:"-"`
	Bio      string             `bson:"bio,omitempty" json:"bio,omitempty"`
	Avatar   string             `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`

	Points int `bson:"points" json:"points"`
	Level  int `bson:"level" json:"level"`

	Followers []primitive.ObjectID `bson:"followers" json:"followers"`
	Following []primitive.ObjectID `bson:"following" json:"following"`

	HasUsedTrial        bool               `bson:"hasUsedTrial" json:"hasUsedTrial"`
	TrialStartDate      *time.Time         `bson:"trialStartDate,omitempty" json:"trialStartDate,omitempty"`
	TrialEndDate        *time.Time         `bson:"trialEndDate,omitempty" json:"trialEndDate,omitempty"`
	SubscriptionStatus  SubscriptionStatus `bson:"subscriptionStatus" json:"subscriptionStatus"`
	SubscriptionEndDate *time.Time         `bson:"subscriptionEndDate,omitempty" json:"subscriptionEndDate,omitempty"`
	GatewayCustomerID   string             `bson:"gatewayCustomerId,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
