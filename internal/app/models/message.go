package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a direct message between two users
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Sender    primitive.ObjectID `bson:"sender" json:"senderId"`
	Recipient primitive.ObjectID `bson:"recipient" json:"recipientId"`
	Content   string             `bson:"content" json:"content"`
	Read      bool               `bson:"read" json:"read"`
	ReadAt    *time.Time         `bson:"readAt,omitempty" json:"readAt,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// ConversationSummary is the latest message exchanged with one partner
type ConversationSummary struct {
	Partner     primitive.ObjectID `bson:"_id" json:"partnerId"`
	LastMessage Message            `bson:"lastMessage" json:"lastMessage"`
	UnreadCount int                `bson:"unreadCount" json:"unreadCount"`
}

// NotificationType classifies notifications for the client
type NotificationType string

const (
	NotificationFollow        NotificationType = "follow"
	NotificationJoinRequest   NotificationType = "join_request"
	NotificationJoinApproved  NotificationType = "join_approved"
	NotificationComment       NotificationType = "comment"
	NotificationReply         NotificationType = "reply"
	NotificationLike          NotificationType = "like"
	NotificationTrialExpiring NotificationType = "trial_expiring"
	NotificationSubscription  NotificationType = "subscription"
)

// Notification is stored in the notifications collection
type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Recipient primitive.ObjectID  `bson:"recipient" json:"recipientId"`
	Actor     *primitive.ObjectID `bson:"actor,omitempty" json:"actorId,omitempty"`
	Type      NotificationType    `bson:"type" json:"type"`
	Message   string              `bson:"message" json:"message"`
	Link      string              `bson:"link,omitempty" json:"link,omitempty"`
	Read      bool                `bson:"read" json:"read"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
}
