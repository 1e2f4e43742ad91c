package dto

import (
	"time"

	"github.com/yigit/circlehub/internal/app/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateCommunityRequest represents community creation data
type CreateCommunityRequest struct {
	Name                 string `json:"name" binding:"required,min=3,max=80"`
	Description          string `json:"description" binding:"max=2000"`
	Category             string `json:"category" binding:"max=50"`
	ImageURL             string `json:"imageUrl" binding:"omitempty,url"`
	IsPrivate            bool   `json:"isPrivate"`
	PaymentEnabled       bool   `json:"paymentEnabled"`
	SubscriptionRequired bool   `json:"subscriptionRequired"`
	SubscriptionPrice    int64  `json:"subscriptionPrice" binding:"gte=0"`
	Currency             string `json:"currency" binding:"omitempty,len=3"`
}

// UpdateCommunityRequest represents community update data; nil fields are left unchanged
type UpdateCommunityRequest struct {
	Name                 *string `json:"name" binding:"omitempty,min=3,max=80"`
	Description          *string `json:"description" binding:"omitempty,max=2000"`
	Category             *string `json:"category" binding:"omitempty,max=50"`
	ImageURL             *string `json:"imageUrl" binding:"omitempty,url"`
	IsPrivate            *bool   `json:"isPrivate"`
	PaymentEnabled       *bool   `json:"paymentEnabled"`
	SubscriptionRequired *bool   `json:"subscriptionRequired"`
	SubscriptionPrice    *int64  `json:"subscriptionPrice" binding:"omitempty,gte=0"`
}

// JoinCommunityRequest is optional; the message is shown to moderators of private communities
type JoinCommunityRequest struct {
	Message string `json:"message" binding:"max=500"`
}

// MemberActionRequest targets a member (sub-admin changes, removals, join approvals)
type MemberActionRequest struct {
	UserID string `json:"userId" binding:"required,len=24,hexadecimal"`
}

// CommunityResponse represents community information
type CommunityResponse struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Slug                 string     `json:"slug"`
	Description          string     `json:"description"`
	Category             string     `json:"category,omitempty"`
	ImageURL             string     `json:"imageUrl,omitempty"`
	IsPrivate            bool       `json:"isPrivate"`
	AdminID              string     `json:"adminId"`
	SubAdmins            []string   `json:"subAdmins"`
	MemberCount          int        `json:"memberCount"`
	PendingRequests      int        `json:"pendingRequests,omitempty"`
	PaymentEnabled       bool       `json:"paymentEnabled"`
	SubscriptionRequired bool       `json:"subscriptionRequired"`
	SubscriptionPrice    int64      `json:"subscriptionPrice"`
	Currency             string     `json:"currency"`
	PaymentStatus        string     `json:"paymentStatus"`
	TrialEndDate         *time.Time `json:"trialEndDate,omitempty"`
	SubscriptionEndDate  *time.Time `json:"subscriptionEndDate,omitempty"`
	IsMember             bool       `json:"isMember"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// NewCommunityResponse maps a community for viewer.
func NewCommunityResponse(c *models.Community, viewer *models.User) *CommunityResponse {
	if c == nil {
		return nil
	}
	resp := &CommunityResponse{
		ID:                   c.ID.Hex(),
		Name:                 c.Name,
		Slug:                 c.Slug,
		Description:          c.Description,
		Category:             c.Category,
		ImageURL:             c.ImageURL,
		IsPrivate:            c.IsPrivate,
		AdminID:              c.Admin.Hex(),
		SubAdmins:            hexIDs(c.SubAdmins),
		MemberCount:          len(c.Members),
		PaymentEnabled:       c.PaymentEnabled,
		SubscriptionRequired: c.SubscriptionRequired,
		SubscriptionPrice:    c.SubscriptionPrice,
		Currency:             c.Currency,
		PaymentStatus:        string(c.PaymentStatus),
		TrialEndDate:         utcTime(c.TrialEndDate),
		SubscriptionEndDate:  utcTime(c.SubscriptionEndDate),
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
	if viewer != nil {
		resp.IsMember = c.IsMember(viewer.ID)
		if c.IsModerator(viewer.ID) {
			resp.PendingRequests = len(c.JoinRequests)
		}
	}
	return resp
}

// CommunityListResponse represents a page of communities
type CommunityListResponse struct {
	Communities []*CommunityResponse `json:"communities"`
	PaginationInfo
}

// JoinCommunityResponse reports the outcome of a join attempt
type JoinCommunityResponse struct {
	Status    string             `json:"status" example:"joined" enums:"joined,pending"`
	Community *CommunityResponse `json:"community"`
}

// LeaderboardEntry is one member ranked by points
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Points   int    `json:"points"`
	Level    int    `json:"level"`
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}
