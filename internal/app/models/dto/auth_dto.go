package dto

import (
	"time"

	"github.com/yigit/circlehub/internal/app/models"
)

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=80"`
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=30,username"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType" example:"Bearer"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// AuthResponse represents successful authentication response
type AuthResponse struct {
	Token TokenResponse `json:"token"`
	User  *UserResponse `json:"user"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Username            string     `json:"username"`
	Email               string     `json:"email,omitempty"`
	Bio                 string     `json:"bio,omitempty"`
	AvatarURL           string     `json:"avatarUrl,omitempty"`
	Points              int        `json:"points"`
	Level               int        `json:"level"`
	FollowerCount       int        `json:"followerCount"`
	FollowingCount      int        `json:"followingCount"`
	SubscriptionStatus  string     `json:"subscriptionStatus,omitempty"`
	HasUsedTrial        bool       `json:"hasUsedTrial"`
	TrialEndDate        *time.Time `json:"trialEndDate,omitempty"`
	SubscriptionEndDate *time.Time `json:"subscriptionEndDate,omitempty"`
}

// NewUserResponse maps a user; private fields (email, billing) are only set when self is true.
func NewUserResponse(u *models.User, self bool) *UserResponse {
	if u == nil {
		return nil
	}
	resp := &UserResponse{
		ID:             u.ID.Hex(),
		Name:           u.Name,
		Username:       u.Username,
		Bio:            u.Bio,
		AvatarURL:      u.Avatar,
		Points:         u.Points,
		Level:          u.Level,
		FollowerCount:  len(u.Followers),
		FollowingCount: len(u.Following),
		HasUsedTrial:   u.HasUsedTrial,
	}
	if self {
		resp.Email = u.Email
		resp.SubscriptionStatus = string(u.SubscriptionStatus)
		resp.TrialEndDate = utcTime(u.TrialEndDate)
		resp.SubscriptionEndDate = utcTime(u.SubscriptionEndDate)
	}
	return resp
}

// NewUserResponses maps a user list without private fields.
func NewUserResponses(users []models.User) []*UserResponse {
	out := make([]*UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i], false))
	}
	return out
}
