package dto

// UpdateProfileRequest represents profile update data
type UpdateProfileRequest struct {
	Name      string `json:"name" binding:"required,max=80"`
	Bio       string `json:"bio" binding:"max=500"`
	AvatarURL string `json:"avatarUrl" binding:"omitempty,url"`
}

// UpdateUsernameRequest carries the new username; format is checked by the service as well
type UpdateUsernameRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30,username"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

// UserListResponse is a page of users
type UserListResponse struct {
	Users []*UserResponse `json:"users"`
	PaginationInfo
}
