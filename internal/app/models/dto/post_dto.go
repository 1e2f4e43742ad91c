package dto

import (
	"time"

	"github.com/yigit/circlehub/internal/app/models"
)

// CreatePostRequest represents a new post
type CreatePostRequest struct {
	Title   string `json:"title" binding:"required,max=200"`
	Content string `json:"content" binding:"required,max=20000"`
}

// UpdatePostRequest represents a post edit
type UpdatePostRequest struct {
	Title   string `json:"title" binding:"required,max=200"`
	Content string `json:"content" binding:"required,max=20000"`
}

// PostResponse is a post as seen by a viewer
type PostResponse struct {
	ID           string    `json:"id"`
	CommunityID  string    `json:"communityId"`
	AuthorID     string    `json:"authorId"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	LikeCount    int       `json:"likeCount"`
	LikedByMe    bool      `json:"likedByMe"`
	CommentCount int       `json:"commentCount"`
	IsPinned     bool      `json:"isPinned"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewPostResponse maps a post
func NewPostResponse(p *models.Post, viewer *models.User) *PostResponse {
	if p == nil {
		return nil
	}
	resp := &PostResponse{
		ID:           p.ID.Hex(),
		CommunityID:  p.Community.Hex(),
		AuthorID:     p.Author.Hex(),
		Title:        p.Title,
		Content:      p.Content,
		LikeCount:    len(p.Likes),
		CommentCount: p.CommentCount,
		IsPinned:     p.IsPinned,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if viewer != nil {
		resp.LikedByMe = models.ContainsID(p.Likes, viewer.ID)
	}
	return resp
}

// PostListResponse represents a page of posts
type PostListResponse struct {
	Posts []*PostResponse `json:"posts"`
	PaginationInfo
}

// LikeResponse is returned by like toggles
type LikeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// CreateCommentRequest represents a new comment; ParentID makes it a reply
type CreateCommentRequest struct {
	Content  string `json:"content" binding:"required,max=5000"`
	ParentID string `json:"parentId" binding:"omitempty,len=24,hexadecimal"`
}

// CommentResponse is a comment with its replies when returned as a tree
type CommentResponse struct {
	ID        string             `json:"id"`
	PostID    string             `json:"postId"`
	AuthorID  string             `json:"authorId"`
	Content   string             `json:"content"`
	ParentID  string             `json:"parentId,omitempty"`
	LikeCount int                `json:"likeCount"`
	CreatedAt time.Time          `json:"createdAt"`
	Replies   []*CommentResponse `json:"replies,omitempty"`
}

// NewCommentResponse maps a comment without replies
func NewCommentResponse(c *models.Comment) *CommentResponse {
	if c == nil {
		return nil
	}
	resp := &CommentResponse{
		ID:        c.ID.Hex(),
		PostID:    c.Post.Hex(),
		AuthorID:  c.Author.Hex(),
		Content:   c.Content,
		LikeCount: len(c.Likes),
		CreatedAt: c.CreatedAt,
	}
	if c.Parent != nil {
		resp.ParentID = c.Parent.Hex()
	}
	return resp
}

// CommentListResponse returns both the flat list and the reply tree
type CommentListResponse struct {
	Comments []*CommentResponse `json:"comments"`
	Tree     []*CommentResponse `json:"tree"`
}
