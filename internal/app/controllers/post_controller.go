package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/services"
	"github.com/yigit/circlehub/internal/middleware"
	"github.com/yigit/circlehub/internal/pkg/helpers"
)

// PostController handles posts and their comments
type PostController struct {
	postService    services.PostService
	commentService services.CommentService
	logger         zerolog.Logger
}

// NewPostController creates a new PostController
func NewPostController(postService services.PostService, commentService services.CommentService, logger zerolog.Logger) *PostController {
	return &PostController{
		postService:    postService,
		commentService: commentService,
		logger:         logger,
	}
}

// CreatePost publishes a post in a community
// @Summary Create post
// @Tags posts
// @Security BearerAuth
// @Param id path string true "Community ID"
// @Param request body dto.CreatePostRequest true "Post"
// @Success 201 {object} dto.APIResponse{data=dto.PostResponse}
// @Failure 403 {object} dto.ErrorResponse "Not a member or community suspended"
// @Router /communities/{id}/posts [post]
func (c *PostController) CreatePost(ctx *gin.Context) {
	userID, communityID, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	var req dto.CreatePostRequest
	if !bindJSON(ctx, &req) {
		return
	}
	post, err := c.postService.Create(ctx.Request.Context(), communityID, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewMessageResponse("Post created", post))
}

// ListPosts returns pinned posts first, newest after
// @Router /communities/{id}/posts [get]
func (c *PostController) ListPosts(ctx *gin.Context) {
	userID, communityID, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	posts, err := c.postService.ListByCommunity(ctx.Request.Context(), communityID, userID, helpers.ParsePaginationParams(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(posts))
}

// @Router /posts/{id} [get]
func (c *PostController) GetPost(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	post, err := c.postService.Get(ctx.Request.Context(), id, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(post))
}

// @Router /posts/{id} [put]
func (c *PostController) UpdatePost(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdatePostRequest
	if !bindJSON(ctx, &req) {
		return
	}
	post, err := c.postService.Update(ctx.Request.Context(), id, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Post updated", post))
}

// @Router /posts/{id} [delete]
func (c *PostController) DeletePost(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	if err := c.postService.Delete(ctx.Request.Context(), id, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Post deleted", nil))
}

// @Router /posts/{id}/like [post]
func (c *PostController) ToggleLike(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.postService.ToggleLike(ctx.Request.Context(), id, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// @Router /posts/{id}/pin [post]
func (c *PostController) TogglePin(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	post, err := c.postService.TogglePin(ctx.Request.Context(), id, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(post))
}

// CreateComment adds a comment or, with parentId, a reply
// @Summary Comment on a post
// @Tags comments
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body dto.CreateCommentRequest true "Comment"
// @Success 201 {object} dto.APIResponse{data=dto.CommentResponse}
// @Failure 400 {object} dto.ErrorResponse "Parent belongs to another post"
// @Router /posts/{id}/comments [post]
func (c *PostController) CreateComment(ctx *gin.Context) {
	userID, postID, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	var req dto.CreateCommentRequest
	if !bindJSON(ctx, &req) {
		return
	}
	comment, err := c.commentService.Create(ctx.Request.Context(), postID, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewMessageResponse("Comment created", comment))
}

// ListComments returns the flat list and the reply tree
// @Router /posts/{id}/comments [get]
func (c *PostController) ListComments(ctx *gin.Context) {
	userID, postID, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	comments, err := c.commentService.ListByPost(ctx.Request.Context(), postID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(comments))
}

// DeleteComment removes the comment and all of its replies
// @Router /comments/{id} [delete]
func (c *PostController) DeleteComment(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	if err := c.commentService.Delete(ctx.Request.Context(), id, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Comment deleted", nil))
}

// @Router /comments/{id}/like [post]
func (c *PostController) ToggleCommentLike(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	resp, err := c.commentService.ToggleLike(ctx.Request.Context(), id, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}
