package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/services"
	"github.com/yigit/circlehub/internal/middleware"
	"github.com/yigit/circlehub/internal/pkg/helpers"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommunityController handles community related operations
type CommunityController struct {
	communityService    services.CommunityService
	gamificationService services.GamificationService
	logger              zerolog.Logger
}

// NewCommunityController creates a new CommunityController
func NewCommunityController(communityService services.CommunityService, gamificationService services.GamificationService, logger zerolog.Logger) *CommunityController {
	return &CommunityController{
		communityService:    communityService,
		gamificationService: gamificationService,
		logger:              logger,
	}
}

// ListCommunities handles retrieving communities with optional search
// @Summary List communities
// @Tags communities
// @Security BearerAuth
// @Param search query string false "Search by name or description"
// @Param page query int false "Page number (1-based)" default(1) minimum(1)
// @Param size query int false "Page size (max 100)" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.CommunityListResponse}
// @Router /communities [get]
func (c *CommunityController) ListCommunities(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	resp, err := c.communityService.List(ctx.Request.Context(), ctx.Query("search"), helpers.ParsePaginationParams(ctx), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// ListMyCommunities lists the communities the current user belongs to
// @Router /communities/mine [get]
func (c *CommunityController) ListMyCommunities(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	resp, err := c.communityService.ListMine(ctx.Request.Context(), userID, helpers.ParsePaginationParams(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// CreateCommunity creates a community administered by the caller
// @Summary Create community
// @Tags communities
// @Security BearerAuth
// @Param request body dto.CreateCommunityRequest true "Community"
// @Success 201 {object} dto.APIResponse{data=dto.CommunityResponse}
// @Router /communities [post]
func (c *CommunityController) CreateCommunity(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req dto.CreateCommunityRequest
	if !bindJSON(ctx, &req) {
		return
	}
	community, err := c.communityService.Create(ctx.Request.Context(), userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.logger.Info().Str("communityID", community.ID).Str("slug", community.Slug).Msg("Community created")
	ctx.JSON(http.StatusCreated, dto.NewMessageResponse("Community created", community))
}

// GetCommunity accepts an id or a slug
// @Summary Get community by ID or slug
// @Tags communities
// @Security BearerAuth
// @Param id path string true "Community ID or slug"
// @Success 200 {object} dto.APIResponse{data=dto.CommunityResponse}
// @Failure 404 {object} dto.ErrorResponse "Community not found"
// @Router /communities/{id} [get]
func (c *CommunityController) GetCommunity(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	community, err := c.communityService.Get(ctx.Request.Context(), ctx.Param("id"), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(community))
}

// UpdateCommunity applies the non-nil fields of the body
// @Router /communities/{id} [put]
func (c *CommunityController) UpdateCommunity(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateCommunityRequest
	if !bindJSON(ctx, &req) {
		return
	}
	community, err := c.communityService.Update(ctx.Request.Context(), id, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Community updated", community))
}

// DeleteCommunity removes a community with its posts and courses
// @Router /communities/{id} [delete]
func (c *CommunityController) DeleteCommunity(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	if err := c.communityService.Delete(ctx.Request.Context(), id, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.logger.Info().Str("communityID", id.Hex()).Msg("Community deleted")
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Community deleted", nil))
}

// JoinCommunity joins directly or files a join request for private communities.
// A pending request answers 202.
// @Summary Join community
// @Tags communities
// @Security BearerAuth
// @Param request body dto.JoinCommunityRequest false "Message for moderators"
// @Success 200 {object} dto.APIResponse{data=dto.JoinCommunityResponse} "Joined"
// @Success 202 {object} dto.APIResponse{data=dto.JoinCommunityResponse} "Request pending"
// @Failure 402 {object} dto.ErrorResponse "Subscription required"
// @Failure 409 {object} dto.ErrorResponse "Already a member or request pending"
// @Router /communities/{id}/join [post]
func (c *CommunityController) JoinCommunity(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	var req dto.JoinCommunityRequest
	if ctx.Request.ContentLength > 0 && !bindJSON(ctx, &req) {
		return
	}

	resp, err := c.communityService.Join(ctx.Request.Context(), id, userID, req.Message)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if resp.Status == services.JoinStatusPending {
		ctx.JSON(http.StatusAccepted, dto.NewMessageResponse("Join request sent", resp))
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Joined community", resp))
}

// LeaveCommunity removes the caller from the members
// @Router /communities/{id}/leave [post]
func (c *CommunityController) LeaveCommunity(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	if err := c.communityService.Leave(ctx.Request.Context(), id, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Left community", nil))
}

// ListJoinRequests is visible to moderators only
// @Router /communities/{id}/join-requests [get]
func (c *CommunityController) ListJoinRequests(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	requests, err := c.communityService.ListJoinRequests(ctx.Request.Context(), id, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(requests))
}

// memberAction parses /:id and /:userId for moderator actions on a member
func memberAction(ctx *gin.Context) (moderatorID, communityID, memberID primitive.ObjectID, ok bool) {
	moderatorID, communityID, ok = userAndID(ctx, "id")
	if !ok {
		return
	}
	memberID, ok = objectIDParam(ctx, "userId")
	return
}

// @Router /communities/{id}/join-requests/{userId}/approve [post]
func (c *CommunityController) ApproveJoinRequest(ctx *gin.Context) {
	moderatorID, communityID, memberID, ok := memberAction(ctx)
	if !ok {
		return
	}
	if err := c.communityService.ApproveJoinRequest(ctx.Request.Context(), communityID, moderatorID, memberID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Join request approved", nil))
}

// @Router /communities/{id}/join-requests/{userId}/reject [post]
func (c *CommunityController) RejectJoinRequest(ctx *gin.Context) {
	moderatorID, communityID, memberID, ok := memberAction(ctx)
	if !ok {
		return
	}
	if err := c.communityService.RejectJoinRequest(ctx.Request.Context(), communityID, moderatorID, memberID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Join request rejected", nil))
}

// AddSubAdmin promotes a member; admin only
// @Param request body dto.MemberActionRequest true "Member"
// @Router /communities/{id}/sub-admins [post]
func (c *CommunityController) AddSubAdmin(ctx *gin.Context) {
	adminID, communityID, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	var req dto.MemberActionRequest
	if !bindJSON(ctx, &req) {
		return
	}
	memberID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}
	if err := c.communityService.AddSubAdmin(ctx.Request.Context(), communityID, adminID, memberID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Sub-admin added", nil))
}

// @Router /communities/{id}/sub-admins/{userId} [delete]
func (c *CommunityController) RemoveSubAdmin(ctx *gin.Context) {
	adminID, communityID, memberID, ok := memberAction(ctx)
	if !ok {
		return
	}
	if err := c.communityService.RemoveSubAdmin(ctx.Request.Context(), communityID, adminID, memberID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Sub-admin removed", nil))
}

// @Router /communities/{id}/members/{userId} [delete]
func (c *CommunityController) RemoveMember(ctx *gin.Context) {
	moderatorID, communityID, memberID, ok := memberAction(ctx)
	if !ok {
		return
	}
	if err := c.communityService.RemoveMember(ctx.Request.Context(), communityID, moderatorID, memberID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Member removed", nil))
}

// @Router /communities/{id}/members [get]
func (c *CommunityController) ListMembers(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	members, err := c.communityService.ListMembers(ctx.Request.Context(), id, userID, helpers.ParsePaginationParams(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(members))
}

// Leaderboard ranks members by points
// @Param limit query int false "Entries (max 100)" default(10)
// @Success 200 {object} dto.APIResponse{data=[]dto.LeaderboardEntry}
// @Router /communities/{id}/leaderboard [get]
func (c *CommunityController) Leaderboard(ctx *gin.Context) {
	id, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}
	entries, err := c.gamificationService.Leaderboard(ctx.Request.Context(), id, intQuery(ctx, "limit", 0))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(entries))
}
