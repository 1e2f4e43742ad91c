package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/services"
	"github.com/yigit/circlehub/internal/middleware"
)

// CourseController handles courses, enrollment and lesson progress
type CourseController struct {
	courseService services.CourseService
	logger        zerolog.Logger
}

// NewCourseController creates a new CourseController
func NewCourseController(courseService services.CourseService, logger zerolog.Logger) *CourseController {
	return &CourseController{courseService: courseService, logger: logger}
}

// CreateCourse creates a draft course; moderators only
// @Summary Create course
// @Tags courses
// @Security BearerAuth
// @Param id path string true "Community ID"
// @Param request body dto.CreateCourseRequest true "Course"
// @Success 201 {object} dto.APIResponse{data=dto.CourseResponse}
// @Router /communities/{id}/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	userID, communityID, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	var req dto.CreateCourseRequest
	if !bindJSON(ctx, &req) {
		return
	}
	course, err := c.courseService.Create(ctx.Request.Context(), communityID, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewMessageResponse("Course created", course))
}

// ListCourses hides drafts from non-moderators
// @Router /communities/{id}/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	userID, communityID, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	courses, err := c.courseService.ListByCommunity(ctx.Request.Context(), communityID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(courses))
}

// @Router /courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	course, err := c.courseService.Get(ctx.Request.Context(), id, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(course))
}

// @Router /courses/{id} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateCourseRequest
	if !bindJSON(ctx, &req) {
		return
	}
	course, err := c.courseService.Update(ctx.Request.Context(), id, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Course updated", course))
}

// @Router /courses/{id}/publish [put]
func (c *CourseController) PublishCourse(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	var req dto.PublishCourseRequest
	if !bindJSON(ctx, &req) {
		return
	}
	course, err := c.courseService.Publish(ctx.Request.Context(), id, userID, req.Published)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(course))
}

// @Router /courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	if err := c.courseService.Delete(ctx.Request.Context(), id, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Course deleted", nil))
}

// @Router /courses/{id}/modules [post]
func (c *CourseController) AddModule(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	var req dto.AddModuleRequest
	if !bindJSON(ctx, &req) {
		return
	}
	course, err := c.courseService.AddModule(ctx.Request.Context(), id, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(course))
}

// @Router /courses/{id}/modules/{moduleId}/lessons [post]
func (c *CourseController) AddLesson(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	moduleID, ok := objectIDParam(ctx, "moduleId")
	if !ok {
		return
	}
	var req dto.AddLessonRequest
	if !bindJSON(ctx, &req) {
		return
	}
	course, err := c.courseService.AddLesson(ctx.Request.Context(), id, moduleID, userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(course))
}

// @Router /courses/{id}/lessons/{lessonId} [delete]
func (c *CourseController) RemoveLesson(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	lessonID, ok := objectIDParam(ctx, "lessonId")
	if !ok {
		return
	}
	course, err := c.courseService.RemoveLesson(ctx.Request.Context(), id, lessonID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(course))
}

// Enroll requires community membership
// @Router /courses/{id}/enroll [post]
func (c *CourseController) Enroll(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	progress, err := c.courseService.Enroll(ctx.Request.Context(), id, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Enrolled", progress))
}

// @Router /courses/{id}/enroll [delete]
func (c *CourseController) Unenroll(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	if err := c.courseService.Unenroll(ctx.Request.Context(), id, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse("Unenrolled", nil))
}

// CompleteLesson is idempotent
// @Summary Complete lesson
// @Tags courses
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ProgressResponse}
// @Router /courses/{id}/lessons/{lessonId}/complete [post]
func (c *CourseController) CompleteLesson(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	lessonID, ok := objectIDParam(ctx, "lessonId")
	if !ok {
		return
	}
	progress, err := c.courseService.CompleteLesson(ctx.Request.Context(), id, lessonID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(progress))
}

// @Router /courses/{id}/progress [get]
func (c *CourseController) GetProgress(ctx *gin.Context) {
	userID, id, ok := userAndID(ctx, "id")
	if !ok {
		return
	}
	progress, err := c.courseService.GetProgress(ctx.Request.Context(), id, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(progress))
}
