package dto

import "github.com/yigit/circlehub/internal/app/models"

// CreateCourseRequest represents a new course
type CreateCourseRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=5000"`
}

// UpdateCourseRequest represents a course edit
type UpdateCourseRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=5000"`
}

// PublishCourseRequest toggles visibility for non-moderators
type PublishCourseRequest struct {
	Published bool `json:"published"`
}

// AddModuleRequest appends a module to a course
type AddModuleRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

// AddLessonRequest appends a lesson to a module
type AddLessonRequest struct {
	Title    string `json:"title" binding:"required,max=200"`
	Content  string `json:"content" binding:"max=50000"`
	VideoURL string `json:"videoUrl" binding:"omitempty,url"`
	Duration int    `json:"duration" binding:"gte=0"`
}

// CourseResponse is a course with its modules and enrollment count
type CourseResponse struct {
	*models.Course
	TotalLessons  int  `json:"totalLessons"`
	EnrolledCount int  `json:"enrolledCount"`
	IsEnrolled    bool `json:"isEnrolled"`
}

// NewCourseResponse maps a course for viewer
func NewCourseResponse(c *models.Course, viewer *models.User) *CourseResponse {
	if c == nil {
		return nil
	}
	resp := &CourseResponse{
		Course:        c,
		TotalLessons:  c.TotalLessons(),
		EnrolledCount: len(c.EnrolledUsers),
	}
	if viewer != nil {
		resp.IsEnrolled = models.ContainsID(c.EnrolledUsers, viewer.ID)
	}
	return resp
}

// ProgressResponse is a user's progress through a course
type ProgressResponse struct {
	CourseID         string   `json:"courseId"`
	CompletedLessons []string `json:"completedLessons"`
	TotalLessons     int      `json:"totalLessons"`
	Progress         float64  `json:"progress"`
	Completed        bool     `json:"completed"`
}

// NewProgressResponse maps a progress record
func NewProgressResponse(p *models.UserProgress, totalLessons int) *ProgressResponse {
	if p == nil {
		return nil
	}
	ids := make([]string, 0, len(p.CompletedLessons))
	for _, id := range p.CompletedLessons {
		ids = append(ids, id.Hex())
	}
	return &ProgressResponse{
		CourseID:         p.Course.Hex(),
		CompletedLessons: ids,
		TotalLessons:     totalLessons,
		Progress:         p.Progress,
		Completed:        p.CompletedAt != nil,
	}
}
