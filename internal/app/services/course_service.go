package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/app/repositories"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CourseService defines the interface for courses, enrollment and progress
type CourseService interface {
	Create(ctx context.Context, communityID, userID primitive.ObjectID, req *dto.CreateCourseRequest) (*dto.CourseResponse, error)
	Get(ctx context.Context, id, userID primitive.ObjectID) (*dto.CourseResponse, error)
	ListByCommunity(ctx context.Context, communityID, userID primitive.ObjectID) ([]*dto.CourseResponse, error)
	Update(ctx context.Context, id, userID primitive.ObjectID, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error)
	Publish(ctx context.Context, id, userID primitive.ObjectID, published bool) (*dto.CourseResponse, error)
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
	AddModule(ctx context.Context, id, userID primitive.ObjectID, req *dto.AddModuleRequest) (*dto.CourseResponse, error)
	AddLesson(ctx context.Context, id, moduleID, userID primitive.ObjectID, req *dto.AddLessonRequest) (*dto.CourseResponse, error)
	RemoveLesson(ctx context.Context, id, lessonID, userID primitive.ObjectID) (*dto.CourseResponse, error)
	Enroll(ctx context.Context, id, userID primitive.ObjectID) (*dto.ProgressResponse, error)
	Unenroll(ctx context.Context, id, userID primitive.ObjectID) error
	CompleteLesson(ctx context.Context, id, lessonID, userID primitive.ObjectID) (*dto.ProgressResponse, error)
	GetProgress(ctx context.Context, id, userID primitive.ObjectID) (*dto.ProgressResponse, error)
}

type courseServiceImpl struct {
	courseRepo    repositories.CourseRepository
	progressRepo  repositories.ProgressRepository
	communityRepo repositories.CommunityRepository
	gamification  GamificationService
	logger        zerolog.Logger
}

// NewCourseService creates a new CourseService
func NewCourseService(
	courseRepo repositories.CourseRepository,
	progressRepo repositories.ProgressRepository,
	communityRepo repositories.CommunityRepository,
	gamification GamificationService,
	logger zerolog.Logger,
) CourseService {
	return &courseServiceImpl{
		courseRepo:    courseRepo,
		progressRepo:  progressRepo,
		communityRepo: communityRepo,
		gamification:  gamification,
		logger:        logger,
	}
}

func (s *courseServiceImpl) Create(ctx context.Context, communityID, userID primitive.ObjectID, req *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	if _, err := requireModerator(ctx, s.communityRepo, communityID, userID); err != nil {
		return nil, err
	}
	course := &models.Course{
		Community:     communityID,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		CreatedBy:     userID,
		EnrolledUsers: []primitive.ObjectID{},
		Modules:       []models.Module{},
	}
	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, err
	}
	s.logger.Info().Str("courseID", course.ID.Hex()).Str("communityID", communityID.Hex()).Msg("Course created")
	return dto.NewCourseResponse(course, viewerOf(userID)), nil
}

func (s *courseServiceImpl) Get(ctx context.Context, id, userID primitive.ObjectID) (*dto.CourseResponse, error) {
	course, community, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(community, userID) {
		return nil, apperrors.NewForbiddenError("courses of private communities are only visible to members")
	}
	if !course.IsPublished && !community.IsModerator(userID) {
		return nil, apperrors.NewResourceNotFoundError("course not found")
	}
	return dto.NewCourseResponse(course, viewerOf(userID)), nil
}

func (s *courseServiceImpl) ListByCommunity(ctx context.Context, communityID, userID primitive.ObjectID) ([]*dto.CourseResponse, error) {
	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if !canRead(community, userID) {
		return nil, apperrors.NewForbiddenError("courses of private communities are only visible to members")
	}
	courses, err := s.courseRepo.ListByCommunity(ctx, communityID, !community.IsModerator(userID))
	if err != nil {
		return nil, err
	}
	viewer := viewerOf(userID)
	out := make([]*dto.CourseResponse, 0, len(courses))
	for i := range courses {
		out = append(out, dto.NewCourseResponse(&courses[i], viewer))
	}
	return out, nil
}

func (s *courseServiceImpl) Update(ctx context.Context, id, userID primitive.ObjectID, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error) {
	if _, err := s.loadAsModerator(ctx, id, userID); err != nil {
		return nil, err
	}
	if err := s.courseRepo.Update(ctx, id, strings.TrimSpace(req.Title), req.Description); err != nil {
		return nil, err
	}
	return s.reload(ctx, id, userID)
}

func (s *courseServiceImpl) Publish(ctx context.Context, id, userID primitive.ObjectID, published bool) (*dto.CourseResponse, error) {
	if _, err := s.loadAsModerator(ctx, id, userID); err != nil {
		return nil, err
	}
	if err := s.courseRepo.SetPublished(ctx, id, published); err != nil {
		return nil, err
	}
	return s.reload(ctx, id, userID)
}

func (s *courseServiceImpl) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	if _, err := s.loadAsModerator(ctx, id, userID); err != nil {
		return err
	}
	if err := s.courseRepo.Delete(ctx, id); err != nil {
		return err
	}
	removed, err := s.progressRepo.DeleteByCourse(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("courseID", id.Hex()).Msg("Failed to delete course progress")
	}
	s.logger.Info().Str("courseID", id.Hex()).Int64("progressDeleted", removed).Msg("Course deleted")
	return nil
}

func (s *courseServiceImpl) AddModule(ctx context.Context, id, userID primitive.ObjectID, req *dto.AddModuleRequest) (*dto.CourseResponse, error) {
	course, err := s.loadAsModerator(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	module := models.Module{
		ID:      primitive.NewObjectID(),
		Title:   strings.TrimSpace(req.Title),
		Order:   len(course.Modules),
		Lessons: []models.Lesson{},
	}
	if err := s.courseRepo.AddModule(ctx, id, module); err != nil {
		return nil, err
	}
	return s.reload(ctx, id, userID)
}

func (s *courseServiceImpl) AddLesson(ctx context.Context, id, moduleID, userID primitive.ObjectID, req *dto.AddLessonRequest) (*dto.CourseResponse, error) {
	course, err := s.loadAsModerator(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	idx := course.FindModule(moduleID)
	if idx < 0 {
		return nil, apperrors.NewResourceNotFoundError("module not found")
	}
	lesson := models.Lesson{
		ID:       primitive.NewObjectID(),
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
		VideoURL: req.VideoURL,
		Duration: req.Duration,
		Order:    len(course.Modules[idx].Lessons),
	}
	if err := s.courseRepo.AddLesson(ctx, id, moduleID, lesson); err != nil {
		return nil, err
	}
	return s.reload(ctx, id, userID)
}

func (s *courseServiceImpl) RemoveLesson(ctx context.Context, id, lessonID, userID primitive.ObjectID) (*dto.CourseResponse, error) {
	course, err := s.loadAsModerator(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if _, ok := course.FindLesson(lessonID); !ok {
		return nil, apperrors.NewResourceNotFoundError("lesson not found")
	}
	if err := s.courseRepo.RemoveLesson(ctx, id, lessonID); err != nil {
		return nil, err
	}
	s.resyncProgress(ctx, id)
	return s.reload(ctx, id, userID)
}

// resyncProgress recomputes every enrollment after the lesson set changed.
// Failures are logged; the next completion or removal repairs the record.
func (s *courseServiceImpl) resyncProgress(ctx context.Context, id primitive.ObjectID) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("courseID", id.Hex()).Msg("Failed to reload course for progress resync")
		return
	}
	records, err := s.progressRepo.ListByCourse(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("courseID", id.Hex()).Msg("Failed to list course progress")
		return
	}
	now := time.Now().UTC()
	for i := range records {
		if _, err := s.syncProgress(ctx, course, &records[i], now); err != nil {
			s.logger.Error().Err(err).
				Str("courseID", id.Hex()).
				Str("userID", records[i].User.Hex()).
				Msg("Failed to resync progress")
		}
	}
}

// syncProgress brings progress and completedAt in line with the lessons the
// course has now. finished is true when the record just reached 100%.
func (s *courseServiceImpl) syncProgress(ctx context.Context, course *models.Course, p *models.UserProgress, now time.Time) (bool, error) {
	pct := models.CalculateProgress(countExisting(course, p.CompletedLessons), course.TotalLessons())
	completedAt := p.CompletedAt
	finished := false
	switch {
	case pct >= 100 && completedAt == nil:
		completedAt, finished = &now, true
	case pct < 100:
		completedAt = nil
	}
	if pct == p.Progress && (completedAt == nil) == (p.CompletedAt == nil) {
		return false, nil
	}
	if err := s.progressRepo.SetProgress(ctx, p.ID, pct, completedAt); err != nil {
		return false, err
	}
	p.Progress, p.CompletedAt = pct, completedAt
	return finished, nil
}

func (s *courseServiceImpl) Enroll(ctx context.Context, id, userID primitive.ObjectID) (*dto.ProgressResponse, error) {
	course, community, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !community.IsMember(userID) {
		return nil, apperrors.NewForbiddenError("you must be a member of this community to enroll")
	}
	if !course.IsPublished && !community.IsModerator(userID) {
		return nil, apperrors.NewResourceNotFoundError("course not found")
	}
	if err := s.courseRepo.Enroll(ctx, id, userID); err != nil {
		return nil, err
	}

	progress, err := s.progressRepo.Get(ctx, userID, id)
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		progress = &models.UserProgress{
			User:             userID,
			Course:           id,
			CompletedLessons: []primitive.ObjectID{},
			LastAccessedAt:   time.Now().UTC(),
		}
		err = s.progressRepo.Create(ctx, progress)
		// a concurrent enroll created it first
		if errors.Is(err, apperrors.ErrConflict) {
			progress, err = s.progressRepo.Get(ctx, userID, id)
		}
	}
	if err != nil {
		return nil, err
	}
	return dto.NewProgressResponse(progress, course.TotalLessons()), nil
}

func (s *courseServiceImpl) Unenroll(ctx context.Context, id, userID primitive.ObjectID) error {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !models.ContainsID(course.EnrolledUsers, userID) {
		return apperrors.NewBadRequestError("you are not enrolled in this course")
	}
	if err := s.courseRepo.Unenroll(ctx, id, userID); err != nil {
		return err
	}
	if err := s.progressRepo.Delete(ctx, userID, id); err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
		return err
	}
	return nil
}

// CompleteLesson records lessonID once. Repeating it returns the stored progress unchanged.
func (s *courseServiceImpl) CompleteLesson(ctx context.Context, id, lessonID, userID primitive.ObjectID) (*dto.ProgressResponse, error) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := course.FindLesson(lessonID); !ok {
		return nil, apperrors.NewResourceNotFoundError("lesson not found in this course")
	}
	if !models.ContainsID(course.EnrolledUsers, userID) {
		return nil, apperrors.NewForbiddenError("you must enroll in this course first")
	}

	now := time.Now().UTC()
	progress, added, err := s.progressRepo.AddCompletedLesson(ctx, userID, id, lessonID, now)
	if err != nil {
		return nil, err
	}
	// a repeat is a no-op unless an earlier attempt stored the lesson but not its progress
	finished, err := s.syncProgress(ctx, course, progress, now)
	if err != nil {
		return nil, err
	}

	if added {
		s.gamification.Award(ctx, userID, PointsLessonComplete, "lesson")
	}
	if finished {
		s.gamification.Award(ctx, userID, PointsCourseComplete, "course")
		s.logger.Info().Str("courseID", id.Hex()).Str("userID", userID.Hex()).Msg("Course completed")
	}
	return dto.NewProgressResponse(progress, course.TotalLessons()), nil
}

func (s *courseServiceImpl) GetProgress(ctx context.Context, id, userID primitive.ObjectID) (*dto.ProgressResponse, error) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	progress, err := s.progressRepo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.NewResourceNotFoundError("you are not enrolled in this course")
		}
		return nil, err
	}
	return dto.NewProgressResponse(progress, course.TotalLessons()), nil
}

// countExisting ignores completed lessons that were removed from the course since
func countExisting(course *models.Course, completed []primitive.ObjectID) int {
	n := 0
	for _, id := range completed {
		if _, ok := course.FindLesson(id); ok {
			n++
		}
	}
	return n
}

func (s *courseServiceImpl) load(ctx context.Context, id primitive.ObjectID) (*models.Course, *models.Community, error) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	community, err := s.communityRepo.GetByID(ctx, course.Community)
	if err != nil {
		return nil, nil, err
	}
	return course, community, nil
}

func (s *courseServiceImpl) loadAsModerator(ctx context.Context, id, userID primitive.ObjectID) (*models.Course, error) {
	course, community, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !community.IsModerator(userID) {
		return nil, apperrors.NewForbiddenError("only community moderators can manage courses")
	}
	return course, nil
}

func (s *courseServiceImpl) reload(ctx context.Context, id, userID primitive.ObjectID) (*dto.CourseResponse, error) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewCourseResponse(course, viewerOf(userID)), nil
}
