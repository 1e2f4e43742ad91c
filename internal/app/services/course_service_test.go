package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// publishedCourse builds a published course with two lessons in one module
func publishedCourse(t *testing.T, env *testEnv, c *models.Community, admin *models.User) (primitive.ObjectID, []primitive.ObjectID) {
	t.Helper()
	svc := env.services.Courses
	course, err := svc.Create(env.ctx, c.ID, admin.ID, &dto.CreateCourseRequest{Title: "Concurrency"})
	require.NoError(t, err)
	withModule, err := svc.AddModule(env.ctx, course.ID, admin.ID, &dto.AddModuleRequest{Title: "Basics"})
	require.NoError(t, err)
	moduleID := withModule.Modules[0].ID
	_, err = svc.AddLesson(env.ctx, course.ID, moduleID, admin.ID, &dto.AddLessonRequest{Title: "Goroutines"})
	require.NoError(t, err)
	full, err := svc.AddLesson(env.ctx, course.ID, moduleID, admin.ID, &dto.AddLessonRequest{Title: "Channels"})
	require.NoError(t, err)
	_, err = svc.Publish(env.ctx, course.ID, admin.ID, true)
	require.NoError(t, err)

	lessons := full.Modules[0].Lessons
	require.Len(t, lessons, 2)
	assert.Equal(t, 1, lessons[1].Order)
	return course.ID, []primitive.ObjectID{lessons[0].ID, lessons[1].ID}
}

func TestCourse_ModeratorOnly(t *testing.T) {
	env := newTestEnv(t)
	owner, member := env.user(t, "owner"), env.user(t, "member")
	c := env.community(t, owner, nil)
	env.addMember(t, c, member)

	_, err := env.services.Courses.Create(env.ctx, c.ID, member.ID, &dto.CreateCourseRequest{Title: "Nope"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestListByCommunity_HidesDrafts(t *testing.T) {
	env := newTestEnv(t)
	owner, member := env.user(t, "owner"), env.user(t, "member")
	c := env.community(t, owner, nil)
	env.addMember(t, c, member)
	publishedCourse(t, env, c, owner)
	_, err := env.services.Courses.Create(env.ctx, c.ID, owner.ID, &dto.CreateCourseRequest{Title: "Draft"})
	require.NoError(t, err)

	forOwner, err := env.services.Courses.ListByCommunity(env.ctx, c.ID, owner.ID)
	require.NoError(t, err)
	assert.Len(t, forOwner, 2)

	forMember, err := env.services.Courses.ListByCommunity(env.ctx, c.ID, member.ID)
	require.NoError(t, err)
	require.Len(t, forMember, 1)
	assert.Equal(t, "Concurrency", forMember[0].Title)
}

func TestCompleteLesson(t *testing.T) {
	env := newTestEnv(t)
	owner, student := env.user(t, "owner"), env.user(t, "student")
	c := env.community(t, owner, nil)
	env.addMember(t, c, student)
	courseID, lessons := publishedCourse(t, env, c, owner)
	svc := env.services.Courses

	_, err := svc.CompleteLesson(env.ctx, courseID, lessons[0], student.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = svc.CompleteLesson(env.ctx, courseID, primitive.NewObjectID(), student.ID)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	enrolled, err := svc.Enroll(env.ctx, courseID, student.ID)
	require.NoError(t, err)
	assert.Zero(t, enrolled.Progress)
	assert.Equal(t, 2, enrolled.TotalLessons)

	half, err := svc.CompleteLesson(env.ctx, courseID, lessons[0], student.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, half.Progress)
	assert.False(t, half.Completed)
	assert.Equal(t, PointsLessonComplete, env.reloadUser(t, student.ID).Points)

	repeat, err := svc.CompleteLesson(env.ctx, courseID, lessons[0], student.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, repeat.Progress)
	assert.Len(t, repeat.CompletedLessons, 1)
	assert.Equal(t, PointsLessonComplete, env.reloadUser(t, student.ID).Points)

	done, err := svc.CompleteLesson(env.ctx, courseID, lessons[1], student.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, done.Progress)
	assert.True(t, done.Completed)
	assert.Equal(t, 2*PointsLessonComplete+PointsCourseComplete, env.reloadUser(t, student.ID).Points)

	stored, err := svc.GetProgress(env.ctx, courseID, student.ID)
	require.NoError(t, err)
	assert.True(t, stored.Completed)
}

func TestEnroll_RequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	owner, outsider := env.user(t, "owner"), env.user(t, "outsider")
	c := env.community(t, owner, nil)
	courseID, _ := publishedCourse(t, env, c, owner)

	_, err := env.services.Courses.Enroll(env.ctx, courseID, outsider.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = env.services.Courses.GetProgress(env.ctx, courseID, outsider.ID)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestUnenroll_DropsProgress(t *testing.T) {
	env := newTestEnv(t)
	owner, student := env.user(t, "owner"), env.user(t, "student")
	c := env.community(t, owner, nil)
	env.addMember(t, c, student)
	courseID, lessons := publishedCourse(t, env, c, owner)

	_, err := env.services.Courses.Enroll(env.ctx, courseID, student.ID)
	require.NoError(t, err)
	_, err = env.services.Courses.CompleteLesson(env.ctx, courseID, lessons[0], student.ID)
	require.NoError(t, err)

	require.NoError(t, env.services.Courses.Unenroll(env.ctx, courseID, student.ID))
	_, err = env.services.Courses.GetProgress(env.ctx, courseID, student.ID)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	err = env.services.Courses.Unenroll(env.ctx, courseID, student.ID)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestRemoveLesson_RecomputesProgress(t *testing.T) {
	env := newTestEnv(t)
	owner, done, partial := env.user(t, "owner"), env.user(t, "done"), env.user(t, "partial")
	c := env.community(t, owner, nil)
	env.addMember(t, c, done)
	env.addMember(t, c, partial)
	courseID, lessons := publishedCourse(t, env, c, owner)
	svc := env.services.Courses

	for _, u := range []*models.User{done, partial} {
		_, err := svc.Enroll(env.ctx, courseID, u.ID)
		require.NoError(t, err)
	}
	_, err := svc.CompleteLesson(env.ctx, courseID, lessons[0], done.ID)
	require.NoError(t, err)
	_, err = svc.CompleteLesson(env.ctx, courseID, lessons[0], partial.ID)
	require.NoError(t, err)

	// dropping the only unfinished lesson completes both enrollments
	_, err = svc.RemoveLesson(env.ctx, courseID, lessons[1], owner.ID)
	require.NoError(t, err)
	for _, u := range []*models.User{done, partial} {
		p, err := svc.GetProgress(env.ctx, courseID, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 100.0, p.Progress)
		assert.True(t, p.Completed)
	}

	// dropping the completed one leaves nothing done
	_, err = svc.RemoveLesson(env.ctx, courseID, lessons[0], owner.ID)
	require.NoError(t, err)
	p, err := svc.GetProgress(env.ctx, courseID, done.ID)
	require.NoError(t, err)
	assert.Zero(t, p.Progress)
	assert.False(t, p.Completed)
}

func TestCompleteLesson_RepairsUnsavedProgress(t *testing.T) {
	env := newTestEnv(t)
	owner, student := env.user(t, "owner"), env.user(t, "student")
	c := env.community(t, owner, nil)
	env.addMember(t, c, student)
	courseID, lessons := publishedCourse(t, env, c, owner)
	svc := env.services.Courses

	_, err := svc.Enroll(env.ctx, courseID, student.ID)
	require.NoError(t, err)

	// lesson recorded, progress write lost
	_, added, err := env.repos.Progress.AddCompletedLesson(env.ctx, student.ID, courseID, lessons[0], time.Now())
	require.NoError(t, err)
	require.True(t, added)

	retry, err := svc.CompleteLesson(env.ctx, courseID, lessons[0], student.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, retry.Progress)
	assert.Len(t, retry.CompletedLessons, 1)

	stored, err := svc.GetProgress(env.ctx, courseID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, stored.Progress)
}
