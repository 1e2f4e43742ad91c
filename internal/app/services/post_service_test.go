package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"github.com/yigit/circlehub/internal/pkg/helpers"
)

func TestIsSuspended(t *testing.T) {
	cases := []struct {
		name      string
		community models.Community
		suspended bool
	}{
		{"unpaid", models.Community{PaymentStatus: models.PaymentStatusUnpaid}, false},
		{"suspended after trial", models.Community{PaymentStatus: models.PaymentStatusSuspended, HasUsedTrial: true}, true},
		{"expired with payments", models.Community{PaymentStatus: models.PaymentStatusExpired, PaymentEnabled: true}, true},
		{"suspended but never billed", models.Community{PaymentStatus: models.PaymentStatusSuspended}, false},
		{"paid", models.Community{PaymentStatus: models.PaymentStatusPaid, PaymentEnabled: true}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.suspended, IsSuspended(&tc.community))
		})
	}
}

func TestCreatePost_AwardsPoints(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	c := env.community(t, owner, nil)

	post, err := env.services.Posts.Create(env.ctx, c.ID, owner.ID, &dto.CreatePostRequest{Title: "  Welcome  ", Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome", post.Title)
	assert.Equal(t, PointsPost, env.reloadUser(t, owner.ID).Points)
}

func TestCreatePost_SuspendedCommunity(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	c := env.community(t, owner, func(c *models.Community) {
		c.HasUsedTrial = true
		c.PaymentStatus = models.PaymentStatusSuspended
		c.SuspensionReason = models.SuspensionTrialExpired
	})

	_, err := env.services.Posts.Create(env.ctx, c.ID, owner.ID, &dto.CreatePostRequest{Title: "t", Content: "c"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCommunitySuspended)
	assert.Equal(t, models.SuspensionTrialExpired, apperrors.Details(err)["suspensionReason"])

	// reading still works while suspended
	_, err = env.services.Posts.ListByCommunity(env.ctx, c.ID, owner.ID, helpers.NewPage(1, 10))
	assert.NoError(t, err)

	require.NoError(t, env.services.Suspension.Reactivate(env.ctx, c.ID, time.Now().Add(30*24*time.Hour)))
	_, err = env.services.Posts.Create(env.ctx, c.ID, owner.ID, &dto.CreatePostRequest{Title: "t", Content: "c"})
	assert.NoError(t, err)
}

func TestPrivateCommunityPosts(t *testing.T) {
	env := newTestEnv(t)
	owner, outsider := env.user(t, "owner"), env.user(t, "outsider")
	c := env.community(t, owner, func(c *models.Community) { c.IsPrivate = true })
	post, err := env.services.Posts.Create(env.ctx, c.ID, owner.ID, &dto.CreatePostRequest{Title: "secret", Content: "x"})
	require.NoError(t, err)

	_, err = env.services.Posts.Get(env.ctx, mustID(t, post.ID), outsider.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	_, err = env.services.Posts.Create(env.ctx, c.ID, outsider.ID, &dto.CreatePostRequest{Title: "t", Content: "c"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestPostLikeAndPin(t *testing.T) {
	env := newTestEnv(t)
	owner, author := env.user(t, "owner"), env.user(t, "author")
	c := env.community(t, owner, nil)
	env.addMember(t, c, author)
	post, err := env.services.Posts.Create(env.ctx, c.ID, author.ID, &dto.CreatePostRequest{Title: "t", Content: "c"})
	require.NoError(t, err)
	postID := mustID(t, post.ID)

	liked, err := env.services.Posts.ToggleLike(env.ctx, postID, owner.ID)
	require.NoError(t, err)
	assert.True(t, liked.Liked)
	assert.Equal(t, PointsPost+PointsLikeReceived, env.reloadUser(t, author.ID).Points)
	notes := env.notificationsFor(t, author.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationLike, notes[0].Type)

	// liking your own post awards nothing
	_, err = env.services.Posts.ToggleLike(env.ctx, postID, author.ID)
	require.NoError(t, err)
	assert.Equal(t, PointsPost+PointsLikeReceived, env.reloadUser(t, author.ID).Points)
	assert.Len(t, env.notificationsFor(t, author.ID), 1)

	_, err = env.services.Posts.TogglePin(env.ctx, postID, author.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	pinned, err := env.services.Posts.TogglePin(env.ctx, postID, owner.ID)
	require.NoError(t, err)
	assert.True(t, pinned.IsPinned)
}

func TestUpdateAndDeletePost(t *testing.T) {
	env := newTestEnv(t)
	owner, author := env.user(t, "owner"), env.user(t, "author")
	c := env.community(t, owner, nil)
	env.addMember(t, c, author)
	post, err := env.services.Posts.Create(env.ctx, c.ID, author.ID, &dto.CreatePostRequest{Title: "t", Content: "c"})
	require.NoError(t, err)
	postID := mustID(t, post.ID)
	_, err = env.services.Comments.Create(env.ctx, postID, owner.ID, &dto.CreateCommentRequest{Content: "nice"})
	require.NoError(t, err)

	_, err = env.services.Posts.Update(env.ctx, postID, owner.ID, &dto.UpdatePostRequest{Title: "x", Content: "y"})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	updated, err := env.services.Posts.Update(env.ctx, postID, author.ID, &dto.UpdatePostRequest{Title: "new", Content: "body"})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)

	require.NoError(t, env.services.Posts.Delete(env.ctx, postID, owner.ID))
	_, err = env.repos.Posts.GetByID(env.ctx, postID)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	remaining, err := env.repos.Comments.ListByPost(env.ctx, postID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
