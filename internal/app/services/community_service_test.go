package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"github.com/yigit/circlehub/internal/pkg/helpers"
)

func TestCreateCommunity_SlugSuffix(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	svc := env.services.Communities

	first, err := svc.Create(env.ctx, owner.ID, &dto.CreateCommunityRequest{Name: "Go Builders!"})
	require.NoError(t, err)
	second, err := svc.Create(env.ctx, owner.ID, &dto.CreateCommunityRequest{Name: "go builders"})
	require.NoError(t, err)
	third, err := svc.Create(env.ctx, owner.ID, &dto.CreateCommunityRequest{Name: "Go   Builders"})
	require.NoError(t, err)

	assert.Equal(t, "go-builders", first.Slug)
	assert.Equal(t, "go-builders-2", second.Slug)
	assert.Equal(t, "go-builders-3", third.Slug)
	assert.Equal(t, string(models.PaymentStatusUnpaid), first.PaymentStatus)
	assert.Equal(t, 1, first.MemberCount)
	assert.True(t, first.IsMember)
	assert.Equal(t, "usd", first.Currency)
}

func TestUpdateCommunity_KeepsSlug(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	created, err := env.services.Communities.Create(env.ctx, owner.ID, &dto.CreateCommunityRequest{Name: "Original"})
	require.NoError(t, err)
	c, err := env.repos.Communities.GetBySlug(env.ctx, created.Slug)
	require.NoError(t, err)

	name := "Renamed"
	updated, err := env.services.Communities.Update(env.ctx, c.ID, owner.ID, &dto.UpdateCommunityRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "original", updated.Slug)

	stranger := env.user(t, "stranger")
	_, err = env.services.Communities.Update(env.ctx, c.ID, stranger.ID, &dto.UpdateCommunityRequest{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestJoin_PaidCommunityRequiresPayment(t *testing.T) {
	env := newTestEnv(t)
	owner, joiner := env.user(t, "owner"), env.user(t, "joiner")
	c := env.community(t, owner, func(c *models.Community) {
		c.PaymentEnabled = true
		c.SubscriptionRequired = true
		c.SubscriptionPrice = 1500
		c.Currency = "eur"
	})

	_, err := env.services.Communities.Join(env.ctx, c.ID, joiner.ID, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPaymentRequired)
	details := apperrors.Details(err)
	assert.Equal(t, true, details["requiresPayment"])
	assert.Equal(t, int64(1500), details["price"])
	assert.Equal(t, "eur", details["currency"])
	assert.False(t, env.reloadCommunity(t, c.ID).IsMember(joiner.ID))
}

func TestJoin_PaidCommunityWithActiveSubscription(t *testing.T) {
	env := newTestEnv(t)
	owner, joiner := env.user(t, "owner"), env.user(t, "joiner")
	c := env.community(t, owner, func(c *models.Community) {
		c.PaymentEnabled = true
		c.SubscriptionRequired = true
		c.SubscriptionPrice = 1500
	})
	end := time.Now().Add(24 * time.Hour)
	require.NoError(t, env.repos.Subscriptions.Upsert(env.ctx, &models.CommunitySubscription{
		Community:             c.ID,
		User:                  joiner.ID,
		Purpose:               models.PurposeMembership,
		Status:                models.CommunitySubscriptionActive,
		GatewaySubscriptionID: "sub_1",
		CurrentPeriodEnd:      &end,
	}))

	resp, err := env.services.Communities.Join(env.ctx, c.ID, joiner.ID, "")
	require.NoError(t, err)
	assert.Equal(t, JoinStatusJoined, resp.Status)
	assert.True(t, resp.Community.IsMember)
}

func TestJoin_PrivateCommunityQueuesRequest(t *testing.T) {
	env := newTestEnv(t)
	owner, mod, joiner := env.user(t, "owner"), env.user(t, "mod"), env.user(t, "joiner")
	c := env.community(t, owner, func(c *models.Community) { c.IsPrivate = true })
	env.addMember(t, c, mod)
	require.NoError(t, env.repos.Communities.AddSubAdmin(env.ctx, c.ID, mod.ID))

	resp, err := env.services.Communities.Join(env.ctx, c.ID, joiner.ID, "let me in")
	require.NoError(t, err)
	assert.Equal(t, JoinStatusPending, resp.Status)

	_, err = env.services.Communities.Join(env.ctx, c.ID, joiner.ID, "again")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	for _, m := range []*models.User{owner, mod} {
		notes := env.notificationsFor(t, m.ID)
		require.Len(t, notes, 1)
		assert.Equal(t, models.NotificationJoinRequest, notes[0].Type)
	}

	requests, err := env.services.Communities.ListJoinRequests(env.ctx, c.ID, mod.ID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "let me in", requests[0].Message)

	require.NoError(t, env.services.Communities.ApproveJoinRequest(env.ctx, c.ID, mod.ID, joiner.ID))
	updated := env.reloadCommunity(t, c.ID)
	assert.True(t, updated.IsMember(joiner.ID))
	assert.Empty(t, updated.JoinRequests)

	notes := env.notificationsFor(t, joiner.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationJoinApproved, notes[0].Type)
}

func TestJoin_AlreadyMember(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	c := env.community(t, owner, nil)

	_, err := env.services.Communities.Join(env.ctx, c.ID, owner.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestLeave(t *testing.T) {
	env := newTestEnv(t)
	owner, sub := env.user(t, "owner"), env.user(t, "sub")
	c := env.community(t, owner, nil)
	env.addMember(t, c, sub)
	require.NoError(t, env.services.Communities.AddSubAdmin(env.ctx, c.ID, owner.ID, sub.ID))

	err := env.services.Communities.Leave(env.ctx, c.ID, owner.ID)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	require.NoError(t, env.services.Communities.Leave(env.ctx, c.ID, sub.ID))
	updated := env.reloadCommunity(t, c.ID)
	assert.False(t, updated.IsMember(sub.ID))
	assert.False(t, updated.IsSubAdmin(sub.ID))
}

func TestRemoveMember_Rules(t *testing.T) {
	env := newTestEnv(t)
	owner, subA, subB, member := env.user(t, "owner"), env.user(t, "suba"), env.user(t, "subb"), env.user(t, "member")
	c := env.community(t, owner, nil)
	for _, u := range []*models.User{subA, subB, member} {
		env.addMember(t, c, u)
	}
	svc := env.services.Communities
	require.NoError(t, svc.AddSubAdmin(env.ctx, c.ID, owner.ID, subA.ID))
	require.NoError(t, svc.AddSubAdmin(env.ctx, c.ID, owner.ID, subB.ID))

	err := svc.AddSubAdmin(env.ctx, c.ID, subA.ID, member.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	err = svc.RemoveMember(env.ctx, c.ID, subA.ID, owner.ID)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	err = svc.RemoveMember(env.ctx, c.ID, subA.ID, subB.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	require.NoError(t, svc.RemoveMember(env.ctx, c.ID, subA.ID, member.ID))
	require.NoError(t, svc.RemoveMember(env.ctx, c.ID, owner.ID, subB.ID))

	updated := env.reloadCommunity(t, c.ID)
	assert.False(t, updated.IsMember(member.ID))
	assert.False(t, updated.IsSubAdmin(subB.ID))
}

func TestListMembers_Paginates(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	c := env.community(t, owner, nil)
	for _, name := range []string{"a1", "a2", "a3", "a4"} {
		env.addMember(t, c, env.user(t, name))
	}

	page, err := env.services.Communities.ListMembers(env.ctx, c.ID, owner.ID, helpers.NewPage(2, 2))
	require.NoError(t, err)
	assert.Len(t, page.Users, 2)
	assert.Equal(t, int64(5), page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
}

func TestDeleteCommunity_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	owner, member := env.user(t, "owner"), env.user(t, "member")
	c := env.community(t, owner, nil)
	env.addMember(t, c, member)
	require.NoError(t, env.repos.Posts.Create(env.ctx, &models.Post{Community: c.ID, Author: member.ID, Title: "t"}))

	err := env.services.Communities.Delete(env.ctx, c.ID, member.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	require.NoError(t, env.services.Communities.Delete(env.ctx, c.ID, owner.ID))
	_, err = env.repos.Communities.GetByID(env.ctx, c.ID)
	assert.True(t, errors.Is(err, apperrors.ErrResourceNotFound))
	_, total, err := env.repos.Posts.ListByCommunity(env.ctx, c.ID, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}
