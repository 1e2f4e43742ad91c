package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
)

func register(t *testing.T, env *testEnv, username string) *dto.AuthResponse {
	t.Helper()
	resp, err := env.services.Auth.Register(env.ctx, &dto.RegisterRequest{
		Name:     "User " + username,
		Email:    username + "@Example.com",
		Username: username,
		Password: "supersecret",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	resp := register(t, env, "gopher")
	assert.NotEmpty(t, resp.Token.AccessToken)
	assert.Equal(t, "Bearer", resp.Token.TokenType)
	assert.Equal(t, "gopher@example.com", resp.User.Email)
	assert.Equal(t, 1, resp.User.Level)

	login, err := env.services.Auth.Login(env.ctx, &dto.LoginRequest{Email: "GOPHER@example.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = env.services.Auth.Login(env.ctx, &dto.LoginRequest{Email: "gopher@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = env.services.Auth.Login(env.ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "supersecret"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestRegister_Duplicates(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "gopher")

	_, err := env.services.Auth.Register(env.ctx, &dto.RegisterRequest{
		Name: "x", Email: "gopher@example.com", Username: "other", Password: "supersecret",
	})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	_, err = env.services.Auth.Register(env.ctx, &dto.RegisterRequest{
		Name: "x", Email: "other@example.com", Username: "gopher", Password: "supersecret",
	})
	assert.ErrorIs(t, err, apperrors.ErrUsernameAlreadyExists)

	_, err = env.services.Auth.Register(env.ctx, &dto.RegisterRequest{
		Name: "x", Email: "third@example.com", Username: "bad name!", Password: "supersecret",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidUsername)
}

func TestUpdateUsername(t *testing.T) {
	env := newTestEnv(t)
	a, b := env.user(t, "alice"), env.user(t, "bob")
	svc := env.services.Users

	for _, bad := range []string{"ab", "has space", "dash-name", "waytoolongusername_abcdefghijklmnop", " alice\t", "carol ", "\ndave"} {
		_, err := svc.UpdateUsername(env.ctx, a.ID, bad)
		assert.ErrorIs(t, err, apperrors.ErrInvalidUsername, bad)
	}
	assert.Equal(t, "alice", env.reloadUser(t, a.ID).Username)

	_, err := svc.UpdateUsername(env.ctx, a.ID, b.Username)
	assert.ErrorIs(t, err, apperrors.ErrUsernameAlreadyExists)

	same, err := svc.UpdateUsername(env.ctx, a.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", same.Username)

	renamed, err := svc.UpdateUsername(env.ctx, a.ID, "alice_2")
	require.NoError(t, err)
	assert.Equal(t, "alice_2", renamed.Username)
	assert.Equal(t, "alice_2", env.reloadUser(t, a.ID).Username)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	resp := register(t, env, "gopher")
	id := mustID(t, resp.User.ID)

	err := env.services.Users.ChangePassword(env.ctx, id, &dto.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "another-secret"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	require.NoError(t, env.services.Users.ChangePassword(env.ctx, id,
		&dto.ChangePasswordRequest{CurrentPassword: "supersecret", NewPassword: "another-secret"}))
	_, err = env.services.Auth.Login(env.ctx, &dto.LoginRequest{Email: "gopher@example.com", Password: "another-secret"})
	assert.NoError(t, err)
}

func TestFollow(t *testing.T) {
	env := newTestEnv(t)
	a, b := env.user(t, "alice"), env.user(t, "bob")
	svc := env.services.Users

	err := svc.Follow(env.ctx, a.ID, a.ID)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	require.NoError(t, svc.Follow(env.ctx, a.ID, b.ID))
	require.NoError(t, svc.Follow(env.ctx, a.ID, b.ID))

	followers, err := svc.ListFollowers(env.ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "alice", followers[0].Username)
	assert.Empty(t, followers[0].Email)

	notes := env.notificationsFor(t, b.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationFollow, notes[0].Type)

	require.NoError(t, svc.Unfollow(env.ctx, a.ID, b.ID))
	following, err := svc.ListFollowing(env.ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, following)
}

func TestGetProfile_HidesPrivateFields(t *testing.T) {
	env := newTestEnv(t)
	a, b := env.user(t, "alice"), env.user(t, "bob")

	own, err := env.services.Users.GetProfile(env.ctx, a.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", own.Email)

	other, err := env.services.Users.GetProfile(env.ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Empty(t, other.Email)
	assert.Empty(t, other.SubscriptionStatus)
}
