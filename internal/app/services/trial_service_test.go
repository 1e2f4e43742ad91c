package services

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"github.com/yigit/circlehub/internal/pkg/logger"
)

var testClient = ClientInfo{IP: "203.0.113.7", UserAgent: "go-test"}

func TestActivateTrial_User(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "trialist")
	req := &dto.TrialRequest{Scope: models.TrialScopeUser}

	resp, err := env.services.Trials.ActivateTrial(env.ctx, u.ID, req, testClient)
	require.NoError(t, err)

	start, err := time.Parse(isoMillis, resp.StartDate)
	require.NoError(t, err)
	end, err := time.Parse(isoMillis, resp.EndDate)
	require.NoError(t, err)
	assert.Equal(t, 14*24*time.Hour, end.Sub(start))
	assert.Regexp(t, `\.\d{3}Z$`, resp.EndDate)

	stored := env.reloadUser(t, u.ID)
	assert.Equal(t, models.SubscriptionTrial, stored.SubscriptionStatus)
	assert.True(t, stored.HasUsedTrial)
	require.NotNil(t, stored.TrialEndDate)
	assert.True(t, stored.TrialEndDate.Equal(end))
	assert.Equal(t, int64(1), env.metrics.Counter("trial.activated"))

	_, err = env.services.Trials.ActivateTrial(env.ctx, u.ID, req, testClient)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTrialIneligible)
	details := apperrors.Details(err)
	assert.Equal(t, false, details["eligible"])
	assert.Equal(t, ReasonUserTrialUsed, details["reason"])

	audits := env.db.TrialAudits()
	require.Len(t, audits, 2)
	assert.True(t, audits[0].Eligible)
	assert.False(t, audits[1].Eligible)
	assert.Equal(t, "203.0.113.7", audits[1].IPAddress)
	assert.Equal(t, u.ID.Hex(), audits[1].UserID)
}

func TestCheckEligibility_DoesNotActivate(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "curious")

	resp, err := env.services.Trials.CheckEligibility(env.ctx, u.ID, &dto.TrialRequest{Scope: models.TrialScopeUser}, testClient)
	require.NoError(t, err)
	assert.True(t, resp.Eligible)
	assert.Empty(t, resp.Reason)
	assert.False(t, env.reloadUser(t, u.ID).HasUsedTrial)
	assert.Len(t, env.db.TrialAudits(), 1)
}

func TestCheckEligibility_LogsChecksFromIP(t *testing.T) {
	var buf bytes.Buffer
	logger.Configure(logger.Config{Level: logger.InfoLevel, Output: &buf})
	t.Cleanup(func() { logger.Configure(logger.Config{Level: logger.InfoLevel, Pretty: true, Output: os.Stdout}) })

	env := newTestEnv(t)
	a, b := env.user(t, "first"), env.user(t, "second")
	req := &dto.TrialRequest{Scope: models.TrialScopeUser}
	for _, u := range []*models.User{a, b} {
		_, err := env.services.Trials.CheckEligibility(env.ctx, u.ID, req, testClient)
		require.NoError(t, err)
	}
	other := ClientInfo{IP: "198.51.100.1", UserAgent: "go-test"}
	_, err := env.services.Trials.CheckEligibility(env.ctx, a.ID, req, other)
	require.NoError(t, err)

	var counts []float64
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var entry map[string]interface{}
		if json.Unmarshal(scanner.Bytes(), &entry) != nil || entry["message"] != "Trial eligibility checked" {
			continue
		}
		counts = append(counts, entry["checksFromIP24h"].(float64))
	}
	// eligibility is unaffected; the count is informational
	assert.Equal(t, []float64{1, 2, 1}, counts)
	assert.Len(t, env.db.TrialAudits(), 3)
}

func TestActivateTrial_Community(t *testing.T) {
	env := newTestEnv(t)
	owner, member := env.user(t, "owner"), env.user(t, "member")
	c := env.community(t, owner, nil)
	env.addMember(t, c, member)
	req := &dto.TrialRequest{Scope: models.TrialScopeCommunity, CommunityID: c.ID.Hex()}

	_, err := env.services.Trials.ActivateTrial(env.ctx, member.ID, req, testClient)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	resp, err := env.services.Trials.ActivateTrial(env.ctx, owner.ID, req, testClient)
	require.NoError(t, err)
	assert.Equal(t, c.ID.Hex(), resp.CommunityID)

	stored := env.reloadCommunity(t, c.ID)
	assert.Equal(t, models.PaymentStatusTrial, stored.PaymentStatus)
	assert.True(t, stored.HasUsedTrial)

	admin := env.reloadUser(t, owner.ID)
	require.NotNil(t, admin.TrialEndDate)
	assert.True(t, admin.TrialEndDate.Equal(*stored.TrialEndDate))
	assert.False(t, admin.HasUsedTrial)

	_, err = env.services.Trials.ActivateTrial(env.ctx, owner.ID, req, testClient)
	assert.ErrorIs(t, err, apperrors.ErrTrialIneligible)
	assert.Equal(t, ReasonCommunityTrialUsed, apperrors.Details(err)["reason"])

	audits := env.db.TrialAudits()
	require.Len(t, audits, 2)
	require.NotNil(t, audits[0].CommunityID)
	assert.Equal(t, c.ID.Hex(), *audits[0].CommunityID)
}

func TestCheckEligibility_BilledCommunity(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	c := env.community(t, owner, func(c *models.Community) { c.PaymentStatus = models.PaymentStatusPaid })

	resp, err := env.services.Trials.CheckEligibility(env.ctx, owner.ID,
		&dto.TrialRequest{Scope: models.TrialScopeCommunity, CommunityID: c.ID.Hex()}, testClient)
	require.NoError(t, err)
	assert.False(t, resp.Eligible)
	assert.Equal(t, ReasonCommunityBilled, resp.Reason)
}

func TestCheckEligibility_BadInput(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "someone")

	_, err := env.services.Trials.CheckEligibility(env.ctx, u.ID,
		&dto.TrialRequest{Scope: models.TrialScopeCommunity, CommunityID: "nope"}, testClient)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = env.services.Trials.CheckEligibility(env.ctx, u.ID, &dto.TrialRequest{Scope: "team"}, testClient)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestExpireLapsed(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(48 * time.Hour)

	owner := env.user(t, "owner")
	lapsedTrial := env.community(t, owner, func(c *models.Community) {
		c.PaymentStatus = models.PaymentStatusTrial
		c.HasUsedTrial = true
		c.TrialEndDate, c.SubscriptionEndDate = &past, &past
	})
	lapsedPaid := env.community(t, owner, func(c *models.Community) {
		c.PaymentStatus = models.PaymentStatusPaid
		c.SubscriptionEndDate = &past
	})
	current := env.community(t, owner, func(c *models.Community) {
		c.PaymentStatus = models.PaymentStatusPaid
		c.SubscriptionEndDate = &future
	})
	trialUser := env.user(t, "trialuser")
	require.NoError(t, env.repos.Users.StartTrial(env.ctx, trialUser.ID, past.Add(-14*24*time.Hour), past))

	resp, err := env.services.Trials.ExpireLapsed(env.ctx, now)
	require.NoError(t, err)
	assert.False(t, resp.Skipped)
	assert.Equal(t, int64(2), resp.CommunitiesSuspended)
	assert.Equal(t, int64(1), resp.UserTrialsExpired)

	trialCommunity := env.reloadCommunity(t, lapsedTrial.ID)
	assert.Equal(t, models.PaymentStatusSuspended, trialCommunity.PaymentStatus)
	assert.Equal(t, models.SuspensionTrialExpired, trialCommunity.SuspensionReason)
	assert.Equal(t, models.SuspensionSubscriptionExpired, env.reloadCommunity(t, lapsedPaid.ID).SuspensionReason)
	assert.Equal(t, models.PaymentStatusPaid, env.reloadCommunity(t, current.ID).PaymentStatus)
	assert.Equal(t, models.SubscriptionExpired, env.reloadUser(t, trialUser.ID).SubscriptionStatus)

	again, err := env.services.Trials.ExpireLapsed(env.ctx, now)
	require.NoError(t, err)
	assert.Zero(t, again.CommunitiesSuspended)
	assert.Zero(t, again.UserTrialsExpired)
	assert.Equal(t, int64(2), env.metrics.Counter("sweep.run"))
	assert.Equal(t, int64(2), env.metrics.Counter("sweep.communities_suspended"))
	assert.Equal(t, 2, env.metrics.Timings("sweep.duration"))
}

func TestExpireLapsed_SkipsWhenLocked(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.cache.Set(env.ctx, sweepLockKey, "other-instance", time.Minute).Err())

	resp, err := env.services.Trials.ExpireLapsed(env.ctx, time.Now())
	require.NoError(t, err)
	assert.True(t, resp.Skipped)
	assert.Equal(t, int64(1), env.metrics.Counter("sweep.skipped"))
	assert.Zero(t, env.metrics.Counter("sweep.run"))

	held, err := env.cache.Get(env.ctx, sweepLockKey).Result()
	require.NoError(t, err)
	assert.Equal(t, "other-instance", held)
}

func TestNotifyExpiringTrials_Dedupes(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()
	soon := now.Add(48 * time.Hour)
	later := now.Add(10 * 24 * time.Hour)

	ending, notYet := env.user(t, "ending"), env.user(t, "notyet")
	require.NoError(t, env.repos.Users.StartTrial(env.ctx, ending.ID, now, soon))
	require.NoError(t, env.repos.Users.StartTrial(env.ctx, notYet.ID, now, later))

	owner := env.user(t, "owner")
	env.community(t, owner, func(c *models.Community) {
		c.PaymentStatus = models.PaymentStatusTrial
		c.TrialEndDate, c.SubscriptionEndDate = &soon, &soon
	})

	resp, err := env.services.Trials.NotifyExpiringTrials(env.ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Sent)

	again, err := env.services.Trials.NotifyExpiringTrials(env.ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, again.Sent)

	notes := env.notificationsFor(t, ending.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationTrialExpiring, notes[0].Type)
	assert.Len(t, env.notificationsFor(t, owner.ID), 1)
	assert.Empty(t, env.notificationsFor(t, notYet.ID))
	assert.Equal(t, int64(2), env.metrics.Counter("trial.reminders_sent"))
}
