package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/app/models/dto"
	"github.com/yigit/circlehub/internal/pkg/apperrors"
	"github.com/yigit/circlehub/internal/pkg/helpers"
	"github.com/yigit/circlehub/internal/pkg/payments"
)

func eventPayload(t *testing.T, id, eventType string, object interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"id":   id,
		"type": eventType,
		"data": map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	return body
}

func (e *testEnv) deliver(t *testing.T, payload []byte) (*dto.WebhookResponse, error) {
	t.Helper()
	return e.services.Webhooks.HandleStripeEvent(e.ctx, payload, e.gateway.SignatureOK)
}

// checkoutFor starts a checkout and returns the transaction id and session id
func checkoutFor(t *testing.T, env *testEnv, userID, communityID string, purpose models.PaymentPurpose) (string, string) {
	t.Helper()
	resp, err := env.services.Payments.CreateCheckout(env.ctx, mustID(t, userID), &dto.CheckoutRequest{
		Purpose:     purpose,
		CommunityID: communityID,
	})
	require.NoError(t, err)
	tx, err := env.repos.Transactions.GetByID(env.ctx, mustID(t, resp.TransactionID))
	require.NoError(t, err)
	return resp.TransactionID, tx.GatewaySessionID
}

func TestWebhook_InvalidSignature(t *testing.T) {
	env := newTestEnv(t)
	payload := eventPayload(t, "evt_1", payments.EventInvoicePaid, map[string]interface{}{})

	_, err := env.services.Webhooks.HandleStripeEvent(env.ctx, payload, "forged")
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	assert.Equal(t, int64(1), env.metrics.Counter("webhook.invalid_signature"))
	assert.Zero(t, env.metrics.Counter("webhook.received"))
}

func TestWebhook_MembershipCheckout(t *testing.T) {
	env := newTestEnv(t)
	owner, buyer := env.user(t, "owner"), env.user(t, "buyer")
	c := paidCommunity(t, env, owner)
	txID, sessionID := checkoutFor(t, env, buyer.ID.Hex(), c.ID.Hex(), models.PurposeMembership)

	payload := eventPayload(t, "evt_checkout", payments.EventCheckoutCompleted, map[string]interface{}{
		"id":             sessionID,
		"object":         "checkout.session",
		"customer":       "cus_1",
		"subscription":   "sub_member",
		"payment_intent": "pi_1",
		"metadata":       map[string]string{payments.MetaTransactionID: txID},
	})
	resp, err := env.deliver(t, payload)
	require.NoError(t, err)
	assert.True(t, resp.Received)
	assert.False(t, resp.Duplicate)
	assert.False(t, resp.Ignored)

	tx, err := env.repos.Transactions.GetByID(env.ctx, mustID(t, txID))
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCaptured, tx.Status)
	assert.Equal(t, "pi_1", tx.GatewayPaymentID)

	sub, err := env.repos.Subscriptions.GetByGatewayID(env.ctx, "sub_member")
	require.NoError(t, err)
	assert.Equal(t, models.CommunitySubscriptionActive, sub.Status)
	assert.Equal(t, models.PurposeMembership, sub.Purpose)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.True(t, sub.CurrentPeriodEnd.After(time.Now().Add(27*24*time.Hour)))
	assert.True(t, env.reloadCommunity(t, c.ID).IsMember(buyer.ID))

	notes := env.notificationsFor(t, buyer.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationSubscription, notes[0].Type)

	again, err := env.deliver(t, payload)
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Len(t, env.notificationsFor(t, buyer.ID), 1)
	assert.Equal(t, int64(2), env.metrics.Counter("webhook.received"))
}

func TestWebhook_CheckoutFindsTransactionBySession(t *testing.T) {
	env := newTestEnv(t)
	owner, buyer := env.user(t, "owner"), env.user(t, "buyer")
	c := paidCommunity(t, env, owner)
	_, sessionID := checkoutFor(t, env, buyer.ID.Hex(), c.ID.Hex(), models.PurposeMembership)

	_, err := env.deliver(t, eventPayload(t, "evt_no_meta", payments.EventCheckoutCompleted, map[string]interface{}{
		"id": sessionID,
	}))
	require.NoError(t, err)

	// no gateway subscription: keyed by the session instead
	sub, err := env.repos.Subscriptions.GetByGatewayID(env.ctx, "session:"+sessionID)
	require.NoError(t, err)
	assert.Equal(t, buyer.ID, sub.User)
}

func TestWebhook_PlatformCheckoutReactivates(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	c := env.community(t, owner, func(c *models.Community) {
		c.HasUsedTrial = true
		c.PaymentStatus = models.PaymentStatusSuspended
		c.SuspensionReason = models.SuspensionTrialExpired
	})
	seedPlatformPlan(t, env)
	txID, sessionID := checkoutFor(t, env, owner.ID.Hex(), c.ID.Hex(), models.PurposePlatform)

	_, err := env.deliver(t, eventPayload(t, "evt_platform", payments.EventCheckoutCompleted, map[string]interface{}{
		"id":           sessionID,
		"customer":     "cus_platform",
		"subscription": "sub_platform",
		"metadata":     map[string]string{payments.MetaTransactionID: txID},
	}))
	require.NoError(t, err)

	stored := env.reloadCommunity(t, c.ID)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Empty(t, stored.SuspensionReason)
	assert.Equal(t, "cus_platform", stored.GatewayCustomerID)
	assert.False(t, IsSuspended(stored))
	assert.Equal(t, models.SubscriptionActive, env.reloadUser(t, owner.ID).SubscriptionStatus)

	sub, err := env.repos.Subscriptions.GetByGatewayID(env.ctx, "sub_platform")
	require.NoError(t, err)
	assert.Equal(t, DefaultPlatformPlan, sub.PlanCode)
}

func TestWebhook_DisallowedTransitionIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	owner, buyer := env.user(t, "owner"), env.user(t, "buyer")
	c := paidCommunity(t, env, owner)
	txID, sessionID := checkoutFor(t, env, buyer.ID.Hex(), c.ID.Hex(), models.PurposeMembership)

	_, err := env.deliver(t, eventPayload(t, "evt_failed", payments.EventPaymentFailed, map[string]interface{}{
		"id":                 "pi_9",
		"metadata":           map[string]string{payments.MetaTransactionID: txID},
		"last_payment_error": map[string]interface{}{"message": "card declined"},
	}))
	require.NoError(t, err)
	tx, err := env.repos.Transactions.GetByID(env.ctx, mustID(t, txID))
	require.NoError(t, err)
	assert.Equal(t, models.TransactionFailed, tx.Status)
	assert.Equal(t, "card declined", tx.FailureReason)

	resp, err := env.deliver(t, eventPayload(t, "evt_late_checkout", payments.EventCheckoutCompleted, map[string]interface{}{
		"id":       sessionID,
		"metadata": map[string]string{payments.MetaTransactionID: txID},
	}))
	require.NoError(t, err)
	assert.False(t, resp.Ignored)

	tx, err = env.repos.Transactions.GetByID(env.ctx, mustID(t, txID))
	require.NoError(t, err)
	assert.Equal(t, models.TransactionFailed, tx.Status)
	assert.False(t, env.reloadCommunity(t, c.ID).IsMember(buyer.ID))
}

func TestWebhook_InvoicePaidExtendsPeriod(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	c := env.community(t, owner, nil)
	sub := storeSubscription(t, env, owner.ID, c.ID, models.PurposePlatform, models.CommunitySubscriptionPastDue)
	periodEnd := time.Now().UTC().Add(60 * 24 * time.Hour).Truncate(time.Second)

	_, err := env.deliver(t, eventPayload(t, "evt_invoice", payments.EventInvoicePaid, map[string]interface{}{
		"id":           "in_1",
		"subscription": sub.GatewaySubscriptionID,
		"period_end":   periodEnd.Unix(),
	}))
	require.NoError(t, err)

	stored, err := env.repos.Subscriptions.GetByID(env.ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommunitySubscriptionActive, stored.Status)
	require.NotNil(t, stored.CurrentPeriodEnd)
	assert.True(t, stored.CurrentPeriodEnd.Equal(periodEnd))

	community := env.reloadCommunity(t, c.ID)
	assert.Equal(t, models.PaymentStatusPaid, community.PaymentStatus)
	require.NotNil(t, community.SubscriptionEndDate)
	assert.True(t, community.SubscriptionEndDate.Equal(periodEnd))
}

func TestWebhook_SubscriptionDeleted(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	c := env.community(t, owner, nil)
	sub := storeSubscription(t, env, owner.ID, c.ID, models.PurposePlatform, models.CommunitySubscriptionActive)

	_, err := env.deliver(t, eventPayload(t, "evt_deleted", payments.EventSubscriptionDeleted, map[string]interface{}{
		"id":          sub.GatewaySubscriptionID,
		"canceled_at": time.Now().Unix(),
	}))
	require.NoError(t, err)

	stored, err := env.repos.Subscriptions.GetByID(env.ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommunitySubscriptionCancelled, stored.Status)
	assert.NotNil(t, stored.CancelledAt)
	assert.Equal(t, models.SubscriptionCancelled, env.reloadUser(t, owner.ID).SubscriptionStatus)
}

func TestWebhook_UnknownTypeIgnored(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.deliver(t, eventPayload(t, "evt_other", "customer.created", map[string]interface{}{"id": "cus_1"}))
	require.NoError(t, err)
	assert.True(t, resp.Ignored)
	assert.Equal(t, "customer.created", resp.EventType)
}

func TestWebhook_FailureAllowsRetry(t *testing.T) {
	env := newTestEnv(t)
	owner, buyer := env.user(t, "owner"), env.user(t, "buyer")
	c := paidCommunity(t, env, owner)
	txID, sessionID := checkoutFor(t, env, buyer.ID.Hex(), c.ID.Hex(), models.PurposeMembership)

	_, err := env.deliver(t, eventPayload(t, "evt_retry", payments.EventCheckoutCompleted, 42))
	require.Error(t, err)
	assert.Equal(t, int64(1), env.metrics.Counter("webhook.failed"))

	resp, err := env.deliver(t, eventPayload(t, "evt_retry", payments.EventCheckoutCompleted, map[string]interface{}{
		"id":       sessionID,
		"metadata": map[string]string{payments.MetaTransactionID: txID},
	}))
	require.NoError(t, err)
	assert.False(t, resp.Duplicate)
	assert.True(t, env.reloadCommunity(t, c.ID).IsMember(buyer.ID))

	page, err := env.services.Payments.ListTransactions(env.ctx, buyer.ID, helpers.NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCaptured, page.Transactions[0].Status)
}
