package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

const testSecret = "whsec_test"

func TestStripeConstructEvent(t *testing.T) {
	g := NewStripeGateway("sk_test", testSecret)
	payload := []byte(`{"id":"evt_1","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1","object":"invoice"}}}`)

	t.Run("valid signature", func(t *testing.T) {
		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   payload,
			Secret:    testSecret,
			Timestamp: time.Now(),
		})
		ev, err := g.ConstructEvent(signed.Payload, signed.Header)
		require.NoError(t, err)
		assert.Equal(t, "evt_1", ev.ID)
		assert.Equal(t, EventInvoicePaid, ev.Type)
		assert.JSONEq(t, `{"id":"in_1","object":"invoice"}`, string(ev.Data))
	})

	t.Run("wrong secret", func(t *testing.T) {
		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   payload,
			Secret:    "whsec_other",
			Timestamp: time.Now(),
		})
		_, err := g.ConstructEvent(signed.Payload, signed.Header)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   payload,
			Secret:    testSecret,
			Timestamp: time.Now().Add(-10 * time.Minute),
		})
		_, err := g.ConstructEvent(signed.Payload, signed.Header)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("garbage header", func(t *testing.T) {
		_, err := g.ConstructEvent(payload, "t=1,v1=deadbeef")
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})
}

func TestDecodeInvoicePaid(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "in_1",
		"subscription": "sub_9",
		"period_end": 1700000000,
		"lines": {"object": "list", "data": [{"id": "il_1", "period": {"start": 1700000000, "end": 1702592000}}]}
	}`)
	got, err := DecodeInvoicePaid(raw)
	require.NoError(t, err)
	assert.Equal(t, "sub_9", got.SubscriptionID)
	assert.Equal(t, time.Unix(1702592000, 0).UTC(), got.PeriodEnd)
}

func TestDecodeCheckoutCompleted(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "cs_1",
		"customer": "cus_1",
		"subscription": "sub_1",
		"metadata": {"transaction_id": "tx", "purpose": "community_membership"}
	}`)
	got, err := DecodeCheckoutCompleted(raw)
	require.NoError(t, err)
	assert.Equal(t, "cs_1", got.SessionID)
	assert.Equal(t, "cus_1", got.CustomerID)
	assert.Equal(t, "sub_1", got.SubscriptionID)
	assert.Equal(t, "tx", got.Metadata[MetaTransactionID])
}

func TestStripeCancelSubscriptionAtPeriodEnd(t *testing.T) {
	var (
		method, path string
		form         url.Values
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		assert.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"sub_123","object":"subscription","status":"active","cancel_at_period_end":true}`))
	}))
	defer srv.Close()

	previous := stripe.GetBackend(stripe.APIBackend)
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}))
	t.Cleanup(func() { stripe.SetBackend(stripe.APIBackend, previous) })

	g := NewStripeGateway("sk_test", testSecret)
	require.NoError(t, g.CancelSubscription(context.Background(), "sub_123"))

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/v1/subscriptions/sub_123", path)
	assert.Equal(t, "true", form.Get("cancel_at_period_end"))
}
