// Package payments wraps the payment gateway behind a small interface.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Metadata keys written on checkout sessions and read back from webhooks
const (
	MetaTransactionID = "transaction_id"
	MetaUserID        = "user_id"
	MetaCommunityID   = "community_id"
	MetaPurpose       = "purpose"
	MetaPlanCode      = "plan_code"
)

// Event types the webhook handler reacts to
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventPaymentCapturable   = "payment_intent.amount_capturable_updated"
	EventPaymentFailed       = "payment_intent.payment_failed"
	EventInvoicePaid         = "invoice.paid"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

const (
	DefaultSignatureTolerance = 300 * time.Second
	StripeSignatureHeader     = "Stripe-Signature"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// CheckoutParams describes a subscription-mode checkout. Either PriceID or inline
// price data (UnitAmount, Currency, ProductName, Interval) is set.
type CheckoutParams struct {
	CustomerID        string
	CustomerEmail     string
	ClientReferenceID string
	PriceID           string
	UnitAmount        int64
	Currency          string
	ProductName       string
	Interval          string
	SuccessURL        string
	CancelURL         string
	Metadata          map[string]string
}

// CheckoutSession is the part of a gateway session the caller needs
type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a verified webhook event
type Event struct {
	ID   string
	Type string
	Data json.RawMessage
}

// Gateway is implemented by Stripe and by the test fake
type Gateway interface {
	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	// CancelSubscription cancels at the end of the current period
	CancelSubscription(ctx context.Context, subscriptionID string) error
	ConstructEvent(payload []byte, signature string) (Event, error)
}
