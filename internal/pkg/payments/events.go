package payments

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v78"
)

// CheckoutCompleted is decoded from checkout.session.completed
type CheckoutCompleted struct {
	SessionID       string
	CustomerID      string
	SubscriptionID  string
	PaymentIntentID string
	Metadata        map[string]string
}

// PaymentIntentUpdate is decoded from payment_intent.* events
type PaymentIntentUpdate struct {
	PaymentIntentID string
	FailureReason   string
	Metadata        map[string]string
}

// InvoicePaid is decoded from invoice.paid
type InvoicePaid struct {
	SubscriptionID string
	PeriodEnd      time.Time
}

// SubscriptionDeleted is decoded from customer.subscription.deleted
type SubscriptionDeleted struct {
	SubscriptionID string
	CanceledAt     time.Time
	Metadata       map[string]string
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func DecodeCheckoutCompleted(raw json.RawMessage) (CheckoutCompleted, error) {
	var s stripe.CheckoutSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return CheckoutCompleted{}, fmt.Errorf("decode checkout session: %w", err)
	}
	out := CheckoutCompleted{SessionID: s.ID, Metadata: s.Metadata}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out, nil
}

func DecodePaymentIntent(raw json.RawMessage) (PaymentIntentUpdate, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(raw, &pi); err != nil {
		return PaymentIntentUpdate{}, fmt.Errorf("decode payment intent: %w", err)
	}
	out := PaymentIntentUpdate{PaymentIntentID: pi.ID, Metadata: pi.Metadata}
	if pi.LastPaymentError != nil {
		out.FailureReason = pi.LastPaymentError.Msg
	}
	return out, nil
}

func DecodeInvoicePaid(raw json.RawMessage) (InvoicePaid, error) {
	var inv stripe.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return InvoicePaid{}, fmt.Errorf("decode invoice: %w", err)
	}
	out := InvoicePaid{PeriodEnd: unixTime(inv.PeriodEnd)}
	if inv.Subscription != nil {
		out.SubscriptionID = inv.Subscription.ID
	}
	// the line item period is the one being paid for
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line.Period != nil && unixTime(line.Period.End).After(out.PeriodEnd) {
				out.PeriodEnd = unixTime(line.Period.End)
			}
		}
	}
	return out, nil
}

func DecodeSubscriptionDeleted(raw json.RawMessage) (SubscriptionDeleted, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return SubscriptionDeleted{}, fmt.Errorf("decode subscription: %w", err)
	}
	return SubscriptionDeleted{
		SubscriptionID: sub.ID,
		CanceledAt:     unixTime(sub.CanceledAt),
		Metadata:       sub.Metadata,
	}, nil
}
