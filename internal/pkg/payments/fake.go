package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// FakeGateway records calls and returns canned results
type FakeGateway struct {
	mu sync.Mutex

	Sessions    []CheckoutParams
	Cancelled   []string
	Customers   []string
	CheckoutErr error
	CancelErr   error
	// SignatureOK is the only signature ConstructEvent accepts
	SignatureOK string

	sessionSerial int
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{SignatureOK: "valid"}
}

func (f *FakeGateway) CreateCustomer(_ context.Context, email, _ string, _ map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Customers = append(f.Customers, email)
	return fmt.Sprintf("cus_%d", len(f.Customers)), nil
}

func (f *FakeGateway) CreateCheckoutSession(_ context.Context, params CheckoutParams) (*CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CheckoutErr != nil {
		return nil, f.CheckoutErr
	}
	f.sessionSerial++
	f.Sessions = append(f.Sessions, params)
	id := fmt.Sprintf("cs_test_%d", f.sessionSerial)
	return &CheckoutSession{ID: id, URL: "https://checkout.test/" + id}, nil
}

func (f *FakeGateway) CancelSubscription(_ context.Context, subscriptionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CancelErr != nil {
		return f.CancelErr
	}
	f.Cancelled = append(f.Cancelled, subscriptionID)
	return nil
}

// ConstructEvent accepts only SignatureOK and decodes payload as {id, type, data:{object}}
func (f *FakeGateway) ConstructEvent(payload []byte, signature string) (Event, error) {
	if signature != f.SignatureOK {
		return Event{}, ErrInvalidSignature
	}
	var body struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return Event{ID: body.ID, Type: body.Type, Data: body.Data.Object}, nil
}
