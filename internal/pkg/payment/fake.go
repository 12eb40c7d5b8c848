package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var ErrProviderDown = errors.New("payment provider unavailable")

// Fake records checkout requests in memory. Webhook payloads are the JSON
// form of Event and are accepted only with the signature "valid".
type Fake struct {
	mu       sync.Mutex
	Requests []CheckoutRequest
	Fail     bool
	seq      int
}

func (f *Fake) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail {
		return nil, ErrProviderDown
	}
	f.seq++
	f.Requests = append(f.Requests, req)
	id := fmt.Sprintf("cs_test_%d", f.seq)
	return &Session{ID: id, URL: "https://checkout.test/" + id}, nil
}

func (f *Fake) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if signature != "valid" {
		return nil, ErrInvalidSignature
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (f *Fake) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}
