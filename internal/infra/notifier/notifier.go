// Package notifier delivers human readable cart update notices to the
// customer facing channel. Delivery is best effort: the pricing
// transaction never fails because a notice could not be sent.
package notifier

import (
	"context"
	"sync"
)

type CartNotifier interface {
	// Notify sends a notice for the cart. Fire and forget from the
	// engine's point of view; errors are reported for logging only.
	Notify(ctx context.Context, cartID string, notice string) error
}

// MemoryNotifier collects notices in-process. Default sink for tests and
// for deployments without a message channel.
type MemoryNotifier struct {
	mu      sync.Mutex
	notices map[string][]string
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{notices: make(map[string][]string)}
}

func (m *MemoryNotifier) Notify(ctx context.Context, cartID string, notice string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices[cartID] = append(m.notices[cartID], notice)
	return nil
}

// Notices returns the notices recorded for the cart in arrival order.
func (m *MemoryNotifier) Notices(cartID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.notices[cartID]))
	copy(out, m.notices[cartID])
	return out
}
