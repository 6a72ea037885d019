package mqtt

import (
	"context"
	"fmt"
	"sync"

	"github.com/evgrid/chargeq/core/notification"
)

// MockTransport records published notifications for tests.
type MockTransport struct {
	mu       sync.Mutex
	Messages map[string][]notification.Notification
	FailIDs  map[string]bool
}

// NewMockTransport creates a new MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		Messages: make(map[string][]notification.Notification),
		FailIDs:  make(map[string]bool),
	}
}

// Publish records the notification under its requester or returns an error if
// configured to fail for that requester.
func (m *MockTransport) Publish(_ context.Context, n notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[n.RequesterID] {
		return fmt.Errorf("publish failed")
	}
	m.Messages[n.RequesterID] = append(m.Messages[n.RequesterID], n)
	return nil
}

// Sent returns the notifications recorded for a requester.
func (m *MockTransport) Sent(requesterID string) []notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification.Notification(nil), m.Messages[requesterID]...)
}
