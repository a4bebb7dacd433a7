package email

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Mazraaty/pkg/logger"
	"Mazraaty/pkg/provider"
)

// MockAdapter accepts every message without touching the network.
type MockAdapter struct {
	mu   sync.Mutex
	sent []provider.Message
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{}
}

func (m *MockAdapter) Name() string {
	return "email-mock"
}

func (m *MockAdapter) Send(ctx context.Context, msg *provider.Message) provider.Outcome {
	m.mu.Lock()
	m.sent = append(m.sent, *msg)
	m.mu.Unlock()

	logger.Event(ctx, "email_mock_sent", zap.String("subject", msg.Subject))

	return provider.Outcome{
		Delivered:   true,
		ProviderRef: "mock-" + uuid.NewString(),
	}
}

func (m *MockAdapter) Sent() []provider.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]provider.Message, len(m.sent))
	copy(out, m.sent)
	return out
}
