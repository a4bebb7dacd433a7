package sms

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Mazraaty/pkg/logger"
	"Mazraaty/pkg/provider"
	"Mazraaty/utils"
)

// MockAdapter records messages instead of sending them. Used in development
// and whenever SMS_SIGN_NAME is unset.
type MockAdapter struct {
	mu   sync.Mutex
	sent []provider.Message
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{}
}

func (m *MockAdapter) Name() string {
	return "sms-mock"
}

func (m *MockAdapter) Send(ctx context.Context, msg *provider.Message) provider.Outcome {
	m.mu.Lock()
	m.sent = append(m.sent, *msg)
	m.mu.Unlock()

	logger.Event(ctx, "sms_mock_sent",
		zap.String("phone_hash", utils.HashPhone(msg.Endpoint)),
		zap.String("subject", msg.Subject),
	)

	return provider.Outcome{
		Delivered:   true,
		ProviderRef: "mock-" + uuid.NewString(),
	}
}

// Sent returns a copy of everything the mock accepted.
func (m *MockAdapter) Sent() []provider.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]provider.Message, len(m.sent))
	copy(out, m.sent)
	return out
}
