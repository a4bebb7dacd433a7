package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"Mazraaty/internal/model"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/logger"
	"Mazraaty/pkg/provider"
)

func TestMain(m *testing.M) {
	logger.Logger = zap.NewNop()
	m.Run()
}

func gatewayFor(t *testing.T, handler http.HandlerFunc) (*GatewayAdapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &GatewayAdapter{
		url:    srv.URL,
		apiKey: "test-key",
		client: srv.Client(),
	}, srv
}

func pushMessage() *provider.Message {
	return &provider.Message{
		TenantID:       "t1",
		RecipientID:    7,
		NotificationID: 42,
		Channel:        model.ChannelPush,
		AttemptNo:      1,
		Priority:       model.PriorityCritical,
		Endpoint:       "device-token-1",
		Subject:        "Frost warning",
		Body:           "Cover your tomatoes",
		Locale:         model.LocaleEn,
		Kind:           model.KindWeatherAlert,
	}
}

func TestSendDelivered(t *testing.T) {
	adapter, _ := gatewayFor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message_id":"gw-123"}`))
	})

	out := adapter.Send(context.Background(), pushMessage())
	require.True(t, out.Delivered)
	assert.Equal(t, "gw-123", out.ProviderRef)
}

func TestSendCarriesIdempotencyKeyAndPriority(t *testing.T) {
	var gotKey string
	var gotReq gatewayRequest
	adapter, _ := gatewayFor(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message_id":"gw-1"}`))
	})

	msg := pushMessage()
	out := adapter.Send(context.Background(), msg)
	require.True(t, out.Delivered)

	// the key pins (notification, recipient, channel, attempt): a replayed
	// attempt sends the same key, the retry row sends a new one
	assert.Equal(t, "42-7-push-1", gotKey)
	assert.Equal(t, string(model.PriorityCritical), gotReq.Priority)

	msg.AttemptNo = 2
	_ = adapter.Send(context.Background(), msg)
	assert.Equal(t, "42-7-push-2", gotKey)
}

func TestSendThrottledCarriesHint(t *testing.T) {
	adapter, _ := gatewayFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "15")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	})

	out := adapter.Send(context.Background(), pushMessage())
	assert.False(t, out.Delivered)
	assert.Equal(t, errors.KindProviderThrottled, out.ErrorKind)
	assert.Equal(t, 15*time.Second, out.RetryAfterHint)
}

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status int
		want   errors.ErrorKind
	}{
		{http.StatusUnauthorized, errors.KindProviderAuth},
		{http.StatusForbidden, errors.KindProviderAuth},
		{http.StatusGone, errors.KindEndpointInvalid},
		{http.StatusNotFound, errors.KindEndpointInvalid},
		{http.StatusRequestEntityTooLarge, errors.KindPayloadRejected},
		{http.StatusUnprocessableEntity, errors.KindPayloadRejected},
		{http.StatusInternalServerError, errors.KindProviderError},
		{http.StatusBadGateway, errors.KindProviderError},
		{http.StatusTeapot, errors.KindProviderError},
	}

	a := &GatewayAdapter{}
	for _, tc := range cases {
		resp := &http.Response{StatusCode: tc.status, Header: http.Header{}}
		out := a.classifyStatus(resp, &gatewayResponse{})
		assert.Equalf(t, tc.want, out.ErrorKind, "status %d", tc.status)
		assert.False(t, out.Delivered)
	}
}

func TestSendTimeoutClassifiedTransient(t *testing.T) {
	adapter, _ := gatewayFor(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := adapter.Send(ctx, pushMessage())
	assert.False(t, out.Delivered)
	assert.Equal(t, errors.KindProviderTimeout, out.ErrorKind)
	assert.True(t, out.ErrorKind.IsTransient())
}

func TestMockAdapterRecords(t *testing.T) {
	mock := NewMockAdapter()
	out := mock.Send(context.Background(), pushMessage())
	require.True(t, out.Delivered)
	assert.Len(t, mock.Sent(), 1)
}
