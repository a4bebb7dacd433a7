package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"Mazraaty/config"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/logger"
	"Mazraaty/pkg/provider"
)

// GatewayAdapter posts push payloads to the platform's push gateway, which
// fronts the device vendors. No pack repo ships a push SDK, so the adapter
// speaks the gateway's plain HTTP contract.
type GatewayAdapter struct {
	url    string
	apiKey string
	client *http.Client
}

func NewGatewayAdapter() *GatewayAdapter {
	cfg := config.Cfg
	return &GatewayAdapter{
		url:    cfg.PushGatewayURL,
		apiKey: cfg.PushGatewayKey,
		client: &http.Client{
			Timeout: cfg.AdapterTimeout(),
		},
	}
}

func (a *GatewayAdapter) Name() string {
	return "push-gateway"
}

type gatewayRequest struct {
	Token    string `json:"token"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Priority string `json:"priority"`
	Data     struct {
		Kind   string `json:"kind"`
		Locale string `json:"locale"`
	} `json:"data"`
}

type gatewayResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

func (a *GatewayAdapter) Send(ctx context.Context, msg *provider.Message) provider.Outcome {
	reqBody := gatewayRequest{
		Token:    msg.Endpoint,
		Title:    msg.Subject,
		Body:     msg.Body,
		Priority: string(msg.Priority),
	}
	reqBody.Data.Kind = string(msg.Kind)
	reqBody.Data.Locale = string(msg.Locale)

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return provider.Outcome{ErrorKind: errors.KindInternal, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return provider.Outcome{ErrorKind: errors.KindInternal, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	// lets the gateway drop replays of an attempt it already forwarded
	req.Header.Set("Idempotency-Key", msg.IdempotencyKey())

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return provider.Outcome{ErrorKind: errors.KindProviderTimeout, Err: ctx.Err()}
		}
		return provider.Outcome{ErrorKind: errors.KindProviderTimeout, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var parsed gatewayResponse
	_ = json.Unmarshal(body, &parsed)

	outcome := a.classifyStatus(resp, &parsed)
	if !outcome.Delivered {
		logger.EventError(ctx, "push_send_failed", outcome.Err,
			zap.Int("status", resp.StatusCode),
		)
	}
	return outcome
}

func (a *GatewayAdapter) classifyStatus(resp *http.Response, parsed *gatewayResponse) provider.Outcome {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return provider.Outcome{Delivered: true, ProviderRef: parsed.MessageID}
	case resp.StatusCode == http.StatusTooManyRequests:
		return provider.Outcome{
			ErrorKind:      errors.KindProviderThrottled,
			Err:            fmt.Errorf("push gateway throttled: %s", parsed.Error),
			RetryAfterHint: retryAfter(resp),
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return provider.Outcome{
			ErrorKind: errors.KindProviderAuth,
			Err:       fmt.Errorf("push gateway auth rejected: %s", parsed.Error),
		}
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		// token expired or device unregistered
		return provider.Outcome{
			ErrorKind: errors.KindEndpointInvalid,
			Err:       fmt.Errorf("push token rejected: %s", parsed.Error),
		}
	case resp.StatusCode == http.StatusRequestEntityTooLarge || resp.StatusCode == http.StatusUnprocessableEntity:
		return provider.Outcome{
			ErrorKind: errors.KindPayloadRejected,
			Err:       fmt.Errorf("push payload rejected: %s", parsed.Error),
		}
	case resp.StatusCode >= 500:
		return provider.Outcome{
			ErrorKind: errors.KindProviderError,
			Err:       fmt.Errorf("push gateway error: status=%d %s", resp.StatusCode, parsed.Error),
		}
	default:
		return provider.Outcome{
			ErrorKind: errors.KindProviderError,
			Err:       fmt.Errorf("push gateway unexpected status %d", resp.StatusCode),
		}
	}
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

var (
	adapter provider.Adapter
	once    sync.Once
)

// Init returns the push backend, mock when no gateway is configured.
func Init() provider.Adapter {
	once.Do(func() {
		if config.Cfg.PushGatewayURL == "" {
			logger.Logger.Warn("Push adapter running in mock mode")
			adapter = NewMockAdapter()
			return
		}
		adapter = NewGatewayAdapter()
	})
	return adapter
}
