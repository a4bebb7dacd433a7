package email

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
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

func TestClassifySMTPReplies(t *testing.T) {
	cases := []struct {
		reply string
		want  errors.ErrorKind
	}{
		{"550 5.1.1 mailbox unavailable", errors.KindEndpointInvalid},
		{"553 5.1.3 bad recipient address syntax", errors.KindEndpointInvalid},
		{"552 5.3.4 message size exceeds limit", errors.KindPayloadRejected},
		{"554 5.7.1 message rejected as spam", errors.KindPayloadRejected},
		{"530 5.7.0 authentication required", errors.KindProviderAuth},
		{"535 5.7.8 authentication credentials invalid", errors.KindProviderAuth},
		{"421 4.7.0 service not available", errors.KindProviderError},
		{"450 4.2.1 mailbox busy", errors.KindProviderError},
		{"451 4.3.0 local error in processing", errors.KindProviderError},
		{"452 4.2.2 insufficient storage", errors.KindProviderError},
		{"dial tcp: connection refused", errors.KindProviderError},
	}

	a := &SMTPAdapter{}
	for _, tc := range cases {
		t.Run(tc.reply, func(t *testing.T) {
			out := a.classify(context.Background(), fmt.Errorf("%s", tc.reply))
			assert.Equal(t, tc.want, out.ErrorKind)
			assert.False(t, out.Delivered)
		})
	}
}

func TestClassifyRetryability(t *testing.T) {
	a := &SMTPAdapter{}

	// 4xx replies retry, 5xx rejections never do
	busy := a.classify(context.Background(), fmt.Errorf("450 4.2.1 mailbox busy"))
	assert.True(t, busy.ErrorKind.IsTransient())

	gone := a.classify(context.Background(), fmt.Errorf("550 5.1.1 mailbox unavailable"))
	assert.False(t, gone.ErrorKind.IsTransient())
}

func TestBuildMIMEHeaders(t *testing.T) {
	a := &SMTPAdapter{from: "no-reply@mazraaty.app"}
	raw := string(a.buildMIME(&provider.Message{
		NotificationID: 42,
		RecipientID:    7,
		Channel:        model.ChannelEmail,
		AttemptNo:      1,
		Endpoint:       "farmer@example.com",
		Subject:        "تنبيه صقيع",
		Body:           "Cover your tomatoes",
	}))

	assert.Contains(t, raw, "From: no-reply@mazraaty.app\r\n")
	assert.Contains(t, raw, "To: farmer@example.com\r\n")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=utf-8")
	assert.Contains(t, raw, "Cover your tomatoes")
	// arabic subjects survive via RFC 2047 word encoding, never raw bytes
	assert.NotContains(t, raw, "Subject: تنبيه")
	assert.Contains(t, raw, "Subject: =?utf-8?q?")
	// a replay of the same attempt carries the same Message-ID
	assert.Contains(t, raw, "Message-ID: <42-7-email-1@mazraaty.app>\r\n")
}

func TestMessageIDStableAcrossReplays(t *testing.T) {
	a := &SMTPAdapter{from: "no-reply@mazraaty.app"}
	msg := &provider.Message{
		NotificationID: 42,
		RecipientID:    7,
		Channel:        model.ChannelEmail,
		AttemptNo:      1,
		Endpoint:       "farmer@example.com",
		Subject:        "Frost warning",
		Body:           "Cover your tomatoes",
	}

	first := string(a.buildMIME(msg))
	second := string(a.buildMIME(msg))
	assert.Equal(t, first, second)

	msg.AttemptNo = 2
	retry := string(a.buildMIME(msg))
	assert.Contains(t, retry, "Message-ID: <42-7-email-2@mazraaty.app>\r\n")
}

func TestMessageIDDomainFallsBack(t *testing.T) {
	assert.Equal(t, "localhost", (&SMTPAdapter{from: "no-reply"}).messageIDDomain())
	assert.Equal(t, "mazraaty.app", (&SMTPAdapter{from: "no-reply@mazraaty.app"}).messageIDDomain())
}
