package email

import (
	"context"
	stderrors "errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"Mazraaty/config"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/logger"
	"Mazraaty/pkg/provider"
)

// SMTPAdapter delivers email through a plain SMTP relay. No pack repo ships
// a mail SDK, so this stays on net/smtp behind the Adapter interface.
type SMTPAdapter struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPAdapter() *SMTPAdapter {
	cfg := config.Cfg
	return &SMTPAdapter{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
	}
}

func (a *SMTPAdapter) Name() string {
	return "email-smtp"
}

func (a *SMTPAdapter) Send(ctx context.Context, msg *provider.Message) provider.Outcome {
	if !strings.Contains(msg.Endpoint, "@") {
		return provider.Outcome{
			ErrorKind: errors.KindEndpointInvalid,
			Err:       fmt.Errorf("recipient address is not an email"),
		}
	}

	body := a.buildMIME(msg)

	type sendResult struct{ err error }
	done := make(chan sendResult, 1)
	go func() {
		addr := net.JoinHostPort(a.host, a.port)
		var auth smtp.Auth
		if a.username != "" {
			auth = smtp.PlainAuth("", a.username, a.password, a.host)
		}
		done <- sendResult{smtp.SendMail(addr, auth, a.from, []string{msg.Endpoint}, body)}
	}()

	select {
	case <-ctx.Done():
		return provider.Outcome{ErrorKind: errors.KindProviderTimeout, Err: ctx.Err()}
	case result := <-done:
		if result.err != nil {
			return a.classify(ctx, result.err)
		}
	}

	return provider.Outcome{Delivered: true}
}

// buildMIME assembles headers plus a UTF-8 body. Arabic subjects need the
// RFC 2047 word encoding or relays mangle them. The Message-ID is derived
// from the attempt's idempotency key so a replayed attempt produces the same
// id and downstream dedup can collapse it.
func (a *SMTPAdapter) buildMIME(msg *provider.Message) []byte {
	var sb strings.Builder
	sb.WriteString("From: " + a.from + "\r\n")
	sb.WriteString("To: " + msg.Endpoint + "\r\n")
	sb.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	sb.WriteString("Message-ID: <" + msg.IdempotencyKey() + "@" + a.messageIDDomain() + ">\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(msg.Body)
	sb.WriteString("\r\n")
	return []byte(sb.String())
}

func (a *SMTPAdapter) messageIDDomain() string {
	if i := strings.LastIndex(a.from, "@"); i >= 0 && i < len(a.from)-1 {
		return a.from[i+1:]
	}
	return "localhost"
}

// classify maps SMTP reply codes onto error kinds. 4xx replies are transient
// by definition, 5xx are permanent rejections.
func (a *SMTPAdapter) classify(ctx context.Context, err error) provider.Outcome {
	text := err.Error()

	kind := errors.KindProviderError
	switch {
	case strings.HasPrefix(text, "550"), strings.HasPrefix(text, "553"):
		kind = errors.KindEndpointInvalid
	case strings.HasPrefix(text, "552"), strings.HasPrefix(text, "554"):
		kind = errors.KindPayloadRejected
	case strings.HasPrefix(text, "530"), strings.HasPrefix(text, "535"):
		kind = errors.KindProviderAuth
	case strings.HasPrefix(text, "421"), strings.HasPrefix(text, "450"), strings.HasPrefix(text, "451"), strings.HasPrefix(text, "452"):
		kind = errors.KindProviderError
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		kind = errors.KindProviderTimeout
	}

	logger.EventError(ctx, "email_send_failed", err, zap.String("kind", string(kind)))
	return provider.Outcome{ErrorKind: kind, Err: err}
}

var (
	adapter provider.Adapter
	once    sync.Once
)

// Init returns the email backend, mock when no relay is configured.
func Init() provider.Adapter {
	once.Do(func() {
		if config.Cfg.SMTPHost == "" {
			logger.Logger.Warn("Email adapter running in mock mode")
			adapter = NewMockAdapter()
			return
		}
		adapter = NewSMTPAdapter()
	})
	return adapter
}
