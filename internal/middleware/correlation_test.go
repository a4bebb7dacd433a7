package middleware

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"Mazraaty/pkg/correlation"
	"Mazraaty/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Logger = zap.NewNop()
	m.Run()
}

func correlationTestServer() *server.Hertz {
	h := server.Default()
	h.Use(CorrelationMiddleware())
	h.GET("/echo", func(ctx context.Context, c *app.RequestContext) {
		c.String(200, correlation.CorrelationID(ctx))
	})
	return h
}

func TestCorrelationAdoptsInboundID(t *testing.T) {
	h := correlationTestServer()

	w := ut.PerformRequest(h.Engine, "GET", "/echo", nil,
		ut.Header{Key: correlation.HeaderCorrelationID, Value: "upstream-42"})
	resp := w.Result()

	assert.Equal(t, "upstream-42", string(resp.Body()))
	assert.Equal(t, "upstream-42", string(resp.Header.Get(correlation.HeaderCorrelationID)))
}

func TestCorrelationFallsBackToRequestID(t *testing.T) {
	h := correlationTestServer()

	w := ut.PerformRequest(h.Engine, "GET", "/echo", nil,
		ut.Header{Key: correlation.HeaderRequestID, Value: "req-7"})
	resp := w.Result()

	assert.Equal(t, "req-7", string(resp.Body()))
}

func TestCorrelationMintsWhenAbsent(t *testing.T) {
	h := correlationTestServer()

	w := ut.PerformRequest(h.Engine, "GET", "/echo", nil)
	resp := w.Result()

	minted := string(resp.Body())
	require.NotEmpty(t, minted)
	assert.Equal(t, minted, correlation.Sanitize(minted))
	assert.Equal(t, minted, string(resp.Header.Get(correlation.HeaderCorrelationID)))
}

func TestCorrelationPropagatesUserID(t *testing.T) {
	h := server.Default()
	h.Use(CorrelationMiddleware())
	h.GET("/who", func(ctx context.Context, c *app.RequestContext) {
		c.String(200, correlation.UserID(ctx))
	})

	w := ut.PerformRequest(h.Engine, "GET", "/who", nil,
		ut.Header{Key: correlation.HeaderUserID, Value: "farmer-99"})
	assert.Equal(t, "farmer-99", string(w.Result().Body()))

	// an unusable id is dropped rather than carried into audit logs
	w = ut.PerformRequest(h.Engine, "GET", "/who", nil,
		ut.Header{Key: correlation.HeaderUserID, Value: "bad id with spaces"})
	assert.Empty(t, string(w.Result().Body()))
}

func TestCorrelationReplacesUnusableID(t *testing.T) {
	h := correlationTestServer()

	cases := []string{
		"bad id with spaces",
		strings.Repeat("a", correlation.MaxIDLength+1),
	}
	for _, in := range cases {
		w := ut.PerformRequest(h.Engine, "GET", "/echo", nil,
			ut.Header{Key: correlation.HeaderCorrelationID, Value: in})
		resp := w.Result()

		minted := string(resp.Body())
		assert.NotEqual(t, in, minted, "unusable ids are replaced, not echoed")
		assert.NotEmpty(t, minted)
	}
}
