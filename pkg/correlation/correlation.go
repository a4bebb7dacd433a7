package correlation

import (
	"context"

	"github.com/google/uuid"
)

// Header names recognized at the ingress and emitted on outbound calls.
const (
	HeaderCorrelationID = "X-Correlation-Id"
	HeaderRequestID     = "X-Request-Id" // alias, read only
	HeaderTenantID      = "X-Tenant-Id"
	HeaderUserID        = "X-User-Id"
)

// MaxIDLength bounds inbound correlation identifiers. Longer values are
// replaced with a fresh one rather than truncated.
const MaxIDLength = 128

type contextKey int

const (
	correlationIDKey contextKey = iota
	tenantIDKey
	userIDKey
)

// Sanitize validates an inbound identifier: length-bounded, restricted to
// alphanumerics plus '-', '_' and '.'. Returns "" when unusable.
func Sanitize(id string) string {
	if id == "" || len(id) > MaxIDLength {
		return ""
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return ""
		}
	}
	return id
}

// Mint returns a fresh correlation identifier.
func Mint() string {
	return uuid.NewString()
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

func TenantID(ctx context.Context) string {
	id, _ := ctx.Value(tenantIDKey).(string)
	return id
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
