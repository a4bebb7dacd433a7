package correlation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"uuid passes", "0f6b3e1a-9c2d-4e5f-8a7b-1c2d3e4f5a6b", "0f6b3e1a-9c2d-4e5f-8a7b-1c2d3e4f5a6b"},
		{"alnum with dots", "req.2026-08.0042", "req.2026-08.0042"},
		{"empty rejected", "", ""},
		{"whitespace rejected", "abc def", ""},
		{"header injection rejected", "abc\r\nX-Evil: 1", ""},
		{"unicode rejected", "طلب-١٢٣", ""},
		{"too long rejected", strings.Repeat("a", MaxIDLength+1), ""},
		{"max length passes", strings.Repeat("a", MaxIDLength), strings.Repeat("a", MaxIDLength)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}

func TestMintIsSanitizable(t *testing.T) {
	id := Mint()
	assert.NotEmpty(t, id)
	assert.Equal(t, id, Sanitize(id), "minted ids survive their own sanitizer")
	assert.NotEqual(t, id, Mint())
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, CorrelationID(ctx))
	assert.Empty(t, TenantID(ctx))

	ctx = WithCorrelationID(ctx, "corr-1")
	ctx = WithTenantID(ctx, "tenant-1")
	ctx = WithUserID(ctx, "user-1")

	assert.Equal(t, "corr-1", CorrelationID(ctx))
	assert.Equal(t, "tenant-1", TenantID(ctx))
	assert.Equal(t, "user-1", UserID(ctx))
}
