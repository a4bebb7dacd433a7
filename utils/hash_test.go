package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashDedupKey(t *testing.T) {
	a := HashDedupKey("tenant-a", "weather-2026-03-15")
	b := HashDedupKey("tenant-a", "weather-2026-03-15")
	assert.Equal(t, a, b, "same inputs hash identically")
	assert.Len(t, a, 64)

	// the tenant participates in the hash, identical keys from different
	// tenants must not collide
	c := HashDedupKey("tenant-b", "weather-2026-03-15")
	assert.NotEqual(t, a, c)

	d := HashDedupKey("tenant-a", "weather-2026-03-16")
	assert.NotEqual(t, a, d)
}

func TestHashPhoneStable(t *testing.T) {
	a := HashPhone("+201001234567")
	b := HashPhone("+201001234567")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotContains(t, a, "201001234567", "raw number never appears in the hash")
}
