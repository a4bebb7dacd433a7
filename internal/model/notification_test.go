package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTargetValid(t *testing.T) {
	cases := []struct {
		name   string
		target Target
		want   bool
	}{
		{"recipient", Target{Type: TargetRecipient, RecipientID: 42}, true},
		{"recipient without id", Target{Type: TargetRecipient}, false},
		{"recipient ids", Target{Type: TargetRecipientIDs, RecipientIDs: []int64{1, 2}}, true},
		{"empty recipient ids", Target{Type: TargetRecipientIDs}, false},
		{"topic", Target{Type: TargetTopic, Topic: "weather.giza"}, true},
		{"empty topic", Target{Type: TargetTopic}, false},
		{"geo", Target{Type: TargetGeo, Geo: &GeoFilter{Governorate: "Giza"}}, true},
		{"geo all wildcards", Target{Type: TargetGeo, Geo: &GeoFilter{}}, false},
		{"geo nil filter", Target{Type: TargetGeo}, false},
		{"unknown type", Target{Type: "everyone"}, false},
		{"no type", Target{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.target.Valid())
		})
	}
}

func TestPriorityRetryBudget(t *testing.T) {
	assert.Equal(t, 8, PriorityCritical.RetryBudget())
	assert.Equal(t, 5, PriorityHigh.RetryBudget())
	assert.Equal(t, 3, PriorityNormal.RetryBudget())
	assert.Equal(t, 1, PriorityLow.RetryBudget())
}

func TestPriorityQuietHoursBypass(t *testing.T) {
	assert.True(t, PriorityCritical.BypassesQuietHours())
	assert.False(t, PriorityHigh.BypassesQuietHours())
	assert.False(t, PriorityNormal.BypassesQuietHours())
	assert.False(t, PriorityLow.BypassesQuietHours())
}

func TestNotificationExpiry(t *testing.T) {
	submitted := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	n := &Notification{SubmittedAt: submitted, TTLSeconds: 3600}

	assert.Equal(t, submitted.Add(time.Hour), n.ExpiresAt())
	assert.False(t, n.Expired(submitted.Add(59*time.Minute)))
	assert.False(t, n.Expired(n.ExpiresAt()), "deadline itself is still deliverable")
	assert.True(t, n.Expired(submitted.Add(61*time.Minute)))
}

func TestBilingualPick(t *testing.T) {
	b := BilingualString{Ar: "تنبيه طقس", En: "Weather alert"}
	assert.Equal(t, "تنبيه طقس", b.Pick(LocaleAr))
	assert.Equal(t, "Weather alert", b.Pick(LocaleEn))
	assert.Equal(t, "تنبيه طقس", b.Pick(""), "unknown locale falls back to Arabic")
}
