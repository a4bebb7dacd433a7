package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Mazraaty/internal/model"
	"Mazraaty/internal/repository"
)

type fakePreferenceStore struct {
	prefs     map[model.Channel]*model.ChannelPreference
	recipient *model.Recipient
}

func (f *fakePreferenceStore) GetPreference(_ context.Context, _ string, _ int64, channel model.Channel) (*model.ChannelPreference, error) {
	return f.prefs[channel], nil
}

func (f *fakePreferenceStore) GetRecipient(_ context.Context, _ string, _ int64) (*model.Recipient, error) {
	if f.recipient == nil {
		return nil, repository.ErrNotFound
	}
	return f.recipient, nil
}

func clock(s string) *string { return &s }

func quietPref(channel model.Channel, start, end string) *model.ChannelPreference {
	return &model.ChannelPreference{
		TenantID:        "t1",
		RecipientID:     7,
		Channel:         channel,
		Enabled:         true,
		QuietHoursStart: clock(start),
		QuietHoursEnd:   clock(end),
	}
}

// noonUTC and nightUTC anchor the decisions; the fake recipient lives in UTC
// so the wall clock reads the same as the instant.
var (
	noonUTC  = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	nightUTC = time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
)

func prefServiceWith(store preferenceStore) *PreferenceService {
	return &PreferenceService{store: store}
}

func TestCheckMissingRowAllows(t *testing.T) {
	svc := prefServiceWith(&fakePreferenceStore{})

	decision, err := svc.Check(context.Background(), "t1", 7, model.ChannelSMS, model.PriorityNormal, noonUTC)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionAllow, decision)
}

func TestCheckOptOutDeniesEvenCritical(t *testing.T) {
	svc := prefServiceWith(&fakePreferenceStore{
		prefs: map[model.Channel]*model.ChannelPreference{
			model.ChannelSMS: {TenantID: "t1", RecipientID: 7, Channel: model.ChannelSMS, Enabled: false},
		},
	})

	for _, priority := range []model.Priority{model.PriorityNormal, model.PriorityCritical} {
		decision, err := svc.Check(context.Background(), "t1", 7, model.ChannelSMS, priority, noonUTC)
		require.NoError(t, err)
		assert.Equalf(t, model.DecisionDenyOptedOut, decision, "priority %s", priority)
	}
}

func TestCheckQuietHours(t *testing.T) {
	svc := prefServiceWith(&fakePreferenceStore{
		prefs: map[model.Channel]*model.ChannelPreference{
			model.ChannelPush: quietPref(model.ChannelPush, "22:00", "06:00"),
		},
		recipient: &model.Recipient{TenantID: "t1", Timezone: "UTC"},
	})

	t.Run("inside the window denies", func(t *testing.T) {
		decision, err := svc.Check(context.Background(), "t1", 7, model.ChannelPush, model.PriorityNormal, nightUTC)
		require.NoError(t, err)
		assert.Equal(t, model.DecisionDenyQuietHours, decision)
	})

	t.Run("outside the window allows", func(t *testing.T) {
		decision, err := svc.Check(context.Background(), "t1", 7, model.ChannelPush, model.PriorityNormal, noonUTC)
		require.NoError(t, err)
		assert.Equal(t, model.DecisionAllow, decision)
	})

	t.Run("critical bypasses the window", func(t *testing.T) {
		decision, err := svc.Check(context.Background(), "t1", 7, model.ChannelPush, model.PriorityCritical, nightUTC)
		require.NoError(t, err)
		assert.Equal(t, model.DecisionAllow, decision)
	})

	t.Run("window spanning midnight covers the early morning", func(t *testing.T) {
		early := time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC)
		decision, err := svc.Check(context.Background(), "t1", 7, model.ChannelPush, model.PriorityNormal, early)
		require.NoError(t, err)
		assert.Equal(t, model.DecisionDenyQuietHours, decision)
	})
}

func TestCheckInvalidTimezoneStillDecides(t *testing.T) {
	// a corrupt timezone row falls back to the default zone; an all-day
	// window denies regardless of which zone the clock is read in
	svc := prefServiceWith(&fakePreferenceStore{
		prefs: map[model.Channel]*model.ChannelPreference{
			model.ChannelEmail: quietPref(model.ChannelEmail, "00:00", "23:59"),
		},
		recipient: &model.Recipient{TenantID: "t1", Timezone: "Mars/Olympus_Mons"},
	})

	decision, err := svc.Check(context.Background(), "t1", 7, model.ChannelEmail, model.PriorityNormal, noonUTC)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionDenyQuietHours, decision)
}

func TestCheckReadsOptOutFreshPerDecision(t *testing.T) {
	store := &fakePreferenceStore{
		prefs: map[model.Channel]*model.ChannelPreference{
			model.ChannelSMS: {TenantID: "t1", RecipientID: 7, Channel: model.ChannelSMS, Enabled: true},
		},
	}
	svc := prefServiceWith(store)

	decision, err := svc.Check(context.Background(), "t1", 7, model.ChannelSMS, model.PriorityNormal, noonUTC)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionAllow, decision)

	// recipient opts out between two attempts of the same notification:
	// the next decision must see it
	store.prefs[model.ChannelSMS].Enabled = false

	decision, err = svc.Check(context.Background(), "t1", 7, model.ChannelSMS, model.PriorityNormal, noonUTC)
	require.NoError(t, err)
	assert.Equal(t, model.DecisionDenyOptedOut, decision)
}
