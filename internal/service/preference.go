package service

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"Mazraaty/internal/model"
	"Mazraaty/internal/repository"
	"Mazraaty/pkg/logger"
	"Mazraaty/utils"
)

// DefaultTimezone is used when a recipient row carries no timezone. Most of
// the platform's recipients are in Egypt.
const DefaultTimezone = "Africa/Cairo"

// preferenceStore is the slice of the repository the service reads. Narrowed
// to an interface so decisions can be tested against a fake directory.
type preferenceStore interface {
	GetPreference(ctx context.Context, tenantID string, recipientID int64, channel model.Channel) (*model.ChannelPreference, error)
	GetRecipient(ctx context.Context, tenantID string, recipientID int64) (*model.Recipient, error)
}

type repositoryPreferenceStore struct{}

func (repositoryPreferenceStore) GetPreference(ctx context.Context, tenantID string, recipientID int64, channel model.Channel) (*model.ChannelPreference, error) {
	return repository.GetPreference(ctx, tenantID, recipientID, channel)
}

func (repositoryPreferenceStore) GetRecipient(ctx context.Context, tenantID string, recipientID int64) (*model.Recipient, error) {
	return repository.GetRecipient(ctx, tenantID, recipientID)
}

type PreferenceService struct {
	store preferenceStore
}

var (
	preferenceService *PreferenceService
	preferenceOnce    sync.Once
)

func Preference() *PreferenceService {
	preferenceOnce.Do(func() {
		preferenceService = &PreferenceService{store: repositoryPreferenceStore{}}
	})
	return preferenceService
}

// Check decides whether a leg may be delivered right now. Opt-out is read
// fresh from the authoritative row per decision; a missing row means enabled
// with no quiet hours. Critical priority bypasses quiet hours, never opt-out.
func (s *PreferenceService) Check(ctx context.Context, tenantID string, recipientID int64, channel model.Channel, priority model.Priority, now time.Time) (model.PreferenceDecision, error) {
	pref, err := s.store.GetPreference(ctx, tenantID, recipientID, channel)
	if err != nil {
		return "", err
	}
	if pref == nil {
		return model.DecisionAllow, nil
	}

	if !pref.Enabled {
		return model.DecisionDenyOptedOut, nil
	}

	if !pref.HasQuietHours() || priority.BypassesQuietHours() {
		return model.DecisionAllow, nil
	}

	inQuiet, err := s.inQuietHours(ctx, tenantID, recipientID, pref, now)
	if err != nil {
		return "", err
	}
	if inQuiet {
		return model.DecisionDenyQuietHours, nil
	}
	return model.DecisionAllow, nil
}

func (s *PreferenceService) inQuietHours(ctx context.Context, tenantID string, recipientID int64, pref *model.ChannelPreference, now time.Time) (bool, error) {
	recipient, err := s.store.GetRecipient(ctx, tenantID, recipientID)
	if err != nil && !stderrors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	tz := DefaultTimezone
	if recipient != nil && recipient.Timezone != "" {
		tz = recipient.Timezone
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		// a bad tz row must not block delivery
		logger.Logger.Warn("Invalid recipient timezone, using default",
			zap.String("timezone", tz),
			zap.Int64("recipient_id", recipientID),
		)
		loc, _ = time.LoadLocation(DefaultTimezone)
	}

	local := now.In(loc)
	start, err := utils.ParseClock(*pref.QuietHoursStart, local)
	if err != nil {
		return false, nil
	}
	end, err := utils.ParseClock(*pref.QuietHoursEnd, local)
	if err != nil {
		return false, nil
	}

	return utils.InWindow(local, start, end), nil
}

// SetPreference writes a recipient's channel preference.
func (s *PreferenceService) SetPreference(ctx context.Context, pref *model.ChannelPreference) error {
	return repository.UpsertPreference(ctx, pref)
}
