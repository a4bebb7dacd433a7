package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"Mazraaty/config"
	"Mazraaty/internal/model"
	"Mazraaty/internal/model/dto"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Logger = zap.NewNop()
	config.Cfg.DefaultTTLSeconds = 3600
	config.Cfg.MaxTTLSeconds = 86400
	config.Cfg.MaxPayloadBytes = 1024
	m.Run()
}

func ttl(seconds int) *int { return &seconds }

func validSubmit() *dto.SubmitNotificationRequest {
	return &dto.SubmitNotificationRequest{
		Kind:       "weather_alert",
		Priority:   "high",
		Target:     model.Target{Type: model.TargetTopic, Topic: "weather.giza"},
		Channels:   []string{"sms", "push"},
		TemplateID: "weather_frost",
		Parameters: map[string]interface{}{"temp": "2C"},
		TTLSeconds: ttl(7200),
	}
}

func TestSubmitValidation(t *testing.T) {
	s := Ingress()

	t.Run("valid request passes", func(t *testing.T) {
		assert.NoError(t, s.validate(validSubmit()))
	})

	t.Run("unknown kind", func(t *testing.T) {
		req := validSubmit()
		req.Kind = "party_invitation"
		assert.ErrorIs(t, s.validate(req), errors.UnknownKind)
	})

	t.Run("missing priority defaults to normal", func(t *testing.T) {
		req := validSubmit()
		req.Priority = ""
		assert.NoError(t, s.validate(req))
		assert.Equal(t, "normal", req.Priority)
	})

	t.Run("unknown priority", func(t *testing.T) {
		req := validSubmit()
		req.Priority = "urgent"
		assert.ErrorIs(t, s.validate(req), errors.InvalidRequest)
	})

	t.Run("invalid target", func(t *testing.T) {
		req := validSubmit()
		req.Target = model.Target{Type: model.TargetGeo, Geo: &model.GeoFilter{}}
		assert.ErrorIs(t, s.validate(req), errors.InvalidTarget)
	})

	t.Run("unknown channel", func(t *testing.T) {
		req := validSubmit()
		req.Channels = []string{"sms", "fax"}
		assert.ErrorIs(t, s.validate(req), errors.UnknownChannel)
	})

	t.Run("empty channel list allowed", func(t *testing.T) {
		req := validSubmit()
		req.Channels = nil
		assert.NoError(t, s.validate(req))
	})

	t.Run("missing template", func(t *testing.T) {
		req := validSubmit()
		req.TemplateID = ""
		assert.ErrorIs(t, s.validate(req), errors.UnknownTemplate)
	})

	t.Run("negative ttl", func(t *testing.T) {
		req := validSubmit()
		req.TTLSeconds = ttl(-1)
		assert.ErrorIs(t, s.validate(req), errors.InvalidTTL)
	})

	t.Run("ttl above ceiling", func(t *testing.T) {
		req := validSubmit()
		req.TTLSeconds = ttl(config.Cfg.MaxTTLSeconds + 1)
		assert.ErrorIs(t, s.validate(req), errors.InvalidTTL)
	})

	t.Run("explicit zero ttl rejected", func(t *testing.T) {
		req := validSubmit()
		req.TTLSeconds = ttl(0)
		assert.ErrorIs(t, s.validate(req), errors.InvalidTTL)
	})

	t.Run("omitted ttl allowed", func(t *testing.T) {
		req := validSubmit()
		req.TTLSeconds = nil
		assert.NoError(t, s.validate(req))
	})

	t.Run("oversized payload", func(t *testing.T) {
		req := validSubmit()
		big := make([]byte, config.Cfg.MaxPayloadBytes+1)
		for i := range big {
			big[i] = 'x'
		}
		req.Parameters = map[string]interface{}{"blob": string(big)}
		assert.ErrorIs(t, s.validate(req), errors.PayloadTooLarge)
	})
}

func TestScopeViolationLogNamesTheOmittedOwner(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	old := logger.Logger
	logger.Logger = zap.New(core)
	t.Cleanup(func() { logger.Logger = old })

	logScopeViolation("Tenant scope violation in submit", "t1", []int64{5, 9},
		zap.String("user_id", "farmer-99"),
	)

	entries := logs.All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "tenant_scope_violation", fields["event"])
	assert.Equal(t, "t1", fields["tenant_id"])
	assert.Equal(t, []int64{5, 9}, fields["recipient_ids"])
	assert.Equal(t, "farmer-99", fields["user_id"])
	// the ids' true owner is deliberately not looked up; the record says so
	// rather than leaving an absent field for auditors to puzzle over
	assert.Equal(t, "unresolved", fields["foreign_tenant"])
}

func TestDedupIDs(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, dedupIDs([]int64{3, 1, 3, 2, 1}))
	assert.Empty(t, dedupIDs(nil))
}

func TestMissingIDs(t *testing.T) {
	found := []model.Recipient{{BaseModel: model.BaseModel{ID: 1}}, {BaseModel: model.BaseModel{ID: 3}}}
	assert.Equal(t, []int64{2, 4}, missingIDs([]int64{1, 2, 3, 4}, found))
	assert.Empty(t, missingIDs([]int64{1, 3}, found))
}
