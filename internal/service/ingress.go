package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"Mazraaty/config"
	"Mazraaty/internal/cache"
	"Mazraaty/internal/model"
	"Mazraaty/internal/model/dto"
	"Mazraaty/internal/queue"
	"Mazraaty/internal/repository"
	"Mazraaty/pkg/correlation"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/logger"
	"Mazraaty/pkg/metrics"
	"Mazraaty/pkg/snowflake"
	"Mazraaty/utils"
)

type IngressService struct{}

var (
	ingressService *IngressService
	ingressOnce    sync.Once
)

func Ingress() *IngressService {
	ingressOnce.Do(func() {
		ingressService = &IngressService{}
	})
	return ingressService
}

// Submit validates and admits a notification. Returns the public id, the
// submit status (accepted or duplicate) and the correlation id in effect.
func (s *IngressService) Submit(ctx context.Context, tenantID string, req *dto.SubmitNotificationRequest) (*dto.SubmitNotificationResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	if _, err := repository.GetTemplate(ctx, req.TemplateID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.UnknownTemplate
		}
		return nil, err
	}

	if err := s.checkTargetScope(ctx, tenantID, req.Target); err != nil {
		return nil, err
	}

	correlationID := correlation.CorrelationID(ctx)
	if correlationID == "" {
		correlationID = correlation.Mint()
	}

	ttl := config.Cfg.DefaultTTLSeconds
	if req.TTLSeconds != nil {
		ttl = *req.TTLSeconds
	}

	keyHash := ""
	if req.DedupKey != "" {
		keyHash = utils.HashDedupKey(tenantID, req.DedupKey)
	}

	// Dedup fast path before any write.
	if keyHash != "" {
		if cached, err := cache.LookupDedup(ctx, tenantID, keyHash); err == nil && cached != "" {
			id, _ := strconv.ParseInt(cached, 10, 64)
			metrics.RecordDeduped(ctx, tenantID)
			return &dto.SubmitNotificationResponse{
				ID:            id,
				Status:        dto.SubmitStatusDuplicate,
				CorrelationID: correlationID,
			}, nil
		}
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, err
	}

	channels := make(model.ChannelList, 0, len(req.Channels))
	for _, raw := range req.Channels {
		channels = append(channels, model.Channel(raw))
	}

	n := &model.Notification{
		PublicID:      publicID,
		TenantID:      tenantID,
		Kind:          model.NotificationKind(req.Kind),
		Priority:      model.Priority(req.Priority),
		Target:        req.Target,
		Channels:      channels,
		TemplateID:    req.TemplateID,
		Parameters:    model.JSONB(req.Parameters),
		CorrelationID: correlationID,
		State:         model.NotificationStateReceived,
		SubmittedAt:   time.Now(),
		TTLSeconds:    ttl,
	}
	if req.DedupKey != "" {
		n.DedupKey = &req.DedupKey
	}

	// Claim the dedup key and insert in one transaction; the unique index
	// decides races. The cache is written only after the commit so a rolled
	// back insert leaves no trace anywhere.
	winnerID, won, err := repository.AdmitNotification(ctx, n, keyHash, config.Cfg.DedupRetention())
	if err != nil {
		return nil, err
	}
	if !won {
		metrics.RecordDeduped(ctx, tenantID)
		_ = cache.StoreDedup(ctx, tenantID, keyHash, strconv.FormatInt(winnerID, 10), config.Cfg.DedupRetention())
		return &dto.SubmitNotificationResponse{
			ID:            winnerID,
			Status:        dto.SubmitStatusDuplicate,
			CorrelationID: correlationID,
		}, nil
	}
	if keyHash != "" {
		_ = cache.StoreDedup(ctx, tenantID, keyHash, strconv.FormatInt(publicID, 10), config.Cfg.DedupRetention())
	}

	if err := queue.PublishResolveTask(ctx, model.ResolveTask{
		NotificationID: n.ID,
		TenantID:       tenantID,
		CorrelationID:  correlationID,
	}); err != nil {
		// the record exists; a broker outage surfaces as dependency down
		logger.EventError(ctx, "resolve_enqueue_failed", err,
			zap.Int64("notification_id", publicID),
		)
		return nil, errors.DependencyDown
	}

	metrics.RecordAdmitted(ctx, tenantID, req.Kind)
	logger.Event(ctx, "notification_admitted",
		zap.Int64("notification_id", publicID),
		zap.String("kind", req.Kind),
		zap.String("priority", req.Priority),
		zap.String("target_type", string(req.Target.Type)),
	)

	return &dto.SubmitNotificationResponse{
		ID:            publicID,
		Status:        dto.SubmitStatusAccepted,
		CorrelationID: correlationID,
	}, nil
}

func (s *IngressService) validate(req *dto.SubmitNotificationRequest) error {
	if !model.NotificationKind(req.Kind).Valid() {
		return errors.UnknownKind
	}
	if req.Priority == "" {
		req.Priority = string(model.PriorityNormal)
	}
	if !model.Priority(req.Priority).Valid() {
		return errors.InvalidRequest
	}
	if !req.Target.Valid() {
		return errors.InvalidTarget
	}
	for _, raw := range req.Channels {
		if !model.Channel(raw).Valid() {
			return errors.UnknownChannel
		}
	}
	if req.TemplateID == "" {
		return errors.UnknownTemplate
	}
	// an omitted ttl takes the default; an explicit ttl must be positive and bounded
	if req.TTLSeconds != nil && (*req.TTLSeconds <= 0 || *req.TTLSeconds > config.Cfg.MaxTTLSeconds) {
		return errors.InvalidTTL
	}
	if req.Parameters != nil {
		raw, err := json.Marshal(req.Parameters)
		if err != nil || len(raw) > config.Cfg.MaxPayloadBytes {
			return errors.PayloadTooLarge
		}
	}
	return nil
}

// checkTargetScope rejects recipient targets that reference ids outside the
// caller's tenant before anything is persisted. Topic and geo targets are
// tenant-scoped by construction and expand later in the resolver.
func (s *IngressService) checkTargetScope(ctx context.Context, tenantID string, target model.Target) error {
	var ids []int64
	switch target.Type {
	case model.TargetRecipient:
		ids = []int64{target.RecipientID}
	case model.TargetRecipientIDs:
		ids = dedupIDs(target.RecipientIDs)
	default:
		return nil
	}

	recipients, err := repository.ListRecipientsByIDs(ctx, tenantID, ids)
	if err != nil {
		return err
	}
	if len(recipients) != len(ids) {
		logScopeViolation("Tenant scope violation in submit", tenantID, missingIDs(ids, recipients),
			zap.String("user_id", correlation.UserID(ctx)),
			zap.String("correlation_id", correlation.CorrelationID(ctx)),
		)
		return errors.TenantScopeViolation
	}
	return nil
}

// Cancel flips a notification to cancelled. Already-terminal notifications
// come back unchanged with cancelled=false.
func (s *IngressService) Cancel(ctx context.Context, tenantID, publicID string) (*model.Notification, bool, error) {
	n, flipped, err := repository.MarkNotificationCancelled(ctx, tenantID, publicID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, false, errors.NotificationNotFound
	}
	if err != nil {
		return nil, false, err
	}

	if flipped {
		// flag for workers; outlive the notification TTL by a margin
		ttl := time.Duration(n.TTLSeconds)*time.Second + time.Hour
		if err := cache.MarkCancelled(ctx, n.ID, ttl); err != nil {
			logger.EventError(ctx, "cancel_flag_failed", err)
		}

		// drop pending legs now; queued retries fall to the flag when they land
		dropped, err := repository.CancelOpenAttempts(ctx, n.ID, string(errors.KindCancelled))
		if err != nil {
			logger.EventError(ctx, "cancel_drop_failed", err)
		}

		logger.Event(ctx, "notification_cancelled",
			zap.Int64("notification_id", n.PublicID),
			zap.Int64("attempts_dropped", dropped),
		)
	}

	return n, flipped, nil
}

// Rollup returns the delivery summary for one notification.
func (s *IngressService) Rollup(ctx context.Context, tenantID, publicID string) (*dto.RollupResponse, error) {
	n, err := repository.GetNotificationByPublicID(ctx, tenantID, publicID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NotificationNotFound
	}
	if err != nil {
		return nil, err
	}

	rollup, err := repository.GetRollup(ctx, tenantID, n.ID)
	if err != nil {
		return nil, err
	}

	resp := &dto.RollupResponse{
		ID:            n.PublicID,
		State:         string(n.State),
		TotalAttempts: rollup.TotalAttempts,
		Counts:        make(map[string]int64, len(rollup.Counts)),
	}
	for state, count := range rollup.Counts {
		resp.Counts[string(state)] = count
	}
	if rollup.FirstTransition != nil {
		v := rollup.FirstTransition.Format(time.RFC3339)
		resp.FirstTransition = &v
	}
	if rollup.LastTransition != nil {
		v := rollup.LastTransition.Format(time.RFC3339)
		resp.LastTransition = &v
	}
	return resp, nil
}

// Attempts lists the attempt trail for one notification.
func (s *IngressService) Attempts(ctx context.Context, tenantID, publicID string, limit, offset int) ([]dto.AttemptView, int64, error) {
	n, err := repository.GetNotificationByPublicID(ctx, tenantID, publicID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, 0, errors.NotificationNotFound
	}
	if err != nil {
		return nil, 0, err
	}

	attempts, total, err := repository.ListAttemptsByNotification(ctx, tenantID, n.ID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	views := make([]dto.AttemptView, 0, len(attempts))
	for _, a := range attempts {
		view := dto.AttemptView{
			RecipientID: a.RecipientID,
			Channel:     string(a.Channel),
			AttemptNo:   a.AttemptNo,
			State:       string(a.State),
			ErrorKind:   string(a.ErrorKind),
		}
		if a.ProviderRef != nil {
			view.ProviderRef = *a.ProviderRef
		}
		if a.StartedAt != nil {
			view.StartedAt = a.StartedAt.Format(time.RFC3339)
		}
		if a.FinishedAt != nil {
			view.FinishedAt = a.FinishedAt.Format(time.RFC3339)
		}
		views = append(views, view)
	}
	return views, total, nil
}

// DeadLetters lists the tenant's parked deliveries.
func (s *IngressService) DeadLetters(ctx context.Context, tenantID, errorKind string, limit, offset int) ([]dto.DeadLetterView, int64, error) {
	letters, total, err := repository.ListDeadLetters(ctx, tenantID, errorKind, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	views := make([]dto.DeadLetterView, 0, len(letters))
	for _, dl := range letters {
		views = append(views, dto.DeadLetterView{
			NotificationID: dl.NotificationID,
			RecipientID:    dl.RecipientID,
			Channel:        string(dl.Channel),
			ErrorKind:      dl.ErrorKind,
			ParkedAt:       dl.ParkedAt.Format(time.RFC3339),
		})
	}
	return views, total, nil
}
