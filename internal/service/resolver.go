package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"Mazraaty/internal/model"
	"Mazraaty/internal/queue"
	"Mazraaty/internal/repository"
	"Mazraaty/pkg/correlation"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/logger"
)

// resolveBatchSize bounds how many directory rows one resolver iteration
// materializes. Topic and geo targets are expanded page by page.
const resolveBatchSize = 500

type ResolverService struct{}

var (
	resolverService *ResolverService
	resolverOnce    sync.Once
)

func Resolver() *ResolverService {
	resolverOnce.Do(func() {
		resolverService = &ResolverService{}
	})
	return resolverService
}

// Resolve expands a notification's target into per-recipient delivery tasks
// and hands them to the delivery queues. An empty expansion completes the
// notification immediately.
func (s *ResolverService) Resolve(ctx context.Context, task model.ResolveTask) error {
	ctx = correlation.WithCorrelationID(ctx, task.CorrelationID)
	ctx = correlation.WithTenantID(ctx, task.TenantID)

	n, err := repository.GetNotificationByID(ctx, task.NotificationID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("notification %d no longer exists", task.NotificationID)}
	}
	if err != nil {
		return err
	}

	if n.State.Terminal() {
		return &errors.SkipMessageError{Reason: "notification already terminal"}
	}

	if err := repository.UpdateNotificationState(ctx, n.ID, n.State, model.NotificationStateResolving); err != nil {
		// lost a state race, probably a redelivery that resumed mid-resolve
		logger.EventError(ctx, "resolve_state_race", err)
	}

	total := 0
	fanOut := func(recipients []model.Recipient) error {
		count, err := s.enqueueBatch(ctx, n, recipients)
		if err != nil {
			return err
		}
		total += count
		return nil
	}

	switch n.Target.Type {
	case model.TargetRecipient:
		recipients, err := repository.ListRecipientsByIDs(ctx, n.TenantID, []int64{n.Target.RecipientID})
		if err != nil {
			return err
		}
		if len(recipients) == 0 {
			return s.rejectScope(ctx, n, []int64{n.Target.RecipientID})
		}
		if err := fanOut(recipients); err != nil {
			return err
		}

	case model.TargetRecipientIDs:
		ids := dedupIDs(n.Target.RecipientIDs)
		recipients, err := repository.ListRecipientsByIDs(ctx, n.TenantID, ids)
		if err != nil {
			return err
		}
		if len(recipients) != len(ids) {
			return s.rejectScope(ctx, n, missingIDs(ids, recipients))
		}
		for start := 0; start < len(recipients); start += resolveBatchSize {
			end := start + resolveBatchSize
			if end > len(recipients) {
				end = len(recipients)
			}
			if err := fanOut(recipients[start:end]); err != nil {
				return err
			}
		}

	case model.TargetTopic:
		if err := s.pageThrough(ctx, n, fanOut, func(afterID int64) ([]model.Recipient, error) {
			return repository.ListTopicSubscribers(ctx, n.TenantID, n.Target.Topic, afterID, resolveBatchSize)
		}); err != nil {
			return err
		}

	case model.TargetGeo:
		if err := s.pageThrough(ctx, n, fanOut, func(afterID int64) ([]model.Recipient, error) {
			return repository.ListRecipientsByGeo(ctx, n.TenantID, *n.Target.Geo, afterID, resolveBatchSize)
		}); err != nil {
			return err
		}

	default:
		return &errors.SkipMessageError{Reason: fmt.Sprintf("unknown target type %s", n.Target.Type)}
	}

	if total == 0 {
		logger.Event(ctx, "expansion_empty",
			zap.Int64("notification_id", n.PublicID),
			zap.String("target_type", string(n.Target.Type)),
		)
		return repository.UpdateNotificationState(ctx, n.ID, model.NotificationStateResolving, model.NotificationStateCompleted)
	}

	logger.Event(ctx, "resolve_completed",
		zap.Int64("notification_id", n.PublicID),
		zap.Int("tasks", total),
	)
	return repository.UpdateNotificationState(ctx, n.ID, model.NotificationStateResolving, model.NotificationStateEnqueued)
}

// pageThrough walks a keyset-paginated directory query to its end.
func (s *ResolverService) pageThrough(ctx context.Context, n *model.Notification, fanOut func([]model.Recipient) error, page func(afterID int64) ([]model.Recipient, error)) error {
	var afterID int64
	for {
		recipients, err := page(afterID)
		if err != nil {
			return err
		}
		if len(recipients) == 0 {
			return nil
		}
		if err := fanOut(recipients); err != nil {
			return err
		}
		afterID = recipients[len(recipients)-1].ID
		if len(recipients) < resolveBatchSize {
			return nil
		}
	}
}

// enqueueBatch creates the pending attempt rows and publishes delivery tasks
// for every (recipient, channel) the notification addresses.
func (s *ResolverService) enqueueBatch(ctx context.Context, n *model.Notification, recipients []model.Recipient) (int, error) {
	channels := n.Channels
	if len(channels) == 0 {
		channels = model.AllChannels
	}

	var attempts []*model.DeliveryAttempt
	type leg struct {
		recipientID int64
		channel     model.Channel
	}
	var legs []leg

	for _, r := range recipients {
		for _, ch := range channels {
			if !r.HasEndpoint(ch) && ch != model.ChannelInApp {
				// no endpoint, nothing to attempt; skipped legs are not
				// failures when the channel list was implicit
				if len(n.Channels) == 0 {
					continue
				}
			}
			attempts = append(attempts, &model.DeliveryAttempt{
				NotificationID: n.ID,
				TenantID:       n.TenantID,
				RecipientID:    r.ID,
				Channel:        ch,
				AttemptNo:      1,
				State:          model.AttemptStatePending,
			})
			legs = append(legs, leg{recipientID: r.ID, channel: ch})
		}
	}

	if len(attempts) == 0 {
		return 0, nil
	}

	if err := repository.CreateAttemptsBatch(ctx, attempts); err != nil {
		return 0, err
	}

	expiresAt := n.ExpiresAt()
	for _, l := range legs {
		if err := queue.PublishDeliveryTask(ctx, model.DeliveryTask{
			NotificationID: n.ID,
			TenantID:       n.TenantID,
			RecipientID:    l.recipientID,
			Channel:        l.channel,
			Priority:       n.Priority,
			AttemptNo:      1,
			CorrelationID:  n.CorrelationID,
			ExpiresAt:      expiresAt,
		}); err != nil {
			return 0, err
		}
	}

	return len(legs), nil
}

// rejectScope handles a target that references recipients outside the
// tenant: security-log it and terminate the notification without delivery.
func (s *ResolverService) rejectScope(ctx context.Context, n *model.Notification, ids []int64) error {
	logScopeViolation("Tenant scope violation in target", n.TenantID, ids,
		zap.Int64("notification_id", n.PublicID),
		zap.String("correlation_id", n.CorrelationID),
	)

	if err := repository.UpdateNotificationState(ctx, n.ID, model.NotificationStateResolving, model.NotificationStateCancelled); err != nil {
		return err
	}
	return nil
}

// logScopeViolation emits the security event for a target referencing
// recipients outside the caller's tenant. The ids' true owner is never
// looked up, because that lookup would itself cross tenant boundaries, so
// the record states the omission instead of leaving auditors to guess.
func logScopeViolation(msg, tenantID string, ids []int64, fields ...zap.Field) {
	base := []zap.Field{
		zap.String("event", "tenant_scope_violation"),
		zap.String("tenant_id", tenantID),
		zap.Int64s("recipient_ids", ids),
		zap.String("foreign_tenant", "unresolved"),
	}
	logger.Logger.Warn(msg, append(base, fields...)...)
}

func dedupIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func missingIDs(requested []int64, found []model.Recipient) []int64 {
	have := make(map[int64]bool, len(found))
	for _, r := range found {
		have[r.ID] = true
	}
	var missing []int64
	for _, id := range requested {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
