package dispatch

import (
	"context"
	stderrors "errors"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"Mazraaty/config"
	"Mazraaty/internal/cache"
	"Mazraaty/internal/model"
	"Mazraaty/internal/render"
	"Mazraaty/internal/repository"
	"Mazraaty/pkg/correlation"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/logger"
	"Mazraaty/pkg/metrics"
	"Mazraaty/pkg/provider"
	"Mazraaty/pkg/snowflake"
	"Mazraaty/storage/mq"
	"Mazraaty/utils"
)

// PreferenceChecker decides whether one leg may go out right now. Implemented
// by the preference service; injected so the dispatcher stays decoupled from
// the service layer.
type PreferenceChecker interface {
	Check(ctx context.Context, tenantID string, recipientID int64, channel model.Channel, priority model.Priority, now time.Time) (model.PreferenceDecision, error)
}

// Executor runs one delivery leg end to end: preference check, render,
// provider call, outcome persistence, retry hand-off.
type Executor struct {
	registry *provider.Registry
	prefs    PreferenceChecker
	sems     *keyedSemaphores
}

func NewExecutor(registry *provider.Registry, prefs PreferenceChecker) *Executor {
	return &Executor{
		registry: registry,
		prefs:    prefs,
		sems:     newKeyedSemaphores(int64(config.Cfg.TenantChannelConcurrency)),
	}
}

// Execute processes a task. A nil return acks the broker message; a
// SkipMessageError acks and drops; any other error nacks for redelivery.
func (e *Executor) Execute(ctx context.Context, task *Task) error {
	ctx = correlation.WithCorrelationID(ctx, task.CorrelationID)
	ctx = correlation.WithTenantID(ctx, task.TenantID)

	n, err := repository.GetNotificationByID(ctx, task.NotificationID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("notification %d no longer exists", task.NotificationID)}
	}
	if err != nil {
		return err
	}

	attempt, stale, err := e.ensureAttempt(ctx, task)
	if err != nil {
		return err
	}
	if attempt == nil {
		return &errors.SkipMessageError{Reason: "attempt already handled"}
	}
	if stale {
		// the worker holding this row died mid-send; record the interruption
		// and hand the leg to the retry path
		return e.fail(ctx, n, task, attempt, errors.KindShutdown,
			fmt.Errorf("attempt %d abandoned in flight", attempt.AttemptNo), 0)
	}

	now := time.Now()

	// Cancellation wins over everything not yet in flight.
	cancelled, err := cache.IsCancelled(ctx, n.ID)
	if err != nil {
		logger.EventError(ctx, "cancel_check_failed", err)
	}
	if cancelled || n.State == model.NotificationStateCancelled {
		return e.drop(ctx, n, attempt, model.AttemptStateDroppedExpired, errors.KindCancelled)
	}

	if now.After(task.ExpiresAt) || n.Expired(now) {
		return e.drop(ctx, n, attempt, model.AttemptStateDroppedExpired, errors.KindTTLExceeded)
	}

	decision, err := e.prefs.Check(ctx, task.TenantID, task.RecipientID, task.Channel, task.Priority, now)
	if err != nil {
		// preference backend down: fail transiently, the broker redelivers
		return fmt.Errorf("preference check failed: %w", err)
	}
	switch decision {
	case model.DecisionDenyOptedOut:
		return e.drop(ctx, n, attempt, model.AttemptStateDroppedPreference, errors.KindOptedOut)
	case model.DecisionDenyQuietHours:
		return e.drop(ctx, n, attempt, model.AttemptStateDroppedPreference, errors.KindQuietHours)
	}

	// One leg in flight at a time, across all workers.
	acquired, err := cache.TryAcquireInFlight(ctx, n.ID, task.RecipientID, string(task.Channel), 2*config.Cfg.AdapterTimeout())
	if err != nil {
		return err
	}
	if !acquired {
		return &errors.SkipMessageError{Reason: "leg already in flight"}
	}
	defer func() {
		if err := cache.ReleaseInFlight(context.Background(), n.ID, task.RecipientID, string(task.Channel)); err != nil {
			logger.EventError(ctx, "inflight_release_failed", err)
		}
	}()

	if err := e.sems.Acquire(ctx, task.TenantID, task.Channel); err != nil {
		return errors.Classified(errors.KindShutdown, err)
	}
	defer e.sems.Release(task.TenantID, task.Channel)

	started := time.Now()
	if err := repository.TransitionAttempt(ctx, attempt.ID, attempt.State, model.AttemptStateInFlight, map[string]interface{}{
		"started_at": started,
	}); err != nil {
		return err
	}
	attempt.State = model.AttemptStateInFlight

	metrics.AddWorkersBusy(ctx, 1)
	defer metrics.AddWorkersBusy(ctx, -1)

	msg, renderErr := e.prepare(ctx, n, task)
	if renderErr != nil {
		return e.fail(ctx, n, task, attempt, errors.KindOf(renderErr), renderErr, 0)
	}

	adapter, err := e.registry.Get(task.Channel)
	if err != nil {
		return e.fail(ctx, n, task, attempt, errors.KindInternal, err, 0)
	}

	outcome := adapter.Send(ctx, msg)
	elapsed := time.Since(started).Seconds()

	if outcome.Delivered {
		updates := map[string]interface{}{}
		if outcome.ProviderRef != "" {
			updates["provider_ref"] = outcome.ProviderRef
		}
		if err := repository.TransitionAttempt(ctx, attempt.ID, attempt.State, model.AttemptStateDelivered, updates); err != nil {
			return err
		}
		metrics.RecordAttempt(ctx, string(task.Channel), "delivered", elapsed)
		logger.Event(ctx, "delivery_succeeded",
			zap.Int64("notification_id", n.PublicID),
			zap.String("channel", string(task.Channel)),
			zap.Int("attempt_no", task.AttemptNo),
			zap.String("provider_ref", outcome.ProviderRef),
		)
		return e.completeIfDone(ctx, n)
	}

	metrics.RecordAttempt(ctx, string(task.Channel), string(outcome.ErrorKind), elapsed)
	return e.fail(ctx, n, task, attempt, outcome.ErrorKind, outcome.Err, outcome.RetryAfterHint)
}

// ensureAttempt loads or creates the attempt row for the task. A nil attempt
// means the task is a stale redelivery that was already handled. stale flags
// a row abandoned in flight by a dead worker: the caller must fail it through
// the retry path instead of delivering.
func (e *Executor) ensureAttempt(ctx context.Context, task *Task) (*model.DeliveryAttempt, bool, error) {
	latest, err := repository.GetLatestAttempt(ctx, task.NotificationID, task.RecipientID, task.Channel)
	if err != nil && !stderrors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	if latest != nil {
		switch {
		case latest.AttemptNo > task.AttemptNo:
			return nil, false, nil
		case latest.AttemptNo == task.AttemptNo:
			if latest.State == model.AttemptStatePending {
				return latest, false, nil
			}
			if latest.State == model.AttemptStateInFlight {
				if staleInFlight(latest, time.Now()) {
					return latest, true, nil
				}
				// a live worker may still own this row: the redelivery must
				// not be acked until the outcome is decidable, so requeue
				return nil, false, fmt.Errorf("attempt %d still in flight", latest.AttemptNo)
			}
			return nil, false, nil
		}
	}

	attempt := &model.DeliveryAttempt{
		NotificationID: task.NotificationID,
		TenantID:       task.TenantID,
		RecipientID:    task.RecipientID,
		Channel:        task.Channel,
		AttemptNo:      task.AttemptNo,
		State:          model.AttemptStatePending,
	}
	if _, err := repository.CreateAttempt(ctx, attempt); err != nil {
		return nil, false, err
	}
	if attempt.ID == 0 {
		// lost the insert race; re-read
		latest, err := repository.GetLatestAttempt(ctx, task.NotificationID, task.RecipientID, task.Channel)
		return latest, false, err
	}
	return attempt, false, nil
}

// staleInFlight reports whether an in_flight row was abandoned. Its worker
// either finishes or fails within the adapter timeout, and the Redis
// in-flight lock lapses after twice that; anything older has no owner.
func staleInFlight(a *model.DeliveryAttempt, now time.Time) bool {
	if a.StartedAt == nil {
		return true
	}
	return now.Sub(*a.StartedAt) > 2*config.Cfg.AdapterTimeout()
}

// prepare renders the message and resolves the endpoint for the channel.
func (e *Executor) prepare(ctx context.Context, n *model.Notification, task *Task) (*provider.Message, error) {
	recipient, err := repository.GetRecipient(ctx, task.TenantID, task.RecipientID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.Classified(errors.KindEndpointMissing, fmt.Errorf("recipient %d not found", task.RecipientID))
	}
	if err != nil {
		return nil, errors.Classified(errors.KindProviderError, err)
	}

	tmpl, err := repository.GetTemplate(ctx, n.TemplateID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.Classified(errors.KindTemplateParameterMissing, fmt.Errorf("template %s not found", n.TemplateID))
	}
	if err != nil {
		return nil, errors.Classified(errors.KindProviderError, err)
	}

	params := make(map[string]string, len(n.Parameters))
	for k, v := range n.Parameters {
		params[k] = fmt.Sprintf("%v", v)
	}

	rendered, err := render.Render(tmpl, task.Channel, recipient.Locale, params)
	if err != nil {
		return nil, err
	}

	endpoint, err := e.endpoint(recipient, task.Channel)
	if err != nil {
		return nil, err
	}

	return &provider.Message{
		TenantID:       task.TenantID,
		RecipientID:    task.RecipientID,
		NotificationID: n.ID,
		Channel:        task.Channel,
		AttemptNo:      task.AttemptNo,
		Priority:       task.Priority,
		Endpoint:       endpoint,
		Subject:        rendered.Subject,
		Body:           rendered.Body,
		Locale:         rendered.Locale,
		Kind:           n.Kind,
	}, nil
}

func (e *Executor) endpoint(r *model.Recipient, ch model.Channel) (string, error) {
	if !r.HasEndpoint(ch) {
		return "", errors.Classified(errors.KindEndpointMissing,
			fmt.Errorf("recipient %d has no %s endpoint", r.ID, ch))
	}

	switch ch {
	case model.ChannelSMS:
		phone, err := utils.DecryptEndpoint(*r.PhoneEnc)
		if err != nil {
			return "", errors.Classified(errors.KindEndpointInvalid, err)
		}
		return phone, nil
	case model.ChannelEmail:
		return *r.EmailAddress, nil
	case model.ChannelPush:
		token, err := utils.DecryptEndpoint(*r.PushToken)
		if err != nil {
			return "", errors.Classified(errors.KindEndpointInvalid, err)
		}
		return token, nil
	case model.ChannelInApp:
		return "", nil
	}
	return "", errors.Classified(errors.KindEndpointMissing, fmt.Errorf("unknown channel %s", ch))
}

// drop moves a not-yet-in-flight attempt to a dropped terminal.
func (e *Executor) drop(ctx context.Context, n *model.Notification, attempt *model.DeliveryAttempt, state model.AttemptState, kind errors.ErrorKind) error {
	if err := repository.TransitionAttempt(ctx, attempt.ID, attempt.State, state, map[string]interface{}{
		"error_kind": kind,
	}); err != nil {
		return err
	}

	metrics.RecordDropped(ctx, string(attempt.Channel), string(kind))
	logger.Event(ctx, "delivery_dropped",
		zap.Int64("notification_id", n.PublicID),
		zap.String("channel", string(attempt.Channel)),
		zap.String("reason", string(kind)),
	)
	return e.completeIfDone(ctx, n)
}

// fail handles every non-delivered outcome of an in-flight attempt.
func (e *Executor) fail(ctx context.Context, n *model.Notification, task *Task, attempt *model.DeliveryAttempt, kind errors.ErrorKind, cause error, hint time.Duration) error {
	verdict := JudgeRetry(kind, task.Priority, task.AttemptNo, task.ExpiresAt, time.Now(),
		config.Cfg.RetryBase(), config.Cfg.RetryCap(), hint)

	if verdict.Retry {
		if err := repository.TransitionAttempt(ctx, attempt.ID, attempt.State, model.AttemptStateTransientFailed, map[string]interface{}{
			"error_kind": kind,
		}); err != nil {
			return err
		}
		if err := e.scheduleRetry(ctx, task, verdict.Delay); err != nil {
			return err
		}
		metrics.RecordRetry(ctx, string(task.Channel), string(kind))
		logger.Event(ctx, "delivery_retry_scheduled",
			zap.Int64("notification_id", n.PublicID),
			zap.String("channel", string(task.Channel)),
			zap.Int("attempt_no", task.AttemptNo),
			zap.String("error_kind", string(kind)),
			zap.Duration("delay", verdict.Delay),
		)
		return nil
	}

	finalKind := verdict.FinalKind
	if err := repository.TransitionAttempt(ctx, attempt.ID, attempt.State, model.AttemptStatePermanentFailed, map[string]interface{}{
		"error_kind": finalKind,
	}); err != nil {
		return err
	}

	if err := e.park(ctx, n, task, finalKind); err != nil {
		logger.EventError(ctx, "dlq_park_failed", err)
	}

	metrics.RecordDeadLetter(ctx, string(task.Channel), string(finalKind))
	logger.EventError(ctx, "delivery_failed_permanently", cause,
		zap.Int64("notification_id", n.PublicID),
		zap.String("channel", string(task.Channel)),
		zap.Int("attempt_no", task.AttemptNo),
		zap.String("error_kind", string(finalKind)),
	)
	return e.completeIfDone(ctx, n)
}

// scheduleRetry republishes the leg through the delayed exchange with the
// attempt number advanced.
func (e *Executor) scheduleRetry(ctx context.Context, task *Task, delay time.Duration) error {
	id, err := snowflake.NextID()
	if err != nil {
		return err
	}

	next := task.DeliveryTask
	next.MessageID = fmt.Sprintf("delivery_%d", id)
	next.AttemptNo = task.AttemptNo + 1

	return mq.PublishDelayedMessage(
		ctx,
		mq.DelayedExchange,
		mq.DeliveryRoutingKey(task.Priority),
		delay,
		next,
	)
}

// park snapshots the failed leg into the dead letter table.
func (e *Executor) park(ctx context.Context, n *model.Notification, task *Task, kind errors.ErrorKind) error {
	payload := model.JSONB{}
	if raw, err := json.Marshal(n); err == nil {
		_ = json.Unmarshal(raw, (*map[string]interface{})(&payload))
	}

	trail := model.JSONB{}
	if attempts, err := repository.ListAttemptsForLeg(ctx, n.ID, task.RecipientID, task.Channel); err == nil {
		if raw, err := json.Marshal(attempts); err == nil {
			var list []interface{}
			_ = json.Unmarshal(raw, &list)
			trail["attempts"] = list
		}
	}

	return repository.ParkDeadLetter(ctx, &model.DeadLetter{
		TenantID:       task.TenantID,
		NotificationID: n.ID,
		RecipientID:    task.RecipientID,
		Channel:        task.Channel,
		ErrorKind:      string(kind),
		Payload:        payload,
		Attempts:       trail,
		ParkedAt:       time.Now(),
	})
}

func (e *Executor) completeIfDone(ctx context.Context, n *model.Notification) error {
	completed, err := repository.CompleteNotificationIfDone(ctx, n.ID)
	if err != nil {
		return err
	}
	if completed {
		logger.Event(ctx, "notification_completed",
			zap.Int64("notification_id", n.PublicID),
		)
	}
	return nil
}
