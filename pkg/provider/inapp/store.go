package inapp

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"Mazraaty/internal/model"
	"Mazraaty/internal/repository"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/provider"
)

// StoreAdapter writes in-app notifications straight into the recipient's
// inbox table. A successful write is a delivery; the farmer sees it on next
// app open.
type StoreAdapter struct{}

func NewStoreAdapter() *StoreAdapter {
	return &StoreAdapter{}
}

func (a *StoreAdapter) Name() string {
	return "inapp-store"
}

func (a *StoreAdapter) Send(ctx context.Context, msg *provider.Message) provider.Outcome {
	inbox := &model.InboxMessage{
		TenantID:       msg.TenantID,
		RecipientID:    msg.RecipientID,
		NotificationID: msg.NotificationID,
		Subject:        msg.Subject,
		Body:           msg.Body,
	}

	if err := repository.StoreInboxMessage(ctx, inbox); err != nil {
		// DB failures are transient from the adapter's point of view.
		return provider.Outcome{
			ErrorKind: errors.KindProviderError,
			Err:       fmt.Errorf("failed to write inbox message: %w", err),
		}
	}

	return provider.Outcome{
		Delivered:   true,
		ProviderRef: "inbox-" + strconv.FormatInt(msg.NotificationID, 10) + "-" + strconv.FormatInt(msg.RecipientID, 10),
	}
}

var (
	adapter provider.Adapter
	once    sync.Once
)

func Init() provider.Adapter {
	once.Do(func() {
		adapter = NewStoreAdapter()
	})
	return adapter
}
