package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/fuego-digital/ProspectBoard/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	pollInterval   = time.Minute
	reminderWindow = time.Hour
)

type Store interface {
	PendingReminders(ctx context.Context, until time.Time) ([]models.Client, error)
	SwitchReminderStatus(ctx context.Context, id string) error
}

type Notifier interface {
	Notify(ctx context.Context, message string, user interface{}) error
}

type Worker struct {
	log      *logrus.Entry
	store    Store
	notifier Notifier
}

func New(log *logrus.Logger, store Store, notifier Notifier) *Worker {
	return &Worker{
		log:      log.WithField("component", "worker"),
		store:    store,
		notifier: notifier,
	}
}

// Run reminds owners of pending meetings starting within the next hour,
// once per meeting. Blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if err := w.remind(ctx); err != nil {
			return fmt.Errorf("worker send reminders failed: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Worker) remind(ctx context.Context) error {
	clients, err := w.store.PendingReminders(ctx, time.Now().Add(reminderWindow))
	if err != nil {
		return err
	}
	for _, client := range clients {
		msg := fmt.Sprintf("meeting with %s (%s) starts at %s",
			client.OwnerName, client.CompanyName, client.MeetingDate.Format("15:04"))
		if err = w.notifier.Notify(ctx, msg, client.UserID); err != nil {
			return err
		}
		if err = w.store.SwitchReminderStatus(ctx, client.ID); err != nil {
			return err
		}
		w.log.Debugf("reminder sent for client %s", client.ID)
	}
	return nil
}
