package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/observability"
	"github.com/dukerupert/chorewheel/internal/store"
)

// Notifier delivers event-driven pushes to a user's devices.
type Notifier struct {
	sender Sender
	push   *store.PushStore
	logger *slog.Logger
}

func NewNotifier(sender Sender, pushStore *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{sender: sender, push: pushStore, logger: logger}
}

// NotifyNudge pushes a nudge to every device the recipient registered in the household.
// It returns the number of devices reached.
func (n *Notifier) NotifyNudge(nudge *model.Nudge, fromName string) int {
	subs, err := n.push.ListByUser(nudge.ToUser, nudge.HouseholdID)
	if err != nil {
		n.logger.Error("list subscriptions for nudge", "user_id", nudge.ToUser, "error", err)
		return 0
	}

	body := nudge.Message
	if body == "" {
		body = "Friendly reminder about your chores"
	}
	payload := Payload{
		Title: fmt.Sprintf("Nudge from %s", fromName),
		Body:  body,
		URL:   "/nudges",
		Tag:   fmt.Sprintf("nudge-%d", nudge.ID),
	}
	return deliver(n.sender, n.push, n.logger, subs, model.NotifTypeNudge, payload)
}

// deliver sends payload to each subscription, pruning expired ones.
func deliver(sender Sender, pushStore *store.PushStore, logger *slog.Logger, subs []model.PushSubscription, notifType string, payload Payload) int {
	sent := 0
	for i := range subs {
		sub := &subs[i]
		err := sender.Send(sub, payload)
		observability.RecordPush(notifType, err)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, ErrExpired):
			if err := pushStore.DeleteByEndpoint(sub.Endpoint); err != nil {
				logger.Error("delete expired subscription", "subscription_id", sub.ID, "error", err)
			}
		default:
			logger.Warn("send push", "type", notifType, "subscription_id", sub.ID, "error", err)
		}
	}
	return sent
}
