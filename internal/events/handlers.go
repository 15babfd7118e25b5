// internal/events/handlers.go
package events

import (
	"context"

	"carelink-workers/internal/common/logger"
	"carelink-workers/internal/models"
	"carelink-workers/internal/notify"
	"carelink-workers/internal/store"
	"carelink-workers/internal/subscription"
)

// Handlers are the event-driven entry points. Each resolves whatever context
// its trigger needs, derives intents and dispatches them, waiting for the
// fan-out to settle before returning. Missing context is a logged no-op, not
// an error; absence must never crash the pipeline.
type Handlers struct {
	repo        *subscription.Repository
	store       store.Store
	dispatcher  notify.IntentDispatcher
	fanoutLimit int
	logger      logger.Logger
}

func NewHandlers(repo *subscription.Repository, st store.Store, dispatcher notify.IntentDispatcher, fanoutLimit int, log logger.Logger) *Handlers {
	if fanoutLimit <= 0 {
		fanoutLimit = 5
	}
	return &Handlers{
		repo:        repo,
		store:       st,
		dispatcher:  dispatcher,
		fanoutLimit: fanoutLimit,
		logger:      log.WithFields(map[string]interface{}{"component": "event-handlers"}),
	}
}

// OnSubscriptionStatusChange notifies both parties when a subscription is
// newly approved.
func (h *Handlers) OnSubscriptionStatusChange(ctx context.Context, before, after models.Subscription) error {
	intents := SubscriptionStatusChanged(before, after)
	if len(intents) == 0 {
		h.logger.Debug("status change is not a new approval, ignoring", map[string]interface{}{
			"subscriptionId": after.ID,
			"before":         string(before.Status),
			"after":          string(after.Status),
		})
		return nil
	}
	h.dispatcher.Dispatch(ctx, intents)
	return nil
}

// OnChatMessageCreated notifies the chat party that did not send the message.
func (h *Handlers) OnChatMessageCreated(ctx context.Context, msg models.ChatMessage, chatID string) error {
	rec, err := h.store.Get(ctx, "chats/"+chatID)
	if err != nil {
		return err
	}
	if rec == nil {
		h.logger.Info("parent chat not found, skipping", map[string]interface{}{"chatId": chatID})
		return nil
	}

	chat := models.Chat{ID: chatID}
	chat.PatientID, _ = rec.Fields["patientId"].(string)
	chat.DoctorID, _ = rec.Fields["doctorId"].(string)

	h.dispatcher.Dispatch(ctx, ChatMessageCreated(msg, chat))
	return nil
}

// OnHealthRecordCreated notifies the doctors of the patient's active
// subscriptions, capped at the configured fan-out limit.
func (h *Handlers) OnHealthRecordCreated(ctx context.Context, record models.HealthRecord, patientID string) error {
	subs, err := h.repo.FindActiveByPatient(ctx, patientID, h.fanoutLimit)
	if err != nil {
		return err
	}

	if record.PatientID == "" {
		record.PatientID = patientID
	}

	h.dispatcher.Dispatch(ctx, HealthRecordCreated(record, subs))
	return nil
}
