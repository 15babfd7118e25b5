// Package events reacts to discrete domain changes delivered over the event
// feed. Trigger functions are pure: they map a change to the notification
// intents it warrants, and the handlers dispatch them.
package events

import (
	"carelink-workers/internal/models"
	"carelink-workers/internal/notify"
)

// SubscriptionStatusChanged emits approval notifications. A change counts as
// a new approval only when the prior state was not already active and the
// new state is; any other transition, including unrelated field updates on
// an already-active subscription, is a no-op.
func SubscriptionStatusChanged(before, after models.Subscription) []notify.Intent {
	if before.Status == models.StatusActive || after.Status != models.StatusActive {
		return nil
	}

	return dropEmpty([]notify.Intent{
		{
			UserID: after.PatientID,
			Title:  "Subscription approved",
			Body:   "Your subscription is now active.",
			Data: map[string]string{
				notify.DataKeyType:           notify.EventSubscriptionApproved,
				notify.DataKeySubscriptionID: after.ID,
			},
		},
		{
			UserID: after.DoctorID,
			Title:  "New patient activated",
			Body:   "A patient subscription has been activated.",
			Data: map[string]string{
				notify.DataKeyType:           notify.EventSubscriptionApproved,
				notify.DataKeySubscriptionID: after.ID,
				notify.DataKeyPatientID:      after.PatientID,
			},
		},
	})
}

// ChatMessageCreated notifies the chat party that did not send the message.
// A sender matching neither party (data anomaly) yields an empty recipient
// set.
func ChatMessageCreated(msg models.ChatMessage, chat models.Chat) []notify.Intent {
	body := msg.Text
	if body == "" {
		body = "You have a new message."
	}

	var recipients []string
	switch msg.SenderID {
	case chat.PatientID:
		recipients = []string{chat.DoctorID}
	case chat.DoctorID:
		recipients = []string{chat.PatientID}
	}

	var intents []notify.Intent
	for _, userID := range recipients {
		if userID == "" {
			continue
		}
		intents = append(intents, notify.Intent{
			UserID: userID,
			Title:  "New message",
			Body:   body,
			Data: map[string]string{
				notify.DataKeyType:   notify.EventChatMessage,
				notify.DataKeyChatID: chat.ID,
			},
		})
	}
	return intents
}

// HealthRecordCreated notifies the doctor of each given subscription about a
// new record for their patient.
func HealthRecordCreated(record models.HealthRecord, subs []models.Subscription) []notify.Intent {
	body := record.Notes
	if body == "" {
		body = "A new health record was added."
	}

	var intents []notify.Intent
	for _, sub := range subs {
		if sub.DoctorID == "" {
			continue
		}
		intents = append(intents, notify.Intent{
			UserID: sub.DoctorID,
			Title:  "New health record",
			Body:   body,
			Data: map[string]string{
				notify.DataKeyType:      notify.EventHealthRecord,
				notify.DataKeyPatientID: record.PatientID,
				notify.DataKeyRecordID:  record.ID,
			},
		})
	}
	return intents
}

func dropEmpty(intents []notify.Intent) []notify.Intent {
	out := intents[:0]
	for _, in := range intents {
		if in.UserID != "" {
			out = append(out, in)
		}
	}
	return out
}
