// internal/events/triggers_test.go
package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carelink-workers/internal/models"
	"carelink-workers/internal/notify"
)

func TestSubscriptionStatusChanged(t *testing.T) {
	base := models.Subscription{ID: "s1", PatientID: "p1", DoctorID: "d1"}
	withStatus := func(s models.SubscriptionStatus) models.Subscription {
		sub := base
		sub.Status = s
		return sub
	}

	tests := []struct {
		name      string
		before    models.Subscription
		after     models.Subscription
		wantCount int
	}{
		{"pending to active is an approval", withStatus(models.StatusPending), withStatus(models.StatusActive), 2},
		{"active to active is not", withStatus(models.StatusActive), withStatus(models.StatusActive), 0},
		{"active to expired is not", withStatus(models.StatusActive), withStatus(models.StatusExpired), 0},
		{"pending to expired is not", withStatus(models.StatusPending), withStatus(models.StatusExpired), 0},
		{"expired to active re-approves", withStatus(models.StatusExpired), withStatus(models.StatusActive), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intents := SubscriptionStatusChanged(tt.before, tt.after)
			assert.Len(t, intents, tt.wantCount)
		})
	}
}

func TestSubscriptionStatusChanged_Payloads(t *testing.T) {
	before := models.Subscription{ID: "s1", PatientID: "p1", DoctorID: "d1", Status: models.StatusPending}
	after := before
	after.Status = models.StatusActive

	intents := SubscriptionStatusChanged(before, after)
	require.Len(t, intents, 2)

	assert.Equal(t, "p1", intents[0].UserID)
	assert.Equal(t, notify.EventSubscriptionApproved, intents[0].Data[notify.DataKeyType])
	assert.Equal(t, "s1", intents[0].Data[notify.DataKeySubscriptionID])

	assert.Equal(t, "d1", intents[1].UserID)
	assert.Equal(t, "p1", intents[1].Data[notify.DataKeyPatientID])
}

func TestSubscriptionStatusChanged_DropsEmptyRecipients(t *testing.T) {
	before := models.Subscription{ID: "s1", PatientID: "p1", Status: models.StatusPending}
	after := before
	after.Status = models.StatusActive

	intents := SubscriptionStatusChanged(before, after)
	require.Len(t, intents, 1)
	assert.Equal(t, "p1", intents[0].UserID)
}

func TestChatMessageCreated(t *testing.T) {
	chat := models.Chat{ID: "c1", PatientID: "p1", DoctorID: "d1"}

	tests := []struct {
		name   string
		sender string
		chat   models.Chat
		want   []string
	}{
		{"patient sends, doctor receives", "p1", chat, []string{"d1"}},
		{"doctor sends, patient receives", "d1", chat, []string{"p1"}},
		{"unknown sender yields nothing", "intruder", chat, nil},
		{"chat without parties yields nothing", "p1", models.Chat{ID: "c1"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intents := ChatMessageCreated(models.ChatMessage{ID: "m1", SenderID: tt.sender, Text: "hi"}, tt.chat)

			var recipients []string
			for _, intent := range intents {
				recipients = append(recipients, intent.UserID)
				assert.Equal(t, "hi", intent.Body)
				assert.Equal(t, "c1", intent.Data[notify.DataKeyChatID])
			}
			assert.Equal(t, tt.want, recipients)
		})
	}
}

func TestChatMessageCreated_EmptyTextFallback(t *testing.T) {
	chat := models.Chat{ID: "c1", PatientID: "p1", DoctorID: "d1"}
	intents := ChatMessageCreated(models.ChatMessage{ID: "m1", SenderID: "p1"}, chat)
	require.Len(t, intents, 1)
	assert.Equal(t, "You have a new message.", intents[0].Body)
}

func TestHealthRecordCreated(t *testing.T) {
	record := models.HealthRecord{ID: "r1", PatientID: "p1", Notes: "lab results"}
	subs := []models.Subscription{
		{ID: "s1", PatientID: "p1", DoctorID: "d1"},
		{ID: "s2", PatientID: "p1", DoctorID: "d2"},
		{ID: "s3", PatientID: "p1"},
	}

	intents := HealthRecordCreated(record, subs)
	require.Len(t, intents, 2)
	assert.Equal(t, "d1", intents[0].UserID)
	assert.Equal(t, "d2", intents[1].UserID)
	assert.Equal(t, "lab results", intents[0].Body)
	assert.Equal(t, "r1", intents[0].Data[notify.DataKeyRecordID])
	assert.Equal(t, "p1", intents[0].Data[notify.DataKeyPatientID])
}

func TestHealthRecordCreated_NoSubscriptions(t *testing.T) {
	intents := HealthRecordCreated(models.HealthRecord{ID: "r1", PatientID: "p1"}, nil)
	assert.Empty(t, intents)
}
