// internal/events/envelope_test.go
package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	cerrors "carelink-workers/internal/common/errors"
)

func TestValidateEnvelope(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		body      string
		wantErr   bool
	}{
		{
			name:      "valid subscription update",
			eventType: TypeSubscriptionUpdated,
			body:      `{"before":{"status":"pending"},"after":{"status":"active"}}`,
		},
		{
			name:      "subscription update missing after",
			eventType: TypeSubscriptionUpdated,
			body:      `{"before":{"status":"pending"}}`,
			wantErr:   true,
		},
		{
			name:      "valid chat message",
			eventType: TypeChatMessageCreated,
			body:      `{"chatId":"c1","message":{"senderId":"p1","text":"hi"}}`,
		},
		{
			name:      "chat message with empty chat id",
			eventType: TypeChatMessageCreated,
			body:      `{"chatId":"","message":{"senderId":"p1"}}`,
			wantErr:   true,
		},
		{
			name:      "chat message without sender",
			eventType: TypeChatMessageCreated,
			body:      `{"chatId":"c1","message":{"text":"hi"}}`,
			wantErr:   true,
		},
		{
			name:      "valid health record",
			eventType: TypeHealthRecordCreated,
			body:      `{"patientId":"p1","record":{"id":"r1"}}`,
		},
		{
			name:      "not json at all",
			eventType: TypeHealthRecordCreated,
			body:      `not json`,
			wantErr:   true,
		},
		{
			name:      "unknown event type",
			eventType: "subscription.deleted",
			body:      `{}`,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEnvelope(tt.eventType, []byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, cerrors.ErrCodeEventSchemaInvalid, cerrors.CodeOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEventTypes(t *testing.T) {
	assert.ElementsMatch(t, []string{
		"subscription.updated",
		"chat.message.created",
		"healthrecord.created",
	}, EventTypes())
}
