// internal/events/envelope.go
package events

import (
	cerrors "carelink-workers/internal/common/errors"
	"carelink-workers/internal/common/validation"
	"carelink-workers/internal/models"
)

// Event types, doubling as routing keys on the topic exchange.
const (
	TypeSubscriptionUpdated = "subscription.updated"
	TypeChatMessageCreated  = "chat.message.created"
	TypeHealthRecordCreated = "healthrecord.created"
)

// EventTypes lists every event the consumer binds to.
func EventTypes() []string {
	return []string{TypeSubscriptionUpdated, TypeChatMessageCreated, TypeHealthRecordCreated}
}

// SubscriptionChange carries the before/after snapshots of one update.
type SubscriptionChange struct {
	Before models.Subscription `json:"before"`
	After  models.Subscription `json:"after"`
}

// ChatMessageEvent carries a newly created chat message.
type ChatMessageEvent struct {
	ChatID  string             `json:"chatId"`
	Message models.ChatMessage `json:"message"`
}

// HealthRecordEvent carries a newly created health record.
type HealthRecordEvent struct {
	PatientID string              `json:"patientId"`
	Record    models.HealthRecord `json:"record"`
}

var envelopeSchemas = map[string]map[string]interface{}{
	TypeSubscriptionUpdated: {
		"type":     "object",
		"required": []interface{}{"before", "after"},
		"properties": map[string]interface{}{
			"before": map[string]interface{}{"type": "object"},
			"after":  map[string]interface{}{"type": "object"},
		},
	},
	TypeChatMessageCreated: {
		"type":     "object",
		"required": []interface{}{"chatId", "message"},
		"properties": map[string]interface{}{
			"chatId": map[string]interface{}{"type": "string", "minLength": 1},
			"message": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"senderId"},
			},
		},
	},
	TypeHealthRecordCreated: {
		"type":     "object",
		"required": []interface{}{"patientId", "record"},
		"properties": map[string]interface{}{
			"patientId": map[string]interface{}{"type": "string", "minLength": 1},
			"record":    map[string]interface{}{"type": "object"},
		},
	},
}

// ValidateEnvelope checks a raw event body against the schema for its type.
func ValidateEnvelope(eventType string, body []byte) error {
	schema, ok := envelopeSchemas[eventType]
	if !ok {
		return cerrors.E(cerrors.KindInvalidArgument, cerrors.ErrCodeEventSchemaInvalid,
			"unknown event type "+eventType)
	}
	if err := validation.ValidateBytes(schema, body); err != nil {
		return cerrors.Wrap(cerrors.KindInvalidArgument, cerrors.ErrCodeEventSchemaInvalid,
			"invalid "+eventType+" envelope", err)
	}
	return nil
}
