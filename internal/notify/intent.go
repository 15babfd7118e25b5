// internal/notify/intent.go
package notify

// Event types carried in notification payloads.
const (
	EventSubscriptionApproved = "subscription-approved"
	EventSubscriptionExpiring = "subscription-expiring"
	EventChatMessage          = "chat-message"
	EventHealthRecord         = "health-record"
)

// Payload data keys.
const (
	DataKeyType           = "type"
	DataKeySubscriptionID = "subscriptionId"
	DataKeyPatientID      = "patientId"
	DataKeyChatID         = "chatId"
	DataKeyRecordID       = "recordId"
)

// Intent is one decided notification: who to reach and with what. Trigger
// logic produces intents; the dispatcher executes them. Email marks intents
// that should additionally go out over the email channel when the recipient
// has an address on file.
type Intent struct {
	UserID string
	Title  string
	Body   string
	Data   map[string]string
	Email  bool
}

// EventType returns the tagged event type, empty when untagged.
func (i Intent) EventType() string {
	return i.Data[DataKeyType]
}
