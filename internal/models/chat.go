// internal/models/chat.go
package models

// Chat is a 1:1 conversation between one patient and one doctor.
type Chat struct {
	ID        string `json:"id"`
	PatientID string `json:"patientId"`
	DoctorID  string `json:"doctorId"`
}

// ChatMessage belongs to a chat.
type ChatMessage struct {
	ID       string `json:"id"`
	SenderID string `json:"senderId"`
	Text     string `json:"text,omitempty"`
	SentAt   string `json:"sentAt,omitempty"`
}
