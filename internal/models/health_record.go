// internal/models/health_record.go
package models

// HealthRecord belongs to a patient.
type HealthRecord struct {
	ID        string `json:"id"`
	PatientID string `json:"patientId"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}
