// internal/models/subscription.go
package models

import "time"

// SubscriptionStatus is the lifecycle state of a care relationship.
// pending -> active is the only upward transition; active -> expired is the
// only forward one.
type SubscriptionStatus string

const (
	StatusPending SubscriptionStatus = "pending"
	StatusActive  SubscriptionStatus = "active"
	StatusExpired SubscriptionStatus = "expired"
)

// PaymentStatus is orthogonal to the lifecycle status.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// Subscription is the canonical record of a time-bound patient/doctor
// relationship. The same logical record also lives under
// patients/{patientId}/subscriptions/{id} and
// doctors/{doctorId}/patients/{patientId}.
type Subscription struct {
	ID               string             `json:"id"`
	PatientID        string             `json:"patientId"`
	DoctorID         string             `json:"doctorId"`
	Status           SubscriptionStatus `json:"status"`
	EndDate          string             `json:"endDate,omitempty"` // RFC3339; absent means never expires
	PaymentStatus    PaymentStatus      `json:"paymentStatus"`
	PaymentReference string             `json:"paymentReference,omitempty"`
	PaidAt           string             `json:"paidAt,omitempty"`
}

// EndsAt parses the end date. ok is false when the date is absent or
// unparseable; such records are skipped by the sweep and the scan.
func (s *Subscription) EndsAt() (time.Time, bool) {
	if s.EndDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s.EndDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
