// internal/models/user.go
package models

// User is the profile record under users/{id}.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Device is a delivery endpoint under users/{userId}/devices/{deviceId}.
// Token may be empty; the device id then doubles as the token.
type Device struct {
	ID           string `json:"id"`
	Token        string `json:"token,omitempty"`
	Platform     string `json:"platform,omitempty"` // android, ios, web
	LastActiveAt string `json:"lastActiveAt,omitempty"`
}
