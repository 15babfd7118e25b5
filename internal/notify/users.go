// internal/notify/users.go
package notify

import (
	"context"

	"carelink-workers/internal/store"
)

// UserDirectory resolves profile details used by the email channel.
type UserDirectory struct {
	store store.Store
}

func NewUserDirectory(st store.Store) *UserDirectory {
	return &UserDirectory{store: st}
}

// Email returns the user's address, empty when the profile is absent or has
// no address on file.
func (u *UserDirectory) Email(ctx context.Context, userID string) string {
	rec, err := u.store.Get(ctx, "users/"+userID)
	if err != nil || rec == nil {
		return ""
	}
	email, _ := rec.Fields["email"].(string)
	return email
}
