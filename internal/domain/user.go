// Package domain contains core domain types for the Midori studio.
package domain

import (
	"time"
)

// User is the anonymous browser identity that owns local-storage items.
type User struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Inactive reports whether the user has not been seen within the retention window.
// A non-positive window never expires anyone.
func (u *User) Inactive(retention time.Duration, now time.Time) bool {
	if retention <= 0 {
		return false
	}
	return now.Sub(u.LastSeenAt) > retention
}
