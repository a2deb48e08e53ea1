package model

import "time"

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// UserProfile is a user together with the ids of the blobs they own.
type UserProfile struct {
	User
	Files []string `json:"files"`
}
