package models

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Token        *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Timer timestamps are epoch milliseconds, matching both the storage
// columns and the push wire format. End and Duration are set exactly once,
// when the timer is stopped.
type Timer struct {
	ID          string `json:"id"`
	OwnerID     string `json:"-"`
	Description string `json:"description"`
	IsActive    bool   `json:"isActive"`
	Start       int64  `json:"start"`
	End         *int64 `json:"end"`
	Duration    *int64 `json:"duration"`
}

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateTimerRequest struct {
	Description string `json:"description"`
}
