package domain

import "time"

// User is an account holder. Email doubles as the login identifier.
type User struct {
	ID            string
	Email         string
	Username      string
	PasswordHash  string
	AvatarURL     string
	IsPremium     bool
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EmailVerification stores a hashed one-time code sent to confirm an address.
// Codes expire, cap verification attempts and enforce a resend cooldown.
type EmailVerification struct {
	ID          string
	UserID      string
	CodeHash    string
	ExpiresAt   time.Time
	Attempts    int
	LastSentAt  time.Time
	ResendCount int
	CreatedAt   time.Time
}

// PasswordReset stores a hashed one-time code for password recovery.
type PasswordReset struct {
	ID        string
	UserID    string
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
	UsedAt    *time.Time
	CreatedAt time.Time
}
