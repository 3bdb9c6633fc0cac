// Package model defines the data structures used throughout the application.
package model

import "time"

// Supported UI languages. The frontend stores the user's preference here so
// it survives across devices; anything outside this set is rejected by the
// service layer.
const (
	LanguageEN = "en"
	LanguageZH = "zh"
)

// User represents a registered account.
//
// Two sign-in modes share this one record:
//   - Google OAuth: GoogleID holds Google's stable subject id (the "sub" claim).
//   - Email/password: PasswordHash holds a bcrypt hash.
//
// A user created through one mode has the other field empty. Email is the
// unifying key — it is unique across all users, so authenticating with
// Google using an email that already registered with a password attaches
// the Google identity to the existing account (see service.AuthService).
//
// WHY GoogleID string (not int64)?
// Google documents the subject id as an opaque string and explicitly warns
// against parsing it as a number — it can exceed the precision of numeric
// types in some clients. We store it verbatim.
//
// PasswordHash and GoogleID carry `json:"-"` so they can never leak through
// an API response, no matter which handler serializes the struct.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	Name         string    `json:"name"      db:"name"`
	GoogleID     string    `json:"-"         db:"google_id"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	Language     string    `json:"language"  db:"language"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
