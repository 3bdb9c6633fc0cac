// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — no inheritance, just plain
// fields plus struct tags that drive JSON and database mapping.
package model

import "time"

// Record is one blood-glucose measurement.
//
// UserID is the owning user — every record has exactly one owner, and the
// repository never reads or writes a record without filtering by it. ID and
// UserID are immutable after creation; edits only touch Level, MeasuredAt,
// and Note.
//
// MeasuredAt is when the measurement was taken (user-supplied, may differ
// from CreatedAt, and may legitimately be in the future — e.g. a corrected
// meter clock). It is normalized to UTC before it reaches the store.
//
// The `json:"..."` tags define the wire shape consumed by the SPA:
//
//	{"id":"...","level":5.4,"measuredAt":"...","note":"after breakfast",...}
type Record struct {
	ID         string    `json:"id"         db:"id"`
	UserID     string    `json:"userId"     db:"user_id"`
	Level      float64   `json:"level"      db:"level"`
	MeasuredAt time.Time `json:"measuredAt" db:"measured_at"`
	Note       string    `json:"note"       db:"note"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt"  db:"updated_at"`
}

// RecordStats summarises a user's records for the dashboard: how many
// measurements exist, the average/min/max level, and the most recent
// measurement. Zero Count means the remaining fields are meaningless and
// Latest is nil.
type RecordStats struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Latest  *Record `json:"latest,omitempty"`
}
