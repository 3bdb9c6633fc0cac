// Package repository declares the storage interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite);
// services receive these interfaces, never a concrete DB, so tests can
// inject in-memory fakes and the storage engine can be swapped in one
// place.
package repository

import (
	"context"

	"github.com/sakif/glucolog/internal/model"
)

// RecordRepository is durable CRUD for blood-glucose records.
//
// Every read and write is owner-scoped: there is deliberately no way to
// fetch or mutate a record without naming the owner, so a missing record
// and another user's record are indistinguishable at this layer. Both
// surface as apperror.ErrNotFound.
type RecordRepository interface {
	// Create inserts the record, allocating ID and timestamps in place.
	Create(ctx context.Context, record *model.Record) error

	// GetByOwner returns the record only if it exists AND belongs to ownerID.
	GetByOwner(ctx context.Context, id, ownerID string) (*model.Record, error)

	// ListByOwner returns all of ownerID's records, newest measurement
	// first (measured_at DESC, id DESC as a deterministic tie-break).
	ListByOwner(ctx context.Context, ownerID string) ([]model.Record, error)

	// Update applies Level, MeasuredAt, and Note if the record exists and
	// record.UserID owns it. ID and owner are immutable.
	Update(ctx context.Context, record *model.Record) error

	// Delete removes the record if ownerID owns it.
	Delete(ctx context.Context, id, ownerID string) error

	// StatsByOwner aggregates ownerID's records for the dashboard.
	StatsByOwner(ctx context.Context, ownerID string) (*model.RecordStats, error)
}

// UserRepository is durable CRUD for user accounts, keyed by internal id,
// email, or external provider id.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// Update persists name, google_id, password_hash, and language changes.
	// Email and ID are immutable.
	UpdateUser(ctx context.Context, user *model.User) error

	// DeleteUser removes the account; the schema cascades to its records.
	// No API route calls this today — accounts are never hard-deleted by
	// the application — but the contract exists for admin tooling.
	DeleteUser(ctx context.Context, id string) error
}
