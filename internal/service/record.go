// Package service contains the business logic layer of the application.
//
// The layering mirrors the request path:
//
//	Handler (HTTP)      → parses requests, writes responses
//	Service (business)  → identity-scoped authorization, validation
//	Repository (data)   → reads/writes SQLite
//
// Services accept primitives plus the resolved ownerID — never an
// *http.Request — and return domain errors from apperror, never HTTP
// status codes. The handler layer does the translation both ways.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sakif/glucolog/internal/apperror"
	"github.com/sakif/glucolog/internal/model"
	"github.com/sakif/glucolog/internal/repository"
)

// Limits are the configured value invariants for a measurement. They are
// built once in main from the environment and injected here — no handler or
// service reads configuration globals.
type Limits struct {
	LevelMin   float64 // lowest acceptable glucose level, inclusive
	LevelMax   float64 // highest acceptable glucose level, inclusive
	NoteMaxLen int     // maximum note length in runes
}

// DefaultLimits returns the clinical defaults: level 0.1–100, note ≤ 1000.
func DefaultLimits() Limits {
	return Limits{LevelMin: 0.1, LevelMax: 100, NoteMaxLen: 1000}
}

// RecordService handles business logic for blood-glucose records.
//
// AUTHORIZATION MODEL:
// Every method takes the ownerID resolved by the auth middleware — the one
// trusted identity source. List and Create are always permitted for a
// resolved user; Get, Update, and Delete go through owner-filtered
// repository queries, so a record that is missing OR belongs to someone
// else uniformly comes back as apperror.ErrNotFound. The uniformity is
// deliberate: answering 403 for other people's ids would confirm those ids
// exist.
type RecordService struct {
	repo   repository.RecordRepository
	limits Limits
	logger *slog.Logger
}

// NewRecordService creates a RecordService. The caller decides which
// repository implementation (SQLite, or a mock in tests) and which limits
// to inject.
func NewRecordService(repo repository.RecordRepository, limits Limits, logger *slog.Logger) *RecordService {
	return &RecordService{
		repo:   repo,
		limits: limits,
		logger: logger,
	}
}

// validate enforces the value invariants shared by Create and Update.
// All violations are reported before anything touches the store, so a
// rejected payload never causes a partial write.
func (s *RecordService) validate(level float64, measuredAt time.Time, note string) error {
	if math.IsNaN(level) || math.IsInf(level, 0) {
		return apperror.ValidationFailed("level", "level must be a finite number")
	}
	if level < s.limits.LevelMin || level > s.limits.LevelMax {
		return apperror.ValidationFailed("level",
			fmt.Sprintf("level must be between %g and %g", s.limits.LevelMin, s.limits.LevelMax))
	}
	if measuredAt.IsZero() {
		return apperror.ValidationFailed("measuredAt", "measurement time is required")
	}
	// No upper bound on measuredAt: future-dated records are allowed.
	if len([]rune(note)) > s.limits.NoteMaxLen {
		return apperror.ValidationFailed("note",
			fmt.Sprintf("note must be %d characters or less", s.limits.NoteMaxLen))
	}
	return nil
}

// Create validates and stores a new measurement owned by ownerID.
func (s *RecordService) Create(ctx context.Context, ownerID string, level float64, measuredAt time.Time, note string) (*model.Record, error) {
	if ownerID == "" {
		return nil, apperror.Unauthorized()
	}
	if err := s.validate(level, measuredAt, note); err != nil {
		return nil, err
	}

	record := &model.Record{
		UserID:     ownerID,
		Level:      level,
		MeasuredAt: measuredAt.UTC(),
		Note:       note,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("failed to create record",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating record: %w", err)
	}

	s.logger.Info("record created",
		slog.String("id", record.ID),
		slog.String("ownerID", ownerID),
	)

	return record, nil
}

// Get returns one of ownerID's records by id.
func (s *RecordService) Get(ctx context.Context, ownerID, id string) (*model.Record, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "record ID is required")
	}
	return s.repo.GetByOwner(ctx, id, ownerID)
}

// List returns all of ownerID's records, newest measurement first.
func (s *RecordService) List(ctx context.Context, ownerID string) ([]model.Record, error) {
	records, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list records",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return records, nil
}

// Update replaces level, measurement time, and note of one of ownerID's
// records. Owner and id are immutable; a cross-owner id is NotFound.
func (s *RecordService) Update(ctx context.Context, ownerID, id string, level float64, measuredAt time.Time, note string) (*model.Record, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "record ID is required")
	}
	if err := s.validate(level, measuredAt, note); err != nil {
		return nil, err
	}

	// Fetch through the owner filter first: confirms existence AND
	// ownership in one query, and gives us the full record to return.
	record, err := s.repo.GetByOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	record.Level = level
	record.MeasuredAt = measuredAt.UTC()
	record.Note = note

	if err := s.repo.Update(ctx, record); err != nil {
		s.logger.Error("failed to update record",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating record: %w", err)
	}

	s.logger.Info("record updated",
		slog.String("id", record.ID),
		slog.String("ownerID", ownerID),
	)

	return record, nil
}

// Delete removes one of ownerID's records. Deleting an id that is missing
// or owned by someone else returns NotFound either way.
func (s *RecordService) Delete(ctx context.Context, ownerID, id string) error {
	if id == "" {
		return apperror.ValidationFailed("id", "record ID is required")
	}

	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	s.logger.Info("record deleted",
		slog.String("id", id),
		slog.String("ownerID", ownerID),
	)
	return nil
}

// Stats returns the dashboard summary for ownerID's records.
func (s *RecordService) Stats(ctx context.Context, ownerID string) (*model.RecordStats, error) {
	stats, err := s.repo.StatsByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to aggregate records",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("aggregating records: %w", err)
	}
	return stats, nil
}
