package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sakif/glucolog/internal/apperror"
	"github.com/sakif/glucolog/internal/model"
	"github.com/sakif/glucolog/internal/repository"
)

// mockRecordRepo implements repository.RecordRepository in memory. Like the
// real SQLite implementation, every lookup filters on the owner, so a
// cross-owner id behaves exactly like a missing one.
type mockRecordRepo struct {
	records map[string]*model.Record
	nextID  int
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{records: make(map[string]*model.Record)}
}

func (m *mockRecordRepo) Create(_ context.Context, record *model.Record) error {
	m.nextID++
	record.ID = fmt.Sprintf("mock-%d", m.nextID)
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	stored := *record
	m.records[record.ID] = &stored
	return nil
}

func (m *mockRecordRepo) GetByOwner(_ context.Context, id, ownerID string) (*model.Record, error) {
	r, ok := m.records[id]
	if !ok || r.UserID != ownerID {
		return nil, apperror.NotFound("record", id)
	}
	result := *r
	return &result, nil
}

func (m *mockRecordRepo) ListByOwner(_ context.Context, ownerID string) ([]model.Record, error) {
	result := make([]model.Record, 0, len(m.records))
	for _, r := range m.records {
		if r.UserID == ownerID {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].MeasuredAt.Equal(result[j].MeasuredAt) {
			return result[i].MeasuredAt.After(result[j].MeasuredAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (m *mockRecordRepo) Update(_ context.Context, record *model.Record) error {
	existing, ok := m.records[record.ID]
	if !ok || existing.UserID != record.UserID {
		return apperror.NotFound("record", record.ID)
	}
	stored := *record
	m.records[record.ID] = &stored
	return nil
}

func (m *mockRecordRepo) Delete(_ context.Context, id, ownerID string) error {
	existing, ok := m.records[id]
	if !ok || existing.UserID != ownerID {
		return apperror.NotFound("record", id)
	}
	delete(m.records, id)
	return nil
}

func (m *mockRecordRepo) StatsByOwner(ctx context.Context, ownerID string) (*model.RecordStats, error) {
	records, _ := m.ListByOwner(ctx, ownerID)
	stats := &model.RecordStats{Count: len(records)}
	if stats.Count == 0 {
		return stats, nil
	}
	stats.Min = math.Inf(1)
	stats.Max = math.Inf(-1)
	var sum float64
	for i := range records {
		sum += records[i].Level
		stats.Min = math.Min(stats.Min, records[i].Level)
		stats.Max = math.Max(stats.Max, records[i].Level)
	}
	stats.Average = sum / float64(stats.Count)
	stats.Latest = &records[0]
	return stats, nil
}

var _ repository.RecordRepository = (*mockRecordRepo)(nil)

func newTestRecordService(t *testing.T) (*RecordService, *mockRecordRepo) {
	t.Helper()
	repo := newMockRecordRepo()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewRecordService(repo, DefaultLimits(), logger)
	return svc, repo
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestRecordCreate_ValidLevels(t *testing.T) {
	svc, _ := newTestRecordService(t)

	// Both bounds are inclusive.
	for _, level := range []float64{0.1, 1, 5.4, 33.3, 99.9, 100} {
		record, err := svc.Create(context.Background(), "user-1", level, time.Now(), "")
		if err != nil {
			t.Errorf("Create(level=%v) error = %v, want nil", level, err)
			continue
		}
		if record.Level != level {
			t.Errorf("Create(level=%v) stored %v", level, record.Level)
		}
	}
}

func TestRecordCreate_OutOfRangeLevels(t *testing.T) {
	svc, repo := newTestRecordService(t)

	for _, level := range []float64{0, 0.05, 100.01, -5, math.NaN(), math.Inf(1)} {
		_, err := svc.Create(context.Background(), "user-1", level, time.Now(), "")
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Create(level=%v) error = %v, want ErrValidation", level, err)
		}
	}

	// A rejected payload must never reach the store.
	if len(repo.records) != 0 {
		t.Errorf("rejected creates persisted %d records", len(repo.records))
	}
}

func TestRecordCreate_NoteLength(t *testing.T) {
	svc, _ := newTestRecordService(t)

	if _, err := svc.Create(context.Background(), "user-1", 5.0, time.Now(), strings.Repeat("a", 1000)); err != nil {
		t.Errorf("Create(note len 1000) error = %v, want nil", err)
	}

	_, err := svc.Create(context.Background(), "user-1", 5.0, time.Now(), strings.Repeat("a", 1001))
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Create(note len 1001) error = %v, want ErrValidation", err)
	}
}

func TestRecordCreate_RequiresMeasurementTime(t *testing.T) {
	svc, _ := newTestRecordService(t)

	_, err := svc.Create(context.Background(), "user-1", 5.0, time.Time{}, "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Create(zero time) error = %v, want ErrValidation", err)
	}
}

func TestRecordCreate_FutureDatedAllowed(t *testing.T) {
	svc, _ := newTestRecordService(t)

	future := time.Now().Add(365 * 24 * time.Hour)
	record, err := svc.Create(context.Background(), "user-1", 5.0, future, "")
	if err != nil {
		t.Fatalf("Create(future time) error = %v, want nil", err)
	}
	if !record.MeasuredAt.Equal(future) {
		t.Errorf("Create() MeasuredAt = %v, want %v", record.MeasuredAt, future)
	}
}

func TestRecordCreate_NormalizesToUTC(t *testing.T) {
	svc, _ := newTestRecordService(t)

	shanghai := time.FixedZone("CST", 8*3600)
	measured := time.Date(2025, 8, 30, 7, 30, 0, 0, shanghai)

	record, err := svc.Create(context.Background(), "user-1", 5.0, measured, "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if record.MeasuredAt.Location() != time.UTC {
		t.Errorf("MeasuredAt location = %v, want UTC", record.MeasuredAt.Location())
	}
	if !record.MeasuredAt.Equal(measured) {
		t.Errorf("MeasuredAt = %v, not the same instant as %v", record.MeasuredAt, measured)
	}
}

// =========================================================================
// OWNERSHIP TESTS
// =========================================================================

func TestCrossUserIsolation(t *testing.T) {
	svc, _ := newTestRecordService(t)
	ctx := context.Background()

	aliceRecord, err := svc.Create(ctx, "alice", 5.0, time.Now(), "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Bob's list never contains Alice's record.
	bobList, err := svc.List(ctx, "bob")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(bobList) != 0 {
		t.Errorf("List(bob) returned %d records, want 0", len(bobList))
	}

	// Bob's get/update/delete on Alice's id are all uniformly NotFound.
	if _, err := svc.Get(ctx, "bob", aliceRecord.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() by non-owner error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Update(ctx, "bob", aliceRecord.ID, 9.9, time.Now(), ""); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() by non-owner error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "bob", aliceRecord.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() by non-owner error = %v, want ErrNotFound", err)
	}

	// And Alice still sees her record unchanged.
	got, err := svc.Get(ctx, "alice", aliceRecord.ID)
	if err != nil {
		t.Fatalf("Get() by owner error = %v", err)
	}
	if got.Level != 5.0 {
		t.Errorf("record was modified by a non-owner: level = %v", got.Level)
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestRecordUpdate_Validates(t *testing.T) {
	svc, _ := newTestRecordService(t)
	ctx := context.Background()

	record, _ := svc.Create(ctx, "user-1", 5.0, time.Now(), "before")

	_, err := svc.Update(ctx, "user-1", record.ID, 500, time.Now(), "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Update(level=500) error = %v, want ErrValidation", err)
	}

	// Failed validation leaves the record untouched.
	got, _ := svc.Get(ctx, "user-1", record.ID)
	if got.Level != 5.0 || got.Note != "before" {
		t.Errorf("rejected update modified the record: %+v", got)
	}
}

func TestRecordDelete_ThenNotFound(t *testing.T) {
	svc, _ := newTestRecordService(t)
	ctx := context.Background()

	record, _ := svc.Create(ctx, "user-1", 5.0, time.Now(), "")

	if err := svc.Delete(ctx, "user-1", record.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, "user-1", record.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// STATS TESTS
// =========================================================================

func TestRecordStats(t *testing.T) {
	svc, _ := newTestRecordService(t)
	ctx := context.Background()

	svc.Create(ctx, "user-1", 4.0, time.Now().Add(-time.Hour), "")
	svc.Create(ctx, "user-1", 8.0, time.Now(), "")
	svc.Create(ctx, "other", 50.0, time.Now(), "")

	stats, err := svc.Stats(ctx, "user-1")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Count != 2 || stats.Average != 6.0 || stats.Min != 4.0 || stats.Max != 8.0 {
		t.Errorf("Stats() = %+v, want count=2 avg=6 min=4 max=8", stats)
	}
	if stats.Latest == nil || stats.Latest.Level != 8.0 {
		t.Errorf("Stats() Latest = %+v, want the 8.0 record", stats.Latest)
	}
}
