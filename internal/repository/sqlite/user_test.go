package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/glucolog/internal/apperror"
	"github.com/sakif/glucolog/internal/model"
)

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Email:    "alice@example.com",
		Name:     "Alice",
		GoogleID: "google-sub-1",
	}

	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Create() did not set user.ID")
	}
	if user.Language != model.LanguageEN {
		t.Errorf("Create() language = %q, want default %q", user.Language, model.LanguageEN)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice@example.com")

	err := db.CreateUser(context.Background(), &model.User{Email: "alice@example.com"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Create() duplicate email error = %v, want ErrConflict", err)
	}
}

// Two password-only accounts both store '' in google_id; the partial unique
// index must not treat that as a collision.
func TestUserCreate_TwoPasswordAccounts(t *testing.T) {
	db := newTestDB(t)

	u1 := &model.User{Email: "one@example.com", PasswordHash: "$2a$04$x"}
	u2 := &model.User{Email: "two@example.com", PasswordHash: "$2a$04$y"}

	if err := db.CreateUser(context.Background(), u1); err != nil {
		t.Fatalf("Create(u1) error = %v", err)
	}
	if err := db.CreateUser(context.Background(), u2); err != nil {
		t.Fatalf("Create(u2) error = %v", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "alice@example.com")

	got, err := db.GetUserByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetUserByEmail() ID = %s, want %s", got.ID, created.ID)
	}

	if _, err := db.GetUserByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail() unknown email error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByGoogleID(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Email: "alice@example.com", GoogleID: "google-sub-42"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := db.GetUserByGoogleID(context.Background(), "google-sub-42")
	if err != nil {
		t.Fatalf("GetUserByGoogleID() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("GetUserByGoogleID() ID = %s, want %s", got.ID, user.ID)
	}

	// The empty subject id must never match a password-only account.
	createTestUser(t, db, "pw@example.com")
	if _, err := db.GetUserByGoogleID(context.Background(), ""); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByGoogleID(\"\") error = %v, want ErrNotFound", err)
	}
}

func TestUserUpdate(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")

	user.Name = "Alice L."
	user.GoogleID = "google-sub-new"
	user.Language = model.LanguageZH

	if err := db.UpdateUser(context.Background(), user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Name != "Alice L." || got.GoogleID != "google-sub-new" || got.Language != model.LanguageZH {
		t.Errorf("Update() not persisted: %+v", got)
	}
}

func TestUserUpdate_Missing(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateUser(context.Background(), &model.User{ID: "no-such-user"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() missing user error = %v, want ErrNotFound", err)
	}
}

func TestDeleteUser(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice@example.com")

	if err := db.DeleteUser(context.Background(), user.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	if _, err := db.GetUserByID(context.Background(), user.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() after delete error = %v, want ErrNotFound", err)
	}
}
