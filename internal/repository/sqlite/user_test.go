package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/NathanTDL/tldraw-ai/internal/apperror"
	"github.com/NathanTDL/tldraw-ai/internal/model"
)

func TestUpsertGitHub_InsertsNewUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		GitHubID:  12345,
		Login:     "nathan",
		Email:     "nathan@example.com",
		AvatarURL: "https://example.com/a.png",
	}

	if err := db.UpsertGitHub(context.Background(), user); err != nil {
		t.Fatalf("UpsertGitHub() error = %v", err)
	}
	if user.ID == "" {
		t.Error("UpsertGitHub() did not set user.ID")
	}
}

func TestUpsertGitHub_KeepsInternalID(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{GitHubID: 12345, Login: "nathan"}
	if err := db.UpsertGitHub(context.Background(), user); err != nil {
		t.Fatalf("UpsertGitHub() error = %v", err)
	}
	firstID := user.ID

	// Second login: profile changed on GitHub, internal ID must not.
	again := &model.User{GitHubID: 12345, Login: "nathan-renamed", AvatarURL: "https://new"}
	if err := db.UpsertGitHub(context.Background(), again); err != nil {
		t.Fatalf("UpsertGitHub() second call error = %v", err)
	}

	if again.ID != firstID {
		t.Errorf("UpsertGitHub() changed internal ID: %q → %q", firstID, again.ID)
	}

	found, err := db.GetUserByID(context.Background(), firstID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if found.Login != "nathan-renamed" {
		t.Errorf("Login = %q, want refreshed profile", found.Login)
	}
}

func TestCreateWithPassword(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Login:        "nathan",
		Email:        "nathan@example.com",
		PasswordHash: "$2a$04$fakehashfortesting",
	}
	if err := db.CreateWithPassword(context.Background(), user); err != nil {
		t.Fatalf("CreateWithPassword() error = %v", err)
	}

	found, err := db.GetUserByEmail(context.Background(), "nathan@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if found.PasswordHash != user.PasswordHash {
		t.Error("stored password hash does not match")
	}
}

func TestCreateWithPassword_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)

	first := &model.User{Login: "a", Email: "dup@example.com", PasswordHash: "x"}
	if err := db.CreateWithPassword(context.Background(), first); err != nil {
		t.Fatalf("CreateWithPassword() error = %v", err)
	}

	second := &model.User{Login: "b", Email: "dup@example.com", PasswordHash: "y"}
	err := db.CreateWithPassword(context.Background(), second)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateWithPassword() duplicate error = %v, want ErrConflict", err)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}
