package repository

import (
	"context"

	"github.com/NathanTDL/tldraw-ai/internal/model"
)

// CanvasRepository is the persistence gateway for canvases. It is the ONLY
// abstraction in the app that touches durable canvas storage — the session
// manager, services, and handlers all go through it.
type CanvasRepository interface {
	Create(ctx context.Context, canvas *model.Canvas) error
	GetByID(ctx context.Context, id string) (*model.Canvas, error)
	// ListByUser returns the user's canvases, pinned first, most recently
	// updated first within each group.
	ListByUser(ctx context.Context, userID string) ([]model.Canvas, error)
	// Update rewrites title and pin state (metadata, not drawing content).
	Update(ctx context.Context, canvas *model.Canvas) error
	// SaveData replaces the serialized snapshot for a canvas and refreshes
	// its updated_at timestamp. This is the write issued by every save.
	SaveData(ctx context.Context, id, data string) error
	Delete(ctx context.Context, id string) error
}

// UserRepository manages user accounts for both identity paths
// (GitHub OAuth and email/password).
type UserRepository interface {
	// UpsertGitHub inserts or updates a user keyed by their GitHub ID.
	UpsertGitHub(ctx context.Context, user *model.User) error
	// CreateWithPassword inserts a new email/password account.
	// Returns a conflict error if the email is already registered.
	CreateWithPassword(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}
