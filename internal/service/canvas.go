// Package service contains the business logic layer: validation, ownership
// rules, and orchestration between handlers and repositories. Services accept
// primitives and return domain errors — they know nothing about HTTP.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/NathanTDL/tldraw-ai/internal/apperror"
	"github.com/NathanTDL/tldraw-ai/internal/model"
	"github.com/NathanTDL/tldraw-ai/internal/repository"
)

// MaxCanvasTitleLength caps user-supplied canvas titles.
const MaxCanvasTitleLength = 100

// CanvasService handles the canvas library operations: the sidebar list,
// rename, pin, delete. Drawing content is deliberately NOT its concern —
// the document session owns the save path, and having two writers to the
// data column would reintroduce every conflict the single-writer design
// exists to prevent.
type CanvasService struct {
	repo   repository.CanvasRepository
	logger *slog.Logger
}

// NewCanvasService creates a CanvasService.
func NewCanvasService(repo repository.CanvasRepository, logger *slog.Logger) *CanvasService {
	return &CanvasService{repo: repo, logger: logger}
}

// List returns the user's canvases for the sidebar: pinned first, most
// recently updated first within each group.
func (s *CanvasService) List(ctx context.Context, userID string) ([]model.Canvas, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("login required to list canvases")
	}

	canvases, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list canvases",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing canvases: %w", err)
	}

	return canvases, nil
}

// Get returns one canvas, enforcing ownership.
func (s *CanvasService) Get(ctx context.Context, userID, id string) (*model.Canvas, error) {
	canvas, err := s.fetchOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return canvas, nil
}

// Rename sets a canvas's title.
func (s *CanvasService) Rename(ctx context.Context, userID, id, title string) (*model.Canvas, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "canvas title is required")
	}
	if len(title) > MaxCanvasTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("canvas title must be %d characters or less", MaxCanvasTitleLength))
	}

	canvas, err := s.fetchOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	canvas.Title = title
	if err := s.repo.Update(ctx, canvas); err != nil {
		s.logger.Error("failed to rename canvas",
			slog.String("canvasID", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("renaming canvas: %w", err)
	}

	return canvas, nil
}

// SetPinned pins or unpins a canvas in the sidebar.
func (s *CanvasService) SetPinned(ctx context.Context, userID, id string, pinned bool) (*model.Canvas, error) {
	canvas, err := s.fetchOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	canvas.IsPinned = pinned
	if err := s.repo.Update(ctx, canvas); err != nil {
		s.logger.Error("failed to update canvas pin state",
			slog.String("canvasID", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating canvas pin state: %w", err)
	}

	return canvas, nil
}

// Delete removes a canvas permanently.
func (s *CanvasService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.fetchOwned(ctx, userID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete canvas",
			slog.String("canvasID", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting canvas: %w", err)
	}

	s.logger.Info("canvas deleted", slog.String("canvasID", id))
	return nil
}

// fetchOwned loads a canvas and verifies the caller owns it. A canvas owned
// by someone else reports NotFound rather than Forbidden so the API doesn't
// confirm which ids exist.
func (s *CanvasService) fetchOwned(ctx context.Context, userID, id string) (*model.Canvas, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("login required")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "canvas ID is required")
	}

	canvas, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if canvas.UserID != userID {
		return nil, apperror.NotFound("canvas", id)
	}

	return canvas, nil
}
