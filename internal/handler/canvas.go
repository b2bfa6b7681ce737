package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/NathanTDL/tldraw-ai/internal/auth"
	"github.com/NathanTDL/tldraw-ai/internal/canvas"
	"github.com/NathanTDL/tldraw-ai/internal/service"
)

// CanvasHandler serves the canvas library API (list/rename/pin/delete) and
// the session endpoints (open, new, save, status).
//
// The split matters: library operations go through CanvasService and touch
// metadata only, while open/new/save delegate to the document session — the
// sole writer of drawing content.
type CanvasHandler struct {
	service *service.CanvasService
	session *canvas.Session
	logger  *slog.Logger
}

// NewCanvasHandler creates a CanvasHandler.
func NewCanvasHandler(canvasService *service.CanvasService, session *canvas.Session, logger *slog.Logger) *CanvasHandler {
	return &CanvasHandler{service: canvasService, session: session, logger: logger}
}

// HandleList returns the user's canvases, pinned first.
//
// HTTP: GET /api/canvases (RequireAuth)
func (h *CanvasHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	canvases, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, canvases)
}

// HandleGet returns one canvas with its metadata.
//
// HTTP: GET /api/canvases/{id} (RequireAuth)
func (h *CanvasHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	c, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// renameRequest is the PUT /api/canvases/{id} body.
type renameRequest struct {
	Title string `json:"title"`
}

// HandleRename sets a canvas title.
//
// HTTP: PUT /api/canvases/{id} (RequireAuth)
func (h *CanvasHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.service.Rename(r.Context(), userID, chi.URLParam(r, "id"), req.Title)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// pinRequest is the PUT /api/canvases/{id}/pin body.
type pinRequest struct {
	Pinned bool `json:"pinned"`
}

// HandlePin pins or unpins a canvas.
//
// HTTP: PUT /api/canvases/{id}/pin (RequireAuth)
func (h *CanvasHandler) HandlePin(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req pinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.service.SetPinned(r.Context(), userID, chi.URLParam(r, "id"), req.Pinned)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// HandleDelete removes a canvas permanently.
//
// HTTP: DELETE /api/canvases/{id} (RequireAuth)
func (h *CanvasHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleOpen switches the live session to another canvas. The session
// force-saves the current canvas before touching the new one; if that save
// fails, the switch is refused and the active canvas is unchanged.
//
// HTTP: POST /api/canvases/{id}/open (OptionalAuth — guests can switch
// between their local canvases)
func (h *CanvasHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.session.SwitchCanvas(r.Context(), id); err != nil {
		h.logger.Error("canvas switch failed",
			slog.String("canvasID", id),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"activeCanvasId": h.session.ActiveCanvasID()})
}

// HandleNew saves the current canvas, creates a fresh one and makes it
// active.
//
// HTTP: POST /api/canvases (OptionalAuth)
func (h *CanvasHandler) HandleNew(w http.ResponseWriter, r *http.Request) {
	id, err := h.session.CreateAndSwitch(r.Context())
	if err != nil {
		h.logger.Error("creating canvas failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"activeCanvasId": id})
}

// HandleSave forces a save of the active canvas regardless of change
// detection — the explicit save button.
//
// HTTP: POST /api/session/save (OptionalAuth)
func (h *CanvasHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Save(r.Context(), true); err != nil {
		h.logger.Error("manual save failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionStatus(h.session))
}

// HandleSession reports the session state the UI needs: which canvas is
// active and when it was last durably saved.
//
// HTTP: GET /api/session (OptionalAuth)
func (h *CanvasHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionStatus(h.session))
}

type sessionStatusResponse struct {
	ActiveCanvasID string     `json:"activeCanvasId"`
	LastSavedAt    *time.Time `json:"lastSavedAt,omitempty"`
}

func sessionStatus(s *canvas.Session) sessionStatusResponse {
	status := sessionStatusResponse{ActiveCanvasID: s.ActiveCanvasID()}
	if t := s.LastSavedAt(); !t.IsZero() {
		status.LastSavedAt = &t
	}
	return status
}
