package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/NathanTDL/tldraw-ai/internal/ai"
	"github.com/NathanTDL/tldraw-ai/internal/canvas"
)

// maxChatMessageLength caps a single chat message.
const maxChatMessageLength = 4000

// ChatHandler serves the canvas assistant conversation: it snapshots the
// live canvas into a text description, asks the text provider, executes any
// commands embedded in the reply, and returns the cleaned reply.
type ChatHandler struct {
	text       ai.TextGenerator // nil when no text provider is configured
	session    *canvas.Session
	dispatcher *canvas.Dispatcher
	logger     *slog.Logger
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(text ai.TextGenerator, session *canvas.Session, dispatcher *canvas.Dispatcher, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{text: text, session: session, dispatcher: dispatcher, logger: logger}
}

// chatRequest is the POST /api/chat body.
type chatRequest struct {
	Message string       `json:"message"`
	History []ai.Message `json:"conversationHistory"`
}

// HandleChat runs one assistant turn.
//
// HTTP: POST /api/chat (OptionalAuth — guests can chat too)
//
// The provider being down is not an error response: the user gets the
// fallback message with a 200, because a chat bubble saying "having trouble
// connecting" is the designed degraded behavior, not a failure of this
// endpoint.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "message is required",
		})
		return
	}
	if len(req.Message) > maxChatMessageLength {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "message is too long",
		})
		return
	}

	// Describe the LIVE canvas, in-progress edits included — the user is
	// asking about what they see, not about the last saved snapshot.
	description := canvas.EmptyCanvasDescription
	if ed := h.session.Editor(); ed != nil {
		description = canvas.Describe(canvas.ExtractSummary(ed))
	}

	if h.text == nil {
		writeJSON(w, http.StatusOK, ai.TextResponse{Success: true, Message: ai.FallbackMessage})
		return
	}

	resp, err := h.text.GenerateText(r.Context(), ai.TextRequest{
		Message:            req.Message,
		ContextDescription: description,
		History:            req.History,
	})
	if err != nil {
		h.logger.Warn("text provider unavailable, sending fallback", slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, ai.TextResponse{Success: true, Message: ai.FallbackMessage})
		return
	}

	// Execute embedded canvas commands and strip their markup before the
	// reply reaches the user.
	cleaned := h.dispatcher.Dispatch(r.Context(), resp.Message)

	writeJSON(w, http.StatusOK, ai.TextResponse{Success: true, Message: cleaned})
}
