package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/NathanTDL/tldraw-ai/internal/ai"
)

// ImageHandler serves direct image generation requests (the "generate image"
// button, as opposed to the chat command path).
type ImageHandler struct {
	images ai.ImageGenerator // nil when no image provider is configured
	logger *slog.Logger
}

// NewImageHandler creates an ImageHandler.
func NewImageHandler(images ai.ImageGenerator, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{images: images, logger: logger}
}

// imageRequest is the POST /api/generate-image body.
type imageRequest struct {
	Prompt string `json:"prompt"`
	Steps  int    `json:"steps"`
	Count  int    `json:"n"`
}

// HandleGenerate generates images from a prompt.
//
// HTTP: POST /api/generate-image (OptionalAuth)
func (h *ImageHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, ai.ImageResponse{
			Success:      false,
			ErrorMessage: "prompt is required",
		})
		return
	}

	if h.images == nil {
		writeJSON(w, http.StatusNotImplemented, ai.ImageResponse{
			Success:      false,
			ErrorMessage: "image generation is not configured",
		})
		return
	}

	resp, err := h.images.GenerateImage(r.Context(), ai.ImageRequest{
		Prompt: req.Prompt,
		Steps:  req.Steps,
		Count:  req.Count,
	})
	if err != nil {
		h.logger.Error("image generation failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ai.ImageResponse{
			Success:      false,
			ErrorMessage: "image generation failed, please try again",
		})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
