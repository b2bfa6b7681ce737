// Package ai contains the clients for the external generation providers.
//
// The rest of the app consumes two tiny interfaces — "send prompt + context,
// receive text" and "send prompt, receive images" — so handlers and the
// action dispatcher never know which provider sits behind them. Tests swap in
// stubs; production wires Gemini for text and Together AI for images.
package ai

import "context"

// Message is one turn of conversation history sent along with a text request.
// Role is "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TextRequest asks the assistant a question with the canvas as context.
type TextRequest struct {
	Message            string    `json:"message"`
	ContextDescription string    `json:"context"`
	History            []Message `json:"conversationHistory,omitempty"`
}

// TextResponse mirrors the wire shape the frontend expects:
// {success, message} on success, {success:false, errorMessage} on failure.
type TextResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// ImageRequest asks for generated images from a free-text prompt.
type ImageRequest struct {
	Prompt string `json:"prompt"`
	Steps  int    `json:"steps,omitempty"`
	Count  int    `json:"n,omitempty"`
}

// GeneratedImage carries one result as base64-encoded image bytes.
type GeneratedImage struct {
	ImageData string `json:"imageData"`
}

// ImageResponse is the image counterpart of TextResponse.
type ImageResponse struct {
	Success      bool             `json:"success"`
	Images       []GeneratedImage `json:"images,omitempty"`
	ErrorMessage string           `json:"errorMessage,omitempty"`
}

// TextGenerator produces an assistant reply for a message plus canvas context.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (*TextResponse, error)
}

// ImageGenerator produces images from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error)
}

// FallbackMessage is shown to the user when the text provider is unreachable.
// The conversational tone is deliberate — a provider outage should read as
// the assistant being briefly busy, not as a stack trace.
const FallbackMessage = "I'm having trouble connecting right now. Let me help you with your canvas in a moment!"
