package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
)

// DefaultGeminiModel is the text model used for canvas chat.
const DefaultGeminiModel = "gemini-2.0-flash-exp"

// GeminiClient calls Google's Generative Language REST API.
type GeminiClient struct {
	client *resty.Client
	apiKey string
	model  string
	logger *slog.Logger
}

var _ TextGenerator = (*GeminiClient)(nil)

// NewGeminiClient creates a client for the given API key. An empty model
// falls back to DefaultGeminiModel; baseURL is overridable for tests.
func NewGeminiClient(apiKey, model, baseURL string, logger *slog.Logger) *GeminiClient {
	if model == "" {
		model = DefaultGeminiModel
	}
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(60 * time.Second)

	return &GeminiClient{client: c, apiKey: apiKey, model: model, logger: logger}
}

// Request/response structs for JSON binding. The Generative Language API
// nests everything: contents → parts → text.

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateText sends the composed prompt to Gemini and returns the reply.
//
// Transient failures (network errors, 429, 5xx) are retried with exponential
// backoff for a bounded window; anything still failing after that is returned
// to the caller, who decides whether to surface it or fall back.
func (g *GeminiClient) GenerateText(ctx context.Context, req TextRequest) (*TextResponse, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("ai: GEMINI_API_KEY is not configured")
	}

	body := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: buildChatPrompt(req)}}},
		},
	}

	path := fmt.Sprintf("/v1beta/models/%s:generateContent", g.model)

	var raw []byte
	operation := func() error {
		resp, err := g.client.R().
			SetContext(ctx).
			SetQueryParam("key", g.apiKey).
			SetBody(&body).
			Post(path)
		if err != nil {
			return err // network-level, retryable
		}
		switch {
		case resp.StatusCode() == http.StatusOK:
			raw = resp.Body()
			return nil
		case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500:
			return fmt.Errorf("ai: gemini status %d", resp.StatusCode())
		default:
			// 4xx other than 429 won't get better with retries.
			return backoff.Permanent(fmt.Errorf("ai: gemini status %d: %s", resp.StatusCode(), resp.String()))
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = 15 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("ai: generating text: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("ai: decoding gemini response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("ai: gemini error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("ai: gemini returned no candidates")
	}

	text := parsed.Candidates[0].Content.Parts[0].Text
	g.logger.Debug("gemini reply received", slog.Int("chars", len(text)))

	return &TextResponse{Success: true, Message: text}, nil
}

// buildChatPrompt composes the single prompt string Gemini receives: the
// assistant persona, the current canvas description, the conversation so
// far, and the new user message.
func buildChatPrompt(req TextRequest) string {
	contextBlock := req.ContextDescription
	if contextBlock == "" {
		contextBlock = "No canvas context available."
	}

	var b strings.Builder
	b.WriteString(`You are a Canvas Assistant AI that helps users with their creative projects on a visual canvas. You have full awareness of what's currently on the canvas and can provide contextual assistance.

Canvas Context:
`)
	b.WriteString(contextBlock)
	b.WriteString(`

Instructions:
- Be helpful, creative, and contextually aware of the canvas content
- Provide specific suggestions based on what's currently on the canvas
- If the canvas is empty, suggest starting points
- Help with creative ideation, organization, and enhancement of visual content
- Keep responses concise but informative
- Be encouraging and supportive of the user's creative process

User Message: `)
	b.WriteString(req.Message)

	if len(req.History) > 0 {
		b.WriteString("\n\nPrevious conversation:\n")
		for _, msg := range req.History {
			role := "Assistant"
			if msg.Role == "user" {
				role = "User"
			}
			b.WriteString(role)
			b.WriteString(": ")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
	}

	return b.String()
}
