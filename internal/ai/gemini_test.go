package ai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func geminiReply(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + jsonString(text) + `}]}}]}`
}

func jsonString(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}

func TestGenerateText(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Write([]byte(geminiReply("Hello from the assistant")))
	}))
	defer srv.Close()

	client := NewGeminiClient("test-key", "", srv.URL, testLogger())
	resp, err := client.GenerateText(context.Background(), TextRequest{
		Message:            "What's on my canvas?",
		ContextDescription: "Item 1: A text that says \"Hi\" at position (0, 0)",
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "Hello from the assistant", resp.Message)
	assert.Equal(t, "/v1beta/models/"+DefaultGeminiModel+":generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)

	require.Len(t, gotBody.Contents, 1)
	require.Len(t, gotBody.Contents[0].Parts, 1)
	prompt := gotBody.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, "Canvas Context:")
	assert.Contains(t, prompt, `Item 1: A text that says "Hi"`)
	assert.Contains(t, prompt, "User Message: What's on my canvas?")
}

func TestGenerateTextIncludesHistory(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body geminiRequest
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		prompt = body.Contents[0].Parts[0].Text
		w.Write([]byte(geminiReply("ok")))
	}))
	defer srv.Close()

	client := NewGeminiClient("test-key", "", srv.URL, testLogger())
	_, err := client.GenerateText(context.Background(), TextRequest{
		Message: "And now?",
		History: []Message{
			{Role: "user", Content: "Draw a fox"},
			{Role: "assistant", Content: "Done!"},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "Previous conversation:")
	assert.Contains(t, prompt, "User: Draw a fox")
	assert.Contains(t, prompt, "Assistant: Done!")
}

func TestGenerateTextEmptyContextPlaceholder(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body geminiRequest
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		prompt = body.Contents[0].Parts[0].Text
		w.Write([]byte(geminiReply("ok")))
	}))
	defer srv.Close()

	client := NewGeminiClient("test-key", "", srv.URL, testLogger())
	_, err := client.GenerateText(context.Background(), TextRequest{Message: "hi"})
	require.NoError(t, err)

	assert.Contains(t, prompt, "No canvas context available.")
}

func TestGenerateTextRetriesTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(geminiReply("recovered")))
	}))
	defer srv.Close()

	client := NewGeminiClient("test-key", "", srv.URL, testLogger())
	resp, err := client.GenerateText(context.Background(), TextRequest{Message: "hi"})
	require.NoError(t, err)

	assert.Equal(t, "recovered", resp.Message)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestGenerateTextDoesNotRetryBadRequest(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewGeminiClient("test-key", "", srv.URL, testLogger())
	_, err := client.GenerateText(context.Background(), TextRequest{Message: "hi"})
	require.Error(t, err)

	assert.Equal(t, int32(1), attempts.Load(), "4xx responses must not be retried")
}

func TestGenerateTextNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client := NewGeminiClient("test-key", "", srv.URL, testLogger())
	_, err := client.GenerateText(context.Background(), TextRequest{Message: "hi"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no candidates"))
}

func TestGenerateTextMissingAPIKey(t *testing.T) {
	client := NewGeminiClient("", "", "http://unused", testLogger())
	_, err := client.GenerateText(context.Background(), TextRequest{Message: "hi"})
	require.Error(t, err)
}
