package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/NathanTDL/tldraw-ai/internal/ai"
	"github.com/NathanTDL/tldraw-ai/internal/apperror"
	"github.com/NathanTDL/tldraw-ai/internal/canvas"
	"github.com/NathanTDL/tldraw-ai/internal/editor"
	"github.com/NathanTDL/tldraw-ai/internal/model"
	"github.com/NathanTDL/tldraw-ai/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeTextGen returns a canned reply (or an error) and records the request
// it received.
type fakeTextGen struct {
	reply string
	err   error
	got   ai.TextRequest
}

func (f *fakeTextGen) GenerateText(_ context.Context, req ai.TextRequest) (*ai.TextResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &ai.TextResponse{Success: true, Message: f.reply}, nil
}

// nullCanvasRepo satisfies repository.CanvasRepository for sessions that
// never reach storage in these tests.
type nullCanvasRepo struct{}

func (nullCanvasRepo) Create(context.Context, *model.Canvas) error { return nil }
func (nullCanvasRepo) GetByID(_ context.Context, id string) (*model.Canvas, error) {
	return nil, apperror.NotFound("canvas", id)
}
func (nullCanvasRepo) ListByUser(context.Context, string) ([]model.Canvas, error) { return nil, nil }
func (nullCanvasRepo) Update(context.Context, *model.Canvas) error                { return nil }
func (nullCanvasRepo) SaveData(context.Context, string, string) error             { return nil }
func (nullCanvasRepo) Delete(context.Context, string) error                       { return nil }

var _ repository.CanvasRepository = nullCanvasRepo{}

type noAuth struct{}

func (noAuth) CurrentUserID() (string, bool) { return "", false }

type nullLastStore struct{}

func (nullLastStore) Load() string { return "" }
func (nullLastStore) Store(string) {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newChatFixture wires a guest session with a live editor, a dispatcher and
// a ChatHandler around the given text generator.
func newChatFixture(t *testing.T, text ai.TextGenerator) (*ChatHandler, *editor.Memory) {
	t.Helper()

	session := canvas.NewSession(nullCanvasRepo{}, noAuth{}, nullLastStore{}, discardLogger())
	ed := editor.NewMemory()
	session.RegisterEditor(context.Background(), ed)

	dispatcher := canvas.NewDispatcher(session, nil, discardLogger())
	return NewChatHandler(text, session, dispatcher, discardLogger()), ed
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeTextResponse(t *testing.T, rec *httptest.ResponseRecorder) ai.TextResponse {
	t.Helper()

	var resp ai.TextResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v (body: %s)", err, rec.Body.String())
	}
	return resp
}

// =========================================================================
// TESTS
// =========================================================================

func TestHandleChat_PassesCanvasContext(t *testing.T) {
	gen := &fakeTextGen{reply: "Looks great!"}
	h, ed := newChatFixture(t, gen)

	if err := ed.CreateShapes([]editor.Shape{
		{ID: "shape:a", Type: "text", X: 10, Y: 20, Props: map[string]any{"text": "Plan"}},
	}); err != nil {
		t.Fatalf("CreateShapes: %v", err)
	}

	rec := postJSON(t, h.HandleChat, `{"message":"what do you think?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	resp := decodeTextResponse(t, rec)
	if !resp.Success || resp.Message != "Looks great!" {
		t.Errorf("response = %+v", resp)
	}

	if !strings.Contains(gen.got.ContextDescription, `A text that says "Plan"`) {
		t.Errorf("canvas context not passed to provider: %q", gen.got.ContextDescription)
	}
	if gen.got.Message != "what do you think?" {
		t.Errorf("message = %q", gen.got.Message)
	}
}

func TestHandleChat_EmptyCanvasContext(t *testing.T) {
	gen := &fakeTextGen{reply: "Try a mind map!"}
	h, _ := newChatFixture(t, gen)

	postJSON(t, h.HandleChat, `{"message":"where do I start?"}`)

	if gen.got.ContextDescription != "The canvas is currently empty." {
		t.Errorf("empty-canvas description = %q", gen.got.ContextDescription)
	}
}

func TestHandleChat_ExecutesEmbeddedCommands(t *testing.T) {
	gen := &fakeTextGen{reply: `Adding it now! [[ADD_TEXT|{"text":"Brainstorm","x":50,"y":60}]]`}
	h, ed := newChatFixture(t, gen)

	rec := postJSON(t, h.HandleChat, `{"message":"add a brainstorm note"}`)

	resp := decodeTextResponse(t, rec)
	if resp.Message != "Adding it now!" {
		t.Errorf("command markup not stripped: %q", resp.Message)
	}

	shapes := ed.Shapes()
	if len(shapes) != 1 || shapes[0].Type != "text" {
		t.Fatalf("command did not create the shape: %+v", shapes)
	}
}

func TestHandleChat_ProviderDownSendsFallback(t *testing.T) {
	gen := &fakeTextGen{err: errors.New("connection refused")}
	h, _ := newChatFixture(t, gen)

	rec := postJSON(t, h.HandleChat, `{"message":"hello?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 — provider outage is a degraded reply, not an error", rec.Code)
	}
	resp := decodeTextResponse(t, rec)
	if resp.Message != ai.FallbackMessage {
		t.Errorf("message = %q, want the fallback", resp.Message)
	}
}

func TestHandleChat_NoProviderConfigured(t *testing.T) {
	h, _ := newChatFixture(t, nil)

	rec := postJSON(t, h.HandleChat, `{"message":"anyone there?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp := decodeTextResponse(t, rec); resp.Message != ai.FallbackMessage {
		t.Errorf("message = %q, want the fallback", resp.Message)
	}
}

func TestHandleChat_Validation(t *testing.T) {
	h, _ := newChatFixture(t, &fakeTextGen{reply: "ok"})

	tests := []struct {
		name string
		body string
	}{
		{name: "empty message", body: `{"message":"   "}`},
		{name: "invalid json", body: `{"message":`},
		{name: "unknown field", body: `{"message":"hi","shout":true}`},
		{name: "too long", body: `{"message":"` + strings.Repeat("a", maxChatMessageLength+1) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.HandleChat, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}
