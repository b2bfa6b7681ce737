package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/NathanTDL/tldraw-ai/internal/ai"
	"github.com/NathanTDL/tldraw-ai/internal/editor"
)

// The assistant can embed commands in its replies to mutate the canvas:
//
//	[[ADD_TEXT|{"text":"Brainstorm","x":120,"y":80}]]
//	[[GENERATE_IMAGE|a watercolor fox in a forest]]
//
// ADD_TEXT carries a JSON payload (position optional — defaults to the
// viewport center). GENERATE_IMAGE carries a free-text prompt; the generated
// image lands at the viewport center at a fixed default size.
var commandPattern = regexp.MustCompile(`(?s)\[\[(ADD_TEXT|GENERATE_IMAGE)\|(.*?)\]\]`)

// defaultImageSize is the edge length of AI-generated image shapes.
const defaultImageSize = 512

// Dispatcher interprets embedded commands and translates them into editor
// mutations — always through the shape-creation primitive, never by touching
// snapshots directly. It borrows the session's editor handle per dispatch
// and never caches it.
type Dispatcher struct {
	session *Session
	images  ai.ImageGenerator
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher. images may be nil when no image
// provider is configured; GENERATE_IMAGE commands are then skipped with a log.
func NewDispatcher(session *Session, images ai.ImageGenerator, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{session: session, images: images, logger: logger}
}

// Dispatch scans an assistant reply for embedded commands, executes each
// one, and returns the reply with the command markup stripped (the
// conversational text around the commands is always shown to the user).
//
// Failure isolation is per command: a malformed or failing command is logged
// and skipped, and every other command in the reply still runs.
func (d *Dispatcher) Dispatch(ctx context.Context, reply string) string {
	matches := commandPattern.FindAllStringSubmatch(reply, -1)

	for _, m := range matches {
		name, payload := m[1], m[2]

		var err error
		switch name {
		case "ADD_TEXT":
			err = d.addText(payload)
		case "GENERATE_IMAGE":
			err = d.generateImage(ctx, payload)
		}
		if err != nil {
			d.logger.Warn("canvas action skipped",
				slog.String("action", name),
				slog.String("error", err.Error()),
			)
		}
	}

	return strings.TrimSpace(commandPattern.ReplaceAllString(reply, ""))
}

// addTextPayload is the ADD_TEXT JSON body. X/Y are pointers so "position
// omitted" is distinguishable from "position (0,0)".
type addTextPayload struct {
	Text string   `json:"text"`
	X    *float64 `json:"x"`
	Y    *float64 `json:"y"`
}

func (d *Dispatcher) addText(raw string) error {
	var p addTextPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return err
	}

	ed := d.session.Editor()
	if ed == nil {
		return errNoEditor
	}

	pos := ed.ViewportCenter()
	if p.X != nil && p.Y != nil {
		pos = editor.Point{X: *p.X, Y: *p.Y}
	}

	// Two-tier creation: try the rich text shape first; if the editor
	// rejects it, retry with the minimal descriptor before giving up.
	rich := editor.Shape{
		Type: "text",
		X:    pos.X,
		Y:    pos.Y,
		Props: map[string]any{
			"richText": map[string]any{
				"type": "doc",
				"content": []any{
					map[string]any{
						"type": "paragraph",
						"content": []any{
							map[string]any{"type": "text", "text": p.Text},
						},
					},
				},
			},
		},
	}
	if err := ed.CreateShapes([]editor.Shape{rich}); err == nil {
		return nil
	}

	minimal := editor.Shape{
		Type:  "text",
		X:     pos.X,
		Y:     pos.Y,
		Props: map[string]any{"text": p.Text},
	}
	return ed.CreateShapes([]editor.Shape{minimal})
}

func (d *Dispatcher) generateImage(ctx context.Context, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return errEmptyPrompt
	}
	if d.images == nil {
		return errNoImageProvider
	}

	resp, err := d.images.GenerateImage(ctx, ai.ImageRequest{Prompt: prompt})
	if err != nil {
		return err
	}
	if len(resp.Images) == 0 {
		return errNoImages
	}

	ed := d.session.Editor()
	if ed == nil {
		return errNoEditor
	}

	center := ed.ViewportCenter()
	src := "data:image/png;base64," + resp.Images[0].ImageData

	shape := editor.Shape{
		Type: "image",
		X:    center.X - defaultImageSize/2,
		Y:    center.Y - defaultImageSize/2,
		Props: map[string]any{
			"src": src,
			"w":   float64(defaultImageSize),
			"h":   float64(defaultImageSize),
		},
	}
	if err := ed.CreateShapes([]editor.Shape{shape}); err == nil {
		return nil
	}

	// Fallback tier: the bare image shape, no sizing props.
	minimal := editor.Shape{
		Type:  "image",
		X:     center.X,
		Y:     center.Y,
		Props: map[string]any{"src": src},
	}
	return ed.CreateShapes([]editor.Shape{minimal})
}

var (
	errNoEditor        = errors.New("no editor registered")
	errEmptyPrompt     = errors.New("image prompt is empty")
	errNoImageProvider = errors.New("no image provider configured")
	errNoImages        = errors.New("provider returned no images")
)
