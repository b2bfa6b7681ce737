package canvas

import (
	"fmt"
	"math"
	"strings"

	"github.com/NathanTDL/tldraw-ai/internal/editor"
)

// ShapeSummary is the lossy, AI-facing projection of one shape: just enough
// for the assistant to reason about what's on the canvas. Coordinates and
// dimensions are rounded to integers so repeated extractions of an unchanged
// canvas produce byte-identical context.
type ShapeSummary struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Text   string `json:"text"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// EmptyCanvasDescription is the fixed sentence used when there is nothing to
// describe. The assistant prompt branches on it ("if the canvas is empty,
// suggest starting points"), so the exact wording is part of the contract.
const EmptyCanvasDescription = "The canvas is currently empty."

// ExtractSummary reads the editor's current shapes — the live document,
// including uncommitted in-progress edits, NOT the last saved snapshot — and
// produces one summary entry per shape in the editor's native order.
//
// This must never fail: shape props are loosely typed and any field can be
// missing or of an unexpected kind. Missing text degrades to "", missing
// dimensions to 0, and a nil props map is fine.
func ExtractSummary(ed editor.Editor) []ShapeSummary {
	shapes := ed.Shapes()
	summary := make([]ShapeSummary, 0, len(shapes))

	for _, s := range shapes {
		summary = append(summary, ShapeSummary{
			ID:     s.ID,
			Type:   s.Type,
			Text:   extractText(s.Props),
			X:      roundToInt(s.X),
			Y:      roundToInt(s.Y),
			Width:  roundToInt(numberProp(s.Props, "w")),
			Height: roundToInt(numberProp(s.Props, "h")),
		})
	}

	return summary
}

// Describe renders a summary into the natural-language block embedded in
// every AI request. Stable and low-noise: one line per shape, clauses omitted
// when they'd carry no information.
func Describe(summary []ShapeSummary) string {
	if len(summary) == 0 {
		return EmptyCanvasDescription
	}

	lines := make([]string, 0, len(summary))
	for i, s := range summary {
		shapeType := s.Type
		if shapeType == "" {
			shapeType = "shape"
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Item %d: A %s", i+1, shapeType)
		if s.Text != "" {
			fmt.Fprintf(&b, " that says %q", s.Text)
		}
		fmt.Fprintf(&b, " at position (%d, %d)", s.X, s.Y)
		if s.Width != 0 && s.Height != 0 {
			fmt.Fprintf(&b, " with dimensions %dx%d", s.Width, s.Height)
		}
		lines = append(lines, b.String())
	}

	return strings.Join(lines, "\n")
}

// textStrategy probes a props bag for a plain-text label in one particular
// place. Returns ("", false) when not applicable so the next strategy runs.
type textStrategy func(props map[string]any) (string, bool)

// textStrategies is the ordered chain tried against every shape. Shape kinds
// store their text differently — plain "text", a "label", or a nested
// rich-text tree — and a shape may hold any of them, so each location is
// checked in turn with a guaranteed empty-string fallback.
var textStrategies = []textStrategy{
	stringPropStrategy("text"),
	stringPropStrategy("label"),
	richTextStrategy,
}

func extractText(props map[string]any) string {
	if props == nil {
		return ""
	}
	for _, strategy := range textStrategies {
		if text, ok := strategy(props); ok {
			return text
		}
	}
	return ""
}

func stringPropStrategy(key string) textStrategy {
	return func(props map[string]any) (string, bool) {
		if v, ok := props[key].(string); ok && v != "" {
			return v, true
		}
		return "", false
	}
}

// richTextStrategy digs through the nested rich-text representation:
// props["richText"]["content"] is a list of paragraph nodes, each holding a
// "content" list of span nodes with a "text" field. All spans are joined.
// Anything that isn't the expected kind at any level simply terminates that
// branch — malformed rich text yields whatever was readable, never an error.
func richTextStrategy(props map[string]any) (string, bool) {
	root, ok := props["richText"].(map[string]any)
	if !ok {
		return "", false
	}
	paragraphs, ok := root["content"].([]any)
	if !ok {
		return "", false
	}

	var parts []string
	for _, p := range paragraphs {
		para, ok := p.(map[string]any)
		if !ok {
			continue
		}
		spans, ok := para["content"].([]any)
		if !ok {
			continue
		}
		for _, sp := range spans {
			span, ok := sp.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := span["text"].(string); ok && text != "" {
				parts = append(parts, text)
			}
		}
	}

	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

// numberProp reads a numeric prop, tolerating the types JSON decoding and
// in-process construction actually produce. Anything else is 0.
func numberProp(props map[string]any, key string) float64 {
	if props == nil {
		return 0
	}
	switch v := props[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func roundToInt(f float64) int {
	return int(math.Round(f))
}
