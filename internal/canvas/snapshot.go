// Package canvas is the persistence and AI-context core of the app: the
// snapshot codec, the context extractor, the document session manager, and
// the action dispatcher.
package canvas

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/NathanTDL/tldraw-ai/internal/editor"
)

// snapshotVersion is bumped when the serialized layout changes shape.
// Decode tolerates older payloads as long as the JSON still parses.
const snapshotVersion = 1

// Snapshot is the full serializable document state of the editor: shape and
// page records, nothing else. Ephemeral UI state (selection, viewport, hover)
// is deliberately excluded — restoring a canvas should never restore a stale
// viewport.
type Snapshot struct {
	Version int            `json:"schemaVersion"`
	Pages   []editor.Page  `json:"pages"`
	Shapes  []editor.Shape `json:"shapes"`
}

// Capture reads the editor's current document records into a Snapshot.
func Capture(ed editor.Editor) *Snapshot {
	return &Snapshot{
		Version: snapshotVersion,
		Pages:   ed.Pages(),
		Shapes:  ed.Shapes(),
	}
}

// Encode serializes a snapshot to its canonical string form. The same string
// doubles as the save fingerprint: two captures of an unchanged document
// encode identically (struct field order is fixed, and map keys inside shape
// props are sorted by encoding/json).
func Encode(s *Snapshot) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("canvas: encoding snapshot: %w", err)
	}
	return string(raw), nil
}

// Decode parses persisted canvas data back into a Snapshot.
//
// Persisted data has real-world failure modes: rows saved before anything was
// drawn ("" or "null"), empty objects, and plain corruption. Decode maps the
// benign cases to (nil, nil) — "nothing to restore" — and only returns an
// error for data that claimed to be a snapshot but couldn't be parsed. The
// caller treats both outcomes as an empty canvas; the error is just worth a
// log line.
func Decode(data string) (*Snapshot, error) {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return nil, nil
	}

	var s Snapshot
	if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
		return nil, fmt.Errorf("canvas: decoding snapshot: %w", err)
	}

	if len(s.Shapes) == 0 && len(s.Pages) == 0 {
		// Parsed fine but carries no document records — e.g. a legacy payload
		// with unrecognized keys. Same as empty.
		return nil, nil
	}

	return &s, nil
}

// Apply restores a snapshot into a live editor. The editor is expected to be
// already cleared of shape content (the session clears via select-all +
// delete before calling Apply). Pages the editor doesn't have yet are
// recreated first, then the shapes.
func Apply(ed editor.Editor, s *Snapshot) error {
	if s == nil {
		return nil
	}

	have := make(map[string]bool)
	for _, p := range ed.Pages() {
		have[p.ID] = true
	}
	for _, p := range s.Pages {
		if have[p.ID] {
			continue
		}
		if err := ed.CreatePage(p); err != nil {
			return fmt.Errorf("canvas: restoring page %s: %w", p.ID, err)
		}
	}

	if len(s.Shapes) > 0 {
		if err := ed.CreateShapes(s.Shapes); err != nil {
			return fmt.Errorf("canvas: restoring shapes: %w", err)
		}
	}

	return nil
}
