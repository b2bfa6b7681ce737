// Package editor defines the narrow interface through which the rest of the
// app consumes the drawing editor, plus an in-memory implementation.
//
// The editor's internals — rendering, hit-testing, undo/redo, geometry — are
// deliberately outside this interface. Persistence and AI code only ever need
// to read the current document records, mutate shapes, and hear about changes.
package editor

// Point is a 2D canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is one editor document record. Props is a loosely-typed bag because
// shape payloads vary by kind (text shapes nest their content differently
// from geo or image shapes); consumers that need a specific field must probe
// for it defensively.
type Shape struct {
	ID    string         `json:"id"`
	Type  string         `json:"type"`
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	Props map[string]any `json:"props,omitempty"`
}

// Page is an editor page record. Shapes live on pages; a document always has
// at least one.
type Page struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChangeScope classifies a change notification.
//
// Document-scope changes (shapes, pages) are the only ones that matter for
// persistence. Session-scope changes (selection, viewport, hover) fire far
// more often and must never schedule a save.
type ChangeScope int

const (
	ScopeDocument ChangeScope = iota
	ScopeSession
)

// Change is delivered to subscribers after every editor mutation.
type Change struct {
	Scope ChangeScope
}

// Editor is the live drawing surface as seen by this app.
//
// Implementations must deliver change notifications synchronously from the
// mutating call, and Shapes() must return shapes in the editor's native
// ordering (insertion order) — the context extractor depends on that being
// stable between calls.
type Editor interface {
	// Shapes returns the current shape records, in native order.
	Shapes() []Shape
	// Pages returns the current page records.
	Pages() []Page
	// CreateShapes adds shapes to the current page.
	CreateShapes(shapes []Shape) error
	// CreatePage adds a page record. Used when restoring snapshots.
	CreatePage(page Page) error

	// SelectAll, DeleteSelected and ClearSelection exist so callers can clear
	// the canvas content without resetting the whole store — a full reset
	// would invalidate editor-internal bookkeeping.
	SelectAll()
	DeleteSelected()
	ClearSelection()

	// ViewportCenter is where AI-generated content lands when no position
	// is given.
	ViewportCenter() Point

	// OnChange registers a listener; the returned function unsubscribes it.
	OnChange(fn func(Change)) (unsubscribe func())
}
