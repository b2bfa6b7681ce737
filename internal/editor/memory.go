package editor

import (
	"fmt"
	"sync"

	"github.com/rs/xid"
)

// Memory is the in-process editor implementation backing the server's canvas.
// It holds shape and page records in insertion order and notifies subscribers
// synchronously on every mutation.
//
// Locking discipline: listeners are invoked AFTER the store mutex is
// released, so a listener may call back into the editor (the autosave path
// captures a snapshot from inside a change notification).
type Memory struct {
	mu        sync.Mutex
	shapes    []Shape
	pages     []Page
	selected  map[string]bool
	viewport  Point
	listeners map[int]func(Change)
	nextSub   int
}

var _ Editor = (*Memory)(nil)

// NewMemory creates an editor with a single default page and an empty canvas.
func NewMemory() *Memory {
	return &Memory{
		pages:     []Page{{ID: "page:" + xid.New().String(), Name: "Page 1"}},
		selected:  make(map[string]bool),
		viewport:  Point{X: 640, Y: 360},
		listeners: make(map[int]func(Change)),
	}
}

// Shapes returns a copy of the current shape records in insertion order.
// Returning a copy keeps callers from mutating the store behind our back;
// Props maps are shared, so summary readers must treat them as read-only.
func (m *Memory) Shapes() []Shape {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Shape, len(m.shapes))
	copy(out, m.shapes)
	return out
}

// Pages returns a copy of the current page records.
func (m *Memory) Pages() []Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Page, len(m.pages))
	copy(out, m.pages)
	return out
}

// CreateShapes appends shapes to the document. Shapes without an ID get one
// generated; a shape with an empty type or a duplicate ID is rejected and
// nothing is added (all-or-nothing, so a half-applied batch can't occur).
func (m *Memory) CreateShapes(shapes []Shape) error {
	m.mu.Lock()
	existing := make(map[string]bool, len(m.shapes))
	for _, s := range m.shapes {
		existing[s.ID] = true
	}

	batch := make([]Shape, 0, len(shapes))
	for _, s := range shapes {
		if s.Type == "" {
			m.mu.Unlock()
			return fmt.Errorf("editor: shape has no type")
		}
		if s.ID == "" {
			s.ID = "shape:" + xid.New().String()
		}
		if existing[s.ID] {
			m.mu.Unlock()
			return fmt.Errorf("editor: duplicate shape id %s", s.ID)
		}
		existing[s.ID] = true
		batch = append(batch, s)
	}
	m.shapes = append(m.shapes, batch...)
	m.mu.Unlock()

	if len(batch) > 0 {
		m.notify(Change{Scope: ScopeDocument})
	}
	return nil
}

// CreatePage appends a page record.
func (m *Memory) CreatePage(page Page) error {
	m.mu.Lock()
	if page.ID == "" {
		page.ID = "page:" + xid.New().String()
	}
	for _, p := range m.pages {
		if p.ID == page.ID {
			m.mu.Unlock()
			return fmt.Errorf("editor: duplicate page id %s", page.ID)
		}
	}
	m.pages = append(m.pages, page)
	m.mu.Unlock()

	m.notify(Change{Scope: ScopeDocument})
	return nil
}

// DeleteShapes removes shapes by ID. Unknown IDs are ignored.
func (m *Memory) DeleteShapes(ids []string) {
	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		doomed[id] = true
	}

	m.mu.Lock()
	kept := m.shapes[:0]
	removed := false
	for _, s := range m.shapes {
		if doomed[s.ID] {
			removed = true
			delete(m.selected, s.ID)
			continue
		}
		kept = append(kept, s)
	}
	m.shapes = kept
	m.mu.Unlock()

	if removed {
		m.notify(Change{Scope: ScopeDocument})
	}
}

// SelectAll marks every shape selected.
func (m *Memory) SelectAll() {
	m.mu.Lock()
	for _, s := range m.shapes {
		m.selected[s.ID] = true
	}
	m.mu.Unlock()

	m.notify(Change{Scope: ScopeSession})
}

// DeleteSelected removes every selected shape.
func (m *Memory) DeleteSelected() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.selected))
	for id := range m.selected {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	m.DeleteShapes(ids)
}

// ClearSelection deselects everything.
func (m *Memory) ClearSelection() {
	m.mu.Lock()
	changed := len(m.selected) > 0
	m.selected = make(map[string]bool)
	m.mu.Unlock()

	if changed {
		m.notify(Change{Scope: ScopeSession})
	}
}

// ViewportCenter returns the current viewport center.
func (m *Memory) ViewportCenter() Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewport
}

// SetViewportCenter pans the viewport. A session-scope change only — panning
// must never trigger a save.
func (m *Memory) SetViewportCenter(p Point) {
	m.mu.Lock()
	m.viewport = p
	m.mu.Unlock()

	m.notify(Change{Scope: ScopeSession})
}

// OnChange registers a listener; the returned function unsubscribes it.
func (m *Memory) OnChange(fn func(Change)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Memory) notify(c Change) {
	m.mu.Lock()
	fns := make([]func(Change), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
