package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateShapes_GeneratesIDs(t *testing.T) {
	ed := NewMemory()

	err := ed.CreateShapes([]Shape{
		{Type: "text", X: 10, Y: 20},
		{Type: "geo", X: 0, Y: 0},
	})
	require.NoError(t, err)

	shapes := ed.Shapes()
	require.Len(t, shapes, 2)
	assert.NotEmpty(t, shapes[0].ID)
	assert.NotEmpty(t, shapes[1].ID)
	assert.NotEqual(t, shapes[0].ID, shapes[1].ID)
}

func TestCreateShapes_PreservesInsertionOrder(t *testing.T) {
	ed := NewMemory()

	require.NoError(t, ed.CreateShapes([]Shape{{ID: "shape:a", Type: "text"}}))
	require.NoError(t, ed.CreateShapes([]Shape{{ID: "shape:b", Type: "geo"}}))
	require.NoError(t, ed.CreateShapes([]Shape{{ID: "shape:c", Type: "arrow"}}))

	shapes := ed.Shapes()
	require.Len(t, shapes, 3)
	assert.Equal(t, "shape:a", shapes[0].ID)
	assert.Equal(t, "shape:b", shapes[1].ID)
	assert.Equal(t, "shape:c", shapes[2].ID)
}

func TestCreateShapes_RejectsBadBatchAtomically(t *testing.T) {
	ed := NewMemory()

	// Second shape has no type — the whole batch must be rejected.
	err := ed.CreateShapes([]Shape{
		{ID: "shape:ok", Type: "text"},
		{ID: "shape:bad"},
	})
	require.Error(t, err)
	assert.Empty(t, ed.Shapes(), "a failed batch must not be half-applied")
}

func TestCreateShapes_RejectsDuplicateID(t *testing.T) {
	ed := NewMemory()

	require.NoError(t, ed.CreateShapes([]Shape{{ID: "shape:x", Type: "text"}}))
	err := ed.CreateShapes([]Shape{{ID: "shape:x", Type: "geo"}})
	require.Error(t, err)
	assert.Len(t, ed.Shapes(), 1)
}

func TestSelectAllDeleteSelected_ClearsCanvas(t *testing.T) {
	ed := NewMemory()
	require.NoError(t, ed.CreateShapes([]Shape{
		{Type: "text"}, {Type: "geo"}, {Type: "arrow"},
	}))

	ed.SelectAll()
	ed.DeleteSelected()
	ed.ClearSelection()

	assert.Empty(t, ed.Shapes())
	// Pages survive a content clear — only shapes are deleted.
	assert.Len(t, ed.Pages(), 1)
}

func TestOnChange_ScopesAndUnsubscribe(t *testing.T) {
	ed := NewMemory()

	var got []Change
	unsub := ed.OnChange(func(c Change) { got = append(got, c) })

	require.NoError(t, ed.CreateShapes([]Shape{{Type: "text"}}))
	ed.SetViewportCenter(Point{X: 1, Y: 2})

	require.Len(t, got, 2)
	assert.Equal(t, ScopeDocument, got[0].Scope, "shape creation is a document change")
	assert.Equal(t, ScopeSession, got[1].Scope, "viewport pan is a session change")

	unsub()
	require.NoError(t, ed.CreateShapes([]Shape{{Type: "geo"}}))
	assert.Len(t, got, 2, "unsubscribed listener must not fire")
}

func TestOnChange_ListenerMayReadEditor(t *testing.T) {
	ed := NewMemory()

	// The autosave path reads the document from inside a change notification;
	// that must not deadlock.
	var seen int
	ed.OnChange(func(Change) { seen = len(ed.Shapes()) })

	require.NoError(t, ed.CreateShapes([]Shape{{Type: "text"}}))
	assert.Equal(t, 1, seen)
}
