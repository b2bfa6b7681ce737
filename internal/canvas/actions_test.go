package canvas

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NathanTDL/tldraw-ai/internal/ai"
	"github.com/NathanTDL/tldraw-ai/internal/editor"
)

// stubImageGen returns one canned image, or an error.
type stubImageGen struct {
	prompts []string
	err     error
}

func (g *stubImageGen) GenerateImage(_ context.Context, req ai.ImageRequest) (*ai.ImageResponse, error) {
	g.prompts = append(g.prompts, req.Prompt)
	if g.err != nil {
		return nil, g.err
	}
	return &ai.ImageResponse{
		Success: true,
		Images:  []ai.GeneratedImage{{ImageData: "aGVsbG8="}},
	}, nil
}

func newTestDispatcher(t *testing.T, images ai.ImageGenerator) (*Dispatcher, *editor.Memory) {
	t.Helper()

	repo := newRecordingRepo()
	s, ed := newTestSession(t, repo, &stubAuth{userID: "user-1"}, &memLastStore{})
	return NewDispatcher(s, images, testLogger()), ed
}

func TestDispatchAddText(t *testing.T) {
	d, ed := newTestDispatcher(t, nil)

	reply := `Sure! [[ADD_TEXT|{"text":"Brainstorm","x":120,"y":80}]] Added it for you.`
	out := d.Dispatch(context.Background(), reply)

	assert.Equal(t, "Sure!  Added it for you.", out)

	shapes := ed.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, "text", shapes[0].Type)
	assert.Equal(t, 120.0, shapes[0].X)
	assert.Equal(t, 80.0, shapes[0].Y)
	assert.Equal(t, "Brainstorm", extractText(shapes[0].Props))
}

func TestDispatchAddTextDefaultsToViewportCenter(t *testing.T) {
	d, ed := newTestDispatcher(t, nil)
	ed.SetViewportCenter(editor.Point{X: 640, Y: 360})

	d.Dispatch(context.Background(), `[[ADD_TEXT|{"text":"centered"}]]`)

	shapes := ed.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, 640.0, shapes[0].X)
	assert.Equal(t, 360.0, shapes[0].Y)
}

func TestDispatchAddTextAtOrigin(t *testing.T) {
	d, ed := newTestDispatcher(t, nil)
	ed.SetViewportCenter(editor.Point{X: 640, Y: 360})

	// Explicit (0,0) is a real position, not "omitted".
	d.Dispatch(context.Background(), `[[ADD_TEXT|{"text":"corner","x":0,"y":0}]]`)

	shapes := ed.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, 0.0, shapes[0].X)
	assert.Equal(t, 0.0, shapes[0].Y)
}

func TestDispatchGenerateImage(t *testing.T) {
	gen := &stubImageGen{}
	d, ed := newTestDispatcher(t, gen)
	ed.SetViewportCenter(editor.Point{X: 400, Y: 300})

	out := d.Dispatch(context.Background(), `Here you go! [[GENERATE_IMAGE|a watercolor fox]]`)

	assert.Equal(t, "Here you go!", out)
	assert.Equal(t, []string{"a watercolor fox"}, gen.prompts)

	shapes := ed.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, "image", shapes[0].Type)
	assert.Equal(t, 400.0-256, shapes[0].X)
	assert.Equal(t, 300.0-256, shapes[0].Y)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", shapes[0].Props["src"])
}

func TestDispatchMultipleCommands(t *testing.T) {
	gen := &stubImageGen{}
	d, ed := newTestDispatcher(t, gen)

	reply := `[[ADD_TEXT|{"text":"one"}]] and [[GENERATE_IMAGE|two]] and [[ADD_TEXT|{"text":"three"}]]`
	out := d.Dispatch(context.Background(), reply)

	assert.Equal(t, "and  and", out)
	assert.Len(t, ed.Shapes(), 3)
}

func TestDispatchIsolatesFailures(t *testing.T) {
	d, ed := newTestDispatcher(t, nil)

	// Malformed JSON mid-reply, valid commands on both sides.
	reply := `[[ADD_TEXT|{"text":"first"}]] [[ADD_TEXT|not json]] [[ADD_TEXT|{"text":"last"}]]`
	out := d.Dispatch(context.Background(), reply)

	assert.Empty(t, out)
	shapes := ed.Shapes()
	require.Len(t, shapes, 2)
	assert.Equal(t, "first", extractText(shapes[0].Props))
	assert.Equal(t, "last", extractText(shapes[1].Props))
}

func TestDispatchImageProviderFailure(t *testing.T) {
	gen := &stubImageGen{err: errors.New("provider down")}
	d, ed := newTestDispatcher(t, gen)

	out := d.Dispatch(context.Background(), `[[GENERATE_IMAGE|a fox]] [[ADD_TEXT|{"text":"still here"}]]`)

	assert.Equal(t, "still here", extractText(ed.Shapes()[0].Props))
	assert.Empty(t, out)
}

func TestDispatchWithoutImageProvider(t *testing.T) {
	d, ed := newTestDispatcher(t, nil)

	out := d.Dispatch(context.Background(), `[[GENERATE_IMAGE|a fox]] done`)

	assert.Equal(t, "done", out)
	assert.Empty(t, ed.Shapes(), "image command without a provider is skipped")
}

func TestDispatchPlainReplyPassesThrough(t *testing.T) {
	d, ed := newTestDispatcher(t, nil)

	reply := "Nothing to do here, just chatting about [[brackets]] and pipes |."
	out := d.Dispatch(context.Background(), reply)

	assert.Equal(t, reply, out)
	assert.Empty(t, ed.Shapes())
}

func TestDispatchUnknownCommandIgnored(t *testing.T) {
	d, ed := newTestDispatcher(t, nil)

	// Not part of the grammar; stays in the reply verbatim.
	reply := `[[DELETE_EVERYTHING|now]]`
	out := d.Dispatch(context.Background(), reply)

	assert.Equal(t, reply, out)
	assert.Empty(t, ed.Shapes())
}

func TestDispatchMultilinePayload(t *testing.T) {
	d, ed := newTestDispatcher(t, nil)

	reply := "[[ADD_TEXT|{\"text\":\"line one\\nline two\"}]]"
	d.Dispatch(context.Background(), reply)

	shapes := ed.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, "line one\nline two", extractText(shapes[0].Props))
}
