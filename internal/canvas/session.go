package canvas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NathanTDL/tldraw-ai/internal/apperror"
	"github.com/NathanTDL/tldraw-ai/internal/editor"
	"github.com/NathanTDL/tldraw-ai/internal/model"
	"github.com/NathanTDL/tldraw-ai/internal/repository"
)

// DefaultDebounce is how long the session waits after the last document
// change before autosaving. Editor change notifications arrive at interaction
// granularity (every drag tick); a few hundred milliseconds of settling
// coalesces a burst into one write.
const DefaultDebounce = 400 * time.Millisecond

// AuthProvider answers the only auth question this core ever asks:
// "who is the current user, if anyone?"
type AuthProvider interface {
	CurrentUserID() (string, bool)
}

// LastCanvasStore is the small local slot remembering which canvas was active
// last, read once at initialization and written on every switch. It lives
// outside the canvas repository on purpose — it is device state, not user data.
type LastCanvasStore interface {
	Load() string
	Store(id string)
}

// Session is the single authority over which canvas is active, when it is
// persisted, and how switching between canvases happens without losing edits.
// One Session exists per running application; every consumer receives it
// explicitly rather than through a package-level singleton.
//
// CONCURRENCY MODEL:
// The mutex only guards the session's own fields and is never held across
// snapshot capture or repository I/O. Write exclusion is the saveInFlight
// boolean, claimed under the lock before capture begins: a save triggered
// while another is anywhere between capture and write is dropped, not
// queued — the
// debounce timer or the next user action will capture the latest state
// (deliberate last-write-wins, per the single-writer design).
type Session struct {
	repo   repository.CanvasRepository
	auth   AuthProvider
	last   LastCanvasStore
	logger *slog.Logger

	debounce time.Duration

	mu              sync.Mutex
	ed              editor.Editor
	unsubscribe     func()
	activeID        string
	lastFingerprint string
	saveInFlight    bool
	lastSavedAt     time.Time
	initialized     bool
	restoring       bool // suppresses autosave while load/create rewrites the editor
	timer           *time.Timer
}

// NewSession wires a session. Dependencies are injected — the caller decides
// which repository, auth source and local store the session talks to.
func NewSession(repo repository.CanvasRepository, auth AuthProvider, last LastCanvasStore, logger *slog.Logger) *Session {
	return &Session{
		repo:     repo,
		auth:     auth,
		last:     last,
		logger:   logger,
		debounce: DefaultDebounce,
	}
}

// SetDebounce overrides the autosave settling delay. Call before
// RegisterEditor; tests use this to avoid waiting on real timers.
func (s *Session) SetDebounce(d time.Duration) {
	s.mu.Lock()
	s.debounce = d
	s.mu.Unlock()
}

// RegisterEditor binds the live editor for the current mount and subscribes
// to its change notifications. Re-registering simply replaces the handle —
// it never implicitly reloads. The first registration triggers Initialize so
// the editor always ends up bound to some active canvas.
func (s *Session) RegisterEditor(ctx context.Context, ed editor.Editor) {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.ed = ed
	if ed != nil {
		s.unsubscribe = ed.OnChange(s.handleChange)
	}
	needsInit := !s.initialized && ed != nil
	s.mu.Unlock()

	if needsInit {
		s.Initialize(ctx)
	}
}

// Initialize runs once per process lifetime. It tries to restore the last
// remembered canvas; any failure along that path — nothing remembered, row
// missing, row owned by someone else, storage error — falls back to creating
// a fresh canvas, so initialization always leaves the session with an active
// canvas.
func (s *Session) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = true
	s.mu.Unlock()

	if id := s.last.Load(); id != "" {
		if s.ownsCanvas(ctx, id) {
			s.SetActiveCanvas(id)
			s.LoadCanvas(ctx, id)
			return
		}
		s.logger.Info("remembered canvas not restorable, starting fresh", slog.String("canvasID", id))
	}

	id, err := s.CreateCanvas(ctx)
	if err != nil {
		// Remote insert failed; fall back to a local-only canvas so the
		// editor is still usable. The adoption path in save() will persist
		// it once storage recovers.
		s.logger.Error("creating initial canvas failed, using local-only canvas", slog.String("error", err.Error()))
		id = uuid.NewString()
	}
	s.SetActiveCanvas(id)
}

// ownsCanvas reports whether the remembered canvas can be restored for the
// current user. Unauthenticated sessions can't prove ownership of a remote
// row, so they always start fresh.
func (s *Session) ownsCanvas(ctx context.Context, id string) bool {
	userID, ok := s.auth.CurrentUserID()
	if !ok {
		return false
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false
	}
	return c.UserID == userID
}

// SetActiveCanvas updates the in-memory active id and remembers it for the
// next launch. Pure bookkeeping — no load, no save.
func (s *Session) SetActiveCanvas(id string) {
	s.mu.Lock()
	s.activeID = id
	s.mu.Unlock()

	s.last.Store(id)
}

// ActiveCanvasID returns the currently active canvas id ("" before
// initialization completes).
func (s *Session) ActiveCanvasID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// LastSavedAt returns when the last successful durable write finished
// (zero time if none yet). Drives the "last saved" UI hint.
func (s *Session) LastSavedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSavedAt
}

// Editor lends out the live editor handle for a single operation (context
// extraction, action dispatch). Borrowers must not cache it — it is replaced
// on remount.
func (s *Session) Editor() editor.Editor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ed
}

// LoadCanvas fetches a canvas's persisted data and restores it into the live
// editor. Every failure mode of persisted data — missing row, null/empty
// data, unparsable JSON, apply failure — resolves to the same end state: a
// cleared, empty editor and a normal return. An empty canvas is a valid
// state, not an error, so the user never sees a load failure dialog.
func (s *Session) LoadCanvas(ctx context.Context, id string) {
	s.mu.Lock()
	ed := s.ed
	if ed == nil {
		s.mu.Unlock()
		s.logger.Warn("load requested with no editor registered", slog.String("canvasID", id))
		return
	}
	s.restoring = true
	s.stopTimerLocked()
	s.mu.Unlock()

	defer func() {
		// Whatever happened, the editor's current content is now the baseline:
		// fingerprint it so the next change-detection pass doesn't consider
		// just-loaded (or just-cleared) content dirty.
		fp, err := Encode(Capture(ed))
		s.mu.Lock()
		if err == nil {
			s.lastFingerprint = fp
		}
		s.restoring = false
		s.mu.Unlock()
	}()

	// Clear content via select-all + delete rather than a store reset —
	// a reset would invalidate editor-internal bookkeeping.
	clearEditor(ed)

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("loading canvas failed, leaving canvas empty",
				slog.String("canvasID", id),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	snapshot, err := Decode(c.Data)
	if err != nil {
		s.logger.Error("persisted canvas data is malformed, leaving canvas empty",
			slog.String("canvasID", id),
			slog.String("error", err.Error()),
		)
		return
	}
	if snapshot == nil {
		return // nothing drawn yet
	}

	if err := Apply(ed, snapshot); err != nil {
		s.logger.Error("restoring snapshot failed, leaving canvas empty",
			slog.String("canvasID", id),
			slog.String("error", err.Error()),
		)
		clearEditor(ed)
	}
}

// CreateCanvas makes a new empty canvas and returns its id without making it
// active — the caller decides that. Authenticated users get a durable row;
// guests get a local-only id (degraded mode: drawable, not durable; the id
// is adopted into storage on the first save after login). The live editor is
// cleared either way, ready for the new canvas.
func (s *Session) CreateCanvas(ctx context.Context) (string, error) {
	id := uuid.NewString()

	if userID, ok := s.auth.CurrentUserID(); ok {
		c := &model.Canvas{ID: id, UserID: userID}
		if err := s.repo.Create(ctx, c); err != nil {
			return "", fmt.Errorf("canvas: creating canvas: %w", err)
		}
	}

	s.mu.Lock()
	ed := s.ed
	s.restoring = true
	s.stopTimerLocked()
	s.mu.Unlock()

	if ed != nil {
		clearEditor(ed)
	}

	s.mu.Lock()
	if ed != nil {
		if fp, err := Encode(Capture(ed)); err == nil {
			s.lastFingerprint = fp
		}
	}
	s.restoring = false
	s.mu.Unlock()

	return id, nil
}

// Save is the single save routine behind autosave, manual save, and the
// forced pre-switch save. force bypasses the unchanged-fingerprint skip —
// the point of a forced save is durability even when change detection would
// have said "nothing to do".
//
// Returns nil on every skip path (no active canvas, no editor, save already
// in flight, unchanged, unauthenticated). Errors are only returned for
// actual failed writes; the autosave caller logs them, manual/forced callers
// surface them.
func (s *Session) Save(ctx context.Context, force bool) error {
	s.mu.Lock()
	if s.activeID == "" || s.ed == nil {
		s.mu.Unlock()
		return nil
	}
	if s.saveInFlight {
		s.mu.Unlock()
		return nil
	}
	// Claim the single-flight slot before releasing the lock: the capture
	// below runs unlocked, and a save arriving during it must be dropped,
	// not started. Every early return from here on clears the flag.
	s.saveInFlight = true
	if force {
		// A forced save supersedes any pending autosave; a stale timer must
		// not fire after we've already written and possibly moved on.
		s.stopTimerLocked()
	}

	id := s.activeID
	ed := s.ed
	s.mu.Unlock()

	fp, err := Encode(Capture(ed))
	if err != nil {
		s.mu.Lock()
		s.saveInFlight = false
		s.mu.Unlock()
		return fmt.Errorf("canvas: capturing snapshot: %w", err)
	}

	s.mu.Lock()
	if !force && fp == s.lastFingerprint {
		s.saveInFlight = false
		s.mu.Unlock()
		return nil
	}

	userID, authed := s.auth.CurrentUserID()
	if !authed {
		// Degraded guest mode: nothing is durably written, but the
		// fingerprint still advances so change detection stays consistent
		// (otherwise every subsequent change would look dirty forever).
		s.lastFingerprint = fp
		s.saveInFlight = false
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	err = s.write(ctx, id, userID, fp)

	s.mu.Lock()
	s.saveInFlight = false
	if err == nil {
		s.lastFingerprint = fp
		s.lastSavedAt = time.Now()
	}
	s.mu.Unlock()

	return err
}

// write performs the durable write. A canvas the gateway has never seen —
// created while logged out, or whose row vanished remotely — is adopted:
// inserted as a fresh row owned by the current user, keeping its id.
func (s *Session) write(ctx context.Context, id, userID, data string) error {
	err := s.repo.SaveData(ctx, id, data)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}

	s.logger.Info("adopting local-only canvas into durable storage", slog.String("canvasID", id))
	c := &model.Canvas{ID: id, UserID: userID, Data: data}
	if err := s.repo.Create(ctx, c); err != nil {
		return fmt.Errorf("canvas: adopting canvas %s: %w", id, err)
	}
	return nil
}

// SwitchCanvas moves the session to another canvas. The ordering here is the
// single most important invariant in the app: force-save the current canvas,
// THEN change the active id, THEN load the new one. Steps two and three
// don't begin until the save has resolved, so a canvas is never abandoned
// with unpersisted edits.
func (s *Session) SwitchCanvas(ctx context.Context, newID string) error {
	s.mu.Lock()
	current := s.activeID
	s.mu.Unlock()

	if newID == current {
		return nil
	}

	if err := s.Save(ctx, true); err != nil {
		// Don't switch away from a canvas we failed to persist.
		return fmt.Errorf("canvas: saving before switch: %w", err)
	}

	s.SetActiveCanvas(newID)
	s.LoadCanvas(ctx, newID)
	return nil
}

// CreateAndSwitch is the "new canvas" user action: persist the current
// canvas, create a fresh one, and make it active. The editor is already
// empty after CreateCanvas, so no load is needed.
func (s *Session) CreateAndSwitch(ctx context.Context) (string, error) {
	if err := s.Save(ctx, true); err != nil {
		return "", fmt.Errorf("canvas: saving before new canvas: %w", err)
	}

	id, err := s.CreateCanvas(ctx)
	if err != nil {
		return "", err
	}

	s.SetActiveCanvas(id)
	return id, nil
}

// handleChange receives every editor change notification. Only document-scope
// changes (shapes/pages) schedule an autosave; selection and viewport churn
// is ignored. Each qualifying change RESETS the debounce timer — only the
// last notification in a burst results in a save.
func (s *Session) handleChange(c editor.Change) {
	if c.Scope != editor.ScopeDocument {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.restoring {
		// The session itself is rewriting the editor (load/create); those
		// mutations are not user edits.
		return
	}

	s.stopTimerLocked()
	s.timer = time.AfterFunc(s.debounce, s.autosave)
}

// autosave fires when the debounce settles. Failures are logged and
// swallowed — autosave must never crash the editing session, and the next
// change starts a fresh debounce cycle that retries naturally.
func (s *Session) autosave() {
	s.mu.Lock()
	s.timer = nil
	s.mu.Unlock()

	if err := s.Save(context.Background(), false); err != nil {
		s.logger.Warn("autosave failed, will retry on next change", slog.String("error", err.Error()))
	}
}

// stopTimerLocked cancels a pending autosave. Caller holds s.mu.
func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func clearEditor(ed editor.Editor) {
	ed.SelectAll()
	ed.DeleteSelected()
	ed.ClearSelection()
}
