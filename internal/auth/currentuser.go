package auth

import "sync"

// CurrentUser is the process-local record of who is logged in right now.
//
// Request handlers learn the user from the request context, but the canvas
// session's autosave fires on a timer goroutine with no request in sight —
// it still needs to answer "is anyone logged in, and who?". CurrentUser is
// that answer: the auth handlers Set it on login and Clear it on logout, and
// the session reads it whenever a save decision is made.
type CurrentUser struct {
	mu     sync.RWMutex
	userID string
}

// NewCurrentUser returns an empty (logged-out) holder.
func NewCurrentUser() *CurrentUser {
	return &CurrentUser{}
}

// Set records userID as the active user.
func (c *CurrentUser) Set(userID string) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
}

// Clear forgets the active user (logout).
func (c *CurrentUser) Clear() {
	c.mu.Lock()
	c.userID = ""
	c.mu.Unlock()
}

// CurrentUserID returns the active user's id, or ("", false) when nobody is
// logged in.
func (c *CurrentUser) CurrentUserID() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.userID != ""
}
