// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Canvas represents a user-owned persisted drawing canvas.
//
// The `json:"..."` tags tell Go's encoding/json package how to serialize/deserialize
// this struct to/from JSON. This is called a "struct tag" — metadata attached to fields.
//
// WHY Data string (not a parsed structure)?
// Data holds the serialized editor snapshot exactly as the snapshot codec
// produced it. The persistence layer treats it as an opaque blob — only the
// codec's paired capture/apply functions need to agree on its shape. An empty
// string means "freshly created, nothing drawn yet".
//
// WHY UserID string (not *string)?
// Canvases created before login are local-only and have no owner. We use the
// empty string as the zero value rather than a nullable pointer — simpler to
// work with, and rows with an empty user_id are never written remotely anyway.
type Canvas struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Data      string    `json:"data,omitempty"`
	IsPinned  bool      `json:"isPinned"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultTitle returns the display title a canvas gets when the user hasn't
// named it: derived from its creation time, e.g. "Canvas — Jan 2 15:04".
func DefaultTitle(createdAt time.Time) string {
	return "Canvas — " + createdAt.Format("Jan 2 15:04")
}
