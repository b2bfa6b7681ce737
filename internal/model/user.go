// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered user account.
//
// Two identity paths feed this struct:
//   - GitHub OAuth: GitHubID is set (GitHub's numeric user ID), PasswordHash empty
//   - Email/password: PasswordHash is set (bcrypt), GitHubID is 0
//
// WHY GitHubID int64?
// GitHub user IDs are integers (e.g. 1234567). Using int64 avoids overflow
// for large GitHub account numbers. The UNIQUE constraint on github_id in the
// DB ensures one GitHub account maps to exactly one app account. 0 means
// "no linked GitHub account".
//
// WHY Email string (not *string)?
// GitHub OAuth returns the primary public email, which can be empty if the
// user has hidden it. We use an empty string as the zero value rather than a
// nullable pointer — simpler to work with and safe to display.
//
// PasswordHash carries `json:"-"` so it can never leak through an API
// response, no matter which handler serializes the user.
type User struct {
	ID           string    `json:"id"`
	GitHubID     int64     `json:"githubId,omitempty"` // GitHub's numeric user ID, 0 if none
	Login        string    `json:"login"`              // Display name / GitHub username
	Email        string    `json:"email"`              // Primary email (may be empty for OAuth users)
	AvatarURL    string    `json:"avatarUrl"`
	PasswordHash string    `json:"-"` // bcrypt hash, empty for OAuth-only accounts
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
