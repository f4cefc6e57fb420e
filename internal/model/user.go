// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Email and Username are stored already normalised (lowercase), so equality
// checks in SQL are plain comparisons. PasswordHash is a bcrypt digest and is
// never serialised.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Bio          string    `json:"bio"`
	PasswordHash string    `json:"-"`
	Status       Status    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Author is the public summary of a user attached to articles and comments.
type Author struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}
