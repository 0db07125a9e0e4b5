// Package model defines the data structures used throughout the application.
package model

import "time"

// Role values stored in the users.role column. There are exactly two;
// anything else in the database is a bug.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account.
//
// Name is the login handle and Email the contact address — both are globally
// unique (UNIQUE constraints in the users table). PasswordHash holds the
// bcrypt digest and must never leave the server; the `json:"-"` tag makes
// that impossible to get wrong at the encoding layer.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Nickname     string    `json:"nickname"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Author is the embedded author shape returned inside posts, comments and
// replies. It exposes only public profile fields.
type Author struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
}

// AuthorOf builds the public author view of a user.
func AuthorOf(u *User) Author {
	return Author{ID: u.ID, Name: u.Name, Nickname: u.Nickname}
}
