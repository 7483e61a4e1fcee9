// ABOUTME: Store interface and data types for inkwell persistence
// ABOUTME: Defines User, Post, Session structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrConstraint is returned when an insert or update violates a uniqueness
// or foreign-key constraint (e.g. creating an account with a taken email)
var ErrConstraint = errors.New("constraint violation")

// ErrSessionNotFound is returned when a session doesn't exist or is expired
var ErrSessionNotFound = errors.New("session not found")

// UserStatus constants for account standing
const (
	StatusActive    = "active"
	StatusOnReview  = "on_review"
	StatusBanned    = "banned"
	StatusSuspended = "suspended"
)

// User represents a registered account
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Status       string
	Created      time.Time
}

// Post represents a blog post. AuthorSeen records when the post's author was
// last confirmed in good standing by the authorization gate; it is tracked
// per-post, not per-user.
type Post struct {
	ID         int64
	AuthorID   int64
	Title      string
	Content    string
	Created    time.Time
	AuthorSeen *time.Time
}

// PostWithAuthor is a post joined with its author's display names
type PostWithAuthor struct {
	Post
	AuthorFirstName string
	AuthorLastName  string
}

// Session represents an authenticated browser session
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// AccountInfo is the aggregate view behind GET /my-info
type AccountInfo struct {
	ID       int64
	Name     string
	Email    string
	Posts    int
	LastSeen *time.Time
}

// UserStore defines account persistence operations
type UserStore interface {
	CreateUser(ctx context.Context, user *User) (int64, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserStatus(ctx context.Context, id int64) (string, error)
	GetAccountInfo(ctx context.Context, id int64) (*AccountInfo, error)
	UpdateUserStatus(ctx context.Context, id int64, status string) error
	DeleteUser(ctx context.Context, id int64) error
}

// PostStore defines post persistence operations
type PostStore interface {
	CreatePost(ctx context.Context, post *Post) (int64, error)
	GetPost(ctx context.Context, id int64) (*PostWithAuthor, error)
	ListPosts(ctx context.Context) ([]*PostWithAuthor, error)
	ListPostsByAuthor(ctx context.Context, authorID int64) ([]*Post, error)

	// DeleteOwnPost deletes the post only when it belongs to authorID.
	// Returns false when no such post/author pairing exists.
	DeleteOwnPost(ctx context.Context, id, authorID int64) (bool, error)

	// TouchAuthorSeen stamps author_seen on every post authored by authorID
	// in a single statement.
	TouchAuthorSeen(ctx context.Context, authorID int64, seen time.Time) error
}

// SessionStore defines browser session persistence operations
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID int64) error
	DeleteExpiredSessions(ctx context.Context) error
}

// Store combines all persistence operations
type Store interface {
	UserStore
	PostStore
	SessionStore

	// Close releases any resources held by the store
	Close() error
}
