// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides user/post/session persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	exec   executor
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// foreign_keys is per-connection, so it goes in the DSN where every
	// pooled connection picks it up
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		exec:   executor{db: db},
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name TEXT NOT NULL,
			last_name  TEXT NOT NULL DEFAULT '',
			email      TEXT,
			password   TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'on_review',
			created    TEXT NOT NULL,

			CHECK (status IN ('active', 'on_review', 'banned', 'suspended'))
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email
			ON users(email) WHERE email IS NOT NULL;

		CREATE TABLE IF NOT EXISTS post (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			author_id   INTEGER NOT NULL,
			title       TEXT NOT NULL,
			content     TEXT NOT NULL,
			created     TEXT NOT NULL,
			author_seen TEXT,
			FOREIGN KEY (author_id) REFERENCES users(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_post_author ON post(author_id);
		CREATE INDEX IF NOT EXISTS idx_post_created ON post(created);

		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			user_id    INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// encodeTime stores timestamps as UTC RFC3339 strings. Lexicographic order
// on the stored form matches chronological order, which MAX() relies on.
func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// nullString maps an empty string to NULL so the partial unique index on
// users.email ignores accounts created without one.
func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// CreateUser inserts a new account and returns its generated id.
// Returns ErrConstraint when the email is already taken.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) (int64, error) {
	const q query = `
		INSERT INTO users (first_name, last_name, email, password, status, created)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	res, err := s.exec.exec(ctx, "insert user", q,
		user.FirstName,
		user.LastName,
		nullString(user.Email),
		user.PasswordHash,
		user.Status,
		encodeTime(user.Created),
	)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, &QueryError{Op: "insert user", Err: err}
	}

	s.logger.Debug("created user", "id", id, "status", user.Status)
	return id, nil
}

// GetUser retrieves a user by id. Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*User, error) {
	const q query = `
		SELECT id, first_name, last_name, COALESCE(email, ''), password, status, created
		FROM users
		WHERE id = ?
	`
	return s.scanUser(ctx, q, id)
}

// GetUserByEmail retrieves a user by email. Returns ErrNotFound if no account
// has that email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	const q query = `
		SELECT id, first_name, last_name, COALESCE(email, ''), password, status, created
		FROM users
		WHERE email = ?
	`
	return s.scanUser(ctx, q, email)
}

func (s *SQLiteStore) scanUser(ctx context.Context, q query, bind any) (*User, error) {
	var user User
	var createdStr string

	err := s.exec.fetchOne(ctx, "select user", q, []any{bind},
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Status,
		&createdStr,
	)
	if err != nil {
		return nil, err
	}

	user.Created, err = decodeTime(createdStr)
	if err != nil {
		return nil, &QueryError{Op: "select user", Err: err}
	}
	return &user, nil
}

// GetUserStatus resolves just the status column for the gate's allow-list
// check. Returns ErrNotFound for an unknown id.
func (s *SQLiteStore) GetUserStatus(ctx context.Context, id int64) (string, error) {
	const q query = `SELECT status FROM users WHERE id = ?`

	var status string
	if err := s.exec.fetchOne(ctx, "select user status", q, []any{id}, &status); err != nil {
		return "", err
	}
	return status, nil
}

// GetAccountInfo builds the aggregate my-info view for one account.
func (s *SQLiteStore) GetAccountInfo(ctx context.Context, id int64) (*AccountInfo, error) {
	const q query = `
		SELECT u.id, u.first_name, u.last_name, COALESCE(u.email, ''),
			(SELECT COUNT(*) FROM post WHERE author_id = u.id),
			(SELECT MAX(author_seen) FROM post WHERE author_id = u.id)
		FROM users u
		WHERE u.id = ?
	`

	var info AccountInfo
	var firstName, lastName string
	var lastSeen sql.NullString

	err := s.exec.fetchOne(ctx, "select account info", q, []any{id},
		&info.ID,
		&firstName,
		&lastName,
		&info.Email,
		&info.Posts,
		&lastSeen,
	)
	if err != nil {
		return nil, err
	}

	info.Name = firstName
	if lastName != "" {
		info.Name += " " + lastName
	}
	if lastSeen.Valid {
		t, err := decodeTime(lastSeen.String)
		if err != nil {
			return nil, &QueryError{Op: "select account info", Err: err}
		}
		info.LastSeen = &t
	}
	return &info, nil
}

// UpdateUserStatus moves an account to a new standing.
// Returns ErrNotFound if no such account exists, ErrConstraint for a status
// outside the schema's enumerated set.
func (s *SQLiteStore) UpdateUserStatus(ctx context.Context, id int64, status string) error {
	const q query = `UPDATE users SET status = ? WHERE id = ?`

	res, err := s.exec.exec(ctx, "update user status", q, status, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &QueryError{Op: "update user status", Err: err}
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Info("updated user status", "id", id, "status", status)
	return nil
}

// DeleteUser destroys the account row. Posts and sessions cascade.
// Returns ErrNotFound if no such account exists.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id int64) error {
	const q query = `DELETE FROM users WHERE id = ?`

	res, err := s.exec.exec(ctx, "delete user", q, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &QueryError{Op: "delete user", Err: err}
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Info("deleted user", "id", id)
	return nil
}

// CreatePost inserts a new post and returns its generated id.
func (s *SQLiteStore) CreatePost(ctx context.Context, post *Post) (int64, error) {
	const q query = `
		INSERT INTO post (author_id, title, content, created)
		VALUES (?, ?, ?, ?)
	`

	res, err := s.exec.exec(ctx, "insert post", q,
		post.AuthorID,
		post.Title,
		post.Content,
		encodeTime(post.Created),
	)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, &QueryError{Op: "insert post", Err: err}
	}

	s.logger.Debug("created post", "id", id, "author_id", post.AuthorID)
	return id, nil
}

// GetPost retrieves a post joined with its author's names.
// Returns ErrNotFound if the post doesn't exist.
func (s *SQLiteStore) GetPost(ctx context.Context, id int64) (*PostWithAuthor, error) {
	const q query = `
		SELECT p.id, p.author_id, p.title, p.content, p.created, p.author_seen,
			u.first_name, u.last_name
		FROM post p
		JOIN users u ON u.id = p.author_id
		WHERE p.id = ?
	`

	var post PostWithAuthor
	var createdStr string
	var seen sql.NullString

	err := s.exec.fetchOne(ctx, "select post", q, []any{id},
		&post.ID,
		&post.AuthorID,
		&post.Title,
		&post.Content,
		&createdStr,
		&seen,
		&post.AuthorFirstName,
		&post.AuthorLastName,
	)
	if err != nil {
		return nil, err
	}

	if err := post.decodeTimes(createdStr, seen); err != nil {
		return nil, err
	}
	return &post, nil
}

func (p *PostWithAuthor) decodeTimes(createdStr string, seen sql.NullString) error {
	created, err := decodeTime(createdStr)
	if err != nil {
		return &QueryError{Op: "select post", Err: err}
	}
	p.Created = created

	if seen.Valid {
		t, err := decodeTime(seen.String)
		if err != nil {
			return &QueryError{Op: "select post", Err: err}
		}
		p.AuthorSeen = &t
	}
	return nil
}

// ListPosts returns all posts joined with author names, newest first.
func (s *SQLiteStore) ListPosts(ctx context.Context) ([]*PostWithAuthor, error) {
	const q query = `
		SELECT p.id, p.author_id, p.title, p.content, p.created, p.author_seen,
			u.first_name, u.last_name
		FROM post p
		JOIN users u ON u.id = p.author_id
		ORDER BY p.created DESC, p.id DESC
	`

	var posts []*PostWithAuthor
	err := s.exec.fetchAll(ctx, "list posts", q, nil, func(rows *sql.Rows) error {
		var post PostWithAuthor
		var createdStr string
		var seen sql.NullString

		if err := rows.Scan(
			&post.ID,
			&post.AuthorID,
			&post.Title,
			&post.Content,
			&createdStr,
			&seen,
			&post.AuthorFirstName,
			&post.AuthorLastName,
		); err != nil {
			return err
		}
		if err := post.decodeTimes(createdStr, seen); err != nil {
			return err
		}
		posts = append(posts, &post)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// ListPostsByAuthor returns one author's posts, oldest first, for export.
func (s *SQLiteStore) ListPostsByAuthor(ctx context.Context, authorID int64) ([]*Post, error) {
	const q query = `
		SELECT id, author_id, title, content, created, author_seen
		FROM post
		WHERE author_id = ?
		ORDER BY created ASC, id ASC
	`

	var posts []*Post
	err := s.exec.fetchAll(ctx, "list posts by author", q, []any{authorID}, func(rows *sql.Rows) error {
		var post Post
		var createdStr string
		var seen sql.NullString

		if err := rows.Scan(
			&post.ID,
			&post.AuthorID,
			&post.Title,
			&post.Content,
			&createdStr,
			&seen,
		); err != nil {
			return err
		}

		created, err := decodeTime(createdStr)
		if err != nil {
			return err
		}
		post.Created = created

		if seen.Valid {
			t, err := decodeTime(seen.String)
			if err != nil {
				return err
			}
			post.AuthorSeen = &t
		}
		posts = append(posts, &post)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// DeleteOwnPost deletes a post only when it belongs to authorID. The
// ownership predicate lives in the statement itself so a guessed post id
// belonging to someone else matches zero rows.
func (s *SQLiteStore) DeleteOwnPost(ctx context.Context, id, authorID int64) (bool, error) {
	const q query = `DELETE FROM post WHERE id = ? AND author_id = ?`

	res, err := s.exec.exec(ctx, "delete own post", q, id, authorID)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, &QueryError{Op: "delete own post", Err: err}
	}
	return affected > 0, nil
}

// TouchAuthorSeen stamps author_seen across every post authored by authorID
// in one statement, so a cancelled request cannot leave half the set updated.
func (s *SQLiteStore) TouchAuthorSeen(ctx context.Context, authorID int64, seen time.Time) error {
	const q query = `UPDATE post SET author_seen = ? WHERE author_id = ?`

	if _, err := s.exec.exec(ctx, "touch author seen", q, encodeTime(seen), authorID); err != nil {
		return err
	}
	return nil
}

// CreateSession creates a new browser session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	const q query = `
		INSERT INTO sessions (id, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.exec.exec(ctx, "insert session", q,
		session.ID,
		session.UserID,
		encodeTime(session.CreatedAt),
		encodeTime(session.ExpiresAt),
	)
	if err != nil {
		return err
	}

	s.logger.Debug("created session", "user_id", session.UserID)
	return nil
}

// GetSession retrieves a valid (non-expired) session.
// Returns ErrSessionNotFound for unknown or expired ids.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	const q query = `
		SELECT id, user_id, created_at, expires_at
		FROM sessions
		WHERE id = ? AND expires_at > ?
	`

	var session Session
	var createdStr, expiresStr string

	err := s.exec.fetchOne(ctx, "select session", q, []any{id, encodeTime(time.Now())},
		&session.ID,
		&session.UserID,
		&createdStr,
		&expiresStr,
	)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	session.CreatedAt, err = decodeTime(createdStr)
	if err != nil {
		return nil, &QueryError{Op: "select session", Err: err}
	}
	session.ExpiresAt, err = decodeTime(expiresStr)
	if err != nil {
		return nil, &QueryError{Op: "select session", Err: err}
	}
	return &session, nil
}

// DeleteSession deletes a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	const q query = `DELETE FROM sessions WHERE id = ?`

	if _, err := s.exec.exec(ctx, "delete session", q, id); err != nil {
		return err
	}
	return nil
}

// DeleteUserSessions deletes every session belonging to one user.
func (s *SQLiteStore) DeleteUserSessions(ctx context.Context, userID int64) error {
	const q query = `DELETE FROM sessions WHERE user_id = ?`

	if _, err := s.exec.exec(ctx, "delete user sessions", q, userID); err != nil {
		return err
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) error {
	const q query = `DELETE FROM sessions WHERE expires_at <= ?`

	res, err := s.exec.exec(ctx, "delete expired sessions", q, encodeTime(time.Now()))
	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		s.logger.Debug("deleted expired sessions", "count", affected)
	}
	return nil
}
