// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers user/post/session CRUD, ownership-scoped deletes, and bind handling

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	return store
}

func seedUser(t *testing.T, s *SQLiteStore, firstName, email, status string) int64 {
	t.Helper()
	id, err := s.CreateUser(context.Background(), &User{
		FirstName:    firstName,
		Email:        email,
		PasswordHash: "x",
		Status:       status,
		Created:      time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return id
}

func seedPost(t *testing.T, s *SQLiteStore, authorID int64, title string) int64 {
	t.Helper()
	id, err := s.CreatePost(context.Background(), &Post{
		AuthorID: authorID,
		Title:    title,
		Content:  "content of " + title,
		Created:  time.Now(),
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	return id
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestCreateAndGetUser(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	created := time.Now().UTC().Truncate(time.Second)
	id, err := store.CreateUser(ctx, &User{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$hash",
		Status:       StatusActive,
		Created:      created,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a generated id")
	}

	got, err := store.GetUser(ctx, id)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.FirstName != "Ada" || got.LastName != "Lovelace" {
		t.Errorf("name mismatch: got %q %q", got.FirstName, got.LastName)
	}
	if got.Email != "ada@example.com" {
		t.Errorf("email mismatch: got %q", got.Email)
	}
	if got.Status != StatusActive {
		t.Errorf("status mismatch: got %q", got.Status)
	}
	if !got.Created.Equal(created) {
		t.Errorf("created mismatch: got %v, want %v", got.Created, created)
	}

	byEmail, err := store.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != id {
		t.Errorf("GetUserByEmail id mismatch: got %d, want %d", byEmail.ID, id)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	seedUser(t, store, "first", "taken@example.com", StatusActive)

	_, err := store.CreateUser(context.Background(), &User{
		FirstName:    "second",
		Email:        "taken@example.com",
		PasswordHash: "x",
		Status:       StatusOnReview,
		Created:      time.Now(),
	})
	if !errors.Is(err, ErrConstraint) {
		t.Errorf("expected ErrConstraint, got %v", err)
	}
}

func TestCreateUser_EmptyEmailNotUnique(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	// Accounts created without an email must not collide on the unique index
	seedUser(t, store, "one", "", StatusActive)
	seedUser(t, store, "two", "", StatusActive)
}

func TestGetUserStatus(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	id := seedUser(t, store, "u", "u@example.com", StatusBanned)

	status, err := store.GetUserStatus(ctx, id)
	if err != nil {
		t.Fatalf("GetUserStatus failed: %v", err)
	}
	if status != StatusBanned {
		t.Errorf("status mismatch: got %q, want %q", status, StatusBanned)
	}

	if _, err := store.GetUserStatus(ctx, 99999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestUpdateUserStatus(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	id := seedUser(t, store, "u", "u@example.com", StatusOnReview)

	if err := store.UpdateUserStatus(ctx, id, StatusBanned); err != nil {
		t.Fatalf("UpdateUserStatus failed: %v", err)
	}

	status, err := store.GetUserStatus(ctx, id)
	if err != nil {
		t.Fatalf("GetUserStatus failed: %v", err)
	}
	if status != StatusBanned {
		t.Errorf("status = %q, want %q", status, StatusBanned)
	}

	if err := store.UpdateUserStatus(ctx, 99999, StatusActive); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown user, got %v", err)
	}
	if err := store.UpdateUserStatus(ctx, id, "bogus"); !errors.Is(err, ErrConstraint) {
		t.Errorf("expected ErrConstraint for out-of-set status, got %v", err)
	}
}

func TestCreateAndGetPost(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	authorID := seedUser(t, store, "Ada", "ada@example.com", StatusActive)
	postID := seedPost(t, store, authorID, "hello")

	got, err := store.GetPost(ctx, postID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != "hello" {
		t.Errorf("title mismatch: got %q", got.Title)
	}
	if got.Content != "content of hello" {
		t.Errorf("content mismatch: got %q", got.Content)
	}
	if got.AuthorID != authorID {
		t.Errorf("author_id mismatch: got %d, want %d", got.AuthorID, authorID)
	}
	if got.AuthorFirstName != "Ada" {
		t.Errorf("author first name mismatch: got %q", got.AuthorFirstName)
	}
	if got.AuthorSeen != nil {
		t.Errorf("expected nil author_seen on a fresh post, got %v", got.AuthorSeen)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	if _, err := store.GetPost(context.Background(), 12345); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListPosts_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	authorID := seedUser(t, store, "Ada", "ada@example.com", StatusActive)

	base := time.Now().UTC().Truncate(time.Second)
	for i, title := range []string{"oldest", "middle", "newest"} {
		if _, err := store.CreatePost(ctx, &Post{
			AuthorID: authorID,
			Title:    title,
			Content:  title,
			Created:  base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
	}

	posts, err := store.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}
	if posts[0].Title != "newest" || posts[2].Title != "oldest" {
		t.Errorf("unexpected order: %q, %q, %q", posts[0].Title, posts[1].Title, posts[2].Title)
	}
}

func TestDeleteOwnPost_Ownership(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	owner := seedUser(t, store, "owner", "owner@example.com", StatusActive)
	other := seedUser(t, store, "other", "other@example.com", StatusActive)
	postID := seedPost(t, store, owner, "mine")

	// A different caller guessing the id must not delete it
	deleted, err := store.DeleteOwnPost(ctx, postID, other)
	if err != nil {
		t.Fatalf("DeleteOwnPost failed: %v", err)
	}
	if deleted {
		t.Fatal("post deleted by a non-owner")
	}
	if _, err := store.GetPost(ctx, postID); err != nil {
		t.Fatalf("post should still exist: %v", err)
	}

	deleted, err = store.DeleteOwnPost(ctx, postID, owner)
	if err != nil {
		t.Fatalf("DeleteOwnPost failed: %v", err)
	}
	if !deleted {
		t.Fatal("owner could not delete own post")
	}
	if _, err := store.GetPost(ctx, postID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestTouchAuthorSeen_OnlyOwnPosts(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	alice := seedUser(t, store, "alice", "alice@example.com", StatusActive)
	bob := seedUser(t, store, "bob", "bob@example.com", StatusActive)
	alicePost1 := seedPost(t, store, alice, "a1")
	alicePost2 := seedPost(t, store, alice, "a2")
	bobPost := seedPost(t, store, bob, "b1")

	seen := time.Now().UTC().Truncate(time.Second)
	if err := store.TouchAuthorSeen(ctx, alice, seen); err != nil {
		t.Fatalf("TouchAuthorSeen failed: %v", err)
	}

	for _, id := range []int64{alicePost1, alicePost2} {
		post, err := store.GetPost(ctx, id)
		if err != nil {
			t.Fatalf("GetPost failed: %v", err)
		}
		if post.AuthorSeen == nil || !post.AuthorSeen.Equal(seen) {
			t.Errorf("post %d author_seen = %v, want %v", id, post.AuthorSeen, seen)
		}
	}

	post, err := store.GetPost(ctx, bobPost)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if post.AuthorSeen != nil {
		t.Errorf("bob's post was touched by alice's bookkeeping: %v", post.AuthorSeen)
	}
}

func TestTouchAuthorSeen_NoPosts(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	id := seedUser(t, store, "empty", "empty@example.com", StatusActive)
	if err := store.TouchAuthorSeen(context.Background(), id, time.Now()); err != nil {
		t.Errorf("TouchAuthorSeen with no posts should be a no-op, got %v", err)
	}
}

func TestListPostsByAuthor(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	alice := seedUser(t, store, "alice", "alice@example.com", StatusActive)
	bob := seedUser(t, store, "bob", "bob@example.com", StatusActive)
	seedPost(t, store, alice, "a1")
	seedPost(t, store, alice, "a2")
	seedPost(t, store, bob, "b1")

	posts, err := store.ListPostsByAuthor(ctx, alice)
	if err != nil {
		t.Fatalf("ListPostsByAuthor failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	for _, p := range posts {
		if p.AuthorID != alice {
			t.Errorf("post %d has author %d, want %d", p.ID, p.AuthorID, alice)
		}
	}
}

func TestBindsTreatMetacharactersAsData(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	authorID := seedUser(t, store, "mallory", "mallory@example.com", StatusActive)

	hostile := `"; drop table post; --`
	postID, err := store.CreatePost(ctx, &Post{
		AuthorID: authorID,
		Title:    hostile,
		Content:  `' OR '1'='1`,
		Created:  time.Now(),
	})
	if err != nil {
		t.Fatalf("CreatePost with hostile input failed: %v", err)
	}

	got, err := store.GetPost(ctx, postID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != hostile {
		t.Errorf("title round-trip mismatch: got %q", got.Title)
	}

	// The table must survive and other lookups keep working
	if _, err := store.GetUserByEmail(ctx, `x' OR '1'='1`); !errors.Is(err, ErrNotFound) {
		t.Errorf("hostile email lookup should find nothing, got %v", err)
	}
	if _, err := store.ListPosts(ctx); err != nil {
		t.Errorf("ListPosts after hostile insert failed: %v", err)
	}
}

func TestGetAccountInfo(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	id := seedUser(t, store, "Ada", "ada@example.com", StatusActive)
	seedPost(t, store, id, "p1")
	seedPost(t, store, id, "p2")

	info, err := store.GetAccountInfo(ctx, id)
	if err != nil {
		t.Fatalf("GetAccountInfo failed: %v", err)
	}
	if info.Name != "Ada" {
		t.Errorf("name mismatch: got %q", info.Name)
	}
	if info.Posts != 2 {
		t.Errorf("posts mismatch: got %d, want 2", info.Posts)
	}
	if info.LastSeen != nil {
		t.Errorf("expected nil last_seen before any gate passage, got %v", info.LastSeen)
	}

	seen := time.Now().UTC().Truncate(time.Second)
	if err := store.TouchAuthorSeen(ctx, id, seen); err != nil {
		t.Fatalf("TouchAuthorSeen failed: %v", err)
	}

	info, err = store.GetAccountInfo(ctx, id)
	if err != nil {
		t.Fatalf("GetAccountInfo failed: %v", err)
	}
	if info.LastSeen == nil || !info.LastSeen.Equal(seen) {
		t.Errorf("last_seen mismatch: got %v, want %v", info.LastSeen, seen)
	}
}

func TestDeleteUser_Cascades(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	id := seedUser(t, store, "gone", "gone@example.com", StatusActive)
	postID := seedPost(t, store, id, "orphan")
	if err := store.CreateSession(ctx, &Session{
		ID:        "sess-cascade",
		UserID:    id,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := store.DeleteUser(ctx, id); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	if _, err := store.GetUser(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for deleted user, got %v", err)
	}
	if _, err := store.GetPost(ctx, postID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected posts to cascade, got %v", err)
	}
	if _, err := store.GetSession(ctx, "sess-cascade"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected sessions to cascade, got %v", err)
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	if err := store.DeleteUser(context.Background(), 424242); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	userID := seedUser(t, store, "u", "u@example.com", StatusActive)

	session := &Session{
		ID:        "sess-1",
		UserID:    userID,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		ExpiresAt: time.Now().UTC().Add(time.Hour).Truncate(time.Second),
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.UserID != userID {
		t.Errorf("user_id mismatch: got %d, want %d", got.UserID, userID)
	}

	if err := store.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := store.GetSession(ctx, "sess-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestGetSession_Expired(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	userID := seedUser(t, store, "u", "u@example.com", StatusActive)

	if err := store.CreateSession(ctx, &Session{
		ID:        "sess-expired",
		UserID:    userID,
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if _, err := store.GetSession(ctx, "sess-expired"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for expired session, got %v", err)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	userID := seedUser(t, store, "u", "u@example.com", StatusActive)

	for _, s := range []*Session{
		{ID: "live", UserID: userID, CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)},
		{ID: "dead", UserID: userID, CreatedAt: time.Now().Add(-2 * time.Hour), ExpiresAt: time.Now().Add(-time.Hour)},
	} {
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	if err := store.DeleteExpiredSessions(ctx); err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}

	if _, err := store.GetSession(ctx, "live"); err != nil {
		t.Errorf("live session should survive the sweep: %v", err)
	}
}
