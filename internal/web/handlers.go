// ABOUTME: Gated post handlers: list, read, create, delete, export, my-info
// ABOUTME: Every caller-derived value reaches the store as a bind, never query text

package web

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2389/inkwell/internal/auth"
	"github.com/2389/inkwell/internal/store"
)

// postResponse is the JSON shape of a post in list and detail responses.
type postResponse struct {
	ID              int64  `json:"id"`
	AuthorFirstName string `json:"author_first_name"`
	AuthorLastName  string `json:"author_last_name"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	ContentHTML     string `json:"content_html,omitempty"`
	Date            string `json:"date"`
}

// infoResponse is the JSON shape of GET /my-info.
type infoResponse struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Posts    int     `json:"posts"`
	LastSeen *string `json:"last_seen"`
}

func encodeTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// pathID parses a numeric path segment. A non-numeric segment is a client
// error, not a query; it never reaches the store.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// handleListPosts handles GET /.
func (h *Handlers) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.ListPosts(r.Context())
	if err != nil {
		h.logger.Error("listing posts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, postResponse{
			ID:              p.ID,
			AuthorFirstName: p.AuthorFirstName,
			AuthorLastName:  p.AuthorLastName,
			Title:           p.Title,
			Content:         p.Content,
			Date:            p.Created.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, envelope{"result": "ok", "posts": out})
}

// handleGetPost handles GET /post/{post_id}.
func (h *Handlers) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "post_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	post, err := h.store.GetPost(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.logger.Error("reading post failed", "post_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, envelope{"result": "ok", "post": postResponse{
		ID:              post.ID,
		AuthorFirstName: post.AuthorFirstName,
		AuthorLastName:  post.AuthorLastName,
		Title:           post.Title,
		Content:         post.Content,
		ContentHTML:     h.renderMarkdown(post.Content),
		Date:            post.Created.UTC().Format(time.RFC3339),
	}})
}

// handleCreatePost handles POST /new-post. The author is always the gated
// caller; the form cannot attribute a post to someone else.
func (h *Handlers) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustIdentity(r.Context())

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	title := r.PostFormValue("title")
	content := r.PostFormValue("content")
	if title == "" || content == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	postID, err := h.store.CreatePost(r.Context(), &store.Post{
		AuthorID: userID,
		Title:    title,
		Content:  content,
		Created:  time.Now(),
	})
	if err != nil {
		h.logger.Error("creating post failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("post created", "post_id", postID, "user_id", userID)
	writeJSON(w, http.StatusOK, envelope{"result": "ok", "post_id": postID})
}

// handleDeletePost handles POST /delete-my-post/{post_id}. Deletion is
// scoped to the caller's own posts; a guessed id under another author
// reports not found.
func (h *Handlers) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustIdentity(r.Context())

	id, ok := pathID(r, "post_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	deleted, err := h.store.DeleteOwnPost(r.Context(), id, userID)
	if err != nil {
		h.logger.Error("deleting post failed", "post_id", id, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	h.logger.Info("post deleted", "post_id", id, "user_id", userID)
	writeJSON(w, http.StatusOK, envelope{"result": "ok"})
}

// handleExportPosts handles GET /export-my-posts.csv. The author query
// parameter is bound, never interpolated; when absent it defaults to the
// caller.
func (h *Handlers) handleExportPosts(w http.ResponseWriter, r *http.Request) {
	authorID := auth.MustIdentity(r.Context())

	if raw := r.URL.Query().Get("author"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid author id")
			return
		}
		authorID = id
	}

	posts, err := h.store.ListPostsByAuthor(r.Context(), authorID)
	if err != nil {
		h.logger.Error("exporting posts failed", "author_id", authorID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="my-posts.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "title", "content", "created"})
	for _, p := range posts {
		_ = cw.Write([]string{
			strconv.FormatInt(p.ID, 10),
			p.Title,
			p.Content,
			p.Created.UTC().Format(time.RFC3339),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.Error("writing csv failed", "author_id", authorID, "error", err)
	}
}

// handleMyInfo handles GET /my-info.
func (h *Handlers) handleMyInfo(w http.ResponseWriter, r *http.Request) {
	userID := auth.MustIdentity(r.Context())

	info, err := h.store.GetAccountInfo(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.logger.Error("reading account info failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, envelope{"result": "ok", "info": infoResponse{
		ID:       info.ID,
		Name:     info.Name,
		Email:    info.Email,
		Posts:    info.Posts,
		LastSeen: encodeTimePtr(info.LastSeen),
	}})
}
