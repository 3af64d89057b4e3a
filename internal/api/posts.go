package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ayush/blog-api/backend/internal/middleware"
	"github.com/ayush/blog-api/backend/internal/models"
	"github.com/ayush/blog-api/backend/internal/store"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// queryInt parses a non-negative integer query parameter.
func queryInt(r *http.Request, key string, fallback int) (int, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func postID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// ListPosts returns a page of posts, optionally filtered by a search term.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	skip, ok := queryInt(r, "skip", 0)
	if !ok {
		writeDetail(w, http.StatusBadRequest, "skip must be a non-negative integer")
		return
	}
	limit, ok := queryInt(r, "limit", defaultLimit)
	if !ok {
		writeDetail(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	q := models.PostQuery{Skip: skip, Limit: limit, Search: r.URL.Query().Get("search")}

	posts, total, err := h.posts.ListPosts(r.Context(), q)
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"skip": q.Skip, "limit": q.Limit, "search": q.Search,
		}).Error("error fetching posts")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, models.PostPage{Items: posts, Total: total})
}

// GetPost returns a single post with its author.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	post, err := h.posts.GetPost(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if post == nil {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// CreatePost stores a post authored by the caller.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	// Title and content must be present; any string value is accepted.
	var body struct {
		Title    *string `json:"title"`
		Content  *string `json:"content"`
		ImageURL *string `json:"image_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Title == nil || body.Content == nil {
		writeDetail(w, http.StatusBadRequest, "title and content are required")
		return
	}
	in := models.PostInput{Title: *body.Title, Content: *body.Content, ImageURL: body.ImageURL}

	post, err := h.posts.CreatePost(r.Context(), in, user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// UpdatePost applies a partial update. Only the author may update a post.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	id, ok := postID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}

	var patch models.PostPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.posts.UpdatePost(r.Context(), id, user.ID, patch)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Post not found")
	case errors.Is(err, store.ErrForbidden):
		writeDetail(w, http.StatusForbidden, "Not authorized to update this post")
	case err != nil:
		h.writeError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, post)
	}
}

// DeletePost removes a post. Only the author may delete it.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	id, ok := postID(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Post not found")
		return
	}

	_, err := h.posts.DeletePost(r.Context(), id, user.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Post not found")
	case errors.Is(err, store.ErrForbidden):
		writeDetail(w, http.StatusForbidden, "Not authorized to delete this post")
	case err != nil:
		h.writeError(w, r, err)
	default:
		h.log.WithFields(logrus.Fields{"post_id": id, "user_id": user.ID}).Info("post deleted")
		w.WriteHeader(http.StatusNoContent)
	}
}
