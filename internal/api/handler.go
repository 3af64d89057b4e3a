// Package api exposes the blog over HTTP: users and tokens, posts, and
// image uploads.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ayush/blog-api/backend/internal/auth"
	"github.com/ayush/blog-api/backend/internal/images"
	"github.com/ayush/blog-api/backend/internal/models"
	"github.com/ayush/blog-api/backend/internal/store"
)

// Accounts registers users and exchanges credentials for tokens.
type Accounts interface {
	Register(ctx context.Context, email, username, password string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.Token, error)
	CurrentUser(ctx context.Context, token string) (*models.User, error)
}

// PostStore defines the interface for post persistence.
type PostStore interface {
	ListPosts(ctx context.Context, q models.PostQuery) ([]models.Post, int, error)
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	CreatePost(ctx context.Context, in models.PostInput, authorID int64) (*models.Post, error)
	UpdatePost(ctx context.Context, id, actorID int64, patch models.PostPatch) (*models.Post, error)
	DeletePost(ctx context.Context, id, actorID int64) (*models.Post, error)
}

// Uploader ingests an uploaded image and returns its public URL.
type Uploader interface {
	Ingest(ctx context.Context, filename string, r io.Reader) (string, error)
	MaxBytes() int64
}

// ImageSource serves stored images back.
type ImageSource interface {
	Open(ctx context.Context, name string) (io.ReadCloser, string, error)
}

// Handler holds the HTTP handlers.
type Handler struct {
	accounts Accounts
	posts    PostStore
	uploads  Uploader
	images   ImageSource
	log      *logrus.Logger
}

func NewHandler(accounts Accounts, posts PostStore, uploads Uploader, images ImageSource, log *logrus.Logger) *Handler {
	return &Handler{accounts: accounts, posts: posts, uploads: uploads, images: images, log: log}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and reported as a 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var imgErr *images.Error
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrForbidden):
		writeDetail(w, http.StatusForbidden, "Not authorized")
	case errors.Is(err, store.ErrConflict):
		writeDetail(w, http.StatusConflict, "Email or username already registered")
	case errors.Is(err, auth.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
	case errors.Is(err, auth.ErrInvalidInput):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &imgErr) && imgErr.Kind == images.BadRequest:
		writeDetail(w, http.StatusBadRequest, imgErr.Msg)
	case errors.As(err, &imgErr):
		h.log.WithError(err).WithField("path", r.URL.Path).Error("image upload failed")
		writeDetail(w, http.StatusInternalServerError, imgErr.Error())
	default:
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}
