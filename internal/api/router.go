package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ayush/blog-api/backend/internal/middleware"
)

// RouterOptions carries the cross-cutting settings of the router.
type RouterOptions struct {
	CORSOrigins     []string
	UploadURLPrefix string
	Limiter         *middleware.Limiter
}

// NewRouter wires every route onto a chi router.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	if opts.UploadURLPrefix == "" {
		opts.UploadURLPrefix = "/uploads/images"
	}
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(h.log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	requireAuth := middleware.RequireAuth(h.accounts, h.log)

	r.Get("/", h.Root)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes (public, rate limited)
	r.With(opts.Limiter.Limit("register")).Post("/register", h.Register)
	r.With(opts.Limiter.Limit("token")).Post("/token", h.Token)
	r.With(requireAuth).Get("/users/me", h.Me)

	r.Route("/posts", func(r chi.Router) {
		r.Get("/", h.ListPosts)
		r.Get("/{id}", h.GetPost)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", h.CreatePost)
			r.Put("/{id}", h.UpdatePost)
			r.Delete("/{id}", h.DeletePost)
		})
	})

	r.With(requireAuth).Post("/images/upload", h.UploadImage)
	r.Get(opts.UploadURLPrefix+"/{name}", h.ServeImage)

	return r
}
