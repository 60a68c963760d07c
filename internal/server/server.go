// Package server exposes the visualization pipeline over HTTP. It handles
// the transport concerns the core packages stay out of: uploads and their
// lifecycle, request decoding, and error-to-status mapping.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/liuji1031/visualize-architecture/pkg/cache"
	apperrors "github.com/liuji1031/visualize-architecture/pkg/errors"
	"github.com/liuji1031/visualize-architecture/pkg/preset"
	"github.com/liuji1031/visualize-architecture/pkg/settings"
)

// Server wires the HTTP API together.
type Server struct {
	router   chi.Router
	logger   *log.Logger
	uploads  *UploadManager
	presets  preset.Store
	cache    cache.Cache
	keyer    cache.Keyer
	settings settings.Settings
}

// New creates a server. presets and c may be nil to disable those
// features.
func New(s settings.Settings, uploads *UploadManager, presets preset.Store, c cache.Cache, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	srv := &Server{
		logger:   logger,
		uploads:  uploads,
		presets:  presets,
		cache:    c,
		keyer:    cache.NewDefaultKeyer(),
		settings: s,
	}
	srv.router = srv.routes()
	return srv
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/config/parse", s.handleParse)
		r.Post("/config/check-references", s.handleCheckReferences)
		r.Post("/config/render", s.handleRender)
		r.Post("/config/fetch", s.handleFetchURL)

		r.Route("/uploads", func(r chi.Router) {
			r.Post("/", s.handleUploadFile)
			r.Post("/folder", s.handleUploadFolder)
			r.Delete("/{id}", s.handleReleaseUpload)
		})

		r.Route("/presets", func(r chi.Router) {
			r.Get("/", s.handleListPresets)
			r.Get("/{name}", s.handleGetPreset)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps structured error codes to HTTP status codes.
func statusFor(err error) int {
	var nfe *apperrors.NotFoundError
	if errors.As(err, &nfe) {
		return http.StatusNotFound
	}
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeInvalidConfig,
		apperrors.ErrCodeReferenceResolution, apperrors.ErrCodeUnsupportedExpression:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound, apperrors.ErrCodeUploadNotFound,
		apperrors.ErrCodePresetNotFound, apperrors.ErrCodeConfigFileNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeNetwork, apperrors.ErrCodeTimeout:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
