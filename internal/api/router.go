package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/meur/gearforge/internal/gear"
	"github.com/meur/gearforge/internal/logging"
)

// Server holds the HTTP server dependencies
type Server struct {
	manager *gear.Manager
	logger  *zap.Logger
	origins []string
	router  chi.Router
}

// New creates a new API server
func New(manager *gear.Manager, logger *zap.Logger, allowedOrigins []string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		manager: manager,
		logger:  logger,
		origins: allowedOrigins,
		router:  chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(logging.RequestLogger(s.logger))
	s.router.Use(s.recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		// Reference data
		r.Get("/classes", s.handleGetClasses)
		r.Get("/equipment-types", s.handleGetEquipmentTypes)
		r.Get("/equipment-tags", s.handleGetEquipmentTags)
		r.Get("/attributes", s.handleGetAttributes)

		// Equipment
		r.Post("/equipment/add", s.handleAddEquipment)
		r.Post("/equipment/delete", s.handleDeleteEquipment)
		r.Get("/equipment/list", s.handleListEquipment)

		// Builds
		r.Post("/build/configure", s.handleConfigureBuild)
		r.Post("/build/save", s.handleSaveBuild)
		r.Get("/build/list", s.handleListBuilds)
		r.Post("/build/delete", s.handleDeleteBuild)
	})

	// Health check
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "接口不存在")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "不支持的請求方法")
	})
}

// recoverer turns panics into the JSON 500 envelope
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("panic in handler",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"))
				respondError(w, http.StatusInternalServerError, "服務器內部錯誤")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// --- Response helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"success": false, "error": message})
}

func respondSuccess(w http.ResponseWriter, fields map[string]interface{}) {
	body := map[string]interface{}{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	respondJSON(w, http.StatusOK, body)
}

// decodeJSON requires a JSON content type and decodes the body into v
func decodeJSON(r *http.Request, v interface{}) error {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		return errNotJSON
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

var errNotJSON = errors.New("請求必須是 JSON 格式")

// respondDecodeError answers a failed decodeJSON
func respondDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errNotJSON) {
		respondError(w, http.StatusBadRequest, errNotJSON.Error())
		return
	}
	respondError(w, http.StatusBadRequest, "請求格式錯誤")
}

// respondManagerError maps gear sentinel errors to status codes
func (s *Server) respondManagerError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, gear.ErrInvalid), errors.Is(err, gear.ErrDuplicate):
		respondError(w, http.StatusBadRequest, gear.Message(err))
	case errors.Is(err, gear.ErrNotFound):
		respondError(w, http.StatusNotFound, gear.Message(err))
	default:
		s.logger.Error(op+" failed", zap.String("path", r.URL.Path), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "服務器錯誤: "+err.Error())
	}
}
