// Package web is the server-rendered front-end. It reaches the backend only
// through the HTTP client and renders every page with html/template.
package web

import (
	"bytes"
	"context"
	"errors"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/meur/gearforge/internal/client"
	"github.com/meur/gearforge/internal/config"
	"github.com/meur/gearforge/internal/logging"
	"github.com/meur/gearforge/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Backend is the subset of the API client the front-end uses
type Backend interface {
	Classes(ctx context.Context) ([]models.ClassOption, error)
	EquipmentTypes(ctx context.Context) ([]string, error)
	EquipmentTags(ctx context.Context) ([]models.TagConfig, error)
	Attributes(ctx context.Context) ([]string, error)

	AddEquipment(ctx context.Context, req models.EquipmentAdd) (*models.EquipmentView, error)
	DeleteEquipment(ctx context.Context, class, id string) (string, error)
	ListEquipment(ctx context.Context, class string) ([]models.EquipmentView, error)
	ListAllEquipment(ctx context.Context) (map[string][]models.EquipmentView, error)

	ConfigureBuild(ctx context.Context, req models.BuildConfigure) (*client.BuildResult, error)
	SaveBuild(ctx context.Context, req models.BuildSave) (*models.Build, string, error)
	ListBuilds(ctx context.Context, class string) ([]models.Build, error)
	FindBuild(ctx context.Context, id string) (*models.Build, error)
	DeleteBuild(ctx context.Context, id string) (string, error)
}

// Server holds the front-end dependencies
type Server struct {
	backend      Backend
	logger       *zap.Logger
	dismissAfter time.Duration
	pages        map[string]*template.Template
	state        *buildState
	refs         referenceCache
	router       chi.Router
}

// New creates the front-end server
func New(backend Backend, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		backend:      backend,
		logger:       logger,
		dismissAfter: cfg.GetNotificationTimeout(),
		pages:        pages,
		state:        newBuildState(),
		router:       chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.Web.StaticDir)

	return s, nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(logging.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(withSession)
	s.router.Use(middleware.Compress(5, "text/html", "text/css"))
}

func (s *Server) setupRoutes(staticDir string) {
	s.router.Get("/", s.handleDashboard)
	s.router.Post("/equipment", s.handleAddEquipment)

	s.router.Get("/inventory", s.handleInventory)
	s.router.Post("/inventory/delete", s.handleDeleteEquipment)

	s.router.Post("/build/configure", s.handleConfigure)
	s.router.Post("/build/save", s.handleSave)

	s.router.Get("/builds", s.handleBuilds)
	s.router.Get("/builds/{id}", s.handleViewBuild)
	s.router.Post("/builds/{id}/load", s.handleLoadBuild)
	s.router.Post("/builds/{id}/delete", s.handleDeleteBuild)

	s.router.Get("/fragments/loading", s.handleLoading)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	var root http.FileSystem
	if staticDir != "" {
		root = http.Dir(staticDir)
	} else {
		sub, _ := fs.Sub(staticFS, "static")
		root = http.FS(sub)
	}
	FileServer(s.router, "/static", root)
}

// FileServer conveniently sets up a http.FileServer handler to serve
// static files from a http.FileSystem.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit URL parameters.")
	}

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", http.StatusMovedPermanently).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, func(w http.ResponseWriter, req *http.Request) {
		rctx := chi.RouteContext(req.Context())
		pathPrefix := strings.TrimSuffix(rctx.RoutePattern(), "/*")
		fs := http.StripPrefix(pathPrefix, http.FileServer(root))
		fs.ServeHTTP(w, req)
	})
}

// page is the data every template receives
type page struct {
	Title  string
	Notice *Notification
	Data   interface{}
}

// render executes a page template inside the layout
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("unknown page template", zap.String("page", name))
		http.Error(w, "頁面不存在", http.StatusInternalServerError)
		return
	}
	if p.Notice == nil {
		p.Notice = s.notificationFrom(r)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", p); err != nil {
		s.logger.Error("failed to render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "頁面渲染失敗", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// backendError logs a failed backend call and returns its user-facing message
func (s *Server) backendError(r *http.Request, op string, err error) string {
	fields := []zap.Field{zap.String("op", op), zap.String("request_id", middleware.GetReqID(r.Context()))}
	var netErr *client.NetworkError
	if errors.As(err, &netErr) {
		fields = append(fields, zap.String("detail", netErr.Detail()))
	} else {
		fields = append(fields, zap.Error(err))
	}
	s.logger.Warn("backend call failed", fields...)
	return client.Message(err)
}
