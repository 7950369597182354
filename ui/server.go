package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"rubik/app"
	"rubik/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html static
var embeddedFiles embed.FS

// Services are the application services the web UI drives
type Services struct {
	Auth         *app.AuthService
	Registration *app.RegistrationService
	Approval     *app.ApprovalService
	Profile      *app.ProfileService
	Search       *app.SearchService
}

// Options holds web server settings
type Options struct {
	CookieName   string
	CookieSecure bool
	CSRFEnabled  bool

	// MediaRoot is served under /media when set
	MediaRoot string
}

// Server represents the web server for the rubik UI
type Server struct {
	router    *gin.Engine
	services  Services
	sessions  *session.Manager
	opts      Options
	templates map[string]*template.Template
	logger    *zap.Logger
}

// NewServer parses the embedded templates and builds the router
func NewServer(services Services, sessions *session.Manager, opts Options, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CookieName == "" {
		opts.CookieName = "sessionid"
	}

	templates, err := parseTemplates(embeddedFiles)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:    gin.New(),
		services:  services,
		sessions:  sessions,
		opts:      opts,
		templates: templates,
		logger:    logger,
	}

	if err := s.setupMiddleware(); err != nil {
		return nil, err
	}
	s.setupRoutes()
	return s, nil
}

// ServeHTTP lets the server be mounted on an http.Server or driven by httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	r := s.router

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/static/favicon.ico")
	})

	// Account lifecycle
	r.GET("/register/", s.handleRegisterForm)
	r.POST("/register/", s.handleRegister)
	r.GET("/pending_approval/", s.handlePendingApproval)
	r.GET("/login/", s.handleLoginForm)
	r.POST("/login/", s.handleLogin)
	r.GET("/logout/", s.handleLogout)
	r.POST("/logout/", s.handleLogout)

	authed := r.Group("/", s.loginRequired())
	authed.GET("/", s.handleHome)
	authed.GET("/login_redirect/", s.handleLoginRedirect)
	authed.GET("/search/", s.handleSearch)
	authed.POST("/search/", s.handleSearch)
	authed.GET("/profile/", s.handleProfile)
	authed.POST("/profile/", s.handleProfileUpdate)

	// Staff approval queue; approve/reject keep their GET contract
	staff := r.Group("/", s.staffRequired())
	staff.GET("/admin_dashboard/", s.handleDashboard)
	staff.GET("/admin_dashboard/export/", s.handleDashboardExport)
	staff.GET("/approve/:id/", s.handleApprove)
	staff.POST("/approve/:id/", s.handleApprove)
	staff.GET("/reject/:id/", s.handleReject)
	staff.POST("/reject/:id/", s.handleReject)

	r.NoRoute(func(c *gin.Context) {
		s.renderError(c, http.StatusNotFound, "Page not found")
	})
}

// setupMiddleware configures Gin middleware and the static file mounts
func (s *Server) setupMiddleware() error {
	s.router.Use(
		s.requestLogger(),
		s.recovery(),
		s.sessionMiddleware(),
		s.csrfMiddleware(),
	)

	staticFS, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		return fmt.Errorf("failed to open static filesystem: %w", err)
	}
	s.router.StaticFS("/static", http.FS(staticFS))

	if s.opts.MediaRoot != "" {
		s.router.Static("/media", s.opts.MediaRoot)
	}
	return nil
}
