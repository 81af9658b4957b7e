// Package folio is a portfolio website engine built with Go, Echo, and templ.
// It serves project pages and an admin JSON API over content that lives in a
// local SQLite store, optionally synchronized with a remote backend.
//
// Users provide their own templ templates via the ViewFuncs struct; any
// page without a template is answered with JSON.
package folio

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/blob"
	"github.com/eringen/folio/localstore"
	"github.com/eringen/folio/logging"
	"github.com/eringen/folio/syncer"
	"github.com/eringen/folio/views"
)

// ViewFuncs holds user-provided templ components that the framework calls
// when rendering pages. Nil entries fall back to JSON responses.
type ViewFuncs struct {
	Home           func(page views.Home) templ.Component
	Project        func(page views.ProjectPage) templ.Component
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(page views.Admin) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

// App is the central folio application. It wires together the sync
// coordinator, cache, handlers, middleware, and user-provided templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Sync   *syncer.Coordinator
	Cache  *ProjectCache
	Views  ViewFuncs
	Logger *logging.Logger

	local        *localstore.Store
	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	staticDir    string
}

// New creates a new folio App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}
	if a.Logger == nil {
		a.Logger = logging.New(cfg.LogLevel)
	}

	return a
}

// OpenCoordinator opens the local store named by cfg and builds the sync
// coordinator over it. The caller closes the returned store.
func OpenCoordinator(cfg SiteConfig, logger *logging.Logger) (*syncer.Coordinator, *localstore.Store, error) {
	cfg.setDefaults()
	local, err := localstore.Open(cfg.DatabasePath, logger)
	if err != nil {
		return nil, nil, err
	}
	c := syncer.New(local, logger, syncer.WithBlobDeps(blob.Deps{
		Limit:      cfg.UploadLimit,
		UploadsDir: cfg.UploadsDir,
		UploadsURL: "/public/uploads",
	}))
	return c, local, nil
}

// Setup validates the configuration, opens the store unless a coordinator
// was supplied, and registers middleware and routes. Start calls it.
func (a *App) Setup() error {
	if a.Config.AdminPassword == "" {
		return fmt.Errorf("folio: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("folio: SessionSecret is required")
	}

	if a.Sync == nil {
		c, local, err := OpenCoordinator(a.Config, a.Logger)
		if err != nil {
			return fmt.Errorf("folio: init store: %w", err)
		}
		a.Sync = c
		a.local = local
	}

	if a.Config.SeedDefaults {
		if _, err := a.Sync.SeedDefaults(context.Background()); err != nil {
			a.Logger.Warn().Err(err).Msg("seeding default content failed")
		}
	}

	a.Cache = NewProjectCache(a.Sync, a.Config.GetCacheTTL())
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start sets the app up and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.Logger.Info().Str("addr", a.Config.Addr).Msg("listening")
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// User's static assets; disk mode uploads may live elsewhere.
	e.Static("/public/uploads", a.Config.UploadsDir)
	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	// Public routes
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/project/:id/", a.handleProject)
	e.GET("/api/projects/", a.handleAPIProjects)
	e.GET("/api/projects/:id/", a.handleAPIProject)
	e.GET("/api/settings/", a.handleAPISettings)

	// Admin pages
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)

	// Admin JSON API
	api := e.Group("/admin/api", requireAdmin)
	api.GET("/projects/", a.apiListProjects)
	api.POST("/projects/", a.apiSaveProject)
	api.GET("/projects/:id/", a.apiGetProject)
	api.PUT("/projects/:id/", a.apiSaveProject)
	api.DELETE("/projects/:id/", a.apiDeleteProject)
	api.POST("/projects/:id/sections/", a.apiAddSection)
	api.POST("/projects/:id/images/", a.apiUploadImage)
	api.POST("/projects/:id/videos/", a.apiUploadVideo)
	api.GET("/sections/", a.apiListSections)
	api.PUT("/sections/:id/", a.apiSaveSection)
	api.DELETE("/sections/:id/", a.apiDeleteSection)
	api.GET("/images/", a.apiListImages)
	api.PUT("/images/:id/", a.apiSaveImage)
	api.DELETE("/images/:id/", a.apiDeleteImage)
	api.GET("/videos/", a.apiListVideos)
	api.PUT("/videos/:id/", a.apiSaveVideo)
	api.DELETE("/videos/:id/", a.apiDeleteVideo)
	api.GET("/settings/", a.apiGetSettings)
	api.PUT("/settings/", a.apiSaveSettings)
	api.GET("/backend/", a.apiGetBackend)
	api.PUT("/backend/", a.apiSaveBackend)
	api.POST("/migrate/", a.apiMigrate)
	api.GET("/export/", a.apiExport)
	api.POST("/import/", a.apiImport)
	api.GET("/orphans/", a.apiOrphans)
}

// Close cleans up resources. Call this when the app is shutting down. A
// coordinator passed with WithCoordinator is left open.
func (a *App) Close() error {
	if a.local == nil {
		return nil
	}
	if err := a.Sync.Close(context.Background()); err != nil {
		a.Logger.Warn().Err(err).Msg("closing backend")
	}
	return a.local.Close()
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("folio: required environment variable %s is not set", key)
	}
	return v
}
