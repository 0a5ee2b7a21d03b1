// Package sitekit assembles static web pages from a library of reusable
// section templates, a site profile and per-page specifications.
//
// Each page is assembled independently: every section template is resolved,
// its parameters are layered (template default, then profile global, then
// page override), placeholders are substituted, and the page's internal links
// are checked against the site's routes. Pages that fail are rejected with
// every error found; the others are accepted and emitted.
//
// The preview server (App) serves the last build, receives form submissions
// through named handlers and keeps a build history in SQLite.
package sitekit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/sitekit/views"
)

// ViewFuncs holds the components the server renders. Any nil field falls
// back to the default views.
type ViewFuncs struct {
	Page             func(profile *SiteProfile, m *PageModule) templ.Component
	AdminLogin       func(site views.SiteInfo, showError bool, csrfToken string) templ.Component
	AdminDashboard   func(d views.Dashboard) templ.Component
	AdminBuild       func(d views.BuildDetail) templ.Component
	AdminSubmissions func(d views.Submissions) templ.Component
	NotFound         func() templ.Component
	ServerError      func() templ.Component
}

func (v *ViewFuncs) setDefaults() {
	if v.Page == nil {
		v.Page = Document
	}
	if v.AdminLogin == nil {
		v.AdminLogin = views.Login
	}
	if v.AdminDashboard == nil {
		v.AdminDashboard = views.DashboardPage
	}
	if v.AdminBuild == nil {
		v.AdminBuild = views.BuildPage
	}
	if v.AdminSubmissions == nil {
		v.AdminSubmissions = views.SubmissionsPage
	}
	if v.NotFound == nil {
		v.NotFound = views.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = views.ServerError
	}
}

// App is the preview server. It wires together the project cache, the store,
// form handlers, middleware and views.
type App struct {
	Config ServeConfig
	Echo   *echo.Echo
	Store  *Store
	Cache  *ManifestCache
	Views  ViewFuncs
	Logger *zap.Logger

	handlers      map[string]Handler
	baseLibrary   *Library
	loginLimiter  *RateLimiter
	submitLimiter *RateLimiter
	watcher       *Watcher
	customRoutes  []func(*App)
}

// New creates an App serving the project in cfg.SiteDir.
func New(cfg ServeConfig, vf ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()
	vf.setDefaults()

	e := echo.New()
	e.HideBanner = true
	a := &App{
		Config:   cfg,
		Echo:     e,
		Views:    vf,
		Logger:   zap.NewNop(),
		handlers: make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init opens the store, builds the project once and registers middleware
// and routes. Start calls it; tests call it directly and drive a.Echo.
func (a *App) Init(ctx context.Context) error {
	if a.Config.AdminPassword == "" {
		return errors.New("sitekit: AdminPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return errors.New("sitekit: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("sitekit: init store: %w", err)
	}
	a.Store = store

	a.Cache = NewManifestCache(
		ProjectLoader(a.Config.SiteDir, a.baseLibrary, WithWorkers(a.Config.Workers), WithLogger(a.Logger)),
		a.Config.ManifestTTL,
	)
	a.Cache.OnReload(a.recordBuild)

	a.loginLimiter = NewRateLimiter(5, time.Minute)
	a.submitLimiter = NewRateLimiter(a.Config.SubmitLimit, time.Minute)

	// A broken project still starts the server; the dashboard shows the error.
	if _, err := a.Cache.Get(ctx); err != nil {
		a.Logger.Error("initial build failed", zap.Error(err))
	}

	if a.Config.Watch {
		w, err := NewWatcher(a.Config.SiteDir, func([]string) { a.Cache.Invalidate() }, a.Logger)
		if err != nil {
			return fmt.Errorf("sitekit: init watcher: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		a.watcher = w
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app and serves until the server is shut down.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}
	a.Logger.Info("serving", zap.String("addr", a.Config.Addr), zap.String("site", a.Config.SiteDir))
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully and releases its resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	return errors.Join(err, a.Close())
}

func (a *App) setupRoutes() {
	e := a.Echo

	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET(FormsScript, echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))

	e.Static("/"+AssetsDir, a.Config.SiteDir+"/"+AssetsDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)

	e.POST("/forms/:page/:index/", a.handleFormSubmit)

	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	e.POST("/admin/rebuild/", a.handleAdminRebuild)
	e.GET("/admin/builds/:id/", a.handleAdminBuild)
	e.GET("/admin/submissions/", a.handleAdminSubmissions)
	e.POST("/admin/submissions/:id/delete/", a.handleAdminDeleteSubmission)

	e.GET("/*", a.handlePage)
}

// recordBuild stores the report of a fresh build when recording is on.
func (a *App) recordBuild(snap *Snapshot) {
	if !a.Config.RecordBuilds || a.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Store.SaveBuild(ctx, NewReport(snap.Manifest)); err != nil {
		a.Logger.Error("record build", zap.Error(err))
		return
	}
	if _, err := a.Store.PruneBuilds(ctx, snap.Manifest.Site, a.Config.KeepBuilds); err != nil {
		a.Logger.Warn("prune builds", zap.Error(err))
	}
}

// handler returns the form handler registered under name. Unregistered names
// are relayed when a relay URL is configured and stored otherwise.
func (a *App) handler(name string) Handler {
	if h, ok := a.handlers[name]; ok {
		return h
	}
	if a.Config.FormRelayURL != "" {
		return RelaySubmitter(BuildURL(a.Config.FormRelayURL, name), nil)
	}
	return StoreSubmitter(a.Store, a.Config.FormSuccess)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.submitLimiter != nil {
		a.submitLimiter.Stop()
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
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
		log.Fatalf("sitekit: required environment variable %s is not set", key)
	}
	return v
}
