package sitekit

import (
	"time"

	"go.uber.org/zap"
)

// ServeConfig holds all configuration for the preview server.
type ServeConfig struct {
	SiteDir string // Project directory (default ".")
	URL     string // Public URL used when the profile has no baseURL (default "http://localhost:3000")
	Addr    string // Listen address (default ":3000")

	DatabasePath  string // SQLite path (default "<SiteDir>/.sitekit/sitekit.db")
	RecordBuilds  bool   // Record every rebuild in the store
	KeepBuilds    int    // Recorded builds kept per site (default 50)
	FormRelayURL  string // Relay unregistered form handlers to <FormRelayURL>/<handler>
	FormSuccess   string // Message returned by the store handler (default "Thanks! We received your message.")
	SubmitLimit   int    // Form submissions per IP per minute (default 10)
	AdminPassword string // Required: admin login password
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	ManifestTTL time.Duration // Rebuild the cached manifest after this long; zero keeps it until invalidated
	Workers     int           // Pages assembled concurrently (default GOMAXPROCS)
	Watch       bool          // Rebuild when project files change
}

func (c *ServeConfig) setDefaults() {
	if c.SiteDir == "" {
		c.SiteDir = "."
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = c.SiteDir + "/.sitekit/sitekit.db"
	}
	if c.KeepBuilds == 0 {
		c.KeepBuilds = 50
	}
	if c.FormSuccess == "" {
		c.FormSuccess = "Thanks! We received your message."
	}
	if c.SubmitLimit == 0 {
		c.SubmitLimit = 10
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithHandler registers a form handler under name. Sections refer to
// handlers by this name.
func WithHandler(name string, h Handler) Option {
	return func(a *App) {
		a.handlers[name] = h
	}
}

// WithLibrary sets the base section library projects are layered on. The
// default is the built-in sections.
func WithLibrary(lib *Library) Option {
	return func(a *App) {
		a.baseLibrary = lib
	}
}

// WithAppLogger sets the logger of the server.
func WithAppLogger(l *zap.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.Logger = l
		}
	}
}
