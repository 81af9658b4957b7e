package folio

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/eringen/folio/logging"
	"github.com/eringen/folio/syncer"
	"github.com/eringen/folio/views"
)

// SiteConfig holds all configuration for a folio site.
type SiteConfig struct {
	Name        string `toml:"name"`        // Site name (default "Portfolio")
	URL         string `toml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `toml:"description"` // Site description for RSS and meta tags
	Author      string `toml:"author"`      // Author name for JSON-LD

	Addr         string `toml:"addr"`         // Listen address (default ":3000")
	DatabasePath string `toml:"database"`     // SQLite path (default "data/folio.db")
	UploadsDir   string `toml:"uploads_dir"`  // Disk blob mode directory (default "public/uploads")
	UploadLimit  int64  `toml:"upload_limit"` // Largest accepted upload in bytes (default 25 MiB)
	LogLevel     string `toml:"log_level"`    // debug, info, warn, error (default "info")

	AdminPassword string `toml:"admin_password"` // Required: admin login password
	SessionSecret string `toml:"session_secret"` // Required: session encryption secret
	CookieSecure  bool   `toml:"cookie_secure"`  // Set true for HTTPS

	CacheTTL     string `toml:"cache_ttl"`     // Public page cache TTL (default "5m")
	SeedDefaults bool   `toml:"seed_defaults"` // Write placeholder sections into an empty store
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Portfolio"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/folio.db"
	}
	if c.UploadsDir == "" {
		c.UploadsDir = "public/uploads"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CacheTTL == "" {
		c.CacheTTL = "5m"
	}
}

// GetCacheTTL parses the cache TTL, falling back to five minutes.
func (c SiteConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d < 0 {
		return 5 * time.Minute
	}
	return d
}

func (c SiteConfig) view() views.SiteConfig {
	return views.SiteConfig{Name: c.Name, URL: c.URL, Description: c.Description, Author: c.Author}
}

// LoadConfig reads a TOML file, when path names one that exists, and then
// applies the FOLIO_* environment overrides. Defaults fill the rest.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}
	applyEnvOverrides(&cfg)
	cfg.setDefaults()
	return cfg, nil
}

func applyEnvOverrides(cfg *SiteConfig) {
	cfg.Name = EnvOr("FOLIO_SITE_NAME", cfg.Name)
	cfg.URL = EnvOr("FOLIO_SITE_URL", cfg.URL)
	cfg.Description = EnvOr("FOLIO_SITE_DESCRIPTION", cfg.Description)
	cfg.Author = EnvOr("FOLIO_SITE_AUTHOR", cfg.Author)
	cfg.Addr = EnvOr("FOLIO_ADDR", cfg.Addr)
	cfg.DatabasePath = EnvOr("FOLIO_DATABASE", cfg.DatabasePath)
	cfg.UploadsDir = EnvOr("FOLIO_UPLOADS_DIR", cfg.UploadsDir)
	cfg.LogLevel = EnvOr("FOLIO_LOG_LEVEL", cfg.LogLevel)
	cfg.AdminPassword = EnvOr("FOLIO_ADMIN_PASSWORD", cfg.AdminPassword)
	cfg.SessionSecret = EnvOr("FOLIO_SESSION_SECRET", cfg.SessionSecret)
	cfg.CacheTTL = EnvOr("FOLIO_CACHE_TTL", cfg.CacheTTL)
	if v := os.Getenv("FOLIO_UPLOAD_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.UploadLimit = n
		}
	}
	if v := os.Getenv("FOLIO_COOKIE_SECURE"); v != "" {
		cfg.CookieSecure, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("FOLIO_SEED_DEFAULTS"); v != "" {
		cfg.SeedDefaults, _ = strconv.ParseBool(v)
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

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger replaces the logger built from SiteConfig.LogLevel.
func WithLogger(logger *logging.Logger) Option {
	return func(a *App) {
		a.Logger = logger
	}
}

// WithCoordinator uses an existing coordinator instead of opening the
// database named by SiteConfig.DatabasePath. The caller keeps ownership.
func WithCoordinator(c *syncer.Coordinator) Option {
	return func(a *App) {
		a.Sync = c
	}
}
