package folio

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/syncer"
)

// ProjectCache is an in-memory cache of what the public pages read: the
// project list, the public site settings and rendered project content.
// Admin writes invalidate it.
type ProjectCache struct {
	mu       sync.RWMutex
	projects []content.Project
	settings content.SiteSettings
	pages    map[string]syncer.Page
	// gen counts invalidations; a page built under an older gen is dropped.
	gen      uint64
	fetched  time.Time
	ttl      time.Duration
	sync     *syncer.Coordinator
}

// NewProjectCache creates a ProjectCache backed by the given coordinator.
// A zero ttl disables caching.
func NewProjectCache(s *syncer.Coordinator, ttl time.Duration) *ProjectCache {
	return &ProjectCache{sync: s, ttl: ttl}
}

func (c *ProjectCache) valid() bool {
	return c.projects != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *ProjectCache) Invalidate() {
	c.mu.Lock()
	c.projects = nil
	c.pages = nil
	c.gen++
	c.mu.Unlock()
}

func (c *ProjectCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	projects, err := c.sync.GetProjects(ctx)
	if err != nil {
		return err
	}
	settings, err := c.sync.GetSiteSettings(ctx)
	if err != nil {
		return err
	}
	c.projects = projects
	c.settings = settings.Public()
	c.pages = map[string]syncer.Page{}
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns the cached projects and settings after making sure
// the cache is fresh. It tries a read lock first and only takes the write
// lock when a reload is needed.
func (c *ProjectCache) ensureLoaded(ctx context.Context) ([]content.Project, content.SiteSettings, error) {
	c.mu.RLock()
	if c.valid() {
		projects, settings := c.projects, c.settings
		c.mu.RUnlock()
		return projects, settings, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, content.SiteSettings{}, err
	}
	return c.projects, c.settings, nil
}

// ListProjects returns the projects in display order.
func (c *ProjectCache) ListProjects(ctx context.Context) ([]content.Project, error) {
	projects, _, err := c.ensureLoaded(ctx)
	return projects, err
}

// Settings returns the site settings without credentials.
func (c *ProjectCache) Settings(ctx context.Context) (content.SiteSettings, error) {
	_, settings, err := c.ensureLoaded(ctx)
	return settings, err
}

// Page returns a project with its content. Unknown ids yield
// content.ErrNotFound.
func (c *ProjectCache) Page(ctx context.Context, id string) (syncer.Page, error) {
	if _, _, err := c.ensureLoaded(ctx); err != nil {
		return syncer.Page{}, err
	}
	c.mu.RLock()
	page, ok := c.pages[id]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		return page, nil
	}

	page, err := c.sync.ProjectContent(ctx, id)
	if err != nil {
		return syncer.Page{}, err
	}
	c.storePage(id, page, gen)
	return page, nil
}

// storePage keeps page unless the cache was invalidated after gen.
func (c *ProjectCache) storePage(id string, page syncer.Page, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pages != nil && c.gen == gen {
		c.pages[id] = page
	}
}
