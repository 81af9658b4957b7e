package folio

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/syncer"
	"github.com/eringen/folio/views"
)

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	projects, err := a.Cache.ListProjects(ctx)
	if err != nil {
		return err
	}
	settings, err := a.Cache.Settings(ctx)
	if err != nil {
		return err
	}
	site := a.Config.view()
	page := views.Home{
		Site: site,
		Meta: views.PageMeta{
			Title:       site.Name,
			Description: site.Description,
			URL:         BuildURL(site.URL),
			OGType:      "website",
		},
		Bio:         settings.BioText,
		FooterLinks: settings.FooterLinks,
		Projects:    projects,
	}
	return renderPage(c, http.StatusOK, a.Views.Home, page)
}

// rows converts coordinator blocks into the page rows the templates draw.
func rows(blocks []syncer.Block) []views.Row {
	in := make([]views.Block, len(blocks))
	for i, b := range blocks {
		in[i] = views.Block{Kind: b.Kind, Section: b.Section, Image: b.Image, Video: b.Video}
	}
	return views.Rows(in)
}

func (a *App) handleProject(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := a.Cache.Page(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}
	projects, err := a.Cache.ListProjects(ctx)
	if err != nil {
		return err
	}
	settings, err := a.Cache.Settings(ctx)
	if err != nil {
		return err
	}

	site := a.Config.view()
	page := views.ProjectPage{
		Site:        site,
		Project:     p.Project,
		Rows:        rows(p.Blocks),
		Projects:    projects,
		FooterLinks: settings.FooterLinks,
	}
	page.Prev, page.Next = AdjacentProjects(projects, p.Project.ID)
	page.Meta = views.PageMeta{
		Title:       p.Project.Name + " | " + site.Name,
		Description: views.Summary(page.Rows, 160),
		URL:         views.ProjectURL(site, p.Project.ID),
		OGType:      "article",
		Image:       views.FirstImage(page.Rows),
	}
	if page.Meta.Description == "" {
		page.Meta.Description = site.Description
	}
	return renderPage(c, http.StatusOK, a.Views.Project, page)
}

func (a *App) handleAPIProjects(c echo.Context) error {
	projects, err := a.Cache.ListProjects(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, projects)
}

func (a *App) handleAPIProject(c echo.Context) error {
	p, err := a.Cache.Page(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return c.JSON(http.StatusNotFound, apiError{Error: "project not found"})
		}
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (a *App) handleAPISettings(c echo.Context) error {
	s, err := a.Cache.Settings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, publicSettings{BioText: s.BioText, FooterLinks: s.FooterLinks})
}

func (a *App) handleSitemap(c echo.Context) error {
	projects, err := a.Cache.ListProjects(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, projects)
}

func (a *App) handleFeed(c echo.Context) error {
	projects, err := a.Cache.ListProjects(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, projects)
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(filepath.Join(a.staticDir, "favicon.svg"))
}

// handleRobots serves robots.txt from the static directory, or a default
// that keeps crawlers out of the admin and points at the sitemap.
func (a *App) handleRobots(c echo.Context) error {
	path := filepath.Join(a.staticDir, "robots.txt")
	if _, err := os.Stat(path); err == nil {
		return c.File(path)
	}
	var b strings.Builder
	b.WriteString("User-agent: *\nDisallow: /admin/\n")
	fmt.Fprintf(&b, "Sitemap: %s\n", strings.TrimRight(a.Config.URL, "/")+"/sitemap.xml")
	return c.String(http.StatusOK, b.String())
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		if a.Views.NotFound == nil {
			_ = c.JSON(http.StatusNotFound, apiError{Error: "not found"})
			return
		}
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("server error")
		if a.Views.ServerError == nil {
			_ = c.JSON(code, apiError{Error: http.StatusText(code)})
			return
		}
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
