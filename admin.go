package folio

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/views"
)

// loginPage is the JSON answer of the login page when no template is set.
type loginPage struct {
	LoginRequired bool   `json:"loginRequired"`
	Error         string `json:"error,omitempty"`
	CSRFToken     string `json:"csrfToken"`
}

func (a *App) renderLogin(c echo.Context, code int, failed bool) error {
	if a.Views.AdminLogin == nil {
		page := loginPage{LoginRequired: true, CSRFToken: CsrfToken(c)}
		if failed {
			page.Error = "wrong password"
		}
		return c.JSON(code, page)
	}
	return RenderStatus(c, code, a.Views.AdminLogin(failed, CsrfToken(c)))
}

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return a.renderLogin(c, http.StatusOK, false)
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		a.Logger.Info().Str("ip", ip).Msg("admin login")
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	a.Logger.Warn().Str("ip", ip).Msg("failed admin login")
	return a.renderLogin(c, http.StatusUnauthorized, true)
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	ctx := c.Request().Context()
	projects, err := a.Sync.GetProjects(ctx)
	if err != nil {
		return err
	}
	settings, err := a.Sync.GetSiteSettings(ctx)
	if err != nil {
		return err
	}
	page := views.Admin{
		Projects:  projects,
		Settings:  settings.Public(),
		Message:   msg,
		CSRFToken: CsrfToken(c),
	}
	return renderPage(c, http.StatusOK, a.Views.AdminDashboard, page)
}
