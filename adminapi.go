package folio

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/blob"
	"github.com/eringen/folio/content"
)

// apiStatus maps an error from the coordinator to an HTTP status.
func apiStatus(err error) int {
	switch {
	case errors.Is(err, content.ErrRemoteNotConfigured), errors.Is(err, content.ErrBlobNotConfigured):
		return http.StatusPreconditionFailed
	case errors.Is(err, content.ErrRemoteConflict):
		return http.StatusConflict
	case errors.Is(err, content.ErrRemoteUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, content.ErrBlobTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, content.ErrBlobUploadRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, content.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, content.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, content.ErrStorageUnavailable):
		return http.StatusInsufficientStorage
	}
	return http.StatusInternalServerError
}

func apiHint(err error) string {
	switch {
	case errors.Is(err, content.ErrRemoteNotConfigured):
		return "configure a remote backend under /admin/api/backend/ first"
	case errors.Is(err, content.ErrBlobNotConfigured):
		return "configure file hosting under /admin/api/backend/ or switch the blob mode"
	case errors.Is(err, content.ErrRemoteConflict):
		return "the remote changed meanwhile; reload and retry"
	}
	return ""
}

// remoteOnly reports write failures that happened after the local store
// accepted the change.
func remoteOnly(err error) bool {
	return errors.Is(err, content.ErrRemoteUnavailable) ||
		errors.Is(err, content.ErrRemoteConflict) ||
		errors.Is(err, content.ErrUnsupported)
}

// apiFail answers a failed admin call. Unexpected errors are returned to
// echo so they reach the error handler and the log.
func (a *App) apiFail(c echo.Context, err error) error {
	code := apiStatus(err)
	if code == http.StatusInternalServerError {
		return err
	}
	a.Logger.Warn().Err(err).Str("path", c.Path()).Int("status", code).Msg("admin api call failed")
	return c.JSON(code, apiError{Error: err.Error(), Hint: apiHint(err)})
}

// apiWriteFail is apiFail for writes, flagging when the local copy stands.
func (a *App) apiWriteFail(c echo.Context, err error) error {
	if remoteOnly(err) {
		a.Cache.Invalidate()
		a.Logger.Warn().Err(err).Str("path", c.Path()).Msg("saved locally, remote write failed")
		return c.JSON(apiStatus(err), apiError{Error: err.Error(), Hint: apiHint(err), SavedLocally: true})
	}
	return a.apiFail(c, err)
}

func bindBody(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return fmt.Errorf("%w: malformed request body", content.ErrInvalid)
	}
	return nil
}

// requireProject fails with content.ErrNotFound when the project is gone.
func (a *App) requireProject(c echo.Context) (string, error) {
	id := c.Param("id")
	if _, err := a.Sync.GetProject(c.Request().Context(), id); err != nil {
		return id, err
	}
	return id, nil
}

func (a *App) apiListProjects(c echo.Context) error {
	projects, err := a.Sync.GetProjects(c.Request().Context())
	if err != nil {
		return a.apiFail(c, err)
	}
	return c.JSON(http.StatusOK, projects)
}

func (a *App) apiGetProject(c echo.Context) error {
	page, err := a.Sync.ProjectContent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return a.apiFail(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) apiSaveProject(c echo.Context) error {
	var p content.Project
	if err := bindBody(c, &p); err != nil {
		return a.apiFail(c, err)
	}
	code := http.StatusCreated
	if id := c.Param("id"); id != "" {
		p.ID = id
		code = http.StatusOK
	}
	saved, err := a.Sync.SaveProject(c.Request().Context(), p)
	if err != nil {
		return a.apiWriteFail(c, err)
	}
	a.Cache.Invalidate()
	return c.JSON(code, saved)
}

func (a *App) apiDeleteProject(c echo.Context) error {
	if err := a.Sync.DeleteProject(c.Request().Context(), c.Param("id")); err != nil {
		return a.apiWriteFail(c, err)
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

func (a *App) apiAddSection(c echo.Context) error {
	projectID, err := a.requireProject(c)
	if err != nil {
		return a.apiFail(c, err)
	}
	var s content.Section
	if err := bindBody(c, &s); err != nil {
		return a.apiFail(c, err)
	}
	saved, err := a.Sync.AddSection(c.Request().Context(), projectID, s)
	if err != nil {
		return a.apiWriteFail(c, err)
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusCreated, saved)
}

// formFile opens the multipart "file" field as a blob.File. The caller
// closes the returned closer.
func formFile(c echo.Context) (blob.File, io.Closer, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return blob.File{}, nil, fmt.Errorf("%w: multipart field \"file\" is required", content.ErrInvalid)
	}
	f, err := fh.Open()
	if err != nil {
		return blob.File{}, nil, fmt.Errorf("%w: read upload: %v", content.ErrInvalid, err)
	}
	return blob.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	}, f, nil
}

func (a *App) apiUploadImage(c echo.Context) error {
	projectID, err := a.requireProject(c)
	if err != nil {
		return a.apiFail(c, err)
	}
	file, closer, err := formFile(c)
	if err != nil {
		return a.apiFail(c, err)
	}
	defer closer.Close()

	layout := content.Layout(c.FormValue("layout"))
	if layout == "" {
		layout = content.LayoutSingle
	}
	img, err := a.Sync.UploadImage(c.Request().Context(), projectID, file, layout)
	if err != nil {
		return a.apiWriteFail(c, err)
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusCreated, img)
}

func (a *App) apiUploadVideo(c echo.Context) error {
	projectID, err := a.requireProject(c)
	if err != nil {
		return a.apiFail(c, err)
	}
	file, closer, err := formFile(c)
	if err != nil {
		return a.apiFail(c, err)
	}
	defer closer.Close()

	v, err := a.Sync.UploadVideo(c.Request().Context(), projectID, file)
	if err != nil {
		return a.apiWriteFail(c, err)
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusCreated, v)
}

func (a *App) apiListSections(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		sections []content.Section
		err      error
	)
	if projectID := c.QueryParam("project"); projectID != "" {
		sections, err = a.Sync.GetSectionsForProject(ctx, projectID)
	} else {
		sections, err = a.Sync.GetSections(ctx)
	}
	if err != nil {
		return a.apiFail(c, err)
	}
	return c.JSON(http.StatusOK, sections)
}

func (a *App) apiSaveSection(c echo.Context) error {
	var s content.Section
	if err := bindBody(c, &s); err != nil {
		return a.apiFail(c, err)
	}
	s.ID = c.Param("id")
	saved, err := a.Sync.SaveSection(c.Request().Context(), s)
	if err != nil {
		return a.apiWriteFail(c, err)
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, saved)
}

func (a *App) apiDeleteSection(c echo.Context) error {
	if err := a.Sync.DeleteSection(c.Request().Context(), c.Param("id")); err != nil {
		return a.apiWriteFail(c, err)
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

func (a *App) apiListImages(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		images []content.Image
		err    error
	)
	if projectID := c.QueryParam("project"); projectID != "" {
		images, err = a.Sync.GetImagesForProject(ctx, projectID)
	} else {
		images, err = a.Sync.GetImages(ctx)
	}
	if err != nil {
		return a.apiFail(c, err)
	}
	return c.JSON(http.StatusOK, images)
}

func (a *App) apiSaveImage(c echo.Context) error {
	var img content.Image
	if err := bindBody(c, &img); err != nil {
		return a.apiFail(c, err)
	}
	img.ID = c.Param("id")
	saved, err := a.Sync.SaveImage(c.Request().Context(), img)
	if err != nil {
		return a.apiWriteFail(c, err)
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, saved)
}

func (a *App) apiDeleteImage(c echo.Context) error {
	if err := a.Sync.DeleteImage(c.Request().Context(), c.Param("id")); err != nil {
		return a.apiWriteFail(c, err)
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

func (a *App) apiListVideos(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		videos []content.Video
		err    error
	)
	if projectID := c.QueryParam("project"); projectID != "" {
		videos, err = a.Sync.GetVideosForProject(ctx, projectID)
	} else {
		videos, err = a.Sync.GetVideos(ctx)
	}
	if err != nil {
		return a.apiFail(c, err)
	}
	return c.JSON(http.StatusOK, videos)
}

func (a *App) apiSaveVideo(c echo.Context) error {
	var v content.Video
	if err := bindBody(c, &v); err != nil {
		return a.apiFail(c, err)
	}
	v.ID = c.Param("id")
	saved, err := a.Sync.SaveVideo(c.Request().Context(), v)
	if err != nil {
		return a.apiWriteFail(c, err)
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, saved)
}

func (a *App) apiDeleteVideo(c echo.Context) error {
	if err := a.Sync.DeleteVideo(c.Request().Context(), c.Param("id")); err != nil {
		return a.apiWriteFail(c, err)
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

func (a *App) apiGetSettings(c echo.Context) error {
	s, err := a.Sync.GetSiteSettings(c.Request().Context())
	if err != nil {
		return a.apiFail(c, err)
	}
	return c.JSON(http.StatusOK, publicSettings{BioText: s.BioText, FooterLinks: s.FooterLinks})
}

// apiSaveSettings updates the bio text and footer links. The backend
// configuration has its own endpoint.
func (a *App) apiSaveSettings(c echo.Context) error {
	var form publicSettings
	if err := bindBody(c, &form); err != nil {
		return a.apiFail(c, err)
	}
	ctx := c.Request().Context()
	s, err := a.Sync.Config().Load(ctx)
	if err != nil {
		return a.apiFail(c, err)
	}
	s.BioText = form.BioText
	s.FooterLinks = form.FooterLinks
	saved, err := a.Sync.SaveSiteSettings(ctx, s)
	if err != nil {
		return a.apiWriteFail(c, err)
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, publicSettings{BioText: saved.BioText, FooterLinks: saved.FooterLinks})
}

func (a *App) apiGetBackend(c echo.Context) error {
	ctx := c.Request().Context()
	s, err := a.Sync.Config().Load(ctx)
	if err != nil {
		return a.apiFail(c, err)
	}
	return c.JSON(http.StatusOK, newBackendView(s, a.Sync.Backend(ctx).Ready()))
}

// apiSaveBackend stores a new backend configuration and, unless the form
// opts out, copies the existing content into it.
func (a *App) apiSaveBackend(c echo.Context) error {
	var form backendForm
	if err := bindBody(c, &form); err != nil {
		return a.apiFail(c, err)
	}
	migrate := form.Migrate == nil || *form.Migrate
	ctx := c.Request().Context()

	saved, report, err := a.Sync.Configure(ctx, form.settings(), migrate)
	a.Cache.Invalidate()
	if err != nil {
		if report == nil {
			return a.apiFail(c, err)
		}
		return c.JSON(apiStatus(err), apiError{Error: err.Error(), Hint: apiHint(err), Migration: report})
	}
	return c.JSON(http.StatusOK, backendResult{
		backendView: newBackendView(saved, a.Sync.Backend(ctx).Ready()),
		Migration:   report,
	})
}

func (a *App) apiMigrate(c echo.Context) error {
	report, err := a.Sync.Migrate(c.Request().Context())
	if err != nil {
		if errors.Is(err, content.ErrRemoteNotConfigured) {
			return a.apiFail(c, err)
		}
		return c.JSON(apiStatus(err), apiError{Error: err.Error(), Hint: apiHint(err), Migration: &report})
	}
	return c.JSON(http.StatusOK, report)
}

func (a *App) apiExport(c echo.Context) error {
	ds, err := a.Sync.Export(c.Request().Context())
	if err != nil {
		return a.apiFail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", content.ExportFilename(time.Now())))
	return c.JSONPretty(http.StatusOK, ds, "  ")
}

// apiImport accepts an export document either as the raw request body or
// as the multipart "file" field.
func (a *App) apiImport(c echo.Context) error {
	var raw []byte
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return a.apiFail(c, fmt.Errorf("%w: read upload: %v", content.ErrInvalid, err))
		}
		defer f.Close()
		if raw, err = io.ReadAll(f); err != nil {
			return a.apiFail(c, fmt.Errorf("%w: read upload: %v", content.ErrInvalid, err))
		}
	} else {
		if raw, err = io.ReadAll(c.Request().Body); err != nil {
			return a.apiFail(c, fmt.Errorf("%w: read body: %v", content.ErrInvalid, err))
		}
	}

	ds, err := content.ParseDataset(raw)
	if err != nil {
		return a.apiFail(c, err)
	}
	res, err := a.Sync.Import(c.Request().Context(), ds)
	a.Cache.Invalidate()
	if err != nil {
		if res.Imported == 0 {
			return a.apiFail(c, err)
		}
		return c.JSON(apiStatus(err), apiError{Error: err.Error(), Hint: apiHint(err), SavedLocally: true, Migration: res.Migration})
	}
	return c.JSON(http.StatusOK, res)
}

func (a *App) apiOrphans(c echo.Context) error {
	orphans, err := a.Sync.Orphans(c.Request().Context())
	if err != nil {
		return a.apiFail(c, err)
	}
	return c.JSON(http.StatusOK, orphans)
}
