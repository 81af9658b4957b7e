package syncer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/folio/blob"
	"github.com/eringen/folio/content"
)

func TestAddAppendsToProjectPage(t *testing.T) {
	c, _ := newTestCoordinator(t, nil)
	ctx := context.Background()

	p, err := c.SaveProject(ctx, content.Project{Name: "Book"})
	require.NoError(t, err)

	s, err := c.AddSection(ctx, p.ID, content.Section{Content: "Title", Style: content.StyleHeader})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Order)

	img, err := c.AddImage(ctx, p.ID, content.Image{Name: "cover", Media: content.Media{URL: "https://cdn/cover.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, 1, img.Order)
	assert.Equal(t, content.LayoutSingle, img.Layout)

	v, err := c.AddVideo(ctx, p.ID, content.Video{Name: "reel", Media: content.Media{URL: "https://cdn/reel.mp4"}})
	require.NoError(t, err)
	assert.Equal(t, 2, v.Order)

	_, err = c.SaveSection(ctx, content.Section{Content: "late", ProjectID: p.ID, Order: 10})
	require.NoError(t, err)
	tail, err := c.AddSection(ctx, p.ID, content.Section{Content: "tail"})
	require.NoError(t, err)
	assert.Equal(t, 11, tail.Order)

	// Other projects keep their own numbering.
	other, err := c.SaveProject(ctx, content.Project{Name: "Other"})
	require.NoError(t, err)
	assert.Equal(t, 1, other.Order)
	first, err := c.AddSection(ctx, other.ID, content.Section{Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, 0, first.Order)

	page, err := c.ProjectContent(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Book", page.Project.Name)
	kinds := []content.Collection{}
	for _, b := range page.Blocks {
		kinds = append(kinds, b.Kind)
	}
	assert.Equal(t, []content.Collection{content.Sections, content.Images, content.Videos, content.Sections, content.Sections}, kinds)
	assert.Equal(t, "tail", page.Blocks[4].Section.Content)
}

func TestProjectContentOrdersTiesByKind(t *testing.T) {
	c, _ := newTestCoordinator(t, nil)
	ctx := context.Background()

	p, err := c.SaveProject(ctx, content.Project{ID: "p", Name: "Ties"})
	require.NoError(t, err)
	_, err = c.SaveImage(ctx, content.Image{ID: "i", ProjectID: p.ID, Order: 1, Media: content.Media{URL: "u"}})
	require.NoError(t, err)
	_, err = c.SaveSection(ctx, content.Section{ID: "s", ProjectID: p.ID, Order: 1, Content: "c"})
	require.NoError(t, err)

	page, err := c.ProjectContent(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, page.Blocks, 2)
	assert.NotNil(t, page.Blocks[0].Section)
	assert.NotNil(t, page.Blocks[1].Image)

	_, err = c.ProjectContent(ctx, "missing")
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestDeleteProjectLeavesOrphans(t *testing.T) {
	c, _ := newTestCoordinator(t, nil)
	ctx := context.Background()

	p, err := c.SaveProject(ctx, content.Project{Name: "Gone"})
	require.NoError(t, err)
	s, err := c.AddSection(ctx, p.ID, content.Section{Content: "left behind"})
	require.NoError(t, err)
	_, err = c.SaveSection(ctx, content.Section{Content: "global"})
	require.NoError(t, err)

	orphans, err := c.Orphans(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	require.NoError(t, c.DeleteProject(ctx, p.ID))
	sections, err := c.GetSections(ctx)
	require.NoError(t, err)
	assert.Len(t, sections, 2)

	orphans, err = c.Orphans(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, Orphan{Collection: content.Sections, ID: s.ID, ProjectID: p.ID}, orphans[0])

	assert.ErrorIs(t, c.DeleteSection(ctx, ""), content.ErrInvalid)
}

func TestExportImport(t *testing.T) {
	src, _ := newTestCoordinator(t, nil)
	ctx := context.Background()

	p, err := src.SaveProject(ctx, content.Project{Name: "Exported"})
	require.NoError(t, err)
	_, err = src.AddSection(ctx, p.ID, content.Section{Content: "body"})
	require.NoError(t, err)
	_, _, err = src.Configure(ctx, content.SiteSettings{Backend: content.BackendBin, JSONBin: content.BinSettings{APIKey: "hidden"}}, false)
	require.NoError(t, err)

	ds, err := src.Export(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, ds.ExportDate)
	assert.Len(t, ds.Projects, 1)
	assert.Len(t, ds.Sections, 1)
	require.NotNil(t, ds.SiteSettings)
	assert.Empty(t, ds.SiteSettings.JSONBin.APIKey)

	dst, _ := newTestCoordinator(t, nil)
	_, err = dst.SaveProject(ctx, content.Project{ID: "mine", Name: "Already here"})
	require.NoError(t, err)

	res, err := dst.Import(ctx, ds)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)
	assert.Nil(t, res.Migration)

	projects, err := dst.GetProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 2, "import merges by id")

	settings, err := dst.Config().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, content.BackendNone, settings.Backend, "imported settings do not switch the backend")
}

func TestSeedDefaults(t *testing.T) {
	c, _ := newTestCoordinator(t, nil)
	ctx := context.Background()

	seeded, err := c.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	sections, err := c.GetSections(ctx)
	require.NoError(t, err)
	require.Len(t, sections, 3)
	assert.Equal(t, content.StyleHeader, sections[0].Style)
	assert.Equal(t, "Lorem Ipsum", sections[0].Content)
	assert.Equal(t, content.StyleBodyRegular, sections[1].Style)
	assert.Equal(t, content.StyleBodyBold, sections[2].Style)

	seeded, err = c.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestUploadInlineAndLimit(t *testing.T) {
	c, _ := newTestCoordinator(t, nil, WithBlobDeps(blob.Deps{Limit: 4}))
	ctx := context.Background()

	p, err := c.SaveProject(ctx, content.Project{Name: "Gallery"})
	require.NoError(t, err)

	img, err := c.UploadImage(ctx, p.ID, blob.File{
		Name:        "dot.png",
		ContentType: "image/png",
		Size:        4,
		Body:        strings.NewReader("abcd"),
	}, content.LayoutTwoColumn)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(img.Data, "data:image/png;base64,"))
	assert.Equal(t, content.LayoutTwoColumn, img.Layout)
	assert.Equal(t, "dot.png", img.Name)

	_, err = c.Upload(ctx, blob.File{Name: "big.png", Size: 5, Body: strings.NewReader("abcde")})
	assert.ErrorIs(t, err, content.ErrBlobTooLarge)

	_, _, err = c.Configure(ctx, content.SiteSettings{BlobMode: content.BlobHosted}, false)
	require.NoError(t, err)
	_, err = c.Upload(ctx, blob.File{Name: "a.png", Size: 1, Body: strings.NewReader("a")})
	assert.ErrorIs(t, err, content.ErrBlobNotConfigured)

	require.NoError(t, c.DeleteImage(ctx, img.ID))
	images, err := c.GetImages(ctx)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestClearContentKeepsSettings(t *testing.T) {
	c, _ := newTestCoordinator(t, nil)
	ctx := context.Background()

	p, err := c.SaveProject(ctx, content.Project{Name: "Gone"})
	require.NoError(t, err)
	_, err = c.AddSection(ctx, p.ID, content.Section{Content: "intro"})
	require.NoError(t, err)
	_, err = c.SaveSiteSettings(ctx, content.SiteSettings{BioText: "stays"})
	require.NoError(t, err)

	n, err := c.ClearContent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	projects, err := c.GetProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
	settings, err := c.GetSiteSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stays", settings.BioText)
}
