package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/eringen/folio/blob"
	"github.com/eringen/folio/content"
)

// Block is one entry of a project page: exactly one of Section, Image or
// Video is set.
type Block struct {
	Kind    content.Collection `json:"kind"`
	Order   int                `json:"order"`
	Section *content.Section   `json:"section,omitempty"`
	Image   *content.Image     `json:"image,omitempty"`
	Video   *content.Video     `json:"video,omitempty"`
}

// Page is a project with its content merged in display order.
type Page struct {
	Project content.Project `json:"project"`
	Blocks  []Block         `json:"blocks"`
}

// ProjectContent loads a project and its sections, images and videos,
// merged and sorted by order. Ties keep sections before images before
// videos.
func (c *Coordinator) ProjectContent(ctx context.Context, projectID string) (Page, error) {
	p, err := c.GetProject(ctx, projectID)
	if err != nil {
		return Page{}, err
	}
	blocks, err := c.blocks(ctx, projectID)
	if err != nil {
		return Page{}, err
	}
	return Page{Project: p, Blocks: blocks}, nil
}

func (c *Coordinator) blocks(ctx context.Context, projectID string) ([]Block, error) {
	sections, err := c.GetSectionsForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	images, err := c.GetImagesForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	videos, err := c.GetVideosForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	blocks := make([]Block, 0, len(sections)+len(images)+len(videos))
	for i := range sections {
		blocks = append(blocks, Block{Kind: content.Sections, Order: sections[i].Order, Section: &sections[i]})
	}
	for i := range images {
		blocks = append(blocks, Block{Kind: content.Images, Order: images[i].Order, Image: &images[i]})
	}
	for i := range videos {
		blocks = append(blocks, Block{Kind: content.Videos, Order: videos[i].Order, Video: &videos[i]})
	}
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Order < blocks[j].Order })
	return blocks, nil
}

// Orphan is a child record whose project no longer exists.
type Orphan struct {
	Collection content.Collection `json:"collection"`
	ID         string             `json:"id"`
	ProjectID  string             `json:"projectId"`
}

// Orphans lists sections, images and videos pointing at a missing project.
// Records without a project id are not orphans.
func (c *Coordinator) Orphans(ctx context.Context) ([]Orphan, error) {
	projects, err := c.GetProjects(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(projects))
	for _, p := range projects {
		known[p.ID] = true
	}

	orphans := []Orphan{}
	for _, coll := range content.Collections {
		if !coll.Children() {
			continue
		}
		docs, err := c.GetAll(ctx, coll)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if d.ProjectID != "" && !known[d.ProjectID] {
				orphans = append(orphans, Orphan{Collection: coll, ID: d.ID, ProjectID: d.ProjectID})
			}
		}
	}
	return orphans, nil
}

func nextOrder[T content.Entity](items []T) int {
	next := 0
	for _, it := range items {
		if it.SortOrder() >= next {
			next = it.SortOrder() + 1
		}
	}
	return next
}

// nextBlockOrder is one past the highest order of any block of the
// project, so new content lands at the end of the page.
func (c *Coordinator) nextBlockOrder(ctx context.Context, projectID string) (int, error) {
	blocks, err := c.blocks(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if len(blocks) == 0 {
		return 0, nil
	}
	return blocks[len(blocks)-1].Order + 1, nil
}

// AddSection appends a section to the end of a project page.
func (c *Coordinator) AddSection(ctx context.Context, projectID string, s content.Section) (content.Section, error) {
	order, err := c.nextBlockOrder(ctx, projectID)
	if err != nil {
		return s, err
	}
	s.ID = ""
	s.ProjectID = projectID
	s.Order = order
	return c.SaveSection(ctx, s)
}

// AddImage appends an image record to the end of a project page.
func (c *Coordinator) AddImage(ctx context.Context, projectID string, img content.Image) (content.Image, error) {
	order, err := c.nextBlockOrder(ctx, projectID)
	if err != nil {
		return img, err
	}
	img.ID = ""
	img.ProjectID = projectID
	img.Order = order
	return c.SaveImage(ctx, img)
}

// AddVideo appends a video record to the end of a project page.
func (c *Coordinator) AddVideo(ctx context.Context, projectID string, v content.Video) (content.Video, error) {
	order, err := c.nextBlockOrder(ctx, projectID)
	if err != nil {
		return v, err
	}
	v.ID = ""
	v.ProjectID = projectID
	v.Order = order
	return c.SaveVideo(ctx, v)
}

// blobs builds the facade for the current blob settings.
func (c *Coordinator) blobs(ctx context.Context) (*blob.Facade, error) {
	settings, err := c.config.Load(ctx)
	if err != nil {
		return nil, err
	}
	return blob.Open(settings, c.blobDeps), nil
}

// Upload stores a file with the configured blob mode and returns the
// reference to put in an image or video record.
func (c *Coordinator) Upload(ctx context.Context, file blob.File) (content.Media, error) {
	f, err := c.blobs(ctx)
	if err != nil {
		return content.Media{}, err
	}
	return f.Upload(ctx, file)
}

// RemoveMedia deletes a stored file, when the blob store can.
func (c *Coordinator) RemoveMedia(ctx context.Context, m content.Media) error {
	f, err := c.blobs(ctx)
	if err != nil {
		return err
	}
	return f.Remove(ctx, m)
}

func (c *Coordinator) dropMedia(ctx context.Context, m content.Media) {
	if m.Source() == "" || m.Inline() {
		return
	}
	if err := c.RemoveMedia(ctx, m); err != nil {
		c.logger.Warn().Err(err).Str("url", m.URL).Msg("stored file not removed")
	}
}

// UploadImage stores the file and appends an image record for it. When
// the record cannot be stored locally the uploaded file is removed again.
func (c *Coordinator) UploadImage(ctx context.Context, projectID string, file blob.File, layout content.Layout) (content.Image, error) {
	m, err := c.Upload(ctx, file)
	if err != nil {
		return content.Image{}, err
	}
	img, err := c.AddImage(ctx, projectID, content.Image{Name: file.Name, Media: m, Layout: layout})
	if err != nil && notStored(err) {
		c.dropMedia(ctx, m)
	}
	return img, err
}

// UploadVideo is UploadImage for videos.
func (c *Coordinator) UploadVideo(ctx context.Context, projectID string, file blob.File) (content.Video, error) {
	m, err := c.Upload(ctx, file)
	if err != nil {
		return content.Video{}, err
	}
	v, err := c.AddVideo(ctx, projectID, content.Video{Name: file.Name, Media: m})
	if err != nil && notStored(err) {
		c.dropMedia(ctx, m)
	}
	return v, err
}

// notStored reports errors raised before the local write succeeded.
func notStored(err error) bool {
	return errors.Is(err, content.ErrInvalid) || errors.Is(err, content.ErrStorageUnavailable)
}

// Default sections written to an empty store.
var defaultSections = []content.Section{
	{ID: "1", Content: "Lorem Ipsum", Style: content.StyleHeader, Order: 0},
	{ID: "2", Content: "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat.", Style: content.StyleBodyRegular, Order: 1},
	{ID: "3", Content: "Duis aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur. Excepteur sint occaecat cupidatat non proident, sunt in culpa qui officia deserunt mollit anim id est laborum.", Style: content.StyleBodyBold, Order: 2},
}

// SeedDefaults writes placeholder sections when there are none yet. It
// reports whether anything was written.
func (c *Coordinator) SeedDefaults(ctx context.Context) (bool, error) {
	existing, err := c.GetSections(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	for _, s := range defaultSections {
		if _, err := c.SaveSection(ctx, s); err != nil {
			return false, fmt.Errorf("seed section %s: %w", s.ID, err)
		}
	}
	c.logger.Info().Int("sections", len(defaultSections)).Msg("seeded default content")
	return true, nil
}
