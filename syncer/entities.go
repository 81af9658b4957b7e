package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/eringen/folio/content"
)

// record is what the typed entry points save: an entity that validates.
type record interface {
	content.Entity
	Validate() error
}

// normalizer is the pointer side of a record.
type normalizer[T any] interface {
	*T
	Normalize()
}

func list[T any](ctx context.Context, c *Coordinator, coll content.Collection) ([]T, error) {
	docs, err := c.GetAll(ctx, coll)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := content.Decode[T](d)
		if err != nil {
			c.logger.Warn().Err(err).Str("collection", string(coll)).Msg("skipping unreadable record")
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func listFor[T content.Entity](ctx context.Context, c *Coordinator, coll content.Collection, projectID string) ([]T, error) {
	all, err := list[T](ctx, c, coll)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(all))
	for _, v := range all {
		if v.Parent() == projectID {
			out = append(out, v)
		}
	}
	return out, nil
}

func get[T any](ctx context.Context, c *Coordinator, coll content.Collection, id string) (T, error) {
	var zero T
	d, found, err := c.GetOne(ctx, coll, id)
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, fmt.Errorf("%w: %s %q", content.ErrNotFound, coll, id)
	}
	v, err := content.Decode[T](d)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", content.ErrInvalid, err)
	}
	return v, nil
}

// save normalizes and validates v, then writes it. The returned value is
// what was stored, also when the remote write failed after the local one.
func save[T record, P normalizer[T]](ctx context.Context, c *Coordinator, v T) (T, error) {
	P(&v).Normalize()
	if err := v.Validate(); err != nil {
		return v, err
	}
	d, err := content.Encode(v)
	if err != nil {
		return v, err
	}
	return v, c.Put(ctx, v.Collection(), d)
}

func (c *Coordinator) remove(ctx context.Context, coll content.Collection, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s id is required", content.ErrInvalid, coll)
	}
	return c.Delete(ctx, coll, id)
}

func (c *Coordinator) GetProjects(ctx context.Context) ([]content.Project, error) {
	return list[content.Project](ctx, c, content.Projects)
}

func (c *Coordinator) GetProject(ctx context.Context, id string) (content.Project, error) {
	return get[content.Project](ctx, c, content.Projects, id)
}

// SaveProject creates or replaces a project. A new project goes after the
// existing ones unless it carries an order.
func (c *Coordinator) SaveProject(ctx context.Context, p content.Project) (content.Project, error) {
	if p.ID == "" && p.Order == 0 {
		projects, err := c.GetProjects(ctx)
		if err != nil {
			return p, err
		}
		p.Order = nextOrder(projects)
	}
	return save(ctx, c, p)
}

// DeleteProject removes the project only. Its sections, images and videos
// stay and show up in Orphans.
func (c *Coordinator) DeleteProject(ctx context.Context, id string) error {
	return c.remove(ctx, content.Projects, id)
}

func (c *Coordinator) GetSections(ctx context.Context) ([]content.Section, error) {
	return list[content.Section](ctx, c, content.Sections)
}

func (c *Coordinator) GetSectionsForProject(ctx context.Context, projectID string) ([]content.Section, error) {
	return listFor[content.Section](ctx, c, content.Sections, projectID)
}

func (c *Coordinator) GetSection(ctx context.Context, id string) (content.Section, error) {
	return get[content.Section](ctx, c, content.Sections, id)
}

func (c *Coordinator) SaveSection(ctx context.Context, s content.Section) (content.Section, error) {
	return save(ctx, c, s)
}

func (c *Coordinator) DeleteSection(ctx context.Context, id string) error {
	return c.remove(ctx, content.Sections, id)
}

func (c *Coordinator) GetImages(ctx context.Context) ([]content.Image, error) {
	return list[content.Image](ctx, c, content.Images)
}

func (c *Coordinator) GetImagesForProject(ctx context.Context, projectID string) ([]content.Image, error) {
	return listFor[content.Image](ctx, c, content.Images, projectID)
}

func (c *Coordinator) GetImage(ctx context.Context, id string) (content.Image, error) {
	return get[content.Image](ctx, c, content.Images, id)
}

func (c *Coordinator) SaveImage(ctx context.Context, img content.Image) (content.Image, error) {
	return save(ctx, c, img)
}

// DeleteImage removes the record, then the stored file when the blob store
// can delete it. A failed file removal is only logged.
func (c *Coordinator) DeleteImage(ctx context.Context, id string) error {
	img, err := c.GetImage(ctx, id)
	if err != nil && !isNotFound(err) {
		return err
	}
	if err := c.remove(ctx, content.Images, id); err != nil {
		return err
	}
	c.dropMedia(ctx, img.Media)
	return nil
}

func (c *Coordinator) GetVideos(ctx context.Context) ([]content.Video, error) {
	return list[content.Video](ctx, c, content.Videos)
}

func (c *Coordinator) GetVideosForProject(ctx context.Context, projectID string) ([]content.Video, error) {
	return listFor[content.Video](ctx, c, content.Videos, projectID)
}

func (c *Coordinator) GetVideo(ctx context.Context, id string) (content.Video, error) {
	return get[content.Video](ctx, c, content.Videos, id)
}

func (c *Coordinator) SaveVideo(ctx context.Context, v content.Video) (content.Video, error) {
	return save(ctx, c, v)
}

// DeleteVideo mirrors DeleteImage.
func (c *Coordinator) DeleteVideo(ctx context.Context, id string) error {
	v, err := c.GetVideo(ctx, id)
	if err != nil && !isNotFound(err) {
		return err
	}
	if err := c.remove(ctx, content.Videos, id); err != nil {
		return err
	}
	c.dropMedia(ctx, v.Media)
	return nil
}

// GetSiteSettings returns the settings record, the defaults when none was
// saved. The result carries credentials: use Public before handing it out.
func (c *Coordinator) GetSiteSettings(ctx context.Context) (content.SiteSettings, error) {
	d, found, err := c.GetOne(ctx, content.Settings, content.SettingsID)
	if err != nil {
		return content.SiteSettings{}, err
	}
	if !found {
		return content.DefaultSettings(), nil
	}
	s, err := content.Decode[content.SiteSettings](d)
	if err != nil {
		return content.SiteSettings{}, fmt.Errorf("%w: %v", content.ErrInvalid, err)
	}
	s.Normalize()
	return s, nil
}

// SaveSiteSettings stores the public part of s: bio text and footer links.
// Backend and blob configuration go through Configure.
func (c *Coordinator) SaveSiteSettings(ctx context.Context, s content.SiteSettings) (content.SiteSettings, error) {
	local, err := c.config.Load(ctx)
	if err != nil {
		return s, err
	}
	return save(ctx, c, s.WithCredentialsFrom(local))
}

func isNotFound(err error) bool {
	return errors.Is(err, content.ErrNotFound)
}
