package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/eringen/folio/content"
)

// Export returns the whole local content as an export document. Site
// settings are included without credentials.
func (c *Coordinator) Export(ctx context.Context) (*content.Dataset, error) {
	ds := content.NewDataset()
	for _, coll := range content.Collections {
		if coll == content.Settings {
			continue
		}
		docs, err := c.GetAll(ctx, coll)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if err := ds.Upsert(coll, d); err != nil {
				return nil, fmt.Errorf("export %s: %w", coll, err)
			}
		}
	}
	settings, err := c.GetSiteSettings(ctx)
	if err != nil {
		return nil, err
	}
	public := settings.Public()
	ds.SiteSettings = &public
	ds.Stamp(time.Now())
	return ds, nil
}

// ImportResult describes what an import did.
type ImportResult struct {
	Imported  int              `json:"imported"`
	Migration *MigrationReport `json:"migration,omitempty"`
}

// Import merges ds into the local store by id and then copies the local
// content to the active backend, if one is ready. Imported settings only
// contribute their public fields; the local backend configuration is kept.
// A remote failure is returned alongside the result: the local import
// stands.
func (c *Coordinator) Import(ctx context.Context, ds *content.Dataset) (ImportResult, error) {
	var res ImportResult
	for _, coll := range content.Collections {
		if coll == content.Settings {
			continue
		}
		docs, err := ds.Documents(coll)
		if err != nil {
			return res, err
		}
		for _, d := range docs {
			if err := c.local.Put(ctx, coll, d); err != nil {
				return res, fmt.Errorf("import %s %s: %w", coll, d.ID, err)
			}
			res.Imported++
		}
	}
	if ds.SiteSettings != nil {
		local, err := c.config.Load(ctx)
		if err != nil {
			return res, err
		}
		if _, err := c.config.Save(ctx, ds.SiteSettings.WithCredentialsFrom(local)); err != nil {
			return res, err
		}
		res.Imported++
	}
	c.logger.Info().Int("records", res.Imported).Msg("import merged locally")

	if !c.Backend(ctx).Ready() {
		return res, nil
	}
	report, err := c.Migrate(ctx)
	res.Migration = &report
	return res, err
}

// ClearContent removes every project, section, image and video from the
// local store and returns how many records went. Settings stay. Remote
// copies are untouched: the next Migrate merges into them by id.
func (c *Coordinator) ClearContent(ctx context.Context) (int, error) {
	cleared := 0
	for _, coll := range content.Collections {
		if coll == content.Settings {
			continue
		}
		n, err := c.local.Count(ctx, coll)
		if err != nil {
			return cleared, err
		}
		if err := c.local.Clear(ctx, coll); err != nil {
			return cleared, fmt.Errorf("clear %s: %w", coll, err)
		}
		cleared += n
	}
	c.logger.Info().Int("records", cleared).Msg("local content cleared")
	return cleared, nil
}
