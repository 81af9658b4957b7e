package remote

import (
	"context"
	"fmt"

	"github.com/eringen/folio/content"
)

// snapshotOps implements the point operations of a whole-document backend
// as pull, modify, push.
type snapshotOps struct {
	pull func(ctx context.Context) (*content.Dataset, error)
	push func(ctx context.Context, ds *content.Dataset) error
}

func (o snapshotOps) getAll(ctx context.Context, c content.Collection) ([]content.Document, error) {
	ds, err := o.pull(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Documents(c)
}

func (o snapshotOps) getOne(ctx context.Context, c content.Collection, id string) (content.Document, bool, error) {
	ds, err := o.pull(ctx)
	if err != nil {
		return content.Document{}, false, err
	}
	return ds.Find(c, id)
}

func (o snapshotOps) put(ctx context.Context, c content.Collection, d content.Document) error {
	ds, err := o.pull(ctx)
	if err != nil {
		return err
	}
	if err := ds.Upsert(c, d); err != nil {
		return fmt.Errorf("put %s %s: %w", c, d.ID, err)
	}
	return o.push(ctx, ds)
}

func (o snapshotOps) delete(ctx context.Context, c content.Collection, id string) error {
	ds, err := o.pull(ctx)
	if err != nil {
		return err
	}
	if !ds.Remove(c, id) {
		return nil
	}
	return o.push(ctx, ds)
}

// publishable returns the copy of ds that leaves the process: no export
// stamp and no credentials.
func publishable(ds *content.Dataset) *content.Dataset {
	out := *ds
	out.ExportDate = ""
	if ds.SiteSettings != nil {
		pub := ds.SiteSettings.Public()
		out.SiteSettings = &pub
	}
	return &out
}
