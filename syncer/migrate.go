package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/remote"
)

// CollectionReport counts the outcome of migrating one collection.
type CollectionReport struct {
	Collection content.Collection `json:"collection"`
	Copied     int                `json:"copied"`
	Failed     int                `json:"failed"`
	// Skipped counts records the backend cannot store.
	Skipped int `json:"skipped"`
}

// MigrationReport is the result of copying the local store into a backend.
type MigrationReport struct {
	Backend     content.BackendKind `json:"backend"`
	Collections []CollectionReport  `json:"collections"`
}

// Copied totals the records copied across collections.
func (r MigrationReport) Copied() int {
	n := 0
	for _, c := range r.Collections {
		n += c.Copied
	}
	return n
}

// Failed totals the records that could not be copied.
func (r MigrationReport) Failed() int {
	n := 0
	for _, c := range r.Collections {
		n += c.Failed
	}
	return n
}

// Migrate copies every local record into the active backend. Point
// backends get one Put per record and the copy continues past failures.
// Snapshot backends get the remote document merged with the local records
// by id in a single push. Nothing is rolled back; running it again is
// safe.
func (c *Coordinator) Migrate(ctx context.Context) (MigrationReport, error) {
	b := c.Backend(ctx)
	report := MigrationReport{Backend: b.Kind()}
	if !b.Ready() {
		return report, fmt.Errorf("%w: select and configure a backend first", content.ErrRemoteNotConfigured)
	}

	local, err := c.collect(ctx)
	if err != nil {
		return report, err
	}

	if sb, ok := b.(remote.SnapshotBackend); ok && b.Capabilities().Has(remote.CapSnapshot) {
		return c.migrateSnapshot(ctx, sb, local, report)
	}
	return c.migratePoints(ctx, b, local, report)
}

func (c *Coordinator) migrateSnapshot(ctx context.Context, b remote.SnapshotBackend, local *content.Dataset, report MigrationReport) (MigrationReport, error) {
	merged, err := b.Pull(ctx)
	if err != nil {
		return report, err
	}
	if err := merged.Merge(local); err != nil {
		return report, err
	}
	pushErr := b.Push(ctx, merged)

	for _, coll := range content.Collections {
		docs, err := local.Documents(coll)
		if err != nil {
			return report, err
		}
		cr := CollectionReport{Collection: coll}
		switch {
		case !remote.Supports(b, coll):
			cr.Skipped = len(docs)
		case pushErr != nil:
			cr.Failed = len(docs)
		default:
			cr.Copied = len(docs)
		}
		report.Collections = append(report.Collections, cr)
	}
	if pushErr != nil {
		c.logger.Error().Err(pushErr).Str("backend", string(b.Kind())).Msg("migration push failed")
		return report, pushErr
	}
	c.logger.Info().Str("backend", string(b.Kind())).Int("copied", report.Copied()).Msg("migration complete")
	return report, nil
}

func (c *Coordinator) migratePoints(ctx context.Context, b remote.Backend, local *content.Dataset, report MigrationReport) (MigrationReport, error) {
	var errs []error
	for _, coll := range content.Collections {
		docs, err := local.Documents(coll)
		if err != nil {
			return report, err
		}
		cr := CollectionReport{Collection: coll}
		if !remote.Supports(b, coll) {
			cr.Skipped = len(docs)
			report.Collections = append(report.Collections, cr)
			continue
		}
		for _, d := range docs {
			payload, err := remotePayload(coll, d)
			if err == nil {
				err = b.Put(ctx, coll, payload)
			}
			if err != nil {
				cr.Failed++
				errs = append(errs, fmt.Errorf("%s %s: %w", coll, d.ID, err))
				c.logger.Warn().Err(err).Str("collection", string(coll)).Str("id", d.ID).Msg("record not migrated")
				continue
			}
			cr.Copied++
		}
		report.Collections = append(report.Collections, cr)
	}
	c.logger.Info().
		Str("backend", string(b.Kind())).
		Int("copied", report.Copied()).
		Int("failed", report.Failed()).
		Msg("migration complete")
	return report, errors.Join(errs...)
}

// Configure stores a new backend and blob configuration. Only the backend
// and blob fields of next are applied; bio text and footer links are left
// alone. A secret left empty keeps the stored one, so forms never need to
// echo credentials back. With migrate set and a ready backend, the local
// content is copied into it.
func (c *Coordinator) Configure(ctx context.Context, next content.SiteSettings, migrate bool) (content.SiteSettings, *MigrationReport, error) {
	current, err := c.config.Load(ctx)
	if err != nil {
		return current, nil, err
	}

	if next.JSONBin.APIKey == "" {
		next.JSONBin.APIKey = current.JSONBin.APIKey
	}
	if next.JSONBin.BinID == "" && next.JSONBin.APIKey == current.JSONBin.APIKey {
		next.JSONBin.BinID = current.JSONBin.BinID
	}
	if next.GitHub.Token == "" {
		next.GitHub.Token = current.GitHub.Token
	}
	if next.DocStore.Password == "" {
		next.DocStore.Password = current.DocStore.Password
	}

	current.Backend = next.Backend
	current.BlobMode = next.BlobMode
	current.JSONBin = next.JSONBin
	current.GitHub = next.GitHub
	current.DocStore = next.DocStore
	current.Cloudinary = next.Cloudinary

	saved, err := c.config.Save(ctx, current)
	if err != nil {
		return saved, nil, err
	}
	c.logger.Info().Str("backend", string(saved.Backend)).Str("blob_mode", string(saved.BlobMode)).Msg("configuration saved")

	if !migrate || !c.Backend(ctx).Ready() {
		return saved, nil, nil
	}
	report, err := c.Migrate(ctx)
	if err != nil {
		return saved, &report, err
	}
	// A bin created by the migration updated the stored settings.
	if fresh, loadErr := c.config.Load(ctx); loadErr == nil {
		saved = fresh
	}
	return saved, &report, nil
}
