// Package syncer is the single entry point for reading and writing
// content. It keeps the local store and the configured remote backend
// eventually consistent: reads prefer the remote and mirror it locally,
// writes land locally first and are then pushed.
package syncer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/eringen/folio/blob"
	"github.com/eringen/folio/content"
	"github.com/eringen/folio/logging"
	"github.com/eringen/folio/remote"
)

// Local is the on-device store. *localstore.Store implements it.
type Local interface {
	GetAll(ctx context.Context, c content.Collection) ([]content.Document, error)
	GetOne(ctx context.Context, c content.Collection, id string) (content.Document, bool, error)
	Put(ctx context.Context, c content.Collection, d content.Document) error
	Delete(ctx context.Context, c content.Collection, id string) error
	Clear(ctx context.Context, c content.Collection) error
	Count(ctx context.Context, c content.Collection) (int, error)
}

// BackendFactory builds a backend from settings. remote.New is the
// default.
type BackendFactory func(s content.SiteSettings, opts remote.Options) (remote.Backend, error)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBackendFactory replaces remote.New.
func WithBackendFactory(f BackendFactory) Option {
	return func(c *Coordinator) {
		c.newBackend = f
	}
}

// WithRemoteOptions sets the options handed to the backend factory. The
// OnBinCreated hook is always installed by the coordinator.
func WithRemoteOptions(opts remote.Options) Option {
	return func(c *Coordinator) {
		c.remoteOpts = opts
	}
}

// WithBlobDeps sets what the blob facade needs (limit, uploads dir,
// endpoints).
func WithBlobDeps(deps blob.Deps) Option {
	return func(c *Coordinator) {
		c.blobDeps = deps
	}
}

// Coordinator owns the local store, the lazily built backend and the blob
// configuration. One is created per process.
type Coordinator struct {
	local      Local
	config     *ConfigStore
	logger     *logging.Logger
	newBackend BackendFactory
	remoteOpts remote.Options
	blobDeps   blob.Deps

	mu          sync.Mutex
	backend     remote.Backend
	fingerprint string
}

// New creates a coordinator over local.
func New(local Local, logger *logging.Logger, opts ...Option) *Coordinator {
	logger = logging.OrSilent(logger).With("syncer")
	c := &Coordinator{
		local:      local,
		config:     NewConfigStore(local),
		logger:     logger,
		newBackend: remote.New,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.remoteOpts.Logger == nil {
		c.remoteOpts.Logger = logger
	}
	if c.blobDeps.Logger == nil {
		c.blobDeps.Logger = logger
	}
	if c.blobDeps.Client == nil {
		c.blobDeps.Client = c.remoteOpts.Client
	}
	c.remoteOpts.OnBinCreated = c.recordBinID
	return c
}

// Config returns the configuration store.
func (c *Coordinator) Config() *ConfigStore { return c.config }

// Backend returns the backend for the current settings, rebuilding it when
// the backend configuration changed since the last call. Settings that
// cannot be read or a backend that cannot be built degrade to remote.None.
func (c *Coordinator) Backend(ctx context.Context) remote.Backend {
	settings, err := c.config.Load(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("settings unreadable, using no backend")
		return remote.None{}
	}
	fp := settings.Fingerprint()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend != nil && c.fingerprint == fp {
		return c.backend
	}
	if closer, ok := c.backend.(remote.Closer); ok {
		if err := closer.Close(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("closing previous backend")
		}
	}
	b, err := c.newBackend(settings, c.remoteOpts)
	if err != nil {
		c.logger.Warn().Err(err).Str("backend", string(settings.Backend)).Msg("backend unavailable")
		b = remote.None{}
	}
	c.backend = b
	c.fingerprint = fp
	c.logger.Info().Str("backend", string(b.Kind())).Bool("ready", b.Ready()).Msg("backend selected")
	return b
}

// Close releases the backend connection, if any.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	closer, ok := c.backend.(remote.Closer)
	c.backend = nil
	c.fingerprint = ""
	if ok {
		return closer.Close(ctx)
	}
	return nil
}

func (c *Coordinator) recordBinID(ctx context.Context, binID string) error {
	c.logger.Info().Str("bin_id", binID).Msg("recording new bin id")
	return c.config.SetBinID(ctx, binID)
}

// GetAll returns every record of coll. With a ready backend the remote
// copy is returned and mirrored locally; when the remote fails the local
// copy is returned instead. Storage failures degrade to an empty list.
func (c *Coordinator) GetAll(ctx context.Context, coll content.Collection) ([]content.Document, error) {
	if !coll.Valid() {
		return nil, fmt.Errorf("%w: unknown collection %q", content.ErrInvalid, coll)
	}
	if b := c.Backend(ctx); remote.Readable(b, coll) {
		docs, err := b.GetAll(ctx, coll)
		if err == nil {
			sortDocuments(docs)
			return c.mirror(ctx, coll, docs), nil
		}
		c.logger.Warn().Err(err).Str("collection", string(coll)).Msg("remote read failed, serving local copy")
	}

	docs, err := c.local.GetAll(ctx, coll)
	if err != nil {
		c.logger.Warn().Err(err).Str("collection", string(coll)).Msg("local read failed")
		return []content.Document{}, nil
	}
	return docs, nil
}

// GetOne returns one record of coll, preferring the remote like GetAll.
func (c *Coordinator) GetOne(ctx context.Context, coll content.Collection, id string) (content.Document, bool, error) {
	if !coll.Valid() {
		return content.Document{}, false, fmt.Errorf("%w: unknown collection %q", content.ErrInvalid, coll)
	}
	if b := c.Backend(ctx); remote.Readable(b, coll) {
		d, found, err := b.GetOne(ctx, coll, id)
		switch {
		case err != nil:
			c.logger.Warn().Err(err).Str("collection", string(coll)).Str("id", id).Msg("remote read failed, serving local copy")
		case found:
			docs := c.mirror(ctx, coll, []content.Document{d})
			return docs[0], true, nil
		case coll != content.Settings:
			return content.Document{}, false, nil
		}
	}

	d, found, err := c.local.GetOne(ctx, coll, id)
	if err != nil {
		c.logger.Warn().Err(err).Str("collection", string(coll)).Str("id", id).Msg("local read failed")
		return content.Document{}, false, nil
	}
	return d, found, nil
}

// mirror writes remote records into the local store. Settings read from a
// remote keep the local backend configuration and credentials; the merged
// record is what the caller gets back.
func (c *Coordinator) mirror(ctx context.Context, coll content.Collection, docs []content.Document) []content.Document {
	for i, d := range docs {
		if coll == content.Settings {
			merged, err := c.withLocalCredentials(ctx, d)
			if err != nil {
				c.logger.Warn().Err(err).Msg("remote settings unreadable, not mirrored")
				continue
			}
			docs[i] = merged
			d = merged
		}
		if err := c.local.Put(ctx, coll, d); err != nil {
			c.logger.Warn().Err(err).Str("collection", string(coll)).Str("id", d.ID).Msg("mirroring remote record failed")
		}
	}
	return docs
}

func (c *Coordinator) withLocalCredentials(ctx context.Context, d content.Document) (content.Document, error) {
	remoteSettings, err := content.Decode[content.SiteSettings](d)
	if err != nil {
		return d, err
	}
	local, err := c.config.Load(ctx)
	if err != nil {
		return d, err
	}
	merged := remoteSettings.WithCredentialsFrom(local)
	merged.Normalize()
	return content.Encode(merged)
}

// Put writes a record locally, then to the backend. Local failures and
// remote failures are both returned; a remote failure leaves the local
// write in place. A collection the backend does not store keeps the local
// write and reports content.ErrUnsupported, except site settings which
// are simply kept local.
func (c *Coordinator) Put(ctx context.Context, coll content.Collection, d content.Document) error {
	if !coll.Valid() {
		return fmt.Errorf("%w: unknown collection %q", content.ErrInvalid, coll)
	}
	if err := c.local.Put(ctx, coll, d); err != nil {
		return err
	}
	return c.push(ctx, coll, func(b remote.Backend) error {
		payload, err := remotePayload(coll, d)
		if err != nil {
			return err
		}
		return b.Put(ctx, coll, payload)
	})
}

// Delete removes a record locally, then from the backend.
func (c *Coordinator) Delete(ctx context.Context, coll content.Collection, id string) error {
	if !coll.Valid() {
		return fmt.Errorf("%w: unknown collection %q", content.ErrInvalid, coll)
	}
	if err := c.local.Delete(ctx, coll, id); err != nil {
		return err
	}
	return c.push(ctx, coll, func(b remote.Backend) error {
		return b.Delete(ctx, coll, id)
	})
}

// push forwards a local mutation. Snapshot backends get the whole local
// dataset; point backends get the single operation.
func (c *Coordinator) push(ctx context.Context, coll content.Collection, point func(remote.Backend) error) error {
	b := c.Backend(ctx)
	if !b.Ready() {
		return nil
	}
	if !remote.Supports(b, coll) {
		if coll == content.Settings {
			return nil
		}
		return fmt.Errorf("%w: %s are kept locally only on the %s backend", content.ErrUnsupported, coll, b.Kind())
	}

	var err error
	if sb, ok := b.(remote.SnapshotBackend); ok && b.Capabilities().Has(remote.CapSnapshot) {
		var ds *content.Dataset
		ds, err = c.collect(ctx)
		if err == nil {
			err = sb.Push(ctx, ds)
		}
	} else {
		err = point(b)
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("collection", string(coll)).Str("backend", string(b.Kind())).Msg("remote write failed")
		return err
	}
	return nil
}

// collect builds the full dataset from the local store.
func (c *Coordinator) collect(ctx context.Context) (*content.Dataset, error) {
	ds := content.NewDataset()
	for _, coll := range content.Collections {
		if coll == content.Settings {
			continue
		}
		docs, err := c.local.GetAll(ctx, coll)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if err := ds.Upsert(coll, d); err != nil {
				return nil, fmt.Errorf("collect %s: %w", coll, err)
			}
		}
	}
	settings, err := c.config.Load(ctx)
	if err != nil {
		return nil, err
	}
	ds.SiteSettings = &settings
	return ds, nil
}

// remotePayload strips credentials from settings before they leave the
// process.
func remotePayload(coll content.Collection, d content.Document) (content.Document, error) {
	if coll != content.Settings {
		return d, nil
	}
	s, err := content.Decode[content.SiteSettings](d)
	if err != nil {
		return d, err
	}
	return content.Encode(s.Public())
}

func sortDocuments(docs []content.Document) {
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Order < docs[j].Order })
}
