// Package remote talks to the backend that holds the canonical copy of the
// content when one is configured: a SurrealDB document store, a JSONBin bin
// or a JSON file in a GitHub repository.
package remote

import (
	"context"
	"fmt"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/logging"
)

// Capability is a bit set of what a backend can do.
type Capability uint16

const (
	CapRead Capability = 1 << iota
	CapWrite
	CapDelete
	CapBatchRead
	// CapVideos is set when the backend stores the videos collection.
	CapVideos
	// CapSnapshot marks whole-document backends: every write re-uploads the
	// full dataset.
	CapSnapshot
	// CapSettings is set when the backend stores the site settings record.
	CapSettings
)

// Has reports whether every bit of want is set.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// Backend is the uniform view of a remote store.
type Backend interface {
	Kind() content.BackendKind
	// Ready reports whether the backend has what it needs to be attempted.
	Ready() bool
	Capabilities() Capability
	GetAll(ctx context.Context, c content.Collection) ([]content.Document, error)
	GetOne(ctx context.Context, c content.Collection, id string) (content.Document, bool, error)
	Put(ctx context.Context, c content.Collection, d content.Document) error
	Delete(ctx context.Context, c content.Collection, id string) error
}

// SnapshotBackend stores the whole dataset as one document.
type SnapshotBackend interface {
	Backend
	Pull(ctx context.Context) (*content.Dataset, error)
	Push(ctx context.Context, ds *content.Dataset) error
}

// Closer is implemented by backends that hold a connection.
type Closer interface {
	Close(ctx context.Context) error
}

// Provisioner is implemented by backends whose remote document is created
// by the first write. Until then there is nothing to read.
type Provisioner interface {
	Provisioned() bool
}

// Readable reports whether reads of c should go to b.
func Readable(b Backend, c content.Collection) bool {
	if !b.Ready() || !Supports(b, c) {
		return false
	}
	if p, ok := b.(Provisioner); ok {
		return p.Provisioned()
	}
	return true
}

// Supports reports whether b stores collection c.
func Supports(b Backend, c content.Collection) bool {
	caps := b.Capabilities()
	switch c {
	case content.Videos:
		return caps.Has(CapVideos)
	case content.Settings:
		return caps.Has(CapSettings)
	}
	return caps.Has(CapRead | CapWrite)
}

// Options carries the collaborators shared by every backend.
type Options struct {
	Logger *logging.Logger
	Client *Client
	// OnBinCreated is called with the id of a bin created by the first push.
	OnBinCreated func(ctx context.Context, binID string) error

	// Endpoint overrides, used by tests.
	BinBaseURL    string
	GitAPIBaseURL string
	GitRawBaseURL string
}

// New builds the backend selected by settings.Backend. A selected backend
// whose required fields are missing is returned anyway and reports
// Ready() == false.
func New(s content.SiteSettings, opts Options) (Backend, error) {
	logger := logging.OrSilent(opts.Logger).With("remote")
	client := opts.Client
	if client == nil {
		client = NewClient(WithLogger(logger))
	}
	switch s.Backend {
	case "", content.BackendNone:
		return None{}, nil
	case content.BackendDocStore:
		return NewDocStore(s.DocStore, logger), nil
	case content.BackendBin:
		return NewBin(s.JSONBin, client, BinOptions{
			BaseURL:   opts.BinBaseURL,
			OnCreated: opts.OnBinCreated,
			Logger:    logger,
		}), nil
	case content.BackendGit:
		return NewGit(s.GitHub, client, GitOptions{
			APIBaseURL: opts.GitAPIBaseURL,
			RawBaseURL: opts.GitRawBaseURL,
			Logger:     logger,
		}), nil
	}
	return nil, fmt.Errorf("%w: unknown backend %q", content.ErrInvalid, s.Backend)
}
