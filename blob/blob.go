// Package blob turns an uploaded file into the content reference an image
// or video record stores: inline data, or the URL of a copy kept by a
// hosting service, the git repository or the local uploads directory.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/logging"
	"github.com/eringen/folio/remote"
)

// DefaultLimit is the largest file accepted when no limit is configured.
const DefaultLimit int64 = 25 << 20

// File is an upload waiting to be stored. Size is the declared length;
// a negative size means unknown and is enforced while reading.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store persists file bytes somewhere and returns the reference to them.
type Store interface {
	Mode() content.BlobMode
	Put(ctx context.Context, name, contentType string, data []byte) (content.Media, error)
}

// Remover is implemented by stores that can delete what they stored.
type Remover interface {
	Remove(ctx context.Context, m content.Media) error
}

// Deps are the collaborators and locations the stores need.
type Deps struct {
	Client *remote.Client
	Logger *logging.Logger
	// Limit overrides DefaultLimit when positive.
	Limit int64
	// UploadsDir and UploadsURL locate disk mode files.
	UploadsDir string
	UploadsURL string

	// Endpoint overrides, used by tests.
	CloudinaryBaseURL string
	GitAPIBaseURL     string
	GitRawBaseURL     string
}

// Facade applies the size limit and hands the bytes to the store selected
// by the settings.
type Facade struct {
	Limit int64

	store    Store
	storeErr error
	logger   *logging.Logger
}

// New wraps a store directly.
func New(store Store, limit int64, logger *logging.Logger) *Facade {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Facade{Limit: limit, store: store, logger: logging.OrSilent(logger).With("blob")}
}

// Open builds the facade for the blob mode in s. A mode that is selected
// but not configured yields a facade whose uploads fail with
// content.ErrBlobNotConfigured, after the size check.
func Open(s content.SiteSettings, deps Deps) *Facade {
	store, err := storeFor(s, deps)
	f := New(store, deps.Limit, deps.Logger)
	f.storeErr = err
	return f
}

func storeFor(s content.SiteSettings, deps Deps) (Store, error) {
	client := deps.Client
	if client == nil {
		client = remote.NewClient(remote.WithLogger(logging.OrSilent(deps.Logger)))
	}
	switch s.BlobMode {
	case "", content.BlobInline:
		return Inline{}, nil
	case content.BlobHosted:
		if !s.Cloudinary.Configured() {
			return nil, fmt.Errorf("%w: hosted mode needs a cloud name and an unsigned upload preset", content.ErrBlobNotConfigured)
		}
		return NewHosted(s.Cloudinary, client, deps.CloudinaryBaseURL), nil
	case content.BlobGit:
		if !s.GitHub.Configured() {
			return nil, fmt.Errorf("%w: git mode needs the repository owner, name and token", content.ErrBlobNotConfigured)
		}
		g := remote.NewGit(s.GitHub, client, remote.GitOptions{
			APIBaseURL: deps.GitAPIBaseURL,
			RawBaseURL: deps.GitRawBaseURL,
			Logger:     deps.Logger,
		})
		return NewRepo(g), nil
	case content.BlobDisk:
		if deps.UploadsDir == "" {
			return nil, fmt.Errorf("%w: disk mode needs an uploads directory", content.ErrBlobNotConfigured)
		}
		return NewDisk(deps.UploadsDir, deps.UploadsURL), nil
	}
	return nil, fmt.Errorf("%w: unknown blob mode %q", content.ErrBlobNotConfigured, s.BlobMode)
}

// Mode is the active blob mode, empty when none could be built.
func (f *Facade) Mode() content.BlobMode {
	if f.store == nil {
		return ""
	}
	return f.store.Mode()
}

// Upload stores file and returns the reference to record. The size limit
// is checked before anything is read or sent: a file of exactly Limit
// bytes is accepted, one byte more is not.
func (f *Facade) Upload(ctx context.Context, file File) (content.Media, error) {
	if file.Size > f.Limit {
		return content.Media{}, &content.BlobTooLargeError{Size: file.Size, Limit: f.Limit}
	}
	if f.storeErr != nil {
		return content.Media{}, f.storeErr
	}
	if f.store == nil {
		return content.Media{}, content.ErrBlobNotConfigured
	}
	if file.Body == nil {
		return content.Media{}, fmt.Errorf("%w: empty upload", content.ErrInvalid)
	}

	data, err := io.ReadAll(io.LimitReader(file.Body, f.Limit+1))
	if err != nil {
		return content.Media{}, fmt.Errorf("read upload %s: %w", file.Name, err)
	}
	if int64(len(data)) > f.Limit {
		return content.Media{}, &content.BlobTooLargeError{Size: int64(len(data)), Limit: f.Limit}
	}

	ct := contentType(file, data)
	media, err := f.store.Put(ctx, file.Name, ct, data)
	if err != nil {
		f.logger.Warn().Err(err).Str("mode", string(f.store.Mode())).Str("file", file.Name).Msg("upload failed")
		return content.Media{}, err
	}
	if media.Size == 0 {
		media.Size = int64(len(data))
	}
	f.logger.Debug().Str("mode", string(f.store.Mode())).Str("file", file.Name).Int64("size", media.Size).Msg("upload stored")
	return media, nil
}

// Remove deletes the stored copy when the store supports it. Inline data
// and stores without deletion are left alone.
func (f *Facade) Remove(ctx context.Context, m content.Media) error {
	if m.Inline() || f.store == nil {
		return nil
	}
	r, ok := f.store.(Remover)
	if !ok {
		return nil
	}
	if err := r.Remove(ctx, m); err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// contentType trusts the declared type, then the extension, then sniffing.
func contentType(file File, data []byte) string {
	if file.ContentType != "" && file.ContentType != "application/octet-stream" {
		return file.ContentType
	}
	if ct := mime.TypeByExtension(filepath.Ext(file.Name)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
