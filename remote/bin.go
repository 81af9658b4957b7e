package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/logging"
)

// DefaultBinBaseURL is the JSONBin v3 API root.
const DefaultBinBaseURL = "https://api.jsonbin.io/v3"

// BinOptions configures a Bin backend.
type BinOptions struct {
	BaseURL   string
	OnCreated func(ctx context.Context, binID string) error
	Logger    *logging.Logger
}

// Bin keeps the whole dataset as one JSONBin document. Point operations
// pull the bin, modify it and push it back.
type Bin struct {
	client    *Client
	baseURL   string
	apiKey    string
	onCreated func(ctx context.Context, binID string) error
	logger    *logging.Logger

	mu       sync.Mutex
	binID    string
	createMu sync.Mutex
	ops      snapshotOps
}

// NewBin creates a bin backend. With an empty BinID the first push creates
// the bin and reports its id through OnCreated.
func NewBin(s content.BinSettings, client *Client, opts BinOptions) *Bin {
	b := &Bin{
		client:    client,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		apiKey:    s.APIKey,
		binID:     s.BinID,
		onCreated: opts.OnCreated,
		logger:    logging.OrSilent(opts.Logger),
	}
	if b.baseURL == "" {
		b.baseURL = DefaultBinBaseURL
	}
	b.ops = snapshotOps{pull: b.Pull, push: b.Push}
	return b
}

func (b *Bin) Kind() content.BackendKind { return content.BackendBin }
func (b *Bin) Ready() bool               { return b.apiKey != "" }

func (b *Bin) Capabilities() Capability {
	return CapRead | CapWrite | CapDelete | CapBatchRead | CapVideos | CapSnapshot | CapSettings
}

// BinID returns the current bin id, empty until the bin exists.
func (b *Bin) BinID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.binID
}

// Provisioned reports whether the bin exists yet.
func (b *Bin) Provisioned() bool { return b.BinID() != "" }

func (b *Bin) header() http.Header {
	h := http.Header{}
	h.Set("X-Master-Key", b.apiKey)
	return h
}

// Pull fetches the latest version of the bin. Without a bin id there is
// nothing remote yet and the dataset is empty.
func (b *Bin) Pull(ctx context.Context) (*content.Dataset, error) {
	id := b.BinID()
	if id == "" {
		return content.NewDataset(), nil
	}
	req := Request{Method: http.MethodGet, URL: b.baseURL + "/b/" + id + "/latest", Header: b.header()}
	req.Header.Set("X-Bin-Meta", "false")
	body, err := b.client.Do(ctx, req)
	if err != nil {
		return nil, binError("pull bin", err)
	}
	ds, err := content.ParseDataset(body)
	if err != nil {
		return nil, fmt.Errorf("%w: bin %s holds an unreadable document: %v", content.ErrRemoteUnavailable, id, err)
	}
	return ds, nil
}

// Push uploads ds as the new bin content, creating the bin on first use.
func (b *Bin) Push(ctx context.Context, ds *content.Dataset) error {
	doc := publishable(ds)
	id := b.BinID()
	if id != "" {
		req, err := JSONRequest(http.MethodPut, b.baseURL+"/b/"+id, doc)
		if err != nil {
			return err
		}
		req.Header = b.header()
		if _, err := b.client.Do(ctx, req); err != nil {
			return binError("update bin", err)
		}
		return nil
	}
	return b.create(ctx, doc)
}

func (b *Bin) create(ctx context.Context, doc *content.Dataset) error {
	b.createMu.Lock()
	defer b.createMu.Unlock()
	if id := b.BinID(); id != "" {
		// another push created it meanwhile
		return b.Push(ctx, doc)
	}

	req, err := JSONRequest(http.MethodPost, b.baseURL+"/b", doc)
	if err != nil {
		return err
	}
	req.Header = b.header()
	req.Header.Set("X-Bin-Name", "portfolio")
	req.Header.Set("X-Bin-Private", "true")
	body, err := b.client.Do(ctx, req)
	if err != nil {
		return binError("create bin", err)
	}

	var created struct {
		Metadata struct {
			ID string `json:"id"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.Metadata.ID == "" {
		return fmt.Errorf("%w: create bin: response carries no bin id", content.ErrRemoteUnavailable)
	}

	b.mu.Lock()
	b.binID = created.Metadata.ID
	b.mu.Unlock()
	b.logger.Info().Str("bin_id", created.Metadata.ID).Msg("bin created")

	if b.onCreated != nil {
		if err := b.onCreated(ctx, created.Metadata.ID); err != nil {
			return fmt.Errorf("record bin id %s: %w", created.Metadata.ID, err)
		}
	}
	return nil
}

func (b *Bin) GetAll(ctx context.Context, c content.Collection) ([]content.Document, error) {
	return b.ops.getAll(ctx, c)
}

func (b *Bin) GetOne(ctx context.Context, c content.Collection, id string) (content.Document, bool, error) {
	return b.ops.getOne(ctx, c, id)
}

func (b *Bin) Put(ctx context.Context, c content.Collection, d content.Document) error {
	return b.ops.put(ctx, c, d)
}

func (b *Bin) Delete(ctx context.Context, c content.Collection, id string) error {
	return b.ops.delete(ctx, c, id)
}

// binError classifies a JSONBin failure. Every rejection, including bad
// keys and a missing bin, is reported as the remote being unavailable.
func binError(op string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s: %w", content.ErrRemoteUnavailable, op, apiErr)
	}
	return unavailable(op, err)
}
