package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/logging"
)

const (
	DefaultGitAPIBaseURL = "https://api.github.com"
	DefaultGitRawBaseURL = "https://raw.githubusercontent.com"
)

// GitOptions configures a Git backend.
type GitOptions struct {
	APIBaseURL string
	RawBaseURL string
	Logger     *logging.Logger
}

// Git keeps the dataset as a JSON file in a GitHub repository, written
// through the contents API. Every write carries the blob SHA of the
// document it is based on, so a commit made in between makes the write
// fail with content.ErrRemoteConflict instead of being overwritten.
type Git struct {
	client  *Client
	cfg     content.GitSettings
	apiBase string
	rawBase string
	logger  *logging.Logger

	mu sync.Mutex
	// base is the marker of the document last read or committed.
	base    string
	hasBase bool
}

// NewGit creates a git backend for the repository described by s.
func NewGit(s content.GitSettings, client *Client, opts GitOptions) *Git {
	g := &Git{
		client:  client,
		cfg:     s.WithDefaults(),
		apiBase: strings.TrimRight(opts.APIBaseURL, "/"),
		rawBase: strings.TrimRight(opts.RawBaseURL, "/"),
		logger:  logging.OrSilent(opts.Logger),
	}
	if g.apiBase == "" {
		g.apiBase = DefaultGitAPIBaseURL
	}
	if g.rawBase == "" {
		g.rawBase = DefaultGitRawBaseURL
	}
	return g
}

func (g *Git) Kind() content.BackendKind { return content.BackendGit }
func (g *Git) Ready() bool               { return g.cfg.Configured() }

func (g *Git) Capabilities() Capability {
	caps := CapRead | CapWrite | CapDelete | CapBatchRead | CapSnapshot
	if g.cfg.IncludeVideos {
		caps |= CapVideos
	}
	return caps
}

// ImagesFolder is the repository folder binary assets are committed to.
func (g *Git) ImagesFolder() string { return g.cfg.ImagesFolder }

func (g *Git) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.apiBase,
		url.PathEscape(g.cfg.Owner), url.PathEscape(g.cfg.Repo), escapePath(path))
}

func (g *Git) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "token "+g.cfg.Token)
	h.Set("Accept", "application/vnd.github.v3+json")
	return h
}

type contentsFile struct {
	SHA         string `json:"sha"`
	Content     string `json:"content"`
	Encoding    string `json:"encoding"`
	DownloadURL string `json:"download_url"`
}

// getFile reads a repository file. A missing file is reported with
// found == false.
func (g *Git) getFile(ctx context.Context, path string) (file contentsFile, found bool, err error) {
	req := Request{Method: http.MethodGet, URL: g.contentsURL(path) + "?ref=" + url.QueryEscape(g.cfg.Branch), Header: g.header()}
	body, err := g.client.Do(ctx, req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return contentsFile{}, false, nil
		}
		return contentsFile{}, false, gitError("read "+path, err)
	}
	if err := json.Unmarshal(body, &file); err != nil {
		return contentsFile{}, false, fmt.Errorf("%w: read %s: %v", content.ErrRemoteUnavailable, path, err)
	}
	return file, true, nil
}

// Fetch returns the content document and its revision marker. A repository
// without the document yields an empty dataset and an empty marker.
func (g *Git) Fetch(ctx context.Context) (*content.Dataset, string, error) {
	ds, sha, err := g.fetch(ctx)
	if err == nil {
		g.remember(sha)
	}
	return ds, sha, err
}

func (g *Git) fetch(ctx context.Context) (*content.Dataset, string, error) {
	file, found, err := g.getFile(ctx, g.cfg.Path)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return content.NewDataset(), "", nil
	}

	var raw []byte
	if file.Content != "" {
		raw, err = base64.StdEncoding.DecodeString(stripWhitespace(file.Content))
		if err != nil {
			return nil, "", fmt.Errorf("%w: decode %s: %v", content.ErrRemoteUnavailable, g.cfg.Path, err)
		}
	} else if file.DownloadURL != "" {
		// the contents API leaves content empty for files over 1 MB
		raw, err = g.client.Do(ctx, Request{Method: http.MethodGet, URL: file.DownloadURL, Header: g.header()})
		if err != nil {
			return nil, "", gitError("download "+g.cfg.Path, err)
		}
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return content.NewDataset(), file.SHA, nil
	}

	var doc content.GitDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, "", fmt.Errorf("%w: %s is not a content document: %v", content.ErrRemoteUnavailable, g.cfg.Path, err)
	}
	return doc.Dataset(), file.SHA, nil
}

type commitRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch"`
}

// Commit writes ds as the content document. sha must be the marker
// returned by the Fetch this write is based on, or empty when the document
// does not exist yet.
func (g *Git) Commit(ctx context.Context, ds *content.Dataset, sha string) error {
	raw, err := json.MarshalIndent(publishable(ds).GitDocument(g.cfg.IncludeVideos), "", "  ")
	if err != nil {
		return fmt.Errorf("encode content document: %w", err)
	}
	body, err := g.putFile(ctx, g.cfg.Path, raw, sha, "Update portfolio content")
	if err != nil {
		return err
	}
	var resp struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
	}
	if json.Unmarshal(body, &resp) == nil && resp.Content.SHA != "" {
		g.remember(resp.Content.SHA)
	} else {
		g.forget()
	}
	return nil
}

func (g *Git) remember(sha string) {
	g.mu.Lock()
	g.base, g.hasBase = sha, true
	g.mu.Unlock()
}

func (g *Git) forget() {
	g.mu.Lock()
	g.base, g.hasBase = "", false
	g.mu.Unlock()
}

// Base returns the marker of the document last read or committed through
// g. ok is false before the first read.
func (g *Git) Base() (sha string, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.base, g.hasBase
}

func (g *Git) putFile(ctx context.Context, path string, data []byte, sha, message string) ([]byte, error) {
	req, err := JSONRequest(http.MethodPut, g.contentsURL(path), commitRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(data),
		SHA:     sha,
		Branch:  g.cfg.Branch,
	})
	if err != nil {
		return nil, err
	}
	req.Header = g.header()
	body, err := g.client.Do(ctx, req)
	if err != nil {
		return nil, gitError("commit "+path, err)
	}
	g.logger.Debug().Str("path", path).Str("base_sha", sha).Msg("committed")
	return body, nil
}

// PutFile commits a binary asset and returns its raw download URL. An
// existing file at path is replaced.
func (g *Git) PutFile(ctx context.Context, path string, data []byte) (string, error) {
	existing, found, err := g.getFile(ctx, path)
	if err != nil {
		return "", err
	}
	sha := ""
	if found {
		sha = existing.SHA
	}
	name := path[strings.LastIndex(path, "/")+1:]
	if _, err := g.putFile(ctx, path, data, sha, "Upload "+name); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s", g.rawBase, g.cfg.Owner, g.cfg.Repo, g.cfg.Branch, escapePath(path)), nil
}

// Pull returns the current dataset.
func (g *Git) Pull(ctx context.Context) (*content.Dataset, error) {
	ds, _, err := g.Fetch(ctx)
	return ds, err
}

// Push replaces the document with ds, committing against the revision
// last read or committed through g. A commit made by anyone else since then
// surfaces as content.ErrRemoteConflict. Before the first read the current
// marker is fetched.
func (g *Git) Push(ctx context.Context, ds *content.Dataset) error {
	sha, ok := g.Base()
	if !ok {
		var err error
		if _, sha, err = g.Fetch(ctx); err != nil {
			return err
		}
	}
	return g.Commit(ctx, ds, sha)
}

func (g *Git) check(c content.Collection) error {
	if !Supports(g, c) {
		return fmt.Errorf("%w: %s on the git backend", content.ErrUnsupported, c)
	}
	return nil
}

func (g *Git) GetAll(ctx context.Context, c content.Collection) ([]content.Document, error) {
	if err := g.check(c); err != nil {
		return nil, err
	}
	ds, _, err := g.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Documents(c)
}

func (g *Git) GetOne(ctx context.Context, c content.Collection, id string) (content.Document, bool, error) {
	if err := g.check(c); err != nil {
		return content.Document{}, false, err
	}
	ds, _, err := g.Fetch(ctx)
	if err != nil {
		return content.Document{}, false, err
	}
	return ds.Find(c, id)
}

// Put upserts one record into the document fetched at the same revision it
// commits against.
func (g *Git) Put(ctx context.Context, c content.Collection, d content.Document) error {
	if err := g.check(c); err != nil {
		return err
	}
	ds, sha, err := g.Fetch(ctx)
	if err != nil {
		return err
	}
	if err := ds.Upsert(c, d); err != nil {
		return err
	}
	return g.Commit(ctx, ds, sha)
}

func (g *Git) Delete(ctx context.Context, c content.Collection, id string) error {
	if err := g.check(c); err != nil {
		return err
	}
	ds, sha, err := g.Fetch(ctx)
	if err != nil {
		return err
	}
	if !ds.Remove(c, id) {
		return nil
	}
	return g.Commit(ctx, ds, sha)
}

// gitError classifies a contents API failure. A stale or missing marker
// is answered with 409, or 422 naming the sha.
func gitError(op string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusConflict ||
			(apiErr.StatusCode == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(apiErr.Message), "sha")) {
			return fmt.Errorf("%w: %s: %w", content.ErrRemoteConflict, op, apiErr)
		}
		return fmt.Errorf("%w: %s: %w", content.ErrRemoteUnavailable, op, apiErr)
	}
	return unavailable(op, err)
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
}
