package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/remote"
)

// DefaultCloudinaryBaseURL is the Cloudinary upload API root.
const DefaultCloudinaryBaseURL = "https://api.cloudinary.com"

// Hosted uploads to Cloudinary with an unsigned upload preset and records
// only the returned URL and deletion token.
type Hosted struct {
	cfg     content.CloudinarySettings
	client  *remote.Client
	baseURL string
}

// NewHosted creates a Cloudinary store. An empty baseURL means the public
// API.
func NewHosted(cfg content.CloudinarySettings, client *remote.Client, baseURL string) *Hosted {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultCloudinaryBaseURL
	}
	return &Hosted{cfg: cfg, client: client, baseURL: baseURL}
}

func (h *Hosted) Mode() content.BlobMode { return content.BlobHosted }

type uploadResponse struct {
	SecureURL   string `json:"secure_url"`
	DeleteToken string `json:"delete_token"`
	Bytes       int64  `json:"bytes"`
}

func (h *Hosted) Put(ctx context.Context, name, contentType string, data []byte) (content.Media, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return content.Media{}, fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return content.Media{}, fmt.Errorf("build upload: %w", err)
	}
	if err := w.WriteField("upload_preset", h.cfg.UploadPreset); err != nil {
		return content.Media{}, fmt.Errorf("build upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return content.Media{}, fmt.Errorf("build upload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/auto/upload", h.baseURL, url.PathEscape(h.cfg.CloudName))
	raw, err := h.client.Do(ctx, remote.Request{
		Method:      http.MethodPost,
		URL:         endpoint,
		Body:        &body,
		ContentType: w.FormDataContentType(),
	})
	if err != nil {
		return content.Media{}, classify("upload "+name, err)
	}

	var resp uploadResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.SecureURL == "" {
		return content.Media{}, fmt.Errorf("%w: upload %s: response carries no secure_url", content.ErrRemoteUnavailable, name)
	}
	size := resp.Bytes
	if size == 0 {
		size = int64(len(data))
	}
	return content.Media{URL: resp.SecureURL, DeleteToken: resp.DeleteToken, Size: size}, nil
}

// Remove deletes the upload with its deletion token. Tokens expire after
// ten minutes; without one there is nothing to do.
func (h *Hosted) Remove(ctx context.Context, m content.Media) error {
	if m.DeleteToken == "" {
		return nil
	}
	form := url.Values{"token": {m.DeleteToken}}
	_, err := h.client.Do(ctx, remote.Request{
		Method:      http.MethodPost,
		URL:         fmt.Sprintf("%s/v1_1/%s/delete_by_token", h.baseURL, url.PathEscape(h.cfg.CloudName)),
		Body:        strings.NewReader(form.Encode()),
		ContentType: "application/x-www-form-urlencoded",
	})
	if err != nil {
		return classify("delete upload", err)
	}
	return nil
}

// classify maps a hosting failure: a 4xx answer is a rejection the
// operator has to fix, anything else is transient.
func classify(op string, err error) error {
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		if !apiErr.Temporary() {
			return fmt.Errorf("%w: %s: %s", content.ErrBlobUploadRejected, op, apiErr.Message)
		}
		return fmt.Errorf("%w: %s: %v", content.ErrRemoteUnavailable, op, apiErr)
	}
	if errors.Is(err, content.ErrRemoteUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", content.ErrRemoteUnavailable, op, err)
}
