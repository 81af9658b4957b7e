package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/folio/content"
)

func TestClientDoReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Upload preset not found"}}`)
	}))
	defer srv.Close()

	_, err := NewClient().Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL + "/x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Upload preset not found", apiErr.Message)
	assert.False(t, apiErr.Temporary())
}

func TestClientDoSendsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "v", r.Header.Get("X-Test"))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	req, err := JSONRequest(http.MethodPost, srv.URL, map[string]string{"a": "b"})
	require.NoError(t, err)
	req.Header.Set("X-Test", "v")
	body, err := NewClient().Do(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestClientTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(WithTimeout(time.Second)).Do(context.Background(), Request{Method: http.MethodGet, URL: url})
	assert.ErrorIs(t, err, content.ErrRemoteUnavailable)
}

func TestClientHonoursCancelledContext(t *testing.T) {
	c := NewClient(WithRateLimit(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Do(ctx, Request{Method: http.MethodGet, URL: "http://127.0.0.1:1"})
	assert.ErrorIs(t, err, content.ErrRemoteUnavailable)
}

func TestAPIErrorTemporary(t *testing.T) {
	assert.True(t, (&APIError{StatusCode: 503}).Temporary())
	assert.True(t, (&APIError{StatusCode: 429}).Temporary())
	assert.False(t, (&APIError{StatusCode: 404}).Temporary())
}
