package models

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// rewriteClient redirects every request to the test server regardless of the
// registry URL.
func rewriteClient(t *testing.T, server *httptest.Server) *http.Client {
	t.Helper()
	target, err := url.Parse(server.URL)
	require.NoError(t, err)

	return &http.Client{Transport: rewriteTransport{target: target}}
}

// rewriteTransport sends every request to target, preserving the original
// path, so https registry URLs reach the plaintext test server.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = rt.target.Scheme
	clone.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(clone)
}

func TestDownloadUnknownModel(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	err := store.Download(context.Background(), "super-huge", DownloadOptions{NoProgress: true})
	require.ErrorIs(t, err, ErrUnknownModel)
}

func TestDownloadServerErrorRemovesPartialFile(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	store := NewStore(t.TempDir())
	err := store.Download(context.Background(), "tiny", DownloadOptions{
		Retries:    1,
		NoProgress: true,
		HTTPClient: rewriteClient(t, server),
	})
	require.Error(t, err)
	require.False(t, store.Has("tiny"))
}

func TestDownloadUndersizedArtifactFailsVerification(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not a real ggml file"))
	}))
	defer server.Close()

	store := NewStore(t.TempDir())
	err := store.Download(context.Background(), "tiny", DownloadOptions{
		Retries:    1,
		NoProgress: true,
		HTTPClient: rewriteClient(t, server),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "size verification")
	require.False(t, store.Has("tiny"), "partial download must be removed")
}

func TestDownloadHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewStore(t.TempDir())
	err := store.Download(ctx, "tiny", DownloadOptions{
		Retries:    3,
		NoProgress: true,
		HTTPClient: rewriteClient(t, server),
	})
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, store.Has("tiny"))
}
