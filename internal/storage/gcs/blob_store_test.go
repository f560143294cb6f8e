package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestStore(t *testing.T, handler http.Handler, cfg Config) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := Open(context.Background(), cfg, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutObjectUploadsSnapshot(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/snapshots/o")
		assert.Equal(t, "html/acme.test/abc.html", r.URL.Query().Get("name"))
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), "<html>acme</html>")
		assert.Contains(t, string(body), "text/html")

		fmt.Fprintln(w, `{"name":"html/acme.test/abc.html","bucket":"snapshots"}`)
	})

	store := newTestStore(t, handler, Config{Bucket: "snapshots", Prefix: "/html/"})
	uri, err := store.PutObject(context.Background(), "acme.test/abc.html", "text/html", strings.NewReader("<html>acme</html>"))
	require.NoError(t, err)
	require.Equal(t, "gs://snapshots/html/acme.test/abc.html", uri)
}

func TestPutObjectServerError(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	store := newTestStore(t, handler, Config{Bucket: "snapshots"})
	_, err := store.PutObject(context.Background(), "acme.test/abc.html", "text/html", strings.NewReader("x"))
	require.Error(t, err)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)

	store := newTestStore(t, http.NotFoundHandler(), Config{Bucket: "b"})
	_, err = New(store.client, Config{})
	require.Error(t, err)

	_, err = store.PutObject(context.Background(), " ", "", strings.NewReader(""))
	require.Error(t, err)
}
