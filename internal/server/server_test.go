package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/brandprobe/internal/brand"
	"github.com/JakeFAU/brandprobe/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestBuildServesHealthAndExtract(t *testing.T) {
	t.Parallel()

	app, err := Build(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(app.Close)

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"url":"amazon.com"}`)
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/extract", body))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "#FF9900")

	res, err := app.Extractor().Extract(context.Background(), "google.com", brand.ExtractOptions{})
	require.NoError(t, err)
	require.Equal(t, "#4285F4", res.BrandColor)
}

func TestBuildWithLocalStorageAndKnownBrandsFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	brandsFile := filepath.Join(dir, "brands.yaml")
	require.NoError(t, os.WriteFile(brandsFile, []byte(`brands:
  - domain: acme.test
    logo: https://acme.test/logo.svg
    brand_color: "#123456"
    industry: Manufacturing
`), 0o600))

	cfg := testConfig(t)
	cfg.Storage.Backend = config.StorageLocal
	cfg.Storage.LocalDir = filepath.Join(dir, "snapshots")
	cfg.Extractor.KnownBrandsFile = brandsFile

	core, logs := observer.New(zap.InfoLevel)
	app, err := Build(context.Background(), cfg, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(app.Close)

	res, err := app.Extractor().Extract(context.Background(), "https://acme.test", brand.ExtractOptions{})
	require.NoError(t, err)
	require.Equal(t, "#123456", res.BrandColor)
	require.Equal(t, "Manufacturing", res.Industry)
	require.Equal(t, 1, logs.FilterMessage("using local snapshot storage").Len())
	require.Equal(t, 1, logs.FilterMessage("known brands loaded").Len())
}

func TestBuildFailsOnUnreachableRedis(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Cache.Backend = config.BackendRedis
	cfg.Redis.URL = "redis://127.0.0.1:1/0"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := Build(ctx, cfg, zap.NewNop())
	require.ErrorContains(t, err, "redis cache init failed")
}

func TestBuildFailsOnMissingKnownBrandsFile(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Extractor.KnownBrandsFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Build(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Server.Port = 0
	app, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, app.Run(ctx))
}
