package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/brandprobe/internal/brand"
	"github.com/JakeFAU/brandprobe/internal/clock/system"
)

func TestCacheRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := New(0, nil)
	rec := brand.Record{
		URL:              "acme.test",
		Logo:             "https://acme.test/logo.svg",
		BrandColor:       "#4285F4",
		AlternativeLogos: []string{"https://acme.test/alt.png"},
	}
	require.NoError(t, c.Put(ctx, rec))

	got, ok, err := c.Get(ctx, "acme.test")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec, got)

	got.AlternativeLogos[0] = "mutated"
	again, _, _ := c.Get(ctx, "acme.test")
	require.Equal(t, "https://acme.test/alt.png", again.AlternativeLogos[0])

	_, ok, err = c.Get(ctx, "https://acme.test")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCachePatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := system.NewFixed(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c := New(0, clk)
	require.NoError(t, c.Put(ctx, brand.Record{URL: "google.com", Logo: "/placeholder.svg", BrandColor: "#008F5D"}))

	color := "#4285F4"
	clk.Advance(time.Minute)
	require.NoError(t, c.Patch(ctx, "google.com", brand.RecordPatch{BrandColor: &color}))

	got, ok, err := c.Get(ctx, "google.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "#4285F4", got.BrandColor)
	require.Equal(t, "/placeholder.svg", got.Logo)
	require.Equal(t, clk.Now(), got.UpdatedAt)

	require.ErrorIs(t, c.Patch(ctx, "missing.test", brand.RecordPatch{BrandColor: &color}), brand.ErrNotFound)
}

func TestCacheExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := system.NewFixed(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c := New(time.Hour, clk)
	require.NoError(t, c.Put(ctx, brand.Record{URL: "acme.test", CreatedAt: clk.Now()}))

	_, ok, _ := c.Get(ctx, "acme.test")
	require.True(t, ok)

	clk.Advance(2 * time.Hour)
	_, ok, _ = c.Get(ctx, "acme.test")
	require.False(t, ok)
}

func TestCachePutRequiresURL(t *testing.T) {
	t.Parallel()

	require.Error(t, New(0, nil).Put(context.Background(), brand.Record{}))
}
