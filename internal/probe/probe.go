// Package probe checks whether candidate asset URLs are reachable before they
// are offered as logos.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/brandprobe/internal/metrics"
	"github.com/JakeFAU/brandprobe/internal/policy/ratelimit"
)

// DefaultTimeout bounds a single probe when Options.Timeout is unset.
const DefaultTimeout = 3 * time.Second

// Options configures the HTTP prober.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Client    *http.Client
	Limiter   *ratelimit.Limiter
}

// HTTPProber issues a HEAD request and reports whether the target answered with
// a non-HTML 2xx response.
type HTTPProber struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	limiter   *ratelimit.Limiter
	logger    *zap.Logger
}

// New constructs an HTTPProber.
func New(opts Options, logger *zap.Logger) *HTTPProber {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPProber{
		client:    client,
		timeout:   timeout,
		userAgent: opts.UserAgent,
		limiter:   opts.Limiter,
		logger:    logger,
	}
}

// Exists reports whether url answered with a usable asset. It never retries;
// any failure counts as unreachable.
func (p *HTTPProber) Exists(ctx context.Context, url string) bool {
	ok, err := p.probe(ctx, url)
	if err != nil {
		p.logger.Debug("probe failed", zap.String("url", url), zap.Error(err))
	}
	metrics.ObserveProbe(ok)
	return ok
}

func (p *HTTPProber) probe(ctx context.Context, url string) (bool, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return false, fmt.Errorf("unsupported scheme")
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, url); err != nil {
			return false, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	metrics.ObserveFetch("probe", time.Since(start))
	if err != nil {
		return false, fmt.Errorf("head request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		if cerr := resp.Body.Close(); cerr != nil {
			p.logger.Debug("close probe body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("status %d", resp.StatusCode)
	}
	// Soft 404 pages come back as 200 text/html.
	if strings.HasPrefix(strings.ToLower(resp.Header.Get("Content-Type")), "text/html") {
		return false, fmt.Errorf("html response")
	}
	return true, nil
}
