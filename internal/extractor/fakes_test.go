package extractor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/JakeFAU/brandprobe/internal/brand"
)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]brand.FetchResponse
	err   error
	calls int
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	f := &fakeFetcher{pages: make(map[string]brand.FetchResponse)}
	for u, body := range pages {
		f.pages[u] = brand.FetchResponse{URL: u, StatusCode: http.StatusOK, Body: []byte(body)}
	}
	return f
}

func (f *fakeFetcher) Fetch(_ context.Context, req brand.FetchRequest) (brand.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return brand.FetchResponse{}, f.err
	}
	resp, ok := f.pages[req.URL]
	if !ok {
		return brand.FetchResponse{URL: req.URL, StatusCode: http.StatusNotFound}, nil
	}
	return resp, nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeProber struct {
	mu        sync.Mutex
	reachable map[string]bool
	probed    []string
}

func newFakeProber(urls ...string) *fakeProber {
	p := &fakeProber{reachable: make(map[string]bool)}
	for _, u := range urls {
		p.reachable[u] = true
	}
	return p
}

func (p *fakeProber) Exists(_ context.Context, url string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, url)
	return p.reachable[url]
}

func (p *fakeProber) Probed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.probed...)
}

type fakeCache struct {
	mu      sync.Mutex
	records map[string]brand.Record
	puts    int
	patches []brand.RecordPatch
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{records: make(map[string]brand.Record)}
}

func (c *fakeCache) Get(_ context.Context, url string) (brand.Record, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return brand.Record{}, false, c.err
	}
	r, ok := c.records[url]
	return r, ok, nil
}

func (c *fakeCache) Put(_ context.Context, record brand.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.puts++
	c.records[record.URL] = record
	return nil
}

func (c *fakeCache) Patch(_ context.Context, url string, patch brand.RecordPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	r, ok := c.records[url]
	if !ok {
		return brand.ErrNotFound
	}
	c.patches = append(c.patches, patch)
	c.records[url] = patch.Apply(r)
	return nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *fakeBlobs) PutObject(_ context.Context, path, _ string, data io.Reader) (string, error) {
	body, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.objects == nil {
		b.objects = make(map[string][]byte)
	}
	b.objects[path] = body
	return "memory://" + path, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []Event
	topics []string
}

func (p *fakePublisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	event, ok := payload.(Event)
	if !ok {
		return "", errors.New("unexpected payload")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	p.topics = append(p.topics, topic)
	return "msg-1", nil
}

type staticHasher struct{}

func (staticHasher) Hash([]byte) (string, error) { return "abc123", nil }

type alwaysPromote struct{}

func (alwaysPromote) ShouldPromote(brand.FetchResponse) bool { return true }
