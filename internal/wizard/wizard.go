// Package wizard keeps short-lived review sessions: a visitor submits a website, reviews the extracted
// brand profile, overrides what is wrong, and confirms it.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/brandprobe/internal/brand"
	"github.com/JakeFAU/brandprobe/internal/extractor"
)

// DefaultTTL is how long an idle session survives.
const DefaultTTL = 30 * time.Minute

const maxIndustryLen = 64

var (
	// ErrSessionNotFound reports an unknown, expired, or already confirmed session.
	ErrSessionNotFound = fmt.Errorf("session %w", brand.ErrNotFound)
	// ErrInvalidOverride reports a rejected PATCH field.
	ErrInvalidOverride = errors.New("invalid override")
)

// SessionIDGenerator produces unguessable session handles.
type SessionIDGenerator interface {
	NewSessionID() (string, error)
}

// Session is one visitor's review of a single website.
type Session struct {
	ID        string        `json:"session_id"`
	URL       string        `json:"url"`
	Domain    string        `json:"domain"`
	Result    *brand.Result `json:"result,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

func (s Session) clone() Session {
	if s.Result != nil {
		res := *s.Result
		res.AlternativeLogos = append([]string(nil), s.Result.AlternativeLogos...)
		s.Result = &res
	}
	return s
}

// Override carries the fields a visitor may correct. Nil fields are left as extracted.
type Override struct {
	Logo       *string `json:"logo,omitempty"`
	BrandColor *string `json:"brand_color,omitempty"`
	Industry   *string `json:"industry,omitempty"`
}

// Config tunes session lifetime and event publication.
type Config struct {
	TTL   time.Duration
	Topic string

	// MaxAlternatives caps the alternatives list after a logo override.
	MaxAlternatives int
}

// Deps are the collaborators a Manager needs. Publisher and Cache are optional.
type Deps struct {
	Extractor brand.Extractor
	IDs       SessionIDGenerator
	Clock     brand.Clock
	Publisher brand.Publisher
	Cache     brand.Cache
}

// Manager owns the in-memory session table.
type Manager struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	inflight singleflight.Group
}

// NewManager validates deps and returns a Manager.
func NewManager(cfg Config, deps Deps, logger *zap.Logger) (*Manager, error) {
	if deps.Extractor == nil {
		return nil, fmt.Errorf("wizard extractor is required")
	}
	if deps.IDs == nil {
		return nil, fmt.Errorf("wizard id generator is required")
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("wizard clock is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxAlternatives <= 0 {
		cfg.MaxAlternatives = extractor.DefaultMaxAlternatives
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		deps:     deps,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
	}, nil
}

// Create starts a session for rawURL. Extraction is deferred to the first Get.
func (m *Manager) Create(_ context.Context, rawURL string) (Session, error) {
	target, err := brand.Normalize(rawURL)
	if err != nil {
		return Session{}, err
	}
	id, err := m.deps.IDs.NewSessionID()
	if err != nil {
		return Session{}, fmt.Errorf("session id: %w", err)
	}
	now := m.deps.Clock.Now()
	sess := &Session{
		ID:        id,
		URL:       strings.TrimSpace(target.Input),
		Domain:    target.Domain,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.TTL),
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	m.logger.Debug("session created", zap.String("session_id", id), zap.String("url", sess.URL))
	return sess.clone(), nil
}

// Get returns the session, running the extraction the first time it is viewed.
func (m *Manager) Get(ctx context.Context, id string) (Session, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return Session{}, err
	}
	if sess.Result != nil {
		return sess, nil
	}
	return m.extract(ctx, id, sess.URL, false)
}

// Refresh re-runs the extraction bypassing the cache, discarding earlier overrides.
func (m *Manager) Refresh(ctx context.Context, id string) (Session, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return Session{}, err
	}
	return m.extract(ctx, id, sess.URL, true)
}

// Patch applies visitor overrides after validating every field.
func (m *Manager) Patch(ctx context.Context, id string, o Override) (Session, error) {
	if err := normalizeOverride(&o); err != nil {
		return Session{}, err
	}
	if _, err := m.Get(ctx, id); err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.live(id)
	if !ok || sess.Result == nil {
		return Session{}, ErrSessionNotFound
	}
	if o.Logo != nil {
		sess.Result.AlternativeLogos = brand.SwapPrimaryLogo(
			sess.Result.Logo, *o.Logo, sess.Result.AlternativeLogos, m.cfg.MaxAlternatives)
		sess.Result.Logo = *o.Logo
		sess.Result.LogoSource = brand.SourceManual
	}
	if o.BrandColor != nil {
		sess.Result.BrandColor = *o.BrandColor
	}
	if o.Industry != nil {
		sess.Result.Industry = *o.Industry
	}
	m.touch(sess)
	return sess.clone(), nil
}

// Confirm finalizes the profile, stores it, publishes brand.confirmed, and ends the session.
func (m *Manager) Confirm(ctx context.Context, id string) (brand.Result, error) {
	if _, err := m.Get(ctx, id); err != nil {
		return brand.Result{}, err
	}

	m.mu.Lock()
	live, ok := m.live(id)
	if !ok || live.Result == nil {
		m.mu.Unlock()
		return brand.Result{}, ErrSessionNotFound
	}
	sess := live.clone()
	delete(m.sessions, id)
	m.mu.Unlock()

	res := *sess.Result
	logger := m.logger.With(zap.String("session_id", id), zap.String("url", sess.URL))
	now := m.deps.Clock.Now()

	if m.deps.Cache != nil {
		if err := m.deps.Cache.Put(ctx, brand.RecordFromResult(res, now)); err != nil {
			logger.Warn("store confirmed profile failed", zap.Error(err))
		}
	}
	if m.deps.Publisher != nil && m.cfg.Topic != "" {
		event := extractor.Event{
			Type:       extractor.EventConfirmed,
			URL:        res.URL,
			Domain:     sess.Domain,
			Logo:       res.Logo,
			BrandColor: res.BrandColor,
			Industry:   res.Industry,
			SessionID:  id,
			OccurredAt: now,
		}
		if _, err := m.deps.Publisher.Publish(ctx, m.cfg.Topic, event); err != nil {
			logger.Warn("publish confirmation failed", zap.Error(err))
		}
	}
	logger.Info("profile confirmed")
	return res, nil
}

// Sweep drops expired sessions and reports how many were removed.
func (m *Manager) Sweep() int {
	now := m.deps.Clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, sess := range m.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx ends.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("expired sessions removed", zap.Int("count", n))
			}
		}
	}
}

// Len reports the number of tracked sessions, expired ones included until swept.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) extract(ctx context.Context, id, rawURL string, refresh bool) (Session, error) {
	key := id
	if refresh {
		key = id + ":refresh"
	}
	v, err, _ := m.inflight.Do(key, func() (any, error) {
		return m.deps.Extractor.Extract(ctx, rawURL, brand.ExtractOptions{SkipCache: refresh})
	})
	if err != nil {
		return Session{}, fmt.Errorf("extract %s: %w", rawURL, err)
	}
	res, ok := v.(brand.Result)
	if !ok {
		return Session{}, fmt.Errorf("extract %s: unexpected result %T", rawURL, v)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.live(id)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if sess.Result == nil || refresh {
		sess.Result = &res
	}
	m.touch(sess)
	return sess.clone(), nil
}

func (m *Manager) lookup(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.live(id)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	m.touch(sess)
	return sess.clone(), nil
}

// live returns the session when it exists and has not expired. Callers hold mu.
func (m *Manager) live(id string) (*Session, bool) {
	sess, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	if !m.deps.Clock.Now().Before(sess.ExpiresAt) {
		delete(m.sessions, id)
		return nil, false
	}
	return sess, true
}

func (m *Manager) touch(sess *Session) {
	sess.ExpiresAt = m.deps.Clock.Now().Add(m.cfg.TTL)
}

func normalizeOverride(o *Override) error {
	if o.Logo != nil {
		logo := strings.TrimSpace(*o.Logo)
		if !validLogo(logo) {
			return fmt.Errorf("%w: logo must be an http(s) or data:image/ url", ErrInvalidOverride)
		}
		o.Logo = &logo
	}
	if o.BrandColor != nil {
		color, ok := brand.ParseColor(*o.BrandColor)
		if !ok {
			return fmt.Errorf("%w: brand_color must be #RGB, #RRGGBB, or rgb()", ErrInvalidOverride)
		}
		o.BrandColor = &color
	}
	if o.Industry != nil {
		industry := strings.TrimSpace(*o.Industry)
		if industry == "" || len(industry) > maxIndustryLen {
			return fmt.Errorf("%w: industry must be 1-%d characters", ErrInvalidOverride, maxIndustryLen)
		}
		o.Industry = &industry
	}
	return nil
}

func validLogo(logo string) bool {
	if strings.HasPrefix(strings.ToLower(logo), "data:image/") {
		return true
	}
	u, err := url.Parse(logo)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
