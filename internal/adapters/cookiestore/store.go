package cookiestore

// Package cookiestore provides the expiring, cookie-like key/value backend
// kept alongside the durable store for compatibility. Entries carry
// URL-encoded values, a path of "/", a fixed expiry window (7 days by
// default), and optional domain-qualified variants.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/evently/evently-go/internal/ports"
)

// DefaultTTL is the expiry window applied to entries when none is
// configured.
const DefaultTTL = 7 * 24 * time.Hour

// record is one persisted cookie-like entry. Value is stored URL-encoded,
// the way a browser cookie jar would hold it.
type record struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Domain  string    `json:"domain,omitempty"`
	Path    string    `json:"path"`
	Expires time.Time `json:"expires"`
}

// Config holds construction parameters for the store.
type Config struct {
	// Path is the file the jar is persisted to.
	Path string
	// Domain, when set, causes every write to also produce a
	// domain-qualified variant (the domain itself plus its registrable
	// domain). Clear removes those variants too.
	Domain string
	// TTL is the expiry window; DefaultTTL when zero.
	TTL time.Duration
	// Now is the clock, overridable in tests.
	Now func() time.Time
}

// Store is a file-persisted cookie jar restricted to this application's
// keys.
type Store struct {
	mu     sync.Mutex
	path   string
	domain string
	ttl    time.Duration
	now    func() time.Time
}

// New creates a cookie-like store from cfg.
func New(cfg Config) *Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		path:   cfg.Path,
		domain: cfg.Domain,
		ttl:    ttl,
		now:    now,
	}
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	expires := s.now().Add(s.ttl)
	encoded := url.QueryEscape(value)
	records = dropName(records, key)
	records = append(records, record{
		Name:    key,
		Value:   encoded,
		Path:    "/",
		Expires: expires,
	})
	for _, domain := range s.domainVariants() {
		records = append(records, record{
			Name:    key,
			Value:   encoded,
			Domain:  domain,
			Path:    "/",
			Expires: expires,
		})
	}
	return s.save(records)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return "", err
	}

	now := s.now()
	for _, rec := range records {
		if rec.Name != key || now.After(rec.Expires) {
			continue
		}
		decoded, decErr := url.QueryUnescape(rec.Value)
		if decErr != nil {
			// Decoding failure falls back to the raw stored value; the
			// encode/decode pair must never make data unreadable.
			return rec.Value, nil
		}
		return decoded, nil
	}
	return "", ports.ErrNotFound
}

// Delete removes the key everywhere, including domain-qualified variants,
// so a stale entry cannot resurrect a dead session.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	remaining := dropName(records, key)
	if len(remaining) == len(records) {
		return nil // Nothing to delete
	}
	return s.save(remaining)
}

// domainVariants returns the configured domain plus its registrable domain
// when the two differ (e.g. "app.evently.io" also yields "evently.io").
func (s *Store) domainVariants() []string {
	if s.domain == "" {
		return nil
	}
	variants := []string{s.domain}
	if etld, err := publicsuffix.EffectiveTLDPlusOne(s.domain); err == nil && etld != s.domain {
		variants = append(variants, etld)
	}
	return variants
}

// dropName removes every record for the name regardless of domain.
func dropName(records []record, name string) []record {
	kept := records[:0]
	for _, rec := range records {
		if rec.Name != name {
			kept = append(kept, rec)
		}
	}
	return kept
}

func (s *Store) load() ([]record, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var records []record
	if unmarshalErr := json.Unmarshal(raw, &records); unmarshalErr != nil {
		return nil, fmt.Errorf("decode cookie file: %w", unmarshalErr)
	}

	// Expired entries are pruned on load rather than persisted back; the
	// next save drops them for good.
	now := s.now()
	live := records[:0]
	for _, rec := range records {
		if now.After(rec.Expires) {
			continue
		}
		live = append(live, rec)
	}
	return live, nil
}

func (s *Store) save(records []record) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode cookie file: %w", err)
	}
	if mkErr := os.MkdirAll(filepath.Dir(s.path), 0o700); mkErr != nil {
		return fmt.Errorf("create cookie dir: %w", mkErr)
	}
	if writeErr := os.WriteFile(s.path, raw, 0o600); writeErr != nil {
		return fmt.Errorf("write cookie file: %w", writeErr)
	}
	return nil
}
