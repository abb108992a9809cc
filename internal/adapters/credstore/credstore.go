package credstore

// Package credstore composes the two physical key/value backends into the
// single credential store the rest of the client sees. The read preference
// order is fixed: durable store first, expiring (cookie-like) store as
// fallback, and a returned pair always comes from one source; fields are
// never spliced across sources.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domainauth "github.com/evently/evently-go/internal/domain/auth"
	"github.com/evently/evently-go/internal/ports"
)

// Storage keys shared with the original browser clients.
const (
	KeyCredential = "auth_token"
	KeyIdentity   = "user_data"
)

// ErrCorruptIdentity is returned by Read when a credential exists but the
// stored identity blob cannot be decoded. Callers treat this as a
// logged-out state and must Clear the store.
var ErrCorruptIdentity = errors.New("stored identity is not decodable")

// Store implements ports.CredentialStore over a durable backend and an
// expiring backend.
type Store struct {
	durable  ports.BackingStore
	expiring ports.BackingStore
}

// Options groups the two physical backends.
type Options struct {
	Durable  ports.BackingStore
	Expiring ports.BackingStore
}

// New constructs the dual-backend credential store.
func New(opts Options) (*Store, error) {
	if opts.Durable == nil {
		return nil, errors.New("durable backend is required")
	}
	if opts.Expiring == nil {
		return nil, errors.New("expiring backend is required")
	}
	return &Store{durable: opts.Durable, expiring: opts.Expiring}, nil
}

// Write persists the pair to both backends. The durable write must
// succeed; the expiring write is joined into the error when it fails so
// callers still learn about the degraded copy.
func (s *Store) Write(ctx context.Context, credential string, identity *domainauth.Identity) error {
	if credential == "" {
		return errors.New("credential cannot be empty")
	}
	if identity == nil {
		return errors.New("identity is required")
	}

	blob, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	return errors.Join(
		s.writePair(ctx, s.durable, credential, string(blob)),
		s.writePair(ctx, s.expiring, credential, string(blob)),
	)
}

// WriteCredential rotates the credential in the durable backend only.
// Identity is deliberately untouched: refresh never mutates identity.
func (s *Store) WriteCredential(ctx context.Context, credential string) error {
	if credential == "" {
		return errors.New("credential cannot be empty")
	}
	return s.durable.Set(ctx, KeyCredential, credential)
}

// WriteIdentity re-persists the identity to both backends, leaving the
// credential untouched.
func (s *Store) WriteIdentity(ctx context.Context, identity *domainauth.Identity) error {
	if identity == nil {
		return errors.New("identity is required")
	}
	blob, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	return errors.Join(
		s.expiring.Set(ctx, KeyIdentity, string(blob)),
		s.durable.Set(ctx, KeyIdentity, string(blob)),
	)
}

// Read returns the stored pair, preferring the durable backend. A backend
// contributes only when it holds the complete pair; a partial or missing
// pair falls through to the next backend rather than being merged.
func (s *Store) Read(ctx context.Context) (string, *domainauth.Identity, error) {
	for _, backend := range []ports.BackingStore{s.durable, s.expiring} {
		credential, blob, ok, err := readPair(ctx, backend)
		if err != nil {
			return "", nil, err
		}
		if !ok {
			continue
		}

		var identity domainauth.Identity
		if unmarshalErr := json.Unmarshal([]byte(blob), &identity); unmarshalErr != nil {
			return "", nil, fmt.Errorf("%w: %w", ErrCorruptIdentity, unmarshalErr)
		}
		return credential, &identity, nil
	}
	return "", nil, nil
}

// Credential returns just the stored credential, durable first.
func (s *Store) Credential(ctx context.Context) (string, error) {
	for _, backend := range []ports.BackingStore{s.durable, s.expiring} {
		credential, err := backend.Get(ctx, KeyCredential)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				continue
			}
			return "", err
		}
		if credential != "" {
			return credential, nil
		}
	}
	return "", nil
}

// Clear removes both keys from both backends.
func (s *Store) Clear(ctx context.Context) error {
	return errors.Join(
		s.durable.Delete(ctx, KeyCredential),
		s.durable.Delete(ctx, KeyIdentity),
		s.expiring.Delete(ctx, KeyCredential),
		s.expiring.Delete(ctx, KeyIdentity),
	)
}

func (s *Store) writePair(ctx context.Context, backend ports.BackingStore, credential, blob string) error {
	if err := backend.Set(ctx, KeyCredential, credential); err != nil {
		return err
	}
	return backend.Set(ctx, KeyIdentity, blob)
}

// readPair fetches the complete pair from one backend; ok is false when
// either key is absent.
func readPair(ctx context.Context, backend ports.BackingStore) (string, string, bool, error) {
	credential, err := backend.Get(ctx, KeyCredential)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return "", "", false, nil
		}
		return "", "", false, err
	}

	blob, err := backend.Get(ctx, KeyIdentity)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return "", "", false, nil
		}
		return "", "", false, err
	}

	if credential == "" || blob == "" {
		return "", "", false, nil
	}
	return credential, blob, true, nil
}
