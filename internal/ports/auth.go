package ports

// Package ports defines interfaces (hexagonal ports) for the credential and
// session lifecycle. Implementations live in internal/adapters;
// orchestration in internal/service.

import (
	"context"

	domainauth "github.com/evently/evently-go/internal/domain/auth"
)

// BackingStore is one physical key/value backend underneath the credential
// store. The durable (file) backend keeps values until deleted; expiring
// backends (cookie file, redis) apply a fixed TTL chosen at construction.
// Get returns ErrNotFound for missing or expired keys.
type BackingStore interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// CredentialStore persists the (credential, identity) pair across both
// physical backends. The two backends are an implementation detail: no
// other component may address them individually.
//
// Read and Credential return empty values with a nil error when nothing is
// stored; a non-nil error means stored state exists but is unusable (for
// example a corrupt identity blob) and the caller is responsible for
// invoking Clear.
type CredentialStore interface {
	// Write persists the credential and identity to both backends.
	Write(ctx context.Context, credential string, identity *domainauth.Identity) error
	// WriteCredential rotates the credential only, in the durable backend,
	// leaving the cached identity untouched. This is the refresh path.
	WriteCredential(ctx context.Context, credential string) error
	// WriteIdentity re-persists the identity only, leaving the credential
	// untouched. This is the identity-patch path.
	WriteIdentity(ctx context.Context, identity *domainauth.Identity) error
	// Read returns the stored pair from a single backend, durable first.
	Read(ctx context.Context) (string, *domainauth.Identity, error)
	// Credential returns just the stored credential, durable first.
	Credential(ctx context.Context) (string, error)
	// Clear removes the pair from every backend, including domain-qualified
	// cookie variants, so a stale entry cannot resurrect a dead session.
	Clear(ctx context.Context) error
}

// Dispatcher issues an outbound API call with the auth envelope applied,
// decoding a 2xx JSON body into out when out is non-nil.
type Dispatcher interface {
	Do(ctx context.Context, method, endpoint string, body, out any) error
}

// SessionReader exposes the current session projection and change
// notifications. Any number of consumers may read; only the session
// controller writes.
type SessionReader interface {
	// Current returns the session projection as of now.
	Current() domainauth.Session
	// Subscribe registers fn to run on every session replacement, invoking
	// it once immediately with the current value. The returned func cancels
	// the subscription.
	Subscribe(fn func(domainauth.Session)) (cancel func())
}
