package auth

// Package auth contains domain-level types for the client-side session.
// It is pure and free of transport/adapter concerns.

import "time"

// Role represents an application authorization role.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Role string

const (
	RoleUser   Role = "user"
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

// Valid reports whether the role is one of the known application roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleVendor, RoleAdmin:
		return true
	default:
		return false
	}
}

// Identity is the cached user profile mirrored client-side.
// The server copy is the source of truth; this record is a cache
// convenience and must always be safe to re-derive.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// IdentityPatch carries a partial identity update. Nil fields are left
// unchanged by Apply. Role is deliberately absent: role changes come only
// from the server on login or registration.
type IdentityPatch struct {
	Email  *string
	Name   *string
	Active *bool
}

// Apply merges the patch into a copy of the given identity.
func (p IdentityPatch) Apply(id Identity) Identity {
	if p.Email != nil {
		id.Email = *p.Email
	}
	if p.Name != nil {
		id.Name = *p.Name
	}
	if p.Active != nil {
		id.Active = *p.Active
	}
	return id
}

// Phase names a position in the session lifecycle state machine.
type Phase string

const (
	// PhaseUnknown is the pre-bootstrap state; no access decision may be
	// made while the session is here.
	PhaseUnknown Phase = "unknown"
	// PhaseAnonymous means bootstrap or teardown completed with no credential.
	PhaseAnonymous Phase = "anonymous"
	// PhaseAuthenticated means a credential and identity are established.
	PhaseAuthenticated Phase = "authenticated"
)

// Session is the in-memory projection of authentication state consumed by
// callers. Identity is nil exactly when the session is not authenticated.
type Session struct {
	Identity *Identity
	Loading  bool
}

// Authenticated reports whether an identity is established.
func (s Session) Authenticated() bool { return s.Identity != nil }

// Phase derives the lifecycle state from the projection.
func (s Session) Phase() Phase {
	switch {
	case s.Loading:
		return PhaseUnknown
	case s.Identity != nil:
		return PhaseAuthenticated
	default:
		return PhaseAnonymous
	}
}
