package service

import (
	domainauth "github.com/evently/evently-go/internal/domain/auth"
)

// PolicyKind enumerates the access policies a gated view can request.
type PolicyKind string

const (
	// PolicyRequireAuthenticated admits any authenticated session.
	PolicyRequireAuthenticated PolicyKind = "require_authenticated"
	// PolicyRequireRole admits only authenticated sessions with the policy
	// role.
	PolicyRequireRole PolicyKind = "require_role"
	// PolicyPublicOnly admits only anonymous sessions (login, register).
	PolicyPublicOnly PolicyKind = "public_only"
)

// Policy is the desired access policy for a gated view.
type Policy struct {
	Kind PolicyKind
	Role domainauth.Role // set for PolicyRequireRole only
}

// RequireAuthenticated builds the authenticated-only policy.
func RequireAuthenticated() Policy {
	return Policy{Kind: PolicyRequireAuthenticated}
}

// RequireRole builds a role-restricted policy.
func RequireRole(role domainauth.Role) Policy {
	return Policy{Kind: PolicyRequireRole, Role: role}
}

// PublicOnly builds the public-only policy.
func PublicOnly() Policy {
	return Policy{Kind: PolicyPublicOnly}
}

// Outcome is the gate's decision.
type Outcome string

const (
	// OutcomePending means the session is still loading; render a neutral
	// indicator and re-evaluate on the next session notification. Never
	// decide access on partial information.
	OutcomePending Outcome = "pending"
	// OutcomeAllow admits the view.
	OutcomeAllow Outcome = "allow"
	// OutcomeRedirect turns the caller away; Location names where.
	OutcomeRedirect Outcome = "redirect"
)

// Decision is the result of evaluating a gate.
type Decision struct {
	Outcome  Outcome
	Location string // set when Outcome is OutcomeRedirect
}

// GateInput groups the inputs to Decide.
type GateInput struct {
	Session domainauth.Session
	Policy  Policy
	// CurrentURL is the URL the consumer sits on; used to carry a redirect
	// intent to the login surface and to read one back for PublicOnly.
	CurrentURL string
	// Fallback is the caller-supplied destination for PublicOnly when no
	// intent is present; the role default applies when it is empty too.
	Fallback string
}

// Decide evaluates an access policy against the current session. It is a
// pure function: consumers subscribe to the session and re-run it whenever
// the session or loading state changes, so a bootstrap completing or a
// login succeeding elsewhere retroactively unblocks or redirects an
// already-mounted view.
func Decide(in GateInput) Decision {
	if in.Session.Loading {
		return Decision{Outcome: OutcomePending}
	}

	switch in.Policy.Kind {
	case PolicyRequireAuthenticated:
		if in.Session.Authenticated() {
			return Decision{Outcome: OutcomeAllow}
		}
		return redirectToLogin(in.CurrentURL)

	case PolicyRequireRole:
		if !in.Session.Authenticated() {
			return redirectToLogin(in.CurrentURL)
		}
		if in.Session.Identity.Role == in.Policy.Role {
			return Decision{Outcome: OutcomeAllow}
		}
		// Authenticated but wrong role: send the user to their own role's
		// default, never to the gated role's area.
		return Decision{
			Outcome:  OutcomeRedirect,
			Location: domainauth.DefaultDestination(in.Session.Identity.Role),
		}

	case PolicyPublicOnly:
		if !in.Session.Authenticated() {
			return Decision{Outcome: OutcomeAllow}
		}
		return Decision{
			Outcome:  OutcomeRedirect,
			Location: postLoginDestination(in),
		}

	default:
		// Unknown policies fail closed.
		return redirectToLogin(in.CurrentURL)
	}
}

// postLoginDestination resolves where an authenticated user leaves a
// public-only surface: redirect intent first, then the caller fallback,
// then the role default.
func postLoginDestination(in GateInput) string {
	if intent := DecodeIntent(in.CurrentURL); intent != "" {
		return intent
	}
	if fallback := safeRedirectPath(in.Fallback); fallback != "" {
		return fallback
	}
	return domainauth.DefaultDestination(in.Session.Identity.Role)
}

func redirectToLogin(currentURL string) Decision {
	return Decision{
		Outcome:  OutcomeRedirect,
		Location: LoginURLWithIntent(currentURL),
	}
}
