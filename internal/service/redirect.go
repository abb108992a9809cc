package service

import (
	"net/url"
	"strings"

	domainauth "github.com/evently/evently-go/internal/domain/auth"
)

// IntentParam is the query parameter carrying the "return to" destination
// across the authentication detour.
const IntentParam = "redirect"

// EncodeIntent produces the query string fragment carrying the destination,
// e.g. "redirect=%2Fevents%2F42". Unsafe destinations encode to "".
func EncodeIntent(destination string) string {
	safe := safeRedirectPath(destination)
	if safe == "" {
		return ""
	}
	q := url.Values{}
	q.Set(IntentParam, safe)
	return q.Encode()
}

// LoginURLWithIntent builds the login surface URL carrying the destination
// as a redirect intent. Without a usable destination it is the bare login
// surface.
func LoginURLWithIntent(destination string) string {
	encoded := EncodeIntent(destination)
	if encoded == "" {
		return domainauth.LoginPath
	}
	return domainauth.LoginPath + "?" + encoded
}

// DecodeIntent reads the redirect intent back out of a URL. It returns ""
// when the parameter is absent, unparsable, or names an unsafe
// destination. The intent is consumed once per authentication attempt;
// this function never persists anything.
func DecodeIntent(currentURL string) string {
	if currentURL == "" {
		return ""
	}
	u, err := url.Parse(currentURL)
	if err != nil {
		return ""
	}
	return safeRedirectPath(u.Query().Get(IntentParam))
}

// safeRedirectPath ensures the candidate is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "" when invalid so
// callers fall through to their own defaults.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return ""
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return ""
	}
	return candidate
}
