package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	domainauth "github.com/evently/evently-go/internal/domain/auth"
	"github.com/evently/evently-go/internal/ports"
	"github.com/evently/evently-go/internal/session"
)

// Business endpoints for the auth envelope.
const (
	LoginEndpoint    = "/api/users/login"
	RegisterEndpoint = "/api/users/register"
	LogoutEndpoint   = "/api/users/logout"
)

// SessionControllerOptions groups dependencies for SessionController.
type SessionControllerOptions struct {
	Dispatcher  ports.Dispatcher
	Credentials ports.CredentialStore
	Logger      *slog.Logger
}

// SessionController coordinates the credential store and the request
// dispatcher, and owns the session cell. It is the only component that
// writes the cell and the only writer of identity in the credential store.
type SessionController struct {
	dispatcher ports.Dispatcher
	creds      ports.CredentialStore
	logger     *slog.Logger
	cell       *session.Cell

	bootstrapOnce sync.Once
	// patchMu serializes read-merge-write on the current identity.
	patchMu sync.Mutex
}

// NewSessionController constructs a SessionController. The session cell
// starts in the pre-bootstrap loading state.
func NewSessionController(opts SessionControllerOptions) (*SessionController, error) {
	if opts.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if opts.Credentials == nil {
		return nil, errors.New("credential store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionController{
		dispatcher: opts.Dispatcher,
		creds:      opts.Credentials,
		logger:     logger,
		cell:       session.NewCell(),
	}, nil
}

// Sessions exposes the read/subscribe view of the session cell.
func (c *SessionController) Sessions() ports.SessionReader { return c.cell }

// Bootstrap reconstructs the session from the credential store without
// contacting the network. It runs its work exactly once; later calls
// return immediately. The cell always leaves the loading state, so no
// consumer can block on an undecided session.
func (c *SessionController) Bootstrap(ctx context.Context) {
	c.bootstrapOnce.Do(func() {
		credential, identity, err := c.creds.Read(ctx)
		if err != nil {
			c.logger.WarnContext(ctx, "session bootstrap found unusable stored state", slog.Any("error", err))
			if clearErr := c.creds.Clear(ctx); clearErr != nil {
				c.logger.ErrorContext(ctx, "clear credential store during bootstrap", slog.Any("error", clearErr))
			}
			c.cell.Replace(domainauth.Session{})
			return
		}
		if credential == "" || identity == nil {
			c.cell.Replace(domainauth.Session{})
			return
		}
		c.cell.Replace(domainauth.Session{Identity: identity})
	})
}

// loginResponse is the wire envelope shared by login and registration.
type loginResponse struct {
	Message     string              `json:"message"`
	AccessToken string              `json:"access_token"`
	User        domainauth.Identity `json:"user"`
}

// Establish logs in with the given credentials, persists the resulting
// pair, and replaces the session wholesale. On failure the dispatcher's
// normalized error propagates untouched and the session is left unchanged.
func (c *SessionController) Establish(ctx context.Context, email, password string) (*domainauth.Identity, error) {
	return c.authenticate(ctx, LoginEndpoint, map[string]string{
		"email":    email,
		"password": password,
	})
}

// EnrollResult carries the registration acknowledgment alongside the
// established identity.
type EnrollResult struct {
	Message  string
	Identity *domainauth.Identity
}

// Enroll registers a new account; on success it behaves exactly like
// Establish (credential and identity persisted, session replaced).
func (c *SessionController) Enroll(ctx context.Context, email, password, name string, role domainauth.Role) (*EnrollResult, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	identity, message, err := c.authenticateFull(ctx, RegisterEndpoint, map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
		"role":     string(role),
	})
	if err != nil {
		return nil, err
	}
	return &EnrollResult{Message: message, Identity: identity}, nil
}

func (c *SessionController) authenticate(ctx context.Context, endpoint string, body map[string]string) (*domainauth.Identity, error) {
	identity, _, err := c.authenticateFull(ctx, endpoint, body)
	return identity, err
}

func (c *SessionController) authenticateFull(ctx context.Context, endpoint string, body map[string]string) (*domainauth.Identity, string, error) {
	var resp loginResponse
	if err := c.dispatcher.Do(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		// Propagated untouched; the session stays as it was.
		return nil, "", err
	}
	if resp.AccessToken == "" {
		return nil, "", errors.New("auth response carried no access token")
	}

	identity := resp.User
	if writeErr := c.creds.Write(ctx, resp.AccessToken, &identity); writeErr != nil {
		return nil, "", fmt.Errorf("persist credentials: %w", writeErr)
	}
	c.cell.Replace(domainauth.Session{Identity: &identity})
	return &identity, resp.Message, nil
}

// Terminate ends the session. The server-side logout call is best-effort:
// its failure is logged and swallowed. Local cleanup is unconditional so a
// user can never be left logged out of the UI but still credentialed, or
// the reverse.
func (c *SessionController) Terminate(ctx context.Context) error {
	credential, err := c.creds.Credential(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "read credential during terminate", slog.Any("error", err))
	}
	if credential != "" {
		if logoutErr := c.dispatcher.Do(ctx, http.MethodPost, LogoutEndpoint, nil, nil); logoutErr != nil {
			c.logger.WarnContext(ctx, "server-side logout failed", slog.Any("error", logoutErr))
		}
	}

	c.cell.Replace(domainauth.Session{})
	if clearErr := c.creds.Clear(ctx); clearErr != nil {
		return fmt.Errorf("clear credential store: %w", clearErr)
	}
	return nil
}

// PatchIdentity merges the partial update into the current identity and
// re-persists the merged identity, credential untouched. It is a no-op
// when no authenticated session exists. The stored copy remains a cache
// convenience: the server stays the source of truth for every field.
func (c *SessionController) PatchIdentity(ctx context.Context, patch domainauth.IdentityPatch) error {
	c.patchMu.Lock()
	defer c.patchMu.Unlock()

	current := c.cell.Current()
	if !current.Authenticated() {
		return nil
	}

	merged := patch.Apply(*current.Identity)
	if err := c.creds.WriteIdentity(ctx, &merged); err != nil {
		return fmt.Errorf("persist patched identity: %w", err)
	}
	c.cell.Replace(domainauth.Session{Identity: &merged})
	return nil
}
