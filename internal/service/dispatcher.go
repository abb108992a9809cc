package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/sync/singleflight"

	clienterrors "github.com/evently/evently-go/internal/errors"
	"github.com/evently/evently-go/internal/ports"
)

// Default API surface paths. The refresh path is overridable for deployments
// that mount the API under a prefix.
const (
	DefaultRefreshPath = "/api/users/refresh-token"

	// defaultMessageSelector extracts the server message from a decoded
	// error body.
	defaultMessageSelector = "message"

	// maxErrorBodyBytes caps how much of an error body is read while
	// looking for a message.
	maxErrorBodyBytes = 64 << 10
)

// messageEvaluator abstracts the JSON field extraction used on error
// bodies, so tests can exercise the fallback paths directly.
type messageEvaluator interface {
	Evaluate(expr string, data any) (any, error)
}

// jmespathEvaluator implements messageEvaluator using go-jmespath.
type jmespathEvaluator struct{}

func (jmespathEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// DispatcherOptions groups dependencies for Dispatcher.
type DispatcherOptions struct {
	// BaseURL is the API origin, e.g. "https://api.evently.io".
	BaseURL string
	// Credentials is the credential store; the dispatcher reads the
	// current credential from here on every call, never from session state.
	Credentials ports.CredentialStore
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
	// RefreshPath defaults to DefaultRefreshPath.
	RefreshPath string
	// MessageSelector is a JMESPath expression locating the server message
	// inside a decoded error body. Defaults to "message".
	MessageSelector string
	// CoalesceRefresh shares one in-flight refresh across concurrent 401s.
	// Off by default: each call then refreshes independently, matching the
	// documented baseline behavior.
	CoalesceRefresh bool
	Logger          *slog.Logger
}

// Dispatcher issues outbound API calls, attaching the bearer credential,
// detecting authorization failure, performing a bounded refresh-and-retry,
// and normalizing failures into a single error shape.
type Dispatcher struct {
	baseURL     string
	creds       ports.CredentialStore
	client      *http.Client
	refreshPath string
	selector    string
	coalesce    bool
	logger      *slog.Logger

	evaluator messageEvaluator
	refreshSF singleflight.Group
}

// NewDispatcher constructs a Dispatcher, validating the message selector
// up front so a bad expression fails at wiring time, not on the first
// error response.
func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if opts.Credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	refreshPath := opts.RefreshPath
	if refreshPath == "" {
		refreshPath = DefaultRefreshPath
	}
	selector := strings.TrimSpace(opts.MessageSelector)
	if selector == "" {
		selector = defaultMessageSelector
	}
	if _, err := jmespath.Compile(selector); err != nil {
		return nil, fmt.Errorf("compile message selector %q: %w", selector, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		creds:       opts.Credentials,
		client:      client,
		refreshPath: refreshPath,
		selector:    selector,
		coalesce:    opts.CoalesceRefresh,
		logger:      logger,
		evaluator:   jmespathEvaluator{},
	}, nil
}

// Do sends a JSON request to endpoint and decodes a 2xx response body into
// out when out is non-nil.
//
// When the response is a 401 and a credential was attached, the credential
// is sent to the refresh endpoint; on success the rotated credential is
// persisted (credential only) and the original request is resent exactly
// once. A failed refresh clears the credential store and surfaces the
// original unauthorized error. Callers cannot distinguish a first-try
// success from a success after refresh.
func (d *Dispatcher) Do(ctx context.Context, method, endpoint string, body, out any) error {
	payload, err := encodeBody(body)
	if err != nil {
		return clienterrors.Wrap(err, clienterrors.KindUnknown, "encode request body")
	}

	credential, err := d.creds.Credential(ctx)
	if err != nil {
		return clienterrors.Wrap(err, clienterrors.KindUnknown, "read credential")
	}

	resp, err := d.send(ctx, method, endpoint, payload, credential)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && credential != "" {
		unauthorized := d.normalizeError(resp)

		rotated, refreshErr := d.refresh(ctx, credential)
		if refreshErr != nil {
			d.logger.WarnContext(ctx, "credential refresh failed",
				slog.String("endpoint", endpoint),
				slog.Any("error", refreshErr))
			if clearErr := d.creds.Clear(ctx); clearErr != nil {
				d.logger.ErrorContext(ctx, "clear credentials after failed refresh", slog.Any("error", clearErr))
			}
			// The caller sees the original unauthorized failure, not the
			// refresh failure.
			return unauthorized
		}

		// Exactly one resend; a second 401 does not re-enter refresh.
		resp, err = d.send(ctx, method, endpoint, payload, rotated)
		if err != nil {
			return err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return d.normalizeError(resp)
	}
	return decodeBody(resp, out)
}

// send performs one HTTP attempt. The returned response body is fully read
// and replaced with a byte reader so callers can decode without holding the
// connection.
func (d *Dispatcher) send(ctx context.Context, method, endpoint string, payload []byte, credential string) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+endpoint, reader)
	if err != nil {
		return nil, clienterrors.Wrap(err, clienterrors.KindUnknown, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, clienterrors.Transport(err, "request failed")
	}

	raw, err := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if err != nil {
		return nil, clienterrors.Transport(err, "read response body")
	}
	if closeErr != nil {
		d.logger.WarnContext(ctx, "close response body", slog.Any("error", closeErr))
	}
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	return resp, nil
}

// refreshResult carries the rotated credential out of the singleflight
// closure.
type refreshResult struct {
	credential string
}

// refresh exchanges the rejected credential for a fresh one and persists
// it. With coalescing enabled, concurrent callers share one in-flight
// exchange.
func (d *Dispatcher) refresh(ctx context.Context, credential string) (string, error) {
	if !d.coalesce {
		return d.doRefresh(ctx, credential)
	}

	v, err, _ := d.refreshSF.Do("refresh", func() (any, error) {
		rotated, rerr := d.doRefresh(ctx, credential)
		if rerr != nil {
			return nil, rerr
		}
		return refreshResult{credential: rotated}, nil
	})
	if err != nil {
		return "", err
	}
	return v.(refreshResult).credential, nil
}

func (d *Dispatcher) doRefresh(ctx context.Context, credential string) (string, error) {
	payload, err := json.Marshal(map[string]string{"token": credential})
	if err != nil {
		return "", fmt.Errorf("encode refresh body: %w", err)
	}

	resp, err := d.send(ctx, http.MethodPost, d.refreshPath, payload, credential)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", d.normalizeError(resp)
	}

	var rotated struct {
		AccessToken string `json:"access_token"`
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(&rotated); decodeErr != nil {
		return "", fmt.Errorf("decode refresh response: %w", decodeErr)
	}
	if rotated.AccessToken == "" {
		return "", fmt.Errorf("refresh response carried no access token")
	}

	if persistErr := d.creds.WriteCredential(ctx, rotated.AccessToken); persistErr != nil {
		return "", fmt.Errorf("persist rotated credential: %w", persistErr)
	}
	return rotated.AccessToken, nil
}

// normalizeError converts a non-2xx response into the single error shape.
// The body is parsed defensively: absence or malformed JSON never panics
// and never masks the status, it just falls back to the generic message
// annotated with the transport status text.
func (d *Dispatcher) normalizeError(resp *http.Response) error {
	message := d.serverMessage(resp)

	if resp.StatusCode == http.StatusUnauthorized {
		if message == "" {
			message = "unauthorized"
		}
		return clienterrors.Unauthorized(message)
	}
	if message == "" {
		message = "request failed: " + resp.Status
	}
	return clienterrors.Validation(resp.StatusCode, message)
}

// serverMessage extracts the server-provided message from an error body,
// returning "" when the body is absent, malformed, or the selector finds
// nothing usable.
func (d *Dispatcher) serverMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var decoded any
	if unmarshalErr := json.Unmarshal(raw, &decoded); unmarshalErr != nil {
		return ""
	}

	found, err := d.evaluator.Evaluate(d.selector, decoded)
	if err != nil {
		return ""
	}
	message, ok := found.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(message)
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	return json.Marshal(body)
}

func decodeBody(resp *http.Response, out any) error {
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return clienterrors.Wrap(err, clienterrors.KindUnknown, "decode response body")
	}
	return nil
}

// BuildURL joins the base URL with an endpoint path; exported for callers
// that need the absolute form (e.g. logging).
func (d *Dispatcher) BuildURL(endpoint string) string {
	u, err := url.Parse(d.baseURL + endpoint)
	if err != nil {
		return d.baseURL + endpoint
	}
	return u.String()
}
