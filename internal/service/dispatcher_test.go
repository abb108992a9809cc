package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/evently/evently-go/internal/adapters/credstore"
	clienterrors "github.com/evently/evently-go/internal/errors"
	"github.com/evently/evently-go/internal/mocks"
	mockauth "github.com/evently/evently-go/internal/mocks/auth"
	"github.com/evently/evently-go/internal/testutil"
)

func newTestCredentials(t *testing.T) *credstore.Store {
	t.Helper()
	store, err := credstore.New(credstore.Options{
		Durable:  mockauth.NewMemoryBackingStore(),
		Expiring: mockauth.NewMemoryBackingStore(),
	})
	require.NoError(t, err)
	return store
}

func newTestDispatcher(t *testing.T, api *testutil.FakeAPI, creds *credstore.Store, opts DispatcherOptions) *Dispatcher {
	t.Helper()
	opts.BaseURL = api.URL()
	opts.Credentials = creds
	d, err := NewDispatcher(opts)
	require.NoError(t, err)
	return d
}

func TestDispatcher_Success(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	creds := newTestCredentials(t)
	require.NoError(t, creds.WriteCredential(context.Background(), "tok-1"))

	api.Handle("/api/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-1", testutil.BearerToken(r))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		testutil.WriteJSON(t, w, http.StatusOK, map[string]string{"title": "GopherCon"})
	})

	d := newTestDispatcher(t, api, creds, DispatcherOptions{})

	var out struct {
		Title string `json:"title"`
	}
	err := d.Do(context.Background(), http.MethodGet, "/api/events", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "GopherCon", out.Title)
	assert.Equal(t, 1, api.Hits("/api/events"))
}

func TestDispatcher_SuccessWithoutCredential(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.Handle("/api/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		testutil.WriteJSON(t, w, http.StatusOK, map[string]string{})
	})

	d := newTestDispatcher(t, api, newTestCredentials(t), DispatcherOptions{})

	err := d.Do(context.Background(), http.MethodGet, "/api/events", nil, nil)
	require.NoError(t, err)
}

func TestDispatcher_RefreshAndRetry(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	creds := newTestCredentials(t)
	require.NoError(t, creds.WriteCredential(context.Background(), "stale"))

	api.Handle("/api/bookings", func(w http.ResponseWriter, r *http.Request) {
		if testutil.BearerToken(r) != "fresh" {
			testutil.WriteJSON(t, w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
			return
		}
		testutil.WriteJSON(t, w, http.StatusOK, map[string]string{"status": "confirmed"})
	})
	api.Handle(DefaultRefreshPath, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Token string `json:"token"`
		}
		require.NoError(t, decodeRequest(r, &body))
		assert.Equal(t, "stale", body.Token)
		testutil.WriteJSON(t, w, http.StatusOK, map[string]string{"access_token": "fresh"})
	})

	d := newTestDispatcher(t, api, creds, DispatcherOptions{})

	var out struct {
		Status string `json:"status"`
	}
	err := d.Do(context.Background(), http.MethodPost, "/api/bookings", map[string]string{"event": "42"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", out.Status)

	// Original attempt plus exactly one resend, exactly one refresh.
	assert.Equal(t, 2, api.Hits("/api/bookings"))
	assert.Equal(t, 1, api.Hits(DefaultRefreshPath))

	credential, err := creds.Credential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", credential)
}

func TestDispatcher_RefreshFailureClearsStoreAndSurfacesOriginalError(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	creds := newTestCredentials(t)
	require.NoError(t, creds.WriteCredential(context.Background(), "stale"))

	api.Handle("/api/bookings", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(t, w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
	})
	api.Handle(DefaultRefreshPath, func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(t, w, http.StatusUnauthorized, map[string]string{"message": "refresh rejected"})
	})

	d := newTestDispatcher(t, api, creds, DispatcherOptions{})

	err := d.Do(context.Background(), http.MethodGet, "/api/bookings", nil, nil)
	require.Error(t, err)
	assert.True(t, clienterrors.IsUnauthorized(err))
	// The original failure is surfaced, not the refresh failure.
	assert.Contains(t, err.Error(), "token expired")

	// One original attempt, no resend.
	assert.Equal(t, 1, api.Hits("/api/bookings"))
	assert.Equal(t, 1, api.Hits(DefaultRefreshPath))

	credential, cerr := creds.Credential(context.Background())
	require.NoError(t, cerr)
	assert.Empty(t, credential)
}

func TestDispatcher_NoRefreshWithoutCredential(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.Handle("/api/bookings", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(t, w, http.StatusUnauthorized, map[string]string{"message": "sign in"})
	})

	d := newTestDispatcher(t, api, newTestCredentials(t), DispatcherOptions{})

	err := d.Do(context.Background(), http.MethodGet, "/api/bookings", nil, nil)
	require.Error(t, err)
	assert.True(t, clienterrors.IsUnauthorized(err))

	assert.Equal(t, 1, api.Hits("/api/bookings"))
	assert.Equal(t, 0, api.Hits(DefaultRefreshPath))
}

func TestDispatcher_SecondUnauthorizedAfterRetryDoesNotRefreshAgain(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	creds := newTestCredentials(t)
	require.NoError(t, creds.WriteCredential(context.Background(), "stale"))

	api.Handle("/api/bookings", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(t, w, http.StatusUnauthorized, map[string]string{"message": "still no"})
	})
	api.Handle(DefaultRefreshPath, func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(t, w, http.StatusOK, map[string]string{"access_token": "fresh"})
	})

	d := newTestDispatcher(t, api, creds, DispatcherOptions{})

	err := d.Do(context.Background(), http.MethodGet, "/api/bookings", nil, nil)
	require.Error(t, err)
	assert.True(t, clienterrors.IsUnauthorized(err))

	assert.Equal(t, 2, api.Hits("/api/bookings"))
	assert.Equal(t, 1, api.Hits(DefaultRefreshPath))
}

func TestDispatcher_ValidationErrorCarriesServerMessage(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.Handle("/api/users/register", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(t, w, http.StatusUnprocessableEntity, map[string]string{"message": "email already registered"})
	})

	d := newTestDispatcher(t, api, newTestCredentials(t), DispatcherOptions{})

	err := d.Do(context.Background(), http.MethodPost, "/api/users/register", map[string]string{}, nil)
	require.Error(t, err)
	assert.True(t, clienterrors.IsValidation(err))
	assert.Equal(t, http.StatusUnprocessableEntity, clienterrors.GetStatus(err))
	assert.Contains(t, err.Error(), "email already registered")
}

func TestDispatcher_MalformedErrorBodyFallsBackToStatusText(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.Handle("/api/events", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>boom</html>"))
	})

	d := newTestDispatcher(t, api, newTestCredentials(t), DispatcherOptions{})

	err := d.Do(context.Background(), http.MethodGet, "/api/events", nil, nil)
	require.Error(t, err)
	assert.True(t, clienterrors.IsValidation(err))
	assert.Contains(t, err.Error(), "request failed")
}

func TestDispatcher_EmptyErrorBodyFallsBackToStatusText(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.Handle("/api/events", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	d := newTestDispatcher(t, api, newTestCredentials(t), DispatcherOptions{})

	err := d.Do(context.Background(), http.MethodGet, "/api/events", nil, nil)
	require.Error(t, err)
	assert.True(t, clienterrors.IsValidation(err))
	assert.Equal(t, http.StatusBadGateway, clienterrors.GetStatus(err))
}

func TestDispatcher_CustomMessageSelector(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.Handle("/api/events", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(t, w, http.StatusBadRequest, map[string]any{
			"error": map[string]string{"detail": "date is in the past"},
		})
	})

	d := newTestDispatcher(t, api, newTestCredentials(t), DispatcherOptions{
		MessageSelector: "error.detail",
	})

	err := d.Do(context.Background(), http.MethodGet, "/api/events", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date is in the past")
}

func TestDispatcher_NonStringSelectorResultIgnored(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.Handle("/api/events", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(t, w, http.StatusBadRequest, map[string]any{"message": 42})
	})

	d := newTestDispatcher(t, api, newTestCredentials(t), DispatcherOptions{})

	err := d.Do(context.Background(), http.MethodGet, "/api/events", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestNewDispatcher_RejectsInvalidSelector(t *testing.T) {
	_, err := NewDispatcher(DispatcherOptions{
		BaseURL:         "http://localhost:5000",
		Credentials:     newTestCredentials(t),
		MessageSelector: "not a [ valid expression",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message selector")
}

func TestNewDispatcher_RequiresBaseURLAndStore(t *testing.T) {
	_, err := NewDispatcher(DispatcherOptions{Credentials: newTestCredentials(t)})
	assert.Error(t, err)

	_, err = NewDispatcher(DispatcherOptions{BaseURL: "http://localhost:5000"})
	assert.Error(t, err)
}

func TestDispatcher_TransportError(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	creds := newTestCredentials(t)
	d := newTestDispatcher(t, api, creds, DispatcherOptions{})
	api.Server.Close()

	err := d.Do(context.Background(), http.MethodGet, "/api/events", nil, nil)
	require.Error(t, err)
	assert.True(t, clienterrors.IsTransport(err))
}

func TestDispatcher_ReadsCredentialFromStoreOnEveryCall(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.Handle("/api/events", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(t, w, http.StatusOK, map[string]string{})
	})

	ctrl := gomock.NewController(t)
	store := mocks.NewMockCredentialStore(ctrl)
	store.EXPECT().Credential(gomock.Any()).Return("tok-1", nil).Times(2)

	d, err := NewDispatcher(DispatcherOptions{
		BaseURL:     api.URL(),
		Credentials: store,
	})
	require.NoError(t, err)

	require.NoError(t, d.Do(context.Background(), http.MethodGet, "/api/events", nil, nil))
	require.NoError(t, d.Do(context.Background(), http.MethodGet, "/api/events", nil, nil))
}

func TestDispatcher_CoalescedRefreshSharesOneExchange(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	creds := newTestCredentials(t)
	require.NoError(t, creds.WriteCredential(context.Background(), "stale"))

	api.Handle(DefaultRefreshPath, func(w http.ResponseWriter, r *http.Request) {
		// Hold the exchange open so every concurrent caller joins it.
		time.Sleep(100 * time.Millisecond)
		testutil.WriteJSON(t, w, http.StatusOK, map[string]string{"access_token": "fresh"})
	})

	d := newTestDispatcher(t, api, creds, DispatcherOptions{CoalesceRefresh: true})

	const workers = 4
	start := make(chan struct{})
	var wg sync.WaitGroup
	rotated := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			rotated[i], errs[i] = d.refresh(context.Background(), "stale")
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < workers; i++ {
		assert.NoError(t, errs[i], "worker %d", i)
		assert.Equal(t, "fresh", rotated[i], "worker %d", i)
	}
	assert.Equal(t, 1, api.Hits(DefaultRefreshPath))
}

func decodeRequest(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func TestDispatcher_BuildURL(t *testing.T) {
	creds := newTestCredentials(t)
	d, err := NewDispatcher(DispatcherOptions{
		BaseURL:     "http://localhost:5000/",
		Credentials: creds,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/api/events", d.BuildURL("/api/events"))
}
