package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	goredis "github.com/redis/go-redis/v9"

	"github.com/evently/evently-go/config"
	"github.com/evently/evently-go/internal/adapters/cookiestore"
	"github.com/evently/evently-go/internal/adapters/credstore"
	"github.com/evently/evently-go/internal/adapters/filestore"
	redisadapter "github.com/evently/evently-go/internal/adapters/redis"
	"github.com/evently/evently-go/internal/ports"
	"github.com/evently/evently-go/internal/service"
)

// File names inside the store directory.
const (
	durableFileName = "credentials.json"
	cookieFileName  = "cookies.json"
)

// Client bundles the wired client core handed to consumers.
type Client struct {
	Credentials ports.CredentialStore
	Dispatcher  *service.Dispatcher
	Sessions    *service.SessionController

	// redisClient is retained for Close; nil with the file backend.
	redisClient goredis.UniversalClient
}

// Close releases backend connections held by the client.
func (c *Client) Close() error {
	if c.redisClient != nil {
		return c.redisClient.Close()
	}
	return nil
}

// BuildClient wires stores, dispatcher, and session controller from
// configuration. The returned client's session cell is still in the
// loading state; callers run Sessions.Bootstrap once at startup.
func BuildClient(cfg config.AppConfig, logger *slog.Logger) (*Client, error) {
	dir, err := storeDir(cfg.Store)
	if err != nil {
		return nil, err
	}

	durable := filestore.New(filepath.Join(dir, durableFileName))

	var expiring ports.BackingStore
	var redisClient goredis.UniversalClient
	switch cfg.Store.CookieBackend {
	case config.CookieBackendRedis:
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		expiring = redisadapter.NewExpiringStore(redisClient, cfg.Store.CookieTTL)
	default:
		expiring = cookiestore.New(cookiestore.Config{
			Path:   filepath.Join(dir, cookieFileName),
			Domain: cfg.Store.CookieDomain,
			TTL:    cfg.Store.CookieTTL,
		})
	}

	credentials, err := credstore.New(credstore.Options{
		Durable:  durable,
		Expiring: expiring,
	})
	if err != nil {
		return nil, fmt.Errorf("build credential store: %w", err)
	}

	dispatcher, err := service.NewDispatcher(service.DispatcherOptions{
		BaseURL:         cfg.API.BaseURL,
		Credentials:     credentials,
		HTTPClient:      &http.Client{Timeout: cfg.API.Timeout},
		RefreshPath:     cfg.Auth.RefreshPath,
		MessageSelector: cfg.API.ErrorMessagePath,
		CoalesceRefresh: cfg.Auth.CoalesceRefresh,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build dispatcher: %w", err)
	}

	sessions, err := service.NewSessionController(service.SessionControllerOptions{
		Dispatcher:  dispatcher,
		Credentials: credentials,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build session controller: %w", err)
	}

	return &Client{
		Credentials: credentials,
		Dispatcher:  dispatcher,
		Sessions:    sessions,
		redisClient: redisClient,
	}, nil
}

// storeDir resolves the configured store directory, defaulting to the
// per-user config directory.
func storeDir(cfg config.StoreConfig) (string, error) {
	if cfg.Dir != "" {
		return cfg.Dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "evently"), nil
}
