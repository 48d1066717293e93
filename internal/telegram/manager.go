package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/celestix/gotgproto"
	"github.com/cenkalti/backoff/v4"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"tgmedia/internal/config"
	"tgmedia/internal/logger"
)

// ClientFactory is a function that creates a telegram client. Replaced
// in tests.
type ClientFactory func(apiID int, apiHash string, db *gorm.DB) (*gotgproto.Client, error)

// Manager handles telegram client lifecycle: session storage, connection
// with retry, and shutdown.
type Manager struct {
	cfg     *config.Config
	log     *logger.Logger
	factory ClientFactory

	db     *gorm.DB
	client *gotgproto.Client
}

// NewManager creates a telegram manager.
func NewManager(cfg *config.Config, log *logger.Logger) *Manager {
	return &Manager{
		cfg:     cfg,
		log:     log,
		factory: NewSessionClient,
	}
}

// SetClientFactory overrides client creation, for tests.
func (m *Manager) SetClientFactory(f ClientFactory) {
	m.factory = f
}

// Connect opens the session store and establishes the telegram
// connection, retrying transient failures with exponential backoff up to
// the configured attempt count before giving up.
func (m *Manager) Connect(ctx context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.cfg.Telegram.SessionDB), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("open session store %s: %w", m.cfg.Telegram.SessionDB, err)
	}
	m.db = db

	attempts := m.cfg.Telegram.MaxRetries
	if attempts <= 0 {
		attempts = 3
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 10 * time.Second

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		client, cerr := m.factory(m.cfg.APIID, m.cfg.APIHash, db)
		if cerr != nil {
			m.log.Warn().Err(cerr).Int("attempt", attempt).Int("max", attempts).Msg("telegram: connect failed, retrying")
			return cerr
		}
		m.client = client
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx))
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}

	m.log.Info().Str("user", m.client.Self.Username).Msg("telegram: connected")
	return nil
}

// Client returns a high-level client wrapper over the active connection.
func (m *Manager) Client() *Client {
	limiter := DefaultRateLimiter()
	if m.cfg.Telegram.RequestRPS > 0 {
		limiter = NewRateLimiter(m.cfg.Telegram.RequestRPS, 1)
	}
	return NewClient(m.client, limiter, m.log)
}

// Stop shuts down the telegram client.
func (m *Manager) Stop() {
	if m.client != nil {
		m.client.Stop()
	}
}
