package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"nursery-tracker/internal/api"
	"nursery-tracker/internal/domain"
	"nursery-tracker/internal/repository"
)

// State is the session lifecycle phase. The manager starts in StateLoading
// and settles into one of the other two after Restore.
type State string

const (
	StateLoading         State = "loading"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

// ErrIncompleteCredentials is returned when the backend answers an auth call
// with a 2xx but an empty token or username.
var ErrIncompleteCredentials = errors.New("backend returned incomplete credentials")

// Authenticator is the slice of the API client the manager needs.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (api.Credentials, error)
	Register(ctx context.Context, username, password string) (api.Credentials, error)
}

// Manager owns the session: it is the single writer of the token and
// username, both in memory and in the credential store. Everything else
// reads the token through the TokenSource view.
type Manager struct {
	auth   Authenticator
	store  repository.CredentialStore
	logger *logrus.Logger

	mu      sync.RWMutex
	state   State
	session domain.Session
}

func NewManager(auth Authenticator, store repository.CredentialStore, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		auth:   auth,
		store:  store,
		logger: logger,
		state:  StateLoading,
	}
}

// State returns the current lifecycle phase.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Current returns a copy of the session.
func (m *Manager) Current() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Authenticated reports whether a complete session is active.
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateAuthenticated
}

// Token implements api.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Token
}

// Restore loads persisted credentials. Both entries must be present (and the
// token not visibly expired) for the session to come back authenticated;
// every failure path degrades to logged out. Restore never returns an error:
// store problems are logged and treated as absent values.
func (m *Manager) Restore(ctx context.Context) {
	token := m.readKey(ctx, repository.KeyToken)
	username := m.readKey(ctx, repository.KeyUsername)

	if token == "" || username == "" {
		m.setUnauthenticated()
		return
	}
	if tokenExpired(token) {
		m.logger.WithField("username", username).Info("persisted token expired, discarding session")
		m.setUnauthenticated()
		return
	}

	m.mu.Lock()
	m.session = domain.Session{Token: token, Username: username}
	m.state = StateAuthenticated
	m.mu.Unlock()
}

// Login authenticates against the backend and, on success, persists and
// adopts the returned credentials. On failure the session stays logged out.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	creds, err := m.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return m.adopt(ctx, creds)
}

// Register creates an account; success and failure semantics match Login.
func (m *Manager) Register(ctx context.Context, username, password string) error {
	creds, err := m.auth.Register(ctx, username, password)
	if err != nil {
		return err
	}
	return m.adopt(ctx, creds)
}

// Logout clears persisted and in-memory state unconditionally. It does not
// call the backend and cannot fail; store errors are logged only.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.store.Delete(ctx, repository.KeyToken); err != nil {
		m.logger.WithError(err).Warn("clear persisted token")
	}
	if err := m.store.Delete(ctx, repository.KeyUsername); err != nil {
		m.logger.WithError(err).Warn("clear persisted username")
	}
	m.setUnauthenticated()
}

func (m *Manager) adopt(ctx context.Context, creds api.Credentials) error {
	if creds.AccessToken == "" || creds.Username == "" {
		return ErrIncompleteCredentials
	}

	// Two independent writes, atomic per key. A crash in between leaves
	// partial state that Restore already treats as "no session".
	if err := m.store.Set(ctx, repository.KeyToken, creds.AccessToken); err != nil {
		m.logger.WithError(err).Warn("persist token")
	}
	if err := m.store.Set(ctx, repository.KeyUsername, creds.Username); err != nil {
		m.logger.WithError(err).Warn("persist username")
	}

	m.mu.Lock()
	m.session = domain.Session{Token: creds.AccessToken, Username: creds.Username}
	m.state = StateAuthenticated
	m.mu.Unlock()
	return nil
}

func (m *Manager) setUnauthenticated() {
	m.mu.Lock()
	m.session = domain.Session{}
	m.state = StateUnauthenticated
	m.mu.Unlock()
}

func (m *Manager) readKey(ctx context.Context, key string) string {
	value, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.logger.WithError(err).WithField("key", key).Warn("read persisted credential")
		return ""
	}
	if !ok {
		return ""
	}
	return value
}

// tokenExpired inspects the token's exp claim without verifying the
// signature; the client holds no signing secret, the check only avoids
// presenting a token the backend is guaranteed to reject. Tokens that do
// not parse as JWTs are treated as opaque and passed through.
func tokenExpired(token string) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
