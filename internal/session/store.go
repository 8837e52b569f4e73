// Package session tracks the authenticated user of the companion process.
//
// The store has two states, Anonymous and Authenticated. It moves between them only
// through Init, Login, Register and Logout. Every transition bumps an epoch; a backend
// response that returns after a newer transition is discarded.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/healthmate/companion/internal/apiclient"
	"github.com/healthmate/companion/pkg/model"
)

var (
	// ErrValidation is returned when a required field is missing. No backend call is made.
	ErrValidation = errors.New("validation failed")
	// ErrSuperseded is returned when a newer transition happened while a call was in flight
	ErrSuperseded = errors.New("session changed while the request was in flight")
)

// State is the authentication state of the store
type State string

const (
	Anonymous     State = "anonymous"
	Authenticated State = "authenticated"
)

// AuthClient is the subset of the backend client the store needs
type AuthClient interface {
	Register(ctx context.Context, profile apiclient.RegisterRequest) (*model.Session, error)
	Login(ctx context.Context, creds apiclient.LoginRequest) (*model.Session, error)
	Me(ctx context.Context) (*model.User, error)
}

// Store holds the current session
type Store struct {
	auth   AuthClient
	tokens TokenStore
	logger *zap.Logger

	mu    sync.RWMutex
	user  *model.User
	token string
	epoch uint64
}

// NewStore creates an Anonymous store
func NewStore(auth AuthClient, tokens TokenStore, logger *zap.Logger) *Store {
	return &Store{
		auth:   auth,
		tokens: tokens,
		logger: logger,
	}
}

// Token returns the bearer token for outbound calls. During Init it is the persisted
// token still being verified.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// State reports the current state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user != nil && s.token != "" {
		return Authenticated
	}
	return Anonymous
}

// IsAuthenticated reports whether a user is logged in
func (s *Store) IsAuthenticated() bool {
	return s.State() == Authenticated
}

// Current returns a copy of the logged in user
func (s *Store) Current() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil || s.token == "" {
		return model.User{}, false
	}
	return *s.user, true
}

// Init hydrates the store from the persisted token. A token the backend rejects is
// cleared and the store stays Anonymous; this is not reported as an error.
func (s *Store) Init(ctx context.Context) State {
	token, err := s.tokens.Load()
	if err != nil {
		s.logger.Warn("persisted session token unreadable, discarding", zap.Error(err))
		s.clearPersisted()
		return Anonymous
	}
	if token == "" {
		return Anonymous
	}

	s.mu.Lock()
	s.token = token
	epoch := s.epoch
	s.mu.Unlock()

	user, err := s.auth.Me(ctx)
	if err == nil && (user == nil || user.ID == "") {
		err = apiclient.ErrMissingUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		s.logger.Debug("discarding stale session restore")
		return s.stateLocked()
	}

	if err != nil {
		s.logger.Info("persisted session rejected, continuing anonymous",
			zap.Int("status", apiclient.StatusOf(err)),
			zap.Error(err),
		)
		s.epoch++
		s.token = ""
		s.user = nil
		s.clearPersisted()
		return Anonymous
	}

	s.user = user
	s.logger.Info("session restored", zap.String("user_id", user.ID))
	return Authenticated
}

// Login authenticates with email and password. On failure the state is unchanged and
// the returned error carries the server's message.
func (s *Store) Login(ctx context.Context, email, password string) (*model.User, error) {
	if err := required(map[string]string{"email": email, "password": password}, "email", "password"); err != nil {
		return nil, err
	}

	epoch := s.begin()
	sess, err := s.auth.Login(ctx, apiclient.LoginRequest{Email: email, Password: password})
	if err != nil {
		s.logger.Warn("login failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	return s.commit(epoch, sess)
}

// MinPasswordLength is the shortest password Register accepts
const MinPasswordLength = 6

// Register creates an account and logs it in. Name, email and password are required,
// the password at least MinPasswordLength characters; gender defaults to "male".
func (s *Store) Register(ctx context.Context, profile apiclient.RegisterRequest) (*model.User, error) {
	fields := map[string]string{
		"name":     profile.Name,
		"email":    profile.Email,
		"password": profile.Password,
	}
	if err := required(fields, "name", "email", "password"); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(profile.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}
	if profile.Gender == "" {
		profile.Gender = "male"
	}

	epoch := s.begin()
	sess, err := s.auth.Register(ctx, profile)
	if err != nil {
		s.logger.Warn("registration failed", zap.String("email", profile.Email), zap.Error(err))
		return nil, err
	}
	return s.commit(epoch, sess)
}

// Logout clears the persisted token and returns to Anonymous unconditionally
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.token = ""
	s.user = nil
	s.clearPersisted()
	s.logger.Info("logged out")
}

func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	return s.epoch
}

func (s *Store) commit(epoch uint64, sess *model.Session) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		s.logger.Debug("discarding stale authentication response")
		return nil, ErrSuperseded
	}
	if sess == nil || sess.Token == "" || sess.User.ID == "" {
		s.logger.Warn("authentication response carries no user, staying anonymous")
		return nil, apiclient.ErrMissingUser
	}

	user := sess.User
	s.epoch++
	s.user = &user
	s.token = sess.Token

	if err := s.tokens.Save(sess.Token); err != nil {
		// The session still works for this process.
		s.logger.Error("failed to persist session token", zap.Error(err))
	}

	s.logger.Info("authenticated", zap.String("user_id", user.ID))
	return &user, nil
}

// stateLocked is State for callers that already hold mu
func (s *Store) stateLocked() State {
	if s.user != nil && s.token != "" {
		return Authenticated
	}
	return Anonymous
}

func (s *Store) clearPersisted() {
	if err := s.tokens.Clear(); err != nil {
		s.logger.Error("failed to clear persisted token", zap.Error(err))
	}
}

func required(values map[string]string, order ...string) error {
	for _, field := range order {
		if strings.TrimSpace(values[field]) == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, field)
		}
	}
	return nil
}
