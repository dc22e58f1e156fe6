// Package session tracks the authenticated user and the selection cursor.
package session

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/chat-analyzer/gateway/internal/model"
	"github.com/chat-analyzer/gateway/internal/store"
	"github.com/chat-analyzer/gateway/internal/transport"
	"github.com/chat-analyzer/gateway/pkg/logger"
)

// Status is the authentication state.
type Status string

const (
	StatusIdle            Status = "idle"
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// ErrUserUnavailable is recorded when login succeeds but the profile cannot
// be loaded.
const ErrUserUnavailable = "Login successful but user data could not be loaded"

// State is a snapshot of the session.
type State struct {
	User            *model.User `json:"user"`
	Status          Status      `json:"auth_status"`
	Initialized     bool        `json:"auth_initialized"`
	LoadingLogin    bool        `json:"is_loading_login"`
	LoadingRegister bool        `json:"is_loading_register"`
	LoginError      string      `json:"login_error,omitempty"`
	RegisterError   string      `json:"register_error,omitempty"`
	UserError       string      `json:"user_error,omitempty"`
}

// Session drives the auth lifecycle against the backend. The session cookie
// lives in the transport's jar.
type Session struct {
	client transport.Requester
	logger *logger.Logger

	mu       sync.RWMutex
	state    State
	onLogout []func(context.Context)

	loginLatch    store.Latch
	registerLatch store.Latch
}

// New creates an idle session.
func New(client transport.Requester, log *logger.Logger) *Session {
	return &Session{
		client: client,
		logger: logger.OrGlobal(log).Named("session"),
		state:  State{Status: StatusIdle},
	}
}

// OnLogout registers a hook run after logout.
func (s *Session) OnLogout(fn func(context.Context)) {
	s.mu.Lock()
	s.onLogout = append(s.onLogout, fn)
	s.mu.Unlock()
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

// User returns the current user, or nil.
func (s *Session) User() *model.User {
	return s.State().User
}

// Status returns the authentication state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Status
}

// Initialized reports whether a bootstrap has completed.
func (s *Session) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Initialized
}

// Authenticated implements store.Gate.
func (s *Session) Authenticated() bool {
	return s.Status() == StatusAuthenticated
}

// Bootstrap loads the current user from the backend session cookie. It is a
// no-op while another bootstrap is running.
func (s *Session) Bootstrap(ctx context.Context) {
	s.mu.Lock()
	if s.state.Status == StatusLoading {
		s.mu.Unlock()
		return
	}
	s.state.Status = StatusLoading
	s.state.UserError = ""
	s.mu.Unlock()

	body, err := s.client.Do(ctx, "/api/auth/user/", transport.Options{Method: http.MethodGet})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Initialized = true
	if err != nil {
		s.state.User = nil
		s.state.Status = StatusUnauthenticated
		s.state.UserError = err.Error()
		s.logger.Debug("Session bootstrap failed", zap.Error(err))
		return
	}

	user := model.NormalizeUser(transport.NestedContent(body))
	if user == nil {
		s.logger.Warn("User payload missing required fields")
		s.state.User = nil
		s.state.Status = StatusUnauthenticated
		return
	}
	s.state.User = user
	s.state.Status = StatusAuthenticated
}

// Login authenticates with the backend and bootstraps the user. It returns
// false when another login is running or when the user ends unauthenticated.
func (s *Session) Login(ctx context.Context, username, password string) bool {
	if !s.loginLatch.TryAcquire() {
		return false
	}
	defer s.loginLatch.Release()

	s.mu.Lock()
	s.state.LoadingLogin = true
	s.state.LoginError = ""
	s.state.UserError = ""
	s.mu.Unlock()

	_, err := s.client.Do(ctx, "/api/auth/login/", transport.Options{
		Method: http.MethodPost,
		Body:   model.Credentials{Username: username, Password: password},
	})
	if err != nil {
		s.mu.Lock()
		s.state.LoginError = err.Error()
		s.state.LoadingLogin = false
		s.state.UserError = ""
		s.mu.Unlock()
		s.logger.Info("Login rejected", zap.String("username", username))
		return false
	}

	s.Bootstrap(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LoadingLogin = false
	if s.state.Status != StatusAuthenticated {
		s.state.LoginError = ErrUserUnavailable
		return false
	}
	s.logger.Info("Logged in", zap.String("username", username))
	return true
}

// Register creates a backend account. It does not log in.
func (s *Session) Register(ctx context.Context, req model.RegisterRequest) bool {
	if !s.registerLatch.TryAcquire() {
		return false
	}
	defer s.registerLatch.Release()

	s.mu.Lock()
	s.state.LoadingRegister = true
	s.state.RegisterError = ""
	s.state.UserError = ""
	s.mu.Unlock()

	_, err := s.client.Do(ctx, "/api/auth/register/", transport.Options{Method: http.MethodPost, Body: req})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LoadingRegister = false
	if err != nil {
		s.state.RegisterError = err.Error()
		return false
	}
	return true
}

// Logout ends the backend session, ignoring errors, and runs the logout
// hooks. The session ends unauthenticated.
func (s *Session) Logout(ctx context.Context) {
	if _, err := s.client.Do(ctx, "/api/auth/logout/", transport.Options{Method: http.MethodPost}); err != nil {
		s.logger.Debug("Logout request failed", zap.Error(err))
	}

	s.mu.Lock()
	s.state = State{Status: StatusUnauthenticated, Initialized: true}
	hooks := append([]func(context.Context){}, s.onLogout...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(ctx)
	}
}
