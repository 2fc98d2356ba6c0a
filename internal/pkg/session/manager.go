// internal/pkg/session/manager.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"voucher-portal/internal/domain/auth"
	xerrors "voucher-portal/internal/pkg/errors"
	"voucher-portal/internal/pkg/jwt"
	"voucher-portal/internal/pkg/storage"

	"go.uber.org/zap"
)

type Manager struct {
	store  storage.Store
	logger *zap.Logger
	now    func() time.Time

	mu          sync.RWMutex
	subscribers map[uint64]func(Event)
	nextID      uint64
}

type Option func(*Manager)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(store storage.Store, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		store:       store,
		logger:      logger,
		now:         time.Now,
		subscribers: make(map[uint64]func(Event)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Scope binds a portal session id to the manager.
func (m *Manager) Scope(id string) *Session {
	return &Session{m: m, scope: id}
}

// Subscribe registers fn for every session change. fn runs on the goroutine
// that made the change and must not block. The returned func unregisters it.
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) publish(scope string, typ EventType, user *auth.User) {
	m.mu.RLock()
	fns := make([]func(Event), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	ev := Event{Scope: scope, Type: typ, User: user, At: m.now()}
	for _, fn := range fns {
		fn(ev)
	}
}

// Session is the token and user state of one portal session.
type Session struct {
	m     *Manager
	scope string
}

func (s *Session) ID() string {
	return s.scope
}

func (s *Session) SetToken(ctx context.Context, token string) error {
	return s.m.store.Set(ctx, s.scope, TokenKey, token)
}

// GetToken returns "" when no token is stored.
func (s *Session) GetToken(ctx context.Context) (string, error) {
	return s.get(ctx, TokenKey)
}

func (s *Session) SetRefreshToken(ctx context.Context, token string) error {
	return s.m.store.Set(ctx, s.scope, RefreshTokenKey, token)
}

func (s *Session) GetRefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, RefreshTokenKey)
}

// ClearAuthData removes all three storage slots whether or not they are set.
func (s *Session) ClearAuthData(ctx context.Context) error {
	if err := s.m.store.Delete(ctx, s.scope, TokenKey, RefreshTokenKey, UserKey); err != nil {
		return fmt.Errorf("failed to clear auth data: %w", err)
	}
	return nil
}

func (s *Session) SetUser(ctx context.Context, user *auth.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	return s.m.store.Set(ctx, s.scope, UserKey, string(data))
}

// GetUser returns nil without error when no snapshot is stored or the stored
// snapshot cannot be parsed. Only storage failures are reported.
func (s *Session) GetUser(ctx context.Context) (*auth.User, error) {
	raw, err := s.get(ctx, UserKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	var user auth.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.m.logger.Warn("discarding unreadable user snapshot",
			zap.String("scope", s.scope),
			zap.Error(err),
		)
		return nil, nil
	}
	return &user, nil
}

// IsAuthenticated is true when a stored token decodes and its expiry lies
// after the current second.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	payload, ok := s.payload(ctx)
	if !ok {
		return false
	}
	return s.authenticated(payload)
}

// NeedsRefresh is true when the stored token expires in under
// RefreshThreshold. A token that cannot be decoded also needs a refresh;
// no token at all does not.
func (s *Session) NeedsRefresh(ctx context.Context) bool {
	token, err := s.GetToken(ctx)
	if err != nil {
		s.m.logger.Warn("token lookup failed", zap.String("scope", s.scope), zap.Error(err))
		return true
	}
	if token == "" {
		return false
	}
	payload, err := jwt.Decode(token)
	if err != nil {
		return true
	}
	return s.needsRefresh(payload)
}

// Status summarises the stored token for the portal.
func (s *Session) Status(ctx context.Context) auth.Status {
	token, err := s.GetToken(ctx)
	if err != nil {
		s.m.logger.Warn("token lookup failed", zap.String("scope", s.scope), zap.Error(err))
		return auth.Status{NeedsRefresh: true}
	}
	if token == "" {
		return auth.Status{}
	}
	payload, err := jwt.Decode(token)
	if err != nil {
		return auth.Status{NeedsRefresh: true}
	}

	status := auth.Status{
		Authenticated: s.authenticated(payload),
		NeedsRefresh:  s.needsRefresh(payload),
	}
	if payload.HasExpiry() {
		exp := payload.ExpiresAt.Time.UTC()
		status.ExpiresAt = &exp
	}
	return status
}

// Login stores the tokens, then derives the user from the access token. The
// token stays stored even when it cannot be decoded; in that case, or when it
// is already expired, no user is returned, any earlier user snapshot is
// removed and the caller should treat the session as logged out.
func (s *Session) Login(ctx context.Context, req *auth.LoginRequest) (*auth.User, error) {
	if err := s.SetToken(ctx, req.Token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}
	if err := s.replaceRefreshToken(ctx, req.RefreshToken); err != nil {
		return nil, err
	}

	payload, err := jwt.Decode(req.Token)
	if err != nil {
		s.m.logger.Warn("stored token could not be decoded",
			zap.String("scope", s.scope),
			zap.Error(err),
		)
		return nil, s.dropUser(ctx)
	}
	if !s.authenticated(payload) {
		s.m.logger.Info("stored token is already expired", zap.String("scope", s.scope))
		return nil, s.dropUser(ctx)
	}

	user := UserFromPayload(payload, req.Permissions)
	if err := s.SetUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}

	s.m.publish(s.scope, EventLogin, user)
	return user, nil
}

// replaceRefreshToken stores the refresh token of this login, or removes the
// previous one when none came with it.
func (s *Session) replaceRefreshToken(ctx context.Context, token string) error {
	if token == "" {
		if err := s.m.store.Delete(ctx, s.scope, RefreshTokenKey); err != nil {
			return fmt.Errorf("failed to clear refresh token: %w", err)
		}
		return nil
	}
	if err := s.SetRefreshToken(ctx, token); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

// dropUser removes a snapshot that no longer matches the stored token.
func (s *Session) dropUser(ctx context.Context) error {
	if err := s.m.store.Delete(ctx, s.scope, UserKey); err != nil {
		return fmt.Errorf("failed to clear user: %w", err)
	}
	return nil
}

// Logout clears all auth data and notifies subscribers.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.ClearAuthData(ctx); err != nil {
		return err
	}
	s.m.publish(s.scope, EventLogout, nil)
	return nil
}

// Current returns the user of an authenticated session, or nil. A stored
// token that no longer authenticates clears the session. A missing or stale
// user snapshot is rebuilt from the token.
func (s *Session) Current(ctx context.Context) (*auth.User, error) {
	token, err := s.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	payload, err := jwt.Decode(token)
	if err != nil || !s.authenticated(payload) {
		if err := s.ClearAuthData(ctx); err != nil {
			return nil, err
		}
		s.m.publish(s.scope, EventExpired, nil)
		return nil, nil
	}

	user, err := s.GetUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil || user.ID != string(payload.Subject) {
		user = UserFromPayload(payload, nil)
		if err := s.SetUser(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (s *Session) payload(ctx context.Context) (*jwt.Payload, bool) {
	token, err := s.GetToken(ctx)
	if err != nil {
		s.m.logger.Warn("token lookup failed", zap.String("scope", s.scope), zap.Error(err))
		return nil, false
	}
	if token == "" {
		return nil, false
	}
	payload, err := jwt.Decode(token)
	if err != nil {
		return nil, false
	}
	return payload, true
}

func (s *Session) authenticated(p *jwt.Payload) bool {
	return p.HasExpiry() && p.ExpiresAtUnix() > s.m.now().Unix()
}

// A token without "exp" is treated as due for refresh.
func (s *Session) needsRefresh(p *jwt.Payload) bool {
	if !p.HasExpiry() {
		return true
	}
	return p.SecondsUntilExpiry(s.m.now()) < RefreshThreshold.Seconds()
}

func (s *Session) get(ctx context.Context, key string) (string, error) {
	v, err := s.m.store.Get(ctx, s.scope, key)
	if errors.Is(err, xerrors.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, nil
}
