package auth

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const defaultSessionTTL = 30 * 24 * time.Hour

var (
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]{2,31}$`)

// Manager provides in-memory account/session management for single-binary deployment.
type Manager struct {
	mu sync.Mutex

	clock         quartz.Clock
	sessionTTL    time.Duration
	sessions      map[string]sessionRecord // token -> account
	accountsByID  map[string]accountRecord
	accountsByKey map[string]string // normalized username -> account
}

type sessionRecord struct {
	AccountID string
	ExpiresAt time.Time
}

type accountRecord struct {
	Identity
	PasswordHash  []byte
	LastLoginTime time.Time
}

type Option func(*Manager)

func WithClock(clock quartz.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.sessionTTL = ttl
		}
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		clock:         quartz.NewReal(),
		sessionTTL:    defaultSessionTTL,
		sessions:      make(map[string]sessionRecord),
		accountsByID:  make(map[string]accountRecord),
		accountsByKey: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Close() error { return nil }

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(strings.TrimSpace(username)) {
		return ErrInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

func (m *Manager) issueSessionLocked(accountID string, now time.Time) string {
	token := uuid.NewString()
	m.sessions[token] = sessionRecord{
		AccountID: accountID,
		ExpiresAt: now.Add(m.sessionTTL),
	}
	return token
}

// Register creates a new account and returns an authenticated session token.
func (m *Manager) Register(username, password string) (Identity, string, error) {
	if err := validateUsername(username); err != nil {
		return Identity{}, "", err
	}
	if err := validatePassword(password); err != nil {
		return Identity{}, "", err
	}

	normalized := normalizeUsername(username)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accountsByKey[normalized]; exists {
		return Identity{}, "", ErrUsernameTaken
	}

	now := m.clock.Now()
	id := Identity{ID: uuid.NewString(), Name: normalized}
	m.accountsByID[id.ID] = accountRecord{
		Identity:      id,
		PasswordHash:  passwordHash,
		LastLoginTime: now,
	}
	m.accountsByKey[normalized] = id.ID
	return id, m.issueSessionLocked(id.ID, now), nil
}

// Login validates account credentials and returns a fresh authenticated session.
func (m *Manager) Login(username, password string) (Identity, string, error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return Identity{}, "", ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	accountID, exists := m.accountsByKey[normalized]
	if !exists {
		return Identity{}, "", ErrInvalidCredentials
	}
	profile := m.accountsByID[accountID]
	if len(profile.PasswordHash) == 0 {
		return Identity{}, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(profile.PasswordHash, []byte(password)) != nil {
		return Identity{}, "", ErrInvalidCredentials
	}

	now := m.clock.Now()
	profile.LastLoginTime = now
	m.accountsByID[accountID] = profile
	return profile.Identity, m.issueSessionLocked(accountID, now), nil
}

func (m *Manager) Guest(displayName string) (Identity, string, error) {
	name := strings.TrimSpace(displayName)
	if name == "" || len(name) > 32 {
		return Identity{}, "", ErrInvalidUsername
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	id := Identity{ID: uuid.NewString(), Name: name, Guest: true}
	m.accountsByID[id.ID] = accountRecord{Identity: id, LastLoginTime: now}
	return id, m.issueSessionLocked(id.ID, now), nil
}

// ResolveSession validates and refreshes a session token.
func (m *Manager) ResolveSession(token string) (Identity, bool) {
	if token == "" {
		return Identity{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.sessions[token]
	if !exists {
		return Identity{}, false
	}
	now := m.clock.Now()
	if !now.Before(rec.ExpiresAt) {
		delete(m.sessions, token)
		return Identity{}, false
	}
	rec.ExpiresAt = now.Add(m.sessionTTL)
	m.sessions[token] = rec
	return m.accountsByID[rec.AccountID].Identity, true
}

// Logout invalidates a session token.
func (m *Manager) Logout(token string) {
	if token == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}
