package application

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid is returned for malformed, forged or expired tokens.
	ErrTokenInvalid = errors.New("application: token invalid")
	// ErrTokenRevoked is returned for tokens that were explicitly banned.
	ErrTokenRevoked = errors.New("application: token revoked")
)

// TokenClaims is the payload carried by issued bearer tokens.
type TokenClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// RevocationStore tracks banned tokens. The default implementation is
// in-memory and resets on process restart, which deliberately invalidates
// every previously issued token.
type RevocationStore interface {
	Ban(token string, expiresAt time.Time)
	IsBanned(token string) bool
	Sweep(now time.Time)
}

// memoryRevocationStore keeps banned tokens keyed by token string and prunes
// expired entries lazily on each check.
type memoryRevocationStore struct {
	mu     sync.Mutex
	banned map[string]time.Time
	now    func() time.Time
}

// NewMemoryRevocationStore returns an in-memory revocation store.
func NewMemoryRevocationStore(now func() time.Time) RevocationStore {
	if now == nil {
		now = time.Now
	}
	return &memoryRevocationStore{banned: make(map[string]time.Time), now: now}
}

func (m *memoryRevocationStore) Ban(token string, expiresAt time.Time) {
	if token == "" {
		return
	}
	m.mu.Lock()
	m.banned[token] = expiresAt
	m.mu.Unlock()
}

func (m *memoryRevocationStore) IsBanned(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked(m.now())
	_, ok := m.banned[token]
	return ok
}

func (m *memoryRevocationStore) Sweep(now time.Time) {
	m.mu.Lock()
	m.sweepLocked(now)
	m.mu.Unlock()
}

func (m *memoryRevocationStore) sweepLocked(now time.Time) {
	for token, expiry := range m.banned {
		if now.After(expiry) {
			delete(m.banned, token)
		}
	}
}

// TokenService issues and validates the bearer tokens used by the HTTP
// layer. Revocation is delegated to the injected store so a persisted
// implementation can replace the in-memory one without touching call sites.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	revoked RevocationStore
	now     func() time.Time
}

// NewTokenService wires dependencies for token issuance and validation.
func NewTokenService(secret string, ttl time.Duration, revoked RevocationStore, now func() time.Time) *TokenService {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if revoked == nil {
		revoked = NewMemoryRevocationStore(now)
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, revoked: revoked, now: now}
}

// Issue signs a token for the given user.
func (s *TokenService) Issue(user User) (string, error) {
	if s == nil {
		return "", fmt.Errorf("TokenService is nil")
	}

	now := s.now()
	claims := TokenClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate parses and verifies a bearer token, rejecting revoked ones.
func (s *TokenService) Validate(token string) (TokenClaims, error) {
	if s == nil {
		return TokenClaims{}, fmt.Errorf("TokenService is nil")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return TokenClaims{}, ErrTokenInvalid
	}
	if s.revoked.IsBanned(token) {
		return TokenClaims{}, ErrTokenRevoked
	}

	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return TokenClaims{}, ErrTokenInvalid
	}

	return *claims, nil
}

// Revoke bans a token until its natural expiry, after which the lazy sweep
// forgets it.
func (s *TokenService) Revoke(token string) {
	if s == nil {
		return
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}

	expiry := s.now().Add(s.ttl)
	if claims, err := s.Validate(token); err == nil && claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	s.revoked.Ban(token, expiry)
}
