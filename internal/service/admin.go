package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"prstocks-api/internal/cache"
	"prstocks-api/pkg/logger"
)

const (
	// AdminTokenPrefix marks every admin session token.
	AdminTokenPrefix = "pra_"

	adminTokenKeyPrefix = "admin:token:"
)

// ErrInvalidAdminToken is returned for unknown, expired or malformed tokens.
var ErrInvalidAdminToken = errors.New("invalid or expired admin token")

// AdminSession is what the cache holds for an issued token.
type AdminSession struct {
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminVerification is the outcome of a password check.
type AdminVerification struct {
	Verified  bool
	Token     string
	ExpiresAt time.Time
}

// AdminService checks the admin password against a bcrypt hash and hands
// out short-lived opaque tokens kept in a cache.
type AdminService struct {
	hash  []byte
	ttl   time.Duration
	cache cache.Cache
	log   *zap.Logger
	now   func() time.Time
}

// NewAdminService creates an admin service. An empty passwordHash disables
// admin verification entirely.
func NewAdminService(passwordHash string, ttl time.Duration, c cache.Cache, log *zap.Logger) *AdminService {
	s := &AdminService{
		ttl:   ttl,
		cache: c,
		log:   log.Named("[admin]"),
		now:   func() time.Time { return time.Now().UTC() },
	}
	if passwordHash != "" {
		s.hash = []byte(passwordHash)
	} else {
		s.log.Warn("ADMIN_PASSWORD_HASH is not set, admin verification will always fail")
	}
	return s
}

// Verify compares the trimmed password with the configured hash and issues
// a token on success. A wrong password is not an error.
func (s *AdminService) Verify(ctx context.Context, password string) (*AdminVerification, error) {
	if s.hash == nil {
		return &AdminVerification{}, nil
	}

	err := bcrypt.CompareHashAndPassword(s.hash, []byte(strings.TrimSpace(password)))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		s.log.Info("admin verification failed")
		return &AdminVerification{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check admin password: %w", err)
	}

	token, session, err := s.issueToken(ctx)
	if err != nil {
		return nil, err
	}

	s.log.Info("admin verified", logger.Any("expires_at", session.ExpiresAt))
	return &AdminVerification{Verified: true, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

func (s *AdminService) issueToken(ctx context.Context) (string, *AdminSession, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}
	token := AdminTokenPrefix + hex.EncodeToString(tokenBytes)

	now := s.now()
	session := &AdminSession{IssuedAt: now, ExpiresAt: now.Add(s.ttl)}

	data, err := json.Marshal(session)
	if err != nil {
		return "", nil, fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := s.cache.Set(ctx, adminTokenKeyPrefix+token, data, s.ttl); err != nil {
		return "", nil, fmt.Errorf("failed to store token: %w", err)
	}
	return token, session, nil
}

// ValidateToken checks that token was issued by Verify and has not expired.
func (s *AdminService) ValidateToken(ctx context.Context, token string) (*AdminSession, error) {
	if !strings.HasPrefix(token, AdminTokenPrefix) {
		return nil, ErrInvalidAdminToken
	}

	data, err := s.cache.Get(ctx, adminTokenKeyPrefix+token)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, ErrInvalidAdminToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var session AdminSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, ErrInvalidAdminToken
	}
	if !s.now().Before(session.ExpiresAt) {
		_ = s.cache.Delete(ctx, adminTokenKeyPrefix+token)
		return nil, ErrInvalidAdminToken
	}
	return &session, nil
}

// RevokeToken forgets a token.
func (s *AdminService) RevokeToken(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, adminTokenKeyPrefix+token)
}
