// Package session implements the server-side session layer: it issues opaque
// bearer tokens bound to an account and resolves or revokes them.
//
// A token is an HS256 JWT whose jti is registered in Redis at creation.
// Resolving requires both a valid signature and a live jti, so logout can
// invalidate a session before its expiry. When Redis is unavailable the store
// falls back to an in-process registry; sessions then don't survive a restart,
// which matches the lifecycle of any in-memory session cache.
package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"picpal/internal/middleware"
	"picpal/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	issuer   = "picpal-api"
	audience = "picpal-client"
)

// Store issues, resolves, and revokes sessions.
type Store struct {
	secret []byte
	ttl    time.Duration
	rdb    *redis.Client

	mu    sync.Mutex
	local map[string]time.Time // jti -> expiry, used when rdb is nil
}

// NewStore creates a session store. rdb may be nil.
func NewStore(secret string, ttl time.Duration, rdb *redis.Client) *Store {
	return &Store{
		secret: []byte(secret),
		ttl:    ttl,
		rdb:    rdb,
		local:  make(map[string]time.Time),
	}
}

func sessionKey(jti string) string {
	return "sess:" + jti
}

// Create establishes a new session for the given account and returns its token.
func (s *Store) Create(ctx context.Context, userID uint) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("session secret not configured")
	}

	now := time.Now()
	jti := uuid.NewString()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": issuer,
		"aud": audience,
		"exp": now.Add(s.ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": jti,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}

	if err := s.register(ctx, jti, userID); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Store) register(ctx context.Context, jti string, userID uint) error {
	if s.rdb != nil {
		if err := s.rdb.Set(ctx, sessionKey(jti), userID, s.ttl).Err(); err != nil {
			middleware.RedisErrors.WithLabelValues("set").Inc()
			return err
		}
		return nil
	}
	s.mu.Lock()
	s.local[jti] = time.Now().Add(s.ttl)
	s.mu.Unlock()
	return nil
}

// Resolve maps a token to the account it was issued for. It returns an
// Unauthorized error for any token that is malformed, expired, or revoked.
func (s *Store) Resolve(ctx context.Context, tokenString string) (uint, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return 0, models.NewUnauthorizedError("Invalid or expired token")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, models.NewUnauthorizedError("Invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return 0, models.NewUnauthorizedError("Invalid user ID in token")
	}

	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return 0, models.NewUnauthorizedError("Invalid token ID")
	}
	live, err := s.isLive(ctx, jti)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	if !live {
		return 0, models.NewUnauthorizedError("Session has been revoked")
	}

	return uint(userID), nil
}

func (s *Store) isLive(ctx context.Context, jti string) (bool, error) {
	if s.rdb != nil {
		n, err := s.rdb.Exists(ctx, sessionKey(jti)).Result()
		if err != nil {
			middleware.RedisErrors.WithLabelValues("exists").Inc()
			return false, err
		}
		return n > 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.local[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(s.local, jti)
		return false, nil
	}
	return true, nil
}

// Revoke destroys the session behind the token. Revoking an unknown, expired,
// or malformed token is not an error: logout is idempotent.
func (s *Store) Revoke(ctx context.Context, tokenString string) error {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil
	}
	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return nil
	}

	if s.rdb != nil {
		if err := s.rdb.Del(ctx, sessionKey(jti)).Err(); err != nil {
			middleware.RedisErrors.WithLabelValues("del").Inc()
			return err
		}
		return nil
	}
	s.mu.Lock()
	delete(s.local, jti)
	s.mu.Unlock()
	return nil
}

func (s *Store) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithAudience(audience))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
