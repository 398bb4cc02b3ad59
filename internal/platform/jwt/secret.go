package jwtmw

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// MinSecretLen is the shortest configured or stored secret accepted.
const MinSecretLen = 32

var (
	// ErrSecretRequired is returned when no secret is configured or stored and
	// generating one is not allowed.
	ErrSecretRequired = errors.New("jwt secret is not configured")
	// ErrSecretTooShort is returned for secrets shorter than MinSecretLen bytes.
	ErrSecretTooShort = fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLen)
)

// SecretSource records where the signing secret came from.
type SecretSource string

const (
	SourceConfig SecretSource = "config"
	SourceStore  SecretSource = "store"
	SourceRandom SecretSource = "random"
)

// SecretStore looks up a signing secret shared between processes.
type SecretStore interface {
	// LookupSecret returns found=false when nothing is stored.
	LookupSecret(ctx context.Context) (secret string, found bool, err error)
}

// ResolveSecret picks the signing secret once at startup: explicit config first,
// then store (may be nil), then a random value when allowRandom is set.
//
// A random secret lives only as long as this process. Tokens it signs are rejected
// by every other replica and after a restart, so allowRandom must stay off outside
// local development.
func ResolveSecret(ctx context.Context, explicit string, store SecretStore, allowRandom bool) ([]byte, SecretSource, error) {
	if explicit != "" {
		if len(explicit) < MinSecretLen {
			return nil, "", ErrSecretTooShort
		}
		return []byte(explicit), SourceConfig, nil
	}

	if store != nil {
		s, found, err := store.LookupSecret(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read secret store: %w", err)
		}
		if found {
			if len(s) < MinSecretLen {
				return nil, "", ErrSecretTooShort
			}
			return []byte(s), SourceStore, nil
		}
	}

	if !allowRandom {
		return nil, "", ErrSecretRequired
	}

	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return nil, "", fmt.Errorf("failed to generate secret: %w", err)
	}
	slog.Warn("JWT_SECRET is not set; using a random per-process secret. Tokens will not survive a restart or verify on other instances.")
	return []byte(hex.EncodeToString(buf)), SourceRandom, nil
}

// RedisSecretStore reads the secret from a single Redis string key.
type RedisSecretStore struct {
	client *redis.Client
	key    string
}

var _ SecretStore = (*RedisSecretStore)(nil)

// NewRedisSecretStore returns a store reading key from client.
func NewRedisSecretStore(client *redis.Client, key string) *RedisSecretStore {
	return &RedisSecretStore{client: client, key: key}
}

// LookupSecret implements SecretStore.
func (s *RedisSecretStore) LookupSecret(ctx context.Context) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
