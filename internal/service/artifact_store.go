package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Banditcantcode/Banditbot/internal/persistence"
)

// ErrArtifactNotFound is returned when an artifact is missing or its
// retention window has expired.
var ErrArtifactNotFound = errors.New("artifact not found")

const artifactKeyPrefix = "transcript:artifact:"

// RedisArtifactStore parks transcript artifacts in Redis under a TTL so the
// ops server can serve download links for the retention window.
type RedisArtifactStore struct {
	redis *persistence.Redis
}

// NewArtifactStore creates a Redis-backed artifact store.
func NewArtifactStore(r *persistence.Redis) *RedisArtifactStore {
	return &RedisArtifactStore{redis: r}
}

// Put stores the artifact for the given retention window.
func (s *RedisArtifactStore) Put(ctx context.Context, artifact *Artifact, ttl time.Duration) error {
	raw, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := s.redis.Client.Set(ctx, artifactKeyPrefix+artifact.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("store artifact: %w", err)
	}
	return nil
}

// Get retrieves a parked artifact by id.
func (s *RedisArtifactStore) Get(ctx context.Context, id string) (*Artifact, error) {
	raw, err := s.redis.Client.Get(ctx, artifactKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &artifact, nil
}
