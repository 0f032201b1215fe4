package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JSONCache is the subset of the Redis cache the matching service uses.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

func pendingCacheKey(providerID uuid.UUID) string {
	return "matches:pending:" + providerID.String()
}

func pendingCacheKeys(providerIDs ...uuid.UUID) []string {
	seen := make(map[uuid.UUID]struct{}, len(providerIDs))
	keys := make([]string, 0, len(providerIDs))
	for _, id := range providerIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, pendingCacheKey(id))
	}
	return keys
}

type noopCache struct{}

func (noopCache) GetJSON(context.Context, string, any) (bool, error)        { return false, nil }
func (noopCache) SetJSON(context.Context, string, any, time.Duration) error { return nil }
func (noopCache) Delete(context.Context, ...string) error                   { return nil }
