package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const profileKeyPrefix = "profile:user_id:"

// ProfileLoader fetches the authoritative profile on a cache miss
type ProfileLoader func(ctx context.Context, userID int64) (*Profile, error)

// ProfileCache is a read-through cache for public profile views. The
// cache is an optimization only: any cache failure is logged and the
// request falls through to the loader, so a degraded cache slows reads
// down but never breaks them.
type ProfileCache struct {
	cache  Cache
	loader ProfileLoader
	ttl    time.Duration
	logger Logger
}

// ProfileCacheOption customizes profile cache construction
type ProfileCacheOption func(*ProfileCache)

// WithProfileCacheLogger overrides the profile cache logger
func WithProfileCacheLogger(logger Logger) ProfileCacheOption {
	return func(p *ProfileCache) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewProfileCache(cache Cache, loader ProfileLoader, ttl time.Duration, opts ...ProfileCacheOption) *ProfileCache {
	p := &ProfileCache{
		cache:  cache,
		loader: loader,
		ttl:    ttl,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Get returns the cached profile, loading and caching it on a miss
func (p *ProfileCache) Get(ctx context.Context, userID int64) (*Profile, error) {
	key := profileKey(userID)

	payload, found, err := p.cache.Get(ctx, key)
	if err != nil {
		p.logger.Warn("profile cache read failed, falling back to loader", "user_id", userID, "error", err)
	} else if found {
		profile := &Profile{}
		if err := json.Unmarshal(payload, profile); err == nil {
			return profile, nil
		}
		p.logger.Warn("profile cache held undecodable entry", "user_id", userID)
	}

	profile, err := p.loader(ctx, userID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(profile); err == nil {
		if err := p.cache.Set(ctx, key, payload, p.ttl); err != nil {
			p.logger.Warn("profile cache write failed", "user_id", userID, "error", err)
		}
	}

	return profile, nil
}

// Invalidate drops the cached profile after a mutation. Failures are
// logged, the entry still expires through its TTL.
func (p *ProfileCache) Invalidate(ctx context.Context, userID int64) {
	if _, err := p.cache.Delete(ctx, profileKey(userID)); err != nil {
		p.logger.Warn("profile cache invalidation failed", "user_id", userID, "error", err)
	}
}

func profileKey(userID int64) string {
	return fmt.Sprintf("%s%d", profileKeyPrefix, userID)
}
