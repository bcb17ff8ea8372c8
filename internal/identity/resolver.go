package identity

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rollcall-app/rollcall/internal/shared"
)

const cachePrefix = "rollcall:principal:"

// Resolver turns an opaque caller id into a Principal. Lookups are cached
// in Redis with a short TTL so permission changes converge quickly.
type Resolver struct {
	repo   Repository
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewResolver constructs a Resolver. The cache client may be nil, in which
// case every resolution goes to the repository.
func NewResolver(repo Repository, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Resolver {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Resolver{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

type cachedPrincipal struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Nickname    string   `json:"nickname"`
	RoleID      int64    `json:"role_id"`
	RoleName    string   `json:"role_name"`
	RoleRank    int      `json:"role_rank"`
	Permissions []string `json:"permissions"`
}

// Resolve returns the principal for the given caller id.
// An empty id is unauthenticated; an unknown id is unauthorized.
func (r *Resolver) Resolve(ctx context.Context, callerID string) (*Principal, error) {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return nil, shared.ErrUnauthenticated
	}

	if p := r.fromCache(ctx, callerID); p != nil {
		return p, nil
	}

	principal, err := r.repo.FindPrincipal(ctx, callerID)
	if err != nil {
		return nil, err
	}
	principal.ResolvedAt = time.Now().UTC()
	r.store(ctx, principal)
	return principal, nil
}

// Invalidate drops a cached principal after its account or role changed.
func (r *Resolver) Invalidate(ctx context.Context, callerID string) {
	if r.cache == nil || callerID == "" {
		return
	}
	if err := r.cache.Del(ctx, cachePrefix+callerID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		r.logger.Warn("invalidate principal cache", slog.String("id", callerID), slog.Any("error", err))
	}
}

// InvalidateAll flushes every cached principal. Used after role-wide
// changes (a permission-set replace touches every principal holding the
// role, and which principals those are is not tracked here).
func (r *Resolver) InvalidateAll(ctx context.Context) {
	if r.cache == nil {
		return
	}
	iter := r.cache.Scan(ctx, 0, cachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.cache.Del(ctx, iter.Val()).Err(); err != nil && !errors.Is(err, redis.Nil) {
			r.logger.Warn("invalidate principal cache", slog.String("key", iter.Val()), slog.Any("error", err))
		}
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("principal cache scan", slog.Any("error", err))
	}
}

func (r *Resolver) fromCache(ctx context.Context, callerID string) *Principal {
	if r.cache == nil {
		return nil
	}
	payload, err := r.cache.Get(ctx, cachePrefix+callerID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("principal cache read", slog.Any("error", err))
		}
		return nil
	}
	var cached cachedPrincipal
	if err := json.Unmarshal(payload, &cached); err != nil {
		r.logger.Warn("principal cache decode", slog.Any("error", err))
		return nil
	}
	return &Principal{
		ID:          cached.ID,
		Email:       cached.Email,
		Nickname:    cached.Nickname,
		Role:        Role{ID: cached.RoleID, Name: cached.RoleName, Rank: cached.RoleRank},
		Permissions: cached.Permissions,
	}
}

func (r *Resolver) store(ctx context.Context, p *Principal) {
	if r.cache == nil || p == nil {
		return
	}
	payload, err := json.Marshal(cachedPrincipal{
		ID:          p.ID,
		Email:       p.Email,
		Nickname:    p.Nickname,
		RoleID:      p.Role.ID,
		RoleName:    p.Role.Name,
		RoleRank:    p.Role.Rank,
		Permissions: p.Permissions,
	})
	if err != nil {
		r.logger.Warn("principal cache encode", slog.Any("error", err))
		return
	}
	if err := r.cache.Set(ctx, cachePrefix+p.ID, payload, r.ttl).Err(); err != nil {
		r.logger.Warn("principal cache write", slog.Any("error", err))
	}
}
