package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cppla/pans/models"
)

const (
	defaultCacheTTL = time.Hour

	panDetailKeyPrefix = "cache:pan:detail:"
	panGenKeyPrefix    = "cache:pan:gen:"
	panListKey         = "cache:pans:list"
	panListGenKey      = "cache:pans:gen"
)

// PanCache is a read-through cache in front of a PanStore. It serves GET
// endpoints only; read-modify-write loops always read the store directly.
//
// Fills are conditional: take a generation before reading the store and pass
// it to SetPan/SetPans. The write is skipped when an Invalidate happened in
// between, so a snapshot read before a mutation never outlives it.
type PanCache interface {
	Pan(ctx context.Context, id string) (*models.Pan, bool)
	Pans(ctx context.Context) ([]models.Pan, bool)
	// PanGeneration returns the fill token for id, or "" when the cache
	// cannot be filled right now.
	PanGeneration(ctx context.Context, id string) string
	// PansGeneration is PanGeneration for the list.
	PansGeneration(ctx context.Context) string
	SetPan(ctx context.Context, pan *models.Pan, gen string)
	SetPans(ctx context.Context, pans []models.Pan, gen string)
	// Invalidate drops the detail entry for id and the list entry and
	// advances both generations.
	Invalidate(ctx context.Context, id string)
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Pan(context.Context, string) (*models.Pan, bool) { return nil, false }
func (NopCache) Pans(context.Context) ([]models.Pan, bool) { return nil, false }
func (NopCache) PanGeneration(context.Context, string) string { return "" }
func (NopCache) PansGeneration(context.Context) string { return "" }
func (NopCache) SetPan(context.Context, *models.Pan, string) {}
func (NopCache) SetPans(context.Context, []models.Pan, string) {}
func (NopCache) Invalidate(context.Context, string) {}

// setIfGeneration writes ARGV[2] to KEYS[2] only while KEYS[1] still holds
// the generation ARGV[1]. A missing generation key reads as "0".
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[1])
if not gen then gen = '0' end
if gen ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisCache stores JSON snapshots in Redis with a TTL. Failures are logged
// and treated as misses.
type RedisCache struct {
	rc  *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// NewRedisCache returns a cache over rc. A non-positive ttl means one hour.
func NewRedisCache(rc *redis.Client, ttl time.Duration, log *zap.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisCache{rc: rc, ttl: ttl, log: log}
}

func (c *RedisCache) Pan(ctx context.Context, id string) (*models.Pan, bool) {
	var pan models.Pan
	if !c.get(ctx, panDetailKeyPrefix+id, &pan) {
		return nil, false
	}
	return &pan, true
}

func (c *RedisCache) Pans(ctx context.Context) ([]models.Pan, bool) {
	var pans []models.Pan
	if !c.get(ctx, panListKey, &pans) {
		return nil, false
	}
	return pans, true
}

func (c *RedisCache) PanGeneration(ctx context.Context, id string) string {
	return c.generation(ctx, panGenKeyPrefix+id)
}

func (c *RedisCache) PansGeneration(ctx context.Context) string {
	return c.generation(ctx, panListGenKey)
}

func (c *RedisCache) SetPan(ctx context.Context, pan *models.Pan, gen string) {
	c.set(ctx, panGenKeyPrefix+pan.ID, panDetailKeyPrefix+pan.ID, gen, pan)
}

func (c *RedisCache) SetPans(ctx context.Context, pans []models.Pan, gen string) {
	c.set(ctx, panListGenKey, panListKey, gen, pans)
}

// Invalidate bumps the generations before deleting the entries. Generation
// keys live for twice the entry TTL, which also keeps a deleted pan's
// tombstone around longer than any fill that raced with the delete.
func (c *RedisCache) Invalidate(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	pipe := c.rc.TxPipeline()
	pipe.Incr(ctx, panGenKeyPrefix+id)
	pipe.Expire(ctx, panGenKeyPrefix+id, 2*c.ttl)
	pipe.Incr(ctx, panListGenKey)
	pipe.Expire(ctx, panListGenKey, 2*c.ttl)
	pipe.Del(ctx, panDetailKeyPrefix+id, panListKey)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("cache invalidate failed", zap.String("pan_id", id), zap.Error(err))
	}
}

func (c *RedisCache) generation(ctx context.Context, key string) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	gen, err := c.rc.Get(ctx, key).Result()
	switch {
	case err == redis.Nil:
		return "0"
	case err != nil:
		c.log.Debug("cache generation read failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return gen
}

func (c *RedisCache) get(ctx context.Context, key string, out any) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		c.log.Warn("cache entry undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *RedisCache) set(ctx context.Context, genKey, key, gen string, v any) {
	if gen == "" {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err = setIfGeneration.Run(ctx, c.rc, []string{genKey, key}, gen, b, c.ttl.Milliseconds()).Err()
	if err != nil {
		c.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}
