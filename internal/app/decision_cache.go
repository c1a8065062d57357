/**
 * @description
 * Decision cache implementations for the gateway router: an in-process
 * mutex-guarded map (the default) and a Redis-backed variant for deployments
 * that want routing decisions shared across replicas. Both are constructed in
 * main and injected, so tests can substitute deterministic fakes.
 *
 * @dependencies
 * - context, encoding/json, log, sync: Standard Go libraries.
 * - github.com/redis/go-redis/v9: Redis client for the shared variant.
 * - internal/domain: Gateway decision model.
 */

package app

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/will383842/Outil-sos-expat-sub004/internal/domain"
)

// MemoryDecisionCache is the default in-process cache. Entries never expire;
// they are removed only by Evict.
type MemoryDecisionCache struct {
	mu      sync.RWMutex
	entries map[string]domain.GatewayDecision
}

// NewMemoryDecisionCache creates an empty in-process decision cache.
func NewMemoryDecisionCache() *MemoryDecisionCache {
	return &MemoryDecisionCache{entries: make(map[string]domain.GatewayDecision)}
}

func (c *MemoryDecisionCache) Get(ctx context.Context, countryCode string) (*domain.GatewayDecision, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	decision, ok := c.entries[countryCode]
	if !ok {
		return nil, false
	}
	return &decision, true
}

func (c *MemoryDecisionCache) Set(ctx context.Context, countryCode string, decision domain.GatewayDecision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[countryCode] = decision
}

func (c *MemoryDecisionCache) Evict(ctx context.Context, countryCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, countryCode)
}

// RedisDecisionCache shares gateway decisions across replicas. Failures are
// treated as cache misses; the router degrades to its fallback behavior.
type RedisDecisionCache struct {
	client *redis.Client
	prefix string
}

// NewRedisDecisionCache creates a Redis-backed decision cache under the given
// key prefix.
func NewRedisDecisionCache(client *redis.Client, prefix string) *RedisDecisionCache {
	if prefix == "" {
		prefix = "checkout:gateway"
	}
	return &RedisDecisionCache{client: client, prefix: prefix}
}

func (c *RedisDecisionCache) key(countryCode string) string {
	return c.prefix + ":" + countryCode
}

func (c *RedisDecisionCache) Get(ctx context.Context, countryCode string) (*domain.GatewayDecision, bool) {
	raw, err := c.client.Get(ctx, c.key(countryCode)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("level=warn component=gateway_cache msg=\"redis get failed; treating as miss\" country=%s err=%v", countryCode, err)
		}
		return nil, false
	}
	var decision domain.GatewayDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		log.Printf("level=warn component=gateway_cache msg=\"cached decision unreadable; treating as miss\" country=%s err=%v", countryCode, err)
		return nil, false
	}
	return &decision, true
}

func (c *RedisDecisionCache) Set(ctx context.Context, countryCode string, decision domain.GatewayDecision) {
	raw, err := json.Marshal(decision)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(countryCode), raw, 0).Err(); err != nil {
		log.Printf("level=warn component=gateway_cache msg=\"redis set failed\" country=%s err=%v", countryCode, err)
	}
}

func (c *RedisDecisionCache) Evict(ctx context.Context, countryCode string) {
	if err := c.client.Del(ctx, c.key(countryCode)).Err(); err != nil {
		log.Printf("level=warn component=gateway_cache msg=\"redis del failed\" country=%s err=%v", countryCode, err)
	}
}
