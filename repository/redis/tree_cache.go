package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/shopcat/backend/domain"
	"github.com/shopcat/backend/repository"
)

type treeCache struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewTreeCache creates a Redis-backed read-side cache for computed
// subtrees. Entries expire after ttl and are dropped eagerly on mutation.
func NewTreeCache(client *redislib.Client, ttl time.Duration) repository.TreeCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &treeCache{
		client: client,
		prefix: "tree:",
		ttl:    ttl,
	}
}

func (c *treeCache) Get(ctx context.Context, id string) (*domain.UnitTree, error) {
	result, err := c.client.Get(ctx, c.key(id)).Result()
	if err != nil {
		if err == redislib.Nil {
			return nil, domain.ErrUnitNotFound
		}
		return nil, err
	}

	var tree domain.UnitTree
	if err := json.Unmarshal([]byte(result), &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

func (c *treeCache) Set(ctx context.Context, tree *domain.UnitTree) error {
	if tree == nil || tree.ID == "" {
		return domain.ErrInvalidPayload
	}

	payload, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(tree.ID), payload, c.ttl).Err()
}

func (c *treeCache) Invalidate(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *treeCache) key(id string) string {
	return fmt.Sprintf("%s%s", c.prefix, id)
}
