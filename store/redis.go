package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisCollection is a Collection backed by a Redis client. Each document
// is stored as a JSON blob under prefix:id; a Redis set at prefix:index
// tracks live ids so Find can enumerate without a full key scan.
type RedisCollection struct {
	client *redis.Client
	prefix string
}

// NewRedisCollection wraps client, namespacing every key under prefix.
func NewRedisCollection(client *redis.Client, prefix string) *RedisCollection {
	return &RedisCollection{client: client, prefix: prefix}
}

func (c *RedisCollection) key(id string) string {
	return c.prefix + ":" + id
}

func (c *RedisCollection) indexKey() string {
	return c.prefix + ":index"
}

func (c *RedisCollection) Insert(ctx context.Context, id string, doc map[string]interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", id, err)
	}
	ok, err := c.client.SetNX(ctx, c.key(id), data, 0).Result()
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("store: document %q already exists", id)
	}
	return c.client.SAdd(ctx, c.indexKey(), id).Err()
}

func (c *RedisCollection) Update(ctx context.Context, id string, doc map[string]interface{}) error {
	exists, err := c.client.Exists(ctx, c.key(id)).Result()
	if err != nil {
		return fmt.Errorf("store: update %s: %w", id, err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", id, err)
	}
	return c.client.Set(ctx, c.key(id), data, 0).Err()
}

func (c *RedisCollection) FindOne(ctx context.Context, id string) (map[string]interface{}, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("store: unmarshal %s: %w", id, err)
	}
	return doc, nil
}

func (c *RedisCollection) Find(ctx context.Context, match func(map[string]interface{}) bool) ([]map[string]interface{}, error) {
	ids, err := c.client.SMembers(ctx, c.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("store: find: %w", err)
	}

	var out []map[string]interface{}
	for _, id := range ids {
		doc, err := c.FindOne(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if match == nil || match(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (c *RedisCollection) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	return c.client.SRem(ctx, c.indexKey(), id).Err()
}
