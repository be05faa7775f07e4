package engine

import (
	"github.com/redis/go-redis/v9"

	"github.com/sethdford/process-engine/config"
	"github.com/sethdford/process-engine/history"
	"github.com/sethdford/process-engine/store"
)

// FromSettings builds an Engine wired according to settings: the
// configured store, wrapped in a circuit breaker if requested, history
// recording if requested, and the default StallPolicy every new
// instance inherits.
func FromSettings(settings config.Settings) *Engine {
	var client *redis.Client
	if settings.Store == config.StoreRedis {
		client = redis.NewClient(&redis.Options{Addr: settings.RedisAddr})
	}

	coll := buildCollection(settings, client, settings.RedisKeyPrefix)
	if settings.UseBreaker {
		coll = store.NewBreakerCollection(coll, settings.Breaker.ToGobreakerSettings())
	}

	opts := []Option{
		WithCollection(coll),
		WithStallPolicy(settings.StallPolicy),
	}

	if settings.RecordHistory {
		historyColl := buildCollection(settings, client, settings.RedisKeyPrefix+"-history")
		opts = append(opts, WithHistoryRecorder(history.NewCollectionRecorder(historyColl)))
	}

	return New(opts...)
}

func buildCollection(settings config.Settings, client *redis.Client, redisPrefix string) store.Collection {
	if settings.Store != config.StoreRedis {
		return store.NewMemCollection()
	}
	prefix := redisPrefix
	if prefix == "" {
		prefix = "process-engine"
	}
	return store.NewRedisCollection(client, prefix)
}
