// Package config holds the engine-wide settings a deployment chooses at
// startup — which persistence backend to use, how to react to a stalled
// decision, and the circuit-breaker tuning in front of that backend.
package config

import (
	"time"

	"github.com/project-flogo/core/data/metadata"
	"github.com/sony/gobreaker/v2"

	"github.com/sethdford/process-engine/instance"
)

// StoreKind selects which store.Collection implementation
// engine.FromSettings constructs. That wiring lives in package engine;
// this package does not import store directly.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreRedis  StoreKind = "redis"
)

// Settings is the engine-wide configuration a deployment supplies,
// typically decoded from its own config file or environment, either by
// whatever the host application already uses or through FromMap.
type Settings struct {
	// Store selects the persistence backend.
	Store StoreKind `md:"store" json:"store" yaml:"store"`

	// RedisAddr is the address go-redis dials when Store is StoreRedis.
	RedisAddr string `md:"redisAddr" json:"redisAddr" yaml:"redisAddr"`

	// RedisKeyPrefix namespaces every key the Redis collection writes.
	RedisKeyPrefix string `md:"redisKeyPrefix" json:"redisKeyPrefix" yaml:"redisKeyPrefix"`

	// StallPolicy is the default StallPolicy new instances start with.
	StallPolicy instance.StallPolicy `md:"stallPolicy" json:"stallPolicy" yaml:"stallPolicy"`

	// Breaker tunes the circuit breaker placed in front of the store
	// when UseBreaker is true.
	UseBreaker bool            `md:"useBreaker" json:"useBreaker" yaml:"useBreaker"`
	Breaker    BreakerSettings `md:"breaker" json:"breaker" yaml:"breaker"`

	// RecordHistory turns on per-step audit recording: every task a
	// process instance executes is recorded to its own collection,
	// separate from the instance-state collection Store configures.
	RecordHistory bool `md:"recordHistory" json:"recordHistory" yaml:"recordHistory"`

	// HTTPAddr is the address transport/http.Server listens on.
	HTTPAddr string `md:"httpAddr" json:"httpAddr" yaml:"httpAddr"`
}

// BreakerSettings mirrors the fields of gobreaker.Settings a deployment
// is likely to want to tune, without forcing every caller of this
// package to import gobreaker directly.
type BreakerSettings struct {
	Name        string        `json:"name" yaml:"name"`
	MaxRequests uint32        `json:"maxRequests" yaml:"maxRequests"`
	Interval    time.Duration `json:"interval" yaml:"interval"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
	// FailureRatio trips the breaker once this fraction of requests in
	// a rolling window have failed.
	FailureRatio float64 `json:"failureRatio" yaml:"failureRatio"`
}

// ToGobreakerSettings converts BreakerSettings into the gobreaker.Settings
// value store.NewBreakerCollection expects.
func (b BreakerSettings) ToGobreakerSettings() gobreaker.Settings {
	ratio := b.FailureRatio
	if ratio <= 0 {
		ratio = 0.6
	}
	return gobreaker.Settings{
		Name:        b.Name,
		MaxRequests: b.MaxRequests,
		Interval:    b.Interval,
		Timeout:     b.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 3 && float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
	}
}

// Default returns the settings a bare engine.New() effectively uses: an
// in-memory store, no breaker, and silently-dropped stalls.
func Default() Settings {
	return Settings{
		Store:       StoreMemory,
		StallPolicy: instance.StallIgnore,
	}
}

// FromMap decodes values — typically a JSON/YAML config file or an
// app's own settings map — into Settings on top of Default(), the way
// a project-flogo action decodes its own Settings out of
// action.Config.Settings. Unknown keys in values are ignored; a key
// present but of the wrong type is a decode error.
func FromMap(values map[string]interface{}) (Settings, error) {
	settings := Default()
	if len(values) == 0 {
		return settings, nil
	}
	if err := metadata.MapToStruct(values, &settings, false); err != nil {
		return Settings{}, err
	}
	return settings, nil
}
