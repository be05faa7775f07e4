package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sethdford/process-engine/instance"
)

func TestFromMapDecodesOverDefault(t *testing.T) {
	settings, err := FromMap(map[string]interface{}{
		"store":          "redis",
		"redisAddr":      "localhost:6379",
		"redisKeyPrefix": "proc",
		"useBreaker":     true,
		"recordHistory":  true,
		"httpAddr":       ":9090",
	})
	require.NoError(t, err)

	assert.Equal(t, StoreRedis, settings.Store)
	assert.Equal(t, "localhost:6379", settings.RedisAddr)
	assert.Equal(t, "proc", settings.RedisKeyPrefix)
	assert.True(t, settings.UseBreaker)
	assert.True(t, settings.RecordHistory)
	assert.Equal(t, ":9090", settings.HTTPAddr)
	assert.Equal(t, instance.StallIgnore, settings.StallPolicy, "unset fields keep Default()'s values")
}

func TestFromMapEmptyIsDefault(t *testing.T) {
	settings, err := FromMap(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), settings)
}
