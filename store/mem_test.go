package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemCollectionInsertAndFind(t *testing.T) {
	ctx := context.Background()
	c := NewMemCollection()

	require.NoError(t, c.Insert(ctx, "a", map[string]interface{}{"status": "NEW"}))
	require.Error(t, c.Insert(ctx, "a", map[string]interface{}{"status": "NEW"}))

	doc, err := c.FindOne(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "NEW", doc["status"])

	_, err = c.FindOne(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemCollectionUpdateRequiresExisting(t *testing.T) {
	ctx := context.Background()
	c := NewMemCollection()

	err := c.Update(ctx, "a", map[string]interface{}{"status": "RUNNING"})
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, c.Insert(ctx, "a", map[string]interface{}{"status": "NEW"}))
	require.NoError(t, c.Update(ctx, "a", map[string]interface{}{"status": "RUNNING"}))

	doc, err := c.FindOne(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "RUNNING", doc["status"])
}

func TestMemCollectionFindFiltersAndCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemCollection()
	require.NoError(t, c.Insert(ctx, "a", map[string]interface{}{"status": "RUNNING"}))
	require.NoError(t, c.Insert(ctx, "b", map[string]interface{}{"status": "COMPLETED"}))

	running, err := c.Find(ctx, func(d map[string]interface{}) bool { return d["status"] == "RUNNING" })
	require.NoError(t, err)
	require.Len(t, running, 1)

	running[0]["status"] = "MUTATED"
	doc, err := c.FindOne(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "RUNNING", doc["status"], "Find result must not alias stored state")
}

func TestMemCollectionDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := NewMemCollection()
	require.NoError(t, c.Insert(ctx, "a", map[string]interface{}{}))
	require.NoError(t, c.Delete(ctx, "a"))
	require.NoError(t, c.Delete(ctx, "a"))

	_, err := c.FindOne(ctx, "a")
	assert.True(t, errors.Is(err, ErrNotFound))
}
