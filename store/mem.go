package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/sethdford/process-engine/internal/util"
)

// MemCollection is an in-memory Collection, used by tests and by the
// engine when no external store is configured. Documents are deep-copied
// on the way in and out so callers can never mutate stored state by
// aliasing a map they passed to Insert or received from FindOne.
type MemCollection struct {
	mu   sync.RWMutex
	docs map[string]map[string]interface{}
}

// NewMemCollection creates an empty in-memory collection.
func NewMemCollection() *MemCollection {
	return &MemCollection{docs: make(map[string]map[string]interface{})}
}

func (c *MemCollection) Insert(_ context.Context, id string, doc map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.docs[id]; exists {
		return fmt.Errorf("store: document %q already exists", id)
	}
	c.docs[id] = util.DeepCopyMap(doc)
	return nil
}

func (c *MemCollection) Update(_ context.Context, id string, doc map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.docs[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c.docs[id] = util.DeepCopyMap(doc)
	return nil
}

func (c *MemCollection) FindOne(_ context.Context, id string) (map[string]interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return util.DeepCopyMap(doc), nil
}

func (c *MemCollection) Find(_ context.Context, match func(map[string]interface{}) bool) ([]map[string]interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []map[string]interface{}
	for _, doc := range c.docs {
		if match == nil || match(doc) {
			out = append(out, util.DeepCopyMap(doc))
		}
	}
	return out, nil
}

func (c *MemCollection) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, id)
	return nil
}
