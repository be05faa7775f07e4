package store

import (
	"context"

	"github.com/sony/gobreaker/v2"
)

// BreakerCollection wraps a Collection with a circuit breaker, so a
// struggling backing store (Redis down, network partition) fails fast
// instead of letting every instance-save pile up waiting on timeouts.
type BreakerCollection struct {
	inner Collection
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerCollection wraps inner behind a circuit breaker configured
// by settings.
func NewBreakerCollection(inner Collection, settings gobreaker.Settings) *BreakerCollection {
	return &BreakerCollection{inner: inner, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (b *BreakerCollection) Insert(ctx context.Context, id string, doc map[string]interface{}) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Insert(ctx, id, doc)
	})
	return err
}

func (b *BreakerCollection) Update(ctx context.Context, id string, doc map[string]interface{}) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Update(ctx, id, doc)
	})
	return err
}

func (b *BreakerCollection) FindOne(ctx context.Context, id string) (map[string]interface{}, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.inner.FindOne(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	doc, _ := res.(map[string]interface{})
	return doc, nil
}

func (b *BreakerCollection) Find(ctx context.Context, match func(map[string]interface{}) bool) ([]map[string]interface{}, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.inner.Find(ctx, match)
	})
	if err != nil {
		return nil, err
	}
	docs, _ := res.([]map[string]interface{})
	return docs, nil
}

func (b *BreakerCollection) Delete(ctx context.Context, id string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Delete(ctx, id)
	})
	return err
}
