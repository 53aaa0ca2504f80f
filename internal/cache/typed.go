package cache

import (
	"context"
	"fmt"
)

// GetOrSetAs is GetOrSet for a Manager shared across value types. It fails
// with ErrTypeMismatch when the key already holds a value of another type.
func GetOrSetAs[T any](ctx context.Context, m *Manager[any], key string, fetcher Fetcher[T], opts *SetOptions) (T, error) {
	var zero T
	v, err := m.GetOrSet(ctx, key, func(ctx context.Context) (any, error) {
		return fetcher(ctx)
	}, opts)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %q holds %T", ErrTypeMismatch, key, v)
	}
	return out, nil
}
