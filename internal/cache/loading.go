package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// LoadFunc computes the value for a cache miss.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Loading fronts a Cache with request collapsing: concurrent misses for the
// same key run the load once and share its result. Errors are not cached.
type Loading[T any] struct {
	cache Cache[T]
	group singleflight.Group
}

func NewLoading[T any](c Cache[T]) *Loading[T] {
	return &Loading[T]{cache: c}
}

// Get returns the cached value for key or loads it. cached is false only for
// the caller whose load produced the value.
func (l *Loading[T]) Get(ctx context.Context, key string, load LoadFunc[T]) (v T, cached bool, err error) {
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}

	ran := false
	res, err, _ := l.group.Do(key, func() (interface{}, error) {
		ran = true
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		l.cache.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return res.(T), !ran, nil
}

// Cache returns the underlying cache.
func (l *Loading[T]) Cache() Cache[T] {
	return l.cache
}
