// Copyright 2025 The Receipt Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache provides an interface and implementations for caching.
package cache

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrNotExist is returned when a key does not exist in the cache.
var ErrNotExist = errors.New("does not exist")

// Cache is a simple interface defining a cache.
type Cache[K comparable, V any] interface {
	Get(K) (V, error)
	GetOrSet(K, func() (V, error)) (V, error)
	Del(K)
}

// Coalescing is an in-memory cache that coalesces concurrent requests for the
// same key: however many callers race on a missing key, the fetch function
// runs once. Failed fetches are not retained.
type Coalescing[K comparable, V any] struct {
	data sync.Map // K -> *entry[V]
}

var _ Cache[string, int] = &Coalescing[string, int]{}

type entry[V any] struct {
	once func() (V, error)
}

func (c *Coalescing[K, V]) valueOrClear(key K, e *entry[V]) (V, error) {
	val, err := e.once()
	if err != nil {
		c.data.CompareAndDelete(key, e)
	}
	return val, err
}

// Get returns the value for the given key, or ErrNotExist.
func (c *Coalescing[K, V]) Get(key K) (V, error) {
	e, ok := c.data.Load(key)
	if !ok {
		var zero V
		return zero, ErrNotExist
	}
	return c.valueOrClear(key, e.(*entry[V]))
}

// GetOrSet returns the value for the given key, fetching it if absent.
func (c *Coalescing[K, V]) GetOrSet(key K, fetch func() (V, error)) (V, error) {
	e, _ := c.data.LoadOrStore(key, &entry[V]{once: sync.OnceValues(fetch)})
	return c.valueOrClear(key, e.(*entry[V]))
}

// Del deletes the value for the given key.
func (c *Coalescing[K, V]) Del(key K) {
	c.data.Delete(key)
}
