package cache

import (
	"context"
	"time"
)

// Cache defines the key-value API shared by request handlers.
// Keys are strings; values are opaque to the cache.
type Cache[V any] interface {
	// Get returns the value and whether it was present and not expired.
	Get(key string) (V, bool)

	// Set stores the value. A nil opts uses the default TTL and stores by reference.
	Set(key string, value V, opts *SetOptions)

	// Has reports whether a key is present and not expired.
	Has(key string) bool

	// Delete removes a key if present and reports whether it did.
	Delete(key string) bool

	// Clear removes all entries.
	Clear()

	// GetOrSet returns the cached value or computes, stores and returns it.
	GetOrSet(ctx context.Context, key string, fetcher Fetcher[V], opts *SetOptions) (V, error)

	// InvalidatePattern deletes every key matching the regular expression.
	InvalidatePattern(pattern string) (int, error)

	// Stats returns size and configuration for diagnostics.
	Stats() Stats
}

// Fetcher computes a value on a cache miss.
type Fetcher[V any] func(ctx context.Context) (V, error)

// SetOptions controls a single write. The zero value means default TTL, no copy.
type SetOptions struct {
	TTL       time.Duration
	Serialize bool
}

// Options starts a SetOptions chain: cache.Options().WithTTL(time.Minute).
func Options() *SetOptions {
	return &SetOptions{}
}

// WithTTL sets the entry lifetime. Zero or negative uses the default TTL.
func (o *SetOptions) WithTTL(ttl time.Duration) *SetOptions {
	o.TTL = ttl
	return o
}

// WithSerialize makes Set store a deep copy so later mutation of the
// caller's value cannot reach the cached one.
func (o *SetOptions) WithSerialize(serialize bool) *SetOptions {
	o.Serialize = serialize
	return o
}

// Logger is the diagnostic sink the cache writes to.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Error(msg string, err error, fields map[string]any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]any)        {}
func (nopLogger) Info(string, map[string]any)         {}
func (nopLogger) Error(string, error, map[string]any) {}

// Stats is a point-in-time view of the store.
type Stats struct {
	Size       int           `json:"size"`
	MaxSize    int           `json:"maxSize"`
	DefaultTTL time.Duration `json:"-"`
	Hits       int64         `json:"hits"`
	Misses     int64         `json:"misses"`
}

// SweepResult reports what a sweep removed.
type SweepResult struct {
	Expired int `json:"expired"`
	Evicted int `json:"evicted"`
}

// EventType names a store mutation.
type EventType string

const (
	EventSet        EventType = "set"
	EventDelete     EventType = "delete"
	EventExpire     EventType = "expire"
	EventClear      EventType = "clear"
	EventInvalidate EventType = "invalidate"
	EventSweep      EventType = "sweep"
)

// Event describes a mutation, delivered to Config.OnEvent.
type Event struct {
	Type    EventType `json:"type"`
	Key     string    `json:"key,omitempty"`
	Pattern string    `json:"pattern,omitempty"`
	Count   int       `json:"count,omitempty"`
	At      time.Time `json:"at"`
}

// Ensure Manager implements Cache at compile time.
var _ Cache[any] = (*Manager[any])(nil)
