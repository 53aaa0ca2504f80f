package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL           = 5 * time.Minute
	DefaultMaxSize       = 1000
	DefaultSweepInterval = 60 * time.Second
)

// ErrTypeMismatch is returned by GetOrSetAs when the cached value has another type.
var ErrTypeMismatch = errors.New("cached value has unexpected type")

// Config controls construction of a Manager. Zero values fall back to the defaults above.
type Config struct {
	DefaultTTL    time.Duration
	MaxSize       int
	SweepInterval time.Duration

	// SingleFlight makes concurrent GetOrSet misses on one key share a
	// single fetcher call. Off by default: each miss fetches on its own
	// and the last write wins.
	SingleFlight bool

	Logger Logger
	Clock  clock.Clock

	// OnEvent is called synchronously on the mutating goroutine after the
	// store lock is released, so it must not block. Ordering across
	// concurrent mutations is best-effort: an event may arrive after one
	// that logically followed it.
	OnEvent func(Event)
}

// entry stores a cached value with its write time and TTL.
// Entries are never mutated; Set replaces the pointer.
type entry[V any] struct {
	key       string
	data      V
	timestamp time.Time
	ttl       time.Duration
	seq       uint64 // insertion order, breaks timestamp ties on eviction
}

func (e *entry[V]) expired(now time.Time) bool {
	return now.Sub(e.timestamp) > e.ttl
}

// Manager is a bounded, expiring, goroutine-safe key-value store.
// A background sweep removes expired entries and evicts the oldest writes
// once the store grows past MaxSize. Reads never refresh an entry's age.
type Manager[V any] struct {
	mu    sync.RWMutex
	items map[string]*entry[V]
	seq   uint64

	defaultTTL    time.Duration
	maxSize       int
	sweepInterval time.Duration

	clock   clock.Clock
	log     Logger
	onEvent func(Event)
	flight  *singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64

	sweepMu   sync.Mutex
	stopSweep chan struct{}
	sweepDone chan struct{}
}

// New constructs a Manager and starts its sweep loop.
func New[V any](cfg Config) *Manager[V] {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	m := &Manager[V]{
		items:         make(map[string]*entry[V]),
		defaultTTL:    cfg.DefaultTTL,
		maxSize:       cfg.MaxSize,
		sweepInterval: cfg.SweepInterval,
		clock:         cfg.Clock,
		log:           cfg.Logger,
		onEvent:       cfg.OnEvent,
	}
	if cfg.SingleFlight {
		m.flight = &singleflight.Group{}
	}

	m.StartSweeping()
	return m
}

// Set implements Cache.Set. It never fails and never evicts; overflow is
// corrected by the next sweep.
func (m *Manager[V]) Set(key string, value V, opts *SetOptions) {
	ttl := m.defaultTTL
	if opts != nil && opts.TTL > 0 {
		ttl = opts.TTL
	}
	if opts != nil && opts.Serialize {
		copied, err := deepCopy(value)
		if err != nil {
			m.log.Error("cache serialize failed, storing value as given", err, map[string]any{"key": key})
		} else {
			value = copied
		}
	}

	now := m.clock.Now()
	m.mu.Lock()
	m.seq++
	m.items[key] = &entry[V]{
		key:       key,
		data:      value,
		timestamp: now,
		ttl:       ttl,
		seq:       m.seq,
	}
	m.mu.Unlock()

	m.log.Debug("cache set", map[string]any{"key": key, "ttl": ttl.String()})
	m.emit(Event{Type: EventSet, Key: key, At: now})
}

// Get implements Cache.Get. An expired entry is deleted and reported as a miss.
func (m *Manager[V]) Get(key string) (V, bool) {
	e, ok := m.lookup(key)
	if !ok {
		m.misses.Add(1)
		m.log.Debug("cache miss", map[string]any{"key": key})
		var zero V
		return zero, false
	}
	m.hits.Add(1)
	m.log.Debug("cache hit", map[string]any{"key": key})
	return e.data, true
}

// Has implements Cache.Has.
func (m *Manager[V]) Has(key string) bool {
	_, ok := m.lookup(key)
	return ok
}

// lookup returns a live entry, lazily deleting the key if it has expired.
func (m *Manager[V]) lookup(key string) (*entry[V], bool) {
	now := m.clock.Now()

	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expired(now) {
		return e, true
	}

	// Only drop the entry we looked at; a concurrent Set may have replaced it.
	removed := false
	m.mu.Lock()
	if cur, ok := m.items[key]; ok && cur == e {
		delete(m.items, key)
		removed = true
	}
	m.mu.Unlock()

	if removed {
		m.emit(Event{Type: EventExpire, Key: key, At: now})
	}
	return nil, false
}

// Delete implements Cache.Delete.
func (m *Manager[V]) Delete(key string) bool {
	m.mu.Lock()
	_, ok := m.items[key]
	if ok {
		delete(m.items, key)
	}
	m.mu.Unlock()

	if ok {
		m.log.Debug("cache delete", map[string]any{"key": key})
		m.emit(Event{Type: EventDelete, Key: key, At: m.clock.Now()})
	}
	return ok
}

// Clear implements Cache.Clear.
func (m *Manager[V]) Clear() {
	m.mu.Lock()
	removed := len(m.items)
	m.items = make(map[string]*entry[V])
	m.mu.Unlock()

	m.log.Info("cache cleared", map[string]any{"removed": removed})
	m.emit(Event{Type: EventClear, Count: removed, At: m.clock.Now()})
}

// GetOrSet implements Cache.GetOrSet. The fetcher's error is returned
// unchanged and nothing is stored for it.
func (m *Manager[V]) GetOrSet(ctx context.Context, key string, fetcher Fetcher[V], opts *SetOptions) (V, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}
	if m.flight == nil {
		return m.fetch(ctx, key, fetcher, opts)
	}

	// The shared fetch ignores every caller's cancellation. Each caller
	// stops waiting when its own ctx is done.
	ch := m.flight.DoChan(key, func() (any, error) {
		// A previous flight may have filled the key while this caller missed.
		if e, ok := m.lookup(key); ok {
			return e.data, nil
		}
		return m.fetch(context.WithoutCancel(ctx), key, fetcher, opts)
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		out, _ := res.Val.(V)
		return out, nil
	}
}

func (m *Manager[V]) fetch(ctx context.Context, key string, fetcher Fetcher[V], opts *SetOptions) (V, error) {
	v, err := fetcher(ctx)
	if err != nil {
		m.log.Error("cache fetch failed", err, map[string]any{"key": key})
		var zero V
		return zero, err
	}
	m.Set(key, v, opts)
	return v, nil
}

// InvalidatePattern implements Cache.InvalidatePattern. The pattern uses RE2
// syntax and is unanchored, so "^search_" matches keys starting with search_.
func (m *Manager[V]) InvalidatePattern(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("compile invalidation pattern %q: %w", pattern, err)
	}
	return m.InvalidateRegexp(re), nil
}

// InvalidateRegexp deletes every key matched by re and returns the count.
func (m *Manager[V]) InvalidateRegexp(re *regexp.Regexp) int {
	removed := 0
	m.mu.Lock()
	for key := range m.items {
		if re.MatchString(key) {
			delete(m.items, key)
			removed++
		}
	}
	m.mu.Unlock()

	m.log.Info("cache pattern invalidated", map[string]any{"pattern": re.String(), "removed": removed})
	m.emit(Event{Type: EventInvalidate, Pattern: re.String(), Count: removed, At: m.clock.Now()})
	return removed
}

// Stats implements Cache.Stats. Size includes expired entries not yet swept.
func (m *Manager[V]) Stats() Stats {
	m.mu.RLock()
	size := len(m.items)
	m.mu.RUnlock()

	return Stats{
		Size:       size,
		MaxSize:    m.maxSize,
		DefaultTTL: m.defaultTTL,
		Hits:       m.hits.Load(),
		Misses:     m.misses.Load(),
	}
}

// Keys returns the stored keys in lexical order.
func (m *Manager[V]) Keys() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.items))
	for key := range m.items {
		keys = append(keys, key)
	}
	m.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Sweep removes every expired entry, then evicts the oldest writes until the
// store is back within MaxSize.
func (m *Manager[V]) Sweep() SweepResult {
	now := m.clock.Now()
	var res SweepResult

	m.mu.Lock()
	for key, e := range m.items {
		if e.expired(now) {
			delete(m.items, key)
			res.Expired++
		}
	}
	if over := len(m.items) - m.maxSize; over > 0 {
		survivors := make([]*entry[V], 0, len(m.items))
		for _, e := range m.items {
			survivors = append(survivors, e)
		}
		sort.Slice(survivors, func(i, j int) bool {
			a, b := survivors[i], survivors[j]
			if !a.timestamp.Equal(b.timestamp) {
				return a.timestamp.Before(b.timestamp)
			}
			return a.seq < b.seq
		})
		for _, e := range survivors[:over] {
			delete(m.items, e.key)
		}
		res.Evicted = over
	}
	m.mu.Unlock()

	if res.Expired > 0 || res.Evicted > 0 {
		m.log.Debug("cache swept", map[string]any{"expired": res.Expired, "evicted": res.Evicted})
		m.emit(Event{Type: EventSweep, Count: res.Expired + res.Evicted, At: now})
	}
	return res
}

func (m *Manager[V]) emit(ev Event) {
	if m.onEvent != nil {
		m.onEvent(ev)
	}
}

// deepCopy round-trips v through JSON into a fresh value of the same dynamic type.
func deepCopy[V any](v V) (V, error) {
	var zero V
	t := reflect.TypeOf(v)
	if t == nil {
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return zero, err
	}
	ptr := reflect.New(t)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return zero, err
	}
	out, ok := ptr.Elem().Interface().(V)
	if !ok {
		return zero, fmt.Errorf("%w: copy of %s", ErrTypeMismatch, t)
	}
	return out, nil
}
