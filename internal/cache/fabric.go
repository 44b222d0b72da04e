package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bvanryn/specula/internal/common"
)

// ErrNoValue marks a legitimate absence: the provider was asked and had
// nothing. The absence itself is cached so upstream is not re-asked.
var ErrNoValue = errors.New("no value available")

// defaultErrorTTL is how long an error-shaped result lives in L1 when the
// caller enabled negative caching without choosing a duration. Long enough
// to stop a stampede, short enough to retry soon.
const defaultErrorTTL = 2 * time.Minute

// envelope wraps every cached value so the sentinel is distinguishable
// from real data in both tiers.
type envelope struct {
	None bool            `json:"none,omitempty"`
	V    json.RawMessage `json:"v,omitempty"`
}

type flight struct {
	done chan struct{}
}

// FetchOptions tune a single Fetch call.
type FetchOptions struct {
	ttl     time.Duration
	errTTL  time.Duration
	isError func(any) bool
}

// FetchOption configures one Fetch call.
type FetchOption func(*FetchOptions)

// WithTTL overrides the namespace TTL for this write.
func WithTTL(ttl time.Duration) FetchOption {
	return func(o *FetchOptions) { o.ttl = ttl }
}

// WithErrorPredicate marks values the disk tier must never see. Matching
// results are cached in memory only, for errTTL (a short default when
// zero), so a transient provider failure does not stampede upstream yet
// never outlives the memory tier.
func WithErrorPredicate(isError func(any) bool, errTTL time.Duration) FetchOption {
	return func(o *FetchOptions) {
		o.isError = isError
		o.errTTL = errTTL
	}
}

// Fabric is the two-tier cache with per-key single-flight. The read path
// is L1, then L2 (promoting hits), then the fetcher. At most one fetcher
// runs per ns:key across all goroutines; late arrivals wait and re-read
// through the cache, and fall back to one independent fetch if the
// originator failed.
type Fabric struct {
	mem    *Memory
	disk   *Disk
	logger *common.Logger
	config map[string]NamespaceConfig

	mu       sync.Mutex
	inflight map[string]*flight
}

// NewFabric builds the cache fabric. disk may be nil, leaving only the
// memory tier active (used in tests).
func NewFabric(logger *common.Logger, config map[string]NamespaceConfig, disk *Disk) *Fabric {
	if config == nil {
		config = map[string]NamespaceConfig{}
	}
	return &Fabric{
		mem:      NewMemory(config),
		disk:     disk,
		logger:   logger,
		config:   config,
		inflight: map[string]*flight{},
	}
}

func (f *Fabric) namespaceTTL(ns string) time.Duration {
	if cfg, ok := f.config[ns]; ok && cfg.TTL > 0 {
		return cfg.TTL
	}
	return defaultTTL
}

// lookup reads L1 then L2, promoting an L2 hit into L1.
func (f *Fabric) lookup(ns, key string) ([]byte, bool) {
	if b, ok := f.mem.Get(ns, key); ok {
		return b, true
	}
	if f.disk == nil {
		return nil, false
	}
	b, ok := f.disk.Get(ns, key)
	if !ok {
		return nil, false
	}
	f.mem.Set(ns, key, b)
	return b, true
}

// Clear empties every memory namespace and the disk tier.
func (f *Fabric) Clear() error {
	f.mem.ClearAll()
	if f.disk != nil {
		return f.disk.Clear()
	}
	return nil
}

// Invalidate drops one key from the memory tier so the next read falls
// through to L2 or the fetcher.
func (f *Fabric) Invalidate(ns, key string) {
	f.mem.Delete(ns, key)
}

// Fetch resolves ns:key through the fabric, calling fn on a miss.
// fn returning ErrNoValue records the absence as a cached sentinel; every
// later Fetch within the TTL returns ErrNoValue without calling fn.
func Fetch[T any](ctx context.Context, f *Fabric, ns, key string, fn func(context.Context) (T, error), opts ...FetchOption) (T, error) {
	var zero T
	options := FetchOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	flightKey := ns + ":" + key
	waited := false

	for {
		if b, ok := f.lookup(ns, key); ok {
			return decode[T](b)
		}

		f.mu.Lock()
		if fl, ok := f.inflight[flightKey]; ok && !waited {
			f.mu.Unlock()
			select {
			case <-fl.done:
				// Re-read through the cache; on a miss the originator
				// failed and this caller gets one independent attempt.
				waited = true
				continue
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		var fl *flight
		if !waited {
			fl = &flight{done: make(chan struct{})}
			f.inflight[flightKey] = fl
		}
		f.mu.Unlock()

		value, err := fn(ctx)

		if fl != nil {
			f.mu.Lock()
			delete(f.inflight, flightKey)
			f.mu.Unlock()
			close(fl.done)
		}

		return storeResult(f, ns, key, value, err, options)
	}
}

// Put primes ns:key in both tiers, bypassing the fetcher. Used by the
// batch pre-warm entry points.
func Put[T any](f *Fabric, ns, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache put %s:%s: %w", ns, key, err)
	}
	b, err := json.Marshal(envelope{V: raw})
	if err != nil {
		return fmt.Errorf("cache put %s:%s: %w", ns, key, err)
	}
	f.mem.Set(ns, key, b)
	if f.disk != nil {
		return f.disk.Set(ns, key, b, f.namespaceTTL(ns))
	}
	return nil
}

// storeResult persists the fetcher outcome per the tier rules and hands
// the caller its result.
func storeResult[T any](f *Fabric, ns, key string, value T, fetchErr error, options FetchOptions) (T, error) {
	var zero T

	if errors.Is(fetchErr, ErrNoValue) {
		b, err := json.Marshal(envelope{None: true})
		if err == nil {
			ttl := options.ttl
			if ttl <= 0 {
				ttl = f.namespaceTTL(ns)
			}
			f.mem.SetWithTTL(ns, key, b, ttl)
			if f.disk != nil {
				if derr := f.disk.Set(ns, key, b, ttl); derr != nil {
					f.logger.Warn().Err(derr).Str("key", ns+":"+key).Msg("Cache: sentinel disk write failed")
				}
			}
		}
		return zero, ErrNoValue
	}
	if fetchErr != nil {
		// Real failures bubble uncached
		return zero, fetchErr
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("cache encode %s:%s: %w", ns, key, err)
	}
	b, err := json.Marshal(envelope{V: raw})
	if err != nil {
		return zero, fmt.Errorf("cache encode %s:%s: %w", ns, key, err)
	}

	if options.isError != nil && options.isError(value) {
		errTTL := options.errTTL
		if errTTL <= 0 {
			errTTL = defaultErrorTTL
		}
		// Error-shaped result: memory only, short lived
		f.mem.SetWithTTL(ns, key, b, errTTL)
		return value, nil
	}

	ttl := options.ttl
	if ttl <= 0 {
		ttl = f.namespaceTTL(ns)
	}
	f.mem.SetWithTTL(ns, key, b, ttl)
	if f.disk != nil {
		if derr := f.disk.Set(ns, key, b, ttl); derr != nil {
			f.logger.Warn().Err(derr).Str("key", ns+":"+key).Msg("Cache: disk write failed")
		}
	}
	return value, nil
}

func decode[T any](b []byte) (T, error) {
	var zero T
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return zero, fmt.Errorf("cache decode: %w", err)
	}
	if env.None {
		return zero, ErrNoValue
	}
	var value T
	if err := json.Unmarshal(env.V, &value); err != nil {
		return zero, fmt.Errorf("cache decode: %w", err)
	}
	return value, nil
}
