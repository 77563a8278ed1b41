package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/evyataryagoni/geolookup/internal/cache"
	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/evyataryagoni/geolookup/internal/metrics"
	"github.com/evyataryagoni/geolookup/internal/models"
)

// notFoundMarker is cached for IPs the database has no record for
var notFoundMarker = []byte("null")

// CachedStore puts a cache in front of another store
//
// Key format: ipinfo:<version>:<ip>, where version comes from the wrapped
// store when it implements Versioned. Misses are cached too. Cache failures
// are logged and fall through to the wrapped store.
type CachedStore struct {
	next    Store
	cache   cache.Cache
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewCachedStore wraps next with c
// m and log may be nil
func NewCachedStore(next Store, c cache.Cache, m *metrics.Metrics, log *logger.Logger) *CachedStore {
	if log == nil {
		log = logger.NewDefault()
	}
	return &CachedStore{
		next:    next,
		cache:   c,
		metrics: m,
		logger:  log.WithComponent("CachedStore"),
	}
}

// FindByIP serves ip from the cache, falling back to the wrapped store
func (s *CachedStore) FindByIP(ctx context.Context, ip net.IP) (models.Record, error) {
	key, cacheable := s.key(ip)
	if !cacheable {
		return s.next.FindByIP(ctx, ip)
	}

	cached, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		record, decodeErr := decodeRecord(cached)
		if decodeErr == nil {
			s.observe("hit")
			if record == nil {
				return nil, ErrNotFound
			}
			return record, nil
		}
		s.logger.Warn().Err(decodeErr).Str("key", key).Msg("Discarding undecodable cache entry")
		s.observe("error")
	case errors.Is(err, cache.ErrMiss):
		s.observe("miss")
	default:
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		s.observe("error")
	}

	record, err := s.next.FindByIP(ctx, ip)
	switch {
	case err == nil:
		s.store(ctx, key, record)
	case errors.Is(err, ErrNotFound):
		s.store(ctx, key, nil)
	}

	return record, err
}

// Close closes the cache and the wrapped store
func (s *CachedStore) Close() error {
	cacheErr := s.cache.Close()
	if err := s.next.Close(); err != nil {
		return err
	}
	return cacheErr
}

func (s *CachedStore) key(ip net.IP) (string, bool) {
	version := "0"
	if v, ok := s.next.(Versioned); ok {
		current, loaded := v.Version()
		if !loaded {
			return "", false
		}
		version = current
	}
	return fmt.Sprintf("ipinfo:%s:%s", version, ip.String()), true
}

func (s *CachedStore) store(ctx context.Context, key string, record models.Record) {
	value := notFoundMarker
	if record != nil {
		encoded, err := json.Marshal(record)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Failed to encode record for cache")
			return
		}
		value = encoded
	}

	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

func (s *CachedStore) observe(result string) {
	if s.metrics != nil {
		s.metrics.CacheRequestsTotal.WithLabelValues(s.cache.Name(), result).Inc()
	}
}

// decodeRecord decodes a cached value; a nil record means a cached miss
// Numbers are kept as json.Number so they are re-serialized verbatim.
func decodeRecord(data []byte) (models.Record, error) {
	if bytes.Equal(data, notFoundMarker) {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var record models.Record
	if err := decoder.Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode cached record: %w", err)
	}
	return record, nil
}
