package service

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/evyataryagoni/geolookup/internal/logger"
	"github.com/evyataryagoni/geolookup/internal/metrics"
	"github.com/evyataryagoni/geolookup/internal/models"
	"github.com/evyataryagoni/geolookup/internal/store"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidIP is returned when the lookup key is not an IPv4 or IPv6 address
var ErrInvalidIP = errors.New("invalid IP address format")

// IPService handles business logic for IP lookups
// It sits between the HTTP handler and the store
//
// Responsibilities:
//   - Validate and canonicalize the lookup key
//   - Call the store
//   - Classify failures for logs and metrics
type IPService struct {
	store     store.Store
	validator *validator.Validate
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// NewIPService creates a new IP service
// m and log may be nil
func NewIPService(s store.Store, m *metrics.Metrics, log *logger.Logger) *IPService {
	if log == nil {
		log = logger.NewDefault()
	}
	return &IPService{
		store:     s,
		validator: validator.New(),
		metrics:   m,
		logger:    log.WithComponent("IPService"),
	}
}

// LookupIP returns the geolocation record for ip
//
// Flow:
//  1. Validate the key ("ip" accepts IPv4 and IPv6)
//  2. Canonicalize it (IPv4-mapped IPv6 becomes dotted quad)
//  3. Query the store
//
// Errors are ErrInvalidIP, store.ErrNotFound, store.ErrNotReady or a
// wrapped store failure. Callers that must always answer treat every
// error as an empty record.
func (s *IPService) LookupIP(ctx context.Context, ip string) (models.Record, error) {
	if err := s.validator.Var(ip, "required,ip"); err != nil {
		s.logger.Debug().Str("ip", ip).Msg("Invalid IP address format")
		s.count("invalid", "validation")
		return nil, fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}

	parsed := net.ParseIP(ip)
	log := s.logger.WithIP(parsed.String())

	record, err := s.store.FindByIP(ctx, parsed)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		log.Debug().Msg("IP address not found")
		s.count("not_found", "")
		return nil, err
	case errors.Is(err, store.ErrNotReady):
		log.Warn().Msg("Lookup before the database snapshot was loaded")
		s.count("error", "not_ready")
		return nil, err
	default:
		log.Error().Err(err).Msg("Store error during IP lookup")
		s.count("error", "store_error")
		return nil, fmt.Errorf("lookup failed: %w", err)
	}

	log.Debug().Int("fields", len(record)).Msg("IP lookup successful")
	s.count("success", "")
	return record, nil
}

// Close closes the underlying store
func (s *IPService) Close() error {
	return s.store.Close()
}

func (s *IPService) count(result, errorType string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IPLookupsTotal.WithLabelValues(result).Inc()
	if errorType != "" {
		s.metrics.IPLookupsErrors.WithLabelValues(errorType).Inc()
	}
}
