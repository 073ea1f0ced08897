package external

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// ResilientRegistryClient implements domain.RegistryClient on top of the raw
// API client. Lookups go through two cache tiers (in-process expirable LRU,
// then the optional shared Redis cache) before hitting the registry behind a
// circuit breaker. Every failure path resolves fail-open.
type ResilientRegistryClient struct {
	api     *RegistryAPIClient
	breaker *gobreaker.CircuitBreaker
	local   *expirable.LRU[string, *domain.MemberRecord]
	shared  *MemberCache
	log     *logrus.Logger
}

// NewResilientRegistryClient wraps an API client with caching and a circuit
// breaker. shared may be nil when no Redis cache is configured.
func NewResilientRegistryClient(api *RegistryAPIClient, config domain.RegistryConfig, shared *MemberCache, logger *logrus.Logger) *ResilientRegistryClient {
	cacheSize := config.CacheSize
	if cacheSize == 0 {
		cacheSize = 4096
	}
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Hour
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "SHA-Registry",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientRegistryClient{
		api:     api,
		breaker: breaker,
		local:   expirable.NewLRU[string, *domain.MemberRecord](cacheSize, nil, cacheTTL),
		shared:  shared,
		log:     logger,
	}
}

// VerifyMember resolves a member record for the given SHA number. It never
// returns an error: when the registry cannot answer, the record carries
// Exists=true and APIError=true so detection scores nothing it cannot prove.
func (r *ResilientRegistryClient) VerifyMember(ctx context.Context, shaNumber string) *domain.MemberRecord {
	if record, ok := r.local.Get(shaNumber); ok {
		return record
	}

	if r.shared != nil {
		if record, found, err := r.shared.Get(ctx, shaNumber); err == nil && found {
			r.local.Add(shaNumber, record)
			return record
		}
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.api.Verify(ctx, shaNumber)
	})
	if err != nil {
		detail := err.Error()
		if err == gobreaker.ErrOpenState {
			detail = "registry circuit breaker open"
		}
		r.log.WithFields(logrus.Fields{
			"sha_number": shaNumber,
			"error":      detail,
		}).Warn("Member verification failed open")
		return failOpenRecord(shaNumber, detail)
	}

	record := result.(*domain.MemberRecord)

	// Fail-open answers are transient and must not mask a later real answer
	if !record.APIError {
		r.local.Add(shaNumber, record)
		if r.shared != nil {
			if err := r.shared.Set(ctx, record); err != nil {
				r.log.WithFields(logrus.Fields{
					"sha_number": shaNumber,
					"error":      err.Error(),
				}).Warn("Failed to cache member record")
			}
		}
	}

	return record
}
