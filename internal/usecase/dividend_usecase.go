package usecase

import (
	"context"

	"go.uber.org/zap"

	"tao_dividends_api/internal/domain"
	"tao_dividends_api/internal/metrics"
	"tao_dividends_api/internal/port"
)

const DefaultCachePrefix = "tao_dividends"

// DividendService answers dividend lookups cache-aside. It owns conn for
// its whole life and releases it on Close.
type DividendService struct {
	conn   port.ManagedConnection
	query  port.DividendFetcher
	cache  port.CacheStore
	prefix string
}

func NewDividendService(
	conn port.ManagedConnection,
	query port.DividendFetcher,
	cache port.CacheStore,
	prefix string,
) *DividendService {
	if prefix == "" {
		prefix = DefaultCachePrefix
	}
	return &DividendService{conn: conn, query: query, cache: cache, prefix: prefix}
}

// Lookup serves from the cache when it can. On a miss it reads the ledger
// exactly once and writes the result back best effort. Ledger and input
// errors are returned as they are.
func (s *DividendService) Lookup(
	ctx context.Context,
	subnet interface{},
	account string,
) (domain.DividendRecord, error) {
	netuid, err := domain.ParseSubnetID(subnet)
	if err != nil {
		return domain.DividendRecord{}, err
	}

	if payload, ok := s.cache.Get(ctx, s.prefix, netuid, account); ok {
		rec, err := domain.DecodeRecord(payload)
		if err == nil {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			rec.ServedFromCache = true
			return rec, nil
		}
		zap.L().Warn("discarding unreadable cache entry",
			zap.Stringer("netuid", netuid),
			zap.String("hotkey", account),
			zap.Error(err))
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	if !s.conn.IsConnected() {
		if err := s.conn.Connect(ctx); err != nil {
			return domain.DividendRecord{}, err
		}
	}

	dividend, err := s.query.Fetch(ctx, s.conn, netuid, account)
	if err != nil {
		return domain.DividendRecord{}, err
	}

	rec := domain.DividendRecord{
		Subnet:          netuid,
		Account:         account,
		Dividend:        dividend,
		ServedFromCache: false,
		StakeTriggered:  false,
	}

	payload, err := domain.EncodeRecord(rec)
	if err != nil {
		zap.L().Warn("cannot encode dividend for cache", zap.Error(err))
		return rec, nil
	}
	if !s.cache.Set(ctx, payload, s.prefix, netuid, account) {
		zap.L().Warn("cache write-back failed",
			zap.Stringer("netuid", netuid),
			zap.String("hotkey", account))
	}
	return rec, nil
}

func (s *DividendService) Close() {
	s.conn.Close()
}
