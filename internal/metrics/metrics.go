package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tao_dividends"

var (
	ConnectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chain_connect_attempts_total",
		Help:      "Chain connection attempts by result.",
	}, []string{"result"})

	LedgerQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_queries_total",
		Help:      "Dividend reads against the ledger by result.",
	}, []string{"result"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Dividend cache lookups by outcome.",
	}, []string{"outcome"})

	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_errors_total",
		Help:      "Cache backend errors swallowed by the store, by operation.",
	}, []string{"op"})
)

func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
