// Package services – Prometheus domain metrics
//
// Counters for the search pipeline itself, complementing the HTTP-level
// metrics in the middleware package. Labels stay bounded: kind is one of the
// four search kinds, outcome one of five fixed values.
package services

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeOK            = "ok"
	outcomeInvalid       = "invalid"
	outcomeNoResults     = "no_results"
	outcomeProviderError = "provider_error"
	outcomePersistFail   = "persistence_error"
)

var (
	// searchesTotal counts orchestrated searches by kind and outcome.
	searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviebot_searches_total",
			Help: "Total number of orchestrated movie searches.",
		},
		[]string{"kind", "outcome"},
	)

	// detailDropsTotal counts candidates silently dropped because their
	// detail fetch failed.
	detailDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "moviebot_detail_drops_total",
			Help: "Total number of candidates dropped after a failed detail fetch.",
		},
	)

	// historyEntriesTotal counts history entries written.
	historyEntriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "moviebot_history_entries_total",
			Help: "Total number of search history entries persisted.",
		},
	)

	// historyDeletesTotal counts history entries removed by bulk clears.
	historyDeletesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "moviebot_history_deletes_total",
			Help: "Total number of search history entries deleted.",
		},
	)
)

func init() {
	prometheus.MustRegister(searchesTotal, detailDropsTotal, historyEntriesTotal, historyDeletesTotal)
}
