package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// checkCounter counts permission checks by result.
	checkCounter *prometheus.CounterVec //nolint:gochecknoglobals
	// cacheCounter counts effective-set cache lookups by outcome.
	cacheCounter *prometheus.CounterVec //nolint:gochecknoglobals
	// switchCounter counts context switches by result.
	switchCounter *prometheus.CounterVec //nolint:gochecknoglobals
)

func init() { //nolint:gochecknoinits
	checkCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetgrid_permission_checks_total",
			Help: "Number of permission checks, differentiated by result.",
		},
		[]string{"result"},
	)

	cacheCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetgrid_permission_cache_total",
			Help: "Number of effective permission cache lookups, differentiated by outcome.",
		},
		[]string{"outcome"},
	)

	switchCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetgrid_context_switches_total",
			Help: "Number of permission context switches, differentiated by result.",
		},
		[]string{"result"},
	)
}
