package config

import (
	"time"

	"github.com/fleetgrid/fleetgrid/internal/logger"
)

// Engine holds the tunables of the permission resolution engine.
type Engine struct {
	// CacheTTL is how long a resolved effective permission set stays
	// cached before it is recomputed.
	CacheTTL time.Duration
	// SweepInterval is how often the daemon sweeps expired temporary
	// permission contexts.
	SweepInterval time.Duration
	// ManagerTiers lists the employee tiers that receive manager-scoped
	// department grants. Tiers not listed here receive employee grants.
	ManagerTiers []string
	// RetentionDays raises the audit retention window applied before
	// entries are archived. Values below the compliance minimum of 365
	// are raised to it; frameworks with longer windows keep their own.
	RetentionDays int
}

// Metrics implements the Prometheus endpoint settings.
type Metrics struct {
	Enabled bool // true = serve /metrics
	Port    int  // listening port for the metrics endpoint
}

// Config overall data structure.
type Config struct {
	DevMode bool // enable dev mode for development
	DB      DB
	Log     logger.Log
	Title   string
	Engine  Engine
	Metrics Metrics
}
