// Package main provides the entry point for the FleetGrid service.
// It starts the permission resolution engine and its supporting daemon:
// database migration and seeding, the expired-context sweeper, the
// Prometheus metrics endpoint, and the audit tooling commands. The
// authorization engine itself lives under internal/authz and
// internal/audit and is invoked in-process by route-guarding callers.
package main
