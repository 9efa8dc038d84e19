// Package daemon wires the database, the permission engine, and the
// background workers into a runnable service.
package daemon

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fleetgrid/fleetgrid/internal/audit"
	"github.com/fleetgrid/fleetgrid/internal/auth"
	"github.com/fleetgrid/fleetgrid/internal/authz"
	"github.com/fleetgrid/fleetgrid/internal/config"
	"github.com/fleetgrid/fleetgrid/internal/db/controller/enginestate"
	"github.com/fleetgrid/fleetgrid/internal/db/dsn"
	"github.com/fleetgrid/fleetgrid/internal/db/models"
	"github.com/fleetgrid/fleetgrid/internal/logger/adapter/gormlogger"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg      *config.Config
	db       *gorm.DB
	resolver *authz.Resolver
	switcher *authz.Switcher
	recorder *audit.Recorder
	auth     *auth.Service

	stop chan struct{}
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	db, err := openDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
		return nil
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.RolePermission{},
		&models.RoleInheritance{},
		&models.Permission{},
		&models.PermissionImplication{},
		&models.Department{},
		&models.DepartmentGrant{},
		&models.UserPermission{},
		&models.PermissionContext{},
		&models.AuditEntry{},
		&models.ArchivedAuditEntry{},
		&models.Setting{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
		return nil
	}

	seed(cfg, db)

	store := authz.NewStore(db)
	cache := authz.NewMemoryCache()
	recorder := audit.NewRecorder(db)
	recorder.SetMinRetentionDays(cfg.Engine.RetentionDays)

	resolver := authz.NewResolver(db, store, cache, recorder, authz.Options{
		CacheTTL:     cfg.Engine.CacheTTL,
		ManagerTiers: cfg.Engine.ManagerTiers,
	})

	switcher := authz.NewSwitcher(db, resolver, recorder, departmentMemberValidator(db))

	return &Daemon{
		cfg:      cfg,
		db:       db,
		resolver: resolver,
		switcher: switcher,
		recorder: recorder,
		auth:     auth.NewService(db, recorder, auth.Options{}),
		stop:     make(chan struct{}),
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case "postgres":
		dialector = gormpostgres.Open(dsn.Create(cfg))
	default:
		dialector = gormmysql.Open(dsn.Create(cfg))
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.New()})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DB.GormEngine, err)
	}

	return db, nil
}

// departmentMemberValidator rejects switches into department contexts
// whose department the user no longer belongs to.
func departmentMemberValidator(db *gorm.DB) authz.ContextValidator {
	return func(user *models.User, pc *models.PermissionContext) error {
		if pc.Type != models.ContextTypeDepartment {
			return nil
		}

		var count int64

		err := db.Model(&models.Department{}).
			Where("id = ?", user.DepartmentID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("verify department membership: %w", err)
		}

		if count == 0 {
			return fmt.Errorf("user %d is not a member of a department", user.ID)
		}

		return nil
	}
}

// Resolver exposes the permission resolver to in-process callers.
func (d *Daemon) Resolver() *authz.Resolver {
	return d.resolver
}

// Switcher exposes the context switcher to in-process callers.
func (d *Daemon) Switcher() *authz.Switcher {
	return d.switcher
}

// Recorder exposes the audit recorder to compliance tooling.
func (d *Daemon) Recorder() *audit.Recorder {
	return d.recorder
}

// Auth exposes the authentication service to in-process callers.
func (d *Daemon) Auth() *auth.Service {
	return d.auth
}

// DB exposes the database handle to maintenance tooling.
func (d *Daemon) DB() *gorm.DB {
	return d.db
}

// Start runs the expired-context sweeper and, when enabled, the
// Prometheus metrics endpoint. It blocks until Stop is called.
func (d *Daemon) Start() error {
	go d.sweepLoop()

	if d.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		addr := fmt.Sprintf(":%d", d.cfg.Metrics.Port)
		log.Info().Str("addr", addr).Msg("serving metrics")

		return http.ListenAndServe(addr, mux) //nolint:gosec
	}

	<-d.stop

	return nil
}

// Stop shuts down the background workers.
func (d *Daemon) Stop() {
	close(d.stop)
}

func (d *Daemon) sweepLoop() {
	ticker := time.NewTicker(d.cfg.Engine.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			swept, err := d.switcher.SweepExpired()
			if err != nil {
				log.Error().Err(err).Msg("expired context sweep failed")
				continue
			}

			d.auth.SweepSessions()

			state := enginestate.SweepState{LastRun: time.Now().UTC(), Removed: swept}
			if err := state.Save(d.db); err != nil {
				log.Error().Err(err).Msg("failed to persist sweep state")
			}

			if swept > 0 {
				log.Info().Int64("swept", swept).Msg("removed expired temporary contexts")
			}
		}
	}
}
