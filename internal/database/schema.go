package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"chirp/internal/config"
	"chirp/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes selected by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// schemaPlan is what ApplySchema will run for a config.
type schemaPlan struct {
	mode    string
	sql     bool
	autoORM bool
}

// planSchema: hybrid runs SQL migrations everywhere and AutoMigrate only
// outside production; auto is refused in production.
func planSchema(cfg *config.Config) (schemaPlan, error) {
	plan := schemaPlan{mode: cfg.DBSchemaMode}
	if plan.mode == "" {
		plan.mode = SchemaModeHybrid
	}
	prod := cfg.IsProduction()

	switch plan.mode {
	case SchemaModeSQL:
		plan.sql = true
	case SchemaModeAuto:
		if prod {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q", cfg.Env)
		}
		plan.autoORM = true
	case SchemaModeHybrid:
		plan.sql, plan.autoORM = true, !prod
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.mode)
	}
	return plan, nil
}

// AutoMigrate creates or updates the tables of PersistentModels.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the database schema up to date according to cfg.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}
	if plan.sql {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if plan.autoORM {
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("mode", plan.mode), slog.String("env", cfg.Env))
		if err := AutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// SchemaStatus describes what ApplySchema would do for a config.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// GetSchemaStatus reports applied and pending migrations without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{
		Mode:               plan.mode,
		Environment:        cfg.Env,
		WillRunSQL:         plan.sql,
		WillRunAutoMigrate: plan.autoORM,
	}
	if !plan.sql {
		return status, nil
	}

	if status.AppliedVersions, err = AppliedVersions(ctx, db); err != nil {
		return nil, err
	}
	for _, m := range embedded {
		if !slices.Contains(status.AppliedVersions, m.Version) {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}
	return status, nil
}
