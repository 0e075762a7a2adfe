package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"chirp/internal/middleware"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// undefinedTable is the postgres SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// MigrationLog records one applied migration.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

// AppliedVersions lists recorded versions in ascending order. A database
// that never ran migrations has none.
func AppliedVersions(ctx context.Context, db *gorm.DB) ([]int, error) {
	var versions []int
	err := db.WithContext(ctx).Model(&MigrationLog{}).Order("version").Pluck("version", &versions).Error
	if err != nil && !isMissingTableError(err) {
		return nil, fmt.Errorf("read migration_logs: %w", err)
	}
	return versions, nil
}

func isMissingTableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == undefinedTable
	}
	// sqlite, used by tests and local tooling
	return strings.Contains(err.Error(), "no such table")
}

// RunMigrations applies every embedded migration not yet recorded.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return runMigrations(ctx, db, embedded)
}

func runMigrations(ctx context.Context, db *gorm.DB, registered []Migration) error {
	if err := db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return fmt.Errorf("ensure migration_logs: %w", err)
	}

	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return err
	}
	if err := checkUnknownVersions(applied, registered); err != nil {
		return err
	}

	for _, m := range registered {
		if slices.Contains(applied, m.Version) {
			continue
		}
		// the script and its log row commit together
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.UpScript).Error; err != nil {
				return fmt.Errorf("apply %s: %w", m, err)
			}
			return tx.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error
		})
		if err != nil {
			return err
		}
		middleware.Logger.Info("Migration applied", slog.String("migration", m.String()))
	}
	return nil
}

// checkUnknownVersions refuses to run against a database migrated by a
// newer build.
func checkUnknownVersions(applied []int, registered []Migration) error {
	var unknown []string
	for _, v := range applied {
		if !slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == v }) {
			unknown = append(unknown, fmt.Sprintf("%06d", v))
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("migration_logs contains versions unknown to this build: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// RollbackMigration runs the down script of an applied migration and forgets it.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m, ok := FindMigration(version)
	if !ok {
		return fmt.Errorf("migration version %d not found", version)
	}
	return rollback(ctx, db, m)
}

func rollback(ctx context.Context, db *gorm.DB, m Migration) error {
	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, m.Version) {
		return fmt.Errorf("migration %s has not been applied", m)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("roll back %s: %w", m, err)
		}
		return tx.Where("version = ?", m.Version).Delete(&MigrationLog{}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("Migration rolled back", slog.String("migration", m.String()))
	return nil
}
