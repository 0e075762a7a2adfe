package database

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"

	"chirp/internal/middleware"
)

// Migration is one versioned SQL migration with its rollback script.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/*.sql
var migrationFS embed.FS

// embedded is parsed once; a malformed file is a build defect.
var embedded = mustLoadMigrations(migrationFS, "migrations")

func mustLoadMigrations(fsys fs.FS, dir string) []Migration {
	loaded, err := LoadMigrations(fsys, dir)
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	return loaded
}

// Migrations returns the embedded migrations in version order.
func Migrations() []Migration {
	return slices.Clone(embedded)
}

// FindMigration looks up an embedded migration by version.
func FindMigration(version int) (Migration, bool) {
	i := slices.IndexFunc(embedded, func(m Migration) bool { return m.Version == version })
	if i < 0 {
		return Migration{}, false
	}
	return embedded[i], true
}

// LoadMigrations reads NNNNNN_name.up.sql files from dir, each paired with
// its .down.sql. Files that do not follow the naming are skipped.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	ups, err := fs.Glob(fsys, path.Join(dir, "*.up.sql"))
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	var loaded []Migration
	for _, upPath := range ups {
		base := strings.TrimSuffix(path.Base(upPath), ".up.sql")
		prefix, name, ok := strings.Cut(base, "_")
		version, convErr := strconv.Atoi(prefix)
		if !ok || convErr != nil {
			middleware.Logger.Warn("Skipping migration with invalid name", slog.String("file", upPath))
			continue
		}

		up, err := fs.ReadFile(fsys, upPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", upPath, err)
		}
		downPath := path.Join(dir, base+".down.sql")
		down, err := fs.ReadFile(fsys, downPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", downPath, err)
		}

		loaded = append(loaded, Migration{Version: version, Name: name, UpScript: string(up), DownScript: string(down)})
	}

	slices.SortFunc(loaded, func(a, b Migration) int { return a.Version - b.Version })
	return loaded, nil
}
