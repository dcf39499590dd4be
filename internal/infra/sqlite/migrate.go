package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"time"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration is one versioned schema change.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// ParseMigrationFilename splits "0001_name.sql" into version and name.
func ParseMigrationFilename(filename string) (int, string, bool) {
	m := migrationPattern.FindStringSubmatch(filename)
	if m == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return version, m[2], true
}

// LoadMigrations reads the embedded migrations sorted by version.
func LoadMigrations() ([]Migration, error) {
	return loadMigrations(migrationFiles, "migrations")
}

func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("LoadMigrations: reading %s: %w", dir, err)
	}

	var migrations []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, name, ok := ParseMigrationFilename(e.Name())
		if !ok {
			continue
		}
		content, err := fs.ReadFile(fsys, dir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("LoadMigrations: reading %s: %w", e.Name(), err)
		}
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Filename: e.Name(),
			SQL:      string(content),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func ensureSchemaMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL,
			checksum   TEXT,
			applied_by TEXT
		)`)
	if err != nil {
		return fmt.Errorf("ensureSchemaMigrationsTable: %w", err)
	}
	return nil
}

// AppliedMigrations lists the migrations recorded in schema_migrations.
func AppliedMigrations(ctx context.Context, db *sql.DB) ([]AppliedMigration, error) {
	if err := ensureSchemaMigrationsTable(ctx, db); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT version, name, applied_at, COALESCE(checksum, ''), COALESCE(applied_by, '')
		FROM schema_migrations
		ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("AppliedMigrations: query: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			am        AppliedMigration
			appliedAt string
		)
		if err := rows.Scan(&am.Version, &am.Name, &appliedAt, &am.Checksum, &am.AppliedBy); err != nil {
			return nil, fmt.Errorf("AppliedMigrations: scan: %w", err)
		}
		if am.AppliedAt, err = parseTimestamp(appliedAt); err != nil {
			return nil, fmt.Errorf("AppliedMigrations: applied_at: %w", err)
		}
		applied = append(applied, am)
	}
	return applied, rows.Err()
}

// Migrate applies every embedded migration not yet recorded and returns how
// many ran. A recorded migration whose file changed is an error.
func Migrate(ctx context.Context, db *sql.DB, appliedBy string) (int, error) {
	migrations, err := LoadMigrations()
	if err != nil {
		return 0, err
	}
	return applyMigrations(ctx, db, migrations, appliedBy)
}

func applyMigrations(ctx context.Context, db *sql.DB, migrations []Migration, appliedBy string) (int, error) {
	applied, err := AppliedMigrations(ctx, db)
	if err != nil {
		return 0, err
	}
	checksums := make(map[int]string, len(applied))
	for _, am := range applied {
		checksums[am.Version] = am.Checksum
	}

	count := 0
	for _, m := range migrations {
		if sum, ok := checksums[m.Version]; ok {
			if sum != "" && sum != m.Checksum {
				return count, fmt.Errorf("Migrate: %s changed after it was applied", m.Filename)
			}
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return count, fmt.Errorf("Migrate: begin %s: %w", m.Filename, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return count, fmt.Errorf("Migrate: executing %s: %w", m.Filename, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, applied_at, checksum, applied_by) VALUES (?, ?, ?, ?, ?)`,
			m.Version, m.Name, formatTimestamp(time.Now()), m.Checksum, appliedBy,
		); err != nil {
			tx.Rollback()
			return count, fmt.Errorf("Migrate: recording %s: %w", m.Filename, err)
		}
		if err := tx.Commit(); err != nil {
			return count, fmt.Errorf("Migrate: commit %s: %w", m.Filename, err)
		}
		count++
	}
	return count, nil
}
