package postgres

// Schema changes for the encodings cache ship as numbered SQL files embedded
// in the binary. Each file runs once, inside its own transaction, and is
// recorded in encodings_migrations.

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"

	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsTable = "encodings_migrations"

// pendingMigrations returns the embedded migration files missing from
// applied, in the order they must run.
func pendingMigrations(applied []string) ([]string, error) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	var pending []string
	for _, file := range files {
		name := file[len("migrations/"):]
		if !slices.Contains(applied, name) {
			pending = append(pending, name)
		}
	}
	slices.Sort(pending)
	return pending, nil
}

// Migrate brings the encodings schema up to date. It is safe to call on
// every start.
func (p *Pool) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("create %s: %w", migrationsTable, err)
	}

	applied, err := p.MigrationsApplied(ctx)
	if err != nil {
		return err
	}
	pending, err := pendingMigrations(applied)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		log.WithField("schema_version", lastOf(applied)).Debug("Encodings schema up to date")
		return nil
	}

	for _, name := range pending {
		if err := p.applyMigration(ctx, name); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{
		"applied":        len(pending),
		"schema_version": lastOf(pending),
	}).Info("Encodings schema migrated")
	return nil
}

func (p *Pool) applyMigration(ctx context.Context, name string) error {
	script, err := migrationsFS.ReadFile("migrations/" + name)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("execute migration %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO "+migrationsTable+" (version) VALUES ($1)", name); err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}

	log.WithField("migration", name).Debug("Applied encodings migration")
	return nil
}

// MigrationsApplied returns the applied migration files in order.
func (p *Pool) MigrationsApplied(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT version FROM "+migrationsTable+" ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migration versions: %w", err)
	}
	return versions, nil
}

func lastOf(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return names[len(names)-1]
}
