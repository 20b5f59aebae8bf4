package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mbeaupre/autoemail/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertShops inserts or replaces a batch of shop rows.
func (s *SQLiteStore) UpsertShops(ctx context.Context, shops []model.Shop) error {
	if len(shops) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO shops (
			id, name, email, customer_email,
			domain, platform_domain, shop_owner, currency,
			owner_id, created_at, updated_at
		) VALUES (
			:id, :name, :email, :customer_email,
			:domain, :platform_domain, :shop_owner, :currency,
			:owner_id, :created_at, :updated_at
		)`

	for i := range shops {
		if _, err := tx.NamedExecContext(ctx, query, shops[i]); err != nil {
			return fmt.Errorf("upserting shop %d: %w", shops[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing shop upserts: %w", err)
	}
	return nil
}

// ListShops returns every shop, ordered by name.
func (s *SQLiteStore) ListShops(ctx context.Context) ([]model.Shop, error) {
	var shops []model.Shop
	err := s.db.SelectContext(ctx, &shops, "SELECT * FROM shops ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing shops: %w", err)
	}
	return shops, nil
}

// UpsertOwners inserts or replaces a batch of owner rows.
func (s *SQLiteStore) UpsertOwners(ctx context.Context, owners []model.Owner) error {
	if len(owners) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO owners (
			id, email, company_name, sync_level,
			currency, created_at, updated_at
		) VALUES (
			:id, :email, :company_name, :sync_level,
			:currency, :created_at, :updated_at
		)`

	for i := range owners {
		if _, err := tx.NamedExecContext(ctx, query, owners[i]); err != nil {
			return fmt.Errorf("upserting owner %d: %w", owners[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing owner upserts: %w", err)
	}
	return nil
}

// ListOwners returns every owner, ordered by id.
func (s *SQLiteStore) ListOwners(ctx context.Context) ([]model.Owner, error) {
	var owners []model.Owner
	err := s.db.SelectContext(ctx, &owners, "SELECT * FROM owners ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing owners: %w", err)
	}
	return owners, nil
}

// GetOwnerByID returns the owner with the given id, or nil when absent.
func (s *SQLiteStore) GetOwnerByID(ctx context.Context, id int64) (*model.Owner, error) {
	var owner model.Owner
	err := s.db.GetContext(ctx, &owner, "SELECT * FROM owners WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting owner %d: %w", id, err)
	}
	return &owner, nil
}
