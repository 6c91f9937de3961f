// Package store implements the core storage ports on PostgreSQL with pgx.
//
// Every query is scoped by organization. Zones carry no organization column
// and are scoped through their warehouse. Writes that must be audited run
// through InTx; everything else runs directly on the pool.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/assettrack/internal/core"
)

// Postgres error codes the store translates.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// labelConstraint is the unique constraint on (organization_id, label_id).
const labelConstraint = "assets_organization_id_label_id_key"

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

var (
	_ DBTX = (*pgxpool.Pool)(nil)
	_ DBTX = (pgx.Tx)(nil)

	_ core.AssetTypeRepository = (*Store)(nil)
	_ core.ClientRepository    = (*Store)(nil)
	_ core.WarehouseRepository = (*Store)(nil)
	_ core.ZoneRepository      = (*Store)(nil)
	_ core.AssetRepository     = (*Store)(nil)
	_ core.HistoryRepository   = (*Store)(nil)
	_ core.Transactor          = (*Store)(nil)
)

// Store is the PostgreSQL storage backend.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps a connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Repositories bundles the store as every port.
func (s *Store) Repositories() core.Repositories {
	return core.Repositories{
		AssetTypes: s,
		Clients:    s,
		Warehouses: s,
		Zones:      s,
		Assets:     s,
		History:    s,
		Tx:         s,
	}
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// translate maps driver errors onto the core sentinels. Errors it does not
// recognise are returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if pgErr.ConstraintName == labelConstraint {
				return fmt.Errorf("%w: %w", core.ErrDuplicateLabel, err)
			}
		case pgForeignKeyViolation:
			if isDelete(pgErr) {
				return fmt.Errorf("%w: %w", core.ErrHasDependents, err)
			}
		}
	}
	return err
}

// isDelete reports whether a foreign key violation was raised by removing a
// row that is still referenced, as opposed to an insert pointing at a
// missing row.
func isDelete(pgErr *pgconn.PgError) bool {
	return strings.HasPrefix(pgErr.Message, "update or delete on table")
}

// one expects exactly one affected row and maps zero to ErrNotFound.
func one(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
