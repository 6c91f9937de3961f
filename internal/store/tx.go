package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/assettrack/internal/core"
)

// InTx runs fn in one database transaction. The transaction commits only
// when fn returns nil; any error, including a failed commit, leaves the
// database untouched.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, w core.Writer) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	if err := fn(ctx, &txWriter{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", translate(err))
	}
	return nil
}

type txWriter struct {
	tx pgx.Tx
}

var _ core.Writer = (*txWriter)(nil)

func (w *txWriter) CreateAsset(ctx context.Context, a core.Asset) (core.Asset, error) {
	out, err := scanAsset(w.tx.QueryRow(ctx,
		`INSERT INTO assets AS a (organization_id, label_id, asset_type_id, quantity, client_id,
		   warehouse_id, zone_id, status, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+assetColumns,
		a.OrganizationID, a.LabelID, a.AssetTypeID, a.Quantity, a.ClientID,
		a.WarehouseID, a.ZoneID, string(a.Status), a.Notes, a.CreatedAt, a.UpdatedAt,
	))
	if err != nil {
		return core.Asset{}, fmt.Errorf("insert asset %q: %w", a.LabelID, translate(err))
	}
	return out, nil
}

// copyColumns is the column list for CreateAssets. Timestamps come from the
// column defaults.
var copyColumns = []string{
	"organization_id", "label_id", "asset_type_id", "quantity", "client_id",
	"warehouse_id", "zone_id", "status", "notes",
}

// CreateAssets inserts a batch with COPY. A unique violation anywhere in
// the batch fails the whole statement.
func (w *txWriter) CreateAssets(ctx context.Context, assets []core.Asset) (int, error) {
	n, err := w.tx.CopyFrom(ctx,
		pgx.Identifier{"assets"},
		copyColumns,
		pgx.CopyFromSlice(len(assets), func(i int) ([]any, error) {
			a := assets[i]
			return []any{
				a.OrganizationID, a.LabelID, a.AssetTypeID, a.Quantity, a.ClientID,
				a.WarehouseID, a.ZoneID, string(a.Status), a.Notes,
			}, nil
		}),
	)
	if err != nil {
		return int(n), fmt.Errorf("copy assets: %w", translate(err))
	}
	return int(n), nil
}

func (w *txWriter) UpdateAsset(ctx context.Context, a core.Asset) (core.Asset, error) {
	out, err := scanAsset(w.tx.QueryRow(ctx,
		`UPDATE assets AS a SET label_id = $3, asset_type_id = $4, quantity = $5, client_id = $6,
		   warehouse_id = $7, zone_id = $8, status = $9, notes = $10, updated_at = $11
		 WHERE a.organization_id = $1 AND a.id = $2
		 RETURNING `+assetColumns,
		a.OrganizationID, a.ID, a.LabelID, a.AssetTypeID, a.Quantity, a.ClientID,
		a.WarehouseID, a.ZoneID, string(a.Status), a.Notes, a.UpdatedAt,
	))
	if err != nil {
		return core.Asset{}, fmt.Errorf("update asset %d: %w", a.ID, translate(err))
	}
	return out, nil
}

func (w *txWriter) AppendHistory(ctx context.Context, h core.AssetHistory) error {
	_, err := w.tx.Exec(ctx,
		`INSERT INTO asset_history (asset_id, user_id, changed_at, snapshot) VALUES ($1, $2, $3, $4)`,
		h.AssetID, h.UserID, h.ChangedAt, h.Snapshot,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", translate(err))
	}
	return nil
}
