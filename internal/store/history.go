package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/assettrack/internal/core"
)

// ListHistory reads the newest rows first. The display name is the user's
// full name, falling back to their email.
func (s *Store) ListHistory(ctx context.Context, assetID int64, limit int) ([]core.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT h.id, h.changed_at, COALESCE(NULLIF(trim(u.full_name), ''), u.email, ''), h.snapshot
		 FROM asset_history h
		 LEFT JOIN users u ON u.id = h.user_id
		 WHERE h.asset_id = $1
		 ORDER BY h.changed_at DESC, h.id DESC
		 LIMIT $2`,
		assetID, limit,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.HistoryEntry, error) {
		var e core.HistoryEntry
		err := r.Scan(&e.ID, &e.ChangedAt, &e.User, &e.Snapshot)
		return e, err
	})
}

func (s *Store) CountHistory(ctx context.Context, assetID int64) (int, error) {
	return s.count(ctx, `SELECT count(*) FROM asset_history WHERE asset_id = $1`, assetID)
}
