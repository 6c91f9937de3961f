package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/assettrack/internal/core"
)

const assetColumns = `a.id, a.organization_id, a.label_id, a.asset_type_id, a.quantity, a.client_id,
	a.warehouse_id, a.zone_id, a.status, a.notes, a.created_at, a.updated_at`

func assetDest(a *core.Asset) []any {
	return []any{
		&a.ID, &a.OrganizationID, &a.LabelID, &a.AssetTypeID, &a.Quantity, &a.ClientID,
		&a.WarehouseID, &a.ZoneID, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	}
}

func scanAsset(row pgx.Row) (core.Asset, error) {
	var a core.Asset
	err := row.Scan(assetDest(&a)...)
	return a, err
}

// detailSelect joins every relation an AssetDetail shows.
const detailSelect = `SELECT ` + assetColumns + `,
	t.name, t.code, c.name, w.name, w.code, z.name, z.code
	FROM assets a
	JOIN asset_types t ON t.id = a.asset_type_id
	LEFT JOIN clients c ON c.id = a.client_id
	LEFT JOIN warehouses w ON w.id = a.warehouse_id
	LEFT JOIN zones z ON z.id = a.zone_id`

func scanDetail(row pgx.Row) (core.AssetDetail, error) {
	var (
		d          core.AssetDetail
		typeName   string
		typeCode   *string
		clientName *string
		whName     *string
		whCode     *string
		zoneName   *string
		zoneCode   *string
	)
	dest := append(assetDest(&d.Asset), &typeName, &typeCode, &clientName, &whName, &whCode, &zoneName, &zoneCode)
	if err := row.Scan(dest...); err != nil {
		return core.AssetDetail{}, err
	}

	d.AssetType = &core.RefSummary{ID: d.AssetTypeID, Name: typeName, Code: typeCode}
	if d.ClientID != nil && clientName != nil {
		d.Client = &core.RefSummary{ID: *d.ClientID, Name: *clientName}
	}
	if d.WarehouseID != nil && whName != nil {
		d.Warehouse = &core.RefSummary{ID: *d.WarehouseID, Name: *whName, Code: whCode}
	}
	if d.ZoneID != nil && zoneName != nil {
		d.Zone = &core.RefSummary{ID: *d.ZoneID, Name: *zoneName, Code: zoneCode}
	}
	return d, nil
}

func (s *Store) ListLabelIDs(ctx context.Context, orgID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT label_id FROM assets WHERE organization_id = $1`, orgID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) LabelExists(ctx context.Context, orgID int64, labelID string, excludeID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM assets WHERE organization_id = $1 AND label_id = $2 AND id <> $3)`,
		orgID, labelID, excludeID,
	).Scan(&exists)
	return exists, err
}

func (s *Store) GetAsset(ctx context.Context, orgID, id int64) (core.Asset, error) {
	a, err := scanAsset(s.pool.QueryRow(ctx,
		`SELECT `+assetColumns+` FROM assets a WHERE a.organization_id = $1 AND a.id = $2`,
		orgID, id,
	))
	return a, translate(err)
}

func (s *Store) GetAssetDetail(ctx context.Context, orgID, id int64) (core.AssetDetail, error) {
	d, err := scanDetail(s.pool.QueryRow(ctx,
		detailSelect+` WHERE a.organization_id = $1 AND a.id = $2`,
		orgID, id,
	))
	return d, translate(err)
}

// GetAssetsByIDs returns the assets of orgID among ids. Ids that do not
// exist or belong elsewhere are silently absent from the result.
func (s *Store) GetAssetsByIDs(ctx context.Context, orgID int64, ids []int64) ([]core.Asset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+assetColumns+` FROM assets a WHERE a.organization_id = $1 AND a.id = ANY($2) ORDER BY a.id`,
		orgID, ids,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.Asset, error) { return scanAsset(r) })
}

// assetWhere builds the filter clause for ListAssets. Placeholders are
// numbered from $1, which is always the organization.
func assetWhere(orgID int64, f core.AssetFilter) (string, []any) {
	conds := []string{"a.organization_id = $1"}
	args := []any{orgID}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if search := strings.TrimSpace(f.Search); search != "" {
		add("a.label_id ILIKE $%d", "%"+escapeLike(search)+"%")
	}
	if f.AssetTypeID != nil {
		add("a.asset_type_id = $%d", *f.AssetTypeID)
	}
	if f.Status != nil {
		add("a.status = $%d", string(*f.Status))
	}
	switch {
	case f.ClientID != nil:
		add("a.client_id = $%d", *f.ClientID)
	case f.Ownership == core.OwnershipCompany:
		conds = append(conds, "a.client_id IS NULL")
	case f.Ownership == core.OwnershipClient:
		conds = append(conds, "a.client_id IS NOT NULL")
	}
	if f.WarehouseID != nil {
		add("a.warehouse_id = $%d", *f.WarehouseID)
	}
	if f.ZoneID != nil {
		add("a.zone_id = $%d", *f.ZoneID)
	}
	return strings.Join(conds, " AND "), args
}

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *Store) ListAssets(ctx context.Context, orgID int64, f core.AssetFilter) (core.AssetPage, error) {
	where, args := assetWhere(orgID, f)
	page := core.AssetPage{Page: f.Page, Limit: f.Limit, Items: []core.AssetDetail{}}

	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM assets a WHERE `+where, args...).Scan(&page.Total); err != nil {
		return core.AssetPage{}, fmt.Errorf("count assets: %w", err)
	}
	if page.Total == 0 {
		return page, nil
	}

	n := len(args)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := s.pool.Query(ctx,
		detailSelect+` WHERE `+where+fmt.Sprintf(` ORDER BY a.updated_at DESC, a.label_id ASC LIMIT $%d OFFSET $%d`, n+1, n+2),
		args...,
	)
	if err != nil {
		return core.AssetPage{}, fmt.Errorf("list assets: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.AssetDetail, error) { return scanDetail(r) })
	if err != nil {
		return core.AssetPage{}, fmt.Errorf("list assets: %w", err)
	}
	page.Items = items
	return page, nil
}

func (s *Store) DeleteAsset(ctx context.Context, orgID, id int64) error {
	return one(s.pool.Exec(ctx, `DELETE FROM assets WHERE organization_id = $1 AND id = $2`, orgID, id))
}
