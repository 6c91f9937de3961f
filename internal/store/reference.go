package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/assettrack/internal/core"
)

// Asset types

const assetTypeColumns = `id, organization_id, name, code, serialized, created_at`

func scanAssetType(row pgx.Row) (core.AssetType, error) {
	var t core.AssetType
	err := row.Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Code, &t.Serialized, &t.CreatedAt)
	return t, err
}

func (s *Store) ListAssetTypes(ctx context.Context, orgID int64) ([]core.AssetType, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+assetTypeColumns+` FROM asset_types WHERE organization_id = $1 ORDER BY name, id`,
		orgID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.AssetType, error) { return scanAssetType(r) })
}

func (s *Store) GetAssetType(ctx context.Context, orgID, id int64) (core.AssetType, error) {
	t, err := scanAssetType(s.pool.QueryRow(ctx,
		`SELECT `+assetTypeColumns+` FROM asset_types WHERE organization_id = $1 AND id = $2`,
		orgID, id,
	))
	return t, translate(err)
}

func (s *Store) CreateAssetType(ctx context.Context, t core.AssetType) (core.AssetType, error) {
	out, err := scanAssetType(s.pool.QueryRow(ctx,
		`INSERT INTO asset_types (organization_id, name, code, serialized)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+assetTypeColumns,
		t.OrganizationID, t.Name, t.Code, t.Serialized,
	))
	return out, translate(err)
}

func (s *Store) UpdateAssetType(ctx context.Context, t core.AssetType) (core.AssetType, error) {
	out, err := scanAssetType(s.pool.QueryRow(ctx,
		`UPDATE asset_types SET name = $3, code = $4
		 WHERE organization_id = $1 AND id = $2
		 RETURNING `+assetTypeColumns,
		t.OrganizationID, t.ID, t.Name, t.Code,
	))
	return out, translate(err)
}

func (s *Store) DeleteAssetType(ctx context.Context, orgID, id int64) error {
	return one(s.pool.Exec(ctx, `DELETE FROM asset_types WHERE organization_id = $1 AND id = $2`, orgID, id))
}

func (s *Store) CountAssetsByType(ctx context.Context, orgID, id int64) (int, error) {
	return s.count(ctx, `SELECT count(*) FROM assets WHERE organization_id = $1 AND asset_type_id = $2`, orgID, id)
}

// Clients

const clientColumns = `id, organization_id, name, created_at`

func scanClient(row pgx.Row) (core.Client, error) {
	var c core.Client
	err := row.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.CreatedAt)
	return c, err
}

func (s *Store) ListClients(ctx context.Context, orgID int64) ([]core.Client, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE organization_id = $1 ORDER BY name, id`,
		orgID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.Client, error) { return scanClient(r) })
}

func (s *Store) GetClient(ctx context.Context, orgID, id int64) (core.Client, error) {
	c, err := scanClient(s.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE organization_id = $1 AND id = $2`,
		orgID, id,
	))
	return c, translate(err)
}

func (s *Store) CreateClient(ctx context.Context, c core.Client) (core.Client, error) {
	out, err := scanClient(s.pool.QueryRow(ctx,
		`INSERT INTO clients (organization_id, name) VALUES ($1, $2) RETURNING `+clientColumns,
		c.OrganizationID, c.Name,
	))
	return out, translate(err)
}

func (s *Store) UpdateClient(ctx context.Context, c core.Client) (core.Client, error) {
	out, err := scanClient(s.pool.QueryRow(ctx,
		`UPDATE clients SET name = $3 WHERE organization_id = $1 AND id = $2 RETURNING `+clientColumns,
		c.OrganizationID, c.ID, c.Name,
	))
	return out, translate(err)
}

func (s *Store) DeleteClient(ctx context.Context, orgID, id int64) error {
	return one(s.pool.Exec(ctx, `DELETE FROM clients WHERE organization_id = $1 AND id = $2`, orgID, id))
}

func (s *Store) CountAssetsByClient(ctx context.Context, orgID, id int64) (int, error) {
	return s.count(ctx, `SELECT count(*) FROM assets WHERE organization_id = $1 AND client_id = $2`, orgID, id)
}

// Warehouses

const warehouseColumns = `id, organization_id, name, code, created_at`

func scanWarehouse(row pgx.Row) (core.Warehouse, error) {
	var w core.Warehouse
	err := row.Scan(&w.ID, &w.OrganizationID, &w.Name, &w.Code, &w.CreatedAt)
	return w, err
}

func (s *Store) ListWarehouses(ctx context.Context, orgID int64) ([]core.Warehouse, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+warehouseColumns+` FROM warehouses WHERE organization_id = $1 ORDER BY name, id`,
		orgID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.Warehouse, error) { return scanWarehouse(r) })
}

func (s *Store) GetWarehouse(ctx context.Context, orgID, id int64) (core.Warehouse, error) {
	w, err := scanWarehouse(s.pool.QueryRow(ctx,
		`SELECT `+warehouseColumns+` FROM warehouses WHERE organization_id = $1 AND id = $2`,
		orgID, id,
	))
	return w, translate(err)
}

func (s *Store) CreateWarehouse(ctx context.Context, w core.Warehouse) (core.Warehouse, error) {
	out, err := scanWarehouse(s.pool.QueryRow(ctx,
		`INSERT INTO warehouses (organization_id, name, code) VALUES ($1, $2, $3) RETURNING `+warehouseColumns,
		w.OrganizationID, w.Name, w.Code,
	))
	return out, translate(err)
}

func (s *Store) UpdateWarehouse(ctx context.Context, w core.Warehouse) (core.Warehouse, error) {
	out, err := scanWarehouse(s.pool.QueryRow(ctx,
		`UPDATE warehouses SET name = $3, code = $4
		 WHERE organization_id = $1 AND id = $2
		 RETURNING `+warehouseColumns,
		w.OrganizationID, w.ID, w.Name, w.Code,
	))
	return out, translate(err)
}

func (s *Store) DeleteWarehouse(ctx context.Context, orgID, id int64) error {
	return one(s.pool.Exec(ctx, `DELETE FROM warehouses WHERE organization_id = $1 AND id = $2`, orgID, id))
}

func (s *Store) CountWarehouseDependents(ctx context.Context, orgID, id int64) (zones, assets int, err error) {
	err = s.pool.QueryRow(ctx,
		`SELECT
		   (SELECT count(*) FROM zones z JOIN warehouses w ON w.id = z.warehouse_id
		     WHERE w.organization_id = $1 AND z.warehouse_id = $2),
		   (SELECT count(*) FROM assets WHERE organization_id = $1 AND warehouse_id = $2)`,
		orgID, id,
	).Scan(&zones, &assets)
	return zones, assets, err
}

// Zones

const zoneColumns = `z.id, z.warehouse_id, z.name, z.code, z.created_at`

func scanZone(row pgx.Row) (core.Zone, error) {
	var z core.Zone
	err := row.Scan(&z.ID, &z.WarehouseID, &z.Name, &z.Code, &z.CreatedAt)
	return z, err
}

func (s *Store) ListZones(ctx context.Context, orgID int64) ([]core.Zone, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+zoneColumns+`
		 FROM zones z JOIN warehouses w ON w.id = z.warehouse_id
		 WHERE w.organization_id = $1
		 ORDER BY z.warehouse_id, z.name, z.id`,
		orgID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.Zone, error) { return scanZone(r) })
}

func (s *Store) GetZone(ctx context.Context, orgID, id int64) (core.Zone, error) {
	z, err := scanZone(s.pool.QueryRow(ctx,
		`SELECT `+zoneColumns+`
		 FROM zones z JOIN warehouses w ON w.id = z.warehouse_id
		 WHERE w.organization_id = $1 AND z.id = $2`,
		orgID, id,
	))
	return z, translate(err)
}

// CreateZone inserts a zone. The caller has already checked the warehouse
// belongs to the organization.
func (s *Store) CreateZone(ctx context.Context, z core.Zone) (core.Zone, error) {
	out, err := scanZone(s.pool.QueryRow(ctx,
		`INSERT INTO zones AS z (warehouse_id, name, code) VALUES ($1, $2, $3) RETURNING `+zoneColumns,
		z.WarehouseID, z.Name, z.Code,
	))
	return out, translate(err)
}

func (s *Store) UpdateZone(ctx context.Context, orgID int64, z core.Zone) (core.Zone, error) {
	out, err := scanZone(s.pool.QueryRow(ctx,
		`UPDATE zones AS z SET warehouse_id = $3, name = $4, code = $5
		 FROM warehouses w
		 WHERE w.id = z.warehouse_id AND w.organization_id = $1 AND z.id = $2
		 RETURNING `+zoneColumns,
		orgID, z.ID, z.WarehouseID, z.Name, z.Code,
	))
	return out, translate(err)
}

func (s *Store) DeleteZone(ctx context.Context, orgID, id int64) error {
	return one(s.pool.Exec(ctx,
		`DELETE FROM zones z USING warehouses w
		 WHERE w.id = z.warehouse_id AND w.organization_id = $1 AND z.id = $2`,
		orgID, id,
	))
}

func (s *Store) CountAssetsByZone(ctx context.Context, orgID, id int64) (int, error) {
	return s.count(ctx, `SELECT count(*) FROM assets WHERE organization_id = $1 AND zone_id = $2`, orgID, id)
}

func (s *Store) count(ctx context.Context, sql string, args ...any) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, sql, args...).Scan(&n)
	return n, err
}
