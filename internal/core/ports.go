package core

import "context"

// ports.go declares the storage ports the services depend on, one per entity kind.
//
// Every read is scoped to an organization. Implementations return ErrNotFound when
// an id does not exist or belongs to another organization; callers cannot tell the
// two apart.

// AssetTypeRepository reads and writes asset types.
type AssetTypeRepository interface {
	ListAssetTypes(ctx context.Context, orgID int64) ([]AssetType, error)
	GetAssetType(ctx context.Context, orgID, id int64) (AssetType, error)
	CreateAssetType(ctx context.Context, t AssetType) (AssetType, error)
	UpdateAssetType(ctx context.Context, t AssetType) (AssetType, error)
	DeleteAssetType(ctx context.Context, orgID, id int64) error
	CountAssetsByType(ctx context.Context, orgID, id int64) (int, error)
}

// ClientRepository reads and writes clients.
type ClientRepository interface {
	ListClients(ctx context.Context, orgID int64) ([]Client, error)
	GetClient(ctx context.Context, orgID, id int64) (Client, error)
	CreateClient(ctx context.Context, c Client) (Client, error)
	UpdateClient(ctx context.Context, c Client) (Client, error)
	DeleteClient(ctx context.Context, orgID, id int64) error
	CountAssetsByClient(ctx context.Context, orgID, id int64) (int, error)
}

// WarehouseRepository reads and writes warehouses.
type WarehouseRepository interface {
	ListWarehouses(ctx context.Context, orgID int64) ([]Warehouse, error)
	GetWarehouse(ctx context.Context, orgID, id int64) (Warehouse, error)
	CreateWarehouse(ctx context.Context, w Warehouse) (Warehouse, error)
	UpdateWarehouse(ctx context.Context, w Warehouse) (Warehouse, error)
	DeleteWarehouse(ctx context.Context, orgID, id int64) error
	// CountWarehouseDependents returns the number of zones and assets under the warehouse.
	CountWarehouseDependents(ctx context.Context, orgID, id int64) (zones, assets int, err error)
}

// ZoneRepository reads and writes zones. Zones belong to an organization through their warehouse.
type ZoneRepository interface {
	ListZones(ctx context.Context, orgID int64) ([]Zone, error)
	GetZone(ctx context.Context, orgID, id int64) (Zone, error)
	CreateZone(ctx context.Context, z Zone) (Zone, error)
	UpdateZone(ctx context.Context, orgID int64, z Zone) (Zone, error)
	DeleteZone(ctx context.Context, orgID, id int64) error
	CountAssetsByZone(ctx context.Context, orgID, id int64) (int, error)
}

// AssetRepository reads assets and deletes them. Asset writes that must be
// audited go through Writer inside a transaction.
type AssetRepository interface {
	ListLabelIDs(ctx context.Context, orgID int64) ([]string, error)
	// LabelExists reports whether labelID is used in the organization by any asset other than excludeID.
	// excludeID 0 excludes nothing.
	LabelExists(ctx context.Context, orgID int64, labelID string, excludeID int64) (bool, error)
	GetAsset(ctx context.Context, orgID, id int64) (Asset, error)
	GetAssetDetail(ctx context.Context, orgID, id int64) (AssetDetail, error)
	GetAssetsByIDs(ctx context.Context, orgID int64, ids []int64) ([]Asset, error)
	ListAssets(ctx context.Context, orgID int64, filter AssetFilter) (AssetPage, error)
	DeleteAsset(ctx context.Context, orgID, id int64) error
}

// HistoryRepository reads the audit trail.
type HistoryRepository interface {
	// ListHistory returns at most limit entries for the asset, newest first.
	ListHistory(ctx context.Context, assetID int64, limit int) ([]HistoryEntry, error)
	CountHistory(ctx context.Context, assetID int64) (int, error)
}

// Writer is the set of writes available inside a transaction.
type Writer interface {
	CreateAsset(ctx context.Context, a Asset) (Asset, error)
	// CreateAssets inserts a batch and returns the number of rows written.
	CreateAssets(ctx context.Context, assets []Asset) (int, error)
	UpdateAsset(ctx context.Context, a Asset) (Asset, error)
	AppendHistory(ctx context.Context, h AssetHistory) error
}

// Transactor runs fn inside one atomic storage transaction. If fn returns an
// error, nothing fn wrote is kept.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, w Writer) error) error
}

// Repositories bundles every port the services need.
type Repositories struct {
	AssetTypes AssetTypeRepository
	Clients    ClientRepository
	Warehouses WarehouseRepository
	Zones      ZoneRepository
	Assets     AssetRepository
	History    HistoryRepository
	Tx         Transactor
}
