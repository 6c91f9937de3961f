// Package core provides the business logic for asset tracking.
// This package has no transport or storage dependencies and can be used by any frontend.
package core

import (
	"strings"
	"time"
)

// Status is the lifecycle state of an asset.
type Status string

const (
	StatusInUse   Status = "in_use"
	StatusIdle    Status = "idle"
	StatusDamaged Status = "damaged"
	StatusLost    Status = "lost"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusInUse, StatusIdle, StatusDamaged, StatusLost}

// statusLabels are the human labels used by the change summarizer.
var statusLabels = map[Status]string{
	StatusInUse:   "In use",
	StatusIdle:    "Idle",
	StatusDamaged: "Damaged",
	StatusLost:    "Lost",
}

// ParseStatus trims and lowercases s and reports whether it names a valid status.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Statuses {
		if st == v {
			return st, true
		}
	}
	return st, false
}

// Label returns the display label for the status.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// NotesMaxLength is the maximum number of characters allowed in asset notes.
const NotesMaxLength = 2000

// Organization is the tenant boundary.
type Organization struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AssetType describes a kind of asset. Serialized types track single units.
type AssetType struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organizationId"`
	Name           string    `json:"name"`
	Code           *string   `json:"code"`
	Serialized     bool      `json:"serialized"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Client is an external owner of assets.
type Client struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organizationId"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Warehouse is a physical site.
type Warehouse struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organizationId"`
	Name           string    `json:"name"`
	Code           *string   `json:"code"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Zone is an area inside exactly one warehouse.
type Zone struct {
	ID          int64     `json:"id"`
	WarehouseID int64     `json:"warehouseId"`
	Name        string    `json:"name"`
	Code        *string   `json:"code"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Asset is a tracked physical item.
type Asset struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organizationId"`
	LabelID        string    `json:"labelId"`
	AssetTypeID    int64     `json:"assetTypeId"`
	Quantity       int       `json:"quantity"`
	ClientID       *int64    `json:"clientId"`
	WarehouseID    *int64    `json:"warehouseId"`
	ZoneID         *int64    `json:"zoneId"`
	Status         Status    `json:"status"`
	Notes          *string   `json:"notes"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// RefSummary is a compact view of a referenced entity.
type RefSummary struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Code *string `json:"code,omitempty"`
}

// AssetDetail is an asset with its relations resolved for display.
type AssetDetail struct {
	Asset
	AssetType *RefSummary `json:"assetType"`
	Client    *RefSummary `json:"client"`
	Warehouse *RefSummary `json:"warehouse"`
	Zone      *RefSummary `json:"zone"`
}

// Snapshot is the audited state of an asset at one point in time.
// Every field is always present so two snapshots can be compared field by field.
type Snapshot struct {
	Status      Status  `json:"status"`
	Quantity    int     `json:"quantity"`
	WarehouseID *int64  `json:"warehouse_id"`
	ZoneID      *int64  `json:"zone_id"`
	ClientID    *int64  `json:"client_id"`
	Notes       *string `json:"notes"`
}

// SnapshotOf captures the state fields of a.
func SnapshotOf(a Asset) Snapshot {
	return Snapshot{
		Status:      a.Status,
		Quantity:    a.Quantity,
		WarehouseID: a.WarehouseID,
		ZoneID:      a.ZoneID,
		ClientID:    a.ClientID,
		Notes:       a.Notes,
	}
}

// AssetHistory is one append-only audit row.
type AssetHistory struct {
	ID        int64     `json:"id"`
	AssetID   int64     `json:"assetId"`
	UserID    int64     `json:"userId"`
	ChangedAt time.Time `json:"changedAt"`
	Snapshot  Snapshot  `json:"snapshot"`
}

// HistoryEntry is a history row as read back for display.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	ChangedAt time.Time `json:"changedAt"`
	User      string    `json:"user"`
	Snapshot  Snapshot  `json:"snapshot"`
	Summary   []string  `json:"summary"`
}

// AssetFilter narrows asset listings. Nil pointers mean "no filter".
type AssetFilter struct {
	Search      string
	AssetTypeID *int64
	Status      *Status
	// Ownership selects company-owned or client-owned assets when ClientID is nil.
	Ownership   Ownership
	ClientID    *int64
	WarehouseID *int64
	ZoneID      *int64
	Page        int
	Limit       int
}

// Ownership filters assets by whether a client owns them.
type Ownership int

const (
	OwnershipAny Ownership = iota
	OwnershipCompany
	OwnershipClient
)

// AssetPage is one page of an asset listing.
type AssetPage struct {
	Items []AssetDetail `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}
