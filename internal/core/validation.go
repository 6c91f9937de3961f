package core

// validation.go checks a typed asset before it is created or updated.
//
// Unlike the import path there are no names to resolve: the caller supplies
// ids, and each one is looked up directly in the organization. Checks run in
// a fixed order and the first failure is returned.

import (
	"context"
	"errors"
	"strings"
)

// Single-record validation messages.
const (
	msgLabelIDRequired      = "Label ID is required."
	msgLabelIDInUse         = "This label ID is already in use."
	msgInvalidAssetType     = "Invalid asset type."
	msgInvalidClient        = "Invalid client."
	msgInvalidWarehouseZone = "Invalid warehouse or zone."
	msgWarehouseForZone     = "Warehouse is required when zone is set."
	msgZoneNotInWarehouse   = "Zone does not belong to the selected warehouse."
	msgInvalidStatus        = "Invalid status."
	msgNotesTooLongSingle   = "Notes are too long."
	msgInvalidQuantity      = "Quantity must be at least 1."
	msgSerializedQuantity   = "Serialized asset types must have a quantity of 1."
)

// AssetInput is the body of a single create or update.
type AssetInput struct {
	LabelID     string  `json:"labelId"`
	AssetTypeID int64   `json:"assetTypeId"`
	Quantity    *int    `json:"quantity,omitempty"`
	ClientID    *int64  `json:"clientId"`
	WarehouseID *int64  `json:"warehouseId"`
	ZoneID      *int64  `json:"zoneId"`
	Status      string  `json:"status"`
	Notes       *string `json:"notes"`
}

// ValidateAsset checks in against the organization's live data. On update,
// excludeID is the asset being edited so its own label does not count as a
// duplicate; pass 0 on create.
//
// It returns nil or a *Error: 409 for a label in use, 400 for everything else.
func (s *Service) ValidateAsset(ctx context.Context, orgID int64, in AssetInput, excludeID int64) error {
	label := NormalizeLabel(in.LabelID)
	if label == "" {
		return invalid(msgLabelIDRequired)
	}

	exists, err := s.repos.Assets.LabelExists(ctx, orgID, label, excludeID)
	if err != nil {
		return persistence("Failed to validate asset.", err)
	}
	if exists {
		return &Error{Kind: KindConflict, Message: msgLabelIDInUse, Err: ErrDuplicateLabel}
	}

	if in.AssetTypeID <= 0 {
		return invalid(msgInvalidAssetType)
	}
	assetType, err := s.repos.AssetTypes.GetAssetType(ctx, orgID, in.AssetTypeID)
	if err != nil {
		return lookupFailure(err, msgInvalidAssetType)
	}

	if in.ClientID != nil {
		if _, err := s.repos.Clients.GetClient(ctx, orgID, *in.ClientID); err != nil {
			return lookupFailure(err, msgInvalidClient)
		}
	}

	if in.WarehouseID != nil {
		if _, err := s.repos.Warehouses.GetWarehouse(ctx, orgID, *in.WarehouseID); err != nil {
			return lookupFailure(err, msgInvalidWarehouseZone)
		}
	}

	if in.ZoneID != nil {
		if ZoneNeedsWarehouse(true, in.WarehouseID != nil) {
			return invalid(msgWarehouseForZone)
		}
		zone, err := s.repos.Zones.GetZone(ctx, orgID, *in.ZoneID)
		if err != nil {
			return lookupFailure(err, msgZoneNotInWarehouse)
		}
		if zone.WarehouseID != *in.WarehouseID {
			return invalid(msgZoneNotInWarehouse)
		}
	}

	if _, ok := ParseStatus(in.Status); !ok {
		return invalid(msgInvalidStatus)
	}

	if in.Notes != nil && !NotesWithinLimit(strings.TrimSpace(*in.Notes)) {
		return invalid(msgNotesTooLongSingle)
	}

	if in.Quantity != nil && !QuantityValid(*in.Quantity, assetType.Serialized) {
		if *in.Quantity < 1 {
			return invalid(msgInvalidQuantity)
		}
		return invalid(msgSerializedQuantity)
	}
	return nil
}

// lookupFailure turns a failed reference lookup into a 400 with msg, or a
// persistence failure when storage itself failed.
func lookupFailure(err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return invalid(msg)
	}
	return persistence("Failed to validate asset.", err)
}
