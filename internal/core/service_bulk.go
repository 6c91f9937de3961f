package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/assettrack/internal/logging"
)

// Bulk update messages.
const (
	msgBulkShape          = "assetIds (array of 1–%d asset IDs) required; optional: warehouseId, zoneId, status, clientId."
	msgBulkIDsNotFound    = "One or more asset IDs not found or not in your organization."
	msgBulkZoneWarehouse  = "Warehouse is required when setting zone."
	msgBulkWarehouse      = "Invalid warehouse."
	msgBulkZone           = "Invalid zone for the selected warehouse."
	msgBulkStatus         = "Invalid status."
	msgBulkClient         = "Invalid client."
	msgBulkNothingToApply = "Provide at least one field to update: warehouseId, zoneId, status, clientId."
)

// companyOwner is the clientId value that clears ownership.
const companyOwner = "company"

// Optional is a JSON field that distinguishes "absent" from "null".
// Set is false when the key was missing; Set with a nil Value means clear.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: &v} }

// Null returns an Optional that clears the field.
func Null[T any]() Optional[T] { return Optional[T]{Set: true} }

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// OwnerChange is the clientId of a bulk update. It accepts a client id
// (number or numeric string), null, or "company"; the last two clear
// ownership.
type OwnerChange struct {
	Set      bool
	ClientID *int64
}

func (o *OwnerChange) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.ClientID = nil

	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		id, err := n.Int64()
		if err != nil {
			return fmt.Errorf("clientId: %w", err)
		}
		o.ClientID = &id
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("clientId must be a number, null or %q", companyOwner)
	}
	s = strings.TrimSpace(s)
	if s == companyOwner {
		return nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("clientId must be a number, null or %q", companyOwner)
	}
	o.ClientID = &id
	return nil
}

// BulkUpdate is one bulk update request: the same sparse change set applied
// to every listed asset.
type BulkUpdate struct {
	AssetIDs    []int64          `json:"assetIds"`
	WarehouseID Optional[int64]  `json:"warehouseId"`
	ZoneID      Optional[int64]  `json:"zoneId"`
	Status      Optional[string] `json:"status"`
	ClientID    OwnerChange      `json:"clientId"`
}

// BulkResult reports how many assets a bulk update changed.
type BulkResult struct {
	Updated int `json:"updated"`
}

// apply returns a with the change set applied. Changing the warehouse
// clears the zone unless a zone is also given.
func (u BulkUpdate) apply(a Asset, status *Status) Asset {
	if u.WarehouseID.Set {
		a.WarehouseID = u.WarehouseID.Value
		if !u.ZoneID.Set {
			a.ZoneID = nil
		}
	}
	if u.ZoneID.Set {
		a.ZoneID = u.ZoneID.Value
	}
	if status != nil {
		a.Status = *status
	}
	if u.ClientID.Set {
		a.ClientID = u.ClientID.ClientID
	}
	return a
}

// BulkUpdateAssets applies u to every asset in u.AssetIDs. Either every
// asset is updated and gets a history row, or nothing changes.
func (s *Service) BulkUpdateAssets(ctx context.Context, actor Actor, u BulkUpdate) (BulkResult, error) {
	orgID := actor.OrganizationID

	ids := dedupeIDs(u.AssetIDs)
	if len(ids) == 0 || len(ids) > s.opts.BulkMaxAssets {
		return BulkResult{}, s.BulkShapeError()
	}

	assets, err := s.repos.Assets.GetAssetsByIDs(ctx, orgID, ids)
	if err != nil {
		return BulkResult{}, persistence("Failed to load assets.", err)
	}
	if len(assets) != len(ids) {
		return BulkResult{}, invalid(msgBulkIDsNotFound)
	}

	if u.ZoneID.Value != nil && u.WarehouseID.Value == nil {
		return BulkResult{}, invalid(msgBulkZoneWarehouse)
	}

	if u.WarehouseID.Value != nil {
		if _, err := s.repos.Warehouses.GetWarehouse(ctx, orgID, *u.WarehouseID.Value); err != nil {
			return BulkResult{}, lookupFailure(err, msgBulkWarehouse)
		}
	}

	if u.ZoneID.Value != nil {
		zone, err := s.repos.Zones.GetZone(ctx, orgID, *u.ZoneID.Value)
		if err != nil {
			return BulkResult{}, lookupFailure(err, msgBulkZone)
		}
		if zone.WarehouseID != *u.WarehouseID.Value {
			return BulkResult{}, invalid(msgBulkZone)
		}
	}

	var status *Status
	if u.Status.Value != nil && strings.TrimSpace(*u.Status.Value) != "" {
		st, ok := ParseStatus(*u.Status.Value)
		if !ok {
			return BulkResult{}, invalid(msgBulkStatus)
		}
		status = &st
	}

	if u.ClientID.ClientID != nil {
		if _, err := s.repos.Clients.GetClient(ctx, orgID, *u.ClientID.ClientID); err != nil {
			return BulkResult{}, lookupFailure(err, msgBulkClient)
		}
	}

	if !u.WarehouseID.Set && !u.ZoneID.Set && status == nil && !u.ClientID.Set {
		return BulkResult{}, invalid(msgBulkNothingToApply)
	}

	now := s.now()
	err = s.repos.Tx.InTx(ctx, func(ctx context.Context, w Writer) error {
		for _, a := range assets {
			next := u.apply(a, status)
			next.UpdatedAt = now
			updated, err := w.UpdateAsset(ctx, next)
			if err != nil {
				return fmt.Errorf("update asset %d: %w", a.ID, err)
			}
			if err := RecordHistory(ctx, w, actor.UserID, updated, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logging.FromContext(ctx).Error("bulk update failed",
			"error", err,
			"code", MapError(err).Code,
			"organization_id", orgID,
			"assets", len(assets),
		)
		return BulkResult{}, persistence("Failed to update assets. Please try again.", err)
	}

	logging.WithFields(ctx, "organization_id", orgID).Info("bulk update applied", "updated", len(assets))
	return BulkResult{Updated: len(assets)}, nil
}

// BulkShapeError is the 400 returned for a bulk update body of the wrong shape.
func (s *Service) BulkShapeError() *Error {
	return invalid(fmt.Sprintf(msgBulkShape, s.opts.BulkMaxAssets))
}

// dedupeIDs drops repeated ids, keeping first-seen order.
func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
