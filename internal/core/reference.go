package core

import (
	"context"
	"errors"
	"strings"
)

// Reference data messages.
const (
	msgNameRequired        = "Name is required"
	msgWarehouseRequired   = "Warehouse is required"
	msgWarehouseNotFound   = "Warehouse not found"
	msgTypeInUse           = "Cannot delete: assets use this type"
	msgClientInUse         = "Cannot delete: assets are assigned to this client"
	msgWarehouseInUse      = "Cannot delete: this warehouse has zones or assets"
	msgZoneInUse           = "Cannot delete: assets use this zone"
	msgAdminRequired       = "Admin access required"
	msgReferenceLoadFailed = "Failed to load reference data."
	msgReferenceSaveFailed = "Failed to save reference data."
)

// AssetTypeInput is the body of an asset type create or update.
type AssetTypeInput struct {
	Name       string  `json:"name"`
	Code       *string `json:"code"`
	Serialized bool    `json:"serialized"`
}

// ClientInput is the body of a client create or update.
type ClientInput struct {
	Name string `json:"name"`
}

// WarehouseInput is the body of a warehouse create or update.
type WarehouseInput struct {
	Name string  `json:"name"`
	Code *string `json:"code"`
}

// ZoneInput is the body of a zone create or update.
type ZoneInput struct {
	WarehouseID int64   `json:"warehouseId"`
	Name        string  `json:"name"`
	Code        *string `json:"code"`
}

// normalizeCode trims a code and maps blank to nil.
func normalizeCode(code *string) *string {
	return NormalizeNotes(code)
}

func requireName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", invalid(msgNameRequired)
	}
	return n, nil
}

func requireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return &Error{Kind: KindForbidden, Message: msgAdminRequired}
	}
	return nil
}

func inUse(msg string, count int) error {
	return &Error{Kind: KindConflict, Message: msg, Err: ErrHasDependents, Dependents: count}
}

// Asset types

func (s *Service) ListAssetTypes(ctx context.Context, orgID int64) ([]AssetType, error) {
	out, err := s.repos.AssetTypes.ListAssetTypes(ctx, orgID)
	if err != nil {
		return nil, persistence(msgReferenceLoadFailed, err)
	}
	return nonNil(out), nil
}

func (s *Service) GetAssetType(ctx context.Context, orgID, id int64) (AssetType, error) {
	t, err := s.repos.AssetTypes.GetAssetType(ctx, orgID, id)
	if err != nil {
		return AssetType{}, notFoundOr(err, msgReferenceLoadFailed)
	}
	return t, nil
}

func (s *Service) CreateAssetType(ctx context.Context, orgID int64, in AssetTypeInput) (AssetType, error) {
	name, err := requireName(in.Name)
	if err != nil {
		return AssetType{}, err
	}
	t, err := s.repos.AssetTypes.CreateAssetType(ctx, AssetType{
		OrganizationID: orgID,
		Name:           name,
		Code:           normalizeCode(in.Code),
		Serialized:     in.Serialized,
	})
	if err != nil {
		return AssetType{}, persistence(msgReferenceSaveFailed, err)
	}
	return t, nil
}

// UpdateAssetType renames an asset type or changes its code. The serialized
// flag is fixed at creation.
func (s *Service) UpdateAssetType(ctx context.Context, orgID, id int64, in AssetTypeInput) (AssetType, error) {
	t, err := s.GetAssetType(ctx, orgID, id)
	if err != nil {
		return AssetType{}, err
	}
	if t.Name, err = requireName(in.Name); err != nil {
		return AssetType{}, err
	}
	t.Code = normalizeCode(in.Code)
	out, err := s.repos.AssetTypes.UpdateAssetType(ctx, t)
	if err != nil {
		return AssetType{}, notFoundOr(err, msgReferenceSaveFailed)
	}
	return out, nil
}

func (s *Service) DeleteAssetType(ctx context.Context, actor Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.GetAssetType(ctx, actor.OrganizationID, id); err != nil {
		return err
	}
	n, err := s.repos.AssetTypes.CountAssetsByType(ctx, actor.OrganizationID, id)
	if err != nil {
		return persistence(msgReferenceSaveFailed, err)
	}
	if n > 0 {
		return inUse(msgTypeInUse, n)
	}
	return s.deleteReference(s.repos.AssetTypes.DeleteAssetType(ctx, actor.OrganizationID, id), msgTypeInUse)
}

// Clients

func (s *Service) ListClients(ctx context.Context, orgID int64) ([]Client, error) {
	out, err := s.repos.Clients.ListClients(ctx, orgID)
	if err != nil {
		return nil, persistence(msgReferenceLoadFailed, err)
	}
	return nonNil(out), nil
}

func (s *Service) GetClient(ctx context.Context, orgID, id int64) (Client, error) {
	c, err := s.repos.Clients.GetClient(ctx, orgID, id)
	if err != nil {
		return Client{}, notFoundOr(err, msgReferenceLoadFailed)
	}
	return c, nil
}

func (s *Service) CreateClient(ctx context.Context, orgID int64, in ClientInput) (Client, error) {
	name, err := requireName(in.Name)
	if err != nil {
		return Client{}, err
	}
	c, err := s.repos.Clients.CreateClient(ctx, Client{OrganizationID: orgID, Name: name})
	if err != nil {
		return Client{}, persistence(msgReferenceSaveFailed, err)
	}
	return c, nil
}

func (s *Service) UpdateClient(ctx context.Context, orgID, id int64, in ClientInput) (Client, error) {
	c, err := s.GetClient(ctx, orgID, id)
	if err != nil {
		return Client{}, err
	}
	if c.Name, err = requireName(in.Name); err != nil {
		return Client{}, err
	}
	out, err := s.repos.Clients.UpdateClient(ctx, c)
	if err != nil {
		return Client{}, notFoundOr(err, msgReferenceSaveFailed)
	}
	return out, nil
}

func (s *Service) DeleteClient(ctx context.Context, actor Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.GetClient(ctx, actor.OrganizationID, id); err != nil {
		return err
	}
	n, err := s.repos.Clients.CountAssetsByClient(ctx, actor.OrganizationID, id)
	if err != nil {
		return persistence(msgReferenceSaveFailed, err)
	}
	if n > 0 {
		return inUse(msgClientInUse, n)
	}
	return s.deleteReference(s.repos.Clients.DeleteClient(ctx, actor.OrganizationID, id), msgClientInUse)
}

// Warehouses

func (s *Service) ListWarehouses(ctx context.Context, orgID int64) ([]Warehouse, error) {
	out, err := s.repos.Warehouses.ListWarehouses(ctx, orgID)
	if err != nil {
		return nil, persistence(msgReferenceLoadFailed, err)
	}
	return nonNil(out), nil
}

func (s *Service) GetWarehouse(ctx context.Context, orgID, id int64) (Warehouse, error) {
	w, err := s.repos.Warehouses.GetWarehouse(ctx, orgID, id)
	if err != nil {
		return Warehouse{}, notFoundOr(err, msgReferenceLoadFailed)
	}
	return w, nil
}

func (s *Service) CreateWarehouse(ctx context.Context, orgID int64, in WarehouseInput) (Warehouse, error) {
	name, err := requireName(in.Name)
	if err != nil {
		return Warehouse{}, err
	}
	w, err := s.repos.Warehouses.CreateWarehouse(ctx, Warehouse{
		OrganizationID: orgID,
		Name:           name,
		Code:           normalizeCode(in.Code),
	})
	if err != nil {
		return Warehouse{}, persistence(msgReferenceSaveFailed, err)
	}
	return w, nil
}

func (s *Service) UpdateWarehouse(ctx context.Context, orgID, id int64, in WarehouseInput) (Warehouse, error) {
	w, err := s.GetWarehouse(ctx, orgID, id)
	if err != nil {
		return Warehouse{}, err
	}
	if w.Name, err = requireName(in.Name); err != nil {
		return Warehouse{}, err
	}
	w.Code = normalizeCode(in.Code)
	out, err := s.repos.Warehouses.UpdateWarehouse(ctx, w)
	if err != nil {
		return Warehouse{}, notFoundOr(err, msgReferenceSaveFailed)
	}
	return out, nil
}

func (s *Service) DeleteWarehouse(ctx context.Context, actor Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.GetWarehouse(ctx, actor.OrganizationID, id); err != nil {
		return err
	}
	zones, assets, err := s.repos.Warehouses.CountWarehouseDependents(ctx, actor.OrganizationID, id)
	if err != nil {
		return persistence(msgReferenceSaveFailed, err)
	}
	if zones+assets > 0 {
		return inUse(msgWarehouseInUse, zones+assets)
	}
	return s.deleteReference(s.repos.Warehouses.DeleteWarehouse(ctx, actor.OrganizationID, id), msgWarehouseInUse)
}

// Zones

func (s *Service) ListZones(ctx context.Context, orgID int64) ([]Zone, error) {
	out, err := s.repos.Zones.ListZones(ctx, orgID)
	if err != nil {
		return nil, persistence(msgReferenceLoadFailed, err)
	}
	return nonNil(out), nil
}

func (s *Service) GetZone(ctx context.Context, orgID, id int64) (Zone, error) {
	z, err := s.repos.Zones.GetZone(ctx, orgID, id)
	if err != nil {
		return Zone{}, notFoundOr(err, msgReferenceLoadFailed)
	}
	return z, nil
}

// zoneFields checks a zone body and confirms its warehouse is in orgID.
func (s *Service) zoneFields(ctx context.Context, orgID int64, in ZoneInput) (string, error) {
	if in.WarehouseID < 1 {
		return "", invalid(msgWarehouseRequired)
	}
	name, err := requireName(in.Name)
	if err != nil {
		return "", err
	}
	if _, err := s.repos.Warehouses.GetWarehouse(ctx, orgID, in.WarehouseID); err != nil {
		return "", lookupFailure(err, msgWarehouseNotFound)
	}
	return name, nil
}

func (s *Service) CreateZone(ctx context.Context, orgID int64, in ZoneInput) (Zone, error) {
	name, err := s.zoneFields(ctx, orgID, in)
	if err != nil {
		return Zone{}, err
	}
	z, err := s.repos.Zones.CreateZone(ctx, Zone{
		WarehouseID: in.WarehouseID,
		Name:        name,
		Code:        normalizeCode(in.Code),
	})
	if err != nil {
		return Zone{}, persistence(msgReferenceSaveFailed, err)
	}
	return z, nil
}

func (s *Service) UpdateZone(ctx context.Context, orgID, id int64, in ZoneInput) (Zone, error) {
	z, err := s.GetZone(ctx, orgID, id)
	if err != nil {
		return Zone{}, err
	}
	name, err := s.zoneFields(ctx, orgID, in)
	if err != nil {
		return Zone{}, err
	}
	z.WarehouseID, z.Name, z.Code = in.WarehouseID, name, normalizeCode(in.Code)
	out, err := s.repos.Zones.UpdateZone(ctx, orgID, z)
	if err != nil {
		return Zone{}, notFoundOr(err, msgReferenceSaveFailed)
	}
	return out, nil
}

func (s *Service) DeleteZone(ctx context.Context, actor Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.GetZone(ctx, actor.OrganizationID, id); err != nil {
		return err
	}
	n, err := s.repos.Zones.CountAssetsByZone(ctx, actor.OrganizationID, id)
	if err != nil {
		return persistence(msgReferenceSaveFailed, err)
	}
	if n > 0 {
		return inUse(msgZoneInUse, n)
	}
	return s.deleteReference(s.repos.Zones.DeleteZone(ctx, actor.OrganizationID, id), msgZoneInUse)
}

// deleteReference maps the result of a reference delete. A dependent added
// after the count check surfaces as ErrHasDependents from storage.
func (s *Service) deleteReference(err error, inUseMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrHasDependents) {
		return inUse(inUseMsg, 0)
	}
	return notFoundOr(err, msgReferenceSaveFailed)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
