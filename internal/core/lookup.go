package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// uniqueIndex is a name→id map that refuses to guess.
//
// The first entry for a key is stored. A second entry for the same key, even
// one carrying the same id, removes it and tombstones the key, so every later add and get for
// that key misses for the life of the index.
type uniqueIndex struct {
	ids  map[string]int64
	dead map[string]struct{}
}

func newUniqueIndex() *uniqueIndex {
	return &uniqueIndex{
		ids:  make(map[string]int64),
		dead: make(map[string]struct{}),
	}
}

// add inserts key→id if key is unused, or kills key if it is already present.
func (u *uniqueIndex) add(key string, id int64) {
	if key == "" {
		return
	}
	if _, ok := u.dead[key]; ok {
		return
	}
	if _, ok := u.ids[key]; ok {
		delete(u.ids, key)
		u.dead[key] = struct{}{}
		return
	}
	u.ids[key] = id
}

func (u *uniqueIndex) get(key string) (int64, bool) {
	id, ok := u.ids[key]
	return id, ok
}

func (u *uniqueIndex) len() int { return len(u.ids) }

// lookupKey is the case-insensitive form used for every reference index.
func lookupKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func zoneKey(warehouseID int64, nameOrCode string) string {
	k := lookupKey(nameOrCode)
	if k == "" {
		return ""
	}
	return strconv.FormatInt(warehouseID, 10) + ":" + k
}

// Lookups holds the reference indices for one import run. They are built
// from current storage for every run and never shared between runs.
type Lookups struct {
	assetTypesByName *uniqueIndex
	assetTypesByCode *uniqueIndex
	serializedByID   map[int64]bool
	clientsByName    *uniqueIndex
	warehousesByName *uniqueIndex
	warehousesByCode *uniqueIndex
	zones            *uniqueIndex
	existingLabels   map[string]struct{}
}

// BuildLookups loads the organization's reference data and indexes it.
func BuildLookups(ctx context.Context, repos Repositories, orgID int64) (*Lookups, error) {
	types, err := repos.AssetTypes.ListAssetTypes(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list asset types: %w", err)
	}
	clients, err := repos.Clients.ListClients(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	warehouses, err := repos.Warehouses.ListWarehouses(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	zones, err := repos.Zones.ListZones(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	labels, err := repos.Assets.ListLabelIDs(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list label ids: %w", err)
	}
	return NewLookups(types, clients, warehouses, zones, labels), nil
}

// NewLookups indexes already-loaded reference data.
func NewLookups(types []AssetType, clients []Client, warehouses []Warehouse, zones []Zone, labels []string) *Lookups {
	l := &Lookups{
		assetTypesByName: newUniqueIndex(),
		assetTypesByCode: newUniqueIndex(),
		serializedByID:   make(map[int64]bool, len(types)),
		clientsByName:    newUniqueIndex(),
		warehousesByName: newUniqueIndex(),
		warehousesByCode: newUniqueIndex(),
		zones:            newUniqueIndex(),
		existingLabels:   make(map[string]struct{}, len(labels)),
	}

	for _, t := range types {
		l.assetTypesByName.add(lookupKey(t.Name), t.ID)
		if t.Code != nil {
			l.assetTypesByCode.add(lookupKey(*t.Code), t.ID)
		}
		l.serializedByID[t.ID] = t.Serialized
	}
	for _, c := range clients {
		l.clientsByName.add(lookupKey(c.Name), c.ID)
	}
	for _, w := range warehouses {
		l.warehousesByName.add(lookupKey(w.Name), w.ID)
		if w.Code != nil {
			l.warehousesByCode.add(lookupKey(*w.Code), w.ID)
		}
	}
	for _, z := range zones {
		l.zones.add(zoneKey(z.WarehouseID, z.Name), z.ID)
		if z.Code != nil {
			l.zones.add(zoneKey(z.WarehouseID, *z.Code), z.ID)
		}
	}
	for _, label := range labels {
		l.existingLabels[strings.TrimSpace(label)] = struct{}{}
	}
	return l
}

// resolveNameOrCode returns an id when exactly one index hits, or when both
// hit and agree.
func resolveNameOrCode(byName, byCode *uniqueIndex, value string) (int64, bool) {
	key := lookupKey(value)
	if key == "" {
		return 0, false
	}
	nameID, nameOK := byName.get(key)
	codeID, codeOK := byCode.get(key)
	switch {
	case nameOK && codeOK:
		if nameID != codeID {
			return 0, false
		}
		return nameID, true
	case nameOK:
		return nameID, true
	case codeOK:
		return codeID, true
	}
	return 0, false
}

// ResolveAssetType resolves an asset type by name or code.
func (l *Lookups) ResolveAssetType(value string) (int64, bool) {
	return resolveNameOrCode(l.assetTypesByName, l.assetTypesByCode, value)
}

// ResolveClient resolves a client by name.
func (l *Lookups) ResolveClient(value string) (int64, bool) {
	key := lookupKey(value)
	if key == "" {
		return 0, false
	}
	return l.clientsByName.get(key)
}

// ResolveWarehouse resolves a warehouse by name or code.
func (l *Lookups) ResolveWarehouse(value string) (int64, bool) {
	return resolveNameOrCode(l.warehousesByName, l.warehousesByCode, value)
}

// ResolveZone resolves a zone by name or code within warehouseID.
func (l *Lookups) ResolveZone(warehouseID int64, value string) (int64, bool) {
	key := zoneKey(warehouseID, value)
	if key == "" {
		return 0, false
	}
	return l.zones.get(key)
}

// LabelExists reports whether label is already stored. Matching is exact.
func (l *Lookups) LabelExists(label string) bool {
	_, ok := l.existingLabels[label]
	return ok
}

// IsSerialized reports whether the asset type tracks single units.
func (l *Lookups) IsSerialized(assetTypeID int64) bool {
	return l.serializedByID[assetTypeID]
}
