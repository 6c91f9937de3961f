// Package memstore provides an in-memory implementation of the core storage
// ports for tests.
//
// Transactions run against a clone of the state, which replaces the live state
// only when the callback succeeds. Label ids are unique per organization, like
// the database constraint, so commit-time conflicts can be reproduced.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/JonMunkholm/assettrack/internal/core"
)

var (
	_ core.AssetTypeRepository = (*Store)(nil)
	_ core.ClientRepository    = (*Store)(nil)
	_ core.WarehouseRepository = (*Store)(nil)
	_ core.ZoneRepository      = (*Store)(nil)
	_ core.AssetRepository     = (*Store)(nil)
	_ core.HistoryRepository   = (*Store)(nil)
	_ core.Transactor          = (*Store)(nil)
	_ core.Writer              = (*txWriter)(nil)
)

// User is a user row; only what history display needs.
type User struct {
	ID       int64
	Email    string
	FullName string
}

type state struct {
	assetTypes map[int64]core.AssetType
	clients    map[int64]core.Client
	warehouses map[int64]core.Warehouse
	zones      map[int64]core.Zone
	assets     map[int64]core.Asset
	history    []core.AssetHistory
}

func newState() state {
	return state{
		assetTypes: make(map[int64]core.AssetType),
		clients:    make(map[int64]core.Client),
		warehouses: make(map[int64]core.Warehouse),
		zones:      make(map[int64]core.Zone),
		assets:     make(map[int64]core.Asset),
	}
}

func (st state) clone() state {
	c := newState()
	for k, v := range st.assetTypes {
		c.assetTypes[k] = v
	}
	for k, v := range st.clients {
		c.clients[k] = v
	}
	for k, v := range st.warehouses {
		c.warehouses[k] = v
	}
	for k, v := range st.zones {
		c.zones[k] = v
	}
	for k, v := range st.assets {
		c.assets[k] = v
	}
	c.history = slices.Clone(st.history)
	return c
}

// Store is an in-memory storage backend.
type Store struct {
	mu     sync.RWMutex
	state  state
	users  map[int64]User
	nextID int64

	// Transactions counts InTx calls.
	Transactions int
	// FailCommit, when set, is returned by InTx after the callback succeeds,
	// and the transaction is discarded.
	FailCommit error
	// BeforeCommit, when set, runs inside every transaction before the callback.
	BeforeCommit func(w core.Writer)
}

// New returns an empty store.
func New() *Store {
	return &Store{state: newState(), users: make(map[int64]User)}
}

// Repositories bundles the store as every port.
func (s *Store) Repositories() core.Repositories {
	return core.Repositories{
		AssetTypes: s,
		Clients:    s,
		Warehouses: s,
		Zones:      s,
		Assets:     s,
		History:    s,
		Tx:         s,
	}
}

func (s *Store) newID() int64 {
	s.nextID++
	return s.nextID
}

// Seeding helpers. An empty code is stored as nil.

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// AddUser registers a user for history display.
func (s *Store) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// AddAssetType seeds an asset type.
func (s *Store) AddAssetType(orgID int64, name, code string, serialized bool) core.AssetType {
	t, _ := s.CreateAssetType(context.Background(), core.AssetType{
		OrganizationID: orgID, Name: name, Code: optional(code), Serialized: serialized,
	})
	return t
}

// AddClient seeds a client.
func (s *Store) AddClient(orgID int64, name string) core.Client {
	c, _ := s.CreateClient(context.Background(), core.Client{OrganizationID: orgID, Name: name})
	return c
}

// AddWarehouse seeds a warehouse.
func (s *Store) AddWarehouse(orgID int64, name, code string) core.Warehouse {
	w, _ := s.CreateWarehouse(context.Background(), core.Warehouse{
		OrganizationID: orgID, Name: name, Code: optional(code),
	})
	return w
}

// AddZone seeds a zone.
func (s *Store) AddZone(warehouseID int64, name, code string) core.Zone {
	z, _ := s.CreateZone(context.Background(), core.Zone{
		WarehouseID: warehouseID, Name: name, Code: optional(code),
	})
	return z
}

// AddAsset seeds an asset outside any transaction. Quantity 0 becomes 1.
func (s *Store) AddAsset(a core.Asset) core.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Quantity == 0 {
		a.Quantity = 1
	}
	a.ID = s.newID()
	s.state.assets[a.ID] = a
	return a
}

// AddHistory seeds a history row.
func (s *Store) AddHistory(h core.AssetHistory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h.ID = s.newID()
	s.state.history = append(s.state.history, h)
}

// Asset returns a stored asset regardless of organization.
func (s *Store) Asset(id int64) (core.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.assets[id]
	return a, ok
}

// AssetCount returns the number of stored assets.
func (s *Store) AssetCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.assets)
}

// HistoryRows returns the stored history rows for an asset, oldest first.
func (s *Store) HistoryRows(assetID int64) []core.AssetHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.AssetHistory
	for _, h := range s.state.history {
		if h.AssetID == assetID {
			out = append(out, h)
		}
	}
	return out
}

// Asset types

func (s *Store) ListAssetTypes(_ context.Context, orgID int64) ([]core.AssetType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.AssetType
	for _, t := range s.state.assetTypes {
		if t.OrganizationID == orgID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetAssetType(_ context.Context, orgID, id int64) (core.AssetType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.state.assetTypes[id]
	if !ok || t.OrganizationID != orgID {
		return core.AssetType{}, core.ErrNotFound
	}
	return t, nil
}

func (s *Store) CreateAssetType(_ context.Context, t core.AssetType) (core.AssetType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.newID()
	s.state.assetTypes[t.ID] = t
	return t, nil
}

func (s *Store) UpdateAssetType(_ context.Context, t core.AssetType) (core.AssetType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.state.assetTypes[t.ID]
	if !ok || cur.OrganizationID != t.OrganizationID {
		return core.AssetType{}, core.ErrNotFound
	}
	s.state.assetTypes[t.ID] = t
	return t, nil
}

func (s *Store) DeleteAssetType(_ context.Context, orgID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.state.assetTypes[id]
	if !ok || t.OrganizationID != orgID {
		return core.ErrNotFound
	}
	for _, a := range s.state.assets {
		if a.AssetTypeID == id {
			return core.ErrHasDependents
		}
	}
	delete(s.state.assetTypes, id)
	return nil
}

func (s *Store) CountAssetsByType(_ context.Context, orgID, id int64) (int, error) {
	return s.countAssets(orgID, func(a core.Asset) bool { return a.AssetTypeID == id }), nil
}

// Clients

func (s *Store) ListClients(_ context.Context, orgID int64) ([]core.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Client
	for _, c := range s.state.clients {
		if c.OrganizationID == orgID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetClient(_ context.Context, orgID, id int64) (core.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.clients[id]
	if !ok || c.OrganizationID != orgID {
		return core.Client{}, core.ErrNotFound
	}
	return c, nil
}

func (s *Store) CreateClient(_ context.Context, c core.Client) (core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.newID()
	s.state.clients[c.ID] = c
	return c, nil
}

func (s *Store) UpdateClient(_ context.Context, c core.Client) (core.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.state.clients[c.ID]
	if !ok || cur.OrganizationID != c.OrganizationID {
		return core.Client{}, core.ErrNotFound
	}
	s.state.clients[c.ID] = c
	return c, nil
}

func (s *Store) DeleteClient(_ context.Context, orgID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.clients[id]
	if !ok || c.OrganizationID != orgID {
		return core.ErrNotFound
	}
	delete(s.state.clients, id)
	return nil
}

func (s *Store) CountAssetsByClient(_ context.Context, orgID, id int64) (int, error) {
	return s.countAssets(orgID, func(a core.Asset) bool { return a.ClientID != nil && *a.ClientID == id }), nil
}

// Warehouses

func (s *Store) ListWarehouses(_ context.Context, orgID int64) ([]core.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Warehouse
	for _, w := range s.state.warehouses {
		if w.OrganizationID == orgID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetWarehouse(_ context.Context, orgID, id int64) (core.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.state.warehouses[id]
	if !ok || w.OrganizationID != orgID {
		return core.Warehouse{}, core.ErrNotFound
	}
	return w, nil
}

func (s *Store) CreateWarehouse(_ context.Context, w core.Warehouse) (core.Warehouse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.ID = s.newID()
	s.state.warehouses[w.ID] = w
	return w, nil
}

func (s *Store) UpdateWarehouse(_ context.Context, w core.Warehouse) (core.Warehouse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.state.warehouses[w.ID]
	if !ok || cur.OrganizationID != w.OrganizationID {
		return core.Warehouse{}, core.ErrNotFound
	}
	s.state.warehouses[w.ID] = w
	return w, nil
}

func (s *Store) DeleteWarehouse(_ context.Context, orgID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.state.warehouses[id]
	if !ok || w.OrganizationID != orgID {
		return core.ErrNotFound
	}
	delete(s.state.warehouses, id)
	return nil
}

func (s *Store) CountWarehouseDependents(_ context.Context, orgID, id int64) (int, int, error) {
	s.mu.RLock()
	zones := 0
	for _, z := range s.state.zones {
		if z.WarehouseID == id {
			zones++
		}
	}
	s.mu.RUnlock()
	assets := s.countAssets(orgID, func(a core.Asset) bool { return a.WarehouseID != nil && *a.WarehouseID == id })
	return zones, assets, nil
}

// Zones

// zoneInOrg reports whether z hangs off a warehouse of orgID. Caller holds mu.
func (s *Store) zoneInOrg(z core.Zone, orgID int64) bool {
	w, ok := s.state.warehouses[z.WarehouseID]
	return ok && w.OrganizationID == orgID
}

func (s *Store) ListZones(_ context.Context, orgID int64) ([]core.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Zone
	for _, z := range s.state.zones {
		if s.zoneInOrg(z, orgID) {
			out = append(out, z)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetZone(_ context.Context, orgID, id int64) (core.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.state.zones[id]
	if !ok || !s.zoneInOrg(z, orgID) {
		return core.Zone{}, core.ErrNotFound
	}
	return z, nil
}

func (s *Store) CreateZone(_ context.Context, z core.Zone) (core.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z.ID = s.newID()
	s.state.zones[z.ID] = z
	return z, nil
}

func (s *Store) UpdateZone(_ context.Context, orgID int64, z core.Zone) (core.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.state.zones[z.ID]
	if !ok || !s.zoneInOrg(cur, orgID) {
		return core.Zone{}, core.ErrNotFound
	}
	s.state.zones[z.ID] = z
	return z, nil
}

func (s *Store) DeleteZone(_ context.Context, orgID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.state.zones[id]
	if !ok || !s.zoneInOrg(z, orgID) {
		return core.ErrNotFound
	}
	delete(s.state.zones, id)
	return nil
}

func (s *Store) CountAssetsByZone(_ context.Context, orgID, id int64) (int, error) {
	return s.countAssets(orgID, func(a core.Asset) bool { return a.ZoneID != nil && *a.ZoneID == id }), nil
}

// Assets

func (s *Store) countAssets(orgID int64, match func(core.Asset) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.state.assets {
		if a.OrganizationID == orgID && match(a) {
			n++
		}
	}
	return n
}

func (s *Store) ListLabelIDs(_ context.Context, orgID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, a := range s.state.assets {
		if a.OrganizationID == orgID {
			out = append(out, a.LabelID)
		}
	}
	return out, nil
}

func (s *Store) LabelExists(_ context.Context, orgID int64, labelID string, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return labelTaken(s.state, orgID, labelID, excludeID), nil
}

func labelTaken(st state, orgID int64, labelID string, excludeID int64) bool {
	for _, a := range st.assets {
		if a.OrganizationID == orgID && a.LabelID == labelID && a.ID != excludeID {
			return true
		}
	}
	return false
}

func (s *Store) GetAsset(_ context.Context, orgID, id int64) (core.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.assets[id]
	if !ok || a.OrganizationID != orgID {
		return core.Asset{}, core.ErrNotFound
	}
	return a, nil
}

func (s *Store) GetAssetDetail(ctx context.Context, orgID, id int64) (core.AssetDetail, error) {
	a, err := s.GetAsset(ctx, orgID, id)
	if err != nil {
		return core.AssetDetail{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detail(a), nil
}

// detail resolves relations for a. Caller holds mu.
func (s *Store) detail(a core.Asset) core.AssetDetail {
	d := core.AssetDetail{Asset: a}
	if t, ok := s.state.assetTypes[a.AssetTypeID]; ok {
		d.AssetType = &core.RefSummary{ID: t.ID, Name: t.Name, Code: t.Code}
	}
	if a.ClientID != nil {
		if c, ok := s.state.clients[*a.ClientID]; ok {
			d.Client = &core.RefSummary{ID: c.ID, Name: c.Name}
		}
	}
	if a.WarehouseID != nil {
		if w, ok := s.state.warehouses[*a.WarehouseID]; ok {
			d.Warehouse = &core.RefSummary{ID: w.ID, Name: w.Name, Code: w.Code}
		}
	}
	if a.ZoneID != nil {
		if z, ok := s.state.zones[*a.ZoneID]; ok {
			d.Zone = &core.RefSummary{ID: z.ID, Name: z.Name, Code: z.Code}
		}
	}
	return d
}

func (s *Store) GetAssetsByIDs(_ context.Context, orgID int64, ids []int64) ([]core.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Asset
	for _, id := range ids {
		if a, ok := s.state.assets[id]; ok && a.OrganizationID == orgID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ListAssets(_ context.Context, orgID int64, f core.AssetFilter) (core.AssetPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(f.Search)
	var matched []core.Asset
	for _, a := range s.state.assets {
		if a.OrganizationID != orgID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(a.LabelID), search) {
			continue
		}
		if f.AssetTypeID != nil && a.AssetTypeID != *f.AssetTypeID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.ClientID != nil {
			if a.ClientID == nil || *a.ClientID != *f.ClientID {
				continue
			}
		} else if f.Ownership == core.OwnershipCompany && a.ClientID != nil {
			continue
		} else if f.Ownership == core.OwnershipClient && a.ClientID == nil {
			continue
		}
		if f.WarehouseID != nil && (a.WarehouseID == nil || *a.WarehouseID != *f.WarehouseID) {
			continue
		}
		if f.ZoneID != nil && (a.ZoneID == nil || *a.ZoneID != *f.ZoneID) {
			continue
		}
		matched = append(matched, a)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].LabelID < matched[j].LabelID
	})

	page := core.AssetPage{Total: len(matched), Page: f.Page, Limit: f.Limit, Items: []core.AssetDetail{}}
	start := (f.Page - 1) * f.Limit
	if start < 0 || f.Limit <= 0 || start >= len(matched) {
		return page, nil
	}
	end := min(start+f.Limit, len(matched))
	for _, a := range matched[start:end] {
		page.Items = append(page.Items, s.detail(a))
	}
	return page, nil
}

func (s *Store) DeleteAsset(_ context.Context, orgID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.state.assets[id]
	if !ok || a.OrganizationID != orgID {
		return core.ErrNotFound
	}
	for _, h := range s.state.history {
		if h.AssetID == id {
			return core.ErrHasDependents
		}
	}
	delete(s.state.assets, id)
	return nil
}

// History

func (s *Store) ListHistory(_ context.Context, assetID int64, limit int) ([]core.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []core.AssetHistory
	for _, h := range s.state.history {
		if h.AssetID == assetID {
			rows = append(rows, h)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].ChangedAt.Equal(rows[j].ChangedAt) {
			return rows[i].ChangedAt.After(rows[j].ChangedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]core.HistoryEntry, len(rows))
	for i, h := range rows {
		u := s.users[h.UserID]
		name := strings.TrimSpace(u.FullName)
		if name == "" {
			name = u.Email
		}
		out[i] = core.HistoryEntry{ID: h.ID, ChangedAt: h.ChangedAt, User: name, Snapshot: h.Snapshot}
	}
	return out, nil
}

func (s *Store) CountHistory(_ context.Context, assetID int64) (int, error) {
	return len(s.HistoryRows(assetID)), nil
}

// Transactions

// InTx runs fn against a copy of the state and keeps the copy only when fn
// and the commit succeed. Transactions are serialized.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, w core.Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Transactions++
	w := &txWriter{store: s, state: s.state.clone()}
	if s.BeforeCommit != nil {
		s.BeforeCommit(w)
	}
	if err := fn(ctx, w); err != nil {
		return err
	}
	if s.FailCommit != nil {
		return s.FailCommit
	}
	s.state = w.state
	return nil
}

// txWriter writes into a transaction's private state. The store's mutex is
// held by InTx for the writer's whole life.
type txWriter struct {
	store *Store
	state state
}

func (w *txWriter) checkAsset(a core.Asset) error {
	if t, ok := w.state.assetTypes[a.AssetTypeID]; !ok || t.OrganizationID != a.OrganizationID {
		return fmt.Errorf("insert asset %q: violates foreign key constraint on asset_type_id", a.LabelID)
	}
	if labelTaken(w.state, a.OrganizationID, a.LabelID, a.ID) {
		return fmt.Errorf("insert asset %q: %w", a.LabelID, core.ErrDuplicateLabel)
	}
	return nil
}

func (w *txWriter) CreateAsset(_ context.Context, a core.Asset) (core.Asset, error) {
	a.ID = 0
	if err := w.checkAsset(a); err != nil {
		return core.Asset{}, err
	}
	a.ID = w.store.newID()
	w.state.assets[a.ID] = a
	return a, nil
}

func (w *txWriter) CreateAssets(ctx context.Context, assets []core.Asset) (int, error) {
	for i, a := range assets {
		if _, err := w.CreateAsset(ctx, a); err != nil {
			return i, err
		}
	}
	return len(assets), nil
}

func (w *txWriter) UpdateAsset(_ context.Context, a core.Asset) (core.Asset, error) {
	cur, ok := w.state.assets[a.ID]
	if !ok || cur.OrganizationID != a.OrganizationID {
		return core.Asset{}, core.ErrNotFound
	}
	if err := w.checkAsset(a); err != nil {
		return core.Asset{}, err
	}
	a.CreatedAt = cur.CreatedAt
	w.state.assets[a.ID] = a
	return a, nil
}

func (w *txWriter) AppendHistory(_ context.Context, h core.AssetHistory) error {
	if _, ok := w.state.assets[h.AssetID]; !ok {
		return errors.New("insert history: violates foreign key constraint on asset_id")
	}
	h.ID = w.store.newID()
	w.state.history = append(w.state.history, h)
	return nil
}
