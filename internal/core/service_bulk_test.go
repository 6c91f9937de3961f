package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/assettrack/internal/core"
)

func seedAssets(f *fixture, labels ...string) []core.Asset {
	out := make([]core.Asset, len(labels))
	for i, l := range labels {
		out[i] = f.store.AddAsset(core.Asset{
			OrganizationID: orgID,
			LabelID:        l,
			AssetTypeID:    f.pallet.ID,
			Status:         core.StatusIdle,
			WarehouseID:    ptr(f.north.ID),
			ZoneID:         ptr(f.northA1.ID),
			ClientID:       ptr(f.acme.ID),
		})
	}
	return out
}

func ids(assets ...core.Asset) []int64 {
	out := make([]int64, len(assets))
	for i, a := range assets {
		out[i] = a.ID
	}
	return out
}

func TestBulkUpdateAssets_AppliesAndRecordsHistory(t *testing.T) {
	f := newFixture(t, core.Options{})
	assets := seedAssets(f, "X1", "X2", "X3")

	res, err := f.svc.BulkUpdateAssets(context.Background(), member, core.BulkUpdate{
		AssetIDs: append(ids(assets...), assets[0].ID),
		Status:   core.Some("damaged"),
		ClientID: core.OwnerChange{Set: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Updated)
	assert.Equal(t, 1, f.store.Transactions)

	for _, a := range assets {
		got, ok := f.store.Asset(a.ID)
		require.True(t, ok)
		assert.Equal(t, core.StatusDamaged, got.Status)
		assert.Nil(t, got.ClientID, "company owner clears the client")
		assert.Equal(t, a.ZoneID, got.ZoneID, "untouched fields are kept")
		assert.Equal(t, f.clock.Now(), got.UpdatedAt)

		rows := f.store.HistoryRows(a.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, core.SnapshotOf(got), rows[0].Snapshot)
		assert.Equal(t, userID, rows[0].UserID)
	}
}

func TestBulkUpdateAssets_WarehouseClearsZone(t *testing.T) {
	f := newFixture(t, core.Options{})
	assets := seedAssets(f, "X1", "X2")

	_, err := f.svc.BulkUpdateAssets(context.Background(), member, core.BulkUpdate{
		AssetIDs:    ids(assets...),
		WarehouseID: core.Some(f.south.ID),
	})
	require.NoError(t, err)

	got, _ := f.store.Asset(assets[0].ID)
	require.NotNil(t, got.WarehouseID)
	assert.Equal(t, f.south.ID, *got.WarehouseID)
	assert.Nil(t, got.ZoneID)

	_, err = f.svc.BulkUpdateAssets(context.Background(), member, core.BulkUpdate{
		AssetIDs:    ids(assets...),
		WarehouseID: core.Some(f.south.ID),
		ZoneID:      core.Some(f.southB1.ID),
	})
	require.NoError(t, err)
	got, _ = f.store.Asset(assets[1].ID)
	require.NotNil(t, got.ZoneID)
	assert.Equal(t, f.southB1.ID, *got.ZoneID)

	_, err = f.svc.BulkUpdateAssets(context.Background(), member, core.BulkUpdate{
		AssetIDs:    ids(assets...),
		WarehouseID: core.Null[int64](),
	})
	require.NoError(t, err)
	got, _ = f.store.Asset(assets[1].ID)
	assert.Nil(t, got.WarehouseID)
	assert.Nil(t, got.ZoneID)
}

func TestBulkUpdateAssets_Rejections(t *testing.T) {
	shape := fmt.Sprintf("assetIds (array of 1–%d asset IDs) required; optional: warehouseId, zoneId, status, clientId.", 3)

	tests := []struct {
		name  string
		build func(f *fixture, assets []core.Asset) core.BulkUpdate
		msg   string
	}{
		{
			name:  "no ids",
			build: func(f *fixture, _ []core.Asset) core.BulkUpdate { return core.BulkUpdate{Status: core.Some("idle")} },
			msg:   shape,
		},
		{
			name: "too many ids",
			build: func(f *fixture, a []core.Asset) core.BulkUpdate {
				return core.BulkUpdate{AssetIDs: []int64{a[0].ID, a[1].ID, 900, 901}, Status: core.Some("idle")}
			},
			msg: shape,
		},
		{
			name: "unknown id",
			build: func(f *fixture, a []core.Asset) core.BulkUpdate {
				return core.BulkUpdate{AssetIDs: []int64{a[0].ID, 9999}, Status: core.Some("idle")}
			},
			msg: "One or more asset IDs not found or not in your organization.",
		},
		{
			name: "asset of another organization",
			build: func(f *fixture, a []core.Asset) core.BulkUpdate {
				foreign := f.store.AddAsset(core.Asset{OrganizationID: otherOrgID, LabelID: "F", AssetTypeID: f.foreignTy.ID, Status: core.StatusIdle})
				return core.BulkUpdate{AssetIDs: []int64{a[0].ID, foreign.ID}, Status: core.Some("idle")}
			},
			msg: "One or more asset IDs not found or not in your organization.",
		},
		{
			name: "zone without warehouse",
			build: func(f *fixture, a []core.Asset) core.BulkUpdate {
				return core.BulkUpdate{AssetIDs: ids(a...), ZoneID: core.Some(f.northA1.ID)}
			},
			msg: "Warehouse is required when setting zone.",
		},
		{
			name: "foreign warehouse",
			build: func(f *fixture, a []core.Asset) core.BulkUpdate {
				return core.BulkUpdate{AssetIDs: ids(a...), WarehouseID: core.Some(f.foreignWh.ID)}
			},
			msg: "Invalid warehouse.",
		},
		{
			name: "zone of another warehouse",
			build: func(f *fixture, a []core.Asset) core.BulkUpdate {
				return core.BulkUpdate{AssetIDs: ids(a...), WarehouseID: core.Some(f.north.ID), ZoneID: core.Some(f.southB1.ID)}
			},
			msg: "Invalid zone for the selected warehouse.",
		},
		{
			name: "bad status",
			build: func(f *fixture, a []core.Asset) core.BulkUpdate {
				return core.BulkUpdate{AssetIDs: ids(a...), Status: core.Some("retired")}
			},
			msg: "Invalid status.",
		},
		{
			name: "unknown client",
			build: func(f *fixture, a []core.Asset) core.BulkUpdate {
				return core.BulkUpdate{AssetIDs: ids(a...), ClientID: core.OwnerChange{Set: true, ClientID: ptr(int64(9999))}}
			},
			msg: "Invalid client.",
		},
		{
			name: "nothing to apply",
			build: func(f *fixture, a []core.Asset) core.BulkUpdate {
				return core.BulkUpdate{AssetIDs: ids(a...), Status: core.Some("  ")}
			},
			msg: "Provide at least one field to update: warehouseId, zoneId, status, clientId.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, core.Options{BulkMaxAssets: 3})
			assets := seedAssets(f, "X1", "X2")

			_, err := f.svc.BulkUpdateAssets(context.Background(), member, tt.build(f, assets))
			requireKind(t, err, http.StatusBadRequest, tt.msg)

			assert.Equal(t, 0, f.store.Transactions)
			for _, a := range assets {
				assert.Empty(t, f.store.HistoryRows(a.ID))
			}
		})
	}
}

func TestBulkUpdateAssets_FailureInsideTransactionChangesNothing(t *testing.T) {
	f := newFixture(t, core.Options{})
	assets := seedAssets(f, "X1", "X2")
	f.store.FailCommit = errors.New("serialization failure")

	_, err := f.svc.BulkUpdateAssets(context.Background(), member, core.BulkUpdate{
		AssetIDs: ids(assets...),
		Status:   core.Some("lost"),
	})
	requireKind(t, err, http.StatusInternalServerError, "Failed to update assets. Please try again.")

	for _, a := range assets {
		got, _ := f.store.Asset(a.ID)
		assert.Equal(t, core.StatusIdle, got.Status)
		assert.Empty(t, f.store.HistoryRows(a.ID))
	}
}

func TestBulkUpdate_JSON(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, u core.BulkUpdate)
	}{
		{
			name: "absent fields are unset",
			body: `{"assetIds":[1,2],"status":"idle"}`,
			check: func(t *testing.T, u core.BulkUpdate) {
				assert.Equal(t, []int64{1, 2}, u.AssetIDs)
				assert.False(t, u.WarehouseID.Set)
				assert.False(t, u.ZoneID.Set)
				assert.False(t, u.ClientID.Set)
				require.True(t, u.Status.Set)
				assert.Equal(t, "idle", *u.Status.Value)
			},
		},
		{
			name: "null clears",
			body: `{"assetIds":[1],"warehouseId":null,"zoneId":null,"clientId":null}`,
			check: func(t *testing.T, u core.BulkUpdate) {
				assert.True(t, u.WarehouseID.Set)
				assert.Nil(t, u.WarehouseID.Value)
				assert.True(t, u.ZoneID.Set)
				assert.True(t, u.ClientID.Set)
				assert.Nil(t, u.ClientID.ClientID)
			},
		},
		{
			name: "company clears the owner",
			body: `{"assetIds":[1],"clientId":"company"}`,
			check: func(t *testing.T, u core.BulkUpdate) {
				assert.True(t, u.ClientID.Set)
				assert.Nil(t, u.ClientID.ClientID)
			},
		},
		{
			name: "client id as number or string",
			body: `{"assetIds":[1],"clientId":"42","warehouseId":7}`,
			check: func(t *testing.T, u core.BulkUpdate) {
				require.NotNil(t, u.ClientID.ClientID)
				assert.Equal(t, int64(42), *u.ClientID.ClientID)
				require.NotNil(t, u.WarehouseID.Value)
				assert.Equal(t, int64(7), *u.WarehouseID.Value)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var u core.BulkUpdate
			require.NoError(t, json.Unmarshal([]byte(tt.body), &u))
			tt.check(t, u)
		})
	}

	t.Run("bad client id", func(t *testing.T) {
		var u core.BulkUpdate
		assert.Error(t, json.Unmarshal([]byte(`{"assetIds":[1],"clientId":"acme"}`), &u))
	})
}
