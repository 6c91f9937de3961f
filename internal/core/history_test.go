package core_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/assettrack/internal/core"
)

func TestSummarize(t *testing.T) {
	base := core.Snapshot{Status: core.StatusIdle, Quantity: 1, WarehouseID: ptr(int64(1)), ZoneID: ptr(int64(10))}

	tests := []struct {
		name   string
		change func(s *core.Snapshot)
		want   []string
	}{
		{"no change", func(s *core.Snapshot) {}, []string{"Updated"}},
		{"status", func(s *core.Snapshot) { s.Status = core.StatusInUse }, []string{"Status: In use"}},
		{"zone only is a location change", func(s *core.Snapshot) { s.ZoneID = ptr(int64(11)) }, []string{"Location updated"}},
		{"warehouse cleared", func(s *core.Snapshot) { s.WarehouseID, s.ZoneID = nil, nil }, []string{"Location updated"}},
		{"same ids at different addresses", func(s *core.Snapshot) { s.WarehouseID = ptr(int64(1)) }, []string{"Updated"}},
		{"owner", func(s *core.Snapshot) { s.ClientID = ptr(int64(3)) }, []string{"Owner updated"}},
		{"quantity", func(s *core.Snapshot) { s.Quantity = 7 }, []string{"Quantity: 7"}},
		{"notes", func(s *core.Snapshot) { s.Notes = ptr("hello") }, []string{"Notes updated"}},
		{"several in fixed order", func(s *core.Snapshot) {
			s.Notes = ptr("x")
			s.Quantity = 2
			s.ClientID = ptr(int64(3))
			s.WarehouseID = nil
			s.Status = core.StatusLost
		}, []string{"Status: Lost", "Location updated", "Owner updated", "Quantity: 2", "Notes updated"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			older := base
			newer := base
			tt.change(&newer)
			assert.Equal(t, tt.want, core.Summarize(&newer, &older))
		})
	}

	t.Run("first entry", func(t *testing.T) {
		assert.Equal(t, []string{"Updated"}, core.Summarize(&base, nil))
	})
}

func TestSummaryText(t *testing.T) {
	assert.Equal(t, "Status: Idle · Owner updated", core.SummaryText([]string{"Status: Idle", "Owner updated"}))
	assert.Equal(t, "Updated", core.SummaryText([]string{"Updated"}))
}

func TestHistory_CreateThenStatusChange(t *testing.T) {
	f := newFixture(t, core.Options{})
	ctx := context.Background()

	in := validInput(f)
	in.Status = "in_use"
	created, err := f.svc.CreateAsset(ctx, admin, in)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	in.Status = "idle"
	_, err = f.svc.UpdateAsset(ctx, member, created.ID, in)
	require.NoError(t, err)

	entries, err := f.svc.History(ctx, orgID, created.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, []string{"Status: Idle"}, entries[0].Summary)
	assert.Equal(t, "user@example.com", entries[0].User, "users without a name show their email")
	assert.Equal(t, []string{"Updated"}, entries[1].Summary)
	assert.Equal(t, "Ada Admin", entries[1].User)
	assert.True(t, entries[0].ChangedAt.After(entries[1].ChangedAt))
}

func TestHistory_LimitComparesWithHiddenPredecessor(t *testing.T) {
	f := newFixture(t, core.Options{HistoryLimit: 2})
	ctx := context.Background()
	a := f.store.AddAsset(core.Asset{OrganizationID: orgID, LabelID: "X1", AssetTypeID: f.pallet.ID, Status: core.StatusIdle})

	at := f.clock.Now()
	for i, q := range []int{1, 2, 3, 4} {
		f.store.AddHistory(core.AssetHistory{
			AssetID:   a.ID,
			UserID:    userID,
			ChangedAt: at.Add(time.Duration(i) * time.Minute),
			Snapshot:  core.Snapshot{Status: core.StatusIdle, Quantity: q},
		})
	}

	entries, err := f.svc.History(ctx, orgID, a.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"Quantity: 4"}, entries[0].Summary)
	assert.Equal(t, []string{"Quantity: 3"}, entries[1].Summary, "oldest shown entry is compared with the one before it")
}

func TestHistory_UnknownAsset(t *testing.T) {
	f := newFixture(t, core.Options{})
	foreign := f.store.AddAsset(core.Asset{OrganizationID: otherOrgID, LabelID: "F", AssetTypeID: f.foreignTy.ID, Status: core.StatusIdle})

	_, err := f.svc.History(context.Background(), orgID, foreign.ID)
	requireKind(t, err, http.StatusNotFound, "")
}

func TestHistory_EmptyTrail(t *testing.T) {
	f := newFixture(t, core.Options{})
	a := f.store.AddAsset(core.Asset{OrganizationID: orgID, LabelID: "X1", AssetTypeID: f.pallet.ID, Status: core.StatusIdle})

	entries, err := f.svc.History(context.Background(), orgID, a.ID)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}
