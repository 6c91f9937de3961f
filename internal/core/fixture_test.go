package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/assettrack/internal/core"
	"github.com/JonMunkholm/assettrack/internal/testutil/memstore"
)

const (
	orgID      int64 = 1
	otherOrgID int64 = 2
	adminID    int64 = 100
	userID     int64 = 101
)

var (
	admin  = core.Actor{UserID: adminID, OrganizationID: orgID, Role: core.RoleAdmin}
	member = core.Actor{UserID: userID, OrganizationID: orgID, Role: core.RoleUser}
)

// fixture is one organization with a small set of reference data, plus a
// second organization whose records must never be visible.
type fixture struct {
	store *memstore.Store
	svc   *core.Service
	clock *fakeClock

	pallet    core.AssetType
	scanner   core.AssetType // serialized
	acme      core.Client
	north     core.Warehouse
	south     core.Warehouse
	northA1   core.Zone
	southB1   core.Zone
	foreignWh core.Warehouse
	foreignTy core.AssetType
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFixture(t *testing.T, opts core.Options) *fixture {
	t.Helper()

	st := memstore.New()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	opts.Clock = clock.Now

	f := &fixture{store: st, svc: core.NewService(st.Repositories(), opts), clock: clock}
	f.pallet = st.AddAssetType(orgID, "Pallet", "PAL", false)
	f.scanner = st.AddAssetType(orgID, "Scanner", "SCN", true)
	f.acme = st.AddClient(orgID, "Acme")
	f.north = st.AddWarehouse(orgID, "North", "N")
	f.south = st.AddWarehouse(orgID, "South", "S")
	f.northA1 = st.AddZone(f.north.ID, "A1", "")
	f.southB1 = st.AddZone(f.south.ID, "B1", "")
	f.foreignWh = st.AddWarehouse(otherOrgID, "Elsewhere", "")
	f.foreignTy = st.AddAssetType(otherOrgID, "Pallet", "PAL", false)

	st.AddUser(memstore.User{ID: adminID, Email: "admin@example.com", FullName: "Ada Admin"})
	st.AddUser(memstore.User{ID: userID, Email: "user@example.com"})
	return f
}

// requireKind asserts err is a *core.Error of the given HTTP status and message.
func requireKind(t *testing.T, err error, status int, msg string) *core.Error {
	t.Helper()
	require.Error(t, err)
	e, ok := core.AsError(err)
	require.True(t, ok, "error %v is not a *core.Error", err)
	require.Equal(t, status, e.Status(), "status for %q", e.Message)
	if msg != "" {
		require.Equal(t, msg, e.Message)
	}
	return e
}

func ptr[T any](v T) *T { return &v }
