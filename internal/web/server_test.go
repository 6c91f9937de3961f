package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/assettrack/internal/auth"
	"github.com/JonMunkholm/assettrack/internal/config"
	"github.com/JonMunkholm/assettrack/internal/core"
	"github.com/JonMunkholm/assettrack/internal/testutil/memstore"
)

const (
	orgID      int64 = 1
	otherOrgID int64 = 2
)

var (
	admin  = core.Actor{UserID: 100, OrganizationID: orgID, Role: core.RoleAdmin}
	member = core.Actor{UserID: 101, OrganizationID: orgID, Role: core.RoleUser}
)

type testServer struct {
	t      *testing.T
	srv    *Server
	store  *memstore.Store
	issuer *auth.Issuer

	pallet core.AssetType
	acme   core.Client
	north  core.Warehouse
	zoneA1 core.Zone
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
		Rate:    config.RateLimitConfig{Enabled: false},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, opts core.Options) *testServer {
	t.Helper()

	st := memstore.New()
	issuer := auth.NewIssuer("test-secret-test-secret", "assettrack", time.Hour)
	ts := &testServer{
		t:      t,
		srv:    NewServer(core.NewService(st.Repositories(), opts), cfg, issuer, nil),
		store:  st,
		issuer: issuer,
	}
	ts.pallet = st.AddAssetType(orgID, "Pallet", "PAL", false)
	ts.acme = st.AddClient(orgID, "Acme")
	ts.north = st.AddWarehouse(orgID, "North", "N")
	ts.zoneA1 = st.AddZone(ts.north.ID, "A1", "")
	st.AddAssetType(otherOrgID, "Crate", "", false)
	st.AddUser(memstore.User{ID: admin.UserID, Email: "admin@example.com", FullName: "Ada Admin"})
	st.AddUser(memstore.User{ID: member.UserID, Email: "user@example.com"})
	return ts
}

// do sends a request as actor. A nil actor sends no token.
func (ts *testServer) do(actor *core.Actor, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	ts.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if actor != nil {
		token, err := ts.issuer.Issue(*actor)
		require.NoError(ts.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) doJSON(actor *core.Actor, method, path, body string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return ts.do(actor, method, path, r, "application/json")
}

func (ts *testServer) upload(actor *core.Actor, path, field, name, content string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, name)
	require.NoError(ts.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(ts.t, err)
	require.NoError(ts.t, mw.Close())
	return ts.do(actor, http.MethodPost, path, &buf, mw.FormDataContentType())
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	return decode[ErrorResponse](t, rr)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	svc := core.NewService(memstore.New().Repositories(), core.Options{})
	issuer := auth.NewIssuer("test-secret-test-secret", "", time.Hour)

	up := NewServer(svc, testConfig(), issuer, fakePinger{})
	rr := httptest.NewRecorder()
	up.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, core.ImportLimiterStatus{
		Active:        0,
		Available:     core.DefaultMaxConcurrentImports,
		MaxConcurrent: core.DefaultMaxConcurrentImports,
	}, body.Imports)

	down := NewServer(svc, testConfig(), issuer, fakePinger{err: errors.New("connection refused")})
	rr = httptest.NewRecorder()
	down.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
}

func TestAPI_RequiresToken(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Options{})

	rr := ts.doJSON(nil, http.MethodGet, "/api/assets", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEmpty(t, errorBody(t, rr).Error)
}

func TestImport(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Options{})

	csv := "Label ID,Type,Status,Warehouse,Zone\n" +
		"P-1,Pallet,idle,North,A1\n" +
		"P-2,Nope,idle,,\n" +
		"P-3,pal,in_use,,\n"
	rr := ts.upload(&member, "/api/assets/import", "csv", "assets.csv", csv)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Import-ID"))

	res := decode[core.ImportResult](t, rr)
	assert.Equal(t, 3, res.TotalRows)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Row)
	assert.Equal(t, "P-2", res.Errors[0].LabelID)
	assert.Equal(t, 2, ts.store.AssetCount())

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	for _, key := range []string{"total_rows", "imported", "failed", "errors"} {
		assert.Contains(t, raw, key)
	}
}

func TestImport_NothingImportedIs422(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Options{})

	rr := ts.upload(&member, "/api/assets/import", "file", "assets.csv", "label_id,asset_type,status\nX,Unknown,idle\n")

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	res := decode[core.ImportResult](t, rr)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, ts.store.AssetCount())
}

func TestImport_RequestRejections(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Options{MaxFileSize: 64})

	t.Run("not multipart", func(t *testing.T) {
		rr := ts.do(&member, http.MethodPost, "/api/assets/import", strings.NewReader("label_id"), "text/csv")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, msgNotMultipart, errorBody(t, rr).Error)
	})

	t.Run("wrong field", func(t *testing.T) {
		rr := ts.upload(&member, "/api/assets/import", "upload", "a.csv", "label_id,asset_type,status\n")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, msgNoFile, errorBody(t, rr).Error)
	})

	t.Run("too large", func(t *testing.T) {
		big := "label_id,asset_type,status\n" + strings.Repeat("L,Pallet,idle\n", 10)
		rr := ts.upload(&member, "/api/assets/import", "file", "a.csv", big)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
		assert.Equal(t, "File too large. Maximum size is 64 bytes.", errorBody(t, rr).Error)
	})
}

func TestImportPreview_StoresNothing(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Options{})

	rr := ts.upload(&member, "/api/assets/import/preview", "file", "a.csv", "label_id,asset_type,status\nP-1,Pallet,idle\n")

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[core.ImportResult](t, rr)
	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Imported)
	assert.Zero(t, ts.store.AssetCount())
}

func TestImport_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, ImportLimit: 1}
	ts := newTestServer(t, cfg, core.Options{})

	body := "label_id,asset_type,status\n"
	assert.NotEqual(t, http.StatusTooManyRequests, ts.upload(&member, "/api/assets/import", "file", "a.csv", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, ts.upload(&member, "/api/assets/import", "file", "a.csv", body).Code)

	// Other routes draw from the general bucket.
	assert.Equal(t, http.StatusOK, ts.doJSON(&member, http.MethodGet, "/api/assets", "").Code)
}

func TestAssetLifecycle(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Options{})

	body := fmt.Sprintf(`{"labelId":" T-100 ","assetTypeId":%d,"status":"in_use","warehouseId":%d,"zoneId":%d}`,
		ts.pallet.ID, ts.north.ID, ts.zoneA1.ID)
	rr := ts.doJSON(&member, http.MethodPost, "/api/assets", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	created := decode[core.AssetDetail](t, rr)
	assert.Equal(t, "T-100", created.LabelID)
	require.NotNil(t, created.Zone)
	assert.Equal(t, "A1", created.Zone.Name)
	path := fmt.Sprintf("/api/assets/%d", created.ID)

	rr = ts.doJSON(&member, http.MethodPost, "/api/assets", body)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = ts.doJSON(&member, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rr.Code)

	update := fmt.Sprintf(`{"labelId":"T-100","assetTypeId":%d,"status":"idle","warehouseId":%d,"zoneId":%d}`,
		ts.pallet.ID, ts.north.ID, ts.zoneA1.ID)
	rr = ts.doJSON(&member, http.MethodPut, path, update)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, core.StatusIdle, decode[core.AssetDetail](t, rr).Status)

	rr = ts.doJSON(&member, http.MethodGet, path+"/history", "")
	require.Equal(t, http.StatusOK, rr.Code)
	hist := decode[historyResponse](t, rr)
	require.Len(t, hist.Items, 2)
	assert.Equal(t, []string{"Status: Idle"}, hist.Items[0].Summary)
	assert.Equal(t, "user@example.com", hist.Items[0].User)

	rr = ts.doJSON(&member, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestAsset_RequestErrors(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Options{})
	foreign := ts.store.AddAsset(core.Asset{OrganizationID: otherOrgID, LabelID: "F-1", AssetTypeID: ts.pallet.ID, Status: core.StatusIdle})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
		msg    string
	}{
		{"non numeric id", http.MethodGet, "/api/assets/abc", "", http.StatusNotFound, "Not found"},
		{"zero id", http.MethodGet, "/api/assets/0", "", http.StatusNotFound, "Not found"},
		{"other organization", http.MethodGet, fmt.Sprintf("/api/assets/%d", foreign.ID), "", http.StatusNotFound, "Not found"},
		{"invalid json", http.MethodPost, "/api/assets", `{"labelId":`, http.StatusBadRequest, msgInvalidJSON},
		{"empty body", http.MethodPost, "/api/assets", "", http.StatusBadRequest, msgInvalidJSON},
		{"missing label", http.MethodPost, "/api/assets", fmt.Sprintf(`{"assetTypeId":%d,"status":"idle"}`, ts.pallet.ID), http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.doJSON(&member, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rr.Code)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, errorBody(t, rr).Error)
			}
		})
	}
}

func TestListAssets_Filters(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Options{})
	clientID := ts.acme.ID
	ts.store.AddAsset(core.Asset{OrganizationID: orgID, LabelID: "A-1", AssetTypeID: ts.pallet.ID, Status: core.StatusIdle})
	ts.store.AddAsset(core.Asset{OrganizationID: orgID, LabelID: "A-2", AssetTypeID: ts.pallet.ID, Status: core.StatusLost, ClientID: &clientID})
	ts.store.AddAsset(core.Asset{OrganizationID: otherOrgID, LabelID: "A-3", AssetTypeID: ts.pallet.ID, Status: core.StatusIdle})

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"A-1", "A-2"}},
		{"?clientId=company", []string{"A-1"}},
		{"?clientId=", []string{"A-1"}},
		{"?clientId=client", []string{"A-2"}},
		{fmt.Sprintf("?clientId=%d", clientID), []string{"A-2"}},
		{"?status=lost", []string{"A-2"}},
		{"?status=bogus", []string{"A-1", "A-2"}},
		{"?search=a-1", []string{"A-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := ts.doJSON(&member, http.MethodGet, "/api/assets"+tt.query, "")
			require.Equal(t, http.StatusOK, rr.Code)
			page := decode[core.AssetPage](t, rr)

			var got []string
			for _, a := range page.Items {
				got = append(got, a.LabelID)
			}
			assert.ElementsMatch(t, tt.want, got)
			assert.Equal(t, len(tt.want), page.Total)
		})
	}

	rr := ts.doJSON(&member, http.MethodGet, "/api/assets?limit=500&page=-2", "")
	page := decode[core.AssetPage](t, rr)
	assert.Equal(t, core.MaxPageLimit, page.Limit)
	assert.Equal(t, 1, page.Page)
}

func TestBulkUpdate(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Options{BulkMaxAssets: 3})
	a := ts.store.AddAsset(core.Asset{OrganizationID: orgID, LabelID: "B-1", AssetTypeID: ts.pallet.ID, Status: core.StatusInUse})
	b := ts.store.AddAsset(core.Asset{OrganizationID: orgID, LabelID: "B-2", AssetTypeID: ts.pallet.ID, Status: core.StatusInUse})

	t.Run("applies", func(t *testing.T) {
		rr := ts.doJSON(&member, http.MethodPost, "/api/assets/bulk-update",
			fmt.Sprintf(`{"assetIds":[%d,%d],"status":"idle","clientId":"company"}`, a.ID, b.ID))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.JSONEq(t, `{"updated":2}`, rr.Body.String())
		assert.Len(t, ts.store.HistoryRows(a.ID), 1)
	})

	t.Run("wrong shape", func(t *testing.T) {
		rr := ts.doJSON(&member, http.MethodPost, "/api/assets/bulk-update", `{"assetIds":[1],"clientId":"acme"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, errorBody(t, rr).Error, "array of 1–3 asset IDs")
	})

	t.Run("invalid json", func(t *testing.T) {
		rr := ts.doJSON(&member, http.MethodPost, "/api/assets/bulk-update", `{"assetIds":[`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, msgInvalidJSON, errorBody(t, rr).Error)
	})
}

func TestReferenceData(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Options{})
	ts.store.AddAsset(core.Asset{OrganizationID: orgID, LabelID: "R-1", AssetTypeID: ts.pallet.ID, Status: core.StatusIdle})

	rr := ts.doJSON(&member, http.MethodPost, "/api/clients", `{"name":"  Globex "}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	globex := decode[core.Client](t, rr)
	assert.Equal(t, "Globex", globex.Name)

	rr = ts.doJSON(&member, http.MethodGet, "/api/clients", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]core.Client](t, rr), 2)

	rr = ts.doJSON(&member, http.MethodPost, "/api/zones", fmt.Sprintf(`{"warehouseId":%d,"name":"B2"}`, ts.north.ID))
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = ts.doJSON(&member, http.MethodDelete, fmt.Sprintf("/api/clients/%d", globex.ID), "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Admin access required", errorBody(t, rr).Error)

	rr = ts.doJSON(&admin, http.MethodDelete, fmt.Sprintf("/api/asset-types/%d", ts.pallet.ID), "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, 1, errorBody(t, rr).Dependents)

	rr = ts.doJSON(&admin, http.MethodDelete, fmt.Sprintf("/api/clients/%d", globex.ID), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.doJSON(&admin, http.MethodGet, fmt.Sprintf("/api/clients/%d", globex.ID), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, testConfig(), core.Options{})
	ts.doJSON(&member, http.MethodGet, "/api/assets", "")

	rr := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "assettrack_http_requests_total")
}

func TestShutdown_WaitsForImports(t *testing.T) {
	svc := core.NewService(memstore.New().Repositories(), core.Options{MaxConcurrentImports: 1})
	srv := NewServer(svc, testConfig(), auth.NewIssuer("test-secret-test-secret", "", time.Hour), nil)

	require.NoError(t, svc.ImportLimiter().Acquire(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, srv.Shutdown(ctx), context.DeadlineExceeded)

	svc.ImportLimiter().Release()
	assert.NoError(t, srv.Shutdown(context.Background()))
}
