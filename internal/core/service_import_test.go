package core_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/assettrack/internal/core"
)

func csvFile(lines ...string) core.ImportFile {
	return core.ImportFile{Name: "assets.csv", Data: []byte(strings.Join(lines, "\n") + "\n")}
}

func TestImportAssets_AllValid(t *testing.T) {
	f := newFixture(t, core.Options{})

	res, err := f.svc.ImportAssets(context.Background(), orgID, csvFile(
		"label_id,asset_type,status,client,warehouse,zone,notes",
		"X1,Pallet,idle,Acme,North,A1,first",
		"X2,pal,IN_USE,,S,,",
		`X3,Scanner,lost,,,,"with, comma"`,
	))
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalRows)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 0, res.Failed)
	assert.Empty(t, res.Errors)
	assert.NotEmpty(t, res.ImportID)
	assert.Equal(t, http.StatusOK, res.Status())
	assert.Equal(t, 3, f.store.AssetCount())
	assert.Equal(t, 1, f.store.Transactions)

	page, err := f.svc.ListAssets(context.Background(), orgID, core.AssetFilter{Search: "X1"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	a := page.Items[0]
	assert.Equal(t, f.pallet.ID, a.AssetTypeID)
	assert.Equal(t, core.StatusIdle, a.Status)
	assert.Equal(t, 1, a.Quantity)
	require.NotNil(t, a.ZoneID)
	assert.Equal(t, f.northA1.ID, *a.ZoneID)
	assert.Empty(t, f.store.HistoryRows(a.ID), "imports write no history")
}

func TestImportAssets_SynonymHeaderMatchesCanonical(t *testing.T) {
	canonical := newFixture(t, core.Options{})
	synonyms := newFixture(t, core.Options{})

	r1, err := canonical.svc.ImportAssets(context.Background(), orgID, csvFile(
		"label_id,asset_type,status", "X1,Pallet,idle",
	))
	require.NoError(t, err)
	r2, err := synonyms.svc.ImportAssets(context.Background(), orgID, csvFile(
		"Label ID,Type,Status", "X1,Pallet,idle",
	))
	require.NoError(t, err)

	assert.Equal(t, r1.Imported, r2.Imported)
	assert.Equal(t, r1.Errors, r2.Errors)
}

func TestImportAssets_PartialFailure(t *testing.T) {
	f := newFixture(t, core.Options{})
	f.store.AddAsset(core.Asset{OrganizationID: orgID, LabelID: "TAKEN", AssetTypeID: f.pallet.ID, Status: core.StatusIdle})

	res, err := f.svc.ImportAssets(context.Background(), orgID, csvFile(
		"label_id,asset_type,status,warehouse,zone",
		"X1,Pallet,idle,,",
		"X1,Pallet,idle,,",
		"TAKEN,Pallet,idle,,",
		",,,,",
		"X2,Pallet,idle,,A1",
		"X3,Pallet,idle,South,A1",
		"X4,Pallet,broken,,",
	))
	require.NoError(t, err)

	assert.Equal(t, 7, res.TotalRows)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 6, res.Failed)
	assert.Equal(t, http.StatusOK, res.Status())
	assert.Equal(t, []core.RowError{
		{Row: 3, LabelID: "X1", Message: "Duplicate label_id in file."},
		{Row: 4, LabelID: "TAKEN", Message: "Label ID already exists."},
		{Row: 5, LabelID: "(empty)", Message: "label_id is required. asset_type is required. status is required."},
		{Row: 6, LabelID: "X2", Message: "warehouse is required when zone is set."},
		{Row: 7, LabelID: "X3", Message: "zone could not be resolved to a single Zone in that warehouse."},
		{Row: 8, LabelID: "X4", Message: "status must be one of: in_use, idle, damaged, lost."},
	}, res.Errors)
	assert.Equal(t, 2, f.store.AssetCount())
}

func TestImportAssets_AmbiguousTypeResolvesByCode(t *testing.T) {
	f := newFixture(t, core.Options{})
	second := f.store.AddAssetType(orgID, "pallet", "PAL-2", false)

	res, err := f.svc.ImportAssets(context.Background(), orgID, csvFile(
		"label_id,asset_type,status",
		"X1,Pallet,idle",
		"X2,PAL-2,idle",
	))
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, 2, res.Errors[0].Row)
	assert.Contains(t, res.Errors[0].Message, "asset_type could not be resolved")
	assert.Equal(t, 1, res.Imported)

	page, err := f.svc.ListAssets(context.Background(), orgID, core.AssetFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, second.ID, page.Items[0].AssetTypeID)
}

func TestImportAssets_BlankLinesAreNotRows(t *testing.T) {
	f := newFixture(t, core.Options{})

	res, err := f.svc.ImportAssets(context.Background(), orgID, csvFile(
		"label_id,asset_type,status",
		"X1,Pallet,idle",
		"",
		"X2,Nope,idle",
		"",
	))
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalRows)
	assert.Equal(t, 1, res.Imported)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Row)
	assert.Equal(t, "X2", res.Errors[0].LabelID)
}

func TestImportAssets_OtherOrganizationIsInvisible(t *testing.T) {
	f := newFixture(t, core.Options{})
	f.store.AddAsset(core.Asset{OrganizationID: otherOrgID, LabelID: "X1", AssetTypeID: f.foreignTy.ID, Status: core.StatusIdle})

	res, err := f.svc.ImportAssets(context.Background(), orgID, csvFile(
		"label_id,asset_type,status,warehouse",
		"X1,Pallet,idle,",
		"X2,Pallet,idle,Elsewhere",
	))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Imported, "a label used by another organization is free")
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "warehouse could not be resolved to a single Warehouse in your organization.", res.Errors[0].Message)
}

func TestImportAssets_NothingValidOpensNoTransaction(t *testing.T) {
	f := newFixture(t, core.Options{})

	res, err := f.svc.ImportAssets(context.Background(), orgID, csvFile(
		"label_id,asset_type,status",
		"X1,Nope,idle",
		"X2,Pallet,gone",
	))
	require.NoError(t, err)

	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status())
	assert.Equal(t, 0, f.store.Transactions)
}

func TestImportAssets_HeaderOnly(t *testing.T) {
	f := newFixture(t, core.Options{})

	res, err := f.svc.ImportAssets(context.Background(), orgID, csvFile("label_id,asset_type,status"))
	require.NoError(t, err)

	assert.Equal(t, 0, res.TotalRows)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, http.StatusOK, res.Status())
	assert.Equal(t, 0, f.store.Transactions)
}

func TestImportAssets_BadHeaderIsRowOneError(t *testing.T) {
	f := newFixture(t, core.Options{})

	res, err := f.svc.ImportAssets(context.Background(), orgID, csvFile(
		"label_id,asset_type,warehouse",
		"X1,Pallet,North",
		"X2,Pallet,North",
	))
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalRows)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []core.RowError{{
		Row:     1,
		LabelID: "",
		Message: "Invalid header: missing required column (label_id, asset_type, or status).",
	}}, res.Errors)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status())
	assert.Equal(t, 0, f.store.AssetCount())
}

func TestImportAssets_FileRejections(t *testing.T) {
	tests := []struct {
		name   string
		opts   core.Options
		file   core.ImportFile
		status int
		msg    string
	}{
		{
			name:   "too large",
			opts:   core.Options{MaxFileSize: 64},
			file:   core.ImportFile{Name: "a.csv", Data: bytes.Repeat([]byte("x"), 65)},
			status: http.StatusRequestEntityTooLarge,
			msg:    "File too large. Maximum size is 64 bytes.",
		},
		{
			name:   "not utf-8",
			file:   core.ImportFile{Name: "a.csv", Data: []byte("label_id,asset_type,status\n\xff\xfe,Pallet,idle\n")},
			status: http.StatusUnprocessableEntity,
			msg:    "File could not be read as UTF-8.",
		},
		{
			name:   "empty",
			file:   core.ImportFile{Name: "a.csv", Data: []byte("\n\n")},
			status: http.StatusUnprocessableEntity,
			msg:    "File has no header row.",
		},
		{
			name:   "too many rows",
			opts:   core.Options{MaxRows: 2},
			file:   csvFile("label_id,asset_type,status", "X1,Pallet,idle", "X2,Pallet,idle", "X3,Pallet,idle"),
			status: http.StatusUnprocessableEntity,
			msg:    "Import exceeds maximum of 2 rows.",
		},
		{
			name:   "not a spreadsheet",
			file:   core.ImportFile{Name: "a.xlsx", Data: []byte("label_id,asset_type,status\n")},
			status: http.StatusBadRequest,
			msg:    "File could not be read as a spreadsheet.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.opts)
			res, err := f.svc.ImportAssets(context.Background(), orgID, tt.file)
			assert.Nil(t, res)
			requireKind(t, err, tt.status, tt.msg)
			assert.Equal(t, 0, f.store.Transactions)
		})
	}
}

func TestImportAssets_DefaultSizeLimitMessage(t *testing.T) {
	f := newFixture(t, core.Options{})
	data := bytes.Repeat([]byte("x"), core.DefaultMaxFileSize+1)

	_, err := f.svc.ImportAssets(context.Background(), orgID, core.ImportFile{Name: "a.csv", Data: data})
	requireKind(t, err, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 5 MB.")
}

func TestImportAssets_LabelTakenDuringImportRollsBack(t *testing.T) {
	f := newFixture(t, core.Options{})
	f.store.BeforeCommit = func(w core.Writer) {
		_, err := w.CreateAsset(context.Background(), core.Asset{
			OrganizationID: orgID, LabelID: "X2", AssetTypeID: f.pallet.ID, Quantity: 1, Status: core.StatusIdle,
		})
		require.NoError(t, err)
	}

	res, err := f.svc.ImportAssets(context.Background(), orgID, csvFile(
		"label_id,asset_type,status",
		"X1,Pallet,idle",
		"X2,Pallet,idle",
	))
	assert.Nil(t, res)
	e := requireKind(t, err, http.StatusInternalServerError, "")
	assert.Contains(t, e.Message, "label ID was taken")
	assert.True(t, errors.Is(err, core.ErrDuplicateLabel))
	assert.Equal(t, 0, f.store.AssetCount(), "no row of a failed import is kept")
}

func TestImportAssets_CommitFailure(t *testing.T) {
	f := newFixture(t, core.Options{})
	f.store.FailCommit = errors.New("connection reset")

	_, err := f.svc.ImportAssets(context.Background(), orgID, csvFile(
		"label_id,asset_type,status", "X1,Pallet,idle",
	))
	requireKind(t, err, http.StatusInternalServerError, "Failed to create assets. Please try again.")
	assert.Equal(t, 0, f.store.AssetCount())
}

func TestImportAssets_Busy(t *testing.T) {
	f := newFixture(t, core.Options{MaxConcurrentImports: 1, ImportWait: 10 * time.Millisecond})
	require.NoError(t, f.svc.ImportLimiter().Acquire(context.Background()))
	defer f.svc.ImportLimiter().Release()

	_, err := f.svc.ImportAssets(context.Background(), orgID, csvFile("label_id,asset_type,status"))
	requireKind(t, err, http.StatusTooManyRequests, "")
}

func TestPreviewImport_StoresNothing(t *testing.T) {
	f := newFixture(t, core.Options{})

	res, err := f.svc.PreviewImport(context.Background(), orgID, csvFile(
		"label_id,asset_type,status",
		"X1,Pallet,idle",
		"X2,Nope,idle",
	))
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 0, f.store.AssetCount())
	assert.Equal(t, 0, f.store.Transactions)
}

func TestImportAssets_Spreadsheet(t *testing.T) {
	f := newFixture(t, core.Options{})

	x := excelize.NewFile()
	defer x.Close()
	sheet := x.GetSheetName(0)
	require.NoError(t, x.SetSheetRow(sheet, "A1", &[]any{"Label ID", "Asset Type", "Status", "Warehouse"}))
	require.NoError(t, x.SetSheetRow(sheet, "A2", &[]any{"X1", "Pallet", "idle", "North"}))
	require.NoError(t, x.SetSheetRow(sheet, "A3", &[]any{"X2", "Pallet", "idle", "Nowhere"}))
	var buf bytes.Buffer
	require.NoError(t, x.Write(&buf))

	res, err := f.svc.ImportAssets(context.Background(), orgID, core.ImportFile{Name: "Assets.XLSX", Data: buf.Bytes()})
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalRows)
	assert.Equal(t, 1, res.Imported)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Row)
}
