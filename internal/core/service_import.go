package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/assettrack/internal/logging"
	"github.com/google/uuid"
)

// emptyLabel stands in for a blank label in row errors.
const emptyLabel = "(empty)"

// ImportFile is an uploaded import payload, fully buffered.
type ImportFile struct {
	Name string
	Data []byte
}

// IsSpreadsheet reports whether the file should be read as .xlsx.
func (f ImportFile) IsSpreadsheet() bool {
	return strings.EqualFold(filepath.Ext(f.Name), ".xlsx")
}

// RowError describes one rejected data row. Row is the 1-based row number
// in the file, counting the header as row 1.
type RowError struct {
	Row     int    `json:"row"`
	LabelID string `json:"label_id"`
	Message string `json:"message"`
}

// ImportResult summarises one import run.
type ImportResult struct {
	TotalRows int        `json:"total_rows"`
	Imported  int        `json:"imported"`
	Failed    int        `json:"failed"`
	Errors    []RowError `json:"errors"`
	// DryRun is set by PreviewImport; Imported then counts rows that would be stored.
	DryRun   bool   `json:"dry_run,omitempty"`
	ImportID string `json:"-"`
}

// Status is the HTTP status for the result: 422 when nothing was imported
// and at least one row failed, 200 otherwise.
func (r *ImportResult) Status() int {
	if r.Imported == 0 && r.Failed > 0 {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

// ImportAssets validates every row of f and stores the rows that pass in a
// single transaction. Rejected rows are reported in the result. When no row
// passes, no transaction is opened. Imported assets get no history rows.
//
// A returned error means nothing was stored; it is always a *Error.
func (s *Service) ImportAssets(ctx context.Context, orgID int64, f ImportFile) (*ImportResult, error) {
	return s.runImport(ctx, orgID, f, true)
}

// PreviewImport runs the same validation as ImportAssets without storing anything.
func (s *Service) PreviewImport(ctx context.Context, orgID int64, f ImportFile) (*ImportResult, error) {
	return s.runImport(ctx, orgID, f, false)
}

func (s *Service) runImport(ctx context.Context, orgID int64, f ImportFile, commit bool) (*ImportResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, ErrTooManyImports) {
			return nil, &Error{Kind: KindBusy, Message: "Too many imports are running. Please try again shortly.", Err: err}
		}
		return nil, &Error{Kind: KindMalformed, Message: "Import was cancelled.", Err: err}
	}
	defer s.limiter.Release()

	importID := uuid.NewString()
	log := logging.WithFields(ctx,
		"import_id", importID,
		"organization_id", orgID,
		"file", f.Name,
		"dry_run", !commit,
	)
	start := time.Now()

	rows, err := s.readRows(f)
	if err != nil {
		log.Warn("import rejected", "error", err)
		return nil, err
	}

	result := &ImportResult{
		TotalRows: len(rows) - 1,
		Errors:    []RowError{},
		DryRun:    !commit,
		ImportID:  importID,
	}

	header, err := ResolveHeader(rows[0])
	if err != nil {
		result.Failed = 1
		result.Errors = append(result.Errors, RowError{
			Row:     1,
			LabelID: "",
			Message: "Invalid header: " + err.Error() + ".",
		})
		log.Info("import rejected", "reason", "header", "rows", result.TotalRows)
		return result, nil
	}

	lookups, err := BuildLookups(ctx, s.repos, orgID)
	if err != nil {
		log.Error("load lookups failed", "error", err, "code", MapError(err).Code)
		return nil, persistence("Failed to load organization data.", err)
	}

	validator := NewRowValidator(header, lookups)
	assets := make([]Asset, 0, result.TotalRows)
	for i, row := range rows[1:] {
		c, reasons := validator.Validate(row)
		if len(reasons) > 0 {
			label := header.Cell(row, RoleLabelID)
			if label == "" {
				label = emptyLabel
			}
			result.Errors = append(result.Errors, RowError{
				Row:     i + 2,
				LabelID: label,
				Message: joinReasons(reasons),
			})
			continue
		}
		assets = append(assets, c.Asset(orgID))
	}
	result.Failed = len(result.Errors)

	if len(assets) > 0 && commit {
		err := s.repos.Tx.InTx(ctx, func(ctx context.Context, w Writer) error {
			n, err := w.CreateAssets(ctx, assets)
			if err != nil {
				return err
			}
			if n != len(assets) {
				return fmt.Errorf("created %d of %d assets", n, len(assets))
			}
			return nil
		})
		if err != nil {
			log.Error("import commit failed",
				"error", err,
				"code", MapError(err).Code,
				"valid_rows", len(assets),
			)
			if errors.Is(err, ErrDuplicateLabel) {
				return nil, persistence("Failed to create assets: a label ID was taken while the import ran. Please try again.", err)
			}
			return nil, persistence("Failed to create assets. Please try again.", err)
		}
	}
	result.Imported = len(assets)

	log.Info("import completed",
		"rows", result.TotalRows,
		"imported", result.Imported,
		"failed", result.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// readRows applies the size, encoding and row-count ceilings and tokenizes
// the payload. The returned slice always holds at least the header row.
func (s *Service) readRows(f ImportFile) ([][]string, error) {
	if int64(len(f.Data)) > s.opts.MaxFileSize {
		return nil, s.FileTooLargeError()
	}

	var rows [][]string
	if f.IsSpreadsheet() {
		var err error
		rows, err = TokenizeSpreadsheet(f.Data)
		if err != nil {
			return nil, &Error{Kind: KindMalformed, Message: "File could not be read as a spreadsheet.", Err: err}
		}
	} else {
		if !utf8.Valid(f.Data) {
			return nil, &Error{Kind: KindMalformed, Code: http.StatusUnprocessableEntity, Message: "File could not be read as UTF-8."}
		}
		rows = Tokenize(f.Data)
	}

	if len(rows) == 0 {
		return nil, &Error{Kind: KindMalformed, Code: http.StatusUnprocessableEntity, Message: "File has no header row."}
	}
	if len(rows)-1 > s.opts.MaxRows {
		return nil, &Error{
			Kind:    KindCapacity,
			Message: fmt.Sprintf("Import exceeds maximum of %d rows.", s.opts.MaxRows),
		}
	}
	return rows, nil
}

// FileTooLargeError is the 413 returned for a payload over MaxFileSize.
func (s *Service) FileTooLargeError() *Error {
	return &Error{
		Kind:    KindCapacity,
		Code:    http.StatusRequestEntityTooLarge,
		Message: fmt.Sprintf("File too large. Maximum size is %s.", formatBytes(s.opts.MaxFileSize)),
	}
}

// formatBytes renders a byte count the way limits are quoted to users.
func formatBytes(n int64) string {
	const mb = 1 << 20
	if n >= mb && n%mb == 0 {
		return fmt.Sprintf("%d MB", n/mb)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%d KB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
