package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// utf8BOM is stripped from the start of uploaded text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Tokenize splits comma-delimited text into rows of fields.
//
// Quoted fields may contain commas and line breaks, and "" inside a quoted
// field is a literal quote. Both \n and \r\n end a row, and a final row
// without a trailing newline is kept. Blank lines produce no row and take no
// row number.
//
// Tokenize never fails: malformed quoting is read leniently and a record the
// reader cannot make sense of is skipped.
func Tokenize(data []byte) [][]string {
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				if rec != nil {
					rows = append(rows, rec)
				}
				continue
			}
			break
		}
		rows = append(rows, rec)
	}
	return rows
}

// TokenizeSpreadsheet reads the rows of the first worksheet of an .xlsx file.
func TokenizeSpreadsheet(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}
