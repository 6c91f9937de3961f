package core

import (
	"errors"
	"strings"
)

// Column roles recognised in an import header.
const (
	RoleLabelID   = "label_id"
	RoleAssetType = "asset_type"
	RoleStatus    = "status"
	RoleClient    = "client"
	RoleWarehouse = "warehouse"
	RoleZone      = "zone"
	RoleNotes     = "notes"
)

// RequiredRoles must all be present in the header row.
var RequiredRoles = []string{RoleLabelID, RoleAssetType, RoleStatus}

// headerSynonyms maps a normalized header cell to its role.
var headerSynonyms = map[string]string{
	"label_id":       RoleLabelID,
	"label id":       RoleLabelID,
	"labelid":        RoleLabelID,
	"asset_type":     RoleAssetType,
	"asset type":     RoleAssetType,
	"assettype":      RoleAssetType,
	"type":           RoleAssetType,
	"status":         RoleStatus,
	"client":         RoleClient,
	"owner":          RoleClient,
	"warehouse":      RoleWarehouse,
	"warehouse_name": RoleWarehouse,
	"zone":           RoleZone,
	"zone_name":      RoleZone,
	"notes":          RoleNotes,
}

// ErrMissingRequiredColumn is returned when the header lacks a required role.
var ErrMissingRequiredColumn = errors.New("missing required column (label_id, asset_type, or status)")

// HeaderIndex maps a column role to its position in a row.
type HeaderIndex map[string]int

// NormalizeHeader trims, lowercases and collapses internal whitespace.
func NormalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(h)), " ")
}

// ResolveHeader maps header cells to roles. Cells with no known synonym keep
// their normalized text as the key and are otherwise ignored. When two cells
// map to the same role the later one wins.
func ResolveHeader(header []string) (HeaderIndex, error) {
	idx := make(HeaderIndex, len(header))
	for i, cell := range header {
		key := NormalizeHeader(cell)
		if key == "" {
			continue
		}
		if role, ok := headerSynonyms[key]; ok {
			key = role
		}
		idx[key] = i
	}

	for _, role := range RequiredRoles {
		if _, ok := idx[role]; !ok {
			return nil, ErrMissingRequiredColumn
		}
	}
	return idx, nil
}

// Cell returns the trimmed value of role in row, or "" when the column is
// absent or the row is short.
func (h HeaderIndex) Cell(row []string, role string) string {
	pos, ok := h[role]
	if !ok || pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}
