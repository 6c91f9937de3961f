package core

import "strings"

// Row rejection messages. They are returned to the uploader verbatim.
const (
	msgLabelRequired       = "label_id is required."
	msgAssetTypeRequired   = "asset_type is required."
	msgStatusRequired      = "status is required."
	msgDuplicateInFile     = "Duplicate label_id in file."
	msgDuplicateInStore    = "Label ID already exists."
	msgAssetTypeUnresolved = "asset_type could not be resolved to a single Asset Type in your organization."
	msgClientUnresolved    = "client could not be resolved to a single Client in your organization."
	msgZoneNeedsWarehouse  = "warehouse is required when zone is set."
	msgWarehouseUnresolved = "warehouse could not be resolved to a single Warehouse in your organization."
	msgZoneUnresolved      = "zone could not be resolved to a single Zone in that warehouse."
	msgStatusInvalid       = "status must be one of: in_use, idle, damaged, lost."
	msgNotesTooLong        = "notes are too long."
)

// Candidate is a fully resolved row that has not been stored yet.
type Candidate struct {
	LabelID     string
	AssetTypeID int64
	Quantity    int
	ClientID    *int64
	WarehouseID *int64
	ZoneID      *int64
	Status      Status
	Notes       *string
}

// Asset converts the candidate into an asset owned by orgID.
func (c Candidate) Asset(orgID int64) Asset {
	return Asset{
		OrganizationID: orgID,
		LabelID:        c.LabelID,
		AssetTypeID:    c.AssetTypeID,
		Quantity:       c.Quantity,
		ClientID:       c.ClientID,
		WarehouseID:    c.WarehouseID,
		ZoneID:         c.ZoneID,
		Status:         c.Status,
		Notes:          c.Notes,
	}
}

// RowValidator validates import rows against one set of lookups. It
// remembers every label it accepted, so one validator must see one file.
type RowValidator struct {
	header  HeaderIndex
	lookups *Lookups
	seen    map[string]struct{}
}

// NewRowValidator creates a validator with an empty in-file label set.
func NewRowValidator(header HeaderIndex, lookups *Lookups) *RowValidator {
	return &RowValidator{
		header:  header,
		lookups: lookups,
		seen:    make(map[string]struct{}),
	}
}

// Validate checks one data row. It returns either a candidate or the
// reasons the row was rejected, never both.
//
// Missing required values are all reported together; every later check
// stops at its first failure.
func (v *RowValidator) Validate(row []string) (*Candidate, []string) {
	label := NormalizeLabel(v.header.Cell(row, RoleLabelID))
	typeVal := v.header.Cell(row, RoleAssetType)
	statusVal := v.header.Cell(row, RoleStatus)
	clientVal := v.header.Cell(row, RoleClient)
	warehouseVal := v.header.Cell(row, RoleWarehouse)
	zoneVal := v.header.Cell(row, RoleZone)
	notesVal := v.header.Cell(row, RoleNotes)

	var missing []string
	if label == "" {
		missing = append(missing, msgLabelRequired)
	}
	if typeVal == "" {
		missing = append(missing, msgAssetTypeRequired)
	}
	if statusVal == "" {
		missing = append(missing, msgStatusRequired)
	}
	if len(missing) > 0 {
		return nil, missing
	}

	if _, dup := v.seen[label]; dup {
		return nil, []string{msgDuplicateInFile}
	}
	if v.lookups.LabelExists(label) {
		return nil, []string{msgDuplicateInStore}
	}

	typeID, ok := v.lookups.ResolveAssetType(typeVal)
	if !ok {
		return nil, []string{msgAssetTypeUnresolved}
	}

	var clientID *int64
	if clientVal != "" {
		id, ok := v.lookups.ResolveClient(clientVal)
		if !ok {
			return nil, []string{msgClientUnresolved}
		}
		clientID = &id
	}

	if ZoneNeedsWarehouse(zoneVal != "", warehouseVal != "") {
		return nil, []string{msgZoneNeedsWarehouse}
	}

	var warehouseID, zoneID *int64
	if warehouseVal != "" {
		id, ok := v.lookups.ResolveWarehouse(warehouseVal)
		if !ok {
			return nil, []string{msgWarehouseUnresolved}
		}
		warehouseID = &id

		if zoneVal != "" {
			zid, ok := v.lookups.ResolveZone(id, zoneVal)
			if !ok {
				return nil, []string{msgZoneUnresolved}
			}
			zoneID = &zid
		}
	}

	status, ok := ParseStatus(statusVal)
	if !ok {
		return nil, []string{msgStatusInvalid}
	}

	if !NotesWithinLimit(notesVal) {
		return nil, []string{msgNotesTooLong}
	}

	v.seen[label] = struct{}{}

	var notes *string
	if notesVal != "" {
		notes = &notesVal
	}
	return &Candidate{
		LabelID:     label,
		AssetTypeID: typeID,
		Quantity:    1,
		ClientID:    clientID,
		WarehouseID: warehouseID,
		ZoneID:      zoneID,
		Status:      status,
		Notes:       notes,
	}, nil
}

// joinReasons renders row rejection reasons as one message.
func joinReasons(reasons []string) string {
	return strings.Join(reasons, " ")
}
