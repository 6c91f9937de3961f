package core

import (
	"context"
	"errors"

	"github.com/JonMunkholm/assettrack/internal/logging"
)

// Listing bounds.
const (
	DefaultPageLimit = 25
	MaxPageLimit     = 100
)

const msgHasHistory = "Cannot delete: this asset has change history."

// CreateAsset validates in, stores the asset and its first history row in
// one transaction, and returns the stored asset with relations.
func (s *Service) CreateAsset(ctx context.Context, actor Actor, in AssetInput) (AssetDetail, error) {
	orgID := actor.OrganizationID
	if err := s.ValidateAsset(ctx, orgID, in, 0); err != nil {
		return AssetDetail{}, err
	}

	status, _ := ParseStatus(in.Status)
	a := Asset{
		OrganizationID: orgID,
		LabelID:        NormalizeLabel(in.LabelID),
		AssetTypeID:    in.AssetTypeID,
		Quantity:       1,
		ClientID:       in.ClientID,
		WarehouseID:    in.WarehouseID,
		ZoneID:         in.ZoneID,
		Status:         status,
		Notes:          NormalizeNotes(in.Notes),
	}
	if in.Quantity != nil {
		a.Quantity = *in.Quantity
	}

	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now

	var created Asset
	err := s.repos.Tx.InTx(ctx, func(ctx context.Context, w Writer) error {
		var err error
		created, err = w.CreateAsset(ctx, a)
		if err != nil {
			return err
		}
		return RecordHistory(ctx, w, actor.UserID, created, now)
	})
	if err != nil {
		return AssetDetail{}, s.mutationFailure(ctx, "create asset", err)
	}

	logging.WithFields(ctx, "organization_id", orgID, "asset_id", created.ID).
		Info("asset created", "label_id", created.LabelID)
	return s.GetAsset(ctx, orgID, created.ID)
}

// UpdateAsset replaces the editable fields of asset id and appends a history
// row in the same transaction. A nil Quantity keeps the stored quantity.
func (s *Service) UpdateAsset(ctx context.Context, actor Actor, id int64, in AssetInput) (AssetDetail, error) {
	orgID := actor.OrganizationID
	existing, err := s.repos.Assets.GetAsset(ctx, orgID, id)
	if err != nil {
		return AssetDetail{}, notFoundOr(err, "Failed to load asset.")
	}

	if in.Quantity == nil {
		q := existing.Quantity
		in.Quantity = &q
	}
	if err := s.ValidateAsset(ctx, orgID, in, id); err != nil {
		return AssetDetail{}, err
	}

	status, _ := ParseStatus(in.Status)
	next := existing
	next.LabelID = NormalizeLabel(in.LabelID)
	next.AssetTypeID = in.AssetTypeID
	next.Quantity = *in.Quantity
	next.ClientID = in.ClientID
	next.WarehouseID = in.WarehouseID
	next.ZoneID = in.ZoneID
	next.Status = status
	next.Notes = NormalizeNotes(in.Notes)

	now := s.now()
	next.UpdatedAt = now

	err = s.repos.Tx.InTx(ctx, func(ctx context.Context, w Writer) error {
		updated, err := w.UpdateAsset(ctx, next)
		if err != nil {
			return err
		}
		return RecordHistory(ctx, w, actor.UserID, updated, now)
	})
	if err != nil {
		return AssetDetail{}, s.mutationFailure(ctx, "update asset", err)
	}
	return s.GetAsset(ctx, orgID, id)
}

// mutationFailure maps a failed single-record transaction. A unique
// violation that slipped past validation is still a 409.
func (s *Service) mutationFailure(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, ErrDuplicateLabel):
		return &Error{Kind: KindConflict, Message: msgLabelIDInUse, Err: err}
	case errors.Is(err, ErrNotFound):
		return notFound()
	}
	logging.FromContext(ctx).Error(op+" failed", "error", err, "code", MapError(err).Code)
	return persistence("Failed to save asset. Please try again.", err)
}

// GetAsset returns one asset with its relations.
func (s *Service) GetAsset(ctx context.Context, orgID, id int64) (AssetDetail, error) {
	d, err := s.repos.Assets.GetAssetDetail(ctx, orgID, id)
	if err != nil {
		return AssetDetail{}, notFoundOr(err, "Failed to load asset.")
	}
	return d, nil
}

// ListAssets returns one page of the organization's assets, most recently
// updated first. Page and limit are clamped to valid values.
func (s *Service) ListAssets(ctx context.Context, orgID int64, f AssetFilter) (AssetPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}

	page, err := s.repos.Assets.ListAssets(ctx, orgID, f)
	if err != nil {
		return AssetPage{}, persistence("Failed to list assets.", err)
	}
	page.Page, page.Limit = f.Page, f.Limit
	if page.Items == nil {
		page.Items = []AssetDetail{}
	}
	return page, nil
}

// DeleteAsset removes an asset that has no history. Assets with history are
// kept for the life of their audit trail.
func (s *Service) DeleteAsset(ctx context.Context, orgID, id int64) error {
	if _, err := s.repos.Assets.GetAsset(ctx, orgID, id); err != nil {
		return notFoundOr(err, "Failed to load asset.")
	}

	n, err := s.repos.History.CountHistory(ctx, id)
	if err != nil {
		return persistence("Failed to delete asset.", err)
	}
	if n > 0 {
		return &Error{Kind: KindConflict, Message: msgHasHistory, Err: ErrHasDependents}
	}

	if err := s.repos.Assets.DeleteAsset(ctx, orgID, id); err != nil {
		if errors.Is(err, ErrHasDependents) {
			return &Error{Kind: KindConflict, Message: msgHasHistory, Err: err}
		}
		return notFoundOr(err, "Failed to delete asset.")
	}
	return nil
}
