package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Change labels produced by Summarize.
const (
	labelUpdated         = "Updated"
	labelLocationUpdated = "Location updated"
	labelOwnerUpdated    = "Owner updated"
	labelNotesUpdated    = "Notes updated"
)

// summarySeparator joins change labels for display.
const summarySeparator = " · "

// RecordHistory appends one snapshot of a to the audit trail. It must run
// inside the transaction that changed a.
func RecordHistory(ctx context.Context, w Writer, userID int64, a Asset, at time.Time) error {
	err := w.AppendHistory(ctx, AssetHistory{
		AssetID:   a.ID,
		UserID:    userID,
		ChangedAt: at,
		Snapshot:  SnapshotOf(a),
	})
	if err != nil {
		return fmt.Errorf("append history for asset %d: %w", a.ID, err)
	}
	return nil
}

// History returns the most recent history entries for an asset, newest
// first, each with a change summary against the entry before it.
func (s *Service) History(ctx context.Context, orgID, assetID int64) ([]HistoryEntry, error) {
	if _, err := s.repos.Assets.GetAsset(ctx, orgID, assetID); err != nil {
		return nil, notFoundOr(err, "Failed to load asset history.")
	}

	limit := s.opts.HistoryLimit
	// One extra row lets the oldest returned entry be compared with its predecessor.
	entries, err := s.repos.History.ListHistory(ctx, assetID, limit+1)
	if err != nil {
		return nil, persistence("Failed to load asset history.", err)
	}

	n := min(len(entries), limit)
	out := make([]HistoryEntry, n)
	for i := range n {
		out[i] = entries[i]
		var older *Snapshot
		if i+1 < len(entries) {
			older = &entries[i+1].Snapshot
		}
		out[i].Summary = Summarize(&entries[i].Snapshot, older)
	}
	return out, nil
}

// Summarize describes what changed from older to newer. Fields that did not
// change are left out. With no older snapshot, or no difference, the result
// is the single label "Updated".
func Summarize(newer, older *Snapshot) []string {
	if newer == nil || older == nil {
		return []string{labelUpdated}
	}

	var labels []string
	if newer.Status != older.Status {
		labels = append(labels, "Status: "+newer.Status.Label())
	}
	if !sameID(newer.WarehouseID, older.WarehouseID) || !sameID(newer.ZoneID, older.ZoneID) {
		labels = append(labels, labelLocationUpdated)
	}
	if !sameID(newer.ClientID, older.ClientID) {
		labels = append(labels, labelOwnerUpdated)
	}
	if newer.Quantity != older.Quantity {
		labels = append(labels, "Quantity: "+strconv.Itoa(newer.Quantity))
	}
	if !sameText(newer.Notes, older.Notes) {
		labels = append(labels, labelNotesUpdated)
	}

	if len(labels) == 0 {
		return []string{labelUpdated}
	}
	return labels
}

// SummaryText joins change labels into one display line.
func SummaryText(labels []string) string {
	return strings.Join(labels, summarySeparator)
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameText(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
