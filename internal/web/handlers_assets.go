package web

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/assettrack/internal/core"
	"github.com/JonMunkholm/assettrack/internal/metrics"
)

// handleListAssets returns one page of the organization's assets.
//
// Query parameters: search, assetTypeId, status, clientId, warehouseId,
// zoneId, page, limit. clientId also accepts "company" (or an empty value)
// for company-owned assets and "client" for any client-owned asset.
// Filters that do not parse are ignored.
func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	f := core.AssetFilter{
		Search:      strings.TrimSpace(q.Get("search")),
		AssetTypeID: queryID(r, "assetTypeId"),
		WarehouseID: queryID(r, "warehouseId"),
		ZoneID:      queryID(r, "zoneId"),
		Page:        parseIntParam(r, "page", 1),
		Limit:       parseIntParam(r, "limit", core.DefaultPageLimit),
	}
	if st, ok := core.ParseStatus(q.Get("status")); ok {
		f.Status = &st
	}
	if q.Has("clientId") {
		switch v := q.Get("clientId"); v {
		case "", "company":
			f.Ownership = core.OwnershipCompany
		case "client", "client_owned":
			f.Ownership = core.OwnershipClient
		default:
			f.ClientID = queryID(r, "clientId")
		}
	}

	page, err := s.service.ListAssets(r.Context(), actor.OrganizationID, f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, page)
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var in core.AssetInput
	if !decodeJSON(w, r, &in, nil) {
		return
	}

	asset, err := s.service.CreateAsset(r.Context(), actor, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, asset)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	asset, err := s.service.GetAsset(r.Context(), actor.OrganizationID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, asset)
}

func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var in core.AssetInput
	if !decodeJSON(w, r, &in, nil) {
		return
	}

	asset, err := s.service.UpdateAsset(r.Context(), actor, id, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, asset)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := s.service.DeleteAsset(r.Context(), actor.OrganizationID, id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// historyResponse is the body of a history read, newest entry first.
type historyResponse struct {
	Items []core.HistoryEntry `json:"items"`
}

func (s *Server) handleAssetHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	entries, err := s.service.History(r.Context(), actor.OrganizationID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, historyResponse{Items: entries})
}

// handleBulkUpdate applies one change set to many assets atomically.
func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var u core.BulkUpdate
	if !decodeJSON(w, r, &u, s.service.BulkShapeError()) {
		return
	}

	result, err := s.service.BulkUpdateAssets(r.Context(), actor, u)
	if err != nil {
		respondError(w, r, err)
		return
	}
	metrics.BulkUpdatedAssets.Add(float64(result.Updated))
	writeJSON(w, result)
}
