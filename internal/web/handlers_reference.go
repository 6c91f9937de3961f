package web

// handlers_reference.go serves the organization's reference data: asset
// types, clients, warehouses and zones. All four share the same shape, so
// the handlers are thin bindings over the generic helpers at the bottom.

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/assettrack/internal/core"
)

func (s *Server) handleListAssetTypes(w http.ResponseWriter, r *http.Request) {
	serveList(w, r, s.service.ListAssetTypes)
}

func (s *Server) handleGetAssetType(w http.ResponseWriter, r *http.Request) {
	serveGet(w, r, s.service.GetAssetType)
}

func (s *Server) handleCreateAssetType(w http.ResponseWriter, r *http.Request) {
	serveCreate(w, r, s.service.CreateAssetType)
}

func (s *Server) handleUpdateAssetType(w http.ResponseWriter, r *http.Request) {
	serveUpdate(w, r, s.service.UpdateAssetType)
}

func (s *Server) handleDeleteAssetType(w http.ResponseWriter, r *http.Request) {
	serveDelete(w, r, s.service.DeleteAssetType)
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	serveList(w, r, s.service.ListClients)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	serveGet(w, r, s.service.GetClient)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	serveCreate(w, r, s.service.CreateClient)
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	serveUpdate(w, r, s.service.UpdateClient)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	serveDelete(w, r, s.service.DeleteClient)
}

func (s *Server) handleListWarehouses(w http.ResponseWriter, r *http.Request) {
	serveList(w, r, s.service.ListWarehouses)
}

func (s *Server) handleGetWarehouse(w http.ResponseWriter, r *http.Request) {
	serveGet(w, r, s.service.GetWarehouse)
}

func (s *Server) handleCreateWarehouse(w http.ResponseWriter, r *http.Request) {
	serveCreate(w, r, s.service.CreateWarehouse)
}

func (s *Server) handleUpdateWarehouse(w http.ResponseWriter, r *http.Request) {
	serveUpdate(w, r, s.service.UpdateWarehouse)
}

func (s *Server) handleDeleteWarehouse(w http.ResponseWriter, r *http.Request) {
	serveDelete(w, r, s.service.DeleteWarehouse)
}

func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	serveList(w, r, s.service.ListZones)
}

func (s *Server) handleGetZone(w http.ResponseWriter, r *http.Request) {
	serveGet(w, r, s.service.GetZone)
}

func (s *Server) handleCreateZone(w http.ResponseWriter, r *http.Request) {
	serveCreate(w, r, s.service.CreateZone)
}

func (s *Server) handleUpdateZone(w http.ResponseWriter, r *http.Request) {
	serveUpdate(w, r, s.service.UpdateZone)
}

func (s *Server) handleDeleteZone(w http.ResponseWriter, r *http.Request) {
	serveDelete(w, r, s.service.DeleteZone)
}

func serveList[T any](w http.ResponseWriter, r *http.Request, list func(context.Context, int64) ([]T, error)) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	items, err := list(r.Context(), actor.OrganizationID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, items)
}

func serveGet[T any](w http.ResponseWriter, r *http.Request, get func(context.Context, int64, int64) (T, error)) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	item, err := get(r.Context(), actor.OrganizationID, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, item)
}

func serveCreate[In, T any](w http.ResponseWriter, r *http.Request, create func(context.Context, int64, In) (T, error)) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var in In
	if !decodeJSON(w, r, &in, nil) {
		return
	}
	item, err := create(r.Context(), actor.OrganizationID, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, item)
}

func serveUpdate[In, T any](w http.ResponseWriter, r *http.Request, update func(context.Context, int64, int64, In) (T, error)) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in In
	if !decodeJSON(w, r, &in, nil) {
		return
	}
	item, err := update(r.Context(), actor.OrganizationID, id, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, item)
}

// serveDelete passes the whole actor; the service enforces the admin role
// on deletes.
func serveDelete(w http.ResponseWriter, r *http.Request, del func(context.Context, core.Actor, int64) error) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := del(r.Context(), actor, id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
