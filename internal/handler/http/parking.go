package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/parking"
	"github.com/cmlabs-parking/parking-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type ParkingHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	RecordExit(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	LinkUnassigned(w http.ResponseWriter, r *http.Request)
	RateSchedule(w http.ResponseWriter, r *http.Request)
}

type ParkingHandlerImpl struct {
	parkingService parking.Service
	identity       Identity
}

func NewParkingHandler(parkingService parking.Service, identity Identity) ParkingHandler {
	return &ParkingHandlerImpl{
		parkingService: parkingService,
		identity:       identity,
	}
}

// Create handles POST /parking-entries
func (h *ParkingHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req parking.CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("CreateEntry decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	if employeeID, err := h.identity.CurrentEmployeeID(r.Context()); err == nil {
		req.CreatedBy = &employeeID
	}

	entry, err := h.parkingService.CreateEntry(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Parking entry created successfully", parking.NewEntryResponse(entry, time.Now()))
}

// List handles GET /parking-entries
func (h *ParkingHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := parking.EntryFilter{UnassignedOnly: query.Get("unassigned_only") == "true"}
	if v := query.Get("shift_session_id"); v != "" {
		filter.ShiftSessionID = &v
	}
	if v := query.Get("status"); v != "" {
		filter.Status = &v
	}

	var ok bool
	if filter.Limit, ok = queryInt(w, r, "limit"); !ok {
		return
	}
	if filter.Offset, ok = queryInt(w, r, "offset"); !ok {
		return
	}

	if err := filter.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	entries, total, err := h.parkingService.ListEntries(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	now := time.Now()
	resp := make([]parking.EntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, parking.NewEntryResponse(e, now))
	}
	response.SuccessWithMeta(w, resp, response.NewMeta(filter.Limit, filter.Offset, total))
}

// Get handles GET /parking-entries/{id}
func (h *ParkingHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.parkingService.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, parking.NewEntryResponse(entry, time.Now()))
}

// Update handles PATCH /parking-entries/{id}
func (h *ParkingHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	var req parking.UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("UpdateEntry decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EntryID = chi.URLParam(r, "id")

	entry, err := h.parkingService.UpdateEntry(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Parking entry updated successfully", parking.NewEntryResponse(entry, time.Now()))
}

// RecordExit handles POST /parking-entries/{id}/exit
func (h *ParkingHandlerImpl) RecordExit(w http.ResponseWriter, r *http.Request) {
	var req parking.RecordExitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("RecordExit decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.EntryID = chi.URLParam(r, "id")

	entry, err := h.parkingService.RecordExit(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Vehicle exit recorded", parking.NewEntryResponse(entry, time.Now()))
}

// Delete handles DELETE /parking-entries/{id}
func (h *ParkingHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.parkingService.DeleteEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Parking entry deleted successfully", nil)
}

// LinkUnassigned handles POST /parking-entries/link-unassigned
func (h *ParkingHandlerImpl) LinkUnassigned(w http.ResponseWriter, r *http.Request) {
	result, err := h.parkingService.LinkUnassignedEntries(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// RateSchedule handles GET /parking-entries/rates
func (h *ParkingHandlerImpl) RateSchedule(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.parkingService.RateSchedule())
}
