package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-parking/parking-backend-go/internal/domain/shift"
	"github.com/cmlabs-parking/parking-backend-go/internal/handler/http/response"
	"github.com/cmlabs-parking/parking-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type ShiftHandler interface {
	Start(w http.ResponseWriter, r *http.Request)
	End(w http.ResponseWriter, r *http.Request)
	Handover(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	GetActive(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Sync(w http.ResponseWriter, r *http.Request)
	ListChanges(w http.ResponseWriter, r *http.Request)
	AmendChange(w http.ResponseWriter, r *http.Request)
	History(w http.ResponseWriter, r *http.Request)
	DailySummary(w http.ResponseWriter, r *http.Request)
}

// Identity resolves the caller from the verified token.
type Identity interface {
	CurrentEmployeeID(ctx context.Context) (string, error)
	CurrentEmployeeName(ctx context.Context) string
}

type ShiftHandlerImpl struct {
	shiftService shift.ShiftService
	syncer       shift.StatisticsSyncer
	identity     Identity
	location     *time.Location
}

func NewShiftHandler(shiftService shift.ShiftService, syncer shift.StatisticsSyncer, identity Identity, location *time.Location) ShiftHandler {
	if location == nil {
		location = time.UTC
	}
	return &ShiftHandlerImpl{
		shiftService: shiftService,
		syncer:       syncer,
		identity:     identity,
		location:     location,
	}
}

// Start handles POST /shifts/start. The caller starts their own shift unless
// an employee is named in the body.
func (h *ShiftHandlerImpl) Start(w http.ResponseWriter, r *http.Request) {
	var req shift.StartShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("StartShift decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if validator.IsEmpty(req.EmployeeID) {
		employeeID, err := h.identity.CurrentEmployeeID(r.Context())
		if err != nil {
			response.HandleError(w, err)
			return
		}
		req.EmployeeID = employeeID
		if validator.IsEmpty(req.EmployeeName) {
			req.EmployeeName = h.identity.CurrentEmployeeName(r.Context())
		}
	}

	session, err := h.shiftService.StartShift(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Shift started successfully", shift.NewSessionResponse(session, time.Now()))
}

// End handles POST /shifts/{id}/end
func (h *ShiftHandlerImpl) End(w http.ResponseWriter, r *http.Request) {
	var req shift.EndShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("EndShift decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ShiftID = chi.URLParam(r, "id")

	result, err := h.shiftService.EndShift(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Shift ended successfully", result)
}

// Handover handles POST /shifts/{id}/handover
func (h *ShiftHandlerImpl) Handover(w http.ResponseWriter, r *http.Request) {
	var req shift.HandoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Handover decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.OutgoingShiftID = chi.URLParam(r, "id")

	result, err := h.shiftService.PerformHandover(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Shift handed over successfully", result)
}

// Update handles PATCH /shifts/{id}
func (h *ShiftHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	var req shift.UpdateShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("UpdateShift decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ShiftID = chi.URLParam(r, "id")

	session, err := h.shiftService.UpdateShift(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Shift updated successfully", shift.NewSessionResponse(session, time.Now()))
}

// GetActive handles GET /shifts/active. No active shift is not an error.
func (h *ShiftHandlerImpl) GetActive(w http.ResponseWriter, r *http.Request) {
	active, err := h.shiftService.GetCurrentActiveShift(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if active == nil {
		response.SuccessWithMessage(w, "No active shift", nil)
		return
	}

	response.Success(w, shift.NewSessionResponse(active.Session, time.Now()))
}

// Get handles GET /shifts/{id}
func (h *ShiftHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.shiftService.GetShift(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, shift.NewSessionResponse(session, time.Now()))
}

// Sync handles POST /shifts/{id}/sync
func (h *ShiftHandlerImpl) Sync(w http.ResponseWriter, r *http.Request) {
	shiftID := chi.URLParam(r, "id")
	if _, err := h.syncer.SyncShiftStatistics(r.Context(), shiftID); err != nil {
		response.HandleError(w, err)
		return
	}

	session, err := h.shiftService.GetShift(r.Context(), shiftID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Shift statistics synced", shift.NewSessionResponse(session, time.Now()))
}

// ListChanges handles GET /shifts/{id}/changes
func (h *ShiftHandlerImpl) ListChanges(w http.ResponseWriter, r *http.Request) {
	changes, err := h.shiftService.ListShiftChanges(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	resp := make([]shift.ChangeRecordResponse, 0, len(changes))
	for _, c := range changes {
		resp = append(resp, shift.NewChangeRecordResponse(c))
	}
	response.Success(w, resp)
}

// AmendChange handles PATCH /shift-changes/{id}
func (h *ShiftHandlerImpl) AmendChange(w http.ResponseWriter, r *http.Request) {
	var req shift.AmendChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("AmendChange decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.ChangeID = chi.URLParam(r, "id")

	record, err := h.shiftService.AmendShiftChange(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Shift change amended successfully", shift.NewChangeRecordResponse(record))
}

// History handles GET /shifts/history/{employeeId}
func (h *ShiftHandlerImpl) History(w http.ResponseWriter, r *http.Request) {
	filter := shift.HistoryFilter{EmployeeID: chi.URLParam(r, "employeeId")}

	var ok bool
	if filter.Limit, ok = queryInt(w, r, "limit"); !ok {
		return
	}
	if filter.Offset, ok = queryInt(w, r, "offset"); !ok {
		return
	}

	sessions, err := h.shiftService.GetEmployeeShiftHistory(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	now := time.Now()
	resp := make([]shift.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, shift.NewSessionResponse(s, now))
	}
	response.Success(w, resp)
}

// DailySummary handles GET /shifts/summary/daily?date=YYYY-MM-DD; today when omitted
func (h *ShiftHandlerImpl) DailySummary(w http.ResponseWriter, r *http.Request) {
	date := time.Now().In(h.location)
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, h.location)
		if err != nil {
			response.BadRequest(w, "invalid date parameter, expected YYYY-MM-DD", nil)
			return
		}
		date = parsed
	}

	summary, err := h.shiftService.GetDailyShiftSummary(r.Context(), date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, shift.NewDailySummaryResponse(summary, time.Now()))
}

// queryInt reads an optional integer query parameter, answering 400 itself on bad input.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		response.BadRequest(w, "invalid "+name+" parameter", nil)
		return 0, false
	}
	return v, true
}
