// Package handler exposes the UMID lifecycle and query operations over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"umid/internal/accesslog"
	"umid/internal/umid/models"
	"umid/internal/umid/service"
	id "umid/pkg/domain"
	dErrors "umid/pkg/domain-errors"
	"umid/pkg/platform/httputil"
	"umid/pkg/requestcontext"
)

// Service defines the lifecycle and query operations the handler needs.
type Service interface {
	Issue(ctx context.Context, caller models.Caller, req service.IssueRequest) (*service.IssueResult, error)
	UpdateLinkedData(ctx context.Context, caller models.Caller, umidID id.UMIDID, upd models.MedicalDataUpdate) (*models.UMID, error)
	UpdateSecuritySettings(ctx context.Context, caller models.Caller, umidID id.UMIDID, upd models.SecurityUpdate) (*models.UMID, error)
	Deactivate(ctx context.Context, caller models.Caller, umidID id.UMIDID) error
	GetAccessLogs(ctx context.Context, caller models.Caller, umidID id.UMIDID, limit int) ([]accesslog.Entry, error)
	CurrentCode(ctx context.Context, caller models.Caller, umidID id.UMIDID) (*service.CodeView, error)
	LinkedDataHistory(ctx context.Context, caller models.Caller, umidID id.UMIDID) ([]models.LinkedMedicalData, error)
	GetPatientUMIDs(ctx context.Context, caller models.Caller, patientID id.PatientID) ([]*models.UMID, error)
	GetAllUMIDs(ctx context.Context, caller models.Caller, filter models.Filter) ([]*models.UMID, error)
}

// Handler handles UMID endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a new UMID handler.
func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: svc,
		logger:  logger,
	}
}

// Register registers the patient-facing routes. Admin listing is registered
// separately so it can sit behind the admin middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/umids", h.HandleIssue)
	r.Patch("/umids/{umidID}/linked-data", h.HandleUpdateLinkedData)
	r.Patch("/umids/{umidID}/security", h.HandleUpdateSecurity)
	r.Post("/umids/{umidID}/deactivate", h.HandleDeactivate)
	r.Get("/umids/{umidID}/access-logs", h.HandleAccessLogs)
	r.Get("/umids/{umidID}/code", h.HandleCurrentCode)
	r.Get("/umids/{umidID}/linked-data/history", h.HandleLinkedDataHistory)
	r.Get("/patients/{patientID}/umids", h.HandlePatientUMIDs)
}

// RegisterAdmin registers the administrative listing.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/umids", h.HandleListAll)
}

// HandleIssue handles POST /umids.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.callerFrom(ctx, w)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	patientID := req.parsedPatientID
	if patientID.IsNil() {
		patientID = caller.ID.AsPatient()
	}

	res, err := h.service.Issue(ctx, caller, service.IssueRequest{
		PatientID:         patientID,
		Data:              req.Data,
		AllowedRoles:      req.parsedRoles,
		ToleranceSteps:    req.ToleranceSteps,
		QRRotation:        req.parsedRotation,
		EmergencyOverride: req.EmergencyOverride,
	})
	if err != nil {
		h.fail(ctx, w, "issue umid", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toIssueResponse(res))
}

// HandleUpdateLinkedData handles PATCH /umids/{umidID}/linked-data.
func (h *Handler) HandleUpdateLinkedData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.callerFrom(ctx, w)
	if !ok {
		return
	}
	umidID, ok := umidIDParam(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateLinkedDataRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	u, err := h.service.UpdateLinkedData(ctx, caller, umidID, req.MedicalDataUpdate)
	if err != nil {
		h.fail(ctx, w, "update linked data", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

// HandleUpdateSecurity handles PATCH /umids/{umidID}/security.
func (h *Handler) HandleUpdateSecurity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.callerFrom(ctx, w)
	if !ok {
		return
	}
	umidID, ok := umidIDParam(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateSecurityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	u, err := h.service.UpdateSecuritySettings(ctx, caller, umidID, req.parsed)
	if err != nil {
		h.fail(ctx, w, "update security settings", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

// HandleDeactivate handles POST /umids/{umidID}/deactivate.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.callerFrom(ctx, w)
	if !ok {
		return
	}
	umidID, ok := umidIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Deactivate(ctx, caller, umidID); err != nil {
		h.fail(ctx, w, "deactivate umid", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAccessLogs handles GET /umids/{umidID}/access-logs?limit=.
func (h *Handler) HandleAccessLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.callerFrom(ctx, w)
	if !ok {
		return
	}
	umidID, ok := umidIDParam(w, r)
	if !ok {
		return
	}
	limit, err := intQuery(r, "limit")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.GetAccessLogs(ctx, caller, umidID, limit)
	if err != nil {
		h.fail(ctx, w, "list access logs", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listOf(entries))
}

// HandleCurrentCode handles GET /umids/{umidID}/code.
func (h *Handler) HandleCurrentCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.callerFrom(ctx, w)
	if !ok {
		return
	}
	umidID, ok := umidIDParam(w, r)
	if !ok {
		return
	}

	view, err := h.service.CurrentCode(ctx, caller, umidID)
	if err != nil {
		h.fail(ctx, w, "current code", err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleLinkedDataHistory handles GET /umids/{umidID}/linked-data/history.
func (h *Handler) HandleLinkedDataHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.callerFrom(ctx, w)
	if !ok {
		return
	}
	umidID, ok := umidIDParam(w, r)
	if !ok {
		return
	}

	versions, err := h.service.LinkedDataHistory(ctx, caller, umidID)
	if err != nil {
		h.fail(ctx, w, "linked data history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listOf(versions))
}

// HandlePatientUMIDs handles GET /patients/{patientID}/umids.
func (h *Handler) HandlePatientUMIDs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.callerFrom(ctx, w)
	if !ok {
		return
	}
	patientID, err := id.ParsePatientID(chi.URLParam(r, "patientID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	umids, err := h.service.GetPatientUMIDs(ctx, caller, patientID)
	if err != nil {
		h.fail(ctx, w, "list patient umids", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listOf(umids))
}

// HandleListAll handles GET /admin/umids?active=&patient_id=&limit=&offset=.
func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.callerFrom(ctx, w)
	if !ok {
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	umids, err := h.service.GetAllUMIDs(ctx, caller, filter)
	if err != nil {
		h.fail(ctx, w, "list umids", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listOf(umids))
}

func (h *Handler) callerFrom(ctx context.Context, w http.ResponseWriter) (models.Caller, bool) {
	userID := requestcontext.UserID(ctx)
	if userID == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return models.Caller{}, false
	}
	return models.Caller{ID: userID, Role: requestcontext.Role(ctx)}, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal || dErrors.CodeOf(err) == dErrors.CodeUnavailable {
		h.logger.ErrorContext(ctx, "failed to "+action,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}

func umidIDParam(w http.ResponseWriter, r *http.Request) (id.UMIDID, bool) {
	umidID, err := id.ParseUMIDID(chi.URLParam(r, "umidID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.UMIDID{}, false
	}
	return umidID, true
}

func intQuery(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, key+" must be a non-negative integer")
	}
	return n, nil
}

func parseFilter(r *http.Request) (models.Filter, error) {
	var f models.Filter
	q := r.URL.Query()
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return f, dErrors.New(dErrors.CodeBadRequest, "active must be a boolean")
		}
		f.IsActive = &active
	}
	if raw := q.Get("patient_id"); raw != "" {
		patientID, err := id.ParsePatientID(raw)
		if err != nil {
			return f, err
		}
		f.PatientID = &patientID
	}
	var err error
	if f.Limit, err = intQuery(r, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = intQuery(r, "offset"); err != nil {
		return f, err
	}
	return f, nil
}
