// Package handler exposes code-gated access to linked medical data.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"umid/internal/access"
	id "umid/pkg/domain"
	"umid/pkg/platform/httputil"
	"umid/pkg/requestcontext"
)

// Service defines the interface for access verification.
type Service interface {
	RequestAccess(ctx context.Context, req access.Request) (*access.Result, error)
}

// Handler handles access requests.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a new access handler.
func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: svc,
		logger:  logger,
	}
}

// Register registers the access routes with the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/umids/{umidID}/access", h.HandleRequestAccess)
}

// AccessRequest is the HTTP request body for POST /umids/{umidID}/access.
type AccessRequest struct {
	Code string `json:"code"`
}

const (
	maxAccessBodyBytes = 4 << 10
	maxCodeLen         = 32
)

// decodeAccessRequest never rejects the attempt. An unreadable body is passed
// on as an empty code and an oversized code is truncated, so the verifier
// judges it malformed and the attempt is still logged.
func (h *Handler) decodeAccessRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) AccessRequest {
	var req AccessRequest
	body := http.MaxBytesReader(w, r.Body, maxAccessBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.WarnContext(ctx, "undecodable access request body",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return AccessRequest{}
	}
	if len(req.Code) > maxCodeLen {
		req.Code = req.Code[:maxCodeLen]
	}
	return req
}

// HandleRequestAccess handles POST /umids/{umidID}/access.
// A failed verification is a 200 with verified=false, including bodies that
// carry no usable code. Only identity and collaborator failures map to error
// statuses; a missing identity is still logged against the UMID by the service.
func (h *Handler) HandleRequestAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	umidID, err := id.ParseUMIDID(chi.URLParam(r, "umidID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req := h.decodeAccessRequest(ctx, w, r)
	result, err := h.service.RequestAccess(ctx, access.Request{
		UMIDID:       umidID,
		Code:         req.Code,
		AccessorRole: requestcontext.Role(ctx),
		AccessorID:   requestcontext.UserID(ctx),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "access request failed",
			"error", err,
			"umid_id", umidID,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
