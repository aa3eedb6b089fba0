package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"scangate/internal/audit"
	dErrors "scangate/pkg/domain-errors"
	"scangate/pkg/httputil"
	"scangate/pkg/requestcontext"
)

// AuditHandler serves the gated site-audit endpoint.
type AuditHandler struct {
	dispatcher *audit.Dispatcher
	logger     *slog.Logger
}

func NewAuditHandler(dispatcher *audit.Dispatcher, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{dispatcher: dispatcher, logger: logger}
}

type createAuditRequest struct {
	// GuestID is consumed by the gate before the handler runs; it is decoded
	// here only so unknown-field-strict clients see the full schema.
	GuestID string `json:"guestId,omitempty"`
	URL     string `json:"url"`
}

type createAuditResponse struct {
	Job *audit.Job `json:"job"`
	// QuotaRemaining is present only for guest requests.
	QuotaRemaining *int `json:"quota_remaining,omitempty"`
}

// HandleCreate handles POST /audit. The gate has already admitted the request
// by the time this runs.
func (h *AuditHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}

	job, err := h.dispatcher.Enqueue(ctx, req.URL)
	if err != nil {
		h.logger.WarnContext(ctx, "audit enqueue failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := createAuditResponse{Job: job}
	if remaining := requestcontext.QuotaRemaining(ctx); remaining >= 0 {
		resp.QuotaRemaining = &remaining
	}

	h.logger.InfoContext(ctx, "audit accepted",
		"request_id", requestcontext.RequestID(ctx),
		"job_id", job.ID,
	)
	httputil.WriteJSON(w, http.StatusAccepted, resp)
}
