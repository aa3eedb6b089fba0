package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scangate/internal/quota"
	quotaservice "scangate/internal/quota/service"
	dErrors "scangate/pkg/domain-errors"
	"scangate/pkg/httputil"
	"scangate/pkg/requestcontext"
)

// AdminHandler serves quota inspection and reset for operators.
type AdminHandler struct {
	quota  *quotaservice.Service
	logger *slog.Logger
}

func NewAdminHandler(quota *quotaservice.Service, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{quota: quota, logger: logger}
}

type quotaListResponse struct {
	Limit   int                  `json:"limit"`
	Records []*quota.UsageRecord `json:"records"`
}

// HandleList handles GET /admin/quota.
func (h *AdminHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.quota.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "quota list failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if records == nil {
		records = []*quota.UsageRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, quotaListResponse{
		Limit:   h.quota.Limit(),
		Records: records,
	})
}

// HandleGet handles GET /admin/quota/{guestID}.
func (h *AdminHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guestID := chi.URLParam(r, "guestID")

	record, err := h.quota.Usage(ctx, guestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if record == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no usage recorded for guest"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleReset handles DELETE /admin/quota/{guestID}.
func (h *AdminHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guestID := chi.URLParam(r, "guestID")

	if err := h.quota.Reset(ctx, guestID); err != nil {
		h.logger.ErrorContext(ctx, "quota reset failed",
			"request_id", requestcontext.RequestID(ctx),
			"guest_id", guestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "quota reset",
		"request_id", requestcontext.RequestID(ctx),
		"guest_id", guestID,
		"admin_id", requestcontext.UserID(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}
