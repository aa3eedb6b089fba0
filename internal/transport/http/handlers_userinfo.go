package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	principalstore "scangate/internal/principal/store"
	dErrors "scangate/pkg/domain-errors"
	"scangate/pkg/httputil"
	"scangate/pkg/requestcontext"
)

// UserInfoHandler serves the authenticated profile endpoint.
type UserInfoHandler struct {
	principals principalstore.Store
	logger     *slog.Logger
}

func NewUserInfoHandler(principals principalstore.Store, logger *slog.Logger) *UserInfoHandler {
	return &UserInfoHandler{principals: principals, logger: logger}
}

type userInfoResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// HandleUserInfo handles GET /auth/userinfo. The gate verified the token and
// the principal's existence; the handler re-reads the record for fresh data.
func (h *UserInfoHandler) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	p, err := h.principals.FindByID(ctx, userID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeNotFound {
			// The token verified against a principal that has since vanished.
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "unknown principal"))
			return
		}
		h.logger.ErrorContext(ctx, "principal lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, userInfoResponse{
		ID:        p.ID,
		Email:     p.Email,
		Role:      string(p.Role),
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
	})
}
