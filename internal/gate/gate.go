// Package gate decides admission for protected operations. Every request
// resolves to exactly one of two paths: a bearer token that must verify, or a
// guest identity that must pass the daily quota. A rejection on either path
// is terminal; the gate never falls back from a bad token to the guest path,
// since that would let expired credentials shed their identity and consume
// guest quota instead.
package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"scangate/internal/platform/events"
	"scangate/internal/platform/metrics"
	"scangate/internal/principal"
	"scangate/internal/quota"
	"scangate/internal/token"
	dErrors "scangate/pkg/domain-errors"
	"scangate/pkg/httputil"
	"scangate/pkg/requestcontext"
)

// TokenVerifier validates bearer credentials. Authorize takes the identity
// Verify decoded so role gating never parses the same token twice.
type TokenVerifier interface {
	Verify(ctx context.Context, tokenString string) (*token.Identity, error)
	Authorize(ctx context.Context, identity *token.Identity, role principal.Role) error
}

// QuotaChecker applies the guest admission decision.
type QuotaChecker interface {
	CheckAndConsume(ctx context.Context, guestID string) (*quota.Decision, error)
}

// Gate wires the verifier and quota ledger into HTTP middleware.
type Gate struct {
	verifier       TokenVerifier
	quota          QuotaChecker
	logger         *slog.Logger
	auditPublisher events.Publisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(g *Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

func WithAuditPublisher(publisher events.Publisher) Option {
	return func(g *Gate) {
		g.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

// New constructs a Gate.
func New(verifier TokenVerifier, quota QuotaChecker, opts ...Option) *Gate {
	g := &Gate{
		verifier: verifier,
		quota:    quota,
		tracer:   otel.Tracer("scangate/gate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

const bearerPrefix = "Bearer "

// Guard admits requests on the dual-path policy: authenticated callers pass
// on a valid token, anonymous callers pass on available quota.
func (g *Gate) Guard() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := g.tracer.Start(r.Context(), "gate.admission")
			defer span.End()

			if tokenString, ok := bearerToken(r); ok {
				g.admitAuthenticated(ctx, span, w, r, next, tokenString, start)
				return
			}
			g.admitGuest(ctx, span, w, r, next, start)
		})
	}
}

func (g *Gate) admitAuthenticated(ctx context.Context, span trace.Span, w http.ResponseWriter, r *http.Request, next http.Handler, tokenString string, start time.Time) {
	identity, err := g.verifier.Verify(ctx, tokenString)
	if err != nil {
		g.reject(ctx, span, w, err, events.Event{Reason: "invalid_token", Decision: "rejected"}, start)
		return
	}

	kind := strings.ToLower(identity.Role.String())
	span.SetAttributes(
		attribute.String("gate.outcome", "admitted"),
		attribute.String("gate.kind", kind),
	)
	g.observe(start)
	if g.metrics != nil {
		g.metrics.IncrementAdmitted(kind)
	}
	events.LogAudit(ctx, g.logger, g.auditPublisher, events.ActionRequestAdmitted, events.Event{
		Subject:  identity.SubjectID,
		Decision: "admitted",
		Reason:   kind,
	})

	ctx = requestcontext.WithUserID(ctx, identity.SubjectID)
	ctx = requestcontext.WithUserRole(ctx, string(identity.Role))
	next.ServeHTTP(w, r.WithContext(ctx))
}

func (g *Gate) admitGuest(ctx context.Context, span trace.Span, w http.ResponseWriter, r *http.Request, next http.Handler, start time.Time) {
	guestID, err := resolveGuestID(r)
	if err != nil {
		g.reject(ctx, span, w, err, events.Event{Reason: "missing_guest_identity", Decision: "rejected"}, start)
		return
	}

	decision, err := g.quota.CheckAndConsume(ctx, guestID)
	if err != nil {
		g.reject(ctx, span, w, err, events.Event{Subject: guestID, Reason: "quota_check_failed", Decision: "rejected"}, start)
		return
	}

	writeQuotaHeaders(w, decision)

	if !decision.Admitted {
		span.SetAttributes(
			attribute.String("gate.outcome", "rejected"),
			attribute.String("gate.reason", "quota_exceeded"),
		)
		g.observe(start)
		if g.metrics != nil {
			g.metrics.IncrementRejected("quota_exceeded")
		}
		httputil.WriteJSON(w, http.StatusForbidden, quotaExceededResponse{
			Error:     string(dErrors.CodeQuotaExceeded),
			Message:   "daily audit limit reached, sign in to continue",
			Limit:     decision.Limit,
			Remaining: 0,
			Day:       decision.Day,
		})
		return
	}

	span.SetAttributes(
		attribute.String("gate.outcome", "admitted"),
		attribute.String("gate.kind", "guest"),
	)
	g.observe(start)
	if g.metrics != nil {
		g.metrics.IncrementAdmitted("guest")
	}
	events.LogAudit(ctx, g.logger, g.auditPublisher, events.ActionRequestAdmitted, events.Event{
		Subject:  guestID,
		Decision: "admitted",
		Reason:   "guest",
	})

	ctx = requestcontext.WithGuestID(ctx, guestID)
	ctx = requestcontext.WithQuotaRemaining(ctx, decision.Remaining)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// RequireUser admits any authenticated caller whose principal is active.
func (g *Gate) RequireUser() func(http.Handler) http.Handler {
	return g.require(principal.RoleUser, principal.RoleAdmin)
}

// RequireAdmin admits only active admin principals.
func (g *Gate) RequireAdmin() func(http.Handler) http.Handler {
	return g.require(principal.RoleAdmin)
}

func (g *Gate) require(roles ...principal.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := g.tracer.Start(r.Context(), "gate.require_role")
			defer span.End()

			tokenString, ok := bearerToken(r)
			if !ok {
				err := dErrors.New(dErrors.CodeUnauthorized, "missing bearer token")
				g.reject(ctx, span, w, err, events.Event{Reason: "missing_token", Decision: "rejected"}, start)
				return
			}

			identity, err := g.verifyAnyRole(ctx, tokenString, roles)
			if err != nil {
				g.reject(ctx, span, w, err, events.Event{Reason: "insufficient_role", Decision: "rejected"}, start)
				return
			}

			span.SetAttributes(
				attribute.String("gate.outcome", "admitted"),
				attribute.String("gate.kind", strings.ToLower(identity.Role.String())),
			)
			g.observe(start)

			ctx = requestcontext.WithUserID(ctx, identity.SubjectID)
			ctx = requestcontext.WithUserRole(ctx, string(identity.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// verifyAnyRole decodes the token once and applies role-scoped authorization
// against each accepted role. The claimed role determines which check can
// succeed, so at most one principal lookup is performed.
func (g *Gate) verifyAnyRole(ctx context.Context, tokenString string, roles []principal.Role) (*token.Identity, error) {
	identity, err := g.verifier.Verify(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		if identity.Role == role {
			if err := g.verifier.Authorize(ctx, identity, role); err != nil {
				return nil, err
			}
			return identity, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeUnauthorized, "insufficient role")
}

func (g *Gate) reject(ctx context.Context, span trace.Span, w http.ResponseWriter, err error, event events.Event, start time.Time) {
	code := dErrors.CodeOf(err)
	span.SetAttributes(
		attribute.String("gate.outcome", "rejected"),
		attribute.String("gate.reason", string(code)),
	)
	g.observe(start)

	if g.metrics != nil {
		g.metrics.IncrementRejected(event.Reason)
	}
	if g.logger != nil {
		g.logger.WarnContext(ctx, "request rejected",
			"reason", event.Reason,
			"code", code,
			"error", err,
		)
	}
	events.LogAudit(ctx, g.logger, g.auditPublisher, events.ActionRequestRejected, event)

	httputil.WriteError(w, err)
}

func (g *Gate) observe(start time.Time) {
	if g.metrics != nil {
		g.metrics.ObserveGate(time.Since(start))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, bearerPrefix); ok && after != "" {
		return after, true
	}
	return "", false
}

// guestIDHeader carries the guest identifier for bodyless requests where a
// JSON payload does not apply.
const guestIDHeader = "X-Guest-ID"

// resolveGuestID extracts the client-supplied guest identifier, preferring
// the JSON body's guestId field and falling back to the X-Guest-ID header;
// the body is restored for the handler. The server never fabricates a guest
// identity: a request with no usable identifier is rejected so unquota'd
// traffic cannot slip through as an ephemeral guest.
func resolveGuestID(r *http.Request) (string, error) {
	if r.Body != nil && r.ContentLength != 0 {
		bodyBytes, err := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable request body")
		}

		var payload struct {
			GuestID string `json:"guestId"`
		}
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			return "", dErrors.New(dErrors.CodeBadRequest, "malformed request body")
		}
		if guestID := strings.TrimSpace(payload.GuestID); guestID != "" {
			return guestID, nil
		}
	}

	if guestID := strings.TrimSpace(r.Header.Get(guestIDHeader)); guestID != "" {
		return guestID, nil
	}
	return "", dErrors.New(dErrors.CodeBadRequest, "guest identity required")
}

type quotaExceededResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Day       string `json:"day"`
}

func writeQuotaHeaders(w http.ResponseWriter, decision *quota.Decision) {
	w.Header().Set("X-Quota-Limit", strconv.Itoa(decision.Limit))
	w.Header().Set("X-Quota-Remaining", strconv.Itoa(decision.Remaining))
}
