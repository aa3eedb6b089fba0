// Package sessionclient reconciles a client's session with the gateway after
// page load. It handles the one-time token handoff from social login, keeps a
// persistent guest identity for anonymous use, and degrades to anonymous when
// the stored credential no longer verifies.
package sessionclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"scangate/pkg/secrets"
)

// Profile is the authenticated identity as reported by the gateway.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session is the reconciled client state for this page view.
type Session struct {
	Authenticated bool
	User          *Profile
	// GuestID is set only for anonymous sessions.
	GuestID string
}

// Reconciler drives the session handshake against the gateway.
type Reconciler struct {
	store      Store
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(r *Reconciler)

func WithHTTPClient(client *http.Client) Option {
	return func(r *Reconciler) {
		r.httpClient = client
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// New constructs a Reconciler talking to the gateway at baseURL.
func New(store Store, baseURL string, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:      store,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile resolves the session for a page load. pageURL is the full URL the
// page was opened with; if it carries a one-time ?token= parameter from a
// completed social login, the token is persisted and the returned URL has the
// parameter removed so the credential never lingers in history or logs.
//
// The outcome is always a usable session: authenticated when the stored token
// verifies, anonymous otherwise. Only a definitive rejection (401/403)
// discards the stored token; transient transport failures keep it for the
// next attempt.
func (r *Reconciler) Reconcile(ctx context.Context, pageURL string) (*Session, string, error) {
	cleanURL, err := r.captureHandoffToken(pageURL)
	if err != nil {
		return nil, pageURL, err
	}

	tokenString, err := r.store.Token()
	if err != nil {
		return nil, cleanURL, fmt.Errorf("load stored token: %w", err)
	}
	if tokenString == "" {
		session, err := r.anonymousSession()
		return session, cleanURL, err
	}

	profile, status, err := r.fetchProfile(ctx, tokenString)
	switch {
	case err != nil:
		// Network-level failure: the token may still be good.
		if r.logger != nil {
			r.logger.WarnContext(ctx, "profile fetch failed, degrading to anonymous", "error", err)
		}
		session, err := r.anonymousSession()
		return session, cleanURL, err
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		// The gateway rejected the credential outright; it will never verify
		// again, so drop it.
		if err := r.store.ClearToken(); err != nil {
			return nil, cleanURL, fmt.Errorf("clear rejected token: %w", err)
		}
		session, err := r.anonymousSession()
		return session, cleanURL, err
	case status != http.StatusOK:
		if r.logger != nil {
			r.logger.WarnContext(ctx, "unexpected profile status, degrading to anonymous", "status", status)
		}
		session, err := r.anonymousSession()
		return session, cleanURL, err
	}

	return &Session{Authenticated: true, User: profile}, cleanURL, nil
}

// Token exposes the stored credential for authenticated API calls.
func (r *Reconciler) Token() (string, error) {
	return r.store.Token()
}

// EnsureGuestID returns the persistent guest identity, generating and storing
// one on first use. The identifier is random and carries no user data.
func (r *Reconciler) EnsureGuestID() (string, error) {
	guestID, err := r.store.GuestID()
	if err != nil {
		return "", fmt.Errorf("load guest id: %w", err)
	}
	if guestID != "" {
		return guestID, nil
	}

	guestID, err = secrets.Generate()
	if err != nil {
		return "", fmt.Errorf("generate guest id: %w", err)
	}
	if err := r.store.SetGuestID(guestID); err != nil {
		return "", fmt.Errorf("store guest id: %w", err)
	}
	return guestID, nil
}

func (r *Reconciler) captureHandoffToken(pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}

	query := parsed.Query()
	tokenString := query.Get("token")
	if tokenString == "" {
		return pageURL, nil
	}

	if err := r.store.SetToken(tokenString); err != nil {
		return "", fmt.Errorf("persist handoff token: %w", err)
	}

	query.Del("token")
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (r *Reconciler) anonymousSession() (*Session, error) {
	guestID, err := r.EnsureGuestID()
	if err != nil {
		return nil, err
	}
	return &Session{GuestID: guestID}, nil
}

func (r *Reconciler) fetchProfile(ctx context.Context, tokenString string) (*Profile, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/auth/userinfo", nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tokenString)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, resp.StatusCode, nil
}
