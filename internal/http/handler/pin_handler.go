package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/fieldserve/pingate/internal/http/middleware"
	"github.com/fieldserve/pingate/internal/http/response"
	"github.com/fieldserve/pingate/internal/observability"
	"github.com/fieldserve/pingate/internal/security"
	"github.com/fieldserve/pingate/internal/service"
)

var pinRe = regexp.MustCompile(`^[0-9]{6}$`)

type PinHandler struct {
	svc        *service.PinService
	cookies    *security.CookieManager
	sessionTTL time.Duration
}

func NewPinHandler(svc *service.PinService, cookies *security.CookieManager, sessionTTL time.Duration) *PinHandler {
	return &PinHandler{svc: svc, cookies: cookies, sessionTTL: sessionTTL}
}

type statusPayload struct {
	AttemptsLeft int    `json:"attemptsLeft"`
	LockedUntil  string `json:"lockedUntil,omitempty"`
}

type validateRequest struct {
	Pin string `json:"pin"`
}

type grantPayload struct {
	SessionID string `json:"sessionId"`
	ExpiresAt string `json:"expiresAt"`
}

func (h *PinHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, span := observability.StartSpan(r.Context(), "pin.status")
	defer span.End()

	status, err := h.svc.Status(ctx, clientKey(r))
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load pin status", nil)
		return
	}
	payload := statusPayload{AttemptsLeft: status.AttemptsLeft}
	if status.LockedUntil != nil {
		payload.LockedUntil = status.LockedUntil.UTC().Format(time.RFC3339)
	}
	response.JSON(w, r, http.StatusOK, payload)
}

func (h *PinHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx, span := observability.StartSpan(r.Context(), "pin.validate")
	defer span.End()

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if !pinRe.MatchString(req.Pin) {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "pin must be exactly 6 digits", nil)
		return
	}

	res, err := h.svc.Validate(ctx, service.ValidateInput{
		ClientKey: clientKey(r),
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Pin:       req.Pin,
	})
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "pin validation failed", nil)
		return
	}

	switch res.Outcome {
	case service.OutcomeGranted:
		h.cookies.SetSessionCookie(w, res.Token, h.sessionTTL)
		response.JSON(w, r, http.StatusOK, grantPayload{
			SessionID: res.SessionID,
			ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
		})
	case service.OutcomeLocked:
		details := map[string]any{}
		if res.LockedUntil != nil {
			details["lockedUntil"] = res.LockedUntil.UTC().Format(time.RFC3339)
		}
		response.Error(w, r, http.StatusForbidden, "LOCKED", res.Message, details)
	default:
		response.Error(w, r, http.StatusUnauthorized, "INVALID_PIN", res.Message, map[string]any{
			"attemptsLeft": res.AttemptsLeft,
		})
	}
}

// Session reports whether the caller's pin_session cookie still backs an
// active session. Clients use it to decide whether the keypad can be skipped.
func (h *PinHandler) Session(w http.ResponseWriter, r *http.Request) {
	ctx, span := observability.StartSpan(r.Context(), "pin.session")
	defer span.End()

	token := security.GetCookie(r, security.SessionCookieName)
	if token == "" {
		response.Error(w, r, http.StatusUnauthorized, "NO_SESSION", "no active session", nil)
		return
	}
	sess, err := h.svc.VerifySessionToken(ctx, token)
	if err != nil {
		h.cookies.ClearSessionCookie(w)
		response.Error(w, r, http.StatusUnauthorized, "NO_SESSION", "session expired or revoked", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, grantPayload{
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout revokes the caller's session and clears the cookie. Idempotent: a
// missing or invalid cookie still gets a 200 and a cleared cookie.
func (h *PinHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, span := observability.StartSpan(r.Context(), "pin.logout")
	defer span.End()

	if token := security.GetCookie(r, security.SessionCookieName); token != "" {
		if err := h.svc.Logout(ctx, token); err != nil {
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "logout failed", nil)
			return
		}
	}
	h.cookies.ClearSessionCookie(w)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

type attemptPayload struct {
	Success      bool   `json:"success"`
	AttemptsLeft int    `json:"attemptsLeft"`
	CreatedAt    string `json:"createdAt"`
}

// Attempts lists the caller's recent validation attempts, newest first.
func (h *PinHandler) Attempts(w http.ResponseWriter, r *http.Request) {
	ctx, span := observability.StartSpan(r.Context(), "pin.attempts")
	defer span.End()

	rows, err := h.svc.RecentAttempts(ctx, clientKey(r), 20)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load attempts", nil)
		return
	}
	payload := make([]attemptPayload, 0, len(rows))
	for _, row := range rows {
		payload = append(payload, attemptPayload{
			Success:      row.Success,
			AttemptsLeft: row.AttemptsLeft,
			CreatedAt:    row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	response.JSON(w, r, http.StatusOK, payload)
}

// clientKey mirrors the rate limiter's keying so the attempt budget and the
// request budget track the same caller.
func clientKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(middleware.ClientKeyHeader)); key != "" {
		return key
	}
	return clientIP(r)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
