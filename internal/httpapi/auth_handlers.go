package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"vidmark.org/internal/audit"
	"vidmark.org/internal/auth"
	"vidmark.org/internal/obs"
)

const (
	refreshCookieName = "jid"
	// Refresh cookie issued at login/registration is visible to the whole
	// site; the rotated one only travels back to the refresh endpoint.
	sitePath    = "/"
	refreshPath = "/refresh_token"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Message     string        `json:"message"`
	UserInfo    auth.UserInfo `json:"userInfo"`
	AccessToken string        `json:"accessToken"`
}

type refreshResponse struct {
	OK          bool           `json:"ok"`
	AccessToken string         `json:"accessToken"`
	UserInfo    *auth.UserInfo `json:"userInfo,omitempty"`
}

func (a *API) handleRegistration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		obs.ObserveAuth("registration", "invalid")
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	info, pair, err := a.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		a.denyAuth(w, r, "registration", req.Email, err)
		return
	}

	obs.ObserveAuth("registration", "ok")
	audit.LogEvent(r.Context(), "auth.registration", map[string]any{
		"email":   info.Email,
		"user_id": info.ID,
	})
	a.setRefreshCookie(w, pair.RefreshToken, sitePath)
	writeJSON(w, http.StatusOK, authResponse{
		Message:     "user created",
		UserInfo:    info,
		AccessToken: pair.AccessToken,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		obs.ObserveAuth("login", "invalid")
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	info, pair, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.denyAuth(w, r, "login", req.Email, err)
		return
	}

	obs.ObserveAuth("login", "ok")
	audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"email":   info.Email,
		"user_id": info.ID,
	})
	a.setRefreshCookie(w, pair.RefreshToken, sitePath)
	writeJSON(w, http.StatusOK, authResponse{
		Message:     "logged in",
		UserInfo:    info,
		AccessToken: pair.AccessToken,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	var raw string
	if c, err := r.Cookie(refreshCookieName); err == nil {
		raw = c.Value
	}

	info, pair, err := a.auth.Refresh(r.Context(), raw)
	if err != nil {
		// Клиент различает только ok=false; детали остаются в логах.
		status := http.StatusUnauthorized
		reason := refreshDenyReason(err)
		if reason == "internal" {
			status = http.StatusInternalServerError
			obs.ObserveAuth("refresh", "error")
			obs.Logger().Printf("refresh failed: %v", err)
		} else {
			obs.ObserveAuth("refresh", "denied")
		}
		audit.LogEvent(r.Context(), "auth.token.refresh.denied", map[string]any{
			"reason": reason,
		})
		writeJSON(w, status, refreshResponse{OK: false, AccessToken: ""})
		return
	}

	obs.ObserveAuth("refresh", "ok")
	audit.LogEvent(r.Context(), "auth.token.refresh", map[string]any{
		"email":   info.Email,
		"user_id": info.ID,
	})
	a.setRefreshCookie(w, pair.RefreshToken, refreshPath)
	writeJSON(w, http.StatusOK, refreshResponse{
		OK:          true,
		AccessToken: pair.AccessToken,
		UserInfo:    &info,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	obs.ObserveAuth("logout", "ok")
	audit.LogEvent(r.Context(), "auth.logout", nil)
	a.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "logged out",
	})
}

// denyAuth maps service errors to HTTP responses and records the failure.
// Response bodies echo the email for the kinds the client is expected to
// show to the user; everything else stays generic.
func (a *API) denyAuth(w http.ResponseWriter, r *http.Request, op, email string, err error) {
	fields := map[string]any{"email": email}

	switch {
	case errors.Is(err, auth.ErrUserExists):
		obs.ObserveAuth(op, "denied")
		fields["reason"] = "user_exists"
		audit.LogEvent(r.Context(), "auth."+op+".denied", fields)
		writeError(w, r, http.StatusBadRequest,
			fmt.Sprintf("user with email %s already exists", auth.EmailFromError(err)))
	case errors.Is(err, auth.ErrInvalidInput):
		obs.ObserveAuth(op, "invalid")
		fields["reason"] = "invalid_input"
		audit.LogEvent(r.Context(), "auth."+op+".denied", fields)
		writeError(w, r, http.StatusBadRequest, "email and password are required")
	case errors.Is(err, auth.ErrUserNotFound):
		obs.ObserveAuth(op, "denied")
		fields["reason"] = "user_not_found"
		audit.LogEvent(r.Context(), "auth."+op+".denied", fields)
		writeError(w, r, http.StatusUnauthorized,
			fmt.Sprintf("user with email %s does not exist", email))
	case errors.Is(err, auth.ErrInvalidCredentials):
		obs.ObserveAuth(op, "denied")
		fields["reason"] = "invalid_credentials"
		audit.LogEvent(r.Context(), "auth."+op+".denied", fields)
		writeError(w, r, http.StatusUnauthorized, "invalid email or password")
	default:
		obs.ObserveAuth(op, "error")
		fields["reason"] = "internal"
		audit.LogEvent(r.Context(), "auth."+op+".error", fields)
		obs.Logger().Printf("%s failed: %v", op, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func refreshDenyReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrNoRefreshToken):
		return "no_cookie"
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		return "invalid_token"
	case errors.Is(err, auth.ErrUserNotFound):
		return "user_not_found"
	default:
		return "internal"
	}
}

func (a *API) setRefreshCookie(w http.ResponseWriter, value, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     path,
		MaxAge:   int(a.auth.Tokens().RefreshTTL() / time.Second),
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshPath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
