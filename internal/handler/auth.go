package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rs/xid"
	"github.com/sakif/glucolog/internal/auth"
	"github.com/sakif/glucolog/internal/service"
)

// AuthHandler manages sign-in (Google OAuth and email/password), session
// cookies, and the profile endpoints.
//
// ROUTES:
//   - HandleGoogleLogin    → redirect the browser to Google's consent page
//   - HandleGoogleCallback → receive the code, exchange it, set cookies
//   - HandleRegister       → email/password registration
//   - HandleLogin          → email/password sign-in
//   - HandleRefresh        → redeem the refresh cookie for a new token pair
//   - HandleLogout         → clear both cookies
//   - HandleMe / HandleUpdateMe → read/update the caller's profile
type AuthHandler struct {
	google *auth.GoogleProvider
	svc    *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. google may be nil when OAuth is
// not configured — the server then skips registering the /auth/google
// routes and password sign-in remains the only mode.
func NewAuthHandler(google *auth.GoogleProvider, svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{google: google, svc: svc, logger: logger}
}

// setSessionCookies stores the issued token pair.
//
// Both cookies are HttpOnly (XSS cannot read them) with SameSite=Lax. The
// refresh cookie is path-scoped to the refresh endpoint so the long-lived
// token is not attached to every API request. Secure should be enabled in
// production behind HTTPS.
func setSessionCookies(w http.ResponseWriter, result *service.AuthResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.AccessCookieName,
		Value:    result.AccessToken,
		Path:     "/",
		MaxAge:   int(auth.AccessTokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     auth.RefreshCookieName,
		Value:    result.RefreshToken,
		Path:     "/api/auth/refresh",
		MaxAge:   int(auth.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.AccessCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     auth.RefreshCookieName,
		Value:    "",
		Path:     "/api/auth/refresh",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleGoogleLogin redirects the user to Google's authorization page.
//
// HTTP: GET /auth/google/login
//
// The random state value goes into a short-lived cookie; the callback
// verifies it round-tripped unchanged (CSRF protection for the OAuth flow).
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the OAuth login flow.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Verify the state parameter against the cookie (CSRF check)
//  2. Exchange the code for a Google profile
//  3. Find-or-create the user, issue the token pair
//  4. Set session cookies and redirect to the app
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Single-use — clear it immediately.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	gUser, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: Google exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	result, err := h.svc.LoginOrRegisterGoogle(r.Context(), gUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	setSessionCookies(w, result)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// credentialsRequest is the body for register and login.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"` // register only
}

// HandleRegister creates an email/password account and signs the user in.
//
// HTTP: POST /api/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	result, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionCookies(w, result)
	writeJSON(w, http.StatusCreated, result.User)
}

// HandleLogin verifies an email/password pair and signs the user in.
//
// HTTP: POST /api/auth/login
// Every credential failure answers the same 401 body.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionCookies(w, result)
	writeJSON(w, http.StatusOK, result.User)
}

// HandleRefresh redeems the refresh cookie for a fresh token pair.
//
// HTTP: POST /api/auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	result, err := h.svc.Refresh(r.Context(), cookie.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionCookies(w, result)
	writeJSON(w, http.StatusOK, result.User)
}

// HandleLogout clears both session cookies.
//
// HTTP: POST /api/auth/logout
//
// POST, not GET: logout changes state, and GET would be vulnerable to CSRF
// and browser prefetching. With stateless JWTs, "logout" means deleting the
// cookies — the access token stays technically valid until its 15-minute
// expiry, but the browser can no longer send it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/auth/me (behind RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	user, err := h.svc.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("HandleMe: user lookup failed", slog.String("userID", userID))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// profileRequest is the body for profile updates.
type profileRequest struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

// HandleUpdateMe updates the caller's display name and/or language.
//
// HTTP: PUT /api/auth/me (behind RequireAuth)
func (h *AuthHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), userID, req.Name, req.Language)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
