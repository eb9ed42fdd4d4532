package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/sakif/clothconnect/internal/apperror"
	"github.com/sakif/clothconnect/internal/auth"
	"github.com/sakif/clothconnect/internal/service"
)

const stateCookieName = "oauth_state"

// AuthHandler serves the account routes under /api/users: registration,
// login, recovery, 2FA and the GitHub OAuth flow.
//
// HANDLER RESPONSIBILITIES:
//   - Register / VerifyEmail / Login       → password accounts
//   - ForgotPassword / ResetPassword       → account recovery by email
//   - Refresh / Logout                     → session maintenance
//   - SetupTwoFactor / VerifyTwoFactor / DisableTwoFactor
//   - GitHubLogin / GitHubCallback         → OAuth sign-in (only when configured)
//
// The handler decodes bodies and sets cookies. Everything else is in
// service.AuthService.
type AuthHandler struct {
	auth          *service.AuthService
	github        *auth.GitHubProvider // nil when GitHub sign-in is disabled
	secureCookies bool
	frontendURL   string
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil.
func NewAuthHandler(
	authService *service.AuthService,
	github *auth.GitHubProvider,
	secureCookies bool,
	frontendURL string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:          authService,
		github:        github,
		secureCookies: secureCookies,
		frontendURL:   strings.TrimRight(frontendURL, "/"),
		logger:        logger,
	}
}

// TwoFactorRequiredResponse tells the client to prompt for a 2FA code and
// send the login again.
type TwoFactorRequiredResponse struct {
	Requires2FA bool   `json:"requires2FA"`
	Message     string `json:"message"`
}

// setTokenCookie stores the JWT in an HttpOnly cookie so browser clients
// authenticate without touching the token from JavaScript.
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.auth.TokenTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// Register creates an account and mails the verification link.
//
// HTTP: POST /api/users/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful. Please check your email to verify your account.",
		"user":    user,
	})
}

// VerifyEmail consumes an email-verification token.
//
// HTTP: GET /api/users/verify-email/{token}
//
//	GET /api/users/verify-email?token=...
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	if err := h.auth.VerifyEmail(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Email verified successfully"})
}

// Login checks credentials and returns a JWT.
//
// HTTP: POST /api/users/login
//
// With 2FA enabled and no code in the body the answer is 403 with
// requires2FA set, which the client treats as "ask for the code".
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.auth.Login(r.Context(), in)
	if errors.Is(err, service.ErrTwoFactorRequired) {
		writeJSON(w, http.StatusForbidden, TwoFactorRequiredResponse{
			Requires2FA: true,
			Message:     "2FA code required",
		})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	writeJSON(w, http.StatusOK, result)
}

// ForgotPassword mails a password reset link.
//
// HTTP: POST /api/users/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), in.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password reset email sent"})
}

// ResetPassword sets a new password using the token from the reset email.
//
// HTTP: POST /api/users/reset-password/{token}
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), chi.URLParam(r, "token"), in.Password); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password reset successful"})
}

// Refresh issues a fresh token for the authenticated user.
//
// HTTP: POST /api/users/refresh-token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	token, err := h.auth.RefreshToken(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setTokenCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Logout clears the token cookie.
//
// HTTP: POST /api/users/logout
//
// Tokens are stateless, so a bearer token stays valid until it expires.
// Logging out only removes the browser's copy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearTokenCookie(w)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// SetupTwoFactor generates a TOTP secret for the caller.
//
// HTTP: POST /api/users/2fa/setup
func (h *AuthHandler) SetupTwoFactor(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	key, err := h.auth.SetupTwoFactor(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}

// VerifyTwoFactor enables 2FA once the caller proves their authenticator
// works, and returns the backup codes.
//
// HTTP: POST /api/users/2fa/verify
func (h *AuthHandler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	codes, err := h.auth.VerifyTwoFactor(r.Context(), user, in.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "2FA enabled successfully",
		"backupCodes": codes,
	})
}

// DisableTwoFactor turns 2FA off.
//
// HTTP: POST /api/users/2fa/disable
func (h *AuthHandler) DisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.auth.DisableTwoFactor(r.Context(), user); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "2FA disabled successfully"})
}

// GitHubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /api/users/auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state value goes into a short-lived cookie and into the
// authorization URL. GitHubCallback only proceeds when the two match, which
// proves the callback belongs to a login this server started.
func (h *AuthHandler) GitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// GitHubCallback completes the OAuth login flow.
//
// HTTP: GET /api/users/auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub profile
//  3. Find, link or create the ClothConnect account
//  4. Set the token cookie and redirect to the frontend
func (h *AuthHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		writeError(w, r, apperror.ValidationFailed("state", "Invalid OAuth state"))
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		http.Redirect(w, r, h.frontendRedirect("denied"), http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, r, apperror.ValidationFailed("code", "Missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.frontendRedirect("failed"), http.StatusSeeOther)
		return
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	http.Redirect(w, r, h.frontendRedirect("success"), http.StatusSeeOther)
}

func (h *AuthHandler) frontendRedirect(outcome string) string {
	return h.frontendURL + "/?auth=" + url.QueryEscape(outcome)
}
