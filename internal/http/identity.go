package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sentrolokal/barangay/internal/http/middleware"
	"github.com/sentrolokal/barangay/internal/service"
	"github.com/sentrolokal/barangay/internal/util"
)

// Signup registers a resident account and dispatches the verification email.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Barangay string `json:"barangay"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON", nil)
		return
	}

	if payload.Name == "" || payload.Email == "" || payload.Password == "" || payload.Barangay == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "name, email, password and barangay are required", nil)
		return
	}

	if err := util.ValidateEmail(payload.Email); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	if err := util.ValidatePassword(payload.Password); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	user, err := h.identity.Signup(r.Context(), service.SignupInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		Barangay: payload.Barangay,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			WriteError(w, http.StatusBadRequest, "EMAIL_TAKEN", "email is already registered", nil)
		case errors.Is(err, service.ErrNameTaken):
			WriteError(w, http.StatusUnauthorized, "NAME_TAKEN", "name is already registered", nil)
		case errors.Is(err, service.ErrBarangayUnknown):
			WriteError(w, http.StatusBadRequest, "VALIDATION", "unknown barangay", nil)
		case errors.Is(err, service.ErrEmailDispatch):
			WriteError(w, http.StatusInternalServerError, "DOWNSTREAM", "could not send verification email", nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not create account", nil)
		}
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"user": user.Public()})
}

// Login authenticates by email and password and sets the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON", nil)
		return
	}
	if payload.Email == "" || payload.Password == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email and password are required", nil)
		return
	}

	result, err := h.identity.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "no account with this email", nil)
		case errors.Is(err, service.ErrInvalidCredentials):
			WriteError(w, http.StatusUnauthorized, "AUTH", "incorrect password", nil)
		case errors.Is(err, service.ErrAccountDisabled):
			WriteError(w, http.StatusForbidden, "ACCOUNT_DISABLED", "account is deactivated", nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not log in", nil)
		}
		return
	}

	h.setSessionCookie(w, result.Token)
	WriteJSON(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"user":  result.User,
	})
}

// Logout clears the session cookie. The JWT itself stays valid until expiry.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	WriteJSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}

// VerifyEmail consumes the emailed verification link and redirects the
// browser back to the portal with the outcome as a query parameter.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	userIDStr := chi.URLParam(r, "userID")

	redirect := func(status string) {
		target := fmt.Sprintf("%s/login?status=%s", strings.TrimRight(h.cfg.PortalBaseURL, "/"), status)
		http.Redirect(w, r, target, http.StatusSeeOther)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil || token == "" {
		redirect(string(service.VerifyExpiredLink))
		return
	}

	outcome, err := h.identity.VerifyEmail(r.Context(), userID, token)
	if err != nil {
		redirect(string(service.VerifyExpiredLink))
		return
	}
	redirect(string(outcome))
}

// ResendVerification re-issues the verification link for an unverified account.
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Email == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email is required", nil)
		return
	}

	if err := h.identity.ResendVerification(r.Context(), payload.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "no account with this email", nil)
		case errors.Is(err, service.ErrEmailDispatch):
			WriteError(w, http.StatusInternalServerError, "DOWNSTREAM", "could not send verification email", nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not resend verification", nil)
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"message": "verification email sent"})
}

// ForgotPassword starts the reset flow: generates an OTP, emails it, and
// returns a short-lived token that correlates the remaining steps.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Email == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email is required", nil)
		return
	}

	token, err := h.identity.RequestOTP(r.Context(), payload.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "no account with this email", nil)
		case errors.Is(err, service.ErrEmailDispatch):
			WriteError(w, http.StatusInternalServerError, "DOWNSTREAM", "could not send the code", nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not start password reset", nil)
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"token": token})
}

// VerifyOTP checks the emailed code against the pending reset record.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Email == "" || payload.OTP == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email and otp are required", nil)
		return
	}

	if err := h.identity.VerifyOTP(r.Context(), payload.Email, payload.OTP); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "no account with this email", nil)
		case errors.Is(err, service.ErrOTPMissing):
			WriteError(w, http.StatusPaymentRequired, "OTP_USED", "no pending code, request a new one", nil)
		case errors.Is(err, service.ErrOTPMismatch):
			WriteError(w, http.StatusUnauthorized, "OTP_MISMATCH", "incorrect code", nil)
		case errors.Is(err, service.ErrOTPExpired):
			WriteError(w, http.StatusMethodNotAllowed, "OTP_EXPIRED", "code has expired, request a new one", nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not verify code", nil)
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"message": "code verified"})
}

// ResetPassword replaces the account password. Gating on the previous step
// is handled by the portal; the endpoint only requires email and password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Email == "" || payload.Password == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email and password are required", nil)
		return
	}
	if err := util.ValidatePassword(payload.Password); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	if err := h.identity.ResetPassword(r.Context(), payload.Email, payload.Password); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "no account with this email", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not reset password", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"message": "password updated"})
}

// Me returns the caller's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid subject", nil)
		return
	}

	profile, err := h.identity.GetProfile(r.Context(), subject)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "account not found", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not load profile", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"user": profile})
}

func (h *Handler) subjectUUID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(middleware.GetSubject(r.Context()))
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.cfg.SessionTTL),
		HttpOnly: true,
		Secure:   !h.devCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !h.devCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
