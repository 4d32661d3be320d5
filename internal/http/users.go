package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sentrolokal/barangay/internal/barangay"
	"github.com/sentrolokal/barangay/internal/http/middleware"
	"github.com/sentrolokal/barangay/internal/service"
	"github.com/sentrolokal/barangay/internal/util"
)

// ListUsers lists the accounts of the caller's barangay.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context(), middleware.GetBarangay(r.Context()))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not list accounts", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

// CreateUser registers a pre-verified account inside the caller's barangay.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON", nil)
		return
	}
	if payload.Name == "" || payload.Email == "" || payload.Password == "" || payload.Role == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "name, email, password and role are required", nil)
		return
	}
	if err := util.ValidateEmail(payload.Email); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	user, err := h.users.CreateAccount(r.Context(), service.CreateAccountInput{
		Name:       payload.Name,
		Email:      payload.Email,
		Password:   payload.Password,
		Barangay:   middleware.GetBarangay(r.Context()),
		Role:       payload.Role,
		CallerRole: middleware.GetRole(r.Context()),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			WriteError(w, http.StatusBadRequest, "EMAIL_TAKEN", "email is already registered", nil)
		case errors.Is(err, service.ErrNameTaken):
			WriteError(w, http.StatusUnauthorized, "NAME_TAKEN", "name is already registered", nil)
		case errors.Is(err, service.ErrForbidden):
			WriteError(w, http.StatusForbidden, "FORBIDDEN", "role not grantable by caller", nil)
		default:
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		}
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"user": user.Public()})
}

// VerifyUser marks an account as verified and notifies the owner.
func (h *Handler) VerifyUser(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, func(ctx *http.Request, id uuid.UUID) error {
		return h.users.VerifyUser(ctx.Context(), middleware.GetBarangay(ctx.Context()), id)
	}, "account verified")
}

// RejectUser clears the verified flag on an account.
func (h *Handler) RejectUser(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, func(ctx *http.Request, id uuid.UUID) error {
		return h.users.RejectUser(ctx.Context(), middleware.GetBarangay(ctx.Context()), id)
	}, "account rejected")
}

// DeactivateUser disables an account, recording the mandatory reason.
func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid user id", nil)
		return
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Reason == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "reason is required", nil)
		return
	}

	if err := h.users.DeactivateUser(r.Context(), middleware.GetBarangay(r.Context()), id, payload.Reason); err != nil {
		h.writeUserActionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "account deactivated"})
}

// ActivateUser re-enables a previously deactivated account.
func (h *Handler) ActivateUser(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, func(ctx *http.Request, id uuid.UUID) error {
		return h.users.ActivateUser(ctx.Context(), middleware.GetBarangay(ctx.Context()), id)
	}, "account activated")
}

// ListBarangays returns the registered barangay partitions.
func (h *Handler) ListBarangays(w http.ResponseWriter, r *http.Request) {
	list, err := h.barangays.List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not list barangays", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"barangays": list})
}

// CreateBarangay registers a new barangay partition.
func (h *Handler) CreateBarangay(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Slug         string `json:"slug"`
		DisplayName  string `json:"displayName"`
		Municipality string `json:"municipality"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON", nil)
		return
	}

	created, err := h.barangays.Create(r.Context(), barangay.CreateInput{
		Slug:         payload.Slug,
		DisplayName:  payload.DisplayName,
		Municipality: payload.Municipality,
	})
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"barangay": created})
}

func (h *Handler) userAction(w http.ResponseWriter, r *http.Request, fn func(*http.Request, uuid.UUID) error, okMsg string) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid user id", nil)
		return
	}
	if err := fn(r, id); err != nil {
		h.writeUserActionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": okMsg})
}

func (h *Handler) writeUserActionError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrUserNotFound) {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "account not found", nil)
		return
	}
	WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not update account", nil)
}
