package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sentrolokal/barangay/internal/http/middleware"
	"github.com/sentrolokal/barangay/internal/request"
)

// ListDocumentRequests returns the merged feed of all document kinds for
// the caller's barangay, newest first.
func (h *Handler) ListDocumentRequests(w http.ResponseWriter, r *http.Request) {
	brgy := middleware.GetBarangay(r.Context())
	if brgy == "" {
		WriteError(w, http.StatusUnauthorized, "AUTH", "session has no barangay", nil)
		return
	}

	feed, err := h.requests.List(r.Context(), brgy)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not load document requests", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"requests": feed})
}

// CreateDocumentRequest files a new request of the kind named in the path.
func (h *Handler) CreateDocumentRequest(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "type")

	var payload struct {
		ResidentName  string         `json:"residentName"`
		ContactNumber string         `json:"contactNumber"`
		Purpose       string         `json:"purpose"`
		Details       map[string]any `json:"details"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON", nil)
		return
	}

	requesterID, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "invalid subject", nil)
		return
	}

	residentName := strings.TrimSpace(payload.ResidentName)
	if residentName == "" {
		residentName = middleware.GetClaims(r.Context()).Name
	}

	created, err := h.requests.Create(r.Context(), request.CreateInput{
		Kind:          request.Kind(slug),
		Barangay:      middleware.GetBarangay(r.Context()),
		RequesterID:   &requesterID,
		ResidentName:  residentName,
		ContactNumber: strings.TrimSpace(payload.ContactNumber),
		Purpose:       strings.TrimSpace(payload.Purpose),
		Payload:       payload.Details,
	})
	if err != nil {
		if errors.Is(err, request.ErrInvalidKind) {
			WriteError(w, http.StatusBadRequest, "INVALID_TYPE", "unknown document type", nil)
			return
		}
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"request": created.Envelope()})
}

// GetDocumentRequest fetches a single request of a given kind.
func (h *Handler) GetDocumentRequest(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "type")
	kind, ok := request.KindFromSlug(slug)
	if !ok {
		WriteError(w, http.StatusBadRequest, "INVALID_TYPE", "unknown document type", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid request id", nil)
		return
	}

	req, err := h.requests.Get(r.Context(), middleware.GetBarangay(r.Context()), kind, id)
	if err != nil {
		if errors.Is(err, request.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "document request not found", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not load document request", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"request": req.Envelope()})
}

// UpdateDocumentRequestStatus reviews a request: approve, reject or complete.
func (h *Handler) UpdateDocumentRequestStatus(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "type")

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "invalid request id", nil)
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Status == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "status is required", nil)
		return
	}

	updated, err := h.requests.UpdateStatus(r.Context(), middleware.GetBarangay(r.Context()), slug, id, payload.Status)
	if err != nil {
		switch {
		case errors.Is(err, request.ErrInvalidKind):
			WriteError(w, http.StatusBadRequest, "INVALID_TYPE", "unknown document type", nil)
		case errors.Is(err, request.ErrInvalidStatus):
			WriteError(w, http.StatusBadRequest, "VALIDATION", "unknown status", nil)
		case errors.Is(err, request.ErrInvalidTransition):
			WriteError(w, http.StatusBadRequest, "INVALID_TRANSITION", "status change not allowed", nil)
		case errors.Is(err, request.ErrNotFound):
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "document request not found", nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "could not update status", nil)
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"request": updated})
}
