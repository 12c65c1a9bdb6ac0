package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ExperienceHandler serves experience publishing and deletion.
type ExperienceHandler struct {
	svc *service.ExperienceService
	responder
}

// NewExperienceHandler constructs an ExperienceHandler.
func NewExperienceHandler(svc *service.ExperienceService, logger *zap.Logger) *ExperienceHandler {
	return &ExperienceHandler{svc: svc, responder: responder{logger: logger}}
}

// CreateExperience handles POST /experiences
func (h *ExperienceHandler) CreateExperience(w http.ResponseWriter, r *http.Request) {
	var req model.CreateExperienceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeBadBody(w, err)
		return
	}

	e, err := h.svc.CreateExperience(r.Context(), RequesterFrom(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// ListExperiences handles GET /experiences
func (h *ExperienceHandler) ListExperiences(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListExperiences(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// Return an empty array rather than null for better client compatibility.
	if list == nil {
		list = []model.Experience{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ListChefExperiences handles GET /chefs/{id}/experiences
func (h *ExperienceHandler) ListChefExperiences(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListChefExperiences(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []model.Experience{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetExperience handles GET /experiences/{id}
func (h *ExperienceHandler) GetExperience(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetExperience(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// ActivateExperience handles PUT /experiences/{id}/activate
func (h *ExperienceHandler) ActivateExperience(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.ActivateExperience(r.Context(), RequesterFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// RequestDeletion handles POST /experiences/{id}/request-delete
// Sends a deletion code to the given email.
func (h *ExperienceHandler) RequestDeletion(w http.ResponseWriter, r *http.Request) {
	var req model.DeletionCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeBadBody(w, err)
		return
	}

	warnings, err := h.svc.RequestDeletionCode(r.Context(), chi.URLParam(r, "id"), req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"message":  "a deletion code has been sent to " + req.Email,
		"warnings": warnings,
	})
}

// DeleteExperience handles DELETE /experiences/{id}
// Deletes the experience when email and code match the issued challenge.
func (h *ExperienceHandler) DeleteExperience(w http.ResponseWriter, r *http.Request) {
	var req model.ConfirmDeletionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeBadBody(w, err)
		return
	}

	err := h.svc.ConfirmDeletion(r.Context(), chi.URLParam(r, "id"), req.Email, req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "experience deleted"})
}
