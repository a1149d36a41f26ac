package roommate

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/roommate-ledger/internal/domain"
	"github.com/fkhayef/roommate-ledger/internal/ledger"
	"github.com/fkhayef/roommate-ledger/pkg/middleware"
	"github.com/fkhayef/roommate-ledger/pkg/response"
)

// Handler handles HTTP requests for roommate operations
type Handler struct {
	service *Service
}

// NewHandler creates a new roommate handler with service dependency injected
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for roommate endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

func parseID(r *http.Request) (domain.PersonID, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return domain.PersonID(id), true
}

// Create handles POST /roommates
// @Summary      Add a roommate
// @Description  Add a person who can pay for and share expenses
// @Tags         roommates
// @Accept       json
// @Produce      json
// @Param        request body CreateRoommateRequest true "Roommate"
// @Success      201 {object} response.APIResponse{data=RoommateResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /roommates [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateRoommateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	p, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, ErrInvalidName) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to add roommate")
		return
	}

	response.JSON(w, http.StatusCreated, ToResponse(p))
}

// GetByID handles GET /roommates/{id}
// @Summary      Get roommate by ID
// @Tags         roommates
// @Produce      json
// @Param        id path int true "Roommate ID"
// @Success      200 {object} response.APIResponse{data=RoommateResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /roommates/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		response.BadRequest(w, "Invalid roommate ID")
		return
	}

	p, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrRoommateNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get roommate")
		return
	}

	response.JSON(w, http.StatusOK, ToResponse(p))
}

// List handles GET /roommates
// @Summary      List roommates
// @Description  Get a paginated list of active roommates
// @Tags         roommates
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]RoommateResponse}
// @Router       /roommates [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	people, total, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		response.InternalError(w, "Failed to list roommates")
		return
	}

	roommateResponses := make([]*RoommateResponse, len(people))
	for i, p := range people {
		roommateResponses[i] = ToResponse(p)
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, roommateResponses, meta)
}

// Update handles PUT /roommates/{id}
// @Summary      Rename a roommate
// @Tags         roommates
// @Accept       json
// @Produce      json
// @Param        id path int true "Roommate ID"
// @Param        request body UpdateRoommateRequest true "New name"
// @Success      200 {object} response.APIResponse{data=RoommateResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /roommates/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		response.BadRequest(w, "Invalid roommate ID")
		return
	}

	var req UpdateRoommateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	p, err := h.service.Rename(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidName):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrRoommateNotFound):
			response.NotFound(w, err.Error())
		default:
			response.InternalError(w, "Failed to update roommate")
		}
		return
	}

	response.JSON(w, http.StatusOK, ToResponse(p))
}

// Delete handles DELETE /roommates/{id}
// @Summary      Remove a roommate
// @Description  Archive a roommate who is settled with everybody
// @Tags         roommates
// @Produce      json
// @Param        id path int true "Roommate ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /roommates/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, ok := parseID(r)
	if !ok {
		response.BadRequest(w, "Invalid roommate ID")
		return
	}

	if err := h.service.Archive(r.Context(), userID, id); err != nil {
		switch {
		case errors.Is(err, ErrRoommateNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ledger.ErrOutstandingBalance):
			response.Conflict(w, "Roommate still has an outstanding balance")
		case errors.Is(err, ErrAlreadyArchived):
			response.Conflict(w, err.Error())
		default:
			response.InternalError(w, "Failed to remove roommate")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Roommate removed successfully"})
}
