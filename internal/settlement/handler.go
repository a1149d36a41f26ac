package settlement

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/roommate-ledger/internal/database"
	"github.com/fkhayef/roommate-ledger/internal/money"
	"github.com/fkhayef/roommate-ledger/internal/validation"
	"github.com/fkhayef/roommate-ledger/pkg/middleware"
	"github.com/fkhayef/roommate-ledger/pkg/response"
)

// Handler handles HTTP requests for settlement operations
type Handler struct {
	service *Service
}

// NewHandler creates a new settlement handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for settlement endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/total-settled-amount", h.GetTotalSettled)
	r.Get("/{id}", h.GetByID)
	r.Delete("/{id}", h.Delete)

	return r
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func invalidDate(w http.ResponseWriter, err error) {
	response.ValidationFailed(w, "Invalid settlement", []response.ErrorDetail{
		{Kind: string(validation.KindInvalidDate), Message: err.Error()},
	})
}

// Create handles POST /settlements
// @Summary      Record a settlement
// @Description  Record a payment from payer to receiver. The caller must be one of them. Without an amount the payer's whole debt to the receiver is settled.
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Param        request body CreateSettlementRequest true "Settlement"
// @Success      201 {object} response.APIResponse{data=SettlementResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /settlements [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, money.ErrInvalidAmount) {
			response.ValidationFailed(w, "Invalid settlement", []response.ErrorDetail{
				{Kind: string(validation.KindInvalidAmount), Message: err.Error()},
			})
			return
		}
		response.BadRequest(w, "Invalid request body")
		return
	}

	st, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		var ve *validation.ValidationError
		switch {
		case errors.As(err, &ve):
			response.ValidationFailed(w, "Invalid settlement", ve.Details())
		case errors.Is(err, ErrInvalidDate):
			invalidDate(w, err)
		case errors.Is(err, ErrNotParty):
			response.Forbidden(w, err.Error())
		case errors.Is(err, ErrAlreadySettled):
			response.Conflict(w, err.Error())
		case errors.Is(err, database.ErrReferenced):
			response.Conflict(w, "Settlement refers to a roommate that no longer exists")
		default:
			response.InternalError(w, "Failed to record settlement")
		}
		return
	}

	response.JSON(w, http.StatusCreated, ToResponse(st, userID))
}

// GetByID handles GET /settlements/{id}
// @Summary      Get settlement by ID
// @Tags         settlements
// @Produce      json
// @Param        id path int true "Settlement ID"
// @Success      200 {object} response.APIResponse{data=SettlementResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /settlements/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, ok := parseID(r)
	if !ok {
		response.BadRequest(w, "Invalid settlement ID")
		return
	}

	st, err := h.service.GetByID(r.Context(), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrSettlementNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotParty):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to get settlement")
		}
		return
	}

	response.JSON(w, http.StatusOK, ToResponse(st, userID))
}

// List handles GET /settlements
// @Summary      List settlements
// @Description  Get the settlements the caller paid or received, newest first
// @Tags         settlements
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Param        from query string false "Earliest date (YYYY-MM-DD)"
// @Param        to query string false "Latest date (YYYY-MM-DD)"
// @Success      200 {object} response.APIResponse{data=[]SettlementResponse}
// @Failure      422 {object} response.APIResponse
// @Router       /settlements [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	q := r.URL.Query()
	filter, err := ParseFilter(q.Get("from"), q.Get("to"))
	if err != nil {
		invalidDate(w, err)
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	settlements, total, err := h.service.List(r.Context(), userID, filter, page, perPage)
	if err != nil {
		response.InternalError(w, "Failed to list settlements")
		return
	}

	settlementResponses := make([]*SettlementResponse, len(settlements))
	for i, st := range settlements {
		settlementResponses[i] = ToResponse(st, userID)
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, settlementResponses, meta)
}

// GetTotalSettled handles GET /settlements/total-settled-amount
// @Summary      Get total settled amount
// @Description  Total the caller received and paid in settlements; net is received minus paid
// @Tags         settlements
// @Produce      json
// @Success      200 {object} response.APIResponse{data=TotalSettledResponse}
// @Router       /settlements/total-settled-amount [get]
func (h *Handler) GetTotalSettled(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	total, err := h.service.TotalSettled(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to total settlements")
		return
	}

	response.JSON(w, http.StatusOK, total)
}

// Delete handles DELETE /settlements/{id}
// @Summary      Delete a settlement
// @Description  Delete a settlement and restore the debt it paid off
// @Tags         settlements
// @Produce      json
// @Param        id path int true "Settlement ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /settlements/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, ok := parseID(r)
	if !ok {
		response.BadRequest(w, "Invalid settlement ID")
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		switch {
		case errors.Is(err, ErrSettlementNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotParty):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to delete settlement")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Settlement deleted successfully"})
}
