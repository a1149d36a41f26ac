package expense

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

// Handler handles HTTP requests for expense operations
type Handler struct {
	service *Service
}

// NewHandler creates a new expense handler with service dependency injected
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for expense endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
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

// decodeRequest reports false after writing the error response itself
func decodeRequest(w http.ResponseWriter, r *http.Request) (*CreateExpenseRequest, bool) {
	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, money.ErrInvalidAmount) {
			response.ValidationFailed(w, "Invalid expense", []response.ErrorDetail{
				{Kind: string(validation.KindInvalidAmount), Message: err.Error()},
			})
			return nil, false
		}
		response.BadRequest(w, "Invalid request body")
		return nil, false
	}
	return &req, true
}

// writeError maps service errors to responses
func writeError(w http.ResponseWriter, err error, fallback string) {
	var ve *validation.ValidationError
	switch {
	case errors.As(err, &ve):
		response.ValidationFailed(w, "Invalid expense", ve.Details())
	case errors.Is(err, ErrInvalidDate):
		response.ValidationFailed(w, "Invalid expense", []response.ErrorDetail{
			{Kind: string(validation.KindInvalidDate), Message: err.Error()},
		})
	case errors.Is(err, ErrExpenseNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotInvolved):
		response.Forbidden(w, err.Error())
	case errors.Is(err, database.ErrReferenced):
		response.Conflict(w, "Expense refers to a roommate that no longer exists")
	default:
		response.InternalError(w, fallback)
	}
}

// Create handles POST /expenses
// @Summary      Create an expense
// @Description  Record a shared expense. Shares are allocated by the split type; a single payer without an amount paid the whole total.
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        request body CreateExpenseRequest true "Expense"
// @Success      201 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /expenses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	e, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, err, "Failed to create expense")
		return
	}

	response.JSON(w, http.StatusCreated, ToResponse(e, userID))
}

// GetByID handles GET /expenses/{id}
// @Summary      Get expense by ID
// @Description  Get an expense with its payers and shares
// @Tags         expenses
// @Produce      json
// @Param        id path int true "Expense ID"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, ok := parseID(r)
	if !ok {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	e, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, err, "Failed to get expense")
		return
	}

	response.JSON(w, http.StatusOK, ToResponse(e, userID))
}

// List handles GET /expenses
// @Summary      List expenses
// @Description  Get the expenses the caller paid for or shares in, newest first
// @Tags         expenses
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]ExpenseResponse}
// @Router       /expenses [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	expenses, total, err := h.service.List(r.Context(), userID, page, perPage)
	if err != nil {
		response.InternalError(w, "Failed to list expenses")
		return
	}

	expenseResponses := make([]*ExpenseResponse, len(expenses))
	for i, e := range expenses {
		expenseResponses[i] = ToResponse(e, userID)
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, expenseResponses, meta)
}

// Update handles PUT /expenses/{id}
// @Summary      Replace an expense
// @Description  Replace every field of an expense and rebalance
// @Tags         expenses
// @Accept       json
// @Produce      json
// @Param        id path int true "Expense ID"
// @Param        request body CreateExpenseRequest true "Expense"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /expenses/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, ok := parseID(r)
	if !ok {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	e, err := h.service.Update(r.Context(), userID, id, req)
	if err != nil {
		writeError(w, err, "Failed to update expense")
		return
	}

	response.JSON(w, http.StatusOK, ToResponse(e, userID))
}

// Delete handles DELETE /expenses/{id}
// @Summary      Delete an expense
// @Description  Delete an expense and retract it from every balance
// @Tags         expenses
// @Produce      json
// @Param        id path int true "Expense ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	id, ok := parseID(r)
	if !ok {
		response.BadRequest(w, "Invalid expense ID")
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err, "Failed to delete expense")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Expense deleted successfully"})
}
