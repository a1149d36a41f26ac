package balance

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/roommate-ledger/pkg/middleware"
	"github.com/fkhayef/roommate-ledger/pkg/response"
)

// Handler handles HTTP requests for balance queries
type Handler struct {
	service *Service
}

// NewHandler creates a new balance handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for balance endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetBalances)
	r.Get("/summary", h.GetSummary)
	r.Get("/suggestions", h.GetSuggestions)
	r.Get("/ledger", h.GetLedger)
	r.Get("/{personId}", h.GetBalanceWith)

	return r
}

// GetBalances handles GET /balances
// @Summary      Get balances
// @Description  Get the caller's balance with every roommate. Positive means you owe them, negative means they owe you.
// @Tags         balances
// @Produce      json
// @Success      200 {object} response.APIResponse{data=BalancesResponse}
// @Router       /balances [get]
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	balances, err := h.service.Balances(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to get balances")
		return
	}

	response.JSON(w, http.StatusOK, balances)
}

// GetSummary handles GET /balances/summary
// @Summary      Get balance summary
// @Description  Total owed to the caller, total the caller owes and the difference
// @Tags         balances
// @Produce      json
// @Success      200 {object} response.APIResponse{data=SummaryResponse}
// @Router       /balances/summary [get]
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	response.JSON(w, http.StatusOK, h.service.Summary(userID))
}

// GetSuggestions handles GET /balances/suggestions
// @Summary      Suggest settlements
// @Description  A short list of payments that would settle every roommate
// @Tags         balances
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]TransferResponse}
// @Router       /balances/suggestions [get]
func (h *Handler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.service.Suggestions(r.Context())
	if err != nil {
		response.InternalError(w, "Failed to suggest settlements")
		return
	}

	response.JSON(w, http.StatusOK, suggestions)
}

// GetLedger handles GET /balances/ledger
// @Summary      Get household ledger
// @Description  Every roommate's global balance; the total is always zero
// @Tags         balances
// @Produce      json
// @Success      200 {object} response.APIResponse{data=LedgerResponse}
// @Router       /balances/ledger [get]
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.service.Ledger())
}

// GetBalanceWith handles GET /balances/{personId}
// @Summary      Get balance with a roommate
// @Tags         balances
// @Produce      json
// @Param        personId path int true "Roommate ID"
// @Success      200 {object} response.APIResponse{data=NetBalanceResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /balances/{personId} [get]
func (h *Handler) GetBalanceWith(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	personID, err := strconv.ParseInt(chi.URLParam(r, "personId"), 10, 64)
	if err != nil || personID <= 0 {
		response.BadRequest(w, "Invalid roommate ID")
		return
	}

	balance, err := h.service.With(r.Context(), userID, personID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSelfBalance):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrPersonNotFound):
			response.NotFound(w, err.Error())
		default:
			response.InternalError(w, "Failed to get balance")
		}
		return
	}

	response.JSON(w, http.StatusOK, balance)
}
