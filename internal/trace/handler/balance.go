package handler

import (
	"net/http"

	"github.com/agrotrace/agrotrace-backend/internal/trace/repository"
	"github.com/agrotrace/agrotrace-backend/pkg/httputil"
	"github.com/agrotrace/agrotrace-backend/pkg/logger"
)

// BalanceHandler handles warehouse balance endpoints
type BalanceHandler struct {
	balances *repository.BalanceRepository
	logger   *logger.Logger
}

// NewBalanceHandler creates a new balance handler
func NewBalanceHandler(balances *repository.BalanceRepository, log *logger.Logger) *BalanceHandler {
	return &BalanceHandler{
		balances: balances,
		logger:   log,
	}
}

// ListByWarehouse lists product balances in a warehouse
func (h *BalanceHandler) ListByWarehouse(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := pathID(r, "warehouseID")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	balances, err := h.balances.ListByWarehouse(r.Context(), warehouseID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, balances)
}

// Get reads the balance of one product in one warehouse
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := pathID(r, "warehouseID")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	productID, err := pathID(r, "productID")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	balance, err := h.balances.Get(r.Context(), warehouseID, productID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, balance)
}
