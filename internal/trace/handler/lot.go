package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agrotrace/agrotrace-backend/internal/trace/repository"
	"github.com/agrotrace/agrotrace-backend/pkg/httputil"
	"github.com/agrotrace/agrotrace-backend/pkg/logger"
)

// LotHandler exposes the registry of issued lot codes
type LotHandler struct {
	lots   *repository.LotRepository
	logger *logger.Logger
}

// NewLotHandler creates a new lot handler
func NewLotHandler(lots *repository.LotRepository, log *logger.Logger) *LotHandler {
	return &LotHandler{
		lots:   lots,
		logger: log,
	}
}

// List lists issued lots for a year (defaults to the current year)
func (h *LotHandler) List(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}

	lots, err := h.lots.List(r.Context(), year)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lots)
}

// Get reads one issued lot by code
func (h *LotHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	lot, err := h.lots.GetByCode(r.Context(), code)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lot)
}
