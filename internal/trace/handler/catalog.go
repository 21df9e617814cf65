package handler

import (
	"net/http"

	"github.com/agrotrace/agrotrace-backend/internal/trace/repository"
	"github.com/agrotrace/agrotrace-backend/pkg/httputil"
	"github.com/agrotrace/agrotrace-backend/pkg/logger"
)

// CatalogHandler exposes the catalogs lot codes are built from
type CatalogHandler struct {
	catalog *repository.CatalogRepository
	logger  *logger.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *repository.CatalogRepository, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		logger:  log,
	}
}

// ListProducts lists active products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, products)
}

// ListWarehouses lists active warehouses with their current capacity
func (h *CatalogHandler) ListWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := h.catalog.ListWarehouses(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, warehouses)
}
