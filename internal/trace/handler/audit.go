package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/agrotrace/agrotrace-backend/internal/trace/repository"
	"github.com/agrotrace/agrotrace-backend/pkg/httputil"
	"github.com/agrotrace/agrotrace-backend/pkg/logger"
)

// AuditHandler exposes the audit history of trace records
type AuditHandler struct {
	audit  *repository.AuditRepository
	logger *logger.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audit *repository.AuditRepository, log *logger.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: log,
	}
}

// ListByRecord lists the audit history of one record
func (h *AuditHandler) ListByRecord(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	recordID, err := pathID(r, "recordID")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	entries, err := h.audit.ListByRecord(r.Context(), table, recordID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// ListByTable lists recent audit entries for a table with pagination
func (h *AuditHandler) ListByTable(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	entries, total, err := h.audit.ListByTable(r.Context(), table, page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, entries, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}
