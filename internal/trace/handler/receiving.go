package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrotrace/agrotrace-backend/internal/trace/repository"
	"github.com/agrotrace/agrotrace-backend/internal/trace/service"
	"github.com/agrotrace/agrotrace-backend/pkg/httputil"
	"github.com/agrotrace/agrotrace-backend/pkg/logger"
)

// ReceivingRequest is the payload for creating or updating a receiving.
// A lot_code field in the payload is accepted but ignored: codes are only
// ever issued by the allocator.
type ReceivingRequest struct {
	Ticket        string              `json:"ticket" validate:"required,max=50"`
	Status        string              `json:"status" validate:"omitempty,oneof=Pending 'Gross Weight' Unloading 'Tare Weight' Completed"`
	LotCode       *string             `json:"lot_code"`
	WarehouseID   *int64              `json:"warehouse_id"`
	ProductID     *int64              `json:"product_id"`
	SupplierID    *int64              `json:"supplier_id"`
	DriverName    *string             `json:"driver_name"`
	Plates        *string             `json:"plates" validate:"omitempty,max=20"`
	TransportType *string             `json:"transport_type"`
	GrossWeight   decimal.NullDecimal `json:"gross_weight"`
	TareWeight    decimal.NullDecimal `json:"tare_weight"`
	NetWeight     decimal.NullDecimal `json:"net_weight"`
	Seals         *string             `json:"seals"`
	Notes         *string             `json:"notes"`
	ReceivedAt    *time.Time          `json:"received_at"`
}

func (req *ReceivingRequest) toModel(id int64) *repository.Receiving {
	return &repository.Receiving{
		ID:            id,
		Ticket:        req.Ticket,
		Status:        req.Status,
		LotCode:       req.LotCode,
		WarehouseID:   req.WarehouseID,
		ProductID:     req.ProductID,
		SupplierID:    req.SupplierID,
		DriverName:    req.DriverName,
		Plates:        req.Plates,
		TransportType: req.TransportType,
		GrossWeight:   req.GrossWeight,
		TareWeight:    req.TareWeight,
		NetWeight:     req.NetWeight,
		Seals:         req.Seals,
		Notes:         req.Notes,
		ReceivedAt:    req.ReceivedAt,
	}
}

// ReceivingHandler handles receiving endpoints
type ReceivingHandler struct {
	finalizer  *service.Finalizer
	receivings *repository.ReceivingRepository
	logger     *logger.Logger
}

// NewReceivingHandler creates a new receiving handler
func NewReceivingHandler(finalizer *service.Finalizer, receivings *repository.ReceivingRepository, log *logger.Logger) *ReceivingHandler {
	return &ReceivingHandler{
		finalizer:  finalizer,
		receivings: receivings,
		logger:     log,
	}
}

// List lists receivings with optional status/product/date filters
func (h *ReceivingHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.ReceivingFilter{
		Status: r.URL.Query().Get("status"),
	}

	if v := r.URL.Query().Get("product_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.ProductID = &id
		}
	}
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = &t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = &t
		}
	}

	recs, err := h.receivings.List(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, recs)
}

// Get gets a receiving by ID
func (h *ReceivingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.receivings.GetByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

// Create creates a new receiving
func (h *ReceivingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ReceivingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	rec := req.toModel(0)
	if err := h.finalizer.CreateReceiving(r.Context(), rec); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, rec)
}

// Update updates a receiving, finalizing it when it reaches Completed
func (h *ReceivingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req ReceivingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.finalizer.SaveReceiving(r.Context(), req.toModel(id))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

// Delete permanently removes a receiving
func (h *ReceivingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.finalizer.DeleteReceiving(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// RetryCode re-drives lot code assignment for a completed receiving that
// was saved without a code
func (h *ReceivingHandler) RetryCode(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	rec, err := h.finalizer.RetryReceivingCode(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rec)
}

// ListUncoded lists completed receivings awaiting a lot code
func (h *ReceivingHandler) ListUncoded(w http.ResponseWriter, r *http.Request) {
	recs, err := h.finalizer.ListUncodedReceivings(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, recs)
}
