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

// ShipmentRequest is the payload for creating or updating a shipment.
type ShipmentRequest struct {
	Ticket        string              `json:"ticket" validate:"required,max=50"`
	Status        string              `json:"status" validate:"omitempty,oneof=Pending 'Gross Weight' Loading 'Tare Weight' Completed"`
	ShipmentType  string              `json:"shipment_type" validate:"omitempty,oneof=national export"`
	LotCode       *string             `json:"lot_code"`
	WarehouseID   *int64              `json:"warehouse_id"`
	ProductID     *int64              `json:"product_id"`
	ClientID      *int64              `json:"client_id"`
	DriverName    *string             `json:"driver_name"`
	Plates        *string             `json:"plates" validate:"omitempty,max=20"`
	TransportType *string             `json:"transport_type"`
	GrossWeight   decimal.NullDecimal `json:"gross_weight"`
	TareWeight    decimal.NullDecimal `json:"tare_weight"`
	NetWeight     decimal.NullDecimal `json:"net_weight"`
	Seals         *string             `json:"seals"`
	Notes         *string             `json:"notes"`
	ShippedAt     *time.Time          `json:"shipped_at"`
}

func (req *ShipmentRequest) toModel(id int64) *repository.Shipment {
	return &repository.Shipment{
		ID:            id,
		Ticket:        req.Ticket,
		Status:        req.Status,
		ShipmentType:  req.ShipmentType,
		LotCode:       req.LotCode,
		WarehouseID:   req.WarehouseID,
		ProductID:     req.ProductID,
		ClientID:      req.ClientID,
		DriverName:    req.DriverName,
		Plates:        req.Plates,
		TransportType: req.TransportType,
		GrossWeight:   req.GrossWeight,
		TareWeight:    req.TareWeight,
		NetWeight:     req.NetWeight,
		Seals:         req.Seals,
		Notes:         req.Notes,
		ShippedAt:     req.ShippedAt,
	}
}

// ShipmentHandler handles shipment endpoints
type ShipmentHandler struct {
	finalizer *service.Finalizer
	shipments *repository.ShipmentRepository
	logger    *logger.Logger
}

// NewShipmentHandler creates a new shipment handler
func NewShipmentHandler(finalizer *service.Finalizer, shipments *repository.ShipmentRepository, log *logger.Logger) *ShipmentHandler {
	return &ShipmentHandler{
		finalizer: finalizer,
		shipments: shipments,
		logger:    log,
	}
}

// List lists shipments with optional filters
func (h *ShipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.ShipmentFilter{
		Status:       r.URL.Query().Get("status"),
		ShipmentType: r.URL.Query().Get("shipment_type"),
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

	shipments, err := h.shipments.List(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, shipments)
}

// Get gets a shipment by ID
func (h *ShipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	s, err := h.shipments.GetByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, s)
}

// Create creates a new shipment
func (h *ShipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ShipmentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	s := req.toModel(0)
	if err := h.finalizer.CreateShipment(r.Context(), s); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, s)
}

// Update updates a shipment, finalizing it when it reaches Completed
func (h *ShipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req ShipmentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	s, err := h.finalizer.SaveShipment(r.Context(), req.toModel(id))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, s)
}

// Delete permanently removes a shipment
func (h *ShipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.finalizer.DeleteShipment(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// RetryCode re-drives lot code assignment for a completed shipment that
// was saved without a code
func (h *ShipmentHandler) RetryCode(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	s, err := h.finalizer.RetryShipmentCode(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, s)
}

// ListUncoded lists completed shipments awaiting a lot code
func (h *ShipmentHandler) ListUncoded(w http.ResponseWriter, r *http.Request) {
	shipments, err := h.finalizer.ListUncodedShipments(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, shipments)
}
