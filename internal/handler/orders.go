package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/modney/booth-api/internal/store"
	"github.com/modney/booth-api/internal/visits"
)

// OrderStore defines the store methods needed by the customer checkout
// handler. Satisfied by both store implementations.
type OrderStore interface {
	GetTable(ctx context.Context, tableID int64) (store.Table, error)
	CreateOrder(ctx context.Context, params store.CreateOrderParams) (store.OrderDetail, error)
}

// OrderActions defines the manager action methods needed by order handlers.
// Satisfied by *visits.Service.
type OrderActions interface {
	Approve(ctx context.Context, orderID int64) (store.Order, error)
	Reject(ctx context.Context, orderID int64) (store.Order, error)
	Finish(ctx context.Context, orderID int64) (store.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	store   OrderStore
	actions OrderActions
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(store OrderStore, actions OrderActions) *OrderHandler {
	return &OrderHandler{store: store, actions: actions}
}

// RegisterPublicRoutes registers the customer-facing checkout endpoint.
// Expected to be mounted at /booths/{bid}/orders; customers order without
// an account.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/", h.Create)
}

// RegisterManagerRoutes registers manager action endpoints. Expected to be
// mounted inside a booth-scoped subrouter: /booths/{bid}/orders
func (h *OrderHandler) RegisterManagerRoutes(r chi.Router) {
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/reject", h.Reject)
	r.Post("/{id}/finish", h.Finish)
}

// --- Request / Response types ---

type createOrderRequest struct {
	TableID   int64                    `json:"table_id"`
	PayerName string                   `json:"payer_name"`
	Items     []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int32 `json:"quantity"`
}

type orderActionResponse struct {
	ID          int64     `json:"id"`
	TableID     int64     `json:"table_id"`
	VisitID     int64     `json:"visit_id"`
	Code        string    `json:"code"`
	Status      string    `json:"status"`
	TotalAmount string    `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// --- Handlers ---

// Create handles POST /booths/{bid}/orders, the customer checkout.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	boothID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid booth ID"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.TableID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "table_id is required"})
		return
	}
	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}
	for i, item := range req.Items {
		if item.MenuItemID == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "menu_item_id is required"),
			})
			return
		}
		if item.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, "quantity must be > 0"),
			})
			return
		}
	}

	table, err := h.store.GetTable(r.Context(), req.TableID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if table.BoothID != boothID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
		return
	}

	items := make([]store.CreateOrderItemParams, len(req.Items))
	for i, item := range req.Items {
		items[i] = store.CreateOrderItemParams{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
		}
	}

	detail, err := h.store.CreateOrder(r.Context(), store.CreateOrderParams{
		TableID:   req.TableID,
		PayerName: req.PayerName,
		Items:     items,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, store.ErrUnavailable), errors.Is(err, store.ErrEmptyItems):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: create order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(detail))
}

// Approve handles POST /booths/{bid}/orders/{id}/approve.
func (h *OrderHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.actions.Approve)
}

// Reject handles POST /booths/{bid}/orders/{id}/reject.
func (h *OrderHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.actions.Reject)
}

// Finish handles POST /booths/{bid}/orders/{id}/finish.
func (h *OrderHandler) Finish(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.actions.Finish)
}

func (h *OrderHandler) action(w http.ResponseWriter, r *http.Request, act func(context.Context, int64) (store.Order, error)) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := act(r.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, visits.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case visits.IsNotFound(err):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		default:
			log.Printf("ERROR: order action: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, orderActionResponse{
		ID:          order.ID,
		TableID:     order.TableID,
		VisitID:     order.VisitID,
		Code:        order.Code,
		Status:      order.Status,
		TotalAmount: order.TotalAmount.StringFixed(2),
		CreatedAt:   order.CreatedAt,
	})
}

// --- Helpers ---

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}
