package handler

import (
	"context"
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

// TableService defines the aggregation methods needed by table handlers.
// Satisfied by *visits.Service; narrow interface for testability.
type TableService interface {
	LoadTableSummaries(ctx context.Context, boothID uuid.UUID) ([]visits.CardSummary, error)
	LoadTableHistory(ctx context.Context, tableID int64) ([]store.OrderDetail, error)
	CreateTable(ctx context.Context, boothID uuid.UUID) (store.Table, error)
	CloseTableVisit(ctx context.Context, tableID int64) (bool, error)
}

// TableHandler handles table endpoints.
type TableHandler struct {
	svc TableService
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(svc TableService) *TableHandler {
	return &TableHandler{svc: svc}
}

// RegisterRoutes registers table endpoints on the given Chi router.
// Expected to be mounted inside a booth-scoped subrouter: /booths/{bid}/tables
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/summaries", h.Summaries)
	r.Get("/{tid}/orders", h.History)
	r.Post("/{tid}/close", h.Close)
}

// --- Response types ---

type cardItemResponse struct {
	Name     string `json:"name"`
	Quantity int32  `json:"quantity"`
}

type cardSummaryResponse struct {
	TableID      int64              `json:"table_id"`
	TableNumber  int32              `json:"table_number"`
	Active       bool               `json:"active"`
	OrderStatus  *string            `json:"order_status"`
	Items        []cardItemResponse `json:"items"`
	CustomerName string             `json:"customer_name"`
	AddAmount    string             `json:"add_amount"`
	TotalAmount  string             `json:"total_amount"`
	TimeText     string             `json:"time_text"`
	VisitID      *int64             `json:"visit_id"`
	TargetOrder  *int64             `json:"target_order"`
}

type tableResponse struct {
	ID        int64     `json:"id"`
	BoothID   uuid.UUID `json:"booth_id"`
	Number    int32     `json:"number"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type closeVisitResponse struct {
	TableID int64 `json:"table_id"`
	Closed  bool  `json:"closed"`
}

type orderItemResponse struct {
	Name      string  `json:"name"`
	Quantity  int32   `json:"quantity"`
	UnitPrice *string `json:"unit_price"`
}

type orderResponse struct {
	ID          int64               `json:"id"`
	TableID     int64               `json:"table_id"`
	VisitID     int64               `json:"visit_id"`
	Code        string              `json:"code"`
	Status      string              `json:"status"`
	TotalAmount string              `json:"total_amount"`
	CreatedAt   time.Time           `json:"created_at"`
	PayerName   *string             `json:"payer_name"`
	Items       []orderItemResponse `json:"items"`
}

// --- Handlers ---

// Summaries handles GET /booths/{bid}/tables/summaries.
func (h *TableHandler) Summaries(w http.ResponseWriter, r *http.Request) {
	boothID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid booth ID"})
		return
	}

	cards, err := h.svc.LoadTableSummaries(r.Context(), boothID)
	if err != nil {
		log.Printf("ERROR: load table summaries: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]cardSummaryResponse, len(cards))
	for i, c := range cards {
		resp[i] = toCardResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /booths/{bid}/tables.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	boothID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid booth ID"})
		return
	}

	table, err := h.svc.CreateTable(r.Context(), boothID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "booth not found"})
			return
		}
		log.Printf("ERROR: create table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toTableResponse(table))
}

// History handles GET /booths/{bid}/tables/{tid}/orders. It returns every
// order ever placed at the table, newest first.
func (h *TableHandler) History(w http.ResponseWriter, r *http.Request) {
	tableID, err := strconv.ParseInt(chi.URLParam(r, "tid"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	orders, err := h.svc.LoadTableHistory(r.Context(), tableID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: load table history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Close handles POST /booths/{bid}/tables/{tid}/close.
func (h *TableHandler) Close(w http.ResponseWriter, r *http.Request) {
	tableID, err := strconv.ParseInt(chi.URLParam(r, "tid"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	closed, err := h.svc.CloseTableVisit(r.Context(), tableID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: close table visit: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, closeVisitResponse{TableID: tableID, Closed: closed})
}

// --- Helpers ---

func toCardResponse(c visits.CardSummary) cardSummaryResponse {
	resp := cardSummaryResponse{
		TableID:      c.TableID,
		TableNumber:  c.TableNumber,
		Active:       c.Active,
		Items:        make([]cardItemResponse, len(c.Items)),
		CustomerName: c.CustomerName,
		AddAmount:    c.AddAmount.StringFixed(2),
		TotalAmount:  c.TotalAmount.StringFixed(2),
		TimeText:     c.TimeText,
	}
	for i, it := range c.Items {
		resp.Items[i] = cardItemResponse{Name: it.Name, Quantity: it.Qty}
	}
	if c.OrderStatus != "" {
		s := c.OrderStatus
		resp.OrderStatus = &s
	}
	if c.VisitID != 0 {
		v := c.VisitID
		resp.VisitID = &v
	}
	if c.TargetOrder != 0 {
		t := c.TargetOrder
		resp.TargetOrder = &t
	}
	return resp
}

func toTableResponse(t store.Table) tableResponse {
	return tableResponse{
		ID:        t.ID,
		BoothID:   t.BoothID,
		Number:    t.Number,
		Active:    t.Active,
		CreatedAt: t.CreatedAt,
	}
}

func toOrderResponse(d store.OrderDetail) orderResponse {
	resp := orderResponse{
		ID:          d.Order.ID,
		TableID:     d.Order.TableID,
		VisitID:     d.Order.VisitID,
		Code:        d.Order.Code,
		Status:      d.Order.Status,
		TotalAmount: d.Order.TotalAmount.StringFixed(2),
		CreatedAt:   d.Order.CreatedAt,
		Items:       make([]orderItemResponse, len(d.Items)),
	}
	for i, it := range d.Items {
		item := orderItemResponse{Name: it.Name, Quantity: it.Quantity}
		if it.UnitPrice != nil {
			s := it.UnitPrice.StringFixed(2)
			item.UnitPrice = &s
		}
		resp.Items[i] = item
	}
	if d.Payment != nil {
		name := d.Payment.PayerName
		resp.PayerName = &name
	}
	return resp
}
