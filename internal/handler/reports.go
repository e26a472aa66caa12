package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/modney/booth-api/internal/store"
)

// ReportsStore defines the store methods needed by report handlers.
type ReportsStore interface {
	GetDailySales(ctx context.Context, boothID uuid.UUID, date time.Time) (store.DailySales, error)
	GetMenuSales(ctx context.Context, boothID uuid.UUID) ([]store.MenuSales, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	store ReportsStore
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// RegisterRoutes registers booth-scoped report endpoints.
// Expected to be mounted inside a booth-scoped subrouter: /booths/{bid}/reports
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-sales", h.DailySales)
	r.Get("/menu-sales", h.MenuSales)
}

// --- Response types ---

type dailySalesResponse struct {
	Date       string `json:"date"`
	OrderCount int64  `json:"order_count"`
	TotalSales string `json:"total_sales"`
}

type menuSalesResponse struct {
	MenuItemID int64  `json:"menu_item_id"`
	Name       string `json:"name"`
	TotalSales string `json:"total_sales"`
}

// --- Handlers ---

// DailySales handles GET /booths/{bid}/reports/daily-sales?date=YYYY-MM-DD.
// Defaults to today when date is absent.
func (h *ReportsHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	boothID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid booth ID"})
		return
	}

	date := time.Now()
	if s := r.URL.Query().Get("date"); s != "" {
		date, err = time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
			return
		}
	}

	sales, err := h.store.GetDailySales(r.Context(), boothID, date)
	if err != nil {
		log.Printf("ERROR: get daily sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dailySalesResponse{
		Date:       sales.Date,
		OrderCount: sales.OrderCount,
		TotalSales: sales.TotalSales.StringFixed(2),
	})
}

// MenuSales handles GET /booths/{bid}/reports/menu-sales.
func (h *ReportsHandler) MenuSales(w http.ResponseWriter, r *http.Request) {
	boothID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid booth ID"})
		return
	}

	sales, err := h.store.GetMenuSales(r.Context(), boothID)
	if err != nil {
		log.Printf("ERROR: get menu sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuSalesResponse, len(sales))
	for i, s := range sales {
		resp[i] = menuSalesResponse{
			MenuItemID: s.MenuItemID,
			Name:       s.Name,
			TotalSales: s.TotalSales.StringFixed(2),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
