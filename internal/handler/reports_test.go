package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/modney/booth-api/internal/handler"
	"github.com/modney/booth-api/internal/store"
	"github.com/shopspring/decimal"
)

type mockReportsStore struct {
	dailySalesFn func(ctx context.Context, boothID uuid.UUID, date time.Time) (store.DailySales, error)
	menuSalesFn  func(ctx context.Context, boothID uuid.UUID) ([]store.MenuSales, error)
}

func (m *mockReportsStore) GetDailySales(ctx context.Context, boothID uuid.UUID, date time.Time) (store.DailySales, error) {
	return m.dailySalesFn(ctx, boothID, date)
}

func (m *mockReportsStore) GetMenuSales(ctx context.Context, boothID uuid.UUID) ([]store.MenuSales, error) {
	return m.menuSalesFn(ctx, boothID)
}

func reportsRouter(st handler.ReportsStore) http.Handler {
	h := handler.NewReportsHandler(st)
	r := chi.NewRouter()
	r.Route("/booths/{bid}/reports", h.RegisterRoutes)
	return r
}

func TestDailySales_WithDate(t *testing.T) {
	st := &mockReportsStore{
		dailySalesFn: func(_ context.Context, _ uuid.UUID, date time.Time) (store.DailySales, error) {
			if got := date.Format("2006-01-02"); got != "2025-08-11" {
				t.Errorf("date: got %s, want 2025-08-11", got)
			}
			return store.DailySales{Date: "2025-08-11", OrderCount: 3, TotalSales: decimal.NewFromInt(48900)}, nil
		},
	}

	rr := getPath(t, reportsRouter(st), "/booths/"+uuid.New().String()+"/reports/daily-sales?date=2025-08-11")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["order_count"] != float64(3) {
		t.Errorf("order_count: got %v, want 3", resp["order_count"])
	}
	if resp["total_sales"] != "48900.00" {
		t.Errorf("total_sales: got %v, want 48900.00", resp["total_sales"])
	}
}

func TestDailySales_BadDate(t *testing.T) {
	rr := getPath(t, reportsRouter(&mockReportsStore{}), "/booths/"+uuid.New().String()+"/reports/daily-sales?date=11-08-2025")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestMenuSales_OK(t *testing.T) {
	st := &mockReportsStore{
		menuSalesFn: func(_ context.Context, _ uuid.UUID) ([]store.MenuSales, error) {
			return []store.MenuSales{
				{MenuItemID: 1, Name: "Kimchi Fried Rice", TotalSales: decimal.NewFromInt(16000)},
				{MenuItemID: 2, Name: "Cider", TotalSales: decimal.Zero},
			}, nil
		},
	}

	rr := getPath(t, reportsRouter(st), "/booths/"+uuid.New().String()+"/reports/menu-sales")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	sales := decodeList(t, rr)
	if len(sales) != 2 {
		t.Fatalf("rows: got %d, want 2", len(sales))
	}
	if sales[0]["total_sales"] != "16000.00" {
		t.Errorf("first row total: got %v, want 16000.00", sales[0]["total_sales"])
	}
	if sales[1]["total_sales"] != "0.00" {
		t.Errorf("unsold item total: got %v, want 0.00", sales[1]["total_sales"])
	}
}
