package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/modney/booth-api/internal/handler"
	"github.com/modney/booth-api/internal/store"
	"github.com/modney/booth-api/internal/visits"
	"github.com/shopspring/decimal"
)

// --- Mock service ---

type mockTableService struct {
	loadSummariesFn func(ctx context.Context, boothID uuid.UUID) ([]visits.CardSummary, error)
	loadHistoryFn   func(ctx context.Context, tableID int64) ([]store.OrderDetail, error)
	createTableFn   func(ctx context.Context, boothID uuid.UUID) (store.Table, error)
	closeVisitFn    func(ctx context.Context, tableID int64) (bool, error)
}

func (m *mockTableService) LoadTableSummaries(ctx context.Context, boothID uuid.UUID) ([]visits.CardSummary, error) {
	return m.loadSummariesFn(ctx, boothID)
}

func (m *mockTableService) LoadTableHistory(ctx context.Context, tableID int64) ([]store.OrderDetail, error) {
	return m.loadHistoryFn(ctx, tableID)
}

func (m *mockTableService) CreateTable(ctx context.Context, boothID uuid.UUID) (store.Table, error) {
	return m.createTableFn(ctx, boothID)
}

func (m *mockTableService) CloseTableVisit(ctx context.Context, tableID int64) (bool, error) {
	return m.closeVisitFn(ctx, tableID)
}

func tableRouter(svc handler.TableService) http.Handler {
	h := handler.NewTableHandler(svc)
	r := chi.NewRouter()
	r.Route("/booths/{bid}/tables", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestSummaries_RendersCards(t *testing.T) {
	boothID := uuid.New()
	svc := &mockTableService{
		loadSummariesFn: func(_ context.Context, id uuid.UUID) ([]visits.CardSummary, error) {
			if id != boothID {
				t.Errorf("booth ID: got %s, want %s", id, boothID)
			}
			return []visits.CardSummary{
				{
					TableID:      1,
					TableNumber:  1,
					Active:       true,
					OrderStatus:  "PENDING",
					Items:        []visits.ItemCount{{Name: "Cider", Qty: 2}},
					CustomerName: "Hong Gildong",
					AddAmount:    decimal.NewFromInt(4000),
					TotalAmount:  decimal.NewFromInt(4000),
					TimeText:     "18:05",
					VisitID:      10,
					TargetOrder:  101,
				},
				{TableID: 2, TableNumber: 2},
			}, nil
		},
	}

	rr := getPath(t, tableRouter(svc), "/booths/"+boothID.String()+"/tables/summaries")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	cards := decodeList(t, rr)
	if len(cards) != 2 {
		t.Fatalf("cards: got %d, want 2", len(cards))
	}

	active := cards[0]
	if active["order_status"] != "PENDING" {
		t.Errorf("order_status: got %v, want PENDING", active["order_status"])
	}
	if active["add_amount"] != "4000.00" {
		t.Errorf("add_amount: got %v, want 4000.00", active["add_amount"])
	}
	if active["time_text"] != "18:05" {
		t.Errorf("time_text: got %v, want 18:05", active["time_text"])
	}

	idle := cards[1]
	if idle["order_status"] != nil {
		t.Errorf("idle order_status: got %v, want null", idle["order_status"])
	}
	if idle["visit_id"] != nil || idle["target_order"] != nil {
		t.Errorf("idle visit/target: got %v/%v, want null/null", idle["visit_id"], idle["target_order"])
	}
}

func TestSummaries_InvalidBoothID(t *testing.T) {
	svc := &mockTableService{}
	rr := getPath(t, tableRouter(svc), "/booths/not-a-uuid/tables/summaries")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCreateTable_Created(t *testing.T) {
	boothID := uuid.New()
	svc := &mockTableService{
		createTableFn: func(_ context.Context, id uuid.UUID) (store.Table, error) {
			return store.Table{ID: 7, BoothID: id, Number: 7}, nil
		},
	}

	rr := postJSON(t, tableRouter(svc), "/booths/"+boothID.String()+"/tables/", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["number"] != float64(7) {
		t.Errorf("number: got %v, want 7", resp["number"])
	}
}

func TestCreateTable_BoothNotFound(t *testing.T) {
	svc := &mockTableService{
		createTableFn: func(_ context.Context, _ uuid.UUID) (store.Table, error) {
			return store.Table{}, store.ErrNotFound
		},
	}

	rr := postJSON(t, tableRouter(svc), "/booths/"+uuid.New().String()+"/tables/", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCloseTable_ReportsClosed(t *testing.T) {
	svc := &mockTableService{
		closeVisitFn: func(_ context.Context, tableID int64) (bool, error) {
			if tableID != 3 {
				t.Errorf("table ID: got %d, want 3", tableID)
			}
			return true, nil
		},
	}

	rr := postJSON(t, tableRouter(svc), "/booths/"+uuid.New().String()+"/tables/3/close", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["closed"] != true {
		t.Errorf("closed: got %v, want true", resp["closed"])
	}
}

func TestCloseTable_NoOpenVisit(t *testing.T) {
	svc := &mockTableService{
		closeVisitFn: func(_ context.Context, _ int64) (bool, error) {
			return false, nil
		},
	}

	rr := postJSON(t, tableRouter(svc), "/booths/"+uuid.New().String()+"/tables/3/close", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	if resp["closed"] != false {
		t.Errorf("closed: got %v, want false", resp["closed"])
	}
}

func TestCloseTable_InvalidID(t *testing.T) {
	svc := &mockTableService{}
	rr := postJSON(t, tableRouter(svc), "/booths/"+uuid.New().String()+"/tables/abc/close", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHistory_NotFound(t *testing.T) {
	svc := &mockTableService{
		loadHistoryFn: func(_ context.Context, _ int64) ([]store.OrderDetail, error) {
			return nil, store.ErrNotFound
		},
	}

	rr := getPath(t, tableRouter(svc), "/booths/"+uuid.New().String()+"/tables/9/orders")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
