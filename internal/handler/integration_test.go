//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/modney/booth-api/internal/config"
	"github.com/modney/booth-api/internal/enum"
	"github.com/modney/booth-api/internal/router"
	"github.com/modney/booth-api/internal/store"
	"github.com/modney/booth-api/internal/visits"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegrationFlow exercises the full API lifecycle against a real
// PostgreSQL database: seed, login, customer checkout, dashboard load,
// order approval and settlement, table close, and the daily report.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	pgContainer, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	st := store.NewPostgres(pool)
	if err := st.ApplySchema(ctx); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	cfg := &config.Config{
		Port:        "8081",
		DatabaseURL: connStr,
		JWTSecret:   "integration-test-secret",
	}
	svc := visits.NewService(st)
	server := httptest.NewServer(router.New(cfg, st, svc))
	defer server.Close()

	// --- 1. Seed booth, table, menu, and manager directly ---
	booth, err := st.CreateBooth(ctx, "Integration Booth")
	if err != nil {
		t.Fatalf("create booth: %v", err)
	}
	table, err := st.CreateTable(ctx, booth.ID)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	rice, err := st.CreateMenuItem(ctx, store.CreateMenuItemParams{
		BoothID:   booth.ID,
		Name:      "Kimchi Fried Rice",
		Price:     decimal.NewFromInt(8000),
		Category:  enum.MenuCategoryFood,
		Available: true,
	})
	if err != nil {
		t.Fatalf("create menu item: %v", err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if _, err := st.CreateUser(ctx, store.User{
		BoothID:        booth.ID,
		Name:           "Integration Manager",
		Email:          "manager@integration.test",
		HashedPassword: string(hashed),
		Role:           enum.UserRoleManager,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	// --- 2. Login ---
	token := doLogin(t, server, "manager@integration.test", "password123")

	// --- 3. Customer lists the menu (public) ---
	menu := doGet(t, server, fmt.Sprintf("/booths/%s/menu-items/", booth.ID), "")
	var menuItems []map[string]interface{}
	decodeBody(t, menu, &menuItems)
	if len(menuItems) != 1 {
		t.Fatalf("menu items: got %d, want 1", len(menuItems))
	}

	// --- 4. Customer checks out (public) ---
	checkout := doPost(t, server, fmt.Sprintf("/booths/%s/orders/", booth.ID), "", map[string]interface{}{
		"table_id":   table.ID,
		"payer_name": "Hong Gildong",
		"items":      []map[string]interface{}{{"menu_item_id": rice.ID, "quantity": 2}},
	})
	if checkout.StatusCode != http.StatusCreated {
		t.Fatalf("checkout status: got %d, want %d", checkout.StatusCode, http.StatusCreated)
	}
	var orderResp map[string]interface{}
	decodeBody(t, checkout, &orderResp)
	if orderResp["total_amount"] != "16000.00" {
		t.Fatalf("order total: got %v, want 16000.00 (price snapshot verification failed)", orderResp["total_amount"])
	}
	orderID := int64(orderResp["id"].(float64))

	// --- 5. Dashboard shows the table PENDING ---
	summaries := doGet(t, server, fmt.Sprintf("/booths/%s/tables/summaries", booth.ID), token)
	var cards []map[string]interface{}
	decodeBody(t, summaries, &cards)
	if len(cards) != 1 {
		t.Fatalf("cards: got %d, want 1", len(cards))
	}
	if cards[0]["order_status"] != enum.OrderStatusPending {
		t.Fatalf("card status: got %v, want PENDING", cards[0]["order_status"])
	}
	if cards[0]["active"] != true {
		t.Fatal("checkout should activate the table")
	}

	// --- 6. Manager approves then finishes the order ---
	approve := doPost(t, server, fmt.Sprintf("/booths/%s/orders/%d/approve", booth.ID, orderID), token, nil)
	if approve.StatusCode != http.StatusOK {
		t.Fatalf("approve status: got %d, want %d", approve.StatusCode, http.StatusOK)
	}

	// Approving again conflicts
	again := doPost(t, server, fmt.Sprintf("/booths/%s/orders/%d/approve", booth.ID, orderID), token, nil)
	if again.StatusCode != http.StatusConflict {
		t.Fatalf("second approve status: got %d, want %d", again.StatusCode, http.StatusConflict)
	}

	finish := doPost(t, server, fmt.Sprintf("/booths/%s/orders/%d/finish", booth.ID, orderID), token, nil)
	if finish.StatusCode != http.StatusOK {
		t.Fatalf("finish status: got %d, want %d", finish.StatusCode, http.StatusOK)
	}

	// --- 7. Manager closes the table ---
	closeResp := doPost(t, server, fmt.Sprintf("/booths/%s/tables/%d/close", booth.ID, table.ID), token, nil)
	if closeResp.StatusCode != http.StatusOK {
		t.Fatalf("close status: got %d, want %d", closeResp.StatusCode, http.StatusOK)
	}
	var closed map[string]interface{}
	decodeBody(t, closeResp, &closed)
	if closed["closed"] != true {
		t.Fatalf("closed: got %v, want true", closed["closed"])
	}

	// Card is now empty and inactive
	summaries = doGet(t, server, fmt.Sprintf("/booths/%s/tables/summaries", booth.ID), token)
	decodeBody(t, summaries, &cards)
	if cards[0]["active"] != false || cards[0]["order_status"] != nil {
		t.Fatalf("card after close: active=%v status=%v, want false/null", cards[0]["active"], cards[0]["order_status"])
	}

	// --- 8. Daily sales report counts the settled order ---
	report := doGet(t, server, fmt.Sprintf("/booths/%s/reports/daily-sales", booth.ID), token)
	var sales map[string]interface{}
	decodeBody(t, report, &sales)
	if sales["order_count"] != float64(1) {
		t.Fatalf("report order count: got %v, want 1", sales["order_count"])
	}
	if sales["total_sales"] != "16000.00" {
		t.Fatalf("report total: got %v, want 16000.00", sales["total_sales"])
	}

	t.Logf("Integration test passed: container=%s, booth=%s, order=%d",
		pgContainer.GetContainerID(), booth.ID, orderID)
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("booth_test"),
		tcpostgres.WithUsername("booth"),
		tcpostgres.WithPassword("booth"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

// --- HTTP helpers ---

func doLogin(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	resp := doPost(t, server, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status: got %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var body map[string]interface{}
	decodeBody(t, resp, &body)
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatal("empty access token")
	}
	return token
}

func doGet(t *testing.T, server *httptest.Server, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("GET", server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func doPost(t *testing.T, server *httptest.Server, path, token string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest("POST", server.URL+path, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
