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
	"github.com/modney/booth-api/internal/enum"
	"github.com/modney/booth-api/internal/store"
	"github.com/shopspring/decimal"
)

// MenuStore defines the store methods needed by menu handlers.
type MenuStore interface {
	ListMenuItems(ctx context.Context, boothID uuid.UUID) ([]store.MenuItem, error)
	GetMenuItem(ctx context.Context, id int64) (store.MenuItem, error)
	CreateMenuItem(ctx context.Context, params store.CreateMenuItemParams) (store.MenuItem, error)
	UpdateMenuItem(ctx context.Context, params store.UpdateMenuItemParams) (store.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id int64) error
	SetMenuItemAvailable(ctx context.Context, id int64, available bool) (store.MenuItem, error)
}

// MenuHandler handles menu endpoints.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterPublicRoutes registers the customer-facing menu listing.
// Expected to be mounted at /booths/{bid}/menu-items.
func (h *MenuHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// RegisterManagerRoutes registers manager menu management endpoints.
// Expected to be mounted inside a booth-scoped subrouter.
func (h *MenuHandler) RegisterManagerRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Patch("/{id}/available", h.SetAvailable)
}

// --- Request / Response types ---

type createMenuItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url"`
	Available   *bool  `json:"available"`
}

type updateMenuItemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *string `json:"price"`
	ImageURL    *string `json:"image_url"`
}

type setAvailableRequest struct {
	Available bool `json:"available"`
}

type menuItemResponse struct {
	ID          int64     `json:"id"`
	BoothID     uuid.UUID `json:"booth_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
}

// --- Handlers ---

// List handles GET /booths/{bid}/menu-items.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	boothID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid booth ID"})
		return
	}

	items, err := h.store.ListMenuItems(r.Context(), boothID)
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, mi := range items {
		resp[i] = toMenuItemResponse(mi)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /booths/{bid}/menu-items.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	boothID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid booth ID"})
		return
	}

	var req createMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if !isValidMenuCategory(req.Category) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category"})
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		return
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	item, err := h.store.CreateMenuItem(r.Context(), store.CreateMenuItemParams{
		BoothID:     boothID,
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		Available:   available,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "booth not found"})
			return
		}
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update handles PUT /booths/{bid}/menu-items/{id}. Absent fields keep
// their current value.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req updateMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params := store.UpdateMenuItemParams{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil || price.IsNegative() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
			return
		}
		params.Price = &price
	}

	item, err := h.store.UpdateMenuItem(r.Context(), params)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Delete handles DELETE /booths/{bid}/menu-items/{id}.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	if err := h.store.DeleteMenuItem(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: delete menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetAvailable handles PATCH /booths/{bid}/menu-items/{id}/available, the
// sold-out toggle.
func (h *MenuHandler) SetAvailable(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req setAvailableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := h.store.SetMenuItemAvailable(r.Context(), id, req.Available)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: set menu item availability: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// --- Helpers ---

func isValidMenuCategory(s string) bool {
	switch s {
	case enum.MenuCategoryFood, enum.MenuCategoryDrink:
		return true
	}
	return false
}

func toMenuItemResponse(mi store.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:          mi.ID,
		BoothID:     mi.BoothID,
		Name:        mi.Name,
		Description: mi.Description,
		Price:       mi.Price.StringFixed(2),
		Category:    mi.Category,
		ImageURL:    mi.ImageURL,
		Available:   mi.Available,
		CreatedAt:   mi.CreatedAt,
	}
}
