package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/modney/booth-api/internal/config"
	"github.com/modney/booth-api/internal/enum"
	"github.com/modney/booth-api/internal/handler"
	mw "github.com/modney/booth-api/internal/middleware"
	"github.com/modney/booth-api/internal/visits"
)

// Store combines the record access every handler needs. Satisfied by both
// store implementations.
type Store interface {
	handler.AuthStore
	handler.OrderStore
	handler.MenuStore
	handler.ReportsStore
}

// New creates a Chi router with all application routes wired up. Customer
// endpoints (menu listing, checkout) are public; everything operating on
// table cards and order statuses requires a manager of the booth.
func New(cfg *config.Config, st Store, svc *visits.Service) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handler.NewAuthHandler(st, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	menuHandler := handler.NewMenuHandler(st)
	orderHandler := handler.NewOrderHandler(st, svc)
	tableHandler := handler.NewTableHandler(svc)
	reportsHandler := handler.NewReportsHandler(st)

	// Public customer routes
	r.Route("/booths/{bid}/menu-items", func(r chi.Router) {
		menuHandler.RegisterPublicRoutes(r)

		// Manager menu management shares the path prefix
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			r.Use(mw.RequireBooth)
			r.Use(mw.RequireRole(enum.UserRoleManager))
			menuHandler.RegisterManagerRoutes(r)
		})
	})

	r.Route("/booths/{bid}/orders", func(r chi.Router) {
		orderHandler.RegisterPublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			r.Use(mw.RequireBooth)
			r.Use(mw.RequireRole(enum.UserRoleManager, enum.UserRoleStaff))
			orderHandler.RegisterManagerRoutes(r)
		})
	})

	// Protected booth routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/booths/{bid}", func(r chi.Router) {
			r.Use(mw.RequireBooth)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleManager, enum.UserRoleStaff))
				r.Route("/tables", tableHandler.RegisterRoutes)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleManager))
				r.Route("/reports", reportsHandler.RegisterRoutes)
			})
		})
	})

	return r
}
