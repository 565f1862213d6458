package router

import (
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "siam/docs" // registra a especificação OpenAPI
	"siam/internal/api/material"
	"siam/internal/api/movement"
	"siam/internal/domain"
	"siam/internal/pkg/cache"
	"siam/internal/pkg/logger"
	"siam/internal/pkg/middleware"
)

// RateLimit habilita o limitador por IP quando Client não é nil.
type RateLimit struct {
	Client      cache.Client
	MaxRequests int
	Period      time.Duration
}

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências.
func NewRouter(materialHandler *material.Handler, movementHandler *movement.Handler, log logger.Logger, limit RateLimit) http.Handler {
	mux := http.NewServeMux()

	// --- 1. Health Check e documentação ---
	mux.HandleFunc("GET /ping", PingHandler)
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// --- 2. Catálogo de materiais (v1) ---
	managersOnly := middleware.PermissionMiddleware(domain.RoleWarehouseManager, domain.RoleAdministrator)

	mux.HandleFunc("GET /v1/materials", materialHandler.ListMaterialsHandler)
	mux.HandleFunc("POST /v1/materials", managersOnly(materialHandler.CreateMaterialHandler))
	mux.HandleFunc("GET /v1/materials/{id}", materialHandler.GetMaterialHandler)
	mux.HandleFunc("PUT /v1/materials/{id}/status", managersOnly(materialHandler.SetStatusHandler))

	// --- 3. Movimentações (v1) ---
	mux.HandleFunc("GET /v1/movements", movementHandler.ListMovementsHandler)
	mux.HandleFunc("POST /v1/movements/entries", middleware.RequireUser(movementHandler.RegisterEntryHandler))
	mux.HandleFunc("POST /v1/movements/exits", middleware.RequireUser(movementHandler.RegisterExitHandler))

	// --- 4. Middlewares globais (de dentro para fora) ---
	var h http.Handler = mux
	if limit.Client != nil {
		h = middleware.RateLimiter(limit.Client, limit.MaxRequests, limit.Period, log)(h)
	}
	h = middleware.RequestLogger(log)(h)
	h = middleware.Identity(h)

	return otelhttp.NewHandler(h, "siam.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
