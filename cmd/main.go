package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Infraestrutura e utilitários
	"siam/config"
	"siam/internal/pkg/logger"
	"siam/internal/pkg/telemetry"

	// Camadas para injeção de dependências
	"siam/internal/api/material"
	"siam/internal/api/movement"
	"siam/internal/api/router"
	"siam/internal/catalog"
	"siam/internal/repository"
	"siam/internal/service/inventoryservice"
)

// @title        SIAM - Sistema de Inventário de Almoxarifado
// @version      1.0
// @description  Controle de materiais, entradas e saídas do almoxarifado da cozinha.
// @BasePath     /
func main() {
	// 0. Variáveis de ambiente (.env é opcional)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Aviso: Arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema.")
	}

	// 1. Configuração e Logger
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("configuração inválida: %v", err)
	}
	appLog := logger.New(logger.Config{Env: cfg.Environment, Level: cfg.LogLevel})
	appLog.Info("⚡ Inicializando SIAM...", map[string]interface{}{
		"env":     cfg.Environment,
		"backend": cfg.StorageBackend,
	})

	shutdownTracing, err := telemetry.Setup(cfg.TracingEnabled, "siam", cfg.Environment)
	if err != nil {
		appLog.Fatal("Falha ao configurar o tracing.", err)
	}

	// 2. Armazenamento (escolhido uma única vez)
	storage, err := repository.Open(cfg, appLog)
	if err != nil {
		appLog.Fatal("Falha ao abrir o armazenamento.", err)
	}
	defer storage.Close()

	// 3. Injeção de dependências: Repository -> Service -> Handler
	inventorySvc := inventoryservice.NewService(storage.DB, appLog)
	materialHandler := material.NewHandler(inventorySvc, appLog)
	movementHandler := movement.NewHandler(inventorySvc, appLog)
	appLog.Debug("Serviço e handlers de inventário inicializados.", nil)

	// 4. Carga inicial do catálogo, se configurada
	if cfg.SeedFile != "" {
		items, err := catalog.LoadFile(cfg.SeedFile)
		if err != nil {
			appLog.Fatal("Falha ao ler o catálogo inicial.", err)
		}
		res := catalog.NewImporter(inventorySvc, cfg.SeedUser, appLog).Import(context.Background(), items, false)
		for _, failure := range res.Failures {
			appLog.Error("Item do catálogo não importado.", failure)
		}
	}

	// 5. Roteador e servidor
	limit := router.RateLimit{}
	if cfg.RateLimitEnabled {
		limit = router.RateLimit{
			Client:      storage.Cache,
			MaxRequests: cfg.RateLimitMaxRequests,
			Period:      cfg.RateLimitPeriod,
		}
	}
	r := router.NewRouter(materialHandler, movementHandler, appLog, limit)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 6. Execução e Graceful Shutdown
	go func() {
		appLog.Info("Servidor SIAM ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		appLog.Error("Falha ao descarregar spans.", err)
	}

	appLog.Info("Servidor encerrado com sucesso.", nil)
}
