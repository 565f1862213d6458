package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"siam/config"
	"siam/internal/catalog"
	"siam/internal/pkg/logger"
	"siam/internal/repository"
	"siam/internal/service/inventoryservice"
)

// Importa um catálogo YAML de materiais no backend configurado.
//
//	go run ./cmd/import -file catalogo.yaml -user U1 [-dry-run]
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Aviso: Arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema.")
	}

	file := flag.String("file", "", "catálogo YAML a importar")
	user := flag.String("user", "", "usuário registrado nas entradas de estoque de abertura")
	dryRun := flag.Bool("dry-run", false, "valida e lista o catálogo sem gravar")
	flag.Parse()

	if *file == "" || *user == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("configuração inválida: %v", err)
	}
	appLog := logger.New(logger.Config{Env: cfg.Environment, Level: cfg.LogLevel})

	items, err := catalog.LoadFile(*file)
	if err != nil {
		appLog.Fatal("Catálogo inválido.", err)
	}

	storage, err := repository.Open(cfg, appLog)
	if err != nil {
		appLog.Fatal("Falha ao abrir o armazenamento.", err)
	}
	defer storage.Close()

	svc := inventoryservice.NewService(storage.DB, appLog)
	res := catalog.NewImporter(svc, *user, appLog).Import(context.Background(), items, *dryRun)

	fmt.Printf("criados: %d, já existentes: %d, entradas de abertura: %d, falhas: %d\n",
		res.Created, res.Skipped, res.Entries, len(res.Failures))
	for _, failure := range res.Failures {
		fmt.Fprintln(os.Stderr, "  -", failure)
	}
	if len(res.Failures) > 0 {
		storage.Close()
		os.Exit(1)
	}
}
