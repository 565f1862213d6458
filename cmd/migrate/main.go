package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"siam/config"
	"siam/internal/pkg/database"
	"siam/internal/pkg/logger"
)

// Aplica as migrações goose do diretório sql/ no PostgreSQL.
// O backend SQLite migra sozinho no startup.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ Warning: .env file not found. Loading configs from system environment only: %v", err)
	}

	var migrationsDir string
	flag.StringVar(&migrationsDir, "dir", "./sql", "directory with migration files")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("goose: invalid config: %v", err)
	}
	if cfg.StorageBackend != config.BackendPostgres {
		log.Fatalf("goose: STORAGE_BACKEND=%s; migrations only apply to %s", cfg.StorageBackend, config.BackendPostgres)
	}

	db, err := database.NewPostgresDB(cfg.DatabaseURL, logger.NewLogger(cfg.LogLevel))
	if err != nil {
		log.Fatalf("goose: failed to connect to DB: %v\n", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Fatalf("goose: failed to close DB: %v\n", err)
		}
	}()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("goose: %v", err)
	}

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"}
	}

	command := arguments[0]
	var args []string
	if len(arguments) > 1 {
		args = arguments[1:]
	}

	if err := goose.Run(command, db, migrationsDir, args...); err != nil {
		log.Fatalf("goose %v: %v", command, err)
	}

	fmt.Printf("goose %s success\n", command)
}
