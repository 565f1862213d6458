package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"siam/internal/pkg/logger"
)

// NewSQLiteDB abre (ou cria) o arquivo SQLite local usado pelo backend sqlite.
// path ":memory:" cria um banco descartável, útil em testes.
func NewSQLiteDB(path string, log logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("falha ao abrir o SQLite em %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("falha ao obter a conexão do SQLite: %w", err)
	}
	// SQLite serializa escritas; uma conexão evita SQLITE_BUSY e mantém
	// o mesmo banco quando path é ":memory:".
	sqlDB.SetMaxOpenConns(1)

	log.Info("Banco SQLite local aberto.", map[string]interface{}{"path": path})
	return db, nil
}
