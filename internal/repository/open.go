// Package repository escolhe e monta o backend de armazenamento configurado.
package repository

import (
	"fmt"

	"siam/config"
	"siam/internal/domain"
	"siam/internal/pkg/cache"
	"siam/internal/pkg/database"
	"siam/internal/pkg/logger"
	"siam/internal/repository/cachedrepo"
	"siam/internal/repository/memoryrepo"
	"siam/internal/repository/postgresrepo"
	"siam/internal/repository/sqliterepo"
)

// Storage agrupa o backend ativo e as funções de encerramento dos recursos abertos.
type Storage struct {
	DB      domain.Database
	Cache   cache.Client // nil quando o cache está desligado
	closers []func() error
}

// Close libera os recursos na ordem inversa da abertura.
func (s *Storage) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Open monta o backend indicado por cfg.StorageBackend e, se habilitado, o cache Redis na frente.
func Open(cfg *config.Config, log logger.Logger) (*Storage, error) {
	s := &Storage{}

	switch cfg.StorageBackend {
	case config.BackendMemory:
		s.DB = memoryrepo.NewDummyDatabase(log)
		log.Info("Backend em memória selecionado (sem durabilidade).", nil)

	case config.BackendPostgres:
		db, err := database.NewPostgresDB(cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		s.DB = postgresrepo.NewRepository(db, cfg.DBTimeout, log)
		log.Info("Backend PostgreSQL selecionado.", nil)

	case config.BackendSQLite:
		db, err := database.NewSQLiteDB(cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("falha ao obter a conexão do SQLite: %w", err)
		}
		s.closers = append(s.closers, sqlDB.Close)

		repo := sqliterepo.NewRepository(db, cfg.DBTimeout, log)
		if err := repo.Migrate(); err != nil {
			s.Close()
			return nil, err
		}
		s.DB = repo
		log.Info("Backend SQLite selecionado.", map[string]interface{}{"path": cfg.SQLitePath})

	default:
		return nil, fmt.Errorf("backend de armazenamento %q não suportado", cfg.StorageBackend)
	}

	if cfg.CacheEnabled {
		redisClient, err := cache.NewRedisClient(cfg.RedisAddr, cfg.CacheTimeout)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, redisClient.Close)
		s.Cache = redisClient
		s.DB = cachedrepo.NewRepository(s.DB, redisClient, cfg.CacheTTL, cfg.CacheTimeout, log)
		log.Info("Cache Redis habilitado para materiais.", map[string]interface{}{"addr": cfg.RedisAddr})
	}

	return s, nil
}
