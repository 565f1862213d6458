package cachedrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"siam/internal/domain"
	"siam/internal/pkg/cache"
	"siam/internal/pkg/logger"
)

const materialCacheKey = "siam:material:%s"

// Repository decora qualquer domain.Database com cache de materiais no Redis.
// Falhas do cache nunca derrubam a operação: a leitura cai para o backend.
//
// Leitores e escritores gravam no cache com a versão do material (UpdatedAt).
// Uma gravação só vale se não houver versão mais recente em cache, então um
// leitor atrasado não sobrescreve o valor já confirmado por uma escrita.
type Repository struct {
	next         domain.Database
	cache        cache.Client
	ttl          time.Duration
	cacheTimeout time.Duration
	logger       logger.Logger
}

var _ domain.Database = (*Repository)(nil)

// NewRepository cria o decorador.
func NewRepository(next domain.Database, cacheClient cache.Client, ttl, cacheTimeout time.Duration, logger logger.Logger) *Repository {
	return &Repository{next: next, cache: cacheClient, ttl: ttl, cacheTimeout: cacheTimeout, logger: logger}
}

// GetMaterial tenta o cache antes do backend e popula o cache no miss.
func (r *Repository) GetMaterial(ctx context.Context, id string) (domain.Material, error) {
	key := fmt.Sprintf(materialCacheKey, id)

	cacheCtx, cancel := context.WithTimeout(ctx, r.cacheTimeout)
	cached, err := r.cache.GetVersioned(cacheCtx, key)
	cancel()

	if err == nil {
		var m domain.Material
		if jsonErr := json.Unmarshal([]byte(cached), &m); jsonErr == nil {
			r.logger.Debug("Cache HIT de material.", map[string]interface{}{"material_id": id})
			return m, nil
		}
		r.logger.Warn("Entrada de cache corrompida; lendo do backend.", map[string]interface{}{"material_id": id})
	} else if err != cache.ErrCacheMiss {
		r.logger.Warn("Falha ao ler do cache Redis.", map[string]interface{}{"material_id": id, "error": err.Error()})
	}

	m, err := r.next.GetMaterial(ctx, id)
	if err != nil {
		return domain.Material{}, err
	}
	if err := r.store(ctx, m); err != nil {
		r.logger.Warn("Falha ao gravar material no cache.", map[string]interface{}{"material_id": id, "error": err.Error()})
	}
	return m, nil
}

// SaveMaterial grava no backend e depois no cache.
func (r *Repository) SaveMaterial(ctx context.Context, m domain.Material) error {
	if err := r.next.SaveMaterial(ctx, m); err != nil {
		return err
	}
	r.writeThrough(ctx, m)
	return nil
}

func (r *Repository) ListMaterials(ctx context.Context, filter domain.MaterialFilter) ([]domain.Material, error) {
	return r.next.ListMaterials(ctx, filter)
}

func (r *Repository) RecordMovement(ctx context.Context, mv domain.Movement) (domain.Movement, error) {
	return r.next.RecordMovement(ctx, mv)
}

func (r *Repository) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	return r.next.ListMovements(ctx, filter)
}

// Atomically lê e escreve direto no backend dentro da transação. Os materiais
// gravados só chegam ao cache depois do commit, na última versão gravada.
func (r *Repository) Atomically(ctx context.Context, fn func(tx domain.Database) error) error {
	touched := &touchedSet{byID: map[string]domain.Material{}}
	err := r.next.Atomically(ctx, func(tx domain.Database) error {
		return fn(&txView{Database: tx, touched: touched})
	})
	if err != nil {
		return err
	}
	for _, m := range touched.list() {
		r.writeThrough(ctx, m)
	}
	return nil
}

// store grava o material no cache, versionado por UpdatedAt.
func (r *Repository) store(ctx context.Context, m domain.Material) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	cacheCtx, cancel := context.WithTimeout(ctx, r.cacheTimeout)
	defer cancel()
	stored, err := r.cache.SetIfNewer(cacheCtx, fmt.Sprintf(materialCacheKey, m.ID), data, m.UpdatedAt.UnixMicro(), r.ttl)
	if err != nil {
		return err
	}
	if !stored {
		r.logger.Debug("Cache já tem versão mais recente do material.", map[string]interface{}{"material_id": m.ID})
	}
	return nil
}

// writeThrough publica no cache um material já confirmado no backend.
// Se a gravação falhar, a entrada é removida para não servir valor antigo.
func (r *Repository) writeThrough(ctx context.Context, m domain.Material) {
	if err := r.store(ctx, m); err != nil {
		r.logger.Warn("Falha ao atualizar material no cache; invalidando.", map[string]interface{}{"material_id": m.ID, "error": err.Error()})
		r.invalidate(ctx, m.ID)
	}
}

func (r *Repository) invalidate(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf(materialCacheKey, id)
	}
	cacheCtx, cancel := context.WithTimeout(ctx, r.cacheTimeout)
	defer cancel()
	if err := r.cache.Delete(cacheCtx, keys...); err != nil {
		// A entrada expira pelo TTL.
		r.logger.Warn("Falha ao invalidar cache de materiais.", map[string]interface{}{"material_ids": ids, "error": err.Error()})
	}
}

// txView registra os materiais gravados dentro da transação.
type txView struct {
	domain.Database
	touched *touchedSet
}

func (t *txView) SaveMaterial(ctx context.Context, m domain.Material) error {
	if err := t.Database.SaveMaterial(ctx, m); err != nil {
		return err
	}
	t.touched.add(m)
	return nil
}

func (t *txView) Atomically(ctx context.Context, fn func(tx domain.Database) error) error {
	return fn(t)
}

type touchedSet struct {
	mu   sync.Mutex
	ids  []string
	byID map[string]domain.Material
}

func (s *touchedSet) add(m domain.Material) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.byID[m.ID]; !seen {
		s.ids = append(s.ids, m.ID)
	}
	s.byID[m.ID] = m
}

func (s *touchedSet) list() []domain.Material {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Material, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.byID[id])
	}
	return out
}
