package memoryrepo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"siam/internal/domain"
	"siam/internal/errors"
	"siam/internal/pkg/logger"
)

// DummyDatabase é o backend em memória usado em desenvolvimento e testes.
// Nada sobrevive ao fim do processo.
type DummyDatabase struct {
	mu        sync.RWMutex
	materials map[string]domain.Material
	movements []domain.Movement
	lastID    int64
	now       func() time.Time
	logger    logger.Logger
}

var _ domain.Database = (*DummyDatabase)(nil)

// NewDummyDatabase cria um banco em memória vazio.
func NewDummyDatabase(logger logger.Logger) *DummyDatabase {
	return &DummyDatabase{
		materials: make(map[string]domain.Material),
		now:       time.Now,
		logger:    logger,
	}
}

// GetMaterial busca um material pelo ID.
func (d *DummyDatabase) GetMaterial(ctx context.Context, id string) (domain.Material, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.getMaterial(id)
}

// SaveMaterial insere ou substitui o material (create-or-update).
func (d *DummyDatabase) SaveMaterial(ctx context.Context, m domain.Material) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saveMaterial(m)
}

// ListMaterials retorna uma cópia filtrada, ordenada por nome e ID.
func (d *DummyDatabase) ListMaterials(ctx context.Context, filter domain.MaterialFilter) ([]domain.Material, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.listMaterials(filter), nil
}

// RecordMovement acrescenta um movimento ao log.
func (d *DummyDatabase) RecordMovement(ctx context.Context, mv domain.Movement) (domain.Movement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recordMovement(mv)
}

// ListMovements retorna os movimentos filtrados em ordem crescente de Timestamp.
func (d *DummyDatabase) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.listMovements(filter), nil
}

// Atomically segura o lock de escrita durante fn e restaura o estado anterior se fn falhar.
func (d *DummyDatabase) Atomically(ctx context.Context, fn func(tx domain.Database) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	snapshot := make(map[string]domain.Material, len(d.materials))
	for id, m := range d.materials {
		snapshot[id] = m
	}
	movementCount, lastID := len(d.movements), d.lastID

	if err := fn(&txView{db: d}); err != nil {
		d.materials = snapshot
		d.movements = d.movements[:movementCount]
		d.lastID = lastID
		d.logger.Debug("Transação em memória desfeita.", map[string]interface{}{"cause": err.Error()})
		return err
	}
	return nil
}

// --- Implementação sem lock, compartilhada com a visão transacional ---

func (d *DummyDatabase) getMaterial(id string) (domain.Material, error) {
	m, ok := d.materials[id]
	if !ok {
		return domain.Material{}, errors.NewNotFoundError(fmt.Sprintf("Material com ID %s não existe.", id))
	}
	return m, nil
}

func (d *DummyDatabase) saveMaterial(m domain.Material) error {
	if m.ID == "" {
		return errors.NewStorageError("Material sem ID não pode ser gravado.", nil)
	}
	d.materials[m.ID] = m
	return nil
}

func (d *DummyDatabase) listMaterials(filter domain.MaterialFilter) []domain.Material {
	out := make([]domain.Material, 0, len(d.materials))
	for _, m := range d.materials {
		if filter.Matches(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (d *DummyDatabase) recordMovement(mv domain.Movement) (domain.Movement, error) {
	if _, ok := d.materials[mv.MaterialID]; !ok {
		return domain.Movement{}, errors.NewStorageError(
			fmt.Sprintf("Violação referencial: material %s não existe.", mv.MaterialID), nil)
	}
	d.lastID++
	mv.ID = d.lastID
	mv.RecordedAt = d.now()
	d.movements = append(d.movements, mv)
	return mv, nil
}

func (d *DummyDatabase) listMovements(filter domain.MovementFilter) []domain.Movement {
	out := make([]domain.Movement, 0)
	for _, mv := range d.movements {
		if filter.Matches(mv) {
			out = append(out, mv)
		}
	}
	// Datas informadas pelo usuário podem chegar fora de ordem; o ID desempata.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// txView opera sobre o DummyDatabase com o lock já adquirido por Atomically.
type txView struct {
	db *DummyDatabase
}

func (t *txView) GetMaterial(ctx context.Context, id string) (domain.Material, error) {
	return t.db.getMaterial(id)
}

func (t *txView) SaveMaterial(ctx context.Context, m domain.Material) error {
	return t.db.saveMaterial(m)
}

func (t *txView) ListMaterials(ctx context.Context, filter domain.MaterialFilter) ([]domain.Material, error) {
	return t.db.listMaterials(filter), nil
}

func (t *txView) RecordMovement(ctx context.Context, mv domain.Movement) (domain.Movement, error) {
	return t.db.recordMovement(mv)
}

func (t *txView) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	return t.db.listMovements(filter), nil
}

// Atomically aninhado reaproveita a transação corrente.
func (t *txView) Atomically(ctx context.Context, fn func(tx domain.Database) error) error {
	return fn(t)
}
