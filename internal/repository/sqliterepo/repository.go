package sqliterepo

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"siam/internal/domain"
	"siam/internal/errors"
	"siam/internal/pkg/logger"
)

// Repository implementa domain.Database sobre um arquivo SQLite local via gorm.
type Repository struct {
	db        *gorm.DB
	dbTimeout time.Duration
	logger    logger.Logger
	now       func() time.Time
	inTx      bool
}

var _ domain.Database = (*Repository)(nil)

// NewRepository cria o repositório; chame Migrate antes do primeiro uso.
func NewRepository(db *gorm.DB, dbTimeout time.Duration, logger logger.Logger) *Repository {
	return &Repository{db: db, dbTimeout: dbTimeout, logger: logger, now: time.Now}
}

// Migrate cria ou atualiza as tabelas.
func (r *Repository) Migrate() error {
	if err := r.db.AutoMigrate(&materialRecord{}, &movementRecord{}); err != nil {
		return errors.NewDBError("Falha ao migrar o esquema SQLite", err)
	}
	return nil
}

func (r *Repository) session(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.dbTimeout)
	return r.db.WithContext(ctxTimeout), cancel
}

func (r *Repository) GetMaterial(ctx context.Context, id string) (domain.Material, error) {
	db, cancel := r.session(ctx)
	defer cancel()

	var rec materialRecord
	err := db.First(&rec, "id = ?", id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Material{}, errors.NewNotFoundError(fmt.Sprintf("Material com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar material no SQLite.", err)
		return domain.Material{}, errors.NewDBError("Falha ao buscar material", err)
	}
	return rec.toDomain(), nil
}

func (r *Repository) SaveMaterial(ctx context.Context, m domain.Material) error {
	if m.ID == "" {
		return errors.NewStorageError("Material sem ID não pode ser gravado.", nil)
	}
	db, cancel := r.session(ctx)
	defer cancel()

	rec := toMaterialRecord(m)
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
		r.logger.Error("Falha ao gravar material no SQLite.", err)
		return errors.NewDBError("Falha ao gravar material", err)
	}
	return nil
}

func (r *Repository) ListMaterials(ctx context.Context, filter domain.MaterialFilter) ([]domain.Material, error) {
	db, cancel := r.session(ctx)
	defer cancel()

	q := db.Model(&materialRecord{})
	if filter.Name != "" {
		q = q.Where("LOWER(name) LIKE ?", likePattern(filter.Name))
	}
	if filter.Category != "" {
		q = q.Where("LOWER(category) = ?", strings.ToLower(filter.Category))
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		q = q.Where("(LOWER(id) LIKE ? OR LOWER(name) LIKE ?)", p, p)
	}
	if filter.BelowMinimum {
		q = q.Where("minimum_stock > 0 AND quantity <= minimum_stock")
	}

	var recs []materialRecord
	if err := q.Order("name, id").Find(&recs).Error; err != nil {
		r.logger.Error("Falha ao listar materiais no SQLite.", err)
		return nil, errors.NewDBError("Falha ao listar materiais", err)
	}

	materials := make([]domain.Material, 0, len(recs))
	for _, rec := range recs {
		materials = append(materials, rec.toDomain())
	}
	return materials, nil
}

// RecordMovement verifica a referência explicitamente: o SQLite não aplica FKs sem PRAGMA.
func (r *Repository) RecordMovement(ctx context.Context, mv domain.Movement) (domain.Movement, error) {
	db, cancel := r.session(ctx)
	defer cancel()

	var count int64
	if err := db.Model(&materialRecord{}).Where("id = ?", mv.MaterialID).Count(&count).Error; err != nil {
		return domain.Movement{}, errors.NewDBError("Falha ao verificar material do movimento", err)
	}
	if count == 0 {
		return domain.Movement{}, errors.NewStorageError(fmt.Sprintf("Violação referencial: material %s não existe.", mv.MaterialID), nil)
	}

	mv.RecordedAt = r.now()
	rec := toMovementRecord(mv)
	if err := db.Create(&rec).Error; err != nil {
		r.logger.Error("Falha ao gravar movimento no SQLite.", err)
		return domain.Movement{}, errors.NewDBError("Falha ao gravar movimento", err)
	}
	return rec.toDomain(), nil
}

func (r *Repository) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	db, cancel := r.session(ctx)
	defer cancel()

	q := db.Model(&movementRecord{})
	if filter.MaterialID != "" {
		q = q.Where("material_id = ?", filter.MaterialID)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", string(filter.Kind))
	}
	if filter.From != nil {
		q = q.Where("occurred_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("occurred_at <= ?", filter.To.UTC())
	}

	var recs []movementRecord
	if err := q.Order("occurred_at, id").Find(&recs).Error; err != nil {
		r.logger.Error("Falha ao listar movimentos no SQLite.", err)
		return nil, errors.NewDBError("Falha ao listar movimentos", err)
	}

	movements := make([]domain.Movement, 0, len(recs))
	for _, rec := range recs {
		movements = append(movements, rec.toDomain())
	}
	return movements, nil
}

// Atomically executa fn numa transação gorm.
func (r *Repository) Atomically(ctx context.Context, fn func(tx domain.Database) error) error {
	if r.inTx {
		return fn(r)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx, dbTimeout: r.dbTimeout, logger: r.logger, now: r.now, inTx: true})
	})
	if err == nil {
		return nil
	}
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	r.logger.Error("Falha na transação SQLite.", err)
	return errors.NewDBError("Falha na transação", err)
}

func likePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}
