package postgresrepo

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"siam/internal/domain"
	"siam/internal/errors"
	"siam/internal/pkg/logger"
)

// Código SQLSTATE de violação de chave estrangeira.
const foreignKeyViolation = "23503"

// querier é satisfeito tanto por *sql.DB quanto por *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Repository implementa domain.Database sobre PostgreSQL.
type Repository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger

	q    querier
	inTx bool
}

var _ domain.Database = (*Repository)(nil)

// NewRepository cria e retorna uma nova instância do Repositório PostgreSQL.
func NewRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *Repository {
	return &Repository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
		q:         db,
	}
}

const materialColumns = `id, name, description, category, location, quantity, unit, minimum_stock, status, last_movement, created_at, updated_at`

// GetMaterial busca o material pelo ID. Dentro de Atomically a linha fica bloqueada (FOR UPDATE)
// até o fim da transação.
func (r *Repository) GetMaterial(ctx context.Context, id string) (domain.Material, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + materialColumns + ` FROM materials WHERE id = $1`
	if r.inTx {
		// FOR UPDATE não bloqueia uma linha que ainda não existe. O lock
		// consultivo serializa também a primeira entrada de um material novo
		// e é liberado no fim da transação.
		if _, err := r.q.ExecContext(ctxTimeout, `SELECT pg_advisory_xact_lock(hashtext('siam:material:' || $1))`, id); err != nil {
			r.logger.Error("Falha ao obter lock do material no DB.", err)
			return domain.Material{}, errors.NewDBError("Falha ao bloquear material", err)
		}
		query += ` FOR UPDATE`
	}

	m, err := scanMaterial(r.q.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Material{}, errors.NewNotFoundError(fmt.Sprintf("Material com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar material no DB.", err)
		return domain.Material{}, errors.NewDBError("Falha ao buscar material", err)
	}
	return m, nil
}

// SaveMaterial faz upsert pelo ID.
func (r *Repository) SaveMaterial(ctx context.Context, m domain.Material) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        INSERT INTO materials (` + materialColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            description = EXCLUDED.description,
            category = EXCLUDED.category,
            location = EXCLUDED.location,
            quantity = EXCLUDED.quantity,
            unit = EXCLUDED.unit,
            minimum_stock = EXCLUDED.minimum_stock,
            status = EXCLUDED.status,
            last_movement = EXCLUDED.last_movement,
            updated_at = EXCLUDED.updated_at`

	_, err := r.q.ExecContext(ctxTimeout, query,
		m.ID, m.Name, m.Description, m.Category, m.Location,
		m.Quantity, string(m.Unit), m.MinimumStock, string(m.Status), string(m.LastMovement),
		m.CreatedAt.UTC(), m.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Falha ao gravar material.", err)
		return errors.NewDBError("Falha ao gravar material", err)
	}

	r.logger.Debug("Material gravado.", map[string]interface{}{"material_id": m.ID, "quantity": m.Quantity.String()})
	return nil
}

// ListMaterials monta o WHERE a partir dos campos preenchidos do filtro.
func (r *Repository) ListMaterials(ctx context.Context, filter domain.MaterialFilter) ([]domain.Material, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Name != "" {
		where = append(where, "name ILIKE '%' || "+arg(filter.Name)+" || '%'")
	}
	if filter.Category != "" {
		where = append(where, "LOWER(category) = LOWER("+arg(filter.Category)+")")
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}
	if filter.Search != "" {
		p := arg(filter.Search)
		where = append(where, "(id ILIKE '%' || "+p+" || '%' OR name ILIKE '%' || "+p+" || '%')")
	}
	if filter.BelowMinimum {
		where = append(where, "minimum_stock > 0 AND quantity <= minimum_stock")
	}

	query := `SELECT ` + materialColumns + ` FROM materials`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY name, id`

	rows, err := r.q.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar materiais.", err)
		return nil, errors.NewDBError("Falha ao listar materiais", err)
	}
	defer rows.Close()

	materials := make([]domain.Material, 0)
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao ler material", err)
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Falha ao iterar materiais", err)
	}
	return materials, nil
}

// RecordMovement insere o movimento; a FK garante que o material exista.
func (r *Repository) RecordMovement(ctx context.Context, mv domain.Movement) (domain.Movement, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        INSERT INTO movements (material_id, kind, quantity, previous_quantity, resulting_quantity, occurred_at, user_id, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, recorded_at`

	err := r.q.QueryRowContext(ctxTimeout, query,
		mv.MaterialID, string(mv.Kind), mv.Quantity, mv.PreviousQuantity, mv.ResultingQuantity,
		mv.Timestamp.UTC(), mv.UserID, mv.Notes,
	).Scan(&mv.ID, &mv.RecordedAt)

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		r.logger.Warn("Movimento referencia material inexistente.", map[string]interface{}{"material_id": mv.MaterialID})
		return domain.Movement{}, errors.NewStorageError(fmt.Sprintf("Violação referencial: material %s não existe.", mv.MaterialID), err)
	}
	if err != nil {
		r.logger.Error("Falha ao gravar movimento.", err)
		return domain.Movement{}, errors.NewDBError("Falha ao gravar movimento", err)
	}

	r.logger.Debug("Movimento gravado.", map[string]interface{}{"movement_id": mv.ID, "material_id": mv.MaterialID, "kind": string(mv.Kind)})
	return mv, nil
}

// ListMovements lista o histórico em ordem cronológica.
func (r *Repository) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var (
		where []string
		args  []interface{}
	)
	if filter.MaterialID != "" {
		args = append(args, filter.MaterialID)
		where = append(where, fmt.Sprintf("material_id = $%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, filter.From.UTC())
		where = append(where, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, filter.To.UTC())
		where = append(where, fmt.Sprintf("occurred_at <= $%d", len(args)))
	}

	query := `
        SELECT id, material_id, kind, quantity, previous_quantity, resulting_quantity, occurred_at, user_id, notes, recorded_at
        FROM movements`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY occurred_at, id`

	rows, err := r.q.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar movimentos.", err)
		return nil, errors.NewDBError("Falha ao listar movimentos", err)
	}
	defer rows.Close()

	movements := make([]domain.Movement, 0)
	for rows.Next() {
		var (
			mv   domain.Movement
			kind string
		)
		if err := rows.Scan(&mv.ID, &mv.MaterialID, &kind, &mv.Quantity, &mv.PreviousQuantity, &mv.ResultingQuantity,
			&mv.Timestamp, &mv.UserID, &mv.Notes, &mv.RecordedAt); err != nil {
			return nil, errors.NewDBError("Falha ao ler movimento", err)
		}
		mv.Kind = domain.MovementKind(kind)
		movements = append(movements, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Falha ao iterar movimentos", err)
	}
	return movements, nil
}

// Atomically executa fn numa transação READ COMMITTED. Qualquer erro de fn provoca rollback.
func (r *Repository) Atomically(ctx context.Context, fn func(tx domain.Database) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		r.logger.Error("Falha ao iniciar transação.", err)
		return errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback() // sem efeito após o Commit

	txRepo := &Repository{DB: r.DB, DBTimeout: r.DBTimeout, logger: r.logger, q: tx, inTx: true}
	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar transação.", err)
		return errors.NewDBError("Falha ao commitar transação", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMaterial(row rowScanner) (domain.Material, error) {
	var (
		m                          domain.Material
		unit, status, lastMovement string
	)
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Category, &m.Location, &m.Quantity,
		&unit, &m.MinimumStock, &status, &lastMovement, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return domain.Material{}, err
	}
	m.Unit = domain.Unit(unit)
	m.Status = domain.MaterialStatus(status)
	m.LastMovement = domain.MovementKind(lastMovement)
	return m, nil
}
