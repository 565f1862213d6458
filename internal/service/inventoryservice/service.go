package inventoryservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"siam/internal/domain"
	apperror "siam/internal/errors"
	"siam/internal/pkg/logger"
)

const tracerName = "siam/inventoryservice"

// quantityPlaces é a precisão aceita para quantidades e estoque mínimo.
const quantityPlaces = 2

// Service aplica as regras de negócio do estoque sobre qualquer domain.Database.
// Não guarda estado entre chamadas além das dependências injetadas.
type Service struct {
	db     domain.Database
	logger logger.Logger
	now    func() time.Time
	tracer trace.Tracer
}

// Option customiza o Service.
type Option func(*Service)

// WithClock substitui o relógio usado na validação de datas e nos timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTracer substitui o tracer obtido do provider global.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

// NewService cria e retorna uma nova instância do Serviço de Inventário.
func NewService(db domain.Database, logger logger.Logger, opts ...Option) *Service {
	s := &Service{
		db:     db,
		logger: logger,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterEntry registra uma entrada. Um ID desconhecido cria o material.
func (s *Service) RegisterEntry(ctx context.Context, req domain.MovementRequest) (domain.StockChange, error) {
	ctx, span := s.startSpan(ctx, "RegisterEntry", req)
	defer span.End()

	s.logger.Debug("Iniciando registro de entrada.", movementFields(req))

	req, err := s.normalizeRequest(req)
	if err != nil {
		return domain.StockChange{}, s.fail(span, "Entrada rejeitada na validação.", err)
	}
	if s.isFutureDate(req.Date) {
		return domain.StockChange{}, s.fail(span, "Entrada rejeitada na validação.",
			apperror.NewValidationError(fmt.Sprintf("A data de recebimento %s está no futuro.", req.Date.Format("2006-01-02"))))
	}

	var change domain.StockChange
	err = s.db.Atomically(ctx, func(tx domain.Database) error {
		material, err := tx.GetMaterial(ctx, req.MaterialID)
		switch {
		case err == nil:
			if !material.Status.AcceptsMovements() {
				return statusBlocked(material)
			}
			s.warnIgnoredAttributes(material, req)
		case isNotFound(err):
			material = s.newMaterialFromEntry(req)
		default:
			return err
		}

		change, err = s.apply(ctx, tx, material, req, domain.MovementEntry)
		return err
	})
	if err != nil {
		return domain.StockChange{}, s.fail(span, "Falha ao registrar entrada.", err)
	}

	s.logger.Info("Entrada registrada com sucesso.", map[string]interface{}{
		"material_id":  change.Material.ID,
		"movement_id":  change.Movement.ID,
		"new_quantity": change.Material.Quantity.String(),
	})
	return change, nil
}

// RegisterExit registra uma saída de um material existente.
func (s *Service) RegisterExit(ctx context.Context, req domain.MovementRequest) (domain.StockChange, error) {
	ctx, span := s.startSpan(ctx, "RegisterExit", req)
	defer span.End()

	s.logger.Debug("Iniciando registro de saída.", movementFields(req))

	req, err := s.normalizeRequest(req)
	if err != nil {
		return domain.StockChange{}, s.fail(span, "Saída rejeitada na validação.", err)
	}

	var change domain.StockChange
	err = s.db.Atomically(ctx, func(tx domain.Database) error {
		material, err := tx.GetMaterial(ctx, req.MaterialID)
		if err != nil {
			return err
		}
		if !material.Status.AcceptsMovements() {
			return statusBlocked(material)
		}
		if req.Quantity.GreaterThan(material.Quantity) {
			return apperror.NewInsufficientStockError(fmt.Sprintf(
				"material %s tem %s %s, saída solicitada de %s.",
				material.ID, material.Quantity.StringFixed(quantityPlaces), material.Unit, req.Quantity.StringFixed(quantityPlaces)))
		}

		change, err = s.apply(ctx, tx, material, req, domain.MovementExit)
		return err
	})
	if err != nil {
		return domain.StockChange{}, s.fail(span, "Falha ao registrar saída.", err)
	}

	s.logger.Info("Saída registrada com sucesso.", map[string]interface{}{
		"material_id":  change.Material.ID,
		"movement_id":  change.Movement.ID,
		"new_quantity": change.Material.Quantity.String(),
	})
	return change, nil
}

// CreateMaterial cadastra um material novo com estoque zero.
// O estoque inicial deve entrar como movimento de entrada.
func (s *Service) CreateMaterial(ctx context.Context, m domain.Material) (domain.Material, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.CreateMaterial", trace.WithAttributes(attribute.String("material.id", m.ID)))
	defer span.End()

	m.ID = strings.TrimSpace(m.ID)
	m.Name = strings.TrimSpace(m.Name)
	if m.Unit == "" {
		m.Unit = domain.UnitUnit
	}
	if m.Status == "" {
		m.Status = domain.StatusAvailable
	}

	if err := validateNewMaterial(m); err != nil {
		return domain.Material{}, s.fail(span, "Cadastro de material rejeitado na validação.", err)
	}

	now := s.now()
	m.Quantity = decimal.Zero
	m.CreatedAt, m.UpdatedAt = now, now
	m.LastMovement = ""

	err := s.db.Atomically(ctx, func(tx domain.Database) error {
		_, err := tx.GetMaterial(ctx, m.ID)
		if err == nil {
			return apperror.NewConflictError(fmt.Sprintf("Já existe um material com ID %s.", m.ID))
		}
		if !isNotFound(err) {
			return err
		}
		return tx.SaveMaterial(ctx, m)
	})
	if err != nil {
		return domain.Material{}, s.fail(span, "Falha ao cadastrar material.", err)
	}

	s.logger.Info("Material cadastrado.", map[string]interface{}{"material_id": m.ID, "unit": string(m.Unit)})
	return m, nil
}

// SetMaterialStatus aplica uma transição da máquina de estados do material.
func (s *Service) SetMaterialStatus(ctx context.Context, id string, status domain.MaterialStatus) (domain.Material, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.SetMaterialStatus", trace.WithAttributes(
		attribute.String("material.id", id),
		attribute.String("material.status", string(status)),
	))
	defer span.End()

	if strings.TrimSpace(id) == "" {
		return domain.Material{}, s.fail(span, "Mudança de status rejeitada.", apperror.NewValidationError("O ID do material é obrigatório."))
	}
	if !status.Valid() {
		return domain.Material{}, s.fail(span, "Mudança de status rejeitada.", apperror.NewValidationError(fmt.Sprintf("Status %q desconhecido.", status)))
	}

	var updated domain.Material
	err := s.db.Atomically(ctx, func(tx domain.Database) error {
		m, err := tx.GetMaterial(ctx, id)
		if err != nil {
			return err
		}
		if m.Status == status {
			updated = m
			return nil
		}
		if !m.Status.CanTransitionTo(status) {
			return apperror.NewStatusError(fmt.Sprintf("material %s não pode passar de %s para %s.", m.ID, m.Status, status))
		}
		m.Status = status
		m.UpdatedAt = s.now()
		if err := tx.SaveMaterial(ctx, m); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return domain.Material{}, s.fail(span, "Falha ao alterar status do material.", err)
	}

	s.logger.Info("Status do material atualizado.", map[string]interface{}{"material_id": updated.ID, "status": string(updated.Status)})
	return updated, nil
}

// GetMaterial busca um material pelo ID.
func (s *Service) GetMaterial(ctx context.Context, id string) (domain.Material, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Material{}, apperror.NewValidationError("O ID do material é obrigatório.")
	}
	m, err := s.db.GetMaterial(ctx, id)
	if err != nil {
		return domain.Material{}, toAppError(err)
	}
	return m, nil
}

// ListMaterials lista os materiais que atendem ao filtro.
func (s *Service) ListMaterials(ctx context.Context, filter domain.MaterialFilter) ([]domain.Material, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("Status %q desconhecido.", filter.Status))
	}
	materials, err := s.db.ListMaterials(ctx, filter)
	if err != nil {
		return nil, toAppError(err)
	}
	return materials, nil
}

// ListMovements lista o histórico de movimentos em ordem cronológica.
func (s *Service) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, apperror.NewValidationError("O início do período deve ser anterior ao fim.")
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("Tipo de movimento %q desconhecido.", filter.Kind))
	}
	movements, err := s.db.ListMovements(ctx, filter)
	if err != nil {
		return nil, toAppError(err)
	}
	return movements, nil
}

// apply grava o material com a nova quantidade e o movimento correspondente.
// Toda validação já foi feita; as duas escritas acontecem dentro da mesma transação.
func (s *Service) apply(ctx context.Context, tx domain.Database, material domain.Material, req domain.MovementRequest, kind domain.MovementKind) (domain.StockChange, error) {
	previous := material.Quantity
	if kind == domain.MovementEntry {
		material.Quantity = previous.Add(req.Quantity)
	} else {
		material.Quantity = previous.Sub(req.Quantity)
	}
	material.LastMovement = kind
	material.UpdatedAt = s.now()

	if err := tx.SaveMaterial(ctx, material); err != nil {
		return domain.StockChange{}, err
	}

	mv, err := tx.RecordMovement(ctx, domain.Movement{
		MaterialID:        material.ID,
		Kind:              kind,
		Quantity:          req.Quantity,
		PreviousQuantity:  previous,
		ResultingQuantity: material.Quantity,
		Timestamp:         req.Date,
		UserID:            req.UserID,
		Notes:             req.Notes,
	})
	if err != nil {
		return domain.StockChange{}, err
	}
	return domain.StockChange{Material: material, Movement: mv}, nil
}

// normalizeRequest valida os campos comuns a entradas e saídas.
func (s *Service) normalizeRequest(req domain.MovementRequest) (domain.MovementRequest, error) {
	req.MaterialID = strings.TrimSpace(req.MaterialID)
	req.UserID = strings.TrimSpace(req.UserID)

	if req.MaterialID == "" {
		return req, apperror.NewValidationError("O ID do material é obrigatório.")
	}
	if req.UserID == "" {
		return req, apperror.NewValidationError("O usuário responsável é obrigatório.")
	}
	if !req.Quantity.IsPositive() {
		return req, apperror.NewValidationError(fmt.Sprintf("A quantidade deve ser maior que zero (recebido %s).", req.Quantity.String()))
	}
	if !hasValidPrecision(req.Quantity) {
		return req, apperror.NewValidationError(fmt.Sprintf("A quantidade %s tem mais de %d casas decimais.", req.Quantity.String(), quantityPlaces))
	}
	if req.Unit != "" && !req.Unit.Valid() {
		return req, apperror.NewValidationError(fmt.Sprintf("Unidade %q desconhecida.", req.Unit))
	}
	if req.Date.IsZero() {
		req.Date = s.now()
	}
	return req, nil
}

// isFutureDate compara por dia de calendário no fuso do relógio da aplicação.
func (s *Service) isFutureDate(date time.Time) bool {
	now := s.now()
	y, m, d := now.Date()
	endOfToday := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return !date.Before(endOfToday)
}

func (s *Service) newMaterialFromEntry(req domain.MovementRequest) domain.Material {
	now := s.now()
	m := domain.Material{
		ID:          req.MaterialID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		Quantity:    decimal.Zero,
		Unit:        req.Unit,
		Status:      domain.StatusAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if m.Name == "" {
		m.Name = req.MaterialID
	}
	if m.Unit == "" {
		m.Unit = domain.UnitUnit
	}
	s.logger.Info("Material desconhecido: a entrada cria o cadastro.", map[string]interface{}{"material_id": m.ID})
	return m
}

// warnIgnoredAttributes registra quando uma entrada traz atributos diferentes dos cadastrados.
// Os atributos gravados prevalecem.
func (s *Service) warnIgnoredAttributes(m domain.Material, req domain.MovementRequest) {
	fields := map[string]interface{}{}
	if req.Name != "" && req.Name != m.Name {
		fields["requested_name"] = req.Name
	}
	if req.Unit != "" && req.Unit != m.Unit {
		fields["requested_unit"] = string(req.Unit)
	}
	if len(fields) == 0 {
		return
	}
	fields["material_id"] = m.ID
	s.logger.Warn("Entrada com atributos divergentes do cadastro; atributos ignorados.", fields)
}

func (s *Service) startSpan(ctx context.Context, op string, req domain.MovementRequest) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "inventory."+op, trace.WithAttributes(
		attribute.String("material.id", req.MaterialID),
		attribute.String("movement.quantity", req.Quantity.String()),
		attribute.String("user.id", req.UserID),
	))
}

// fail converte err para AppError, registra no log e no span.
func (s *Service) fail(span trace.Span, msg string, err error) error {
	appErr := toAppError(err)
	span.SetStatus(codes.Error, appErr.Category())

	if appErr.HTTPStatus() >= 500 {
		// A causa do driver não vai para a resposta, só para o log e o span.
		detailed := error(appErr)
		if cause := appErr.Unwrap(); cause != nil {
			detailed = fmt.Errorf("%w: %v", appErr, cause)
		}
		span.RecordError(detailed)
		s.logger.Error(msg, detailed)
	} else {
		span.RecordError(appErr)
		s.logger.Warn(msg, map[string]interface{}{"category": appErr.Category(), "reason": appErr.Error()})
	}
	return appErr
}

func validateNewMaterial(m domain.Material) error {
	switch {
	case m.ID == "":
		return apperror.NewValidationError("O ID do material é obrigatório.")
	case m.Name == "":
		return apperror.NewValidationError("O nome do material é obrigatório.")
	case !m.Unit.Valid():
		return apperror.NewValidationError(fmt.Sprintf("Unidade %q desconhecida.", m.Unit))
	case m.Status != domain.StatusAvailable:
		return apperror.NewValidationError("Materiais novos são cadastrados como available.")
	case m.MinimumStock.IsNegative():
		return apperror.NewValidationError("O estoque mínimo não pode ser negativo.")
	case !hasValidPrecision(m.MinimumStock):
		return apperror.NewValidationError(fmt.Sprintf("O estoque mínimo tem mais de %d casas decimais.", quantityPlaces))
	case !m.Quantity.IsZero():
		return apperror.NewValidationError("O estoque inicial deve ser registrado como entrada.")
	}
	return nil
}

func statusBlocked(m domain.Material) error {
	return apperror.NewStatusError(fmt.Sprintf("material %s está %s e não aceita movimentações.", m.ID, m.Status))
}

func hasValidPrecision(q decimal.Decimal) bool {
	return q.Equal(q.Truncate(quantityPlaces))
}

func isNotFound(err error) bool {
	appErr, ok := apperror.AsAppError(err)
	if !ok {
		return false
	}
	_, notFound := appErr.(*apperror.NotFoundError)
	return notFound
}

// toAppError garante que nada sem categoria chegue ao Handler.
func toAppError(err error) apperror.AppError {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr
	}
	return apperror.NewStorageError("Falha inesperada no armazenamento.", err)
}

func movementFields(req domain.MovementRequest) map[string]interface{} {
	return map[string]interface{}{
		"material_id": req.MaterialID,
		"quantity":    req.Quantity.String(),
		"user_id":     req.UserID,
	}
}
