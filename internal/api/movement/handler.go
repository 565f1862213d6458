package movement

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"siam/internal/api/response"
	"siam/internal/domain"
	apperror "siam/internal/errors"
	"siam/internal/pkg/logger"
	"siam/internal/pkg/middleware"
)

const dateLayout = "2006-01-02"

// MovementService define o contrato que o Handler espera da camada de Serviço.
type MovementService interface {
	RegisterEntry(ctx context.Context, req domain.MovementRequest) (domain.StockChange, error)
	RegisterExit(ctx context.Context, req domain.MovementRequest) (domain.StockChange, error)
	ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error)
}

// Handler agrupa os handlers de movimentação de estoque.
type Handler struct {
	Service MovementService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc MovementService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// MovementPayload é o corpo de uma entrada ou saída. O usuário vem do cabeçalho X-User-ID.
// Date aceita "2006-01-02" ou RFC3339; vazio significa agora.
type MovementPayload struct {
	MaterialID  string          `json:"material_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Date        string          `json:"date,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Name        string          `json:"name,omitempty"`
	Unit        domain.Unit     `json:"unit,omitempty"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Location    string          `json:"location,omitempty"`
}

// RegisterEntryHandler lida com POST /v1/movements/entries.
//
// @Summary      Registrar entrada
// @Description  Recebimento de material. Um ID desconhecido cadastra o material.
// @Tags         movements
// @Accept       json
// @Produce      json
// @Param        X-User-ID  header    string           true  "Usuário responsável"
// @Param        entry      body      MovementPayload  true  "Entrada"
// @Success      201        {object}  domain.StockChange
// @Failure      400        {object}  domain.ErrorResponse
// @Failure      401        {object}  domain.ErrorResponse
// @Failure      409        {object}  domain.ErrorResponse
// @Router       /v1/movements/entries [post]
func (h *Handler) RegisterEntryHandler(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeMovement(r)
	if err != nil {
		response.Handle(w, r, h.Logger, nil, err, http.StatusCreated)
		return
	}
	change, err := h.Service.RegisterEntry(r.Context(), req)
	response.Handle(w, r, h.Logger, change, err, http.StatusCreated)
}

// RegisterExitHandler lida com POST /v1/movements/exits.
//
// @Summary      Registrar saída
// @Tags         movements
// @Accept       json
// @Produce      json
// @Param        X-User-ID  header    string           true  "Usuário responsável"
// @Param        exit       body      MovementPayload  true  "Saída"
// @Success      201        {object}  domain.StockChange
// @Failure      400        {object}  domain.ErrorResponse
// @Failure      404        {object}  domain.ErrorResponse
// @Failure      409        {object}  domain.ErrorResponse
// @Failure      422        {object}  domain.ErrorResponse
// @Router       /v1/movements/exits [post]
func (h *Handler) RegisterExitHandler(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeMovement(r)
	if err != nil {
		response.Handle(w, r, h.Logger, nil, err, http.StatusCreated)
		return
	}
	change, err := h.Service.RegisterExit(r.Context(), req)
	response.Handle(w, r, h.Logger, change, err, http.StatusCreated)
}

// ListMovementsHandler lida com GET /v1/movements.
//
// @Summary      Histórico de movimentações
// @Tags         movements
// @Produce      json
// @Param        material_id  query     string  false  "ID do material"
// @Param        kind         query     string  false  "entry ou exit"
// @Param        from         query     string  false  "Data inicial (inclusiva)"
// @Param        to           query     string  false  "Data final (inclusiva)"
// @Success      200          {array}   domain.Movement
// @Failure      400          {object}  domain.ErrorResponse
// @Router       /v1/movements [get]
func (h *Handler) ListMovementsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.MovementFilter{
		MaterialID: q.Get("material_id"),
		Kind:       domain.MovementKind(q.Get("kind")),
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		response.Handle(w, r, h.Logger, nil, apperror.NewValidationError(fmt.Sprintf("kind %q desconhecido.", filter.Kind)), http.StatusOK)
		return
	}

	var err error
	if filter.From, err = parseBound(q.Get("from"), false); err != nil {
		response.Handle(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}
	if filter.To, err = parseBound(q.Get("to"), true); err != nil {
		response.Handle(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}

	movements, err := h.Service.ListMovements(r.Context(), filter)
	if movements == nil {
		movements = []domain.Movement{}
	}
	response.Handle(w, r, h.Logger, movements, err, http.StatusOK)
}

func (h *Handler) decodeMovement(r *http.Request) (domain.MovementRequest, error) {
	claims, ok := middleware.GetUserClaimsFromContext(r.Context())
	if !ok {
		return domain.MovementRequest{}, apperror.NewUnauthorizedError("Cabeçalho X-User-ID ausente.")
	}

	var p MovementPayload
	if err := response.Decode(r, &p); err != nil {
		return domain.MovementRequest{}, err
	}
	date, err := parseDate(p.Date)
	if err != nil {
		return domain.MovementRequest{}, err
	}

	return domain.MovementRequest{
		MaterialID:  p.MaterialID,
		Quantity:    p.Quantity,
		Date:        date,
		UserID:      claims.UserID,
		Notes:       p.Notes,
		Name:        p.Name,
		Unit:        p.Unit,
		Description: p.Description,
		Category:    p.Category,
		Location:    p.Location,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, apperror.NewValidationError(fmt.Sprintf("data %q inválida; use AAAA-MM-DD ou RFC3339.", s))
	}
	return t, nil
}

// parseBound converte um limite do filtro. Uma data sem hora como limite final cobre o dia inteiro.
func parseBound(s string, end bool) (*time.Time, error) {
	t, err := parseDate(s)
	if err != nil || t.IsZero() {
		return nil, err
	}
	if end && len(strings.TrimSpace(s)) == len(dateLayout) {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}
