package material

import (
	"context"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"siam/internal/api/response"
	"siam/internal/domain"
	apperror "siam/internal/errors"
	"siam/internal/pkg/logger"
	"siam/internal/pkg/middleware"
)

// MaterialService define o contrato que o Handler espera da camada de Serviço.
type MaterialService interface {
	CreateMaterial(ctx context.Context, m domain.Material) (domain.Material, error)
	GetMaterial(ctx context.Context, id string) (domain.Material, error)
	ListMaterials(ctx context.Context, filter domain.MaterialFilter) ([]domain.Material, error)
	SetMaterialStatus(ctx context.Context, id string, status domain.MaterialStatus) (domain.Material, error)
}

// Handler agrupa os handlers do catálogo de materiais.
type Handler struct {
	Service MaterialService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc MaterialService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// CreateMaterialRequest é o payload de cadastro. O estoque começa em zero.
type CreateMaterialRequest struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Location     string          `json:"location"`
	Unit         domain.Unit     `json:"unit"`
	MinimumStock decimal.Decimal `json:"minimum_stock"`
}

// StatusRequest é o payload de troca de status.
type StatusRequest struct {
	Status domain.MaterialStatus `json:"status"`
}

// CreateMaterialHandler lida com POST /v1/materials.
//
// @Summary      Cadastrar material
// @Tags         materials
// @Accept       json
// @Produce      json
// @Param        material  body      CreateMaterialRequest  true  "Material"
// @Success      201       {object}  domain.Material
// @Failure      400       {object}  domain.ErrorResponse
// @Failure      409       {object}  domain.ErrorResponse
// @Router       /v1/materials [post]
func (h *Handler) CreateMaterialHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateMaterialRequest
	if err := response.Decode(r, &req); err != nil {
		response.Handle(w, r, h.Logger, nil, err, http.StatusCreated)
		return
	}

	if claims, ok := middleware.GetUserClaimsFromContext(r.Context()); ok {
		h.Logger.Info("Cadastro de material solicitado.", map[string]interface{}{
			"material_id": req.ID,
			"user_id":     claims.UserID,
		})
	}

	created, err := h.Service.CreateMaterial(r.Context(), domain.Material{
		ID:           req.ID,
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		Location:     req.Location,
		Unit:         req.Unit,
		MinimumStock: req.MinimumStock,
	})
	response.Handle(w, r, h.Logger, created, err, http.StatusCreated)
}

// GetMaterialHandler lida com GET /v1/materials/{id}.
//
// @Summary      Consultar material
// @Tags         materials
// @Produce      json
// @Param        id   path      string  true  "ID do material"
// @Success      200  {object}  domain.Material
// @Failure      404  {object}  domain.ErrorResponse
// @Router       /v1/materials/{id} [get]
func (h *Handler) GetMaterialHandler(w http.ResponseWriter, r *http.Request) {
	m, err := h.Service.GetMaterial(r.Context(), r.PathValue("id"))
	response.Handle(w, r, h.Logger, m, err, http.StatusOK)
}

// ListMaterialsHandler lida com GET /v1/materials.
//
// @Summary      Listar materiais
// @Tags         materials
// @Produce      json
// @Param        name           query     string  false  "Trecho do nome (sem diferenciar maiúsculas)"
// @Param        category       query     string  false  "Categoria"
// @Param        status         query     string  false  "available, under-maintenance ou decommissioned"
// @Param        search         query     string  false  "Trecho do ID ou do nome"
// @Param        below_minimum  query     bool    false  "Somente abaixo do estoque mínimo"
// @Success      200            {array}   domain.Material
// @Failure      400            {object}  domain.ErrorResponse
// @Router       /v1/materials [get]
func (h *Handler) ListMaterialsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.MaterialFilter{
		Name:     q.Get("name"),
		Category: q.Get("category"),
		Status:   domain.MaterialStatus(q.Get("status")),
		Search:   q.Get("search"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		response.Handle(w, r, h.Logger, nil, apperror.NewValidationError("status "+string(filter.Status)+" desconhecido."), http.StatusOK)
		return
	}
	if raw := q.Get("below_minimum"); raw != "" {
		below, err := strconv.ParseBool(raw)
		if err != nil {
			response.Handle(w, r, h.Logger, nil, apperror.NewValidationError("below_minimum deve ser true ou false."), http.StatusOK)
			return
		}
		filter.BelowMinimum = below
	}

	materials, err := h.Service.ListMaterials(r.Context(), filter)
	if materials == nil {
		materials = []domain.Material{}
	}
	response.Handle(w, r, h.Logger, materials, err, http.StatusOK)
}

// SetStatusHandler lida com PUT /v1/materials/{id}/status.
//
// @Summary      Alterar status do material
// @Tags         materials
// @Accept       json
// @Produce      json
// @Param        id      path      string         true  "ID do material"
// @Param        status  body      StatusRequest  true  "Novo status"
// @Success      200     {object}  domain.Material
// @Failure      403     {object}  domain.ErrorResponse
// @Failure      404     {object}  domain.ErrorResponse
// @Failure      409     {object}  domain.ErrorResponse
// @Router       /v1/materials/{id}/status [put]
func (h *Handler) SetStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := response.Decode(r, &req); err != nil {
		response.Handle(w, r, h.Logger, nil, err, http.StatusOK)
		return
	}

	m, err := h.Service.SetMaterialStatus(r.Context(), r.PathValue("id"), req.Status)
	response.Handle(w, r, h.Logger, m, err, http.StatusOK)
}
