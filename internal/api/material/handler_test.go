package material_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"siam/internal/api/material"
	"siam/internal/domain"
	apperror "siam/internal/errors"
	"siam/internal/pkg/logger"
)

// MockMaterialService é uma implementação mock de material.MaterialService.
type MockMaterialService struct {
	mock.Mock
}

func (m *MockMaterialService) CreateMaterial(ctx context.Context, mat domain.Material) (domain.Material, error) {
	args := m.Called(ctx, mat)
	return args.Get(0).(domain.Material), args.Error(1)
}

func (m *MockMaterialService) GetMaterial(ctx context.Context, id string) (domain.Material, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Material), args.Error(1)
}

func (m *MockMaterialService) ListMaterials(ctx context.Context, filter domain.MaterialFilter) ([]domain.Material, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Material), args.Error(1)
}

func (m *MockMaterialService) SetMaterialStatus(ctx context.Context, id string, status domain.MaterialStatus) (domain.Material, error) {
	args := m.Called(ctx, id, status)
	return args.Get(0).(domain.Material), args.Error(1)
}

func setup() (*material.Handler, *MockMaterialService, *http.ServeMux) {
	svc := new(MockMaterialService)
	h := material.NewHandler(svc, logger.NewLogger("error"))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/materials", h.ListMaterialsHandler)
	mux.HandleFunc("POST /v1/materials", h.CreateMaterialHandler)
	mux.HandleFunc("GET /v1/materials/{id}", h.GetMaterialHandler)
	mux.HandleFunc("PUT /v1/materials/{id}/status", h.SetStatusHandler)
	return h, svc, mux
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) domain.ErrorResponse {
	t.Helper()
	var body domain.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestCreateMaterialHandler_Success(t *testing.T) {
	_, svc, mux := setup()
	svc.On("CreateMaterial", mock.Anything, mock.MatchedBy(func(m domain.Material) bool {
		return m.ID == "M-100" && m.Unit == domain.UnitKilogram && m.MinimumStock.Equal(decimal.NewFromInt(10))
	})).Return(domain.Material{ID: "M-100", Name: "Harina", Unit: domain.UnitKilogram, Status: domain.StatusAvailable}, nil)

	body := `{"id":"M-100","name":"Harina","unit":"kg","minimum_stock":"10"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/materials", bytes.NewBufferString(body)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var got domain.Material
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "M-100", got.ID)
	svc.AssertExpectations(t)
}

func TestCreateMaterialHandler_RejectsUnknownFields(t *testing.T) {
	_, svc, mux := setup()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/materials", bytes.NewBufferString(`{"id":"M-1","quantity":"50"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Category)
	svc.AssertNotCalled(t, "CreateMaterial", mock.Anything, mock.Anything)
}

func TestCreateMaterialHandler_Conflict(t *testing.T) {
	_, svc, mux := setup()
	svc.On("CreateMaterial", mock.Anything, mock.Anything).Return(domain.Material{}, apperror.NewConflictError("M-100 já existe"))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/materials", bytes.NewBufferString(`{"id":"M-100","name":"Harina"}`)))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decodeError(t, rec).Category)
}

func TestGetMaterialHandler(t *testing.T) {
	_, svc, mux := setup()
	svc.On("GetMaterial", mock.Anything, "M-100").Return(domain.Material{ID: "M-100"}, nil)
	svc.On("GetMaterial", mock.Anything, "M-404").Return(domain.Material{}, apperror.NewNotFoundError("material M-404"))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/materials/M-100", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/materials/M-404", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Category)
}

func TestListMaterialsHandler_ParsesFilter(t *testing.T) {
	_, svc, mux := setup()
	want := domain.MaterialFilter{Category: "secos", Status: domain.StatusAvailable, Search: "har", BelowMinimum: true}
	svc.On("ListMaterials", mock.Anything, want).Return(nil, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/materials?category=secos&status=available&search=har&below_minimum=true", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
	svc.AssertExpectations(t)
}

func TestListMaterialsHandler_InvalidQuery(t *testing.T) {
	_, svc, mux := setup()

	for _, q := range []string{"status=broken", "below_minimum=talvez"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/materials?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
	svc.AssertNotCalled(t, "ListMaterials", mock.Anything, mock.Anything)
}

func TestSetStatusHandler(t *testing.T) {
	_, svc, mux := setup()
	svc.On("SetMaterialStatus", mock.Anything, "M-100", domain.StatusDecommissioned).
		Return(domain.Material{}, apperror.NewStatusError("decommissioned é terminal"))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/v1/materials/M-100/status", bytes.NewBufferString(`{"status":"decommissioned"}`)))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "STATUS_ERROR", decodeError(t, rec).Category)
}
