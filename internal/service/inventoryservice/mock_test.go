package inventoryservice_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"siam/internal/domain"
)

// MockDatabase é uma implementação mock da interface domain.Database.
// Atomically executa fn sobre o próprio mock quando não houver erro configurado.
type MockDatabase struct {
	mock.Mock
}

func (m *MockDatabase) GetMaterial(ctx context.Context, id string) (domain.Material, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Material), args.Error(1)
}

func (m *MockDatabase) SaveMaterial(ctx context.Context, material domain.Material) error {
	args := m.Called(ctx, material)
	return args.Error(0)
}

func (m *MockDatabase) ListMaterials(ctx context.Context, filter domain.MaterialFilter) ([]domain.Material, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Material), args.Error(1)
}

func (m *MockDatabase) RecordMovement(ctx context.Context, mv domain.Movement) (domain.Movement, error) {
	args := m.Called(ctx, mv)
	return args.Get(0).(domain.Movement), args.Error(1)
}

func (m *MockDatabase) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Movement), args.Error(1)
}

func (m *MockDatabase) Atomically(ctx context.Context, fn func(tx domain.Database) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m)
}
