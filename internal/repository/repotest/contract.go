// Package repotest contém a bateria de testes que todo backend de domain.Database deve passar.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siam/internal/domain"
	apperror "siam/internal/errors"
)

// Factory cria um banco vazio e isolado para cada subteste.
type Factory func(t *testing.T) domain.Database

// RunDatabaseContract executa o contrato de armazenamento contra o backend criado por newDB.
func RunDatabaseContract(t *testing.T, newDB Factory) {
	t.Run("GetMaterial/NotFound", func(t *testing.T) {
		db := newDB(t)
		_, err := db.GetMaterial(context.Background(), "M-404")
		assert.IsType(t, &apperror.NotFoundError{}, err)
	})

	t.Run("SaveMaterial/RoundTripAndOverwrite", func(t *testing.T) {
		db := newDB(t)
		ctx := context.Background()
		m := Material("M-100", "Harina", "50.25")
		m.Description = "Harina de trigo 000"
		m.Category = "secos"
		m.Location = "despensa"
		m.MinimumStock = decimal.RequireFromString("10")
		require.NoError(t, db.SaveMaterial(ctx, m))

		got, err := db.GetMaterial(ctx, "M-100")
		require.NoError(t, err)
		assert.Equal(t, "Harina de trigo 000", got.Description)
		assert.Equal(t, "despensa", got.Location)
		assert.Equal(t, domain.UnitKilogram, got.Unit)
		assert.Equal(t, domain.StatusAvailable, got.Status)
		assert.True(t, decimal.RequireFromString("50.25").Equal(got.Quantity), "quantity %s", got.Quantity)
		assert.True(t, decimal.RequireFromString("10").Equal(got.MinimumStock))

		m.Quantity = decimal.RequireFromString("30")
		m.Status = domain.StatusUnderMaintenance
		require.NoError(t, db.SaveMaterial(ctx, m))

		got, err = db.GetMaterial(ctx, "M-100")
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("30").Equal(got.Quantity))
		assert.Equal(t, domain.StatusUnderMaintenance, got.Status)

		all, err := db.ListMaterials(ctx, domain.MaterialFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("ListMaterials/Filters", func(t *testing.T) {
		db := newDB(t)
		ctx := context.Background()
		arroz := Material("M-2", "Arroz", "5")
		arroz.Category = "secos"
		arroz.MinimumStock = decimal.RequireFromString("10")
		harina := Material("M-1", "Harina", "50")
		harina.Category = "Secos"
		leche := Material("M-3", "Leche entera", "20")
		leche.Category = "lacteos"
		leche.Status = domain.StatusDecommissioned
		for _, m := range []domain.Material{leche, harina, arroz} {
			require.NoError(t, db.SaveMaterial(ctx, m))
		}

		all, err := db.ListMaterials(ctx, domain.MaterialFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"M-2", "M-1", "M-3"}, ids(all), "ordenado por nome")

		got, err := db.ListMaterials(ctx, domain.MaterialFilter{Category: "SECOS"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"M-1", "M-2"}, ids(got))

		got, err = db.ListMaterials(ctx, domain.MaterialFilter{Name: "ENTERA"})
		require.NoError(t, err)
		assert.Equal(t, []string{"M-3"}, ids(got))

		got, err = db.ListMaterials(ctx, domain.MaterialFilter{Status: domain.StatusDecommissioned})
		require.NoError(t, err)
		assert.Equal(t, []string{"M-3"}, ids(got))

		got, err = db.ListMaterials(ctx, domain.MaterialFilter{Search: "m-1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"M-1"}, ids(got))

		got, err = db.ListMaterials(ctx, domain.MaterialFilter{BelowMinimum: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"M-2"}, ids(got))
	})

	t.Run("RecordMovement/ReferentialError", func(t *testing.T) {
		db := newDB(t)
		ctx := context.Background()
		_, err := db.RecordMovement(ctx, Movement("M-404", domain.MovementEntry, "1", Day(10)))
		assert.IsType(t, &apperror.StorageError{}, err)

		movements, err := db.ListMovements(ctx, domain.MovementFilter{})
		require.NoError(t, err)
		assert.Empty(t, movements)
	})

	t.Run("RecordMovement/AssignsIncreasingIDs", func(t *testing.T) {
		db := newDB(t)
		ctx := context.Background()
		require.NoError(t, db.SaveMaterial(ctx, Material("M-100", "Harina", "0")))

		first, err := db.RecordMovement(ctx, Movement("M-100", domain.MovementEntry, "1", Day(10)))
		require.NoError(t, err)
		second, err := db.RecordMovement(ctx, Movement("M-100", domain.MovementEntry, "2", Day(11)))
		require.NoError(t, err)

		assert.Greater(t, second.ID, first.ID)
		assert.False(t, first.RecordedAt.IsZero())
		assert.Equal(t, "U1", second.UserID)
	})

	t.Run("ListMovements/OrderAndRange", func(t *testing.T) {
		db := newDB(t)
		ctx := context.Background()
		require.NoError(t, db.SaveMaterial(ctx, Material("M-1", "Harina", "0")))
		require.NoError(t, db.SaveMaterial(ctx, Material("M-2", "Arroz", "0")))

		for _, mv := range []domain.Movement{
			Movement("M-1", domain.MovementEntry, "1", Day(12)),
			Movement("M-1", domain.MovementEntry, "2", Day(10)),
			Movement("M-2", domain.MovementEntry, "3", Day(11)),
			Movement("M-1", domain.MovementExit, "1", Day(14)),
		} {
			_, err := db.RecordMovement(ctx, mv)
			require.NoError(t, err)
		}

		all, err := db.ListMovements(ctx, domain.MovementFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i].Timestamp.Before(all[i-1].Timestamp), "ordem cronológica")
		}

		from, to := Day(10), Day(12)
		ranged, err := db.ListMovements(ctx, domain.MovementFilter{MaterialID: "M-1", From: &from, To: &to})
		require.NoError(t, err)
		require.Len(t, ranged, 2)
		assert.True(t, ranged[0].Timestamp.Equal(Day(10)))
		assert.True(t, ranged[1].Timestamp.Equal(Day(12)))

		exits, err := db.ListMovements(ctx, domain.MovementFilter{Kind: domain.MovementExit})
		require.NoError(t, err)
		require.Len(t, exits, 1)
		assert.Equal(t, "M-1", exits[0].MaterialID)
	})

	t.Run("Atomically/RollbackOnError", func(t *testing.T) {
		db := newDB(t)
		ctx := context.Background()
		require.NoError(t, db.SaveMaterial(ctx, Material("M-100", "Harina", "50")))

		boom := errors.New("falha simulada")
		err := db.Atomically(ctx, func(tx domain.Database) error {
			m, err := tx.GetMaterial(ctx, "M-100")
			if err != nil {
				return err
			}
			m.Quantity = decimal.RequireFromString("10")
			if err := tx.SaveMaterial(ctx, m); err != nil {
				return err
			}
			if _, err := tx.RecordMovement(ctx, Movement("M-100", domain.MovementExit, "40", Day(10))); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := db.GetMaterial(ctx, "M-100")
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("50").Equal(got.Quantity))
		movements, err := db.ListMovements(ctx, domain.MovementFilter{})
		require.NoError(t, err)
		assert.Empty(t, movements)
	})

	t.Run("Atomically/Commit", func(t *testing.T) {
		db := newDB(t)
		ctx := context.Background()

		err := db.Atomically(ctx, func(tx domain.Database) error {
			if err := tx.SaveMaterial(ctx, Material("M-100", "Harina", "50")); err != nil {
				return err
			}
			_, err := tx.RecordMovement(ctx, Movement("M-100", domain.MovementEntry, "50", Day(10)))
			return err
		})
		require.NoError(t, err)

		_, err = db.GetMaterial(ctx, "M-100")
		assert.NoError(t, err)
		movements, err := db.ListMovements(ctx, domain.MovementFilter{MaterialID: "M-100"})
		require.NoError(t, err)
		assert.Len(t, movements, 1)
	})
}

// Material monta um material disponível em kg.
func Material(id, name, quantity string) domain.Material {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	return domain.Material{
		ID:        id,
		Name:      name,
		Quantity:  decimal.RequireFromString(quantity),
		Unit:      domain.UnitKilogram,
		Status:    domain.StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Movement monta um movimento do usuário U1.
func Movement(materialID string, kind domain.MovementKind, quantity string, at time.Time) domain.Movement {
	return domain.Movement{
		MaterialID:        materialID,
		Kind:              kind,
		Quantity:          decimal.RequireFromString(quantity),
		PreviousQuantity:  decimal.Zero,
		ResultingQuantity: decimal.Zero,
		Timestamp:         at,
		UserID:            "U1",
	}
}

// Day devolve o meio-dia UTC do dia informado de janeiro de 2024.
func Day(d int) time.Time {
	return time.Date(2024, 1, d, 12, 0, 0, 0, time.UTC)
}

func ids(materials []domain.Material) []string {
	out := make([]string, 0, len(materials))
	for _, m := range materials {
		out = append(out, m.ID)
	}
	return out
}
