package memoryrepo_test

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
	"siam/internal/pkg/logger"
	"siam/internal/repository/memoryrepo"
	"siam/internal/repository/repotest"
)

func newTestDB() *memoryrepo.DummyDatabase {
	return memoryrepo.NewDummyDatabase(logger.NewLogger("error"))
}

func material(id, name string, qty int64) domain.Material {
	return domain.Material{
		ID:       id,
		Name:     name,
		Quantity: decimal.NewFromInt(qty),
		Unit:     domain.UnitKilogram,
		Status:   domain.StatusAvailable,
	}
}

func TestGetMaterial_NotFound(t *testing.T) {
	db := newTestDB()

	_, err := db.GetMaterial(context.Background(), "M-404")

	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestSaveMaterial_Overwrites(t *testing.T) {
	db := newTestDB()
	ctx := context.Background()

	require.NoError(t, db.SaveMaterial(ctx, material("M-100", "Harina", 50)))
	require.NoError(t, db.SaveMaterial(ctx, material("M-100", "Harina", 30)))

	got, err := db.GetMaterial(ctx, "M-100")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(30).Equal(got.Quantity))

	all, err := db.ListMaterials(ctx, domain.MaterialFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveMaterial_EmptyID(t *testing.T) {
	err := newTestDB().SaveMaterial(context.Background(), domain.Material{Name: "sem id"})

	assert.IsType(t, &apperror.StorageError{}, err)
}

func TestGetMaterial_RepeatedReadsAreIdentical(t *testing.T) {
	db := newTestDB()
	ctx := context.Background()
	require.NoError(t, db.SaveMaterial(ctx, material("M-100", "Harina", 50)))

	first, err := db.GetMaterial(ctx, "M-100")
	require.NoError(t, err)
	second, err := db.GetMaterial(ctx, "M-100")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestListMaterials_FilterAndOrder(t *testing.T) {
	db := newTestDB()
	ctx := context.Background()
	arroz := material("M-2", "Arroz", 5)
	arroz.Category = "secos"
	arroz.MinimumStock = decimal.NewFromInt(10)
	harina := material("M-1", "Harina", 50)
	harina.Category = "secos"
	leche := material("M-3", "Leche", 20)
	leche.Category = "lacteos"
	leche.Status = domain.StatusUnderMaintenance

	for _, m := range []domain.Material{harina, leche, arroz} {
		require.NoError(t, db.SaveMaterial(ctx, m))
	}

	all, err := db.ListMaterials(ctx, domain.MaterialFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Arroz", "Harina", "Leche"}, []string{all[0].Name, all[1].Name, all[2].Name})

	secos, err := db.ListMaterials(ctx, domain.MaterialFilter{Category: "SECOS"})
	require.NoError(t, err)
	assert.Len(t, secos, 2)

	maint, err := db.ListMaterials(ctx, domain.MaterialFilter{Status: domain.StatusUnderMaintenance})
	require.NoError(t, err)
	require.Len(t, maint, 1)
	assert.Equal(t, "M-3", maint[0].ID)

	low, err := db.ListMaterials(ctx, domain.MaterialFilter{BelowMinimum: true})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "M-2", low[0].ID)
}

func TestRecordMovement_MissingMaterial(t *testing.T) {
	db := newTestDB()

	_, err := db.RecordMovement(context.Background(), domain.Movement{
		MaterialID: "M-404",
		Kind:       domain.MovementEntry,
		Quantity:   decimal.NewFromInt(1),
	})

	assert.IsType(t, &apperror.StorageError{}, err)
	movements, _ := db.ListMovements(context.Background(), domain.MovementFilter{})
	assert.Empty(t, movements)
}

func TestRecordMovement_AssignsMonotonicIDs(t *testing.T) {
	db := newTestDB()
	ctx := context.Background()
	require.NoError(t, db.SaveMaterial(ctx, material("M-100", "Harina", 0)))

	var ids []int64
	for i := 0; i < 3; i++ {
		mv, err := db.RecordMovement(ctx, domain.Movement{
			MaterialID: "M-100",
			Kind:       domain.MovementEntry,
			Quantity:   decimal.NewFromInt(1),
			Timestamp:  time.Now(),
		})
		require.NoError(t, err)
		assert.False(t, mv.RecordedAt.IsZero())
		ids = append(ids, mv.ID)
	}

	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestListMovements_OrderedByTimestampAndFiltered(t *testing.T) {
	db := newTestDB()
	ctx := context.Background()
	require.NoError(t, db.SaveMaterial(ctx, material("M-1", "Harina", 0)))
	require.NoError(t, db.SaveMaterial(ctx, material("M-2", "Arroz", 0)))

	day := func(d int) time.Time { return time.Date(2024, 1, d, 12, 0, 0, 0, time.UTC) }
	record := func(id string, kind domain.MovementKind, ts time.Time) {
		_, err := db.RecordMovement(ctx, domain.Movement{MaterialID: id, Kind: kind, Quantity: decimal.NewFromInt(1), Timestamp: ts})
		require.NoError(t, err)
	}
	record("M-1", domain.MovementEntry, day(12))
	record("M-1", domain.MovementEntry, day(10))
	record("M-2", domain.MovementEntry, day(11))
	record("M-1", domain.MovementExit, day(14))

	all, err := db.ListMovements(ctx, domain.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].Timestamp.Before(all[i-1].Timestamp))
	}

	from, to := day(10), day(12)
	ranged, err := db.ListMovements(ctx, domain.MovementFilter{MaterialID: "M-1", From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, day(10), ranged[0].Timestamp)
	assert.Equal(t, day(12), ranged[1].Timestamp)

	exits, err := db.ListMovements(ctx, domain.MovementFilter{Kind: domain.MovementExit})
	require.NoError(t, err)
	assert.Len(t, exits, 1)
}

func TestAtomically_RollsBackOnError(t *testing.T) {
	db := newTestDB()
	ctx := context.Background()
	require.NoError(t, db.SaveMaterial(ctx, material("M-100", "Harina", 50)))

	boom := errors.New("falha simulada")
	err := db.Atomically(ctx, func(tx domain.Database) error {
		m, err := tx.GetMaterial(ctx, "M-100")
		if err != nil {
			return err
		}
		m.Quantity = decimal.NewFromInt(10)
		if err := tx.SaveMaterial(ctx, m); err != nil {
			return err
		}
		if err := tx.SaveMaterial(ctx, material("M-200", "Arroz", 5)); err != nil {
			return err
		}
		if _, err := tx.RecordMovement(ctx, domain.Movement{MaterialID: "M-100", Kind: domain.MovementExit, Quantity: decimal.NewFromInt(40)}); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	got, err := db.GetMaterial(ctx, "M-100")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(got.Quantity))
	_, err = db.GetMaterial(ctx, "M-200")
	assert.IsType(t, &apperror.NotFoundError{}, err)
	movements, _ := db.ListMovements(ctx, domain.MovementFilter{})
	assert.Empty(t, movements)

	// O ID descartado é reutilizado: nenhum movimento visível o consumiu.
	mv, err := db.RecordMovement(ctx, domain.Movement{MaterialID: "M-100", Kind: domain.MovementEntry, Quantity: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), mv.ID)
}

func TestAtomically_CommitsOnSuccess(t *testing.T) {
	db := newTestDB()
	ctx := context.Background()

	err := db.Atomically(ctx, func(tx domain.Database) error {
		if err := tx.SaveMaterial(ctx, material("M-100", "Harina", 50)); err != nil {
			return err
		}
		_, err := tx.RecordMovement(ctx, domain.Movement{MaterialID: "M-100", Kind: domain.MovementEntry, Quantity: decimal.NewFromInt(50)})
		return err
	})

	require.NoError(t, err)
	_, err = db.GetMaterial(ctx, "M-100")
	assert.NoError(t, err)
	movements, _ := db.ListMovements(ctx, domain.MovementFilter{MaterialID: "M-100"})
	assert.Len(t, movements, 1)
}

func TestDummyDatabase_Contract(t *testing.T) {
	repotest.RunDatabaseContract(t, func(t *testing.T) domain.Database {
		return newTestDB()
	})
}
