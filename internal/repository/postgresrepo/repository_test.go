package postgresrepo_test

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siam/internal/domain"
	"siam/internal/pkg/database"
	"siam/internal/pkg/logger"
	"siam/internal/repository/postgresrepo"
	"siam/internal/repository/repotest"
	"siam/internal/service/inventoryservice"
)

// Os testes rodam contra um PostgreSQL real apenas quando SIAM_TEST_DATABASE_URL estiver definida.
func openTestDB(t *testing.T, log logger.Logger) *sql.DB {
	t.Helper()
	dsn := os.Getenv("SIAM_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SIAM_TEST_DATABASE_URL não definida")
	}

	db, err := database.NewPostgresDB(dsn, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	goose.SetLogger(goose.NopLogger())
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, "../../../sql"))
	return db
}

func truncate(t *testing.T, db *sql.DB) {
	t.Helper()
	// TRUNCATE não dispara o gatilho de linha que protege movements.
	_, err := db.Exec(`TRUNCATE movements, materials RESTART IDENTITY`)
	require.NoError(t, err)
}

func TestPostgresRepository_Contract(t *testing.T) {
	log := logger.NewLogger("error")
	db := openTestDB(t, log)

	repotest.RunDatabaseContract(t, func(t *testing.T) domain.Database {
		truncate(t, db)
		return postgresrepo.NewRepository(db, 5*time.Second, log)
	})
}

func TestPostgresRepository_ConcurrentFirstEntriesAreSerialized(t *testing.T) {
	log := logger.NewLogger("error")
	db := openTestDB(t, log)
	truncate(t, db)

	repo := postgresrepo.NewRepository(db, 5*time.Second, log)
	svc := inventoryservice.NewService(repo, log)
	ctx := context.Background()

	amounts := []string{"50", "30"}
	start := make(chan struct{})
	errs := make([]error, len(amounts))
	var wg sync.WaitGroup
	for i, amount := range amounts {
		wg.Add(1)
		go func(i int, amount string) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.RegisterEntry(ctx, domain.MovementRequest{
				MaterialID: "M-NEW",
				Name:       "Azúcar",
				Unit:       domain.UnitKilogram,
				Quantity:   decimal.RequireFromString(amount),
				UserID:     "U1",
			})
		}(i, amount)
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	m, err := repo.GetMaterial(ctx, "M-NEW")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("80").Equal(m.Quantity), "quantity %s", m.Quantity)

	movements, err := repo.ListMovements(ctx, domain.MovementFilter{MaterialID: "M-NEW"})
	require.NoError(t, err)
	require.Len(t, movements, 2)

	var previous []string
	for _, mv := range movements {
		previous = append(previous, mv.PreviousQuantity.String())
		assert.True(t, mv.ResultingQuantity.Equal(mv.PreviousQuantity.Add(mv.Quantity)))
	}
	assert.Contains(t, previous, "0", "só uma das entradas parte do zero")
	assert.Condition(t, func() bool {
		return movements[0].PreviousQuantity.IsZero() != movements[1].PreviousQuantity.IsZero()
	})
}
