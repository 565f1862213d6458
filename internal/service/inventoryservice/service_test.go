package inventoryservice_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"siam/internal/domain"
	apperror "siam/internal/errors"
	"siam/internal/pkg/logger"
	"siam/internal/repository/memoryrepo"
	"siam/internal/service/inventoryservice"
)

// Relógio fixo: 15/01/2024 às 09h.
var fixedNow = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newTestLogger() logger.Logger {
	return logger.NewLogger("error")
}

func newMemoryService() (*inventoryservice.Service, *memoryrepo.DummyDatabase) {
	db := memoryrepo.NewDummyDatabase(newTestLogger())
	return inventoryservice.NewService(db, newTestLogger(), inventoryservice.WithClock(clock)), db
}

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func entry(id, amount, user string, on time.Time) domain.MovementRequest {
	return domain.MovementRequest{MaterialID: id, Quantity: qty(amount), Date: on, UserID: user}
}

func countMovements(t *testing.T, db domain.Database) int {
	t.Helper()
	movements, err := db.ListMovements(context.Background(), domain.MovementFilter{})
	require.NoError(t, err)
	return len(movements)
}

// --- Cenários do almoxarifado (backend em memória) ---

func TestScenario_M100_EntryExitAndRejectedExit(t *testing.T) {
	svc, db := newMemoryService()
	ctx := context.Background()

	// Material novo M-100, entrada de 50 em 10/01/2024 por U1.
	change, err := svc.RegisterEntry(ctx, entry("M-100", "50", "U1", date(2024, 1, 10)))
	require.NoError(t, err)
	assert.Equal(t, "M-100", change.Material.ID)
	assert.True(t, qty("50").Equal(change.Material.Quantity))
	assert.Equal(t, domain.StatusAvailable, change.Material.Status)
	assert.Equal(t, domain.MovementEntry, change.Movement.Kind)
	assert.Equal(t, "U1", change.Movement.UserID)
	assert.Equal(t, date(2024, 1, 10), change.Movement.Timestamp)
	assert.Equal(t, 1, countMovements(t, db))

	// Saída de 20 por U2 deixa 30.
	change, err = svc.RegisterExit(ctx, entry("M-100", "20", "U2", date(2024, 1, 11)))
	require.NoError(t, err)
	assert.True(t, qty("30").Equal(change.Material.Quantity))
	assert.True(t, qty("50").Equal(change.Movement.PreviousQuantity))
	assert.True(t, qty("30").Equal(change.Movement.ResultingQuantity))
	assert.Equal(t, domain.MovementExit, change.Movement.Kind)
	assert.Equal(t, 2, countMovements(t, db))

	// Saída de 50 com apenas 30 em estoque falha sem alterar nada.
	_, err = svc.RegisterExit(ctx, entry("M-100", "50", "U2", date(2024, 1, 12)))
	assert.IsType(t, &apperror.InsufficientStockError{}, err)

	stored, err := db.GetMaterial(ctx, "M-100")
	require.NoError(t, err)
	assert.True(t, qty("30").Equal(stored.Quantity))
	assert.Equal(t, 2, countMovements(t, db))
}

func TestRegisterEntry_Fail_NegativeQuantity(t *testing.T) {
	svc, db := newMemoryService()

	_, err := svc.RegisterEntry(context.Background(), entry("M-100", "-5", "U1", date(2024, 1, 10)))

	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Contains(t, err.Error(), "maior que zero")
	_, getErr := db.GetMaterial(context.Background(), "M-100")
	assert.IsType(t, &apperror.NotFoundError{}, getErr)
	assert.Equal(t, 0, countMovements(t, db))
}

func TestRegisterEntry_Fail_ZeroQuantity(t *testing.T) {
	svc, db := newMemoryService()

	_, err := svc.RegisterEntry(context.Background(), entry("M-100", "0", "U1", date(2024, 1, 10)))

	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Equal(t, 0, countMovements(t, db))
}

func TestRegisterEntry_Fail_FutureDate(t *testing.T) {
	svc, db := newMemoryService()
	ctx := context.Background()
	_, err := svc.RegisterEntry(ctx, entry("M-100", "10", "U1", date(2024, 1, 10)))
	require.NoError(t, err)

	_, err = svc.RegisterEntry(ctx, entry("M-100", "5", "U1", date(2024, 1, 16)))

	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Contains(t, err.Error(), "futuro")
	stored, _ := db.GetMaterial(ctx, "M-100")
	assert.True(t, qty("10").Equal(stored.Quantity))
	assert.Equal(t, 1, countMovements(t, db))
}

func TestRegisterEntry_Success_LaterToday(t *testing.T) {
	svc, _ := newMemoryService()

	// Mesmo dia de calendário, horário posterior ao relógio: não é "depois da data atual".
	_, err := svc.RegisterEntry(context.Background(), entry("M-100", "1", "U1", fixedNow.Add(3*time.Hour)))

	assert.NoError(t, err)
}

func TestRegisterEntry_Fail_TooManyDecimals(t *testing.T) {
	svc, _ := newMemoryService()

	_, err := svc.RegisterEntry(context.Background(), entry("M-100", "1.255", "U1", date(2024, 1, 10)))

	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Contains(t, err.Error(), "casas decimais")
}

func TestRegisterEntry_Fail_MissingUser(t *testing.T) {
	svc, _ := newMemoryService()

	_, err := svc.RegisterEntry(context.Background(), entry("M-100", "1", " ", date(2024, 1, 10)))

	assert.IsType(t, &apperror.ValidationError{}, err)
}

func TestRegisterEntry_DefaultsDateToNow(t *testing.T) {
	svc, _ := newMemoryService()

	change, err := svc.RegisterEntry(context.Background(), entry("M-100", "2.50", "U1", time.Time{}))

	require.NoError(t, err)
	assert.Equal(t, fixedNow, change.Movement.Timestamp)
	assert.True(t, qty("2.5").Equal(change.Material.Quantity))
}

func TestRegisterEntry_CreatesMaterialWithRequestAttributes(t *testing.T) {
	svc, _ := newMemoryService()
	req := entry("M-200", "12", "U1", date(2024, 1, 10))
	req.Name = "Aceite de girasol"
	req.Unit = domain.UnitLiter
	req.Category = "aceites"

	change, err := svc.RegisterEntry(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "Aceite de girasol", change.Material.Name)
	assert.Equal(t, domain.UnitLiter, change.Material.Unit)
	assert.Equal(t, "aceites", change.Material.Category)
	assert.Equal(t, domain.MovementEntry, change.Material.LastMovement)
}

func TestRegisterEntry_ExistingMaterialKeepsStoredAttributes(t *testing.T) {
	svc, db := newMemoryService()
	ctx := context.Background()
	first := entry("M-100", "10", "U1", date(2024, 1, 10))
	first.Name = "Harina"
	first.Unit = domain.UnitKilogram
	_, err := svc.RegisterEntry(ctx, first)
	require.NoError(t, err)

	second := entry("M-100", "5", "U1", date(2024, 1, 11))
	second.Name = "Harina integral"
	second.Unit = domain.UnitPackage
	change, err := svc.RegisterEntry(ctx, second)

	require.NoError(t, err)
	assert.True(t, qty("15").Equal(change.Material.Quantity))
	stored, _ := db.GetMaterial(ctx, "M-100")
	assert.Equal(t, "Harina", stored.Name)
	assert.Equal(t, domain.UnitKilogram, stored.Unit)
}

func TestRegisterEntry_Fail_StatusBlocked(t *testing.T) {
	for _, status := range []domain.MaterialStatus{domain.StatusUnderMaintenance, domain.StatusDecommissioned} {
		t.Run(string(status), func(t *testing.T) {
			svc, db := newMemoryService()
			ctx := context.Background()
			_, err := svc.RegisterEntry(ctx, entry("M-100", "10", "U1", date(2024, 1, 10)))
			require.NoError(t, err)
			_, err = svc.SetMaterialStatus(ctx, "M-100", status)
			require.NoError(t, err)

			_, err = svc.RegisterEntry(ctx, entry("M-100", "5", "U1", date(2024, 1, 11)))
			assert.IsType(t, &apperror.StatusError{}, err)

			_, err = svc.RegisterExit(ctx, entry("M-100", "5", "U1", date(2024, 1, 11)))
			assert.IsType(t, &apperror.StatusError{}, err)

			stored, _ := db.GetMaterial(ctx, "M-100")
			assert.True(t, qty("10").Equal(stored.Quantity))
			assert.Equal(t, 1, countMovements(t, db))
		})
	}
}

func TestRegisterExit_Fail_UnknownMaterial(t *testing.T) {
	svc, db := newMemoryService()

	_, err := svc.RegisterExit(context.Background(), entry("M-404", "1", "U1", date(2024, 1, 10)))

	assert.IsType(t, &apperror.NotFoundError{}, err)
	assert.Equal(t, 0, countMovements(t, db))
}

func TestRegisterExit_Success_DrainsToZero(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()
	_, err := svc.RegisterEntry(ctx, entry("M-100", "7.25", "U1", date(2024, 1, 10)))
	require.NoError(t, err)

	change, err := svc.RegisterExit(ctx, entry("M-100", "7.25", "U2", date(2024, 1, 10)))

	require.NoError(t, err)
	assert.True(t, change.Material.Quantity.IsZero())
}

// --- Cadastro e status ---

func TestCreateMaterial_Success(t *testing.T) {
	svc, _ := newMemoryService()

	m, err := svc.CreateMaterial(context.Background(), domain.Material{
		ID:           "EQ-01",
		Name:         "Batidora industrial",
		MinimumStock: qty("1"),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.UnitUnit, m.Unit)
	assert.Equal(t, domain.StatusAvailable, m.Status)
	assert.True(t, m.Quantity.IsZero())
	assert.Equal(t, fixedNow, m.CreatedAt)
}

func TestCreateMaterial_Fail_Duplicate(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()
	_, err := svc.CreateMaterial(ctx, domain.Material{ID: "M-100", Name: "Harina"})
	require.NoError(t, err)

	_, err = svc.CreateMaterial(ctx, domain.Material{ID: "M-100", Name: "Otra"})

	assert.IsType(t, &apperror.ConflictError{}, err)
}

func TestCreateMaterial_Fail_Validation(t *testing.T) {
	cases := map[string]domain.Material{
		"sem id":             {Name: "Harina"},
		"sem nome":           {ID: "M-1"},
		"unidade inválida":   {ID: "M-1", Name: "Harina", Unit: "ton"},
		"mínimo negativo":    {ID: "M-1", Name: "Harina", MinimumStock: qty("-1")},
		"estoque inicial":    {ID: "M-1", Name: "Harina", Quantity: qty("3")},
		"status inicial":     {ID: "M-1", Name: "Harina", Status: domain.StatusDecommissioned},
		"mínimo com 3 casas": {ID: "M-1", Name: "Harina", MinimumStock: qty("0.125")},
	}

	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			svc, _ := newMemoryService()
			_, err := svc.CreateMaterial(context.Background(), m)
			assert.IsType(t, &apperror.ValidationError{}, err)
		})
	}
}

func TestSetMaterialStatus_StateMachine(t *testing.T) {
	svc, _ := newMemoryService()
	ctx := context.Background()
	_, err := svc.CreateMaterial(ctx, domain.Material{ID: "EQ-01", Name: "Horno"})
	require.NoError(t, err)

	m, err := svc.SetMaterialStatus(ctx, "EQ-01", domain.StatusUnderMaintenance)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnderMaintenance, m.Status)

	m, err = svc.SetMaterialStatus(ctx, "EQ-01", domain.StatusAvailable)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, m.Status)

	m, err = svc.SetMaterialStatus(ctx, "EQ-01", domain.StatusAvailable)
	require.NoError(t, err, "mesmo status é no-op")
	assert.Equal(t, domain.StatusAvailable, m.Status)

	_, err = svc.SetMaterialStatus(ctx, "EQ-01", domain.StatusDecommissioned)
	require.NoError(t, err)

	_, err = svc.SetMaterialStatus(ctx, "EQ-01", domain.StatusAvailable)
	assert.IsType(t, &apperror.StatusError{}, err)
}

func TestSetMaterialStatus_Fail_UnknownStatus(t *testing.T) {
	svc, _ := newMemoryService()

	_, err := svc.SetMaterialStatus(context.Background(), "EQ-01", "broken")

	assert.IsType(t, &apperror.ValidationError{}, err)
}

// --- Leitura ---

func TestListMovements_Fail_InvertedRange(t *testing.T) {
	svc, _ := newMemoryService()
	from, to := date(2024, 1, 12), date(2024, 1, 10)

	_, err := svc.ListMovements(context.Background(), domain.MovementFilter{From: &from, To: &to})

	assert.IsType(t, &apperror.ValidationError{}, err)
}

func TestListMaterials_Fail_UnknownStatus(t *testing.T) {
	svc, _ := newMemoryService()

	_, err := svc.ListMaterials(context.Background(), domain.MaterialFilter{Status: "lost"})

	assert.IsType(t, &apperror.ValidationError{}, err)
}

// --- Falhas do armazenamento (mock) ---

func TestRegisterEntry_Fail_ZeroQuantityNeverTouchesStorage(t *testing.T) {
	mockDB := new(MockDatabase)
	svc := inventoryservice.NewService(mockDB, newTestLogger(), inventoryservice.WithClock(clock))

	_, err := svc.RegisterEntry(context.Background(), entry("M-100", "0", "U1", date(2024, 1, 10)))

	assert.IsType(t, &apperror.ValidationError{}, err)
	mockDB.AssertNotCalled(t, "Atomically", mock.Anything)
	mockDB.AssertNotCalled(t, "SaveMaterial", mock.Anything, mock.Anything)
	mockDB.AssertNotCalled(t, "RecordMovement", mock.Anything, mock.Anything)
}

func TestRegisterExit_Fail_SaveErrorSkipsMovement(t *testing.T) {
	mockDB := new(MockDatabase)
	svc := inventoryservice.NewService(mockDB, newTestLogger(), inventoryservice.WithClock(clock))
	current := domain.Material{ID: "M-100", Name: "Harina", Quantity: qty("50"), Unit: domain.UnitKilogram, Status: domain.StatusAvailable}

	mockDB.On("Atomically", mock.Anything).Return(nil)
	mockDB.On("GetMaterial", mock.Anything, "M-100").Return(current, nil)
	mockDB.On("SaveMaterial", mock.Anything, mock.AnythingOfType("domain.Material")).
		Return(apperror.NewDBError("Falha ao gravar material", errors.New("disk full")))

	_, err := svc.RegisterExit(context.Background(), entry("M-100", "20", "U2", date(2024, 1, 10)))

	assert.IsType(t, &apperror.StorageError{}, err)
	assert.NotContains(t, err.Error(), "disk full")
	assert.ErrorContains(t, errors.Unwrap(err), "disk full")
	mockDB.AssertNotCalled(t, "RecordMovement", mock.Anything, mock.Anything)
	mockDB.AssertExpectations(t)
}

func TestRegisterExit_StorageFailureLogsDriverCauseOnly(t *testing.T) {
	var buf bytes.Buffer
	mockDB := new(MockDatabase)
	svc := inventoryservice.NewService(mockDB, logger.NewWithWriter(&buf, "error"), inventoryservice.WithClock(clock))
	current := domain.Material{ID: "M-100", Name: "Harina", Quantity: qty("50"), Unit: domain.UnitKilogram, Status: domain.StatusAvailable}

	mockDB.On("Atomically", mock.Anything).Return(nil)
	mockDB.On("GetMaterial", mock.Anything, "M-100").Return(current, nil)
	mockDB.On("SaveMaterial", mock.Anything, mock.Anything).
		Return(apperror.NewDBError("Falha ao gravar material", errors.New("pq: relation \"materials\" does not exist")))

	_, err := svc.RegisterExit(context.Background(), entry("M-100", "20", "U2", date(2024, 1, 10)))
	require.Error(t, err)

	_, _, msg := apperror.MapToHTTPStatus(err)
	assert.NotContains(t, msg, "relation")
	assert.Contains(t, buf.String(), "does not exist", "o log mantém a causa do driver")
}

func TestRegisterExit_Success_WritesMaterialAndMovement(t *testing.T) {
	mockDB := new(MockDatabase)
	svc := inventoryservice.NewService(mockDB, newTestLogger(), inventoryservice.WithClock(clock))
	current := domain.Material{ID: "M-100", Name: "Harina", Quantity: qty("50"), Unit: domain.UnitKilogram, Status: domain.StatusAvailable}

	mockDB.On("Atomically", mock.Anything).Return(nil)
	mockDB.On("GetMaterial", mock.Anything, "M-100").Return(current, nil)
	mockDB.On("SaveMaterial", mock.Anything, mock.MatchedBy(func(m domain.Material) bool {
		return m.Quantity.Equal(qty("30")) && m.LastMovement == domain.MovementExit
	})).Return(nil)
	mockDB.On("RecordMovement", mock.Anything, mock.MatchedBy(func(mv domain.Movement) bool {
		return mv.Kind == domain.MovementExit && mv.Quantity.Equal(qty("20")) && mv.UserID == "U2"
	})).Return(domain.Movement{ID: 7, MaterialID: "M-100", Kind: domain.MovementExit}, nil)

	change, err := svc.RegisterExit(context.Background(), entry("M-100", "20", "U2", date(2024, 1, 10)))

	require.NoError(t, err)
	assert.Equal(t, int64(7), change.Movement.ID)
	mockDB.AssertExpectations(t)
}

func TestRegisterEntry_Fail_UntypedErrorBecomesStorageError(t *testing.T) {
	mockDB := new(MockDatabase)
	svc := inventoryservice.NewService(mockDB, newTestLogger(), inventoryservice.WithClock(clock))

	mockDB.On("Atomically", mock.Anything).Return(errors.New("connection reset by peer"))

	_, err := svc.RegisterEntry(context.Background(), entry("M-100", "1", "U1", date(2024, 1, 10)))

	assert.IsType(t, &apperror.StorageError{}, err)
	assert.ErrorContains(t, errors.Unwrap(err), "connection reset")
}

func TestGetMaterial_TranslatesUntypedError(t *testing.T) {
	mockDB := new(MockDatabase)
	svc := inventoryservice.NewService(mockDB, newTestLogger())

	mockDB.On("GetMaterial", mock.Anything, "M-100").Return(domain.Material{}, errors.New("timeout"))

	_, err := svc.GetMaterial(context.Background(), "M-100")

	assert.IsType(t, &apperror.StorageError{}, err)
}

// --- Tracing ---

func TestRegisterExit_RecordsErrorSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	db := memoryrepo.NewDummyDatabase(newTestLogger())
	svc := inventoryservice.NewService(db, newTestLogger(),
		inventoryservice.WithClock(clock),
		inventoryservice.WithTracer(tp.Tracer("test")),
	)

	_, err := svc.RegisterExit(context.Background(), entry("M-404", "1", "U1", date(2024, 1, 10)))
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "inventory.RegisterExit", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "NOT_FOUND", spans[0].Status().Description)
}
