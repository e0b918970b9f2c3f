package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-eventos/internal/domain"
	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
)

var testNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

func snapshot42() entity.ProductSnapshot {
	return entity.NewProductSnapshot(42, 1001, "X1", "Lenovo", "Portátiles", true)
}

// ──────────────────────────────────────────────────────────────────────────────
// Fábricas
// ──────────────────────────────────────────────────────────────────────────────

func TestNewInventoryRouteFromCreation_NaceCompletada(t *testing.T) {
	r, err := entity.NewInventoryRouteFromCreation(entity.CreationParams{
		Snapshot:       snapshot42(),
		ToDepartmentID: 3,
		IsNewItem:      true,
	}, testNow)
	require.NoError(t, err)

	assert.Equal(t, entity.RouteTypeNewInventory, r.Type)
	assert.True(t, r.IsCompleted, "los ingresos son hechos, no acciones pendientes")
	require.NotNil(t, r.CompletedAt)
	assert.Equal(t, testNow, *r.CompletedAt)
	assert.Equal(t, int64(3), r.ToDepartmentID)
	assert.Nil(t, r.FromDepartmentID)
	assert.NotEmpty(t, r.Notes, "sin notas se usa el texto por defecto")
}

func TestNewInventoryRouteFromCreation_SinDepartamento_Invalida(t *testing.T) {
	_, err := entity.NewInventoryRouteFromCreation(entity.CreationParams{Snapshot: snapshot42()}, testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewUpdateRoute_SinDiferencias_ErrNoChanges(t *testing.T) {
	_, err := entity.NewUpdateRoute(entity.UpdateParams{
		Before:       snapshot42(),
		After:        snapshot42(),
		DepartmentID: 3,
	}, testNow)
	assert.ErrorIs(t, err, domain.ErrNoChanges)
}

func TestNewUpdateRoute_ConDiferencias(t *testing.T) {
	after := entity.NewProductSnapshot(42, 1001, "X2", "Lenovo", "Portátiles", false)
	r, err := entity.NewUpdateRoute(entity.UpdateParams{
		Before:       snapshot42(),
		After:        after,
		DepartmentID: 3,
	}, testNow)
	require.NoError(t, err)

	assert.Equal(t, entity.RouteTypeUpdate, r.Type)
	assert.True(t, r.IsCompleted)
	assert.Equal(t, after, r.Snapshot)
	require.Len(t, r.Changes, 2)
	assert.Equal(t, "model", r.Changes[0].Field)
	assert.Equal(t, "isWorking", r.Changes[1].Field)
}

func TestNewUpdateRoute_CambioInformadoPorPublicador(t *testing.T) {
	from := int64(1)
	r, err := entity.NewUpdateRoute(entity.UpdateParams{
		Before:           snapshot42(),
		After:            snapshot42(),
		FromDepartmentID: &from,
		DepartmentID:     3,
		Changes:          []entity.FieldChange{{Field: "departmentId", Before: "1", After: "3"}},
	}, testNow)
	require.NoError(t, err, "un cambio de ubicación sí es semántico aunque el snapshot no cambie")
	require.NotNil(t, r.FromDepartmentID)
	assert.Equal(t, int64(1), *r.FromDepartmentID)
}

func TestNewUpdateRoute_ProductosDistintos_Invalida(t *testing.T) {
	other := entity.NewProductSnapshot(43, 1002, "X1", "", "", true)
	_, err := entity.NewUpdateRoute(entity.UpdateParams{Before: snapshot42(), After: other, DepartmentID: 3}, testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewRemovalRoute_NaceCompletada(t *testing.T) {
	r, err := entity.NewRemovalRoute(entity.RemovalParams{
		Snapshot:     snapshot42(),
		DepartmentID: 3,
		RemovedBy:    "Carlos",
	}, testNow)
	require.NoError(t, err)
	assert.Equal(t, entity.RouteTypeRemoval, r.Type)
	assert.True(t, r.IsCompleted)
	assert.Equal(t, "Carlos", r.RemovedBy)
}

// ──────────────────────────────────────────────────────────────────────────────
// Traslados y completitud
// ──────────────────────────────────────────────────────────────────────────────

func newTransfer(t *testing.T) *entity.InventoryRoute {
	t.Helper()
	r, err := entity.NewTransferRoute(entity.TransferParams{
		Snapshot:         entity.NewProductSnapshot(5, 500, "M5", "", "", true),
		FromDepartmentID: 1,
		ToDepartmentID:   2,
	}, testNow)
	require.NoError(t, err)
	return r
}

func TestNewTransferRoute_NaceIncompleta(t *testing.T) {
	r := newTransfer(t)
	assert.Equal(t, entity.RouteTypeTransfer, r.Type)
	assert.False(t, r.IsCompleted)
	assert.Nil(t, r.CompletedAt)
	require.NotNil(t, r.FromDepartmentID)
	assert.Equal(t, int64(1), *r.FromDepartmentID)
}

func TestNewTransferRoute_MismoDestino_Invalida(t *testing.T) {
	_, err := entity.NewTransferRoute(entity.TransferParams{
		Snapshot:         snapshot42(),
		FromDepartmentID: 2,
		ToDepartmentID:   2,
	}, testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestComplete_DosVeces_FallaConReglaDeNegocio(t *testing.T) {
	r := newTransfer(t)
	require.NoError(t, r.Complete(testNow))
	assert.True(t, r.IsCompleted)

	err := r.Complete(testNow.Add(time.Minute))
	assert.ErrorIs(t, err, domain.ErrRouteAlreadyCompleted)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.True(t, domain.IsBusinessRule(err))
	assert.Equal(t, testNow, *r.CompletedAt, "el segundo intento no altera la fecha")
}

func TestEnsureDeletable(t *testing.T) {
	r := newTransfer(t)
	assert.NoError(t, r.EnsureDeletable())

	require.NoError(t, r.Complete(testNow))
	assert.ErrorIs(t, r.EnsureDeletable(), domain.ErrRouteCompleted)
}

func TestApplyEdit_RutaCompletada_SoloImagen(t *testing.T) {
	r := newTransfer(t)
	require.NoError(t, r.Complete(testNow))

	img := "/images/routes/nueva.jpg"
	require.NoError(t, r.ApplyEdit(entity.RouteEdit{ImageURL: &img}))
	assert.Equal(t, img, r.ImageURL)

	notes := "cambio"
	err := r.ApplyEdit(entity.RouteEdit{Notes: &notes, ImageURL: &img})
	assert.ErrorIs(t, err, domain.ErrRouteCompleted)
	assert.Empty(t, r.Notes, "una edición rechazada no aplica nada")
}

func TestApplyEdit_RutaPendiente(t *testing.T) {
	r := newTransfer(t)
	dept := int64(9)
	name := "Bodega"
	require.NoError(t, r.ApplyEdit(entity.RouteEdit{ToDepartmentID: &dept, ToDepartmentName: &name}))
	assert.Equal(t, int64(9), r.ToDepartmentID)
	assert.Equal(t, "Bodega", r.ToDepartmentName)

	bad := int64(0)
	assert.ErrorIs(t, r.ApplyEdit(entity.RouteEdit{ToDepartmentID: &bad}), domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Snapshot
// ──────────────────────────────────────────────────────────────────────────────

func TestProductSnapshot_DiffYEqual(t *testing.T) {
	a := snapshot42()
	b := entity.NewProductSnapshot(42, 1001, "X1", "HP", "Portátiles", true)

	assert.True(t, a.Equal(snapshot42()))
	assert.False(t, a.Equal(b))
	assert.Empty(t, a.Diff(a))
	assert.Equal(t, []entity.FieldChange{{Field: "vendor", Before: "Lenovo", After: "HP"}}, a.Diff(b))
}

func TestProduct_ChangesTo_IncluyeUbicacionYPrecio(t *testing.T) {
	p := &entity.Product{ID: 42, InventoryCode: 1001, Model: "X1", DepartmentID: 1}
	next := *p
	next.DepartmentID = 2
	next.Worker = "Lucía"

	changes := p.ChangesTo(&next)
	fields := make([]string, 0, len(changes))
	for _, c := range changes {
		fields = append(fields, c.Field)
	}
	assert.ElementsMatch(t, []string{"departmentId", "worker"}, fields)
	assert.Empty(t, p.ChangesTo(p))
}
