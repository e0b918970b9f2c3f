package event_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-eventos/internal/domain"
	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
	"github.com/jhoicas/inventario-eventos/internal/domain/event"
)

var now = time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)

func TestProductCreated_AceptaPascalCase(t *testing.T) {
	raw := []byte(`{"ProductId":42,"InventoryCode":1001,"Model":"X1","DepartmentId":3,"IsNewItem":true}`)
	var ev event.ProductCreated
	require.NoError(t, json.Unmarshal(raw, &ev))

	r, err := ev.Route("msg-1", now)
	require.NoError(t, err)
	assert.Equal(t, entity.RouteTypeNewInventory, r.Type)
	assert.True(t, r.IsCompleted)
	assert.Equal(t, int64(3), r.ToDepartmentID)
	assert.Equal(t, int64(42), r.Snapshot.ProductID())
	assert.Equal(t, 1001, r.Snapshot.InventoryCode())
	assert.Equal(t, "msg-1", r.SourceEventID)
}

func TestLedgerEvent_KindCoincideConLaRuta(t *testing.T) {
	data := event.ProductData{ProductID: 5, InventoryCode: 500, Model: "M5"}
	cases := []event.LedgerEvent{
		event.ProductCreated{ProductData: data, DepartmentID: 1},
		event.ProductUpdated{ProductID: 5, Before: data, After: event.ProductData{ProductID: 5, InventoryCode: 501}, DepartmentID: 1},
		event.ProductDeleted{ProductData: data, DepartmentID: 1},
		event.TransferRequested{Product: data, FromDepartmentID: 1, ToDepartmentID: 2},
	}
	for _, ev := range cases {
		r, err := ev.Route("", now)
		require.NoError(t, err)
		assert.Equal(t, ev.Kind(), r.Type)
	}
}

func TestProductUpdated_SinCambios_NoGeneraRuta(t *testing.T) {
	data := event.ProductData{ProductID: 5, InventoryCode: 500, Model: "M5"}
	_, err := event.ProductUpdated{ProductID: 5, Before: data, After: data, DepartmentID: 1}.Route("m", now)
	assert.ErrorIs(t, err, domain.ErrNoChanges)
}

func TestNewRouteNotice(t *testing.T) {
	r, err := event.TransferRequested{
		Product:          event.ProductData{ProductID: 5, InventoryCode: 500},
		FromDepartmentID: 1,
		ToDepartmentID:   2,
		RequestedByID:    "u-1",
	}.Route("", now)
	require.NoError(t, err)
	r.ID = 77

	n := event.NewRouteNotice(r, "admin-1", now)
	assert.Equal(t, int64(77), n.RouteID)
	assert.Equal(t, int64(5), n.ProductID)
	assert.Equal(t, int64(2), n.ToDepartmentID)
	assert.Equal(t, "u-1", n.RequestedByID)
	assert.Equal(t, "admin-1", n.ActorID)
}
