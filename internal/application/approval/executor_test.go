package approval_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-eventos/internal/application/approval"
	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
	"github.com/jhoicas/inventario-eventos/pkg/jwt"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

const testSecret = "secreto-de-pruebas"

func newExecutor(t *testing.T, srv *httptest.Server, log *logger.Logger) *approval.Executor {
	t.Helper()
	if log == nil {
		log = logger.Nop()
	}
	return approval.NewExecutor(approval.ExecutorConfig{
		ProductURL:       srv.URL,
		RouteURL:         srv.URL,
		JWTSecret:        testSecret,
		JWTIssuer:        "inventario-eventos",
		CredentialTTL:    time.Hour,
		RequestTimeout:   2 * time.Second,
		BreakerFailures:  2,
		BreakerOpenDelay: time.Minute,
	}, srv.Client(), log)
}

func approved(requestType, actionData string) *entity.ApprovalRequest {
	return &entity.ApprovalRequest{
		ID:             "req-1",
		RequestType:    requestType,
		ActionData:     json.RawMessage(actionData),
		RequestedByID:  "u-7",
		ApprovedByID:   "admin-1",
		ApprovedByName: "Admin Uno",
		Status:         entity.ApprovalApproved,
	}
}

// ── Escenario: eliminación aprobada ──

func TestExecute_EliminacionAprobada(t *testing.T) {
	var seenToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/products/7/approved", r.URL.Path)
		seenToken = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var logs bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "trace", Output: &logs})
	res := newExecutor(t, srv, log).Execute(context.Background(), approved(entity.RequestProductDelete, `{"productId": 7}`))

	assert.True(t, res.Success)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, approval.KindNone, res.Kind)

	require.NotEmpty(t, seenToken)
	assert.NotContains(t, logs.String(), seenToken, "la credencial nunca se escribe en el log")
}

func TestExecute_AlcanceDeLaCredencial(t *testing.T) {
	var claims *jwt.Claims
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		claims, err = jwt.Parse(testSecret, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := newExecutor(t, srv, nil).Execute(context.Background(), approved(entity.RequestRouteDelete, `{"routeId": "3"}`))
	require.True(t, res.Success)

	require.NotNil(t, claims)
	assert.Equal(t, "admin-1", claims.UserID, "identidad del administrador que aprobó")
	assert.Equal(t, jwt.RoleAdmin, claims.Role)
	assert.True(t, claims.System)
	assert.ElementsMatch(t, entity.DirectPermissions(), claims.Permissions)
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	assert.LessOrEqual(t, ttl, 5*time.Minute, "la credencial vive como máximo 5 minutos aunque la config pida más")
}

func TestExecute_CreacionJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/approved", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(5001), body["inventory_code"])
		assert.Equal(t, "Latitude", body["model"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	res := newExecutor(t, srv, nil).Execute(context.Background(),
		approved(entity.RequestProductCreate, `{"product": {"InventoryCode": "5001", "Model": "Latitude", "DepartmentId": 3}}`))
	assert.True(t, res.Success)
}

func TestExecute_CreacionMultipartConImagen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/approved/multipart", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "5001", r.FormValue("InventoryCode"))
		assert.Equal(t, "true", r.FormValue("IsWorking"))
		file, header, err := r.FormFile("ImageFile")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "hello", string(data))
		assert.Equal(t, "foto.png", header.Filename)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	res := newExecutor(t, srv, nil).Execute(context.Background(), approved(entity.RequestProductCreate,
		`{"inventory_code": 5001, "model": "Latitude", "is_working": true,
		  "image_base64": "data:image/png;base64,aGVsbG8=", "image_file_name": "foto.png"}`))
	assert.True(t, res.Success)
}

func TestExecute_TrasladoVaAlServicioDeRutas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/routes/transfer/approved", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	res := newExecutor(t, srv, nil).Execute(context.Background(),
		approved(entity.RequestProductTransfer, `{"ProductId": 7, "ToDepartmentId": 9}`))
	assert.True(t, res.Success)
}

// ── Fallos (siempre cerrados) ──

func TestExecute_TipoNoSoportadoYDatosInvalidos(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()
	ex := newExecutor(t, srv, nil)

	res := ex.Execute(context.Background(), approved("warehouse.create", `{"id": 1}`))
	assert.False(t, res.Success)
	assert.Equal(t, approval.KindUnsupported, res.Kind)

	res = ex.Execute(context.Background(), approved(entity.RequestProductUpdate, `{"model": "X"}`))
	assert.Equal(t, approval.KindInvalidData, res.Kind, "update sin id")

	res = ex.Execute(context.Background(), approved(entity.RequestProductDelete, `no es json`))
	assert.Equal(t, approval.KindInvalidData, res.Kind)

	res = ex.Execute(context.Background(), nil)
	assert.False(t, res.Success)

	assert.Equal(t, int32(0), calls.Load(), "ninguna llamada saliente")
}

func TestExecute_SinAprobador_FallaLaCredencial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no debe llamar sin credencial")
	}))
	defer srv.Close()

	req := approved(entity.RequestProductDelete, `{"id": 7}`)
	req.ApprovedByID = ""
	res := newExecutor(t, srv, nil).Execute(context.Background(), req)
	assert.Equal(t, approval.KindCredential, res.Kind)
}

func TestExecute_Rechazo_IncluyeMensajeRemoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"INVENTORY_CODE_TAKEN","message":"el código de inventario ya está en uso"}`))
	}))
	defer srv.Close()

	res := newExecutor(t, srv, nil).Execute(context.Background(),
		approved(entity.RequestProductCreate, `{"inventoryCode": 5001, "model": "X", "departmentId": 1}`))
	assert.False(t, res.Success)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, approval.KindRejected, res.Kind)
	assert.Contains(t, res.Reason, "el código de inventario ya está en uso")
}

func TestExecute_BreakerSeAbreTrasErroresDelServidor(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	ex := newExecutor(t, srv, nil)
	req := approved(entity.RequestProductDelete, `{"id": 7}`)

	assert.Equal(t, approval.KindServerError, ex.Execute(context.Background(), req).Kind)
	assert.Equal(t, approval.KindServerError, ex.Execute(context.Background(), req).Kind)
	res := ex.Execute(context.Background(), req)
	assert.Equal(t, approval.KindUnavailable, res.Kind, "breaker abierto tras 2 fallos consecutivos")
	assert.Equal(t, int32(2), calls.Load())

	routeRes := ex.Execute(context.Background(), approved(entity.RequestRouteDelete, `{"id": 1}`))
	assert.Equal(t, approval.KindServerError, routeRes.Kind, "cada servicio tiene su propio breaker")
}

func TestExecute_ErrorDeTransporte(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ex := newExecutor(t, srv, nil)
	srv.Close()

	res := ex.Execute(context.Background(), approved(entity.RequestProductDelete, `{"id": 7}`))
	assert.False(t, res.Success)
	assert.Equal(t, approval.KindTransport, res.Kind)
	assert.NotEmpty(t, res.Reason)
}
