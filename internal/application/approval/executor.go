package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/jhoicas/inventario-eventos/internal/application/dto"
	"github.com/jhoicas/inventario-eventos/internal/application/ports"
	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
	"github.com/jhoicas/inventario-eventos/pkg/jwt"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

// Vigencia máxima de la credencial de sistema.
const maxCredentialTTL = 5 * time.Minute

// Nombre de la parte de archivo en las variantes multipart.
const imagePart = "ImageFile"

// FailureKind causa estructurada de una ejecución fallida.
type FailureKind string

const (
	KindNone        FailureKind = ""
	KindUnsupported FailureKind = "unsupported_request"
	KindInvalidData FailureKind = "invalid_action_data"
	KindCredential  FailureKind = "credential"
	KindUnavailable FailureKind = "service_unavailable"
	KindTransport   FailureKind = "transport"
	KindRejected    FailureKind = "rejected_by_service"
	KindServerError FailureKind = "service_error"
	KindInternal    FailureKind = "internal"
)

// Result resultado de ejecutar una solicitud aprobada. Reason es legible para el usuario.
type Result struct {
	Success    bool
	StatusCode int
	Reason     string
	Kind       FailureKind
}

func failure(kind FailureKind, status int, format string, args ...any) Result {
	return Result{StatusCode: status, Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// ExecutorConfig destinos y límites del ejecutor.
type ExecutorConfig struct {
	ProductURL       string
	RouteURL         string
	JWTSecret        string
	JWTIssuer        string
	CredentialTTL    time.Duration
	RequestTimeout   time.Duration
	BreakerFailures  uint32
	BreakerOpenDelay time.Duration
}

// Executor reproduce solicitudes aprobadas contra los endpoints privilegiados de cada servicio
// con una credencial de sistema de vida corta. Nunca retorna error ni entra en pánico: todo
// resultado, incluido un fallo interno, se expresa como Result.
type Executor struct {
	cfg      ExecutorConfig
	http     *http.Client
	breakers map[string]*gobreaker.CircuitBreaker
	bases    map[string]string
	log      *logger.Logger
}

// NewExecutor construye el ejecutor con un circuit breaker por servicio destino.
func NewExecutor(cfg ExecutorConfig, httpClient *http.Client, log *logger.Logger) *Executor {
	if cfg.CredentialTTL <= 0 || cfg.CredentialTTL > maxCredentialTTL {
		cfg.CredentialTTL = maxCredentialTTL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerOpenDelay <= 0 {
		cfg.BreakerOpenDelay = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	log = log.Component("executor")
	e := &Executor{
		cfg:  cfg,
		http: httpClient,
		bases: map[string]string{
			"products": strings.TrimRight(cfg.ProductURL, "/"),
			"routes":   strings.TrimRight(cfg.RouteURL, "/"),
		},
		breakers: make(map[string]*gobreaker.CircuitBreaker, 2),
		log:      log,
	}
	for name := range e.bases {
		e.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     cfg.BreakerOpenDelay,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("service", name).Str("from", from.String()).Str("to", to.String()).
					Msg("circuit breaker cambió de estado")
			},
		})
	}
	return e
}

// outbound petición HTTP ya armada.
type outbound struct {
	service     string
	method      string
	path        string
	contentType string
	body        []byte
}

// Execute ejecuta la solicitud. Falla cerrado: ante cualquier duda el resultado es no exitoso.
func (e *Executor) Execute(ctx context.Context, req *entity.ApprovalRequest) (res Result) {
	if req == nil {
		return failure(KindInvalidData, 0, "solicitud vacía")
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("request_id", req.ID).Msg("pánico al ejecutar la solicitud")
			res = failure(KindInternal, 0, "error interno al ejecutar la solicitud")
		}
	}()

	data, err := NormalizeActionData(req.ActionData)
	if err != nil {
		return failure(KindInvalidData, 0, "los datos de la solicitud no son válidos: %v", err)
	}
	call, res, ok := e.plan(req.RequestType, data)
	if !ok {
		return res
	}

	token, _, err := jwt.Generate(e.cfg.JWTSecret, e.cfg.JWTIssuer, jwt.Identity{
		UserID:      req.ApprovedByID,
		UserName:    req.ApprovedByName,
		Role:        jwt.RoleAdmin,
		Permissions: entity.DirectPermissions(),
		System:      true,
	}, e.cfg.CredentialTTL)
	if err != nil {
		e.log.Error().Err(err).Str("request_id", req.ID).Msg("no se pudo emitir la credencial de sistema")
		return failure(KindCredential, 0, "no se pudo emitir la credencial para ejecutar la solicitud")
	}

	res = e.send(ctx, call, token)
	var ev *zerolog.Event
	if res.Success {
		ev = e.log.Info()
	} else {
		ev = e.log.Warn().Str("kind", string(res.Kind)).Str("reason", res.Reason)
	}
	ev.Str("request_id", req.ID).
		Str("request_type", req.RequestType).
		Str("method", call.method).
		Str("path", call.path).
		Int("status", res.StatusCode).
		Msg("solicitud aprobada ejecutada")
	return res
}

// plan traduce el tipo de solicitud a la llamada HTTP. ok=false trae el Result de rechazo.
func (e *Executor) plan(requestType string, data ActionData) (outbound, Result, bool) {
	image, err := data.Image()
	if err != nil {
		return outbound{}, failure(KindInvalidData, 0, "la imagen adjunta no es válida"), false
	}
	var (
		call    outbound
		payload any
	)
	switch requestType {
	case entity.RequestProductCreate:
		payload = &dto.CreateProductRequest{}
		call = outbound{service: "products", method: http.MethodPost, path: "/api/products/approved"}
	case entity.RequestProductUpdate:
		id, ok := data.Int64("id", "productId")
		if !ok || id <= 0 {
			return outbound{}, failure(KindInvalidData, 0, "la solicitud no indica el producto a actualizar"), false
		}
		payload = &dto.UpdateProductRequest{}
		call = outbound{service: "products", method: http.MethodPut, path: "/api/products/" + strconv.FormatInt(id, 10) + "/approved"}
	case entity.RequestProductDelete:
		id, ok := data.Int64("id", "productId")
		if !ok || id <= 0 {
			return outbound{}, failure(KindInvalidData, 0, "la solicitud no indica el producto a eliminar"), false
		}
		payload = &dto.DeleteProductRequest{}
		image = nil
		call = outbound{service: "products", method: http.MethodDelete, path: "/api/products/" + strconv.FormatInt(id, 10) + "/approved"}
	case entity.RequestProductTransfer:
		payload = &dto.TransferRequest{}
		call = outbound{service: "routes", method: http.MethodPost, path: "/api/routes/transfer/approved"}
	case entity.RequestRouteUpdate:
		id, ok := data.Int64("id", "routeId")
		if !ok || id <= 0 {
			return outbound{}, failure(KindInvalidData, 0, "la solicitud no indica la ruta a actualizar"), false
		}
		payload = &dto.UpdateRouteRequest{}
		call = outbound{service: "routes", method: http.MethodPut, path: "/api/routes/" + strconv.FormatInt(id, 10) + "/approved"}
	case entity.RequestRouteDelete:
		id, ok := data.Int64("id", "routeId")
		if !ok || id <= 0 {
			return outbound{}, failure(KindInvalidData, 0, "la solicitud no indica la ruta a eliminar"), false
		}
		call = outbound{service: "routes", method: http.MethodDelete, path: "/api/routes/" + strconv.FormatInt(id, 10) + "/approved"}
		return call, Result{}, true
	default:
		return outbound{}, failure(KindUnsupported, 0, "tipo de solicitud no soportado: %s", requestType), false
	}

	if err := data.Decode(payload); err != nil {
		return outbound{}, failure(KindInvalidData, 0, "los datos de la solicitud no son válidos: %v", err), false
	}
	if image.Empty() {
		body, err := json.Marshal(payload)
		if err != nil {
			return outbound{}, failure(KindInternal, 0, "no se pudo serializar la solicitud"), false
		}
		call.body, call.contentType = body, "application/json"
		return call, Result{}, true
	}
	body, contentType, err := multipartBody(payload, image)
	if err != nil {
		return outbound{}, failure(KindInternal, 0, "no se pudo armar el formulario de la solicitud"), false
	}
	call.path += "/multipart"
	call.body, call.contentType = body, contentType
	return call, Result{}, true
}

type response struct {
	status int
	body   []byte
}

func (e *Executor) send(ctx context.Context, call outbound, token string) Result {
	cb := e.breakers[call.service]
	out, err := cb.Execute(func() (interface{}, error) {
		resp, err := e.do(ctx, call, token)
		if err != nil {
			return nil, err
		}
		if resp.status >= http.StatusInternalServerError {
			return resp, fmt.Errorf("%s: status %d", call.service, resp.status)
		}
		return resp, nil
	})
	resp, _ := out.(response)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return failure(KindUnavailable, 0, "el servicio de %s no está disponible temporalmente", call.service)
	case err != nil && resp.status == 0:
		return failure(KindTransport, 0, "no se pudo contactar al servicio de %s", call.service)
	case resp.status >= 200 && resp.status < 300:
		return Result{Success: true, StatusCode: resp.status}
	case resp.status == http.StatusNotFound:
		return failure(KindRejected, resp.status, "el recurso ya no existe: %s", remoteMessage(resp.body, "no encontrado"))
	case resp.status >= http.StatusInternalServerError:
		return failure(KindServerError, resp.status, "el servicio de %s falló al ejecutar la operación", call.service)
	default:
		return failure(KindRejected, resp.status, "el servicio rechazó la operación: %s",
			remoteMessage(resp.body, http.StatusText(resp.status)))
	}
}

func (e *Executor) do(ctx context.Context, call outbound, token string) (response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	var body io.Reader
	if call.body != nil {
		body = bytes.NewReader(call.body)
	}
	req, err := http.NewRequestWithContext(ctx, call.method, e.bases[call.service]+call.path, body)
	if err != nil {
		return response{}, fmt.Errorf("executor: crear HTTP request: %w", err)
	}
	if call.contentType != "" {
		req.Header.Set("Content-Type", call.contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := e.http.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("executor: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return response{}, fmt.Errorf("executor: leer respuesta: %w", err)
	}
	return response{status: resp.StatusCode, body: raw}, nil
}

// remoteMessage extrae el mensaje de un dto.ErrorResponse; si no hay, usa fallback.
func remoteMessage(body []byte, fallback string) string {
	var er dto.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Message != "" {
		return er.Message
	}
	return fallback
}

// multipartBody escribe los campos con etiqueta form del payload y la imagen en la parte ImageFile.
func multipartBody(payload any, img *ports.Image) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	rv := reflect.Indirect(reflect.ValueOf(payload))
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		name := rt.Field(i).Tag.Get("form")
		if name == "" || name == "-" {
			continue
		}
		fv := rv.Field(i)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		if err := w.WriteField(name, fmt.Sprint(fv.Interface())); err != nil {
			return nil, "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, imagePart, escapeQuotes(img.Filename)))
	ct := img.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }
