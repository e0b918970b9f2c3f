package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-eventos/internal/application/dto"
	"github.com/jhoicas/inventario-eventos/internal/application/ports"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

// LedgerService casos de uso del ledger de rutas. Lo implementa *ledger.Service.
type LedgerService interface {
	CreateTransfer(ctx context.Context, actor ports.Actor, in dto.TransferRequest, img *ports.Image) (*dto.RouteResponse, error)
	CompleteTransfer(ctx context.Context, actor ports.Actor, routeID int64) (*dto.RouteResponse, error)
	UpdateRoute(ctx context.Context, actor ports.Actor, id int64, in dto.UpdateRouteRequest, img *ports.Image) (*dto.RouteResponse, error)
	DeleteRoute(ctx context.Context, actor ports.Actor, id int64) error
	GetByID(ctx context.Context, id int64) (*dto.RouteResponse, error)
	History(ctx context.Context, productID int64) (*dto.RouteHistoryResponse, error)
	ListPending(ctx context.Context, page dto.PageRequest) (*dto.RouteListResponse, error)
}

// RouteHandler endpoints del ledger de rutas.
type RouteHandler struct {
	svc LedgerService
	log *logger.Logger
}

func NewRouteHandler(svc LedgerService, log *logger.Logger) *RouteHandler {
	return &RouteHandler{svc: svc, log: log}
}

// Transfer godoc
// @Summary      Solicitar traslado
// @Description  El origen se toma del catálogo. Sin permiso directo queda pendiente de aprobación (202).
// @Tags         routes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "Destino del traslado"
// @Success      201   {object}  dto.RouteResponse
// @Success      202   {object}  dto.ApprovalRequiredResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/routes/transfer [post]
func (h *RouteHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	return h.transfer(c, in, nil)
}

// TransferMultipart godoc
// @Summary      Solicitar traslado con imagen
// @Tags         routes
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        ImageFile  formData  file  false  "Foto del traslado"
// @Success      201   {object}  dto.RouteResponse
// @Success      202   {object}  dto.ApprovalRequiredResponse
// @Router       /api/routes/transfer/multipart [post]
func (h *RouteHandler) TransferMultipart(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "formulario inválido")
	}
	img, err := formImage(c)
	if err != nil {
		return badRequest(c, "INVALID_IMAGE", err.Error())
	}
	return h.transfer(c, in, img)
}

func (h *RouteHandler) transfer(c *fiber.Ctx, in dto.TransferRequest, img *ports.Image) error {
	out, err := h.svc.CreateTransfer(c.UserContext(), GetActor(c), in, img)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Complete godoc
// @Summary      Confirmar traslado
// @Description  Solo roles Admin o Bodeguero.
// @Tags         routes
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID de la ruta"
// @Success      200  {object}  dto.RouteResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/routes/{id}/complete [post]
func (h *RouteHandler) Complete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "INVALID_ID", err.Error())
	}
	out, err := h.svc.CompleteTransfer(c.UserContext(), GetActor(c), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Editar ruta
// @Description  Sobre una ruta completada solo se admite reemplazar la imagen.
// @Tags         routes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int  true  "ID de la ruta"
// @Param        body  body  dto.UpdateRouteRequest  true  "Cambios"
// @Success      200   {object}  dto.RouteResponse
// @Success      202   {object}  dto.ApprovalRequiredResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/routes/{id} [put]
func (h *RouteHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateRouteRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	return h.update(c, in, nil)
}

// UpdateMultipart godoc
// @Summary      Editar ruta con imagen
// @Tags         routes
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        id         path      int   true   "ID de la ruta"
// @Param        ImageFile  formData  file  false  "Nueva imagen"
// @Success      200   {object}  dto.RouteResponse
// @Success      202   {object}  dto.ApprovalRequiredResponse
// @Router       /api/routes/{id}/multipart [put]
func (h *RouteHandler) UpdateMultipart(c *fiber.Ctx) error {
	var in dto.UpdateRouteRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "formulario inválido")
	}
	img, err := formImage(c)
	if err != nil {
		return badRequest(c, "INVALID_IMAGE", err.Error())
	}
	return h.update(c, in, img)
}

func (h *RouteHandler) update(c *fiber.Ctx, in dto.UpdateRouteRequest, img *ports.Image) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "INVALID_ID", err.Error())
	}
	out, err := h.svc.UpdateRoute(c.UserContext(), GetActor(c), id, in, img)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar ruta pendiente
// @Tags         routes
// @Security     Bearer
// @Param        id   path  int  true  "ID de la ruta"
// @Success      204
// @Success      202  {object}  dto.ApprovalRequiredResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/routes/{id} [delete]
func (h *RouteHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "INVALID_ID", err.Error())
	}
	if err := h.svc.DeleteRoute(c.UserContext(), GetActor(c), id); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetByID godoc
// @Summary      Obtener ruta
// @Tags         routes
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID de la ruta"
// @Success      200  {object}  dto.RouteResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/routes/{id} [get]
func (h *RouteHandler) GetByID(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "INVALID_ID", err.Error())
	}
	out, err := h.svc.GetByID(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// History godoc
// @Summary      Historial de un producto
// @Tags         routes
// @Security     Bearer
// @Produce      json
// @Param        productId  path  int  true  "ID del producto"
// @Success      200  {object}  dto.RouteHistoryResponse
// @Router       /api/routes/product/{productId}/history [get]
func (h *RouteHandler) History(c *fiber.Ctx) error {
	id, err := paramID(c, "productId")
	if err != nil {
		return badRequest(c, "INVALID_ID", err.Error())
	}
	out, err := h.svc.History(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Pending godoc
// @Summary      Traslados pendientes
// @Tags         routes
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200  {object}  dto.RouteListResponse
// @Router       /api/routes/pending [get]
func (h *RouteHandler) Pending(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	page.DefaultPage()
	out, err := h.svc.ListPending(c.UserContext(), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
