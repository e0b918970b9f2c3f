package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-eventos/internal/application/dto"
	"github.com/jhoicas/inventario-eventos/internal/application/ports"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

// CatalogService casos de uso del catálogo que expone el handler. Lo implementa *catalog.Service.
type CatalogService interface {
	Create(ctx context.Context, actor ports.Actor, in dto.CreateProductRequest, img *ports.Image) (*dto.ProductResponse, error)
	Update(ctx context.Context, actor ports.Actor, id int64, in dto.UpdateProductRequest, img *ports.Image) (*dto.ProductResponse, error)
	Delete(ctx context.Context, actor ports.Actor, id int64, in dto.DeleteProductRequest) error
	GetByID(ctx context.Context, id int64) (*dto.ProductResponse, error)
	List(ctx context.Context, page dto.PageRequest) (*dto.ProductListResponse, error)
}

// ProductHandler maneja las peticiones HTTP para Product (protegido).
type ProductHandler struct {
	svc CatalogService
	log *logger.Logger
}

// NewProductHandler construye el handler.
func NewProductHandler(svc CatalogService, log *logger.Logger) *ProductHandler {
	return &ProductHandler{svc: svc, log: log}
}

// Create godoc
// @Summary      Crear producto
// @Description  Sin el permiso directo la operación queda pendiente de aprobación (202).
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateProductRequest  true  "Datos del producto"
// @Success      201   {object}  dto.ProductResponse
// @Success      202   {object}  dto.ApprovalRequiredResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/products [post]
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	return h.create(c, in, nil)
}

// CreateMultipart godoc
// @Summary      Crear producto con imagen
// @Tags         products
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        ImageFile  formData  file  false  "Imagen del producto"
// @Success      201   {object}  dto.ProductResponse
// @Success      202   {object}  dto.ApprovalRequiredResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/products/multipart [post]
func (h *ProductHandler) CreateMultipart(c *fiber.Ctx) error {
	var in dto.CreateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "formulario inválido")
	}
	img, err := formImage(c)
	if err != nil {
		return badRequest(c, "INVALID_IMAGE", err.Error())
	}
	return h.create(c, in, img)
}

func (h *ProductHandler) create(c *fiber.Ctx, in dto.CreateProductRequest, img *ports.Image) error {
	out, err := h.svc.Create(c.UserContext(), GetActor(c), in, img)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener producto por ID
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del producto"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetByID(c *fiber.Ctx) error {
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

// List godoc
// @Summary      Listar productos
// @Tags         products
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200     {object}  dto.ProductListResponse
// @Router       /api/products [get]
func (h *ProductHandler) List(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	page.DefaultPage()
	out, err := h.svc.List(c.UserContext(), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Update godoc
// @Summary      Actualizar producto
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int  true  "ID del producto"
// @Param        body  body  dto.UpdateProductRequest  true  "Datos a actualizar"
// @Success      200   {object}  dto.ProductResponse
// @Success      202   {object}  dto.ApprovalRequiredResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/products/{id} [put]
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	return h.update(c, in, nil)
}

// UpdateMultipart godoc
// @Summary      Actualizar producto con imagen
// @Tags         products
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        id         path      int   true   "ID del producto"
// @Param        ImageFile  formData  file  false  "Nueva imagen"
// @Success      200   {object}  dto.ProductResponse
// @Success      202   {object}  dto.ApprovalRequiredResponse
// @Router       /api/products/{id}/multipart [put]
func (h *ProductHandler) UpdateMultipart(c *fiber.Ctx) error {
	var in dto.UpdateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "formulario inválido")
	}
	img, err := formImage(c)
	if err != nil {
		return badRequest(c, "INVALID_IMAGE", err.Error())
	}
	return h.update(c, in, img)
}

func (h *ProductHandler) update(c *fiber.Ctx, in dto.UpdateProductRequest, img *ports.Image) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "INVALID_ID", err.Error())
	}
	out, err := h.svc.Update(c.UserContext(), GetActor(c), id, in, img)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar producto
// @Tags         products
// @Security     Bearer
// @Accept       json
// @Param        id    path  int  true  "ID del producto"
// @Param        body  body  dto.DeleteProductRequest  false  "Datos de la baja"
// @Success      204
// @Success      202   {object}  dto.ApprovalRequiredResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "INVALID_ID", err.Error())
	}
	var in dto.DeleteProductRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "INVALID_BODY", "cuerpo inválido")
		}
	}
	if err := h.svc.Delete(c.UserContext(), GetActor(c), id, in); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
