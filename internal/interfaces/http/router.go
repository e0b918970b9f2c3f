package http

import (
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
	pkgjwt "github.com/jhoicas/inventario-eventos/pkg/jwt"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

// AppConfig opciones comunes de los servicios HTTP.
type AppConfig struct {
	Name        string
	SwaggerFile string // vacío o inexistente = sin UI de swagger
	ImageDir    string // vacío = no se sirven imágenes
	ImagePrefix string
}

// NewApp construye la app Fiber con recover, health, swagger e imágenes estáticas.
func NewApp(cfg AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    12 << 20,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if cfg.SwaggerFile != "" {
		if _, err := os.Stat(cfg.SwaggerFile); err == nil {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/",
				FilePath: cfg.SwaggerFile,
				Path:     "docs",
				Title:    cfg.Name,
			}))
		}
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.Name})
	})

	if cfg.ImageDir != "" && cfg.ImagePrefix != "" {
		app.Static(cfg.ImagePrefix, cfg.ImageDir)
	}
	return app
}

// CatalogDeps dependencias del router del catálogo.
type CatalogDeps struct {
	Products  CatalogService
	JWTSecret string
	Log       *logger.Logger
}

// CatalogRouter registra /api/products y sus variantes /approved.
func CatalogRouter(app *fiber.App, deps CatalogDeps) {
	h := NewProductHandler(deps.Products, deps.Log.Component("http.products"))
	products := app.Group("/api/products", AuthMiddleware(deps.JWTSecret))

	// Endpoints del ejecutor de aprobaciones (credencial de sistema).
	products.Post("/approved", RequireSystem(entity.PermProductsCreateDirect), h.Create)
	products.Post("/approved/multipart", RequireSystem(entity.PermProductsCreateDirect), h.CreateMultipart)
	products.Put("/:id/approved", RequireSystem(entity.PermProductsUpdateDirect), h.Update)
	products.Put("/:id/approved/multipart", RequireSystem(entity.PermProductsUpdateDirect), h.UpdateMultipart)
	products.Delete("/:id/approved", RequireSystem(entity.PermProductsDeleteDirect), h.Delete)

	products.Get("/", h.List)
	products.Post("/", h.Create)
	products.Post("/multipart", h.CreateMultipart)
	products.Get("/:id", h.GetByID)
	products.Put("/:id", h.Update)
	products.Put("/:id/multipart", h.UpdateMultipart)
	products.Delete("/:id", h.Delete)
}

// RoutingDeps dependencias del router del ledger.
type RoutingDeps struct {
	Routes    LedgerService
	JWTSecret string
	Log       *logger.Logger
}

// RoutingRouter registra /api/routes y sus variantes /approved.
func RoutingRouter(app *fiber.App, deps RoutingDeps) {
	h := NewRouteHandler(deps.Routes, deps.Log.Component("http.routes"))
	routes := app.Group("/api/routes", AuthMiddleware(deps.JWTSecret))

	routes.Post("/transfer/approved", RequireSystem(entity.PermProductsTransferDirect), h.Transfer)
	routes.Post("/transfer/approved/multipart", RequireSystem(entity.PermProductsTransferDirect), h.TransferMultipart)
	routes.Put("/:id/approved", RequireSystem(entity.PermRoutesUpdateDirect), h.Update)
	routes.Put("/:id/approved/multipart", RequireSystem(entity.PermRoutesUpdateDirect), h.UpdateMultipart)
	routes.Delete("/:id/approved", RequireSystem(entity.PermRoutesDeleteDirect), h.Delete)

	routes.Post("/transfer", h.Transfer)
	routes.Post("/transfer/multipart", h.TransferMultipart)
	routes.Get("/pending", h.Pending)
	routes.Get("/product/:productId/history", h.History)
	routes.Get("/:id", h.GetByID)
	// La confirmación de la entrega física la hace personal de bodega o un administrador.
	routes.Post("/:id/complete", RequireRole(pkgjwt.RoleAdmin, pkgjwt.RoleWarehouse), h.Complete)
	routes.Put("/:id", h.Update)
	routes.Put("/:id/multipart", h.UpdateMultipart)
	routes.Delete("/:id", h.Delete)
}
