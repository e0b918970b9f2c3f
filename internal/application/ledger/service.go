package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/inventario-eventos/internal/application/dto"
	"github.com/jhoicas/inventario-eventos/internal/application/ports"
	"github.com/jhoicas/inventario-eventos/internal/domain"
	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
	"github.com/jhoicas/inventario-eventos/internal/domain/event"
	"github.com/jhoicas/inventario-eventos/internal/domain/repository"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

const imageFolder = "routes"

// Service ledger de rutas: registra los hechos del catálogo y gestiona los traslados.
type Service struct {
	tx        TxRunner
	routes    repository.InventoryRouteRepository
	products  ports.ProductLookup
	images    ports.ImageStore
	publisher ports.EventPublisher
	gate      ports.ApprovalGate
	validate  *validator.Validate
	log       *logger.Logger
	now       func() time.Time
}

// NewService construye el caso de uso.
func NewService(
	tx TxRunner,
	routes repository.InventoryRouteRepository,
	products ports.ProductLookup,
	images ports.ImageStore,
	publisher ports.EventPublisher,
	gate ports.ApprovalGate,
	validate *validator.Validate,
	log *logger.Logger,
) *Service {
	return &Service{
		tx:        tx,
		routes:    routes,
		products:  products,
		images:    images,
		publisher: publisher,
		gate:      gate,
		validate:  validate,
		log:       log.Component("ledger"),
		now:       time.Now,
	}
}

// ── Consumo de eventos del catálogo ──

// HandleProductCreated registra la entrada NewInventory.
func (s *Service) HandleProductCreated(ctx context.Context, e event.ProductCreated, messageID string) error {
	_, err := s.Record(ctx, e, messageID)
	return err
}

// HandleProductUpdated registra la entrada Update; sin diferencias no se crea nada.
func (s *Service) HandleProductUpdated(ctx context.Context, e event.ProductUpdated, messageID string) error {
	_, err := s.Record(ctx, e, messageID)
	return err
}

// HandleProductDeleted registra la entrada Removal.
func (s *Service) HandleProductDeleted(ctx context.Context, e event.ProductDeleted, messageID string) error {
	_, err := s.Record(ctx, e, messageID)
	return err
}

// errAlreadyRecorded el mensaje ya tiene ruta; la tx se revierte sin escribir.
var errAlreadyRecorded = errors.New("ledger: evento ya registrado")

// Record construye la ruta del hecho, la persiste y publica route.created en la misma transacción.
// Un mensaje ya registrado (reentrega) o sin cambios retorna (nil, nil).
func (s *Service) Record(ctx context.Context, e event.LedgerEvent, sourceEventID string) (*entity.InventoryRoute, error) {
	route, err := e.Route(sourceEventID, s.now())
	if errors.Is(err, domain.ErrNoChanges) {
		s.log.Debug().Str("message_id", sourceEventID).Str("kind", string(e.Kind())).Msg("evento sin cambios semánticos, no se registra ruta")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	err = s.tx.Run(ctx, func(routes repository.InventoryRouteRepository) error {
		if sourceEventID != "" {
			seen, err := routes.ExistsBySourceEvent(ctx, sourceEventID)
			if err != nil {
				return err
			}
			if seen {
				return errAlreadyRecorded
			}
		}
		if err := routes.Create(ctx, route); err != nil {
			return err
		}
		return s.publisher.Publish(ctx, event.KeyRouteCreated, event.NewRouteNotice(route, route.RequestedByID, s.now()))
	})
	// La restricción única cubre la carrera entre dos entregas concurrentes del mismo mensaje.
	if errors.Is(err, errAlreadyRecorded) || (errors.Is(err, domain.ErrDuplicate) && sourceEventID != "") {
		s.log.Info().Str("message_id", sourceEventID).Msg("evento ya registrado, se ignora la reentrega")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Int64("route_id", route.ID).
		Str("route_type", string(route.Type)).
		Int64("product_id", route.Snapshot.ProductID()).
		Msg("ruta registrada")
	return route, nil
}

// ── Traslados ──

// CreateTransfer abre un traslado pendiente a partir del estado vivo del producto en el catálogo.
func (s *Service) CreateTransfer(ctx context.Context, actor ports.Actor, in dto.TransferRequest, img *ports.Image) (*dto.RouteResponse, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := s.gate.Require(ctx, ports.GateRequest{
		Actor:       actor,
		Permission:  entity.PermProductsTransferDirect,
		RequestType: entity.RequestProductTransfer,
		Payload:     in,
		Image:       img,
	}); err != nil {
		return nil, err
	}

	p, err := s.products.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	imageURL, err := s.upload(ctx, img)
	if err != nil {
		return nil, err
	}
	req := event.TransferRequested{
		Product: event.ProductData{
			ProductID:     p.ID,
			InventoryCode: p.InventoryCode,
			Model:         p.Model,
			Vendor:        p.Vendor,
			CategoryName:  p.CategoryName,
			IsWorking:     p.IsWorking,
		},
		FromDepartmentID:   p.DepartmentID,
		FromDepartmentName: p.DepartmentName,
		FromWorker:         p.Worker,
		ToDepartmentID:     in.ToDepartmentID,
		ToDepartmentName:   in.ToDepartmentName,
		ToWorker:           in.ToWorker,
		ImageURL:           imageURL,
		Notes:              in.Notes,
		RequestedByID:      actor.ID,
		RequestedByName:    actor.Name,
	}
	route, err := req.Route("", s.now())
	if err != nil {
		s.discard(ctx, imageURL)
		return nil, err
	}
	err = s.tx.Run(ctx, func(routes repository.InventoryRouteRepository) error {
		if err := routes.Create(ctx, route); err != nil {
			return err
		}
		return s.publisher.Publish(ctx, event.KeyRouteCreated, event.NewRouteNotice(route, actor.ID, s.now()))
	})
	if err != nil {
		s.discard(ctx, imageURL)
		return nil, err
	}
	s.log.Info().
		Int64("route_id", route.ID).
		Int64("product_id", p.ID).
		Int64("to_department_id", in.ToDepartmentID).
		Msg("traslado solicitado")
	out := dto.ToRouteResponse(route)
	return &out, nil
}

// CompleteTransfer confirma el traslado: la ruta queda completada y el catálogo recibe product.transferred.
func (s *Service) CompleteTransfer(ctx context.Context, actor ports.Actor, routeID int64) (*dto.RouteResponse, error) {
	var route *entity.InventoryRoute
	err := s.tx.Run(ctx, func(routes repository.InventoryRouteRepository) error {
		r, err := routes.GetByID(ctx, routeID)
		if err != nil {
			return err
		}
		if r == nil {
			return domain.ErrNotFound
		}
		if r.Type != entity.RouteTypeTransfer {
			return fmt.Errorf("%w: solo los traslados se confirman", domain.ErrInvalidInput)
		}
		now := s.now()
		if err := r.Complete(now); err != nil {
			return err
		}
		if err := routes.Update(ctx, r); err != nil {
			return err
		}
		var from int64
		if r.FromDepartmentID != nil {
			from = *r.FromDepartmentID
		}
		if err := s.publisher.Publish(ctx, event.KeyProductTransferred, event.ProductTransferred{
			ProductID:        r.Snapshot.ProductID(),
			RouteID:          r.ID,
			FromDepartmentID: from,
			ToDepartmentID:   r.ToDepartmentID,
			ToDepartmentName: r.ToDepartmentName,
			ToWorker:         r.ToWorker,
			CompletedByID:    actor.ID,
			OccurredAt:       now.UTC(),
		}); err != nil {
			return err
		}
		route = r
		return s.publisher.Publish(ctx, event.KeyRouteCompleted, event.NewRouteNotice(r, actor.ID, now))
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("route_id", routeID).Str("completed_by", actor.ID).Msg("traslado completado")
	out := dto.ToRouteResponse(route)
	return &out, nil
}

// ── Edición y borrado privilegiados ──

// UpdateRoute edita una ruta. Sobre una ruta completada solo se acepta reemplazar la imagen.
func (s *Service) UpdateRoute(ctx context.Context, actor ports.Actor, id int64, in dto.UpdateRouteRequest, img *ports.Image) (*dto.RouteResponse, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := s.gate.Require(ctx, ports.GateRequest{
		Actor:       actor,
		Permission:  entity.PermRoutesUpdateDirect,
		RequestType: entity.RequestRouteUpdate,
		ResourceID:  id,
		Payload:     in,
		Image:       img,
	}); err != nil {
		return nil, err
	}

	current, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}
	edit := entity.RouteEdit{
		ToDepartmentID:   in.ToDepartmentID,
		ToDepartmentName: in.ToDepartmentName,
		ToWorker:         in.ToWorker,
		Notes:            in.Notes,
	}
	// Validar antes de subir nada.
	borrador := *current
	if err := borrador.ApplyEdit(edit); err != nil {
		return nil, err
	}

	newURL, err := s.upload(ctx, img)
	if err != nil {
		return nil, err
	}
	if newURL != "" {
		edit.ImageURL = &newURL
	}
	oldURL := current.ImageURL

	var updated *entity.InventoryRoute
	err = s.tx.Run(ctx, func(routes repository.InventoryRouteRepository) error {
		r, err := routes.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return domain.ErrNotFound
		}
		if err := r.ApplyEdit(edit); err != nil {
			return err
		}
		if err := routes.Update(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		s.discard(ctx, newURL)
		return nil, err
	}
	if newURL != "" {
		s.discard(ctx, oldURL)
	}
	s.log.Info().Int64("route_id", id).Str("updated_by", actor.ID).Msg("ruta actualizada")
	out := dto.ToRouteResponse(updated)
	return &out, nil
}

// DeleteRoute elimina una ruta pendiente. Las completadas forman parte del historial y no se borran.
func (s *Service) DeleteRoute(ctx context.Context, actor ports.Actor, id int64) error {
	if err := s.gate.Require(ctx, ports.GateRequest{
		Actor:       actor,
		Permission:  entity.PermRoutesDeleteDirect,
		RequestType: entity.RequestRouteDelete,
		ResourceID:  id,
	}); err != nil {
		return err
	}

	var removed *entity.InventoryRoute
	err := s.tx.Run(ctx, func(routes repository.InventoryRouteRepository) error {
		r, err := routes.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return domain.ErrNotFound
		}
		if err := r.EnsureDeletable(); err != nil {
			return err
		}
		if err := routes.Delete(ctx, id); err != nil {
			return err
		}
		removed = r
		return s.publisher.Publish(ctx, event.KeyRouteDeleted, event.NewRouteNotice(r, actor.ID, s.now()))
	})
	if err != nil {
		return err
	}
	s.discard(ctx, removed.ImageURL)
	s.log.Info().Int64("route_id", id).Str("deleted_by", actor.ID).Msg("ruta eliminada")
	return nil
}

// ── Consultas ──

// GetByID obtiene una ruta.
func (s *Service) GetByID(ctx context.Context, id int64) (*dto.RouteResponse, error) {
	r, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domain.ErrNotFound
	}
	out := dto.ToRouteResponse(r)
	return &out, nil
}

// History historial cronológico del producto.
func (s *Service) History(ctx context.Context, productID int64) (*dto.RouteHistoryResponse, error) {
	list, err := s.routes.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.RouteResponse, 0, len(list))
	for _, r := range list {
		items = append(items, dto.ToRouteResponse(r))
	}
	return &dto.RouteHistoryResponse{ProductID: productID, Items: items}, nil
}

// ListPending traslados a la espera de confirmación.
func (s *Service) ListPending(ctx context.Context, page dto.PageRequest) (*dto.RouteListResponse, error) {
	page.DefaultPage()
	list, err := s.routes.ListPending(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	total, err := s.routes.CountPending(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]dto.RouteResponse, 0, len(list))
	for _, r := range list {
		items = append(items, dto.ToRouteResponse(r))
	}
	return &dto.RouteListResponse{Items: items, Page: dto.NewPageResponse(page, total)}, nil
}

func (s *Service) upload(ctx context.Context, img *ports.Image) (string, error) {
	if img.Empty() {
		return "", nil
	}
	url, err := s.images.Save(ctx, imageFolder, img)
	if err != nil {
		return "", fmt.Errorf("subir imagen: %w", err)
	}
	return url, nil
}

func (s *Service) discard(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.images.Delete(context.WithoutCancel(ctx), url); err != nil {
		s.log.Warn().Err(err).Str("image_url", url).Msg("no se pudo borrar la imagen")
	}
}
