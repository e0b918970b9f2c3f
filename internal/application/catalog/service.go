package catalog

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

const imageFolder = "products"

// Service casos de uso del catálogo. Toda escritura publica su evento dentro de la misma
// transacción; si la imagen ya se subió y algo falla después, se borra (compensación).
type Service struct {
	tx        TxRunner
	repo      repository.ProductRepository
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
	repo repository.ProductRepository,
	images ports.ImageStore,
	publisher ports.EventPublisher,
	gate ports.ApprovalGate,
	validate *validator.Validate,
	log *logger.Logger,
) *Service {
	return &Service{
		tx:        tx,
		repo:      repo,
		images:    images,
		publisher: publisher,
		gate:      gate,
		validate:  validate,
		log:       log.Component("catalog"),
		now:       time.Now,
	}
}

// Create registra un producto nuevo y publica product.created.
func (s *Service) Create(ctx context.Context, actor ports.Actor, in dto.CreateProductRequest, img *ports.Image) (*dto.ProductResponse, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := s.gate.Require(ctx, ports.GateRequest{
		Actor:       actor,
		Permission:  entity.PermProductsCreateDirect,
		RequestType: entity.RequestProductCreate,
		Payload:     in,
		Image:       img,
	}); err != nil {
		return nil, err
	}

	imageURL, err := s.upload(ctx, img)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &entity.Product{
		InventoryCode:  in.InventoryCode,
		Model:          in.Model,
		Vendor:         in.Vendor,
		CategoryID:     in.CategoryID,
		CategoryName:   in.CategoryName,
		Description:    in.Description,
		Price:          in.Price,
		DepartmentID:   in.DepartmentID,
		DepartmentName: in.DepartmentName,
		Worker:         in.Worker,
		IsWorking:      in.IsWorking,
		IsNewItem:      in.IsNewItem,
		ImageURL:       imageURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.tx.Run(ctx, func(products repository.ProductRepository) error {
		existing, err := products.GetByInventoryCode(ctx, p.InventoryCode)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrInventoryCodeTaken
		}
		if err := products.Create(ctx, p); err != nil {
			return err
		}
		return s.publisher.Publish(ctx, event.KeyProductCreated, event.ProductCreated{
			ProductData:    event.DataFromSnapshot(p.Snapshot()),
			DepartmentID:   p.DepartmentID,
			DepartmentName: p.DepartmentName,
			Worker:         p.Worker,
			IsNewItem:      p.IsNewItem,
			ImageURL:       p.ImageURL,
			Notes:          in.Notes,
			CreatedByID:    actor.ID,
			CreatedByName:  actor.Name,
			OccurredAt:     now,
		})
	})
	if err != nil {
		s.discard(ctx, imageURL)
		return nil, err
	}
	s.log.Info().Int64("product_id", p.ID).Int("inventory_code", p.InventoryCode).Msg("producto creado")
	return toProductResponse(p), nil
}

// Update aplica los cambios. Si no hay diferencias semánticas no escribe ni publica nada.
func (s *Service) Update(ctx context.Context, actor ports.Actor, id int64, in dto.UpdateProductRequest, img *ports.Image) (*dto.ProductResponse, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := s.gate.Require(ctx, ports.GateRequest{
		Actor:       actor,
		Permission:  entity.PermProductsUpdateDirect,
		RequestType: entity.RequestProductUpdate,
		ResourceID:  id,
		Payload:     in,
		Image:       img,
	}); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}

	next := *current
	applyUpdate(&next, in)

	newURL, err := s.upload(ctx, img)
	if err != nil {
		return nil, err
	}
	if newURL != "" {
		next.ImageURL = newURL
	}
	changes := current.ChangesTo(&next)
	if len(changes) == 0 {
		s.discard(ctx, newURL)
		return toProductResponse(current), nil
	}
	now := s.now().UTC()
	next.UpdatedAt = now

	msg := event.ProductUpdated{
		ProductID:      id,
		Before:         event.DataFromSnapshot(current.Snapshot()),
		After:          event.DataFromSnapshot(next.Snapshot()),
		DepartmentID:   next.DepartmentID,
		DepartmentName: next.DepartmentName,
		Worker:         next.Worker,
		ImageURL:       next.ImageURL,
		Notes:          in.Notes,
		Changes:        changes,
		UpdatedByID:    actor.ID,
		UpdatedByName:  actor.Name,
		OccurredAt:     now,
	}
	if current.DepartmentID != next.DepartmentID {
		from := current.DepartmentID
		msg.FromDepartmentID = &from
	}

	err = s.tx.Run(ctx, func(products repository.ProductRepository) error {
		if next.InventoryCode != current.InventoryCode {
			other, err := products.GetByInventoryCode(ctx, next.InventoryCode)
			if err != nil {
				return err
			}
			if other != nil && other.ID != id {
				return domain.ErrInventoryCodeTaken
			}
		}
		if err := products.Update(ctx, &next); err != nil {
			return err
		}
		return s.publisher.Publish(ctx, event.KeyProductUpdated, msg)
	})
	if err != nil {
		s.discard(ctx, newURL)
		return nil, err
	}
	if newURL != "" {
		s.discard(ctx, current.ImageURL)
	}
	s.log.Info().Int64("product_id", id).Int("changes", len(changes)).Msg("producto actualizado")
	return toProductResponse(&next), nil
}

// Delete da de baja el producto y publica product.deleted. La imagen se borra después del commit.
func (s *Service) Delete(ctx context.Context, actor ports.Actor, id int64, in dto.DeleteProductRequest) error {
	if err := s.gate.Require(ctx, ports.GateRequest{
		Actor:       actor,
		Permission:  entity.PermProductsDeleteDirect,
		RequestType: entity.RequestProductDelete,
		ResourceID:  id,
		Payload:     in,
	}); err != nil {
		return err
	}

	var removed *entity.Product
	err := s.tx.Run(ctx, func(products repository.ProductRepository) error {
		p, err := products.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}
		if err := products.Delete(ctx, id); err != nil {
			return err
		}
		removed = p
		removedBy := in.RemovedBy
		if removedBy == "" {
			removedBy = actor.Name
		}
		return s.publisher.Publish(ctx, event.KeyProductDeleted, event.ProductDeleted{
			ProductData:    event.DataFromSnapshot(p.Snapshot()),
			DepartmentID:   p.DepartmentID,
			DepartmentName: p.DepartmentName,
			Worker:         p.Worker,
			RemovedBy:      removedBy,
			Notes:          in.Notes,
			DeletedByID:    actor.ID,
			DeletedByName:  actor.Name,
			OccurredAt:     s.now().UTC(),
		})
	})
	if err != nil {
		return err
	}
	s.discard(ctx, removed.ImageURL)
	s.log.Info().Int64("product_id", id).Msg("producto eliminado")
	return nil
}

// GetByID obtiene un producto por ID.
func (s *Service) GetByID(ctx context.Context, id int64) (*dto.ProductResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return toProductResponse(p), nil
}

// List lista productos con paginación e informa el total.
func (s *Service) List(ctx context.Context, page dto.PageRequest) (*dto.ProductListResponse, error) {
	page.DefaultPage()
	list, err := s.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.NewPageResponse(page, total),
	}, nil
}

// ApplyTransfer mueve el producto vivo al destino de un traslado confirmado (product.transferred).
// No publica product.updated: el traslado ya quedó auditado como ruta.
func (s *Service) ApplyTransfer(ctx context.Context, msg event.ProductTransferred) error {
	err := s.repo.MoveToDepartment(ctx, msg.ProductID, msg.ToDepartmentID, msg.ToDepartmentName, msg.ToWorker)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Warn().Int64("product_id", msg.ProductID).Int64("route_id", msg.RouteID).Msg("traslado de un producto inexistente")
		}
		return err
	}
	s.log.Info().
		Int64("product_id", msg.ProductID).
		Int64("route_id", msg.RouteID).
		Int64("to_department_id", msg.ToDepartmentID).
		Msg("traslado aplicado")
	return nil
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

// discard borra una imagen sin propagar el error; un archivo huérfano no invalida la operación.
func (s *Service) discard(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.images.Delete(context.WithoutCancel(ctx), url); err != nil {
		s.log.Warn().Err(err).Str("image_url", url).Msg("no se pudo borrar la imagen")
	}
}

func applyUpdate(p *entity.Product, in dto.UpdateProductRequest) {
	if in.InventoryCode != nil {
		p.InventoryCode = *in.InventoryCode
	}
	if in.Model != nil {
		p.Model = *in.Model
	}
	if in.Vendor != nil {
		p.Vendor = *in.Vendor
	}
	if in.CategoryID != nil {
		p.CategoryID = *in.CategoryID
	}
	if in.CategoryName != nil {
		p.CategoryName = *in.CategoryName
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.DepartmentID != nil {
		p.DepartmentID = *in.DepartmentID
	}
	if in.DepartmentName != nil {
		p.DepartmentName = *in.DepartmentName
	}
	if in.Worker != nil {
		p.Worker = *in.Worker
	}
	if in.IsWorking != nil {
		p.IsWorking = *in.IsWorking
	}
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:             p.ID,
		InventoryCode:  p.InventoryCode,
		Model:          p.Model,
		Vendor:         p.Vendor,
		CategoryID:     p.CategoryID,
		CategoryName:   p.CategoryName,
		Description:    p.Description,
		Price:          p.Price,
		DepartmentID:   p.DepartmentID,
		DepartmentName: p.DepartmentName,
		Worker:         p.Worker,
		IsWorking:      p.IsWorking,
		IsNewItem:      p.IsNewItem,
		ImageURL:       p.ImageURL,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
