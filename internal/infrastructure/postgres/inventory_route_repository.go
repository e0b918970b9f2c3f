package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-eventos/internal/domain"
	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
	"github.com/jhoicas/inventario-eventos/internal/domain/repository"
)

var _ repository.InventoryRouteRepository = (*InventoryRouteRepo)(nil)

const routeColumns = `id, route_type, product_id, inventory_code, model, vendor, category_name, is_working,
		from_department_id, from_department_name, from_worker, to_department_id, to_department_name, to_worker,
		image_url, notes, changes, is_new_item, removed_by, requested_by_id, requested_by_name, source_event_id,
		is_completed, created_at, completed_at`

// InventoryRouteRepo ledger de rutas sobre PostgreSQL.
type InventoryRouteRepo struct {
	q Querier
}

// NewInventoryRouteRepository construye el repositorio. Pasar pool o tx (Querier).
func NewInventoryRouteRepository(q Querier) *InventoryRouteRepo {
	return &InventoryRouteRepo{q: q}
}

// Create inserta la ruta. Un source_event_id repetido retorna domain.ErrDuplicate.
func (r *InventoryRouteRepo) Create(ctx context.Context, rt *entity.InventoryRoute) error {
	changes, err := marshalChanges(rt.Changes)
	if err != nil {
		return err
	}
	s := rt.Snapshot
	query := `
		INSERT INTO inventory_routes (route_type, product_id, inventory_code, model, vendor, category_name, is_working,
			from_department_id, from_department_name, from_worker, to_department_id, to_department_name, to_worker,
			image_url, notes, changes, is_new_item, removed_by, requested_by_id, requested_by_name, source_event_id,
			is_completed, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		RETURNING id`
	err = r.q.QueryRow(ctx, query,
		string(rt.Type), s.ProductID(), s.InventoryCode(), s.Model(), s.Vendor(), s.CategoryName(), s.IsWorking(),
		rt.FromDepartmentID, nullString(rt.FromDepartmentName), nullString(rt.FromWorker),
		rt.ToDepartmentID, nullString(rt.ToDepartmentName), nullString(rt.ToWorker),
		nullString(rt.ImageURL), nullString(rt.Notes), changes, rt.IsNewItem, nullString(rt.RemovedBy),
		nullString(rt.RequestedByID), nullString(rt.RequestedByName), nullString(rt.SourceEventID),
		rt.IsCompleted, rt.CreatedAt, rt.CompletedAt,
	).Scan(&rt.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: evento %s ya registrado", domain.ErrDuplicate, rt.SourceEventID)
		}
		return fmt.Errorf("insert route: %w", err)
	}
	return nil
}

// GetByID obtiene una ruta; (nil, nil) si no existe.
func (r *InventoryRouteRepo) GetByID(ctx context.Context, id int64) (*entity.InventoryRoute, error) {
	rt, err := scanRoute(r.q.QueryRow(ctx, `SELECT `+routeColumns+` FROM inventory_routes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get route: %w", err)
	}
	return rt, nil
}

// ExistsBySourceEvent indica si ya se registró una ruta para el mensaje.
func (r *InventoryRouteRepo) ExistsBySourceEvent(ctx context.Context, sourceEventID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM inventory_routes WHERE source_event_id = $1)`, sourceEventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists route: %w", err)
	}
	return exists, nil
}

// Update persiste destino, notas, imagen y estado de completitud.
func (r *InventoryRouteRepo) Update(ctx context.Context, rt *entity.InventoryRoute) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE inventory_routes SET to_department_id = $2, to_department_name = $3, to_worker = $4,
			image_url = $5, notes = $6, is_completed = $7, completed_at = $8
		WHERE id = $1`,
		rt.ID, rt.ToDepartmentID, nullString(rt.ToDepartmentName), nullString(rt.ToWorker),
		nullString(rt.ImageURL), nullString(rt.Notes), rt.IsCompleted, rt.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update route: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina una ruta pendiente. Las completadas no se borran ni por error de la capa superior.
func (r *InventoryRouteRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM inventory_routes WHERE id = $1 AND NOT is_completed`, id)
	if err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrRouteCompleted
	}
	return nil
}

// ListByProduct historial cronológico del producto.
func (r *InventoryRouteRepo) ListByProduct(ctx context.Context, productID int64) ([]*entity.InventoryRoute, error) {
	return r.list(ctx, `SELECT `+routeColumns+` FROM inventory_routes WHERE product_id = $1 ORDER BY created_at, id`, productID)
}

// ListPending traslados a la espera de confirmación, más antiguos primero.
func (r *InventoryRouteRepo) ListPending(ctx context.Context, limit, offset int) ([]*entity.InventoryRoute, error) {
	return r.list(ctx, `SELECT `+routeColumns+` FROM inventory_routes WHERE NOT is_completed
		ORDER BY created_at, id LIMIT $1 OFFSET $2`, limit, offset)
}

// CountPending total de traslados pendientes.
func (r *InventoryRouteRepo) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM inventory_routes WHERE NOT is_completed`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending routes: %w", err)
	}
	return n, nil
}

func (r *InventoryRouteRepo) list(ctx context.Context, query string, args ...any) ([]*entity.InventoryRoute, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()
	var out []*entity.InventoryRoute
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan route: %w", err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func scanRoute(row pgx.Row) (*entity.InventoryRoute, error) {
	var (
		rt                                            entity.InventoryRoute
		routeType, model, vendor, category            string
		productID                                     int64
		inventoryCode                                 int
		isWorking                                     bool
		fromName, fromWorker, toName, toWorker, image *string
		notes, removedBy, reqID, reqName, sourceID    *string
		changes                                       []byte
	)
	if err := row.Scan(
		&rt.ID, &routeType, &productID, &inventoryCode, &model, &vendor, &category, &isWorking,
		&rt.FromDepartmentID, &fromName, &fromWorker, &rt.ToDepartmentID, &toName, &toWorker,
		&image, &notes, &changes, &rt.IsNewItem, &removedBy, &reqID, &reqName, &sourceID,
		&rt.IsCompleted, &rt.CreatedAt, &rt.CompletedAt,
	); err != nil {
		return nil, err
	}
	rt.Type = entity.RouteType(routeType)
	rt.Snapshot = entity.NewProductSnapshot(productID, inventoryCode, model, vendor, category, isWorking)
	rt.FromDepartmentName = derefString(fromName)
	rt.FromWorker = derefString(fromWorker)
	rt.ToDepartmentName = derefString(toName)
	rt.ToWorker = derefString(toWorker)
	rt.ImageURL = derefString(image)
	rt.Notes = derefString(notes)
	rt.RemovedBy = derefString(removedBy)
	rt.RequestedByID = derefString(reqID)
	rt.RequestedByName = derefString(reqName)
	rt.SourceEventID = derefString(sourceID)
	if len(changes) > 0 {
		if err := json.Unmarshal(changes, &rt.Changes); err != nil {
			return nil, fmt.Errorf("changes: %w", err)
		}
	}
	return &rt, nil
}

func marshalChanges(changes []entity.FieldChange) ([]byte, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(changes)
	if err != nil {
		return nil, fmt.Errorf("marshal changes: %w", err)
	}
	return b, nil
}
