package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-eventos/internal/domain"
	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
	"github.com/jhoicas/inventario-eventos/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, inventory_code, model, vendor, category_id, category_name, description, price,
		department_id, department_name, worker, is_working, is_new_item, image_url, created_at, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un nuevo producto y asigna su ID.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	query := `
		INSERT INTO products (inventory_code, model, vendor, category_id, category_name, description, price,
			department_id, department_name, worker, is_working, is_new_item, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		p.InventoryCode, p.Model, p.Vendor, p.CategoryID, p.CategoryName, p.Description, p.Price,
		p.DepartmentID, p.DepartmentName, p.Worker, p.IsWorking, p.IsNewItem, nullString(p.ImageURL),
		p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return mapProductWriteError(err, "insert product")
	}
	return nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetByInventoryCode obtiene un producto por su código de inventario.
func (r *ProductRepo) GetByInventoryCode(ctx context.Context, code int) (*entity.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE inventory_code = $1`, code)
}

func (r *ProductRepo) getOne(ctx context.Context, query string, arg any) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Update reemplaza los campos editables del producto.
func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	query := `
		UPDATE products SET inventory_code = $2, model = $3, vendor = $4, category_id = $5, category_name = $6,
			description = $7, price = $8, department_id = $9, department_name = $10, worker = $11,
			is_working = $12, image_url = $13, updated_at = $14
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		p.ID, p.InventoryCode, p.Model, p.Vendor, p.CategoryID, p.CategoryName,
		p.Description, p.Price, p.DepartmentID, p.DepartmentName, p.Worker,
		p.IsWorking, nullString(p.ImageURL), p.UpdatedAt,
	)
	if err != nil {
		return mapProductWriteError(err, "update product")
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MoveToDepartment aplica un traslado confirmado.
func (r *ProductRepo) MoveToDepartment(ctx context.Context, id, departmentID int64, departmentName, worker string) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE products SET department_id = $2, department_name = $3, worker = $4, updated_at = now() WHERE id = $1`,
		id, departmentID, departmentName, worker,
	)
	if err != nil {
		return fmt.Errorf("move product: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List lista productos con paginación.
func (r *ProductRepo) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY inventory_code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Count total de productos, para la paginación.
func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// Delete elimina un producto por ID.
func (r *ProductRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	var image *string
	if err := row.Scan(
		&p.ID, &p.InventoryCode, &p.Model, &p.Vendor, &p.CategoryID, &p.CategoryName, &p.Description, &p.Price,
		&p.DepartmentID, &p.DepartmentName, &p.Worker, &p.IsWorking, &p.IsNewItem, &image, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.ImageURL = derefString(image)
	return &p, nil
}

func mapProductWriteError(err error, op string) error {
	if isUniqueViolation(err) {
		if violatedConstraint(err) == "products_inventory_code_key" {
			return domain.ErrInventoryCodeTaken
		}
		return domain.ErrDuplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}
