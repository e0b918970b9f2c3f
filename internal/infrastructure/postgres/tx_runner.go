package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/inventario-eventos/internal/application/catalog"
	"github.com/jhoicas/inventario-eventos/internal/application/ledger"
	"github.com/jhoicas/inventario-eventos/internal/domain/repository"
)

var (
	_ catalog.TxRunner = (*CatalogTxRunner)(nil)
	_ ledger.TxRunner  = (*RoutingTxRunner)(nil)
)

// CatalogTxRunner ejecuta callbacks del catálogo dentro de una transacción PostgreSQL.
type CatalogTxRunner struct {
	pool *pgxpool.Pool
}

// NewCatalogTxRunner construye el runner con el pool del catálogo.
func NewCatalogTxRunner(pool *pgxpool.Pool) *CatalogTxRunner {
	return &CatalogTxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con el repo atado a la tx y hace Commit o Rollback.
func (r *CatalogTxRunner) Run(ctx context.Context, fn func(products repository.ProductRepository) error) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(NewProductRepository(tx))
	})
}

// RoutingTxRunner igual que CatalogTxRunner pero sobre el ledger de rutas.
type RoutingTxRunner struct {
	pool *pgxpool.Pool
}

// NewRoutingTxRunner construye el runner con el pool del servicio de rutas.
func NewRoutingTxRunner(pool *pgxpool.Pool) *RoutingTxRunner {
	return &RoutingTxRunner{pool: pool}
}

// Run ver CatalogTxRunner.Run.
func (r *RoutingTxRunner) Run(ctx context.Context, fn func(routes repository.InventoryRouteRepository) error) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(NewInventoryRouteRepository(tx))
	})
}

func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
