//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/inventario-eventos/internal/domain"
	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
	"github.com/jhoicas/inventario-eventos/internal/domain/repository"
	"github.com/jhoicas/inventario-eventos/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-eventos/migrations"
	"github.com/jhoicas/inventario-eventos/pkg/config"
)

type RepositorySuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.container, err = tcpostgres.Run(s.ctx,
		"postgres:17-alpine",
		tcpostgres.WithDatabase("test_db"),
		tcpostgres.WithUsername("test_user"),
		tcpostgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)

	dsn, err := s.container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	// Ambos esquemas en la misma base, cada uno con su tabla de versiones.
	s.Require().NoError(postgres.Migrate(migrations.Catalog, "catalog", dsn+"&x-migrations-table=catalog_migrations"))
	s.Require().NoError(postgres.Migrate(migrations.Routing, "routing", dsn+"&x-migrations-table=routing_migrations"))

	s.pool, err = postgres.NewPool(s.ctx, config.DBConfig{DatabaseURL: dsn})
	s.Require().NoError(err)
}

func (s *RepositorySuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *RepositorySuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, "TRUNCATE products, inventory_routes RESTART IDENTITY")
	s.Require().NoError(err)
}

func product(code int) *entity.Product {
	return &entity.Product{
		InventoryCode: code, Model: "X1", Vendor: "Lenovo", Price: decimal.RequireFromString("1250.50"),
		DepartmentID: 3, DepartmentName: "Sistemas", IsWorking: true, IsNewItem: true,
	}
}

// ── Productos ──

func (s *RepositorySuite) TestProducto_CreaYLee() {
	repo := postgres.NewProductRepository(s.pool)
	p := product(1001)
	s.Require().NoError(repo.Create(s.ctx, p))
	s.NotZero(p.ID)

	got, err := repo.GetByInventoryCode(s.ctx, 1001)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal("X1", got.Model)
	s.True(got.Price.Equal(decimal.RequireFromString("1250.50")), "el codec decimal conserva la precisión")

	missing, err := repo.GetByID(s.ctx, 999)
	s.NoError(err)
	s.Nil(missing, "inexistente retorna (nil, nil)")
	total, err := repo.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, total)
}

func (s *RepositorySuite) TestProducto_CodigoDeInventarioUnico() {
	repo := postgres.NewProductRepository(s.pool)
	s.Require().NoError(repo.Create(s.ctx, product(1001)))
	err := repo.Create(s.ctx, product(1001))
	s.ErrorIs(err, domain.ErrInventoryCodeTaken)
}

func (s *RepositorySuite) TestProducto_TrasladaYElimina() {
	repo := postgres.NewProductRepository(s.pool)
	p := product(1002)
	s.Require().NoError(repo.Create(s.ctx, p))

	s.Require().NoError(repo.MoveToDepartment(s.ctx, p.ID, 7, "Compras", "Luis"))
	got, err := repo.GetByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(7), got.DepartmentID)
	s.Equal("Luis", got.Worker)

	s.Require().NoError(repo.Delete(s.ctx, p.ID))
	s.ErrorIs(repo.Delete(s.ctx, p.ID), domain.ErrNotFound)
}

func (s *RepositorySuite) TestCatalogTx_ErrorRevierte() {
	tx := postgres.NewCatalogTxRunner(s.pool)
	boom := errors.New("publicación fallida")
	err := tx.Run(s.ctx, func(repo repository.ProductRepository) error {
		if err := repo.Create(s.ctx, product(1003)); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := postgres.NewProductRepository(s.pool).GetByInventoryCode(s.ctx, 1003)
	s.NoError(err)
	s.Nil(got, "la transacción se revierte")
}

// ── Rutas ──

func (s *RepositorySuite) creation(productID int64, source string) *entity.InventoryRoute {
	r, err := entity.NewInventoryRouteFromCreation(entity.CreationParams{
		Snapshot:       entity.NewProductSnapshot(productID, 1001, "X1", "", "", true),
		ToDepartmentID: 3,
		IsNewItem:      true,
		SourceEventID:  source,
	}, time.Now())
	s.Require().NoError(err)
	return r
}

func (s *RepositorySuite) transfer(productID int64) *entity.InventoryRoute {
	r, err := entity.NewTransferRoute(entity.TransferParams{
		Snapshot:         entity.NewProductSnapshot(productID, 1005, "ThinkPad", "", "", true),
		FromDepartmentID: 1,
		ToDepartmentID:   2,
	}, time.Now())
	s.Require().NoError(err)
	return r
}

func (s *RepositorySuite) TestRuta_EventoOrigenEsClaveDeIdempotencia() {
	repo := postgres.NewInventoryRouteRepository(s.pool)
	s.Require().NoError(repo.Create(s.ctx, s.creation(42, "msg-1")))

	err := repo.Create(s.ctx, s.creation(42, "msg-1"))
	s.ErrorIs(err, domain.ErrDuplicate)

	exists, err := repo.ExistsBySourceEvent(s.ctx, "msg-1")
	s.Require().NoError(err)
	s.True(exists)

	// Sin id de origen no hay restricción.
	s.NoError(repo.Create(s.ctx, s.transfer(42)))
	s.NoError(repo.Create(s.ctx, s.transfer(42)))
}

func (s *RepositorySuite) TestRuta_HistorialYPendientes() {
	repo := postgres.NewInventoryRouteRepository(s.pool)
	first := s.creation(5, "msg-a")
	s.Require().NoError(repo.Create(s.ctx, first))
	pending := s.transfer(5)
	s.Require().NoError(repo.Create(s.ctx, pending))

	history, err := repo.ListByProduct(s.ctx, 5)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(entity.RouteTypeNewInventory, history[0].Type)
	s.Equal(entity.RouteTypeTransfer, history[1].Type)
	s.Require().NotNil(history[1].FromDepartmentID)
	s.Equal(int64(1), *history[1].FromDepartmentID)

	list, err := repo.ListPending(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(pending.ID, list[0].ID)
	total, err := repo.CountPending(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, total)
}

func (s *RepositorySuite) TestRuta_CompletadaNoSeElimina() {
	repo := postgres.NewInventoryRouteRepository(s.pool)
	r := s.transfer(8)
	s.Require().NoError(repo.Create(s.ctx, r))

	s.Require().NoError(r.Complete(time.Now()))
	s.Require().NoError(repo.Update(s.ctx, r))

	got, err := repo.GetByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.True(got.IsCompleted)
	s.NotNil(got.CompletedAt)

	s.ErrorIs(repo.Delete(s.ctx, r.ID), domain.ErrRouteCompleted)
}

func (s *RepositorySuite) TestRuta_ConservaLosCambios() {
	repo := postgres.NewInventoryRouteRepository(s.pool)
	r, err := entity.NewUpdateRoute(entity.UpdateParams{
		Before:       entity.NewProductSnapshot(9, 1009, "X1", "", "", true),
		After:        entity.NewProductSnapshot(9, 1009, "X2", "", "", false),
		DepartmentID: 3,
	}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(repo.Create(s.ctx, r))

	got, err := repo.GetByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Len(got.Changes, 2)
	s.Equal("X2", got.Snapshot.Model())
}
