package postgres

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrate aplica las migraciones pendientes de dir (dentro de fsys) sobre dsn.
// Sin cambios pendientes no es error.
func Migrate(fsys fs.FS, dir, dsn string) error {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("migraciones: abrir %s: %w", dir, err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("migraciones: inicializar: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migraciones: aplicar: %w", err)
	}
	return nil
}
