// Package migrations embebe el esquema SQL de cada servicio. Cada servicio tiene su propia base.
package migrations

import "embed"

//go:embed catalog/*.sql
var Catalog embed.FS

//go:embed routing/*.sql
var Routing embed.FS
