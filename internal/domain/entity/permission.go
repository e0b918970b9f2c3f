package entity

// Permisos de ejecución directa. Quien no los tiene pasa por el flujo de aprobación.
const (
	PermProductsCreateDirect   = "products.create.direct"
	PermProductsUpdateDirect   = "products.update.direct"
	PermProductsDeleteDirect   = "products.delete.direct"
	PermProductsTransferDirect = "products.transfer.direct"
	PermRoutesUpdateDirect     = "routes.update.direct"
	PermRoutesDeleteDirect     = "routes.delete.direct"
)

// DirectPermissions conjunto completo que recibe la credencial de sistema.
func DirectPermissions() []string {
	return []string{
		PermProductsCreateDirect,
		PermProductsUpdateDirect,
		PermProductsDeleteDirect,
		PermProductsTransferDirect,
		PermRoutesUpdateDirect,
		PermRoutesDeleteDirect,
	}
}
