package ports

import "slices"

// Actor usuario (o credencial de sistema) que origina una operación.
type Actor struct {
	ID          string
	Name        string
	Role        string
	Permissions []string
	System      bool
}

// Can indica si el actor tiene el permiso de ejecución directa.
func (a Actor) Can(permission string) bool {
	return slices.Contains(a.Permissions, permission)
}
