package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrInventoryCodeTaken = fmt.Errorf("%w: el código de inventario ya está en uso", ErrDuplicate)
	ErrMalformedEvent     = errors.New("evento mal formado")
	ErrNoChanges          = errors.New("sin cambios semánticos")

	// Reglas del ledger de rutas.
	ErrRouteAlreadyCompleted = fmt.Errorf("%w: la ruta ya fue completada", ErrConflict)
	ErrRouteCompleted        = fmt.Errorf("%w: una ruta completada no se puede modificar ni eliminar", ErrConflict)
)

// ApprovalRequiredError indica que la operación no se aplicó y quedó registrada como
// solicitud de aprobación. El llamador decide qué hacer con RequestID (HTTP 202).
type ApprovalRequiredError struct {
	RequestID   string
	RequestType string
}

func (e *ApprovalRequiredError) Error() string {
	return fmt.Sprintf("la operación %s requiere aprobación (solicitud %s)", e.RequestType, e.RequestID)
}

// AsApprovalRequired extrae el ApprovalRequiredError de la cadena de errores, si existe.
func AsApprovalRequired(err error) (*ApprovalRequiredError, bool) {
	var target *ApprovalRequiredError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsBusinessRule indica si el error es de validación o regla de negocio (no reintentable).
func IsBusinessRule(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrMalformedEvent) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden)
}
