package notification

import (
	"fmt"

	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
	"github.com/jhoicas/inventario-eventos/internal/domain/event"
)

var requestLabels = map[string]string{
	entity.RequestProductCreate:   "alta de producto",
	entity.RequestProductUpdate:   "actualización de producto",
	entity.RequestProductDelete:   "baja de producto",
	entity.RequestProductTransfer: "traslado de producto",
	entity.RequestRouteUpdate:     "edición de ruta",
	entity.RequestRouteDelete:     "eliminación de ruta",
}

func requestLabel(t string) string {
	if l, ok := requestLabels[t]; ok {
		return l
	}
	if t == "" {
		return "operación"
	}
	return t
}

func productLabel(code int, model string) string {
	if model == "" {
		return fmt.Sprintf("#%d", code)
	}
	return fmt.Sprintf("#%d (%s)", code, model)
}

func department(id int64, name string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("departamento %d", id)
}

// routeMessage título y cuerpo de un aviso de ruta.
func routeMessage(key string, n event.RouteNotice) (string, string) {
	product := productLabel(n.InventoryCode, n.Model)
	switch key {
	case event.KeyRouteCompleted:
		return "Traslado completado",
			fmt.Sprintf("El producto %s ya está en %s.", product, department(n.ToDepartmentID, n.ToDepartmentName))
	case event.KeyRouteDeleted:
		return "Traslado eliminado",
			fmt.Sprintf("Se eliminó el traslado pendiente del producto %s.", product)
	}
	switch n.RouteType {
	case entity.RouteTypeTransfer:
		return "Traslado solicitado",
			fmt.Sprintf("El producto %s tiene un traslado pendiente hacia %s.", product, department(n.ToDepartmentID, n.ToDepartmentName))
	case entity.RouteTypeNewInventory:
		return "Ingreso registrado",
			fmt.Sprintf("El producto %s ingresó al inventario en %s.", product, department(n.ToDepartmentID, n.ToDepartmentName))
	case entity.RouteTypeRemoval:
		return "Baja registrada", fmt.Sprintf("El producto %s fue dado de baja.", product)
	default:
		return "Cambio registrado", fmt.Sprintf("Se registró un cambio en el producto %s.", product)
	}
}

// approvalMessage título y cuerpo de un aviso de aprobación. Los rechazos y fallos llevan el motivo.
func approvalMessage(key string, n event.ApprovalNotice) (string, string) {
	label := requestLabel(n.RequestType)
	reason := n.Reason
	if reason == "" {
		reason = "sin motivo informado"
	}
	switch key {
	case event.KeyApprovalCreated:
		return "Solicitud enviada", fmt.Sprintf("Tu solicitud de %s quedó pendiente de aprobación.", label)
	case event.KeyApprovalApproved:
		by := n.ApprovedByName
		if by == "" {
			by = "un administrador"
		}
		return "Solicitud aprobada", fmt.Sprintf("Tu solicitud de %s fue aprobada por %s.", label, by)
	case event.KeyApprovalRejected:
		return "Solicitud rechazada", fmt.Sprintf("Tu solicitud de %s fue rechazada: %s.", label, reason)
	case event.KeyApprovalExecuted:
		return "Solicitud ejecutada", fmt.Sprintf("La %s aprobada se aplicó correctamente.", label)
	case event.KeyApprovalFailed:
		return "Solicitud fallida", fmt.Sprintf("La %s aprobada no pudo aplicarse: %s.", label, reason)
	default:
		return "Solicitud actualizada", fmt.Sprintf("Tu solicitud de %s cambió de estado.", label)
	}
}
