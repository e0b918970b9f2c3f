package ports

import (
	"context"
	"time"
)

// Notification mensaje dirigido a un usuario.
type Notification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Reference  string    `json:"reference,omitempty"` // id de ruta o de solicitud
	OccurredAt time.Time `json:"occurredAt"`
}

// Pusher entrega notificaciones al canal del usuario.
type Pusher interface {
	Push(ctx context.Context, n Notification) error
}

// Deduplicator marca claves ya procesadas. Claim retorna false si la clave ya existía.
type Deduplicator interface {
	Claim(ctx context.Context, key string) (bool, error)
	// Forget libera la clave para que un reintento vuelva a procesarla.
	Forget(ctx context.Context, key string) error
}
