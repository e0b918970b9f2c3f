package bus

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "inventario-eventos/bus"

// injectTrace copia el contexto de traza activo a las cabeceras del mensaje.
func injectTrace(ctx context.Context, headers map[string]string) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))
}

// startConsumeSpan continúa la traza del publicador a partir de las cabeceras.
func startConsumeSpan(ctx context.Context, d Delivery, queue string) (context.Context, trace.Span) {
	if len(d.Headers) > 0 {
		ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(d.Headers))
	}
	return otel.Tracer(tracerName).Start(ctx, "bus.consume "+d.RoutingKey,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination", queue),
			attribute.String("messaging.routing_key", d.RoutingKey),
			attribute.String("messaging.message_id", d.MessageID),
		),
	)
}
