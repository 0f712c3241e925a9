// Package notifications avisa a los usuarios de los cambios de estado de sus
// pedidos. Es estrictamente informativo: ningún fallo aquí revierte una
// reserva ya confirmada.
package notifications

import (
	"context"

	"go.uber.org/zap"

	"github.com/estudio123455-hue/Tugood-tugo/reservations"
)

// eventPublisher es lo que el notificador necesita del transporte.
type eventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Notifier publica eventos de pedidos en el bus de mensajería.
type Notifier struct {
	pub    eventPublisher
	logger *zap.Logger
}

// NewNotifier crea una nueva instancia de Notifier.
func NewNotifier(pub eventPublisher, logger *zap.Logger) *Notifier {
	return &Notifier{pub: pub, logger: logger}
}

func (n *Notifier) publish(ctx context.Context, key string, payload map[string]any) {
	if err := n.pub.PublishJSON(ctx, key, payload); err != nil {
		n.logger.Warn("no se pudo publicar la notificación",
			zap.String("evento", key),
			zap.Error(err))
	}
}

// ReservationConfirmed anuncia un pedido nuevo.
func (n *Notifier) ReservationConfirmed(ctx context.Context, rv *reservations.Reservation, remaining int) {
	n.publish(ctx, "pedido.confirmado", map[string]any{
		"pedido_id":  rv.ID,
		"usuario_id": rv.RequesterID,
		"recurso_id": rv.ResourceID,
		"cantidad":   rv.Quantity,
		"total":      rv.Total,
		"disponible": remaining,
	})
}

// ReservationCancelled anuncia una cancelación.
func (n *Notifier) ReservationCancelled(ctx context.Context, rv *reservations.Reservation) {
	n.publish(ctx, "pedido.cancelado", map[string]any{
		"pedido_id":  rv.ID,
		"usuario_id": rv.RequesterID,
		"recurso_id": rv.ResourceID,
		"cantidad":   rv.Quantity,
	})
}

// ReservationRefunded anuncia un reembolso.
func (n *Notifier) ReservationRefunded(ctx context.Context, rv *reservations.Reservation) {
	n.publish(ctx, "pago.reembolsado", map[string]any{
		"pedido_id":  rv.ID,
		"usuario_id": rv.RequesterID,
		"total":      rv.Total,
	})
}

// ReservationCompleted anuncia una entrega confirmada.
func (n *Notifier) ReservationCompleted(ctx context.Context, rv *reservations.Reservation) {
	n.publish(ctx, "pedido.entregado", map[string]any{
		"pedido_id":  rv.ID,
		"usuario_id": rv.RequesterID,
	})
}

// NopNotifier descarta todos los avisos; se usa cuando no hay broker
// configurado y en pruebas.
type NopNotifier struct{}

func (NopNotifier) ReservationConfirmed(context.Context, *reservations.Reservation, int) {}
func (NopNotifier) ReservationCancelled(context.Context, *reservations.Reservation)      {}
func (NopNotifier) ReservationRefunded(context.Context, *reservations.Reservation)       {}
func (NopNotifier) ReservationCompleted(context.Context, *reservations.Reservation)      {}
