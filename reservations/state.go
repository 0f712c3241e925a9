package reservations

// Status es el estado de una reserva. Los valores coinciden con los que la
// API expone desde el primer día.
type Status string

const (
	StatusPending   Status = "pendiente"
	StatusConfirmed Status = "confirmado"
	StatusPaid      Status = "pagado"
	StatusCancelled Status = "cancelado"
	StatusRefunded  Status = "reembolsado"
	StatusCompleted Status = "entregado"
)

// transitions define la máquina de estados de una reserva. Toda escritura de
// estado pasa por CanTransition antes de tocar la base de datos.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusPaid, StatusCancelled},
	StatusConfirmed: {StatusPaid, StatusCancelled, StatusCompleted},
	StatusPaid:      {StatusRefunded, StatusCompleted},
	StatusCancelled: {},
	StatusRefunded:  {},
	StatusCompleted: {},
}

// CanTransition indica si el paso de s a destino está permitido.
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ConsumesCapacity indica si una reserva en este estado retiene unidades del
// recurso. Solo cancelado y reembolsado las devuelven.
func (s Status) ConsumesCapacity() bool {
	return s != StatusCancelled && s != StatusRefunded
}

// Cancellable indica si la reserva todavía puede cancelarse. Una reserva
// pagada se revierte vía reembolso, no vía cancelación.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}
