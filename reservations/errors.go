package reservations

import (
	"errors"
	"fmt"
)

var (
	ErrResourceNotFound          = errors.New("reservations: recurso no encontrado")
	ErrResourceInactive          = errors.New("reservations: el recurso no está disponible")
	ErrInvalidQuantity           = errors.New("reservations: cantidad inválida")
	ErrReservationNotFound       = errors.New("reservations: pedido no encontrado")
	ErrReservationNotCancellable = errors.New("reservations: el pedido no puede cancelarse en su estado actual")
	ErrReservationNotRefundable  = errors.New("reservations: el pedido no puede reembolsarse en su estado actual")
	ErrUnauthorized              = errors.New("reservations: no tienes permisos sobre este pedido")
	ErrPickupCodeMismatch        = errors.New("reservations: código de seguridad incorrecto")
	ErrAlreadyCompleted          = errors.New("reservations: este pedido ya fue entregado")

	// ErrTransactionConflict se propaga cuando la base de datos aborta la
	// transacción por conflicto de serialización; el llamador puede reintentar.
	ErrTransactionConflict = errors.New("reservations: conflicto de transacción")
)

// InsufficientCapacityError lleva las unidades restantes para que el cliente
// pueda mostrar "solo quedan N".
type InsufficientCapacityError struct {
	Remaining int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("reservations: solo quedan %d unidades disponibles", e.Remaining)
}

// InvalidTransitionError señala un cambio de estado no permitido por la
// máquina de estados.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("reservations: transición inválida de %s a %s", e.From, e.To)
}
