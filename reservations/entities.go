package reservations

import (
	"time"

	"github.com/google/uuid"
)

// ResourceKind distingue los dos tipos de oferta publicables por un comercio.
type ResourceKind string

const (
	KindPack ResourceKind = "pack"
	KindSlot ResourceKind = "slot"
)

// Resource representa una oferta vendible con capacidad finita (pack o franja).
// remaining_capacity y active se mutan únicamente a través del Service.
type Resource struct {
	ID                string       `json:"id" db:"id"`
	OwnerID           string       `json:"comercio_id" db:"comercio_id"`
	Kind              ResourceKind `json:"tipo" db:"tipo"`
	Titulo            string       `json:"titulo" db:"titulo"`
	Descripcion       string       `json:"descripcion,omitempty" db:"descripcion"`
	TotalCapacity     int          `json:"cantidad" db:"cantidad"`
	RemainingCapacity int          `json:"cantidad_disponible" db:"cantidad_disponible"`
	UnitPrice         float64      `json:"precio_descuento" db:"precio_descuento"`
	OriginalPrice     float64      `json:"precio_original,omitempty" db:"precio_original"`
	Active            bool         `json:"activo" db:"activo"`
	ClosedByOwner     bool         `json:"cerrado_por_comercio" db:"cerrado_por_comercio"`
	WindowStart       time.Time    `json:"ventana_inicio" db:"ventana_inicio"`
	WindowEnd         time.Time    `json:"ventana_fin" db:"ventana_fin"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at" db:"updated_at"`
}

// CanReserve indica si el recurso admite una reserva de q unidades.
func (r *Resource) CanReserve(q int) bool {
	return r.Active && r.RemainingCapacity >= q
}

// Consume descuenta q unidades y cierra el recurso al agotarse.
func (r *Resource) Consume(q int) error {
	if q <= 0 {
		return ErrInvalidQuantity
	}
	if r.RemainingCapacity < q {
		return &InsufficientCapacityError{Remaining: r.RemainingCapacity}
	}
	r.RemainingCapacity -= q
	if r.RemainingCapacity == 0 {
		r.Active = false
	}
	r.touch()
	return nil
}

// Credit devuelve q unidades al recurso. Reactiva solo los cierres
// automáticos por agotamiento: un cierre manual del comercio se respeta.
func (r *Resource) Credit(q int) {
	r.RemainingCapacity += q
	if r.RemainingCapacity > r.TotalCapacity {
		r.RemainingCapacity = r.TotalCapacity
	}
	if !r.Active && !r.ClosedByOwner {
		r.Active = true
	}
	r.touch()
}

func (r *Resource) touch() {
	r.UpdatedAt = time.Now().UTC()
}

// Reservation representa el compromiso de un cliente sobre un recurso
// (el "pedido" del producto).
type Reservation struct {
	ID                     string    `json:"id" db:"id"`
	ResourceID             string    `json:"recurso_id" db:"recurso_id"`
	RequesterID            string    `json:"usuario_id" db:"usuario_id"`
	Quantity               int       `json:"cantidad" db:"cantidad"`
	UnitPriceAtReservation float64   `json:"precio_unitario" db:"precio_unitario"`
	Total                  float64   `json:"total" db:"total"`
	Status                 Status    `json:"estado" db:"estado"`
	PickupCode             string    `json:"codigo_qr" db:"codigo_qr"`
	Notas                  string    `json:"notas,omitempty" db:"notas"`
	CreatedAt              time.Time `json:"fecha_pedido" db:"created_at"`
	UpdatedAt              time.Time `json:"updated_at" db:"updated_at"`
}

// NewReservation crea una nueva reserva confirmada con el precio del recurso
// congelado al momento de la compra.
func NewReservation(resource *Resource, requesterID string, quantity int, notas string) *Reservation {
	now := time.Now().UTC()
	return &Reservation{
		ID:                     uuid.New().String(),
		ResourceID:             resource.ID,
		RequesterID:            requesterID,
		Quantity:               quantity,
		UnitPriceAtReservation: resource.UnitPrice,
		Total:                  resource.UnitPrice * float64(quantity),
		Status:                 StatusConfirmed,
		PickupCode:             uuid.New().String(),
		Notas:                  notas,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// CapacityMovement registra cada débito o crédito de capacidad dentro de la
// misma transacción que lo produjo; sirve de auditoría y de llave de
// idempotencia para las compensaciones.
type CapacityMovement struct {
	ID            string    `json:"id" db:"id"`
	ResourceID    string    `json:"recurso_id" db:"recurso_id"`
	ReservationID string    `json:"pedido_id" db:"pedido_id"`
	Change        int       `json:"cantidad" db:"cantidad"`
	Type          string    `json:"tipo" db:"tipo"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

const (
	MovementDebit  = "debito"
	MovementCredit = "credito"
)

// NewCapacityMovement crea un movimiento de capacidad para una reserva.
func NewCapacityMovement(resourceID, reservationID string, change int, movType string) *CapacityMovement {
	return &CapacityMovement{
		ID:            uuid.New().String(),
		ResourceID:    resourceID,
		ReservationID: reservationID,
		Change:        change,
		Type:          movType,
		CreatedAt:     time.Now().UTC(),
	}
}

// RequesterStats resume los pedidos de un usuario.
type RequesterStats struct {
	TotalPedidos        int     `json:"total_pedidos"`
	PedidosCompletados  int     `json:"pedidos_completados"`
	PedidosCancelados   int     `json:"pedidos_cancelados"`
	TotalAhorrado       float64 `json:"total_ahorrado"`
	PromedioPorPedido   float64 `json:"promedio_por_pedido"`
}
