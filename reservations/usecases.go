package reservations

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultMaxPerRequest es el tope de unidades por pedido cuando la
// configuración no indica otro.
const DefaultMaxPerRequest = 10

// Actor identifica a quien invoca una operación ya autenticada. Admin salta
// la verificación de propiedad; la política de roles vive en el transporte.
type Actor struct {
	ID    string
	Admin bool
}

// Notifier recibe avisos de los cambios de estado una vez confirmada la
// transacción. Es puramente informativo: sus fallos no revierten nada.
type Notifier interface {
	ReservationConfirmed(ctx context.Context, rv *Reservation, remaining int)
	ReservationCancelled(ctx context.Context, rv *Reservation)
	ReservationRefunded(ctx context.Context, rv *Reservation)
	ReservationCompleted(ctx context.Context, rv *Reservation)
}

// ReserveInput es la entrada ya validada de una reserva.
type ReserveInput struct {
	ResourceID  string
	RequesterID string
	Quantity    int
	Notas       string
}

// ReserveResult devuelve la reserva creada junto con la capacidad restante
// del recurso tras el commit.
type ReserveResult struct {
	Reservation *Reservation
	Remaining   int
}

// Service es la única autoridad que muta cantidad_disponible y activo de un
// recurso. Toda verificación y descuento ocurre bajo el lock de fila.
type Service struct {
	repo          Repository
	notifier      Notifier
	logger        *zap.Logger
	tracer        trace.Tracer
	maxPerRequest int

	reservasConfirmadas metric.Int64Counter
	unidadesDevueltas   metric.Int64Counter
}

// NewService crea una nueva instancia del servicio de reservas.
func NewService(repo Repository, notifier Notifier, logger *zap.Logger, tracer trace.Tracer, meter metric.Meter, maxPerRequest int) *Service {
	if maxPerRequest <= 0 {
		maxPerRequest = DefaultMaxPerRequest
	}
	confirmadas, _ := meter.Int64Counter("reservas_confirmadas_total")
	devueltas, _ := meter.Int64Counter("unidades_devueltas_total")
	return &Service{
		repo:                repo,
		notifier:            notifier,
		logger:              logger,
		tracer:              tracer,
		maxPerRequest:       maxPerRequest,
		reservasConfirmadas: confirmadas,
		unidadesDevueltas:   devueltas,
	}
}

// Reserve descuenta capacidad y crea la reserva en una sola transacción.
// La lectura, la comparación y el descuento son atómicos respecto a cualquier
// otra operación sobre el mismo recurso gracias al SELECT FOR UPDATE.
func (s *Service) Reserve(ctx context.Context, in ReserveInput) (*ReserveResult, error) {
	ctx, span := s.tracer.Start(ctx, "reservations.reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("recurso_id", in.ResourceID),
		attribute.Int("cantidad", in.Quantity),
	)

	if in.Quantity <= 0 || in.Quantity > s.maxPerRequest {
		return nil, ErrInvalidQuantity
	}

	// 1. Inicia la transacción
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// 2. Obtiene el recurso con lock pesimista; la fila queda bloqueada
	// hasta el commit o rollback
	resource, err := s.repo.GetResourceForUpdate(ctx, tx, in.ResourceID)
	if err != nil {
		return nil, err
	}

	// 3. Reglas de negocio: recurso activo y con capacidad suficiente.
	// Un recurso cerrado se rechaza aunque muestre unidades restantes.
	if !resource.Active {
		return nil, ErrResourceInactive
	}
	if err := resource.Consume(in.Quantity); err != nil {
		return nil, err
	}

	// 4. Persiste el descuento y crea la reserva con el precio congelado
	if err := s.repo.SaveResource(ctx, tx, resource); err != nil {
		return nil, err
	}

	rv := NewReservation(resource, in.RequesterID, in.Quantity, in.Notas)
	if err := s.repo.CreateReservation(ctx, tx, rv); err != nil {
		return nil, err
	}

	// 5. Registro de movimiento para auditoría e idempotencia
	mv := NewCapacityMovement(resource.ID, rv.ID, -in.Quantity, MovementDebit)
	if err := s.repo.RecordMovement(ctx, tx, mv); err != nil {
		return nil, err
	}

	// 6. Commit
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.reservasConfirmadas.Add(ctx, 1, metric.WithAttributes(attribute.String("tipo", string(resource.Kind))))
	s.logger.Info("reserva confirmada",
		zap.String("pedido_id", rv.ID),
		zap.String("recurso_id", resource.ID),
		zap.Int("cantidad", in.Quantity),
		zap.Int("disponible", resource.RemainingCapacity))

	s.notifier.ReservationConfirmed(ctx, rv, resource.RemainingCapacity)

	return &ReserveResult{Reservation: rv, Remaining: resource.RemainingCapacity}, nil
}

// Cancel revierte una reserva pendiente o confirmada y devuelve sus unidades
// al recurso exactamente una vez.
func (s *Service) Cancel(ctx context.Context, reservationID string, actor Actor) (*Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservations.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("pedido_id", reservationID))

	rv, err := s.release(ctx, reservationID, actor, StatusCancelled)
	if err != nil {
		return nil, err
	}

	s.logger.Info("reserva cancelada", zap.String("pedido_id", rv.ID))
	s.notifier.ReservationCancelled(ctx, rv)
	return rv, nil
}

// Refund revierte una reserva pagada. El cobro externo se reversa después
// del commit, nunca antes: si la pasarela falla la capacidad ya quedó
// restaurada y el reintento es asunto del llamador.
func (s *Service) Refund(ctx context.Context, reservationID string, actor Actor) (*Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservations.refund")
	defer span.End()
	span.SetAttributes(attribute.String("pedido_id", reservationID))

	rv, err := s.release(ctx, reservationID, actor, StatusRefunded)
	if err != nil {
		return nil, err
	}

	s.logger.Info("reserva reembolsada", zap.String("pedido_id", rv.ID))
	s.notifier.ReservationRefunded(ctx, rv)
	return rv, nil
}

// release es el camino común de cancelación y reembolso: valida la
// transición, marca la reserva y acredita la capacidad bajo el mismo lock.
func (s *Service) release(ctx context.Context, reservationID string, actor Actor, to Status) (*Reservation, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rv, err := s.repo.GetReservationForUpdate(ctx, tx, reservationID)
	if err != nil {
		return nil, err
	}

	if !actor.Admin && rv.RequesterID != actor.ID {
		return nil, ErrUnauthorized
	}

	switch to {
	case StatusCancelled:
		if !rv.Status.Cancellable() {
			return nil, ErrReservationNotCancellable
		}
	case StatusRefunded:
		if rv.Status != StatusPaid {
			return nil, ErrReservationNotRefundable
		}
	}
	if !rv.Status.CanTransition(to) {
		return nil, &InvalidTransitionError{From: rv.Status, To: to}
	}

	// Idempotencia: si esta reserva ya acreditó capacidad alguna vez, la
	// máquina de estados debió impedir llegar aquí; el ledger es la última
	// barrera contra un doble crédito.
	credited, err := s.repo.MovementExists(ctx, tx, rv.ID, MovementCredit)
	if err != nil {
		return nil, err
	}
	if credited {
		s.logger.Warn("crédito de capacidad ya aplicado, se omite",
			zap.String("pedido_id", rv.ID))
		if to == StatusRefunded {
			return nil, ErrReservationNotRefundable
		}
		return nil, ErrReservationNotCancellable
	}

	resource, err := s.repo.GetResourceForUpdate(ctx, tx, rv.ResourceID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateReservationStatus(ctx, tx, rv.ID, to); err != nil {
		return nil, err
	}

	resource.Credit(rv.Quantity)
	if err := s.repo.SaveResource(ctx, tx, resource); err != nil {
		return nil, err
	}

	mv := NewCapacityMovement(resource.ID, rv.ID, rv.Quantity, MovementCredit)
	if err := s.repo.RecordMovement(ctx, tx, mv); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.unidadesDevueltas.Add(ctx, int64(rv.Quantity), metric.WithAttributes(attribute.String("motivo", string(to))))
	rv.Status = to
	return rv, nil
}

// MarkPaid registra que la pasarela cobró la reserva. No toca capacidad.
func (s *Service) MarkPaid(ctx context.Context, reservationID string) (*Reservation, error) {
	return s.transition(ctx, reservationID, StatusPaid)
}

// ConfirmPickup marca la entrega del pedido contra el código de seguridad
// que el cliente presenta en el comercio.
func (s *Service) ConfirmPickup(ctx context.Context, reservationID, pickupCode string) (*Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "reservations.confirm_pickup")
	defer span.End()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rv, err := s.repo.GetReservationForUpdate(ctx, tx, reservationID)
	if err != nil {
		return nil, err
	}

	if rv.PickupCode != pickupCode {
		return nil, ErrPickupCodeMismatch
	}
	if rv.Status == StatusCompleted {
		return nil, ErrAlreadyCompleted
	}
	if !rv.Status.CanTransition(StatusCompleted) {
		return nil, &InvalidTransitionError{From: rv.Status, To: StatusCompleted}
	}

	if err := s.repo.UpdateReservationStatus(ctx, tx, rv.ID, StatusCompleted); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	rv.Status = StatusCompleted
	s.logger.Info("pedido entregado", zap.String("pedido_id", rv.ID))
	s.notifier.ReservationCompleted(ctx, rv)
	return rv, nil
}

func (s *Service) transition(ctx context.Context, reservationID string, to Status) (*Reservation, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rv, err := s.repo.GetReservationForUpdate(ctx, tx, reservationID)
	if err != nil {
		return nil, err
	}
	if !rv.Status.CanTransition(to) {
		return nil, &InvalidTransitionError{From: rv.Status, To: to}
	}
	if err := s.repo.UpdateReservationStatus(ctx, tx, rv.ID, to); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	rv.Status = to
	return rv, nil
}

// Get devuelve una reserva por id, verificando propiedad.
func (s *Service) Get(ctx context.Context, reservationID string, actor Actor) (*Reservation, error) {
	rv, err := s.repo.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && rv.RequesterID != actor.ID {
		return nil, ErrUnauthorized
	}
	return rv, nil
}

// ListByRequester lista los pedidos del usuario autenticado.
func (s *Service) ListByRequester(ctx context.Context, requesterID string, status Status, limit, offset int) ([]Reservation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByRequester(ctx, requesterID, status, limit, offset)
}

// ListByOwner lista los pedidos recibidos por un comercio.
func (s *Service) ListByOwner(ctx context.Context, ownerID string, status Status, limit, offset int) ([]Reservation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByOwner(ctx, ownerID, status, limit, offset)
}

// Stats resume los pedidos del usuario autenticado.
func (s *Service) Stats(ctx context.Context, requesterID string) (*RequesterStats, error) {
	stats, err := s.repo.StatsByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}
