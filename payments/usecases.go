package payments

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/estudio123455-hue/Tugood-tugo/reservations"
)

var (
	ErrInvalidMetodo = errors.New("payments: método de pago inválido")
	ErrAlreadyPaid   = errors.New("payments: el pedido ya tiene un pago asociado")
	ErrNotPayable    = errors.New("payments: el pedido no puede ser pagado en su estado actual")
	ErrChargeFailed  = errors.New("payments: el cobro fue rechazado por la pasarela")
	ErrNotRefundable = errors.New("payments: el pago no puede ser reembolsado")
)

// ReservationService es la porción del núcleo de reservas que este paquete
// necesita: consultar, marcar pagado y reembolsar.
type ReservationService interface {
	Get(ctx context.Context, reservationID string, actor reservations.Actor) (*reservations.Reservation, error)
	MarkPaid(ctx context.Context, reservationID string) (*reservations.Reservation, error)
	Refund(ctx context.Context, reservationID string, actor reservations.Actor) (*reservations.Reservation, error)
}

// Service procesa cobros y reembolsos. El cobro es posterior y nunca atómico
// con la reserva: si la pasarela rechaza, la reserva queda intacta y el
// cliente decide cancelarla o reintentar.
type Service struct {
	repo    Repository
	resSvc  ReservationService
	gateway Gateway
	logger  *zap.Logger
}

// NewService crea una nueva instancia del servicio de pagos.
func NewService(repo Repository, resSvc ReservationService, gateway Gateway, logger *zap.Logger) *Service {
	return &Service{repo: repo, resSvc: resSvc, gateway: gateway, logger: logger}
}

// ProcessInput es la entrada validada de un cobro.
type ProcessInput struct {
	ReservationID string
	RequesterID   string
	Metodo        string
}

// Process cobra un pedido pendiente o confirmado del usuario.
func (s *Service) Process(ctx context.Context, in ProcessInput) (*Payment, error) {
	if !MetodoValido(in.Metodo) {
		return nil, ErrInvalidMetodo
	}

	actor := reservations.Actor{ID: in.RequesterID}
	rv, err := s.resSvc.Get(ctx, in.ReservationID, actor)
	if err != nil {
		return nil, err
	}
	if rv.Status != reservations.StatusPending && rv.Status != reservations.StatusConfirmed {
		return nil, ErrNotPayable
	}

	// Un pago por pedido.
	if _, err := s.repo.GetByReservation(ctx, rv.ID); err == nil {
		return nil, ErrAlreadyPaid
	} else if !errors.Is(err, ErrPaymentNotFound) {
		return nil, err
	}

	referencia, err := s.gateway.Charge(ctx, rv.ID, in.Metodo, rv.Total)
	if err != nil {
		s.logger.Warn("cobro rechazado",
			zap.String("pedido_id", rv.ID),
			zap.String("metodo", in.Metodo),
			zap.Error(err))
		return nil, ErrChargeFailed
	}

	p := NewPayment(rv.ID, in.Metodo, rv.Total, referencia)
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	if _, err := s.resSvc.MarkPaid(ctx, rv.ID); err != nil {
		return nil, err
	}

	s.logger.Info("pago procesado",
		zap.String("pago_id", p.ID),
		zap.String("pedido_id", rv.ID),
		zap.Float64("monto", p.Monto),
		zap.String("referencia", referencia))
	return p, nil
}

// Refund reembolsa un pago completado. Primero se confirma la transacción
// que restaura capacidad y marca el pedido reembolsado; la reversa en la
// pasarela va después del commit, y su fallo no deshace nada: se registra
// para reintento manual.
func (s *Service) Refund(ctx context.Context, paymentID string, actor reservations.Actor, motivo string) (*Payment, error) {
	p, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Estado != EstadoCompletado {
		return nil, ErrNotRefundable
	}

	if _, err := s.resSvc.Refund(ctx, p.ReservationID, actor); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, p.ID, EstadoReembolsado); err != nil {
		return nil, err
	}
	p.Estado = EstadoReembolsado

	if err := s.gateway.Reverse(ctx, p.ReferenciaExterna, p.Monto); err != nil {
		s.logger.Error("reversa en pasarela falló; capacidad ya restaurada, requiere reintento",
			zap.String("pago_id", p.ID),
			zap.String("referencia", p.ReferenciaExterna),
			zap.Error(err))
	}

	s.logger.Info("reembolso procesado",
		zap.String("pago_id", p.ID),
		zap.String("motivo", motivo))
	return p, nil
}

// GetForReservation devuelve el pago de un pedido del usuario.
func (s *Service) GetForReservation(ctx context.Context, reservationID string, actor reservations.Actor) (*Payment, error) {
	// Verifica propiedad del pedido antes de exponer el pago.
	if _, err := s.resSvc.Get(ctx, reservationID, actor); err != nil {
		return nil, err
	}
	return s.repo.GetByReservation(ctx, reservationID)
}

// History lista los pagos del usuario autenticado.
func (s *Service) History(ctx context.Context, f HistoryFilter) ([]Payment, error) {
	return s.repo.History(ctx, f)
}

// GlobalStats resume los pagos de la plataforma en un rango de fechas.
func (s *Service) GlobalStats(ctx context.Context, desde, hasta time.Time) (*Stats, error) {
	return s.repo.GlobalStats(ctx, desde, hasta)
}
