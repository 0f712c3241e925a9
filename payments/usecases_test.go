package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/estudio123455-hue/Tugood-tugo/reservations"
)

// MockRepository simula el repositorio de pagos.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreatePayment(ctx context.Context, p *Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepository) GetPayment(ctx context.Context, id string) (*Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payment), args.Error(1)
}

func (m *MockRepository) GetByReservation(ctx context.Context, reservationID string) (*Payment, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Payment), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id, estado string) error {
	args := m.Called(ctx, id, estado)
	return args.Error(0)
}

func (m *MockRepository) History(ctx context.Context, f HistoryFilter) ([]Payment, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Payment), args.Error(1)
}

func (m *MockRepository) GlobalStats(ctx context.Context, desde, hasta time.Time) (*Stats, error) {
	args := m.Called(ctx, desde, hasta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Stats), args.Error(1)
}

// MockReservationService simula el núcleo de reservas.
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) Get(ctx context.Context, reservationID string, actor reservations.Actor) (*reservations.Reservation, error) {
	args := m.Called(ctx, reservationID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservations.Reservation), args.Error(1)
}

func (m *MockReservationService) MarkPaid(ctx context.Context, reservationID string) (*reservations.Reservation, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservations.Reservation), args.Error(1)
}

func (m *MockReservationService) Refund(ctx context.Context, reservationID string, actor reservations.Actor) (*reservations.Reservation, error) {
	args := m.Called(ctx, reservationID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservations.Reservation), args.Error(1)
}

// MockGateway simula la pasarela externa.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Charge(ctx context.Context, reservationID, metodo string, monto float64) (string, error) {
	args := m.Called(ctx, reservationID, metodo, monto)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) Reverse(ctx context.Context, referencia string, monto float64) error {
	args := m.Called(ctx, referencia, monto)
	return args.Error(0)
}

func confirmedReservation() *reservations.Reservation {
	return &reservations.Reservation{
		ID:          "pedido-1",
		RequesterID: "usuario-789",
		Quantity:    2,
		Total:       19.98,
		Status:      reservations.StatusConfirmed,
	}
}

func TestProcess(t *testing.T) {
	// Arrange
	repo := new(MockRepository)
	resSvc := new(MockReservationService)
	gateway := new(MockGateway)
	rv := confirmedReservation()

	resSvc.On("Get", mock.Anything, "pedido-1", reservations.Actor{ID: "usuario-789"}).Return(rv, nil)
	repo.On("GetByReservation", mock.Anything, "pedido-1").Return(nil, ErrPaymentNotFound)
	gateway.On("Charge", mock.Anything, "pedido-1", "nequi", 19.98).Return("NEQ123456", nil)
	repo.On("CreatePayment", mock.Anything, mock.Anything).Return(nil)
	resSvc.On("MarkPaid", mock.Anything, "pedido-1").Return(rv, nil)

	svc := NewService(repo, resSvc, gateway, zap.NewNop())

	// Act
	p, err := svc.Process(context.Background(), ProcessInput{
		ReservationID: "pedido-1",
		RequesterID:   "usuario-789",
		Metodo:        "nequi",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, EstadoCompletado, p.Estado)
	assert.Equal(t, "NEQ123456", p.ReferenciaExterna)
	assert.Equal(t, 19.98, p.Monto)
	repo.AssertExpectations(t)
	resSvc.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestProcessInvalidMetodo(t *testing.T) {
	svc := NewService(new(MockRepository), new(MockReservationService), new(MockGateway), zap.NewNop())

	for _, metodo := range []string{"efectivo", "paypal", ""} {
		_, err := svc.Process(context.Background(), ProcessInput{
			ReservationID: "pedido-1",
			RequesterID:   "usuario-789",
			Metodo:        metodo,
		})
		assert.ErrorIs(t, err, ErrInvalidMetodo, "metodo %q", metodo)
	}
}

func TestProcessNotPayable(t *testing.T) {
	// Arrange: el pedido ya está cancelado
	repo := new(MockRepository)
	resSvc := new(MockReservationService)
	gateway := new(MockGateway)
	rv := confirmedReservation()
	rv.Status = reservations.StatusCancelled
	resSvc.On("Get", mock.Anything, "pedido-1", mock.Anything).Return(rv, nil)
	svc := NewService(repo, resSvc, gateway, zap.NewNop())

	// Act
	_, err := svc.Process(context.Background(), ProcessInput{
		ReservationID: "pedido-1",
		RequesterID:   "usuario-789",
		Metodo:        "tarjeta",
	})

	// Assert
	assert.ErrorIs(t, err, ErrNotPayable)
	gateway.AssertNotCalled(t, "Charge")
}

func TestProcessAlreadyPaid(t *testing.T) {
	// Arrange: ya existe un pago para el pedido
	repo := new(MockRepository)
	resSvc := new(MockReservationService)
	gateway := new(MockGateway)
	resSvc.On("Get", mock.Anything, "pedido-1", mock.Anything).Return(confirmedReservation(), nil)
	repo.On("GetByReservation", mock.Anything, "pedido-1").Return(&Payment{ID: "pago-1"}, nil)
	svc := NewService(repo, resSvc, gateway, zap.NewNop())

	// Act
	_, err := svc.Process(context.Background(), ProcessInput{
		ReservationID: "pedido-1",
		RequesterID:   "usuario-789",
		Metodo:        "tarjeta",
	})

	// Assert
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	gateway.AssertNotCalled(t, "Charge")
}

func TestProcessChargeRejectedLeavesReservation(t *testing.T) {
	// Arrange: la pasarela rechaza el cobro
	repo := new(MockRepository)
	resSvc := new(MockReservationService)
	gateway := new(MockGateway)
	resSvc.On("Get", mock.Anything, "pedido-1", mock.Anything).Return(confirmedReservation(), nil)
	repo.On("GetByReservation", mock.Anything, "pedido-1").Return(nil, ErrPaymentNotFound)
	gateway.On("Charge", mock.Anything, "pedido-1", "tarjeta", 19.98).Return("", errors.New("fondos insuficientes"))
	svc := NewService(repo, resSvc, gateway, zap.NewNop())

	// Act
	_, err := svc.Process(context.Background(), ProcessInput{
		ReservationID: "pedido-1",
		RequesterID:   "usuario-789",
		Metodo:        "tarjeta",
	})

	// Assert: no se registra pago ni se marca el pedido
	assert.ErrorIs(t, err, ErrChargeFailed)
	repo.AssertNotCalled(t, "CreatePayment")
	resSvc.AssertNotCalled(t, "MarkPaid")
}

func TestRefund(t *testing.T) {
	// Arrange
	repo := new(MockRepository)
	resSvc := new(MockReservationService)
	gateway := new(MockGateway)
	p := &Payment{
		ID:                "pago-1",
		ReservationID:     "pedido-1",
		Monto:             19.98,
		Estado:            EstadoCompletado,
		ReferenciaExterna: "NEQ123456",
	}
	admin := reservations.Actor{ID: "admin-1", Admin: true}

	repo.On("GetPayment", mock.Anything, "pago-1").Return(p, nil)
	resSvc.On("Refund", mock.Anything, "pedido-1", admin).Return(&reservations.Reservation{ID: "pedido-1"}, nil)
	repo.On("UpdateStatus", mock.Anything, "pago-1", EstadoReembolsado).Return(nil)
	gateway.On("Reverse", mock.Anything, "NEQ123456", 19.98).Return(nil)

	svc := NewService(repo, resSvc, gateway, zap.NewNop())

	// Act
	refunded, err := svc.Refund(context.Background(), "pago-1", admin, "producto en mal estado")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, EstadoReembolsado, refunded.Estado)
	repo.AssertExpectations(t)
	resSvc.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestRefundNotCompletedPayment(t *testing.T) {
	repo := new(MockRepository)
	resSvc := new(MockReservationService)
	p := &Payment{ID: "pago-1", ReservationID: "pedido-1", Estado: EstadoReembolsado}
	repo.On("GetPayment", mock.Anything, "pago-1").Return(p, nil)
	svc := NewService(repo, resSvc, new(MockGateway), zap.NewNop())

	_, err := svc.Refund(context.Background(), "pago-1", reservations.Actor{ID: "admin-1", Admin: true}, "doble clic")

	assert.ErrorIs(t, err, ErrNotRefundable)
	resSvc.AssertNotCalled(t, "Refund")
}

func TestRefundGatewayFailureKeepsRefund(t *testing.T) {
	// Arrange: la reversa en la pasarela falla después del commit
	repo := new(MockRepository)
	resSvc := new(MockReservationService)
	gateway := new(MockGateway)
	p := &Payment{
		ID:                "pago-1",
		ReservationID:     "pedido-1",
		Monto:             19.98,
		Estado:            EstadoCompletado,
		ReferenciaExterna: "NEQ123456",
	}
	admin := reservations.Actor{ID: "admin-1", Admin: true}

	repo.On("GetPayment", mock.Anything, "pago-1").Return(p, nil)
	resSvc.On("Refund", mock.Anything, "pedido-1", admin).Return(&reservations.Reservation{ID: "pedido-1"}, nil)
	repo.On("UpdateStatus", mock.Anything, "pago-1", EstadoReembolsado).Return(nil)
	gateway.On("Reverse", mock.Anything, "NEQ123456", 19.98).Return(errors.New("timeout"))

	svc := NewService(repo, resSvc, gateway, zap.NewNop())

	// Act
	refunded, err := svc.Refund(context.Background(), "pago-1", admin, "producto en mal estado")

	// Assert: el reembolso queda firme; la reversa se reintenta aparte
	require.NoError(t, err)
	assert.Equal(t, EstadoReembolsado, refunded.Estado)
}

func TestRefundRejectedByReservations(t *testing.T) {
	// Arrange: el núcleo de reservas rechaza el reembolso
	repo := new(MockRepository)
	resSvc := new(MockReservationService)
	gateway := new(MockGateway)
	p := &Payment{ID: "pago-1", ReservationID: "pedido-1", Estado: EstadoCompletado}
	admin := reservations.Actor{ID: "admin-1", Admin: true}

	repo.On("GetPayment", mock.Anything, "pago-1").Return(p, nil)
	resSvc.On("Refund", mock.Anything, "pedido-1", admin).Return(nil, reservations.ErrReservationNotRefundable)

	svc := NewService(repo, resSvc, gateway, zap.NewNop())

	// Act
	_, err := svc.Refund(context.Background(), "pago-1", admin, "tarde")

	// Assert: ni el pago ni la pasarela se tocan
	assert.ErrorIs(t, err, reservations.ErrReservationNotRefundable)
	repo.AssertNotCalled(t, "UpdateStatus")
	gateway.AssertNotCalled(t, "Reverse")
}

func TestMetodoValido(t *testing.T) {
	for _, id := range []string{"tarjeta", "nequi", "daviplata", "pse"} {
		assert.True(t, MetodoValido(id), "metodo %s", id)
	}
	// paypal existe pero está inactivo
	assert.False(t, MetodoValido("paypal"))
	assert.False(t, MetodoValido("efectivo"))
}

func TestSimulatedGatewayReferences(t *testing.T) {
	g := SimulatedGateway{}

	ref, err := g.Charge(context.Background(), "pedido-1", "nequi", 19.98)

	require.NoError(t, err)
	assert.NotEmpty(t, ref)
	assert.Contains(t, ref, "NEQ")
}
