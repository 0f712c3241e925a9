package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/estudio123455-hue/Tugood-tugo/reservations"
)

// MockRepository simula el repositorio de catálogo.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateResource(ctx context.Context, res *reservations.Resource) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

func (m *MockRepository) GetResource(ctx context.Context, id string) (*reservations.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservations.Resource), args.Error(1)
}

func (m *MockRepository) ListResources(ctx context.Context, f Filter) ([]reservations.Resource, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reservations.Resource), args.Error(1)
}

func (m *MockRepository) UpdateDetails(ctx context.Context, res *reservations.Resource) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

func (m *MockRepository) CloseResource(ctx context.Context, id, ownerID string) (*reservations.Resource, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservations.Resource), args.Error(1)
}

func validPackInput() CreatePackInput {
	now := time.Now().UTC()
	return CreatePackInput{
		OwnerID:        "comercio-456",
		Titulo:         "Pack sorpresa",
		Descripcion:    "Lo que quedó del día",
		PrecioOriginal: 25.00,
		PrecioOferta:   9.99,
		Cantidad:       5,
		VentanaInicio:  now.Add(1 * time.Hour),
		VentanaFin:     now.Add(3 * time.Hour),
	}
}

func TestCreatePack(t *testing.T) {
	// Arrange
	repo := new(MockRepository)
	repo.On("CreateResource", mock.Anything, mock.Anything).Return(nil)
	svc := NewService(repo, zap.NewNop())

	// Act
	res, err := svc.CreatePack(context.Background(), validPackInput())

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, reservations.KindPack, res.Kind)
	assert.Equal(t, 5, res.TotalCapacity)
	assert.Equal(t, 5, res.RemainingCapacity)
	assert.True(t, res.Active)
	assert.False(t, res.ClosedByOwner)
	repo.AssertExpectations(t)
}

func TestCreatePackValidation(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, zap.NewNop())

	t.Run("cantidad inválida", func(t *testing.T) {
		in := validPackInput()
		in.Cantidad = 0
		_, err := svc.CreatePack(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	})

	t.Run("oferta no menor al original", func(t *testing.T) {
		in := validPackInput()
		in.PrecioOferta = 25.00
		_, err := svc.CreatePack(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidPrice)
	})

	t.Run("ventana invertida", func(t *testing.T) {
		in := validPackInput()
		in.VentanaFin = in.VentanaInicio.Add(-time.Hour)
		_, err := svc.CreatePack(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidWindow)
	})

	repo.AssertNotCalled(t, "CreateResource")
}

func TestCreateSlot(t *testing.T) {
	// Arrange
	repo := new(MockRepository)
	repo.On("CreateResource", mock.Anything, mock.Anything).Return(nil)
	svc := NewService(repo, zap.NewNop())
	now := time.Now().UTC()

	// Act: sin título, debe usar el genérico
	res, err := svc.CreateSlot(context.Background(), CreateSlotInput{
		OwnerID:       "comercio-456",
		Capacidad:     3,
		Precio:        0,
		VentanaInicio: now.Add(1 * time.Hour),
		VentanaFin:    now.Add(2 * time.Hour),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, reservations.KindSlot, res.Kind)
	assert.Equal(t, "Franja", res.Titulo)
	assert.Equal(t, 3, res.RemainingCapacity)
}

func TestUpdateOwnership(t *testing.T) {
	// Arrange: el recurso pertenece a otro comercio
	repo := new(MockRepository)
	existing := &reservations.Resource{
		ID:      "recurso-123",
		OwnerID: "comercio-456",
		Kind:    reservations.KindPack,
	}
	repo.On("GetResource", mock.Anything, "recurso-123").Return(existing, nil)
	svc := NewService(repo, zap.NewNop())

	// Act
	_, err := svc.Update(context.Background(), "recurso-123", "otro-comercio", UpdateInput{Titulo: "Nuevo"})

	// Assert: responde como si no existiera
	assert.ErrorIs(t, err, ErrNotFound)
	repo.AssertNotCalled(t, "UpdateDetails")
}

func TestUpdateKeepsCapacity(t *testing.T) {
	// Arrange
	repo := new(MockRepository)
	now := time.Now().UTC()
	existing := &reservations.Resource{
		ID:                "recurso-123",
		OwnerID:           "comercio-456",
		Kind:              reservations.KindPack,
		Titulo:            "Pack sorpresa",
		TotalCapacity:     5,
		RemainingCapacity: 2,
		UnitPrice:         9.99,
		OriginalPrice:     25.00,
		WindowStart:       now.Add(1 * time.Hour),
		WindowEnd:         now.Add(3 * time.Hour),
	}
	repo.On("GetResource", mock.Anything, "recurso-123").Return(existing, nil)
	repo.On("UpdateDetails", mock.Anything, mock.Anything).Return(nil)
	svc := NewService(repo, zap.NewNop())

	// Act
	res, err := svc.Update(context.Background(), "recurso-123", "comercio-456", UpdateInput{
		Titulo:       "Pack renovado",
		PrecioOferta: 7.50,
	})

	// Assert: datos comerciales cambian, la capacidad no
	require.NoError(t, err)
	assert.Equal(t, "Pack renovado", res.Titulo)
	assert.Equal(t, 7.50, res.UnitPrice)
	assert.Equal(t, 5, res.TotalCapacity)
	assert.Equal(t, 2, res.RemainingCapacity)
}

func TestUpdateRejectsPriceAboveOriginal(t *testing.T) {
	repo := new(MockRepository)
	now := time.Now().UTC()
	existing := &reservations.Resource{
		ID:            "recurso-123",
		OwnerID:       "comercio-456",
		Kind:          reservations.KindPack,
		UnitPrice:     9.99,
		OriginalPrice: 25.00,
		WindowStart:   now,
		WindowEnd:     now.Add(time.Hour),
	}
	repo.On("GetResource", mock.Anything, "recurso-123").Return(existing, nil)
	svc := NewService(repo, zap.NewNop())

	_, err := svc.Update(context.Background(), "recurso-123", "comercio-456", UpdateInput{
		PrecioOferta: 30.00,
	})

	assert.ErrorIs(t, err, ErrInvalidPrice)
	repo.AssertNotCalled(t, "UpdateDetails")
}

func TestClose(t *testing.T) {
	// Arrange
	repo := new(MockRepository)
	closed := &reservations.Resource{
		ID:            "recurso-123",
		OwnerID:       "comercio-456",
		Active:        false,
		ClosedByOwner: true,
	}
	repo.On("CloseResource", mock.Anything, "recurso-123", "comercio-456").Return(closed, nil)
	svc := NewService(repo, zap.NewNop())

	// Act
	res, err := svc.Close(context.Background(), "recurso-123", "comercio-456")

	// Assert
	require.NoError(t, err)
	assert.False(t, res.Active)
	assert.True(t, res.ClosedByOwner)
}
