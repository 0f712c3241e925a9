package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/estudio123455-hue/Tugood-tugo/reservations"
)

var (
	ErrInvalidPrice    = errors.New("catalog: precio descuento debe ser menor que precio original")
	ErrInvalidCapacity = errors.New("catalog: cantidad debe ser mayor a 0")
	ErrInvalidWindow   = errors.New("catalog: la ventana de recogida es inválida")
)

// CreatePackInput es la entrada validada para publicar un pack.
type CreatePackInput struct {
	OwnerID        string
	Titulo         string
	Descripcion    string
	PrecioOriginal float64
	PrecioOferta   float64
	Cantidad       int
	VentanaInicio  time.Time
	VentanaFin     time.Time
}

// CreateSlotInput es la entrada validada para publicar una franja horaria.
type CreateSlotInput struct {
	OwnerID       string
	Titulo        string
	Descripcion   string
	Precio        float64
	Capacidad     int
	VentanaInicio time.Time
	VentanaFin    time.Time
}

// UpdateInput son los datos comerciales editables de un recurso publicado.
type UpdateInput struct {
	Titulo         string
	Descripcion    string
	PrecioOriginal float64
	PrecioOferta   float64
	VentanaInicio  time.Time
	VentanaFin     time.Time
}

// Service publica y administra los recursos vendibles de los comercios.
// Nunca toca cantidad_disponible después de la creación.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService crea una nueva instancia del servicio de catálogo.
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreatePack publica un pack sorpresa con toda su capacidad disponible.
func (s *Service) CreatePack(ctx context.Context, in CreatePackInput) (*reservations.Resource, error) {
	if in.Cantidad < 1 {
		return nil, ErrInvalidCapacity
	}
	if in.PrecioOferta <= 0 || in.PrecioOferta >= in.PrecioOriginal {
		return nil, ErrInvalidPrice
	}
	if !in.VentanaFin.After(in.VentanaInicio) {
		return nil, ErrInvalidWindow
	}

	res := newResource(in.OwnerID, reservations.KindPack, in.Titulo, in.Descripcion,
		in.Cantidad, in.PrecioOferta, in.PrecioOriginal, in.VentanaInicio, in.VentanaFin)
	if err := s.repo.CreateResource(ctx, res); err != nil {
		return nil, err
	}

	s.logger.Info("pack publicado",
		zap.String("recurso_id", res.ID),
		zap.String("comercio_id", res.OwnerID),
		zap.Int("cantidad", res.TotalCapacity))
	return res, nil
}

// CreateSlot publica una franja horaria de recogida con capacidad propia.
func (s *Service) CreateSlot(ctx context.Context, in CreateSlotInput) (*reservations.Resource, error) {
	if in.Capacidad < 1 {
		return nil, ErrInvalidCapacity
	}
	if in.Precio < 0 {
		return nil, ErrInvalidPrice
	}
	if !in.VentanaFin.After(in.VentanaInicio) {
		return nil, ErrInvalidWindow
	}

	titulo := in.Titulo
	if titulo == "" {
		titulo = "Franja"
	}
	res := newResource(in.OwnerID, reservations.KindSlot, titulo, in.Descripcion,
		in.Capacidad, in.Precio, 0, in.VentanaInicio, in.VentanaFin)
	if err := s.repo.CreateResource(ctx, res); err != nil {
		return nil, err
	}

	s.logger.Info("franja publicada",
		zap.String("recurso_id", res.ID),
		zap.String("comercio_id", res.OwnerID))
	return res, nil
}

// Get devuelve un recurso por id.
func (s *Service) Get(ctx context.Context, id string) (*reservations.Resource, error) {
	return s.repo.GetResource(ctx, id)
}

// List devuelve los recursos que cumplen el filtro.
func (s *Service) List(ctx context.Context, f Filter) ([]reservations.Resource, error) {
	return s.repo.ListResources(ctx, f)
}

// Update edita los datos comerciales de un recurso del comercio. La
// capacidad total es inmutable desde la creación.
func (s *Service) Update(ctx context.Context, id, ownerID string, in UpdateInput) (*reservations.Resource, error) {
	res, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.OwnerID != ownerID {
		return nil, ErrNotFound
	}

	if in.Titulo != "" {
		res.Titulo = in.Titulo
	}
	if in.Descripcion != "" {
		res.Descripcion = in.Descripcion
	}
	if in.PrecioOferta > 0 {
		res.UnitPrice = in.PrecioOferta
	}
	if in.PrecioOriginal > 0 {
		res.OriginalPrice = in.PrecioOriginal
	}
	if res.Kind == reservations.KindPack && res.OriginalPrice > 0 && res.UnitPrice >= res.OriginalPrice {
		return nil, ErrInvalidPrice
	}
	if !in.VentanaInicio.IsZero() {
		res.WindowStart = in.VentanaInicio
	}
	if !in.VentanaFin.IsZero() {
		res.WindowEnd = in.VentanaFin
	}
	if !res.WindowEnd.After(res.WindowStart) {
		return nil, ErrInvalidWindow
	}

	if err := s.repo.UpdateDetails(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Close cierra manualmente un recurso del comercio. El recurso no se borra:
// la desactivación preserva el historial de pedidos.
func (s *Service) Close(ctx context.Context, id, ownerID string) (*reservations.Resource, error) {
	res, err := s.repo.CloseResource(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("recurso cerrado por el comercio", zap.String("recurso_id", id))
	return res, nil
}

func newResource(ownerID string, kind reservations.ResourceKind, titulo, descripcion string,
	cantidad int, precio, precioOriginal float64, inicio, fin time.Time) *reservations.Resource {
	now := time.Now().UTC()
	return &reservations.Resource{
		ID:                uuid.New().String(),
		OwnerID:           ownerID,
		Kind:              kind,
		Titulo:            titulo,
		Descripcion:       descripcion,
		TotalCapacity:     cantidad,
		RemainingCapacity: cantidad,
		UnitPrice:         precio,
		OriginalPrice:     precioOriginal,
		Active:            true,
		ClosedByOwner:     false,
		WindowStart:       inicio,
		WindowEnd:         fin,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
