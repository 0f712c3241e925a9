package catalog

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/estudio123455-hue/Tugood-tugo/auth"
	"github.com/estudio123455-hue/Tugood-tugo/reservations"
)

// ServiceInterface define la interfaz que consumen los handlers del catálogo.
type ServiceInterface interface {
	CreatePack(ctx context.Context, in CreatePackInput) (*reservations.Resource, error)
	CreateSlot(ctx context.Context, in CreateSlotInput) (*reservations.Resource, error)
	Get(ctx context.Context, id string) (*reservations.Resource, error)
	List(ctx context.Context, f Filter) ([]reservations.Resource, error)
	Update(ctx context.Context, id, ownerID string, in UpdateInput) (*reservations.Resource, error)
	Close(ctx context.Context, id, ownerID string) (*reservations.Resource, error)
}

// Handler contiene los handlers HTTP del catálogo.
type Handler struct {
	service ServiceInterface
}

// NewHandler crea una nueva instancia de Handler.
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// Register monta las rutas de packs y franjas en el router.
func (h *Handler) Register(r gin.IRouter, authMW gin.HandlerFunc) {
	packs := r.Group("/api/packs")
	packs.GET("", h.listKind(reservations.KindPack))
	packs.GET("/:id", h.Get)
	packs.POST("", authMW, auth.RequireRol("comercio"), h.CreatePack)
	packs.PUT("/:id", authMW, auth.RequireRol("comercio"), h.Update)
	packs.PUT("/:id/cerrar", authMW, auth.RequireRol("comercio"), h.Close)
	packs.GET("/me/list", authMW, auth.RequireRol("comercio"), h.listMine)

	slots := r.Group("/api/slots")
	slots.GET("", h.listKind(reservations.KindSlot))
	slots.POST("", authMW, auth.RequireRol("comercio"), h.CreateSlot)
	slots.PUT("/:id/cerrar", authMW, auth.RequireRol("comercio"), h.Close)
}

type createPackRequest struct {
	Titulo         string  `json:"titulo" binding:"required,min=5,max=150"`
	Descripcion    string  `json:"descripcion" binding:"max=500"`
	PrecioOriginal float64 `json:"precio_original" binding:"required,gt=0"`
	PrecioOferta   float64 `json:"precio_descuento" binding:"required,gt=0"`
	Cantidad       int     `json:"cantidad" binding:"required,min=1"`
	VentanaInicio  string  `json:"hora_recogida_inicio" binding:"required"`
	VentanaFin     string  `json:"hora_recogida_fin" binding:"required"`
}

// CreatePack publica un pack del comercio autenticado.
func (h *Handler) CreatePack(c *gin.Context) {
	var req createPackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos", "details": err.Error()})
		return
	}

	inicio, fin, err := parseWindow(c.Query("fecha"), req.VentanaInicio, req.VentanaFin)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ventana de recogida inválida"})
		return
	}

	res, err := h.service.CreatePack(c.Request.Context(), CreatePackInput{
		OwnerID:        auth.UserID(c),
		Titulo:         req.Titulo,
		Descripcion:    req.Descripcion,
		PrecioOriginal: req.PrecioOriginal,
		PrecioOferta:   req.PrecioOferta,
		Cantidad:       req.Cantidad,
		VentanaInicio:  inicio,
		VentanaFin:     fin,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Pack creado exitosamente", "pack": res})
}

type createSlotRequest struct {
	Titulo      string  `json:"titulo" binding:"max=150"`
	Descripcion string  `json:"descripcion" binding:"max=500"`
	Fecha       string  `json:"fecha" binding:"required"`
	HoraInicio  string  `json:"hora_inicio" binding:"required"`
	HoraFin     string  `json:"hora_fin" binding:"required"`
	Capacidad   int     `json:"capacidad" binding:"required,min=1"`
	Precio      float64 `json:"precio_descuento" binding:"gte=0"`
}

// CreateSlot publica una franja horaria del comercio autenticado.
func (h *Handler) CreateSlot(c *gin.Context) {
	var req createSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos", "details": err.Error()})
		return
	}

	inicio, fin, err := parseWindow(req.Fecha, req.HoraInicio, req.HoraFin)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fecha u horario inválido"})
		return
	}

	res, err := h.service.CreateSlot(c.Request.Context(), CreateSlotInput{
		OwnerID:       auth.UserID(c),
		Titulo:        req.Titulo,
		Descripcion:   req.Descripcion,
		Precio:        req.Precio,
		Capacidad:     req.Capacidad,
		VentanaInicio: inicio,
		VentanaFin:    fin,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Franja creada", "slot": res})
}

// Get devuelve un recurso del catálogo.
func (h *Handler) Get(c *gin.Context) {
	res, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pack": res})
}

type updateRequest struct {
	Titulo         string  `json:"titulo" binding:"omitempty,min=5,max=150"`
	Descripcion    string  `json:"descripcion" binding:"max=500"`
	PrecioOriginal float64 `json:"precio_original" binding:"gte=0"`
	PrecioOferta   float64 `json:"precio_descuento" binding:"gte=0"`
}

// Update edita los datos comerciales de un recurso propio.
func (h *Handler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos", "details": err.Error()})
		return
	}

	res, err := h.service.Update(c.Request.Context(), c.Param("id"), auth.UserID(c), UpdateInput{
		Titulo:         req.Titulo,
		Descripcion:    req.Descripcion,
		PrecioOriginal: req.PrecioOriginal,
		PrecioOferta:   req.PrecioOferta,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Recurso actualizado", "pack": res})
}

// Close cierra manualmente un recurso propio.
func (h *Handler) Close(c *gin.Context) {
	res, err := h.service.Close(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Recurso cerrado", "recurso": res})
}

func (h *Handler) listKind(kind reservations.ResourceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.service.List(c.Request.Context(), Filter{
			OwnerID:    c.Query("comercio_id"),
			Kind:       kind,
			OnlyActive: c.DefaultQuery("activo", "true") == "true",
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"recursos": list, "total": len(list)})
	}
}

func (h *Handler) listMine(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), Filter{OwnerID: auth.UserID(c)})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recursos": list, "total": len(list)})
}

// parseWindow compone la ventana de recogida a partir de la fecha (hoy si se
// omite) y las horas HH:MM.
func parseWindow(fecha, horaInicio, horaFin string) (time.Time, time.Time, error) {
	day := time.Now().UTC()
	if fecha != "" {
		var err error
		day, err = time.Parse("2006-01-02", fecha)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	inicio, err := atTime(day, horaInicio)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	fin, err := atTime(day, horaFin)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return inicio, fin, nil
}

func atTime(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Recurso no encontrado"})
	case errors.Is(err, ErrInvalidPrice), errors.Is(err, ErrInvalidCapacity), errors.Is(err, ErrInvalidWindow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno del servidor"})
	}
}
