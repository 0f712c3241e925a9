package reservations

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/estudio123455-hue/Tugood-tugo/auth"
)

// ServiceInterface define la interfaz que consumen los handlers HTTP.
type ServiceInterface interface {
	Reserve(ctx context.Context, in ReserveInput) (*ReserveResult, error)
	Cancel(ctx context.Context, reservationID string, actor Actor) (*Reservation, error)
	ConfirmPickup(ctx context.Context, reservationID, pickupCode string) (*Reservation, error)
	Get(ctx context.Context, reservationID string, actor Actor) (*Reservation, error)
	ListByRequester(ctx context.Context, requesterID string, status Status, limit, offset int) ([]Reservation, error)
	ListByOwner(ctx context.Context, ownerID string, status Status, limit, offset int) ([]Reservation, error)
	Stats(ctx context.Context, requesterID string) (*RequesterStats, error)
}

// Handler contiene los handlers HTTP de pedidos.
type Handler struct {
	service ServiceInterface
}

// NewHandler crea una nueva instancia de Handler.
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// Register monta las rutas de pedidos en el router.
func (h *Handler) Register(r gin.IRouter, authMW gin.HandlerFunc) {
	pedidos := r.Group("/api/pedidos")
	// La confirmación de entrega no exige sesión: el comercio escanea el
	// código del cliente desde su propio dispositivo.
	pedidos.POST("/confirmar-entrega", h.ConfirmPickup)

	pedidos.Use(authMW)
	pedidos.POST("", auth.RequireRol("cliente"), h.Reserve)
	pedidos.GET("", h.ListMine)
	pedidos.GET("/stats/user", h.Stats)
	pedidos.GET("/comercio/list", auth.RequireRol("comercio"), h.ListForOwner)
	pedidos.GET("/:id", h.Get)
	pedidos.PUT("/:id/cancelar", h.Cancel)
}

type reserveRequest struct {
	RecursoID string `json:"recurso_id" binding:"required"`
	Cantidad  int    `json:"cantidad" binding:"required"`
	Notas     string `json:"notas" binding:"max=500"`
}

// Reserve crea un nuevo pedido descontando capacidad del recurso.
func (h *Handler) Reserve(c *gin.Context) {
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos", "details": err.Error()})
		return
	}

	result, err := h.service.Reserve(c.Request.Context(), ReserveInput{
		ResourceID:  req.RecursoID,
		RequesterID: auth.UserID(c),
		Quantity:    req.Cantidad,
		Notas:       req.Notas,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Pedido creado exitosamente",
		"pedido":     result.Reservation,
		"disponible": result.Remaining,
	})
}

// Cancel cancela un pedido del usuario autenticado (o de cualquiera si es admin).
func (h *Handler) Cancel(c *gin.Context) {
	rv, err := h.service.Cancel(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Pedido cancelado exitosamente",
		"pedido":  rv,
	})
}

type confirmPickupRequest struct {
	PedidoID        string `json:"pedido_id" binding:"required"`
	CodigoSeguridad string `json:"codigo_seguridad" binding:"required"`
}

// ConfirmPickup marca un pedido como entregado contra su código de seguridad.
func (h *Handler) ConfirmPickup(c *gin.Context) {
	var req confirmPickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos de confirmación inválidos", "details": err.Error()})
		return
	}

	rv, err := h.service.ConfirmPickup(c.Request.Context(), req.PedidoID, req.CodigoSeguridad)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Pedido marcado como entregado exitosamente",
		"pedido":  rv,
	})
}

// Get devuelve un pedido por id.
func (h *Handler) Get(c *gin.Context) {
	rv, err := h.service.Get(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pedido": rv})
}

// ListMine lista los pedidos del usuario autenticado.
func (h *Handler) ListMine(c *gin.Context) {
	status, limit, offset := listParams(c)
	pedidos, err := h.service.ListByRequester(c.Request.Context(), auth.UserID(c), status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pedidos": pedidos, "total": len(pedidos)})
}

// ListForOwner lista los pedidos recibidos por el comercio autenticado.
func (h *Handler) ListForOwner(c *gin.Context) {
	status, limit, offset := listParams(c)
	pedidos, err := h.service.ListByOwner(c.Request.Context(), auth.UserID(c), status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pedidos": pedidos, "total": len(pedidos)})
}

// Stats devuelve las estadísticas de pedidos del usuario autenticado.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"estadisticas": stats})
}

func actorFrom(c *gin.Context) Actor {
	return Actor{ID: auth.UserID(c), Admin: auth.Rol(c) == "admin"}
}

func listParams(c *gin.Context) (Status, int, int) {
	status := Status(c.DefaultQuery("estado", ""))
	if status == "all" {
		status = ""
	}
	limit := intQuery(c, "limit", 20)
	offset := intQuery(c, "offset", 0)
	return status, limit, offset
}

func intQuery(c *gin.Context, name string, def int) int {
	s := c.Query(name)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// respondError traduce la taxonomía de errores del núcleo a códigos HTTP.
func respondError(c *gin.Context, err error) {
	var insufficient *InsufficientCapacityError
	var transition *InvalidTransitionError

	switch {
	case errors.Is(err, ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cantidad debe ser entre 1 y el máximo permitido"})
	case errors.Is(err, ErrResourceNotFound), errors.Is(err, ErrReservationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "No encontrado"})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"error":      err.Error(),
			"disponible": insufficient.Remaining,
		})
	case errors.Is(err, ErrResourceInactive):
		c.JSON(http.StatusConflict, gin.H{"error": "Esta oferta ya no está disponible"})
	case errors.Is(err, ErrReservationNotCancellable),
		errors.Is(err, ErrReservationNotRefundable),
		errors.Is(err, ErrAlreadyCompleted),
		errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrPickupCodeMismatch):
		c.JSON(http.StatusNotFound, gin.H{"error": "Pedido no encontrado o código de seguridad incorrecto"})
	case errors.Is(err, ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "No tienes permisos para esta operación"})
	case errors.Is(err, ErrTransactionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Conflicto de concurrencia, intenta de nuevo"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno del servidor"})
	}
}
