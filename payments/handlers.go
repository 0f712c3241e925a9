package payments

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/estudio123455-hue/Tugood-tugo/auth"
	"github.com/estudio123455-hue/Tugood-tugo/reservations"
)

// ServiceInterface define la interfaz que consumen los handlers de pagos.
type ServiceInterface interface {
	Process(ctx context.Context, in ProcessInput) (*Payment, error)
	Refund(ctx context.Context, paymentID string, actor reservations.Actor, motivo string) (*Payment, error)
	GetForReservation(ctx context.Context, reservationID string, actor reservations.Actor) (*Payment, error)
	History(ctx context.Context, f HistoryFilter) ([]Payment, error)
	GlobalStats(ctx context.Context, desde, hasta time.Time) (*Stats, error)
}

// Handler contiene los handlers HTTP de pagos.
type Handler struct {
	service ServiceInterface
}

// NewHandler crea una nueva instancia de Handler.
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// Register monta las rutas de pagos en el router.
func (h *Handler) Register(r gin.IRouter, authMW gin.HandlerFunc) {
	pagos := r.Group("/api/pagos")
	pagos.GET("/metodos", h.Metodos)

	pagos.Use(authMW)
	pagos.POST("", h.Process)
	pagos.GET("/pedido/:pedidoId", h.GetForReservation)
	pagos.GET("/historial", h.History)
	pagos.POST("/:id/reembolso", auth.RequireRol("admin"), h.Refund)
	pagos.GET("/stats", auth.RequireRol("admin"), h.GlobalStats)
}

type processRequest struct {
	PedidoID string `json:"pedido_id" binding:"required"`
	Metodo   string `json:"metodo" binding:"required"`
}

// Process cobra un pedido del usuario autenticado.
func (h *Handler) Process(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Datos inválidos", "details": err.Error()})
		return
	}

	p, err := h.service.Process(c.Request.Context(), ProcessInput{
		ReservationID: req.PedidoID,
		RequesterID:   auth.UserID(c),
		Metodo:        req.Metodo,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Pago procesado exitosamente", "pago": p})
}

type refundRequest struct {
	Motivo string `json:"motivo" binding:"required,min=10,max=500"`
}

// Refund reembolsa un pago (solo administradores).
func (h *Handler) Refund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Motivo debe tener entre 10 y 500 caracteres"})
		return
	}

	actor := reservations.Actor{ID: auth.UserID(c), Admin: true}
	p, err := h.service.Refund(c.Request.Context(), c.Param("id"), actor, req.Motivo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reembolso procesado exitosamente", "pago": p, "motivo": req.Motivo})
}

// GetForReservation devuelve el pago de un pedido.
func (h *Handler) GetForReservation(c *gin.Context) {
	actor := reservations.Actor{ID: auth.UserID(c), Admin: auth.Rol(c) == "admin"}
	p, err := h.service.GetForReservation(c.Request.Context(), c.Param("pedidoId"), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pago": p})
}

// History lista los pagos del usuario autenticado.
func (h *Handler) History(c *gin.Context) {
	pagos, err := h.service.History(c.Request.Context(), HistoryFilter{
		RequesterID: auth.UserID(c),
		Metodo:      c.Query("metodo"),
		Estado:      c.Query("estado"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pagos": pagos, "total": len(pagos)})
}

// Metodos devuelve los métodos de pago habilitados.
func (h *Handler) Metodos(c *gin.Context) {
	activos := make([]Metodo, 0, len(Metodos))
	for _, m := range Metodos {
		if m.Activo {
			activos = append(activos, m)
		}
	}
	c.JSON(http.StatusOK, gin.H{"metodos": activos})
}

// GlobalStats devuelve estadísticas de pagos (solo administradores).
func (h *Handler) GlobalStats(c *gin.Context) {
	desde := dateQuery(c, "fecha_inicio")
	hasta := dateQuery(c, "fecha_fin")

	stats, err := h.service.GlobalStats(c.Request.Context(), desde, hasta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"estadisticas_generales": stats})
}

func dateQuery(c *gin.Context, name string) time.Time {
	s := c.Query(name)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidMetodo):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Método de pago inválido"})
	case errors.Is(err, ErrPaymentNotFound), errors.Is(err, reservations.ErrReservationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "No encontrado"})
	case errors.Is(err, ErrAlreadyPaid), errors.Is(err, ErrNotPayable),
		errors.Is(err, ErrNotRefundable), errors.Is(err, reservations.ErrReservationNotRefundable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrChargeFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "El cobro fue rechazado, intenta con otro método"})
	case errors.Is(err, reservations.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "No tienes permisos para ver este pago"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno del servidor"})
	}
}
