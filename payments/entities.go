package payments

import (
	"time"

	"github.com/google/uuid"
)

// Estado de un pago.
const (
	EstadoCompletado  = "completado"
	EstadoFallido     = "fallido"
	EstadoReembolsado = "reembolsado"
)

// Metodos de pago aceptados por la plataforma.
var Metodos = []Metodo{
	{ID: "tarjeta", Nombre: "Tarjeta de Crédito/Débito", Descripcion: "Visa, Mastercard", Activo: true},
	{ID: "nequi", Nombre: "Nequi", Descripcion: "Pago móvil", Activo: true},
	{ID: "daviplata", Nombre: "Daviplata", Descripcion: "Billetera digital", Activo: true},
	{ID: "pse", Nombre: "PSE", Descripcion: "Débito desde cuenta bancaria", Activo: true},
	{ID: "paypal", Nombre: "PayPal", Descripcion: "Pago internacional", Activo: false},
}

// Metodo describe un método de pago ofrecido al cliente.
type Metodo struct {
	ID          string `json:"id"`
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
	Activo      bool   `json:"activo"`
}

// MetodoValido indica si el método está habilitado.
func MetodoValido(id string) bool {
	for _, m := range Metodos {
		if m.ID == id && m.Activo {
			return true
		}
	}
	return false
}

// Payment representa el cobro de un pedido.
type Payment struct {
	ID                string    `json:"id" db:"id"`
	ReservationID     string    `json:"pedido_id" db:"pedido_id"`
	Metodo            string    `json:"metodo" db:"metodo"`
	Monto             float64   `json:"monto" db:"monto"`
	Estado            string    `json:"estado" db:"estado"`
	ReferenciaExterna string    `json:"referencia_externa" db:"referencia_externa"`
	FechaPago         time.Time `json:"fecha_pago" db:"fecha_pago"`
}

// NewPayment crea un nuevo pago completado con su referencia de pasarela.
func NewPayment(reservationID, metodo string, monto float64, referencia string) *Payment {
	return &Payment{
		ID:                uuid.New().String(),
		ReservationID:     reservationID,
		Metodo:            metodo,
		Monto:             monto,
		Estado:            EstadoCompletado,
		ReferenciaExterna: referencia,
		FechaPago:         time.Now().UTC(),
	}
}

// Stats resume los pagos de la plataforma.
type Stats struct {
	TotalPagos     int     `json:"total_pagos"`
	MontoTotal     float64 `json:"monto_total"`
	MontoPromedio  float64 `json:"monto_promedio"`
	PagosExitosos  int     `json:"pagos_exitosos"`
	PagosFallidos  int     `json:"pagos_fallidos"`
	Reembolsos     int     `json:"reembolsos"`
}
