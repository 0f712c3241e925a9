package payments

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Gateway abstrae la pasarela externa de pagos. El cobro ocurre después de
// confirmada la reserva y la reversa después del commit del reembolso.
type Gateway interface {
	Charge(ctx context.Context, reservationID, metodo string, monto float64) (string, error)
	Reverse(ctx context.Context, referencia string, monto float64) error
}

// HTTPGateway habla con el procesador de pagos vía HTTP.
type HTTPGateway struct {
	client *resty.Client
}

// NewHTTPGateway crea una nueva instancia de HTTPGateway contra baseURL.
func NewHTTPGateway(baseURL string) *HTTPGateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2)
	return &HTTPGateway{client: client}
}

type chargeResponse struct {
	Referencia string `json:"referencia"`
	Estado     string `json:"estado"`
}

// Charge cobra el monto y devuelve la referencia externa del procesador.
func (g *HTTPGateway) Charge(ctx context.Context, reservationID, metodo string, monto float64) (string, error) {
	var out chargeResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"pedido_id": reservationID,
			"metodo":    metodo,
			"monto":     monto,
		}).
		SetResult(&out).
		Post("/cobros")
	if err != nil {
		return "", fmt.Errorf("gateway charge: %w", err)
	}
	if resp.IsError() || out.Estado != "aprobado" {
		return "", fmt.Errorf("gateway charge rejected: status=%d estado=%s", resp.StatusCode(), out.Estado)
	}
	return out.Referencia, nil
}

// Reverse solicita la reversa de un cobro previo.
func (g *HTTPGateway) Reverse(ctx context.Context, referencia string, monto float64) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"referencia": referencia,
			"monto":      monto,
		}).
		Post("/reversas")
	if err != nil {
		return fmt.Errorf("gateway reverse: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("gateway reverse rejected: status=%d", resp.StatusCode())
	}
	return nil
}

// SimulatedGateway aprueba todo cobro localmente generando referencias con
// el prefijo de cada método. Se usa cuando no hay procesador configurado.
type SimulatedGateway struct{}

var refPrefixes = map[string]string{
	"nequi":     "NEQ",
	"daviplata": "DAVI",
	"pse":       "PSE",
	"tarjeta":   "CARD",
	"paypal":    "PP",
}

func (SimulatedGateway) Charge(_ context.Context, _ string, metodo string, _ float64) (string, error) {
	prefix, ok := refPrefixes[metodo]
	if !ok {
		prefix = strings.ToUpper(metodo)
	}
	return fmt.Sprintf("%s%d%03d", prefix, time.Now().UnixMilli(), rand.Intn(1000)), nil
}

func (SimulatedGateway) Reverse(context.Context, string, float64) error {
	return nil
}
