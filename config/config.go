package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// App es la configuración del servicio, leída del entorno.
type App struct {
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`

	// Tope de unidades por pedido; regla de producto, no de integridad.
	MaxUnidadesPorPedido int `envconfig:"MAX_UNIDADES_POR_PEDIDO" default:"10"`

	// Mensajería. Si RabbitURL está vacío las notificaciones se descartan.
	RabbitURL      string `envconfig:"RABBIT_URL"`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"tugood.events"`

	// Pasarela de pagos. Si está vacío se simulan los cobros.
	PaymentGatewayURL string `envconfig:"PAYMENT_GATEWAY_URL"`

	// Observabilidad
	ServiceName  string `envconfig:"SERVICE_NAME" default:"tugood-backend"`
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4318"`
}

// Load lee el .env si existe y luego procesa las variables de entorno.
func Load() (App, error) {
	_ = godotenv.Load()
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
