package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/estudio123455-hue/Tugood-tugo/auth"
	"github.com/estudio123455-hue/Tugood-tugo/catalog"
	"github.com/estudio123455-hue/Tugood-tugo/config"
	"github.com/estudio123455-hue/Tugood-tugo/notifications"
	"github.com/estudio123455-hue/Tugood-tugo/observability"
	"github.com/estudio123455-hue/Tugood-tugo/payments"
	"github.com/estudio123455-hue/Tugood-tugo/reservations"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuración inválida", zap.Error(err))
	}

	ctx := context.Background()

	tp, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("no se pudo inicializar el tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("error apagando el tracer", zap.Error(err))
		}
	}()

	mp, err := observability.InitMetrics(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("no se pudo inicializar las métricas", zap.Error(err))
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			logger.Warn("error apagando las métricas", zap.Error(err))
		}
	}()

	dbPool, err := initDB(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("no se pudo conectar a la base de datos", zap.Error(err))
	}
	defer dbPool.Close()

	// Notificaciones: RabbitMQ si está configurado, descarte si no.
	var notifier reservations.Notifier = notifications.NopNotifier{}
	if cfg.RabbitURL != "" {
		pub, err := notifications.NewPublisher(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			logger.Fatal("no se pudo conectar a RabbitMQ", zap.Error(err))
		}
		defer func() { _ = pub.Close() }()
		notifier = notifications.NewNotifier(pub, logger)
	}

	// Pasarela de pagos: HTTP real o simulación local.
	var gateway payments.Gateway = payments.SimulatedGateway{}
	if cfg.PaymentGatewayURL != "" {
		gateway = payments.NewHTTPGateway(cfg.PaymentGatewayURL)
	}

	tracer := otel.Tracer(cfg.ServiceName)
	meter := otel.Meter(cfg.ServiceName)

	reservationsRepo := reservations.NewPostgresRepository(dbPool)
	reservationsSvc := reservations.NewService(reservationsRepo, notifier, logger, tracer, meter, cfg.MaxUnidadesPorPedido)

	catalogRepo := catalog.NewPostgresRepository(dbPool)
	catalogSvc := catalog.NewService(catalogRepo, logger)

	paymentsRepo := payments.NewPostgresRepository(dbPool)
	paymentsSvc := payments.NewService(paymentsRepo, reservationsSvc, gateway, logger)

	authMW := auth.Middleware(cfg.JWTSecret)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": cfg.ServiceName})
	})

	reservations.NewHandler(reservationsSvc).Register(r, authMW)
	catalog.NewHandler(catalogSvc).Register(r, authMW)
	payments.NewHandler(paymentsSvc).Register(r, authMW)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		logger.Info("🚀 TuGood TuGo backend escuchando", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("el servidor HTTP terminó con error", zap.Error(err))
		}
	}()

	// Apagado ordenado
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("apagado del servidor con error", zap.Error(err))
	}
	logger.Info("servidor detenido")
}

func initDB(ctx context.Context, dsn string, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Espera a que la base de datos esté lista
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			logger.Info("✅ conectado a la base de datos")
			return pool, nil
		}
		logger.Info("⏳ esperando la base de datos...", zap.Int("intento", i+1))
		time.Sleep(1 * time.Second)
	}

	pool.Close()
	return nil, fmt.Errorf("failed to connect to database after 30 attempts")
}
