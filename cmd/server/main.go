package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"storefront-service/internal/config"
	"storefront-service/internal/logging"
	"storefront-service/internal/middleware"
	"storefront-service/internal/rabbit"
	"storefront-service/internal/service"
	"storefront-service/internal/tenant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuración inválida")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Conexión a RabbitMQ (opcional)
	var (
		conn      *amqp091.Connection
		publisher *rabbit.Publisher
	)
	if cfg.RabbitURL != "" {
		conn, err = amqp091.Dial(cfg.RabbitURL)
		if err != nil {
			log.Fatal().Err(err).Msg("error conectando a RabbitMQ")
		}
		defer conn.Close()

		pubCh, err := conn.Channel()
		if err != nil {
			log.Fatal().Err(err).Msg("error creando canal en RabbitMQ")
		}
		names := make([]string, 0, len(cfg.Tenants))
		for _, tc := range cfg.Tenants {
			names = append(names, tc.Name)
		}
		if err := rabbit.DeclareExchanges(pubCh, names); err != nil {
			log.Fatal().Err(err).Msg("error declarando exchanges")
		}
		publisher = rabbit.NewPublisher(pubCh)
	} else {
		log.Warn().Msg("RABBIT_URL vacío, los eventos de pago sólo llegan a esta instancia")
	}

	sweeper := service.NewSweeper(cfg.SweepInterval, cfg.SweepInterval)

	// Router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "ok"})
	})
	api := r.Group("", middleware.SweepTrigger(sweeper))

	opts := tenant.Options{
		JWTSecret:      cfg.JWTSecret,
		JWTTTL:         cfg.JWTTTL,
		JWTRememberTTL: cfg.JWTRememberTTL,
		Timeout:        cfg.UpstreamTimeout,
		Location:       cfg.Location,
		Publisher:      publisher,
	}
	var tenants []*tenant.Tenant
	for _, tc := range cfg.Tenants {
		t, err := tenant.Build(ctx, api, tc, opts)
		if err != nil {
			log.Fatal().Err(err).Msg("error inicializando tenant")
		}
		tenants = append(tenants, t)
		sweeper.Add(t.Orders)

		if conn != nil {
			subCh, err := conn.Channel()
			if err != nil {
				log.Fatal().Err(err).Msg("error creando canal en RabbitMQ")
			}
			if err := rabbit.SetupPaymentEventsConsumer(subCh, t.Name, t.Hub); err != nil {
				log.Fatal().Err(err).Str("tenant", t.Name).Msg("error suscribiendo payment_events")
			}
		}
	}

	// barrido inicial
	sweeper.Trigger()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("storefront-service ejecutándose")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("servidor detenido")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("apagando")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown del servidor")
	}
	sweeper.Wait()
	for _, t := range tenants {
		if err := t.Close(shutdownCtx); err != nil {
			log.Error().Err(err).Str("tenant", t.Name).Msg("cerrando mongo")
		}
	}
}
