package tenant

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/config"
	"storefront-service/internal/controller"
	"storefront-service/internal/live"
	"storefront-service/internal/mpesa"
	"storefront-service/internal/notify"
	"storefront-service/internal/rabbit"
	"storefront-service/internal/repository"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Options lo compartido por todos los tenants.
type Options struct {
	JWTSecret      string
	JWTTTL         time.Duration
	JWTRememberTTL time.Duration
	Timeout        time.Duration
	Location       *time.Location
	// Publisher nil sin RabbitMQ: los eventos de pago van directo al hub local.
	Publisher *rabbit.Publisher
}

// Tenant es el stack aislado de una tienda.
type Tenant struct {
	Name   string
	Orders *service.OrderService
	Hub    *live.Hub
	client *mongo.Client
}

// Build conecta la base del tenant, arma repos, servicios y controllers y
// monta las rutas bajo /<tenant>.
func Build(ctx context.Context, r gin.IRouter, tc config.TenantConfig, opts Options) (*Tenant, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Conexión a MongoDB
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(tc.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("%s: conectando a mongo: %w", tc.Name, err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: ping a mongo: %w", tc.Name, err)
	}
	db := client.Database(tc.MongoDB)
	if err := repository.EnsureIndexes(connectCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: %w", tc.Name, err)
	}

	// Repositorios
	orders := repository.NewMongoOrderRepository(db)
	users := repository.NewMongoUserRepository(db)
	coupons := repository.NewMongoCouponRepository(db)
	fees := repository.NewMongoShippingFeeRepository(db)
	categories := repository.NewMongoCategoryRepository(db)
	products := repository.NewMongoProductRepository(db)

	mailer, err := notify.New(notify.Config{
		Brand:      tc.Brand,
		Host:       tc.SMTP.Host,
		Port:       tc.SMTP.Port,
		Username:   tc.SMTP.User,
		Password:   tc.SMTP.Password,
		From:       tc.SMTP.From,
		SSL:        tc.SMTP.SSL,
		SalesEmail: tc.SalesEmail,
		Timeout:    opts.Timeout,
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: mailer: %w", tc.Name, err)
	}

	hub := live.NewHub(tc.Name)
	var broadcaster service.Broadcaster = hub
	deps := service.OrderDeps{
		Orders:       orders,
		Counters:     repository.NewMongoCounterRepository(db),
		Users:        users,
		ShippingFees: fees,
		Coupons:      coupons,
		Notifier:     mailer,
	}
	if opts.Publisher != nil {
		broadcaster = opts.Publisher.PaymentEvents(tc.Name)
		deps.Events = opts.Publisher
	}

	var provider service.STKInitiator
	if tc.K2.Enabled() {
		provider = mpesa.NewClient(mpesa.Config{
			BaseURL:      tc.K2.BaseURL,
			ClientID:     tc.K2.ClientID,
			ClientSecret: tc.K2.ClientSecret,
			TillNumber:   tc.K2.Till,
			CallbackURL:  tc.K2.CallbackURL,
			Timeout:      opts.Timeout,
		})
	} else {
		log.Warn().Str("tenant", tc.Name).Msg("credenciales de Kopo Kopo ausentes, STK deshabilitado")
	}

	// Servicios
	auth := service.NewAuthService(opts.JWTSecret, tc.Name, opts.JWTTTL, opts.JWTRememberTTL)
	orderSvc := service.NewOrderService(service.OrderServiceConfig{
		Tenant:        tc.Name,
		Loyalty:       tc.Loyalty,
		NotifyTimeout: opts.Timeout,
		Location:      opts.Location,
	}, deps)
	paymentSvc := service.NewPaymentService(tc.Name, repository.NewMongoTransactionRepository(db), orders, broadcaster, provider, opts.Timeout)
	userSvc := service.NewUserService(tc.Name, users, auth, mailer, opts.Timeout)

	// Handlers
	controller.RegisterRoutes(r.Group("/"+tc.Name), auth, controller.Controllers{
		Orders:   controller.NewOrderController(orderSvc),
		Payments: controller.NewPaymentController(paymentSvc, hub),
		Users:    controller.NewUserController(userSvc),
		Coupons:  controller.NewCouponController(service.NewCouponService(coupons, products)),
		Shipping: controller.NewShippingController(service.NewShippingService(fees)),
		Catalog:  controller.NewCatalogController(service.NewCatalogService(categories, products)),
	})

	log.Info().Str("tenant", tc.Name).Str("db", tc.MongoDB).Bool("loyalty", tc.Loyalty).Msg("tenant listo")
	return &Tenant{Name: tc.Name, Orders: orderSvc, Hub: hub, client: client}, nil
}

func (t *Tenant) Close(ctx context.Context) error {
	return t.client.Disconnect(ctx)
}
