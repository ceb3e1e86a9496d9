package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	goredis "github.com/redis/go-redis/v9"
	"github.com/tu-usuario/retail-pos/internal/application/pos"
	"github.com/tu-usuario/retail-pos/internal/infrastructure/events"
	"github.com/tu-usuario/retail-pos/internal/infrastructure/kkm"
	"github.com/tu-usuario/retail-pos/internal/infrastructure/postgres"
	httpRouter "github.com/tu-usuario/retail-pos/internal/interfaces/http"
	"github.com/tu-usuario/retail-pos/pkg/config"
	"github.com/tu-usuario/retail-pos/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Bus de eventos: Redis si está configurado, noop si no.
	var bus pos.EventBus = events.NewNoopBus()
	if cfg.Redis.Addr != "" {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer redisClient.Close()
		bus = events.NewRedisBus(redisClient, cfg.Redis.ChannelPrefix, log)
	}

	// Proveedores KKM: el adaptador HTTP por defecto se registra con la clave
	// configurada; tiendas en modo MANUAL o sin perfil no lo usan.
	registry := kkm.NewRegistry()
	if cfg.KKM.BaseURL != "" {
		registry.Register(cfg.KKM.ProviderKey, kkm.NewHTTPAdapter(cfg.KKM.BaseURL, cfg.KKM.APIKey, cfg.KKM.Timeout))
	}

	txRunner := postgres.NewTxRunner(pool)
	poolSaleRepo := postgres.NewSaleRepository(pool)
	poolIdemRepo := postgres.NewIdempotencyRepository(pool)
	fiscalizer := pos.NewFiscalizer(registry, poolSaleRepo, log)

	shiftUC := pos.NewShiftUseCase(txRunner, poolIdemRepo, bus, log)
	saleUC := pos.NewSaleUseCase(txRunner, poolIdemRepo, fiscalizer, bus, log)
	returnUC := pos.NewReturnUseCase(txRunner, poolIdemRepo, bus, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Retail POS API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		ShiftUC:   shiftUC,
		SaleUC:    saleUC,
		ReturnUC:  returnUC,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
