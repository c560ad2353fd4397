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

	"github.com/facturasv/dte-api/internal/application/auth"
	"github.com/facturasv/dte-api/internal/application/certificado"
	"github.com/facturasv/dte-api/internal/application/emision"
	"github.com/facturasv/dte-api/internal/application/evento"
	"github.com/facturasv/dte-api/internal/application/recurrente"
	"github.com/facturasv/dte-api/internal/infrastructure/mh"
	"github.com/facturasv/dte-api/internal/infrastructure/postgres"
	httpRouter "github.com/facturasv/dte-api/internal/interfaces/http"
	"github.com/facturasv/dte-api/pkg/cifrado"
	"github.com/facturasv/dte-api/pkg/config"
	"github.com/facturasv/dte-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	cifrador, err := cifrado.New(cfg.MH.CertKey)
	if err != nil {
		log.Fatal().Err(err).Msg("llave de cifrado de certificados")
	}

	tenantRepo := postgres.NewTenantRepository(pool)
	certRepo := postgres.NewCertificadoRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	dteRepo := postgres.NewDTERepository(pool)
	eventoRepo := postgres.NewEventoRepository(pool)
	plantillaRepo := postgres.NewPlantillaRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Cliente MH: autenticación con caché de tokens por tenant y ambiente
	mhClient := mh.NewClient(cfg.MH, log.Componente("mh"))
	credencialesUC := certificado.NewCredencialesUseCase(tenantRepo, cifrador)
	tokenCache := mh.NewTokenCache(mhClient, credencialesUC.Obtener, cfg.MH.TokenTTL)

	certificadoUC := certificado.NewUseCase(certRepo, cifrador, log.Componente("certificado"))

	emitterUC := emision.NewEmitterUseCase(
		txRunner, dteRepo, tenantRepo,
		certificadoUC, tokenCache, mhClient,
		emision.RetryPolicy{MaxAttempts: cfg.MH.ReintentosMax, BaseBackoff: cfg.MH.BackoffBase},
		cfg.MH.MaxEnviosConcurrentes,
		log.Componente("emision"),
	)

	eventoUC := evento.NewUseCase(
		eventoRepo, dteRepo, tenantRepo,
		certificadoUC, tokenCache, mhClient,
		log.Componente("evento"),
	)

	authUC := auth.NewAuthUseCase(userRepo, tenantRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	// Facturación recurrente: el scheduler emite por el mismo pipeline
	scheduler := recurrente.NewScheduler(plantillaRepo, emitterUC, cfg.MH.SchedulerIntervalo, log.Componente("scheduler"))
	go scheduler.Run(ctx)

	// Barrido de documentos atascados en PROCESANDO o ERROR
	reconciliador := emision.NewReconciliador(dteRepo, emitterUC, cfg.MH.SchedulerIntervalo, log.Componente("reconciliador"))
	go reconciliador.Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "FacturaSV API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		EmitterUC:      emitterUC,
		EventoUC:       eventoUC,
		CertificadoUC:  certificadoUC,
		CredencialesUC: credencialesUC,
		AuthUC:         authUC,
		Tenants:        tenantRepo,
		DTEs:           dteRepo,
		Plantillas:     plantillaRepo,
		JWTSecret:      cfg.JWT.Secret,
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
	cancel() // detiene el scheduler

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
