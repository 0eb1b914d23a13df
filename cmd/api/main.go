package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/inventario-stock/internal/application/inventory"
	"github.com/jhoicas/inventario-stock/internal/application/usecase"
	"github.com/jhoicas/inventario-stock/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-stock/internal/infrastructure/kafka"
	"github.com/jhoicas/inventario-stock/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-stock/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/inventario-stock/internal/interfaces/http"
	"github.com/jhoicas/inventario-stock/pkg/config"
	"github.com/jhoicas/inventario-stock/pkg/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistencia: PostgreSQL o memoria (desarrollo y demos).
	var (
		txRunner inventory.TxRunner
		repos    inventory.Repositories
	)
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		txRunner = memory.NewTxRunner(store, cfg.DB.LockTimeout)
		repos = store.Repositories()
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.DB.ApplySchema {
			if err := postgres.ApplySchema(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("aplicar esquema")
			}
			log.Info().Msg("esquema aplicado")
		}
		txRunner = postgres.NewTxRunner(pool, cfg.DB.LockTimeout)
		repos = postgres.NewRepositories(pool)
	}

	// Cache opcional del stock agregado por producto.
	var stockCache inventory.StockCache = inventory.NopStockCache{}
	if cfg.Redis.Enabled() {
		client, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible, se continúa sin cache")
		} else {
			defer client.Close()
			stockCache = cache.NewRedisStockCache(client, cfg.Redis.TTL, log)
		}
	}

	provisioner := inventory.NewProvisioner(repos, inventory.ProvisionerConfig{
		MaxAttempts:  cfg.Provisioning.MaxAttempts,
		RetryBackoff: cfg.Provisioning.RetryBackoff,
		ReorderPoint: cfg.Provisioning.DefaultReorderPoint,
	}, log.Named("provisioner"))
	ledgerUC := inventory.NewStockLedgerUseCase(txRunner, stockCache, log.Named("ledger"))
	queryUC := inventory.NewQueryUseCase(repos, stockCache)
	reorderUC := inventory.NewReorderUseCase(repos.Lines, repos.Branches)
	branchUC := usecase.NewBranchUseCase(txRunner, provisioner, repos.Branches, log.Named("branches"))
	productUC := usecase.NewProductUseCase(txRunner, provisioner, repos.Products, log.Named("products"))

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.HTTP.DocsFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.DocsFile,
			Path:     "docs",
			Title:    "Inventario Stock API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:      ledgerUC,
		Queries:     queryUC,
		Reorder:     reorderUC,
		Provisioner: provisioner,
		BranchUC:    branchUC,
		ProductUC:   productUC,
		JWTSecret:   cfg.JWT.Secret,
		JWTIssuer:   cfg.JWT.Issuer,
		Log:         log,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(cfg.HTTP.Addr())
	})
	if cfg.Kafka.Enabled() {
		listener := kafka.NewCatalogListener(kafka.NewReader(cfg.Kafka), provisioner, log)
		g.Go(func() error {
			return listener.Start(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("servidor finalizado con error")
	}
	log.Info().Msg("aplicación detenida")
}
