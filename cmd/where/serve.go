package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"

	"github.com/totegamma/where/internal/infra/database"
	"github.com/totegamma/where/internal/infra/gateway"
	"github.com/totegamma/where/internal/infra/repository"
	"github.com/totegamma/where/internal/interface/rest"
	"github.com/totegamma/where/internal/interface/rest/middleware"
	"github.com/totegamma/where/internal/service"
	"github.com/totegamma/where/internal/usecase"
)

const serviceName = "where"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	conf, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	if conf.Server.EnableTrace {
		cleanup, err := setupTraceProvider(ctx, conf.Server.TraceEndpoint)
		if err != nil {
			return err
		}
		defer cleanup()
		log.Info("tracing enabled", zap.String("endpoint", conf.Server.TraceEndpoint))
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn, log)
	if err != nil {
		return err
	}
	if err := database.MigratePostgres(db); err != nil {
		return err
	}

	rdb, err := database.NewRedis(ctx, conf.Server.RedisAddr, "", conf.Server.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	var mc *memcache.Client
	if conf.Server.MemcachedAddr != "" {
		mc = database.NewMemcached(conf.Server.MemcachedAddr)
	}

	signalService := service.NewSignalService(rdb, log.Named("signal"))
	authService := service.NewAuthService(conf.Auth)
	s5 := gateway.NewS5Client(conf.S5.BaseURL, conf.S5.AdminKey, log)

	store := usecase.NewLocationStore(repository.NewLocationRepository(db), s5, signalService, log.Named("locations"))
	if err := store.Fetch(ctx); err != nil {
		return err
	}
	ledger := usecase.NewLedger(repository.NewLedgerRepository(db, mc, log), store, signalService, log.Named("ledger"))
	accounts := usecase.NewAccountUsecase(repository.NewUserRepository(db), authService, log.Named("accounts"))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover(log))
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware(serviceName, otelecho.WithSkipper(func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/realtime"
		})))
	}
	e.Use(middleware.RequestLogger(log.Named("http")))
	e.Use(echomiddleware.CORS())
	e.Use(middleware.NewAuthMiddleware(authService).IdentifyIdentity)

	rest.NewHandler(store, ledger, accounts, signalService, log.Named("rest")).RegisterRoutes(e)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", conf.Server.Listen), zap.Int("locations", store.Len()))
		errCh <- e.Start(conf.Server.Listen)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}

func setupTraceProvider(ctx context.Context, endpoint string) (func(), error) {
	exporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.1))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			zap.L().Warn("failed to shutdown tracer provider", zap.Error(err))
		}
	}, nil
}

var passwordPattern = regexp.MustCompile(`(password=|://[^:/@]+:)[^ @]*`)

func redactDSN(dsn string) string {
	return passwordPattern.ReplaceAllString(dsn, "${1}***")
}
