package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/spf13/pflag"

	"github.com/iliyamo/seat-reservation/internal/config"
	"github.com/iliyamo/seat-reservation/internal/database"
	"github.com/iliyamo/seat-reservation/internal/handler"
	"github.com/iliyamo/seat-reservation/internal/memstore"
	"github.com/iliyamo/seat-reservation/internal/middleware"
	"github.com/iliyamo/seat-reservation/internal/queue"
	"github.com/iliyamo/seat-reservation/internal/repository"
	"github.com/iliyamo/seat-reservation/internal/reservation"
	"github.com/iliyamo/seat-reservation/internal/router"
	"github.com/iliyamo/seat-reservation/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("seat-reservation", pflag.ContinueOnError)
	envFile := flags.String("env-file", ".env", "load environment variables from this file if it exists")
	migrate := flags.Bool("migrate", false, "create the SQL schema before serving")
	consume := flags.Bool("consumer", false, "also run the sale.paid consumer writing logs/sales.log")
	mint := flags.String("mint-token", "", "print a development token for ROLE:ID (e.g. CUSTOMER:101) and exit")
	mintTTL := flags.Duration("mint-ttl", 24*time.Hour, "lifetime of a minted token")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}
	if *mint != "" {
		return mintToken(*mint, *mintTTL)
	}

	cfg := config.Load()
	log.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store   reservation.Store
		catalog handler.CatalogWriter
	)
	switch cfg.Store {
	case config.StoreMemory:
		mem := memstore.New()
		store, catalog = mem, mem
	default:
		db, d, err := database.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer db.Close()
		if *migrate {
			if err := database.Migrate(ctx, db, d); err != nil {
				return err
			}
			log.Infof("schema ready (%s)", d.Name)
		}
		sqlStore := repository.NewStore(db, d)
		store, catalog = sqlStore, sqlStore.Setup()
	}

	var opts []reservation.Option
	if cfg.AMQPURL != "" {
		opts = append(opts, reservation.WithNotifier(queue.NewPublisher(cfg.AMQPURL)))
		if *consume {
			go func() {
				if err := queue.NewConsumer(cfg.AMQPURL).Run(ctx); err != nil {
					log.Errorf("sale-consumer stopped: %v", err)
				}
			}()
		}
	} else if *consume {
		log.Warn("--consumer ignored: AMQP_URL is not set")
	}
	engine := reservation.NewEngine(store, cfg.HoldTTL, opts...)

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(cfg.LogLevel)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Infof("%s %s %d %s ip=%s", v.Method, v.URI, v.Status, v.Latency, v.RemoteIP)
			return nil
		},
	}))

	router.RegisterRoutes(e)
	router.RegisterPublic(e, &handler.SeatMapHandler{Engine: engine, Catalog: catalog}, cfg.JWTSecret,
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterBuyer(e, handler.NewBuyerHandler(engine, catalog), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterOperator(e, &handler.OperatorHandler{Catalog: catalog, Engine: engine}, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Infof("listening on %s (env=%s store=%s hold_ttl=%s)", addr, cfg.Env, cfg.Store, engine.HoldTTL())
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// mintToken prints a signed development token for "ROLE:ID".
func mintToken(arg string, ttl time.Duration) error {
	role, rawID, ok := strings.Cut(arg, ":")
	role = strings.ToUpper(role)
	if !ok || (role != utils.RoleCustomer && role != utils.RoleOperator) {
		return fmt.Errorf("--mint-token wants ROLE:ID with ROLE CUSTOMER or OPERATOR, got %q", arg)
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("--mint-token: invalid id %q", rawID)
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return errors.New("--mint-token: JWT_SECRET is not set")
	}
	tok, err := utils.NewAccessToken(secret, id, role, ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok.Token)
	return nil
}
