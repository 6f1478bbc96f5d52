package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/config"
	"github.com/iliyamo/theatre-box-office/internal/database"
	"github.com/iliyamo/theatre-box-office/internal/handler"
	"github.com/iliyamo/theatre-box-office/internal/logger"
	"github.com/iliyamo/theatre-box-office/internal/middleware"
	"github.com/iliyamo/theatre-box-office/internal/queue"
	"github.com/iliyamo/theatre-box-office/internal/repository"
	"github.com/iliyamo/theatre-box-office/internal/router"
	"github.com/iliyamo/theatre-box-office/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.OutputPath = cfg.Log.Output
	logCfg.Development = !cfg.IsProduction()
	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(database.Options{
		User:            cfg.DB.User,
		Pass:            cfg.DB.Pass,
		Host:            cfg.DB.Host,
		Port:            strconv.Itoa(cfg.DB.Port),
		Name:            cfg.DB.Name,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	showRepo := repository.NewShowRepo(db)
	customerRepo := repository.NewCustomerRepo(db)
	ticketRepo := repository.NewTicketRepo(db)

	var (
		events service.EventPublisher
		wg     sync.WaitGroup
	)
	if cfg.Events.Enabled {
		pub := queue.NewPublisher(cfg.Events.RabbitMQURL, log)
		defer pub.Close()
		events = pub
		if cfg.Events.Consume {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := queue.StartTicketConsumer(ctx, cfg.Events.RabbitMQURL, cfg.Events.LogDir, log)
				if err != nil && !errors.Is(err, context.Canceled) {
					log.Error("ticket consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	catalog := service.NewCatalog(showRepo, log)
	directory := service.NewDirectory(customerRepo, log)
	ledger := service.NewLedger(showRepo, customerRepo, ticketRepo, events, log)

	var api []echo.MiddlewareFunc
	if rdb := config.NewRedisClient(cfg.Redis, log); rdb != nil {
		defer rdb.Close()
		api = append(api,
			middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
			middleware.NewRedisCache(cfg.Cache, rdb, log),
		)
	}

	e := router.New(router.Handlers{
		Shows:     handler.NewShowHandler(catalog, ledger, log),
		Customers: handler.NewCustomerHandler(directory, log),
		Tickets:   handler.NewTicketHandler(ledger, log),
	}, log, api...)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr()), zap.String("env", cfg.App.Env))
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	wg.Wait()
	return nil
}
