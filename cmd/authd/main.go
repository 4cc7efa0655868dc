// Command authd runs the credential and session issuance service.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/greenfield-shield/authd/auth"
	"github.com/greenfield-shield/authd/config"
	"github.com/greenfield-shield/authd/logger"
	"github.com/greenfield-shield/authd/observability"
	"github.com/greenfield-shield/authd/password"
	"github.com/greenfield-shield/authd/server"
	"github.com/greenfield-shield/authd/store"
	"github.com/greenfield-shield/authd/token"
)

func main() {
	configFile := flag.String("config", "", "path to config file")
	envFile := flag.String("env", "", "path to .env file")
	flag.Parse()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigFile: *configFile,
		EnvFile:    *envFile,
	})
	if err != nil {
		logger.Fatal("Failed to load configuration", map[string]interface{}{
			"error": err.Error(),
		})
	}

	logger.Init(cfg.Logging)
	log := logger.New(&cfg.Logging, cfg.Base.Name)

	if err := run(cfg, log); err != nil {
		log.Fatal("Service failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting service", map[string]interface{}{
		"name":        cfg.Base.Name,
		"version":     cfg.Base.Version,
		"environment": cfg.Base.Environment,
	})

	tp, err := observability.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	if tp != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Warn("Tracer shutdown error", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	db, err := store.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}

	tokens, err := token.NewService(cfg.Token)
	if err != nil {
		return err
	}
	hasher := password.New(cfg.Hasher)
	users := store.NewUserStore(db)
	authSvc := auth.NewService(users, hasher, tokens, log)

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware()
	handlers := server.NewHandlers(authSvc, db, cfg.Base.Name, cfg.Base.Version)
	server.RegisterRoutes(srv.GinEngine(), handlers, authSvc)

	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutdown signal received")

	if err := srv.Stop(context.Background()); err != nil {
		return err
	}

	log.Info("Service stopped")
	return nil
}
