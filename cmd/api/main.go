package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/homelistingai/leadflow/internal/clock"
	"github.com/homelistingai/leadflow/internal/config"
	"github.com/homelistingai/leadflow/internal/infra/auth"
	"github.com/homelistingai/leadflow/internal/infra/http/handlers"
	"github.com/homelistingai/leadflow/internal/infra/logging"
	"github.com/homelistingai/leadflow/internal/infra/mail"
	"github.com/homelistingai/leadflow/internal/infra/queue"
	"github.com/homelistingai/leadflow/internal/infra/remote"
	"github.com/homelistingai/leadflow/internal/infra/store"
	"github.com/homelistingai/leadflow/internal/infra/worker"
	"github.com/homelistingai/leadflow/internal/usecase"
)

const version = "1.0.0"

func main() {
	configPath := pflag.String("config", "", "path to a YAML config file")
	addr := pflag.String("addr", "", "HTTP listen address (overrides config)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	flush, err := logging.InitSentry(cfg.SentryDSN, cfg.Environment, version)
	if err != nil {
		log.WithError(err).Warn("Sentry disabled")
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Store
	st, err := store.BuildStoreFromDSN(cfg.StoreDSN)
	if err != nil {
		log.WithError(err).Fatal("Store unavailable")
	}
	defer st.Close()

	// 2. Remote backend
	var remoteClient usecase.RemoteClient
	if cfg.Remote.BaseURL != "" {
		var authenticator remote.Authenticator = auth.NewJWTAuthenticator(cfg.JWTSecret, "leadflow", 0)
		if cfg.Remote.Token != "" {
			authenticator = auth.StaticToken(cfg.Remote.Token)
		}
		client, err := remote.NewHTTPClient(cfg.Remote.BaseURL, authenticator, cfg.Remote.Timeout, nil)
		if err != nil {
			log.WithError(err).Fatal("Remote client")
		}
		remoteClient = client
	} else {
		log.Warn("⚠️ REMOTE_BASE_URL not set, running on the local store only")
	}

	// 3. Queue, producer and step worker
	var events usecase.EventPublisher
	var rabbitMQ *queue.RabbitMQ
	if cfg.AMQPURL != "" {
		rabbitMQ, err = queue.NewRabbitMQ(cfg.AMQPURL)
		if err != nil {
			log.WithError(err).Fatal("RabbitMQ unavailable")
		}
		defer rabbitMQ.Close()
		events = queue.NewProducer(rabbitMQ.Ch)

		mailer := mail.NewStepMailer(mail.NewEmailSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.From), log)
		stepWorker := queue.NewWorker(rabbitMQ.Ch, mailer, log)
		go func() {
			if err := stepWorker.Start(ctx, queue.StepDueQueue); err != nil {
				logging.ReportError(log, "worker", err, logrus.Fields{"queue": queue.StepDueQueue})
			}
		}()
	} else {
		log.Warn("⚠️ AMQP_URL not set, lead events and step delivery disabled")
	}

	// 4. Controller and scheduler
	ctrl := usecase.NewLifecycleController(st, remoteClient, events, clock.Real(), log, usecase.Options{
		SeedDemoUsers: cfg.SeedDemoUsers,
	})
	ctrl.Load(ctx, auth.DefaultTenant)

	scheduler := worker.NewFollowUpScheduler(ctrl, clock.Real(), cfg.Scheduler.Interval, log)
	go scheduler.Start(ctx)

	// 5. Router
	tenantAuth := auth.HeaderTenant
	if cfg.JWTSecret != "" {
		tenantAuth = auth.Middleware(cfg.JWTSecret)
	}
	health := handlers.NewHealthHandler(nil, storeKind(cfg.StoreDSN), cfg.Remote.BaseURL)
	if rabbitMQ != nil {
		health.RabbitMQ = rabbitMQ.Conn
	}
	router := handlers.NewRouter(handlers.RouterConfig{
		Ctx:            ctx,
		Controller:     ctrl,
		Health:         health,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Auth:           tenantAuth,
		Log:            log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Graceful shutdown failed")
		}
	}()

	log.Infof("🔥 Leadflow API listening on %s", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("HTTP server stopped")
	}
	log.Info("Shutdown complete")
}

func storeKind(dsn string) string {
	if i := strings.Index(dsn, "://"); i > 0 {
		return dsn[:i]
	}
	if dsn == "" {
		return "memory"
	}
	return "file"
}
