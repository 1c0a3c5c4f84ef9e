package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/premium-store/internal/catalog"
	"github.com/flicky/premium-store/internal/config"
	"github.com/flicky/premium-store/internal/handler"
	"github.com/flicky/premium-store/internal/metrics"
	"github.com/flicky/premium-store/internal/notify"
	"github.com/flicky/premium-store/internal/oauth"
	"github.com/flicky/premium-store/internal/payment"
	"github.com/flicky/premium-store/internal/realtime"
	"github.com/flicky/premium-store/internal/repository"
	"github.com/flicky/premium-store/internal/service"
	"github.com/flicky/premium-store/internal/upload"
	"github.com/flicky/premium-store/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	if err := repository.Migrate(ctx, dbPool); err != nil {
		log.Error("migrate database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	subRepo := repository.NewSubscriptionRepository(dbPool)
	statsRepo := repository.NewStatsRepository(dbPool)
	cartRepo := repository.NewCartRepository(redisClient)

	// Outbound channels
	var (
		adminNotifier  service.AdminNotifier  = notify.Disabled{Channel: "telegram", Log: log}
		customerMailer service.CustomerMailer = notify.Disabled{Channel: "email", Log: log}
		bot            *notify.Telegram
	)
	if cfg.Telegram.Enabled {
		bot, err = notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.AdminChatID, cfg.Bank.Currency, log)
		if err != nil {
			log.Error("connect to Telegram", "error", err)
			os.Exit(1)
		}
		adminNotifier = bot
	}
	if cfg.SMTP.Enabled {
		customerMailer = notify.NewMailer(notify.MailConfig{
			Host:          cfg.SMTP.Host,
			Port:          cfg.SMTP.Port,
			User:          cfg.SMTP.User,
			Password:      cfg.SMTP.Password,
			From:          cfg.SMTP.From,
			SiteURL:       cfg.Site.URL,
			Currency:      cfg.Bank.Currency,
			WhatsAppPhone: cfg.Site.WhatsAppPhone,
		})
	}
	hub := realtime.NewHub(cfg.Site.URL, log)
	imageHost := upload.NewImageHost(upload.Config{
		Endpoint: cfg.ImageHost.Endpoint,
		APIKey:   cfg.ImageHost.APIKey,
		Timeout:  cfg.ImageHost.Timeout,
		Retries:  cfg.ImageHost.Retries,
	}, log)

	dispatcher := worker.NewDispatcher(orderRepo, userRepo, adminNotifier, customerMailer, m, log)

	// RabbitMQ, or in-process dispatch without a broker
	var (
		publisher   service.EventPublisher
		amqpConn    *amqp.Connection
		orderWorker *worker.NotificationWorker
		inline      *worker.InlinePublisher
	)
	if cfg.RabbitMQ.Enabled {
		amqpConn, err = amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			log.Error("connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer amqpConn.Close()

		consumeCh, err := amqpConn.Channel()
		if err != nil {
			log.Error("open RabbitMQ channel", "error", err)
			os.Exit(1)
		}
		defer consumeCh.Close()

		if err := worker.SetupRabbitMQ(consumeCh); err != nil {
			log.Error("setup RabbitMQ", "error", err)
			os.Exit(1)
		}

		publishCh, err := amqpConn.Channel()
		if err != nil {
			log.Error("open RabbitMQ channel", "error", err)
			os.Exit(1)
		}
		defer publishCh.Close()

		publisher = worker.NewAMQPPublisher(publishCh)
		orderWorker = worker.NewNotificationWorker(consumeCh, dispatcher, worker.NewRedisDeduper(redisClient), log)
		log.Info("connected to RabbitMQ")
	} else {
		inline = worker.NewInlinePublisher(dispatcher, cfg.Server.NotifyTimeout, log)
		publisher = inline
		log.Warn("RabbitMQ disabled, dispatching order notifications in-process")
	}

	// Services
	authSvc := service.NewAuthService(userRepo,
		oauth.NewGoogle(oauth.Config{
			ClientID:     cfg.OAuth.GoogleClientID,
			ClientSecret: cfg.OAuth.GoogleClientSecret,
			RedirectURL:  cfg.OAuth.GoogleRedirectURL,
		}),
		repository.NewStateStore(redisClient), cfg.Admin, cfg.JWT.Secret, cfg.JWT.Expiration)
	productSvc := service.NewProductService(productRepo, redisClient, log)
	cartSvc := service.NewCartService(cartRepo, productRepo)
	orderSvc := service.NewOrderService(service.OrderDeps{
		Orders:       orderRepo,
		Products:     productRepo,
		Users:        userRepo,
		Carts:        cartRepo,
		Uploader:     imageHost,
		ReceiptHosts: cfg.ImageHost.ReceiptHosts,
		Publisher:    publisher,
		Cache:        productSvc,
		Metrics:      m,
		Log:          log,
	})
	approvalSvc := service.NewApprovalService(service.ApprovalDeps{
		Orders:        orderRepo,
		Users:         userRepo,
		Notifier:      adminNotifier,
		Mailer:        customerMailer,
		Broadcaster:   hub,
		Cache:         productSvc,
		Metrics:       m,
		Log:           log,
		NotifyTimeout: cfg.Server.NotifyTimeout,
	})
	subSvc := service.NewSubscriptionService(subRepo)
	statsSvc := service.NewStatsService(statsRepo, userRepo)

	seed, err := catalog.Seed()
	if err != nil {
		log.Error("load seed catalog", "error", err)
		os.Exit(1)
	}
	added, err := productSvc.SyncCatalog(ctx, seed)
	if err != nil {
		log.Error("sync catalog", "error", err)
		os.Exit(1)
	}
	log.Info("catalog synced", "added", added, "seeded", len(seed))

	router := newRouter(cfg, routes{
		auth:          handler.NewAuthHandler(authSvc),
		products:      handler.NewProductHandler(productSvc),
		cart:          handler.NewCartHandler(cartSvc),
		orders:        handler.NewOrderHandler(orderSvc, payment.BankDetails(cfg.Bank)),
		admin:         handler.NewAdminHandler(approvalSvc, orderSvc, subSvc, statsSvc),
		subscriptions: handler.NewSubscriptionHandler(subSvc),
		ws:            handler.NewWSHandler(hub),
		health:        handler.NewHealthHandler(dbPool, redisClient, amqpConn),
		metrics:       m,
	})

	// Background consumers
	botCtx, stopBot := context.WithCancel(ctx)
	botDone := make(chan struct{})
	if bot != nil {
		bot.OnAdminAction(notify.DecisionAction(approvalSvc))
		go func() {
			defer close(botDone)
			bot.Run(botCtx)
		}()
		log.Info("telegram bot polling")
	} else {
		close(botDone)
	}

	if orderWorker != nil {
		if err := orderWorker.Start(ctx); err != nil {
			log.Error("start notification worker", "error", err)
			os.Exit(1)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	stopBot()
	<-botDone
	if orderWorker != nil {
		orderWorker.Stop()
	}
	if inline != nil {
		inline.Wait()
	}
	cancel()
	log.Info("server stopped")
}
