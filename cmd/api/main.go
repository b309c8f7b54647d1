package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MiCiudadSV/internal/config"
	"MiCiudadSV/internal/metrics"
	"MiCiudadSV/internal/migrate"
	"MiCiudadSV/internal/pkg"
	"MiCiudadSV/internal/repository/mysql"
	"MiCiudadSV/internal/repository/redis"
	"MiCiudadSV/internal/router"
	"MiCiudadSV/internal/service"
	"MiCiudadSV/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	pkg.SetupLogger(cfg.App.IsProd(), cfg.App.LogLevel)
	if cfg.App.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := mysql.InitDB(ctx, cfg.DB)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	defer mysql.Close(db)

	if cfg.App.AutoMigrate {
		sqlDB, err := db.DB()
		if err != nil {
			logrus.WithError(err).Fatal("failed to get sql.DB")
		}
		runner, err := migrate.New(sqlDB)
		if err != nil {
			logrus.WithError(err).Fatal("failed to configure migrations")
		}
		if err := runner.Up(ctx); err != nil {
			logrus.WithError(err).Fatal("migrations failed")
		}
	}

	// Redis is optional: without it the directory is uncached and tokens are checked by signature only.
	var (
		cache  service.DirectoryCache
		tokens service.TokenStore
		codes  service.CodeStore
	)
	if cfg.Redis.Enabled() {
		rdb, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			logrus.WithError(err).Fatal("failed to connect to redis")
		}
		defer rdb.Close()
		cache = redis.NewDirectoryCache(rdb, cfg.Redis.CacheTTL)
		tokens = redis.NewTokenStore(rdb, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
		codes = redis.NewCodeStore(rdb)
	} else {
		logrus.Warn("REDIS_ADDR not set, running without cache and token store")
	}

	var mailer service.Mailer
	smtpCfg := pkg.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}
	if smtpCfg.Enabled() {
		mailer = pkg.NewSMTPMailer(smtpCfg)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	hub := ws.NewHub(m)
	go hub.Run(ctx)

	communityRepo := &mysql.CommunityRepository{DB: db}
	issuer := pkg.NewTokenIssuer(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	communitySvc := service.NewCommunityService(communityRepo, cache, cfg.Photos.BaseURL)
	membershipSvc := service.NewMembershipService(&mysql.MembershipRepository{DB: db}, cache, hub)
	messageSvc := service.NewMessageService(&mysql.MessageRepository{DB: db}, communityRepo, cache, hub, cfg.Photos.BaseURL)
	emailSvc := service.NewEmailService(codes, mailer)
	userSvc := service.NewUserService(&mysql.UserRepository{DB: db}, tokens, issuer, emailSvc, cfg.Photos)

	var sender service.Sender = service.LogSender
	if cfg.Kafka.Enabled() {
		producer := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		defer producer.Close()
		sender = service.KafkaSender(producer)
	}
	relayer := service.NewOutboxRelayer(&mysql.OutboxRepository{DB: db}, cfg.Outbox, sender, m)
	go relayer.Run(ctx)

	engine := router.InitRouter(cfg, router.Deps{
		Communities:    communitySvc,
		Members:        membershipSvc,
		Messages:       messageSvc,
		Users:          userSvc,
		Auth:           userSvc,
		Hub:            hub,
		Ping:           func(ctx context.Context) error { return mysql.Ping(ctx, db) },
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              cfg.App.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", cfg.App.Addr).Info("api server starting")
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownGracePeriod)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("graceful shutdown failed")
		}
		logrus.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("server error")
			os.Exit(1)
		}
	}
}
