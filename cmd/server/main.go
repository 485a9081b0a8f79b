package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"feather-planner/internal/config"
	apphttp "feather-planner/internal/http"
	"feather-planner/internal/repository/memory"
	"feather-planner/internal/repository/sqlite"
	"feather-planner/internal/service"
	"feather-planner/internal/snapshot"
	"feather-planner/internal/storage"
	"feather-planner/internal/token"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	if err := configureLogger(logger, cfg); err != nil {
		logger.Fatalf("configure logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signer, err := token.NewSigner(cfg.Auth.JWTSecret, cfg.TokenTTL())
	if err != nil {
		logger.Fatalf("token signer: %v", err)
	}
	passwords, err := service.NewPasswords(cfg.Auth.PasswordHashing)
	if err != nil {
		logger.Fatalf("password storage: %v", err)
	}
	stalePolicy, err := service.ParseStalePolicy(cfg.Calendar.StalePolicy)
	if err != nil {
		logger.Fatalf("calendar stale policy: %v", err)
	}

	userRepo := memory.NewUserRepository(logger)
	calendarRepo := memory.NewCalendarRepository(logger)

	var snapshots snapshot.Manager
	if cfg.Snapshot.Path != "" {
		db, err := sqlite.Open(cfg.Snapshot.Path)
		if err != nil {
			logger.Fatalf("open snapshot database: %v", err)
		}
		defer db.Close()

		snapshotRepo := sqlite.NewSnapshotRepository(db)
		if err := snapshotRepo.Init(ctx); err != nil {
			logger.Fatalf("init snapshot repository: %v", err)
		}

		snapshots = snapshot.NewManager(snapshot.Config{
			Interval: cfg.SnapshotInterval(),
			Logger:   logger,
		}, snapshotRepo, userRepo, calendarRepo)

		if err := snapshots.Restore(ctx); err != nil {
			logger.Fatalf("restore snapshot: %v", err)
		}
		if err := snapshots.Start(ctx); err != nil {
			logger.Fatalf("start snapshot manager: %v", err)
		}
	}

	accountService := service.NewAccountService(userRepo, signer, passwords, logger)
	calendarService := service.NewCalendarService(calendarRepo, stalePolicy, logger)

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}
	exportService := service.NewExportService(service.ExportConfig{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
		Logger:    logger,
	}, calendarService, storageSvc)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		accountService,
		calendarService,
		exportService,
		logger,
		cfg.CORS.AllowOrigin,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if snapshots != nil {
		snapshots.Shutdown()
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

// buildStorage returns nil when no bucket is configured; exports are then disabled.
func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("no export bucket configured, calendar exports disabled")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s) for exports", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
