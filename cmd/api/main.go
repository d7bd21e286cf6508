// server/cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"mediradar-api-server/config"
	"mediradar-api-server/internal/api/routes"
	"mediradar-api-server/internal/auth"
	"mediradar-api-server/internal/database"
	"mediradar-api-server/internal/lifecycle"
	"mediradar-api-server/internal/logger"
	"mediradar-api-server/internal/metrics"
	"mediradar-api-server/internal/ratelimit"
	"mediradar-api-server/internal/s3"
	"mediradar-api-server/internal/service"
	"mediradar-api-server/internal/socket"
	"mediradar-api-server/internal/store"
	"mediradar-api-server/internal/store/memory"
	mongostore "mediradar-api-server/internal/store/mongo"
	pgstore "mediradar-api-server/internal/store/postgres"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const serviceName = "mediradar-api-server"

func main() {
	// 1. Load configuration; .env is optional
	_ = godotenv.Load()
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	// 2. Logger
	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		log.Fatalf("Could not create logger: %v", err)
	}
	defer zlog.Sync()
	if cfg.Log.Format != "console" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Store
	st, err := openStore(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to open store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer st.Close()

	if err := database.SeedDemoPharmacy(ctx, st, cfg.Demo.OwnerID, zlog); err != nil {
		zlog.Warn("Failed to seed demo pharmacy", zap.Error(err))
	}

	// 4. Rate limiter: redis when configured, in-process otherwise
	var counter ratelimit.Counter = ratelimit.NewMemoryCounter()
	if cfg.Redis.Addr != "" {
		client, err := database.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			zlog.Warn("Redis unavailable, rate limiting per instance", zap.Error(err))
		} else {
			defer client.Close()
			counter = ratelimit.NewRedisCounter(client)
		}
	}
	limiter := ratelimit.New(counter, cfg.RateLimit.Requests, cfg.RateLimit.Window)

	// 5. Prescription uploads, enabled with an S3 bucket
	var uploader service.Uploader
	if cfg.S3.Bucket != "" {
		s3Uploader, err := s3.NewUploader(ctx, cfg.S3)
		if err != nil {
			zlog.Fatal("Failed to create S3 uploader", zap.Error(err))
		}
		uploader = s3Uploader
	} else {
		zlog.Info("S3 bucket not configured, prescription uploads disabled")
	}

	// 6. Auth, realtime hub, metrics and services
	supabase := auth.NewSupabaseClient(cfg.Supabase)
	var resolver auth.Resolver
	if cfg.Supabase.JWTSecret != "" || cfg.Supabase.Configured() {
		resolver = auth.NewResolver(cfg.Supabase.JWTSecret, supabase)
	}
	var users service.UserCounter
	if cfg.Supabase.Configured() {
		users = supabase
	}

	m := metrics.New()
	hub := socket.NewHub(zlog, m)
	loc, err := cfg.Hold.Location()
	if err != nil {
		zlog.Fatal("Invalid hold timezone", zap.Error(err))
	}
	policy := lifecycle.Policy{Reserve: cfg.Hold.Reserve, Extend: cfg.Hold.Extend, Location: loc}
	requests := service.NewRequestService(st, policy, hub, m, zlog)

	router := routes.SetupRouter(routes.Dependencies{
		Config:        cfg,
		Log:           zlog,
		Metrics:       m,
		Store:         st,
		Hub:           hub,
		Resolver:      resolver,
		APIKey:        auth.NewAPIKey(cfg.Pharmacy.APIKey),
		Limiter:       limiter,
		Requests:      requests,
		Admin:         service.NewAdminService(st, users, hub, m, zlog),
		Portal:        service.NewPortalService(st, m, zlog),
		Prescriptions: service.NewPrescriptionService(requests, st, uploader, m, zlog),
	})

	// 7. Start server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zlog.Info("Starting API server", zap.String("port", cfg.Server.Port), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Config, zlog *zap.Logger) (store.Store, error) {
	switch cfg.Database.Driver {
	case "", "postgres":
		db, err := database.OpenPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		s := pgstore.New(db)
		if cfg.Database.AutoMigrate {
			if err := s.Migrate(ctx); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			zlog.Info("Database schema applied")
		}
		return s, nil
	case "mongo":
		db, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		s := mongostore.New(db)
		if err := s.EnsureIndexes(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "memory":
		zlog.Warn("Using in-memory store; data is lost on restart")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}
