package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	redisv9 "github.com/redis/go-redis/v9"

	"task_backend/internal/app/di"
	"task_backend/internal/app/router"
	authadapters "task_backend/internal/feature/auth/adapters"
	authhandler "task_backend/internal/feature/auth/transport/handler"
	authusecase "task_backend/internal/feature/auth/usecase"
	taskadapters "task_backend/internal/feature/tasks/adapters"
	taskentity "task_backend/internal/feature/tasks/domain/entity"
	taskhandler "task_backend/internal/feature/tasks/transport/handler"
	taskusecase "task_backend/internal/feature/tasks/usecase"
	"task_backend/internal/platform/config"
	platformdb "task_backend/internal/platform/db"
	"task_backend/internal/platform/http/handler"
	jwtmw "task_backend/internal/platform/jwt"
	"task_backend/internal/platform/logger"
	platformredis "task_backend/internal/platform/redis"
)

func main() {
	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env)
	log.Info("starting task service", slog.String("env", cfg.Env))

	if cfg.Env == config.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("service stopped with error", slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("service stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	// db
	db, err := platformdb.OpenDB(cfg.DB)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Error("failed to close database", slog.String("err", err.Error()))
		}
	}()
	if cfg.DB.RunMigrations {
		if err := platformdb.Migrate(db); err != nil {
			return err
		}
	}

	// Redis（任意）
	var rdb *redisv9.Client
	if cfg.RedisEnabled() {
		rdb, err = platformredis.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Error("failed to close Redis client", slog.String("err", err.Error()))
			}
		}()
	} else {
		log.Warn("Redis is not configured; login throttling is per process")
	}

	// 署名鍵は起動時に一度だけ決める
	secret, source, err := jwtmw.ResolveSecret(ctx, cfg.Auth.JWTSecret,
		di.NewSecretStore(rdb, cfg.Auth.SecretStoreKey), cfg.Auth.AllowRandomSecret)
	if err != nil {
		return err
	}
	log.Info("jwt secret resolved", slog.String("source", string(source)))
	codec := jwtmw.NewCodec(secret, cfg.Auth.TokenTTL)

	// Repository
	userRepo := authadapters.NewUserGorm(db, &taskentity.Task{})
	taskRepo := taskadapters.NewTaskGorm(db)

	// Usecase
	limiter := di.NewLoginLimiter(rdb, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow)
	authUC := authusecase.NewAuthUsecase(userRepo, codec, limiter, cfg.Auth.BcryptCost)
	taskUC := taskusecase.NewTaskUsecase(taskRepo)

	// Handler
	authH := authhandler.NewAuthHandler(authUC)
	taskH := taskhandler.NewTaskHandler(taskUC)

	// ルータ生成
	r := router.NewRouter(authH, taskH, jwtmw.AuthRequired(codec, authUC),
		handler.Readiness(sqlDB), cfg.CORS.AllowOrigins)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server is running", slog.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}
