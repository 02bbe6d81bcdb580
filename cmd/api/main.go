package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/config"
	appHTTP "github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/attendance"
	batchService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/batch"
	leaveService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/leave"
	policyService "github.com/cmlabs-hris/hris-attendance-engine/internal/service/policy"
	"github.com/redis/go-redis/v9"
)

const version = "v1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
	loc := cfg.Location()

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		os.Exit(1)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			fmt.Println("Error connecting to redis:", err)
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	transactor := postgresql.NewTransactor(db)
	policyRepo := postgresql.NewPolicyRepository(db)
	assignmentRepo := postgresql.NewAssignmentRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	holidayRepo := postgresql.NewHolidayRepository(db)
	balanceRepo := postgresql.NewBalanceRepository(db)
	requestRepo := postgresql.NewRequestRepository(db)
	directory := postgresql.NewDirectory(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	policySvc := policyService.NewPolicyService(policyService.NewRegistry(), policyRepo, assignmentRepo, transactor)
	resolver := policyService.NewResolver(assignmentRepo, policyRepo, directory)
	attendanceSvc := attendanceService.NewAttendanceService(attendanceRepo, holidayRepo, requestRepo, resolver, transactor, loc)
	accrualSvc := leaveService.NewAccrualService(balanceRepo, attendanceRepo, directory, resolver, transactor, loc)
	balanceSvc := leaveService.NewBalanceService(balanceRepo, requestRepo, resolver)

	var locker lock.Locker
	switch cfg.Batch.LockDriver {
	case config.LockDriverRedis:
		locker = lock.NewRedisLocker(redisClient)
	default:
		locker = postgresql.NewBatchLocker(db)
	}

	orchestrator := batchService.NewOrchestrator(
		attendanceRepo,
		holidayRepo,
		requestRepo,
		directory,
		accrualSvc,
		locker,
		lock.Options{AtMostFor: cfg.Batch.LockAtMostFor, AtLeastFor: cfg.Batch.LockAtLeastFor},
		cfg.Batch.AccrualConcurrency,
		loc,
	)

	var scheduler *cron.Scheduler
	if cfg.Batch.Enabled {
		scheduler = cron.NewScheduler()
		cron.NewAttendanceJobs(orchestrator, loc, cfg.Batch.CloseBeforeAbsent).RegisterJobs(scheduler)
		scheduler.Start()
		slog.Info("Batch scheduler started", "lock_driver", cfg.Batch.LockDriver, "timezone", loc.String())
	}

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{AllowedOrigins: cfg.App.AllowedOrigins, Env: cfg.App.Env, Version: version},
		JWTService,
		appHTTP.NewPolicyHandler(policySvc, resolver, loc),
		appHTTP.NewAttendanceHandler(attendanceSvc, loc),
		appHTTP.NewBalanceHandler(balanceSvc, accrualSvc, loc),
		appHTTP.NewBatchHandler(orchestrator, loc),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down")
	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}
