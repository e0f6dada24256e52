package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/campaign-attendance-go/internal/config"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/domain/hierarchy"
	appHTTP "github.com/cmlabs-hris/campaign-attendance-go/internal/handler/http"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/cron"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/source"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/sse"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/pkg/storage"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/campaign-attendance-go/internal/service/file"
	reportService "github.com/cmlabs-hris/campaign-attendance-go/internal/service/report"
)

const (
	sseBuffer       = 16
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		attendanceSource attendance.Source
		optionSource     hierarchy.OptionSource
	)
	switch cfg.Source.Type {
	case config.SourceHTTP:
		client := source.NewClient(cfg.Source.BaseURL, cfg.Source.Timeout)
		attendanceSource = client
		optionSource = client
	case config.SourcePostgres:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolConfig{MaxConns: int32(cfg.Database.MaxConns)})
		if err != nil {
			log.Fatal("Error connecting to database: ", err)
		}
		defer db.Close()
		attendanceSource = postgresql.NewAttendanceSource(db, cfg.Location())
		optionSource = postgresql.NewHierarchyRepository(db)
	default:
		log.Fatal("Unsupported source type: ", cfg.Source.Type)
	}

	var fileStorage storage.FileStorage
	switch cfg.Storage.Type {
	case config.StorageLocal:
		fileStorage, err = storage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL)
		if err != nil {
			log.Fatal("Failed to initialize local storage: ", err)
		}
	default:
		log.Fatal("Unsupported storage types: ", cfg.Storage.Type)
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret)
	hub := sse.NewHub(sseBuffer)
	fileService := file.NewFileService(fileStorage)
	reportSvc := reportService.NewReportService(attendanceSource, optionSource, fileService, hub, reportService.Options{
		SourceBaseURL:  cfg.Source.BaseURL,
		SearchDebounce: cfg.Report.SearchDebounce,
		IdleTTL:        cfg.Report.SessionIdleTTL,
		Location:       cfg.Location(),
	})

	scheduler := cron.NewScheduler()
	jobs := cron.NewReportJobs(reportSvc, fileService, cfg.Report.SweepInterval, cfg.Report.ExportRetention)
	if err := jobs.RegisterJobs(scheduler); err != nil {
		log.Fatal("Failed to register background jobs: ", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	attendanceHandler := appHTTP.NewAttendanceHandler(reportSvc, JWTService)
	fileHandler := appHTTP.NewFileHandler(fileService)
	router := appHTTP.NewRouter(JWTService, attendanceHandler, fileHandler, appHTTP.RouterOptions{
		AppName:        cfg.App.Name,
		Version:        cfg.App.Version,
		Env:            cfg.App.Env,
		LogLevel:       cfg.SlogLevel(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedRoles:   cfg.Report.AllowedRoles,
		FilesURL:       cfg.Storage.BaseURL,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end when shutdown starts instead of holding Shutdown open
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr, "source", cfg.Source.Type)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
