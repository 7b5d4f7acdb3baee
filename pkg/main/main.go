package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/api"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/backend"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/config"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/database"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/logger"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/notify"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/worker"

	"github.com/DeanThompson/ginpprof"
	"github.com/gin-gonic/gin"
)

var (
	version    string
	buildstamp string
	githash    string
)

// main loads the configuration, opens the data source, starts the worker
// pools and the cron jobs and serves the dashboard until SIGINT or SIGTERM.
func main() {
	if err := loadConfig(os.Stderr); err != nil {
		os.Exit(1)
	}

	general := config.GetSettingsGeneral()
	logger.InitLogger(logger.Config{
		LogLevel:      general.LogLevel,
		LogFileSize:   general.LogFileSize,
		LogFileCount:  general.LogFileCount,
		LogCompress:   general.LogCompress,
		LogToFileOnly: general.LogToFileOnly,
		LogColorize:   general.LogColorize,
		TimeFormat:    general.TimeFormat,
		TimeZone:      general.TimeZone,
	})
	logger.LogDynamicany(logger.StatusInfo, "Starting go_admissions_admin")
	logger.LogDynamicany(logger.StatusInfo, "Version: "+version+" "+githash)
	logger.LogDynamicany(logger.StatusInfo, "Build Date: "+buildstamp)
	logger.LogDynamicany(logger.StatusInfo, "------------------------------")

	worker.InitWorkerPools(general.BulkWorkers, 2)

	opts := api.Options{}
	useSQLite := general.DataSource == "sqlite"
	if useSQLite {
		logger.LogDynamicany(logger.StatusInfo, "Initialize Database", "file", general.DatabaseFile)
		if err := database.InitDB(general.DatabaseFile); err != nil {
			logger.LogDynamicanyErr(logger.StatusFatal, "Database Initialization Failed", err)
		}
		opts.DB = database.GetDB()
		logger.LogDynamicany(logger.StatusInfo, "Database ready", "version", database.GetVersion())
	} else {
		opts.Client = backend.NewClient(backend.ConfigFromSettings(config.GetSettingsBackend()))
	}
	if p := notify.NewPushover(config.GetSettingsNotification()); p != nil {
		opts.Remote = p
	}

	app := api.NewApp(opts)

	logger.LogDynamicany(logger.StatusInfo, "Create Cron Worker")
	worker.CreateCronWorker()
	if err := worker.DispatchCron("session_cleanup", general.SessionCleanupCron, app.CleanupExpired); err != nil {
		logger.LogDynamicanyErr(logger.StatusError, "session cleanup not scheduled", err)
	}
	if useSQLite && general.DatabaseBackupCron != "" {
		err := worker.DispatchCron("database_backup", general.DatabaseBackupCron, func() {
			if err := database.Backup("./backup", config.GetSettingsGeneral().DatabaseBackupCount); err != nil {
				logger.LogDynamicanyErr(logger.StatusError, "database backup failed", err)
			}
		})
		if err != nil {
			logger.LogDynamicanyErr(logger.StatusError, "database backup not scheduled", err)
		}
	}
	worker.StartCronWorker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if general.EnableFileWatcher {
		go func() {
			err := config.Watch(ctx, func() {
				logger.LogDynamicany(logger.StatusInfo, "configuration reloaded")
				app.ResetLists()
			})
			if err != nil {
				logger.LogDynamicanyErr(logger.StatusError, "config watcher stopped", err)
			}
		}()
	}

	logger.LogDynamicany(logger.StatusInfo, "Starting API")
	if !strings.EqualFold(general.LogLevel, logger.StrDebug) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.GinLogger(), logger.ErrorLogger(), gin.Recovery())
	app.AddRoutes(router)

	if strings.EqualFold(general.LogLevel, logger.StrDebug) {
		ginpprof.Wrap(router)
	}

	server := http.Server{
		Addr:              ":" + general.WebPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.LogDynamicanyErr(logger.StatusError, "listen", err)
		}
	}()
	logger.LogDynamicany(logger.StatusInfo, "Started API Webserver on port", "port", general.WebPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.LogDynamicany(logger.StatusInfo, "Server shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.LogDynamicanyErr(logger.StatusError, "server shutdown", err)
	}

	worker.StopCronWorker()
	worker.CloseWorkerPools()
	logger.LogDynamicany(logger.StatusInfo, "Queues stopped")

	database.DBClose()
	logger.LogDynamicany(logger.StatusInfo, "Server exiting")
}

// loadConfig loads the configuration and reports a failure on w, since the
// logger is not set up yet.
func loadConfig(w io.Writer) error {
	err := config.LoadCfgDB()
	if err != nil {
		fmt.Fprintf(w, "Failed to load configuration %s: %v\n", config.Configfile, err)
	}
	return err
}
