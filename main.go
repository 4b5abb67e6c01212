// Command drugdb serves the drug database browser: a cached, searchable JSON
// view over the drug REST API with create, update and delete support.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/drugdb/apiclient"
	"github.com/giygas/drugdb/config"
	"github.com/giygas/drugdb/data"
	"github.com/giygas/drugdb/handlers"
	"github.com/giygas/drugdb/health"
	"github.com/giygas/drugdb/logging"
	"github.com/giygas/drugdb/notify"
	"github.com/giygas/drugdb/query"
	"github.com/giygas/drugdb/scheduler"
	"github.com/giygas/drugdb/server"
	"github.com/giygas/drugdb/validation"
	"github.com/giygas/drugdb/view"
	"golang.org/x/text/language"
)

const shutdownTimeout = 30 * time.Second

func main() {
	config.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.InitLoggerWithConfig(cfg, false)
	defer logging.Close()

	logging.Info("Configuration loaded",
		"env", cfg.Env,
		"api_url", cfg.APIURL,
		"refresh_interval", cfg.RefreshInterval.String(),
		"cache_stale_time", cfg.CacheStaleTime.String(),
	)

	refreshState := data.NewRefreshState()
	refreshState.SetServerStartTime(time.Now())

	api := apiclient.New(cfg.APIURL,
		apiclient.WithTimeout(cfg.RequestTimeout),
		apiclient.WithRateLimit(cfg.UpstreamRate, int64(cfg.UpstreamRate)+1),
	)

	feed := notify.NewFeed(0)
	queryClient := query.New(query.Options{
		StaleTime:  cfg.CacheStaleTime,
		GCTime:     cfg.CacheGCTime,
		RetryDelay: cfg.RetryDelay,
		Retries:    1,
		Notifier:   notify.Multi{notify.LogNotifier{}, feed},
	})
	queries := query.NewDrugQueries(queryClient, api)

	sched := scheduler.NewScheduler(refreshState, queries, cfg.RefreshInterval, cfg.CacheGCTime)
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		queryClient.Close()
		os.Exit(1)
	}

	healthChecker := health.NewHealthChecker(refreshState, cfg.RefreshInterval, cfg.APIURL)
	handler := handlers.NewHTTPHandler(
		queries,
		validation.NewDataValidator(),
		healthChecker,
		feed,
		view.NewSorter(language.Make(cfg.Locale)),
		cfg.PageSize,
	)
	srv := server.NewServer(cfg, handler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	exitCode := 0
	select {
	case <-quit:
	case err := <-serverErr:
		logging.Error("Server failed to start", "error", err)
		exitCode = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server shutdown failed", "error", err)
		exitCode = 1
	}
	sched.Stop()
	queryClient.Close()

	logging.Info("Shutdown complete")
	if exitCode != 0 {
		logging.Close()
		os.Exit(exitCode)
	}
}
