package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/location-tracker/backend/internal/api"
	"github.com/location-tracker/backend/internal/config"
	"github.com/location-tracker/backend/internal/obs"
	"github.com/location-tracker/backend/internal/registry"
	"github.com/location-tracker/backend/internal/storage"
	"github.com/location-tracker/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

// run owns every deferred cleanup so main can exit with its status code.
func run() int {
	configPath, err := resolveConfigPath()
	if err != nil {
		fmt.Printf("Failed to resolve config path: %v\n", err)
		return 1
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		return 1
	}

	logger := obs.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("service_starting", "version", Version, "build_time", BuildTime, "config", configPath)

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Error("create_directories_failed", "error", err)
		return 1
	}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		logger.Error("storage_open_failed", "backend", cfg.Storage.Backend, "error", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("storage_close_failed", "error", err)
		}
	}()
	logger.Info("storage_ready", "backend", store.Name())

	reg := registry.NewService(store, registry.WithLogger(logger.With("component", "registry")))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, cfg, logger)
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Registry:       reg,
		StorageName:    store.Name(),
		Version:        Version,
		RequestTimeout: cfg.RequestTimeout(),
	}))

	if cfg.Web.Enabled && web.HasEmbeddedFiles() {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warn("static_routes_failed", "error", err)
		} else {
			logger.Info("serving_map_page")
		}
	}

	s := &http.Server{
		Addr:              cfg.GetServerAddr(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("http_listen", "addr", cfg.GetServerAddr())
	if err := serve(e, s, sigc, logger); err != nil {
		logger.Error("http_server_error", "error", err)
		return 1
	}
	logger.Info("service_stopped")
	return 0
}

// serve runs s until it fails or a value arrives on stop, then drains
// in-flight requests for up to 10 seconds.
func serve(e *echo.Echo, s *http.Server, stop <-chan os.Signal, logger *slog.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case sig := <-stop:
		logger.Info("shutdown_signal", "signal", sig.String())
	}

	// e.Shutdown only stops echo's own servers, not one passed to StartServer.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Error("http_shutdown_error", "error", err)
	}
	return nil
}

// resolveConfigPath prefers CONFIG_PATH, then tracker.yaml next to the executable.
func resolveConfigPath() (string, error) {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exePath), "tracker.yaml"), nil
}
