package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/katsura919/enquiro-agent-web-sub000/internal/assist"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/backend"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/config"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/domain/chat"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/domain/workspace"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/realtime"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/statestore"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/storage"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/transport"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	kv, err := openStorage(cfg.Storage, logger)
	if err != nil {
		logger.Error("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	channel, err := openChannel(cfg.Realtime, logger)
	if err != nil {
		logger.Error("failed to open event channel", "driver", cfg.Realtime.Driver, "error", err)
		os.Exit(1)
	}
	defer channel.Close()

	store := statestore.New(kv, logger)
	backendClient := backend.New(cfg.Backend.BaseURL, cfg.Backend.Token, logger)

	workspaceSvc := workspace.NewService(store, logger)
	chatSvc := chat.NewService(channel, backendClient, store, logger)
	chatSvc.Subscribe(context.Background())
	defer chatSvc.Unsubscribe()

	var suggester transport.Suggester
	if cfg.Assist.APIKey != "" {
		suggester = assist.NewSuggester(cfg.Assist.APIKey, cfg.Assist.Model, logger)
	}

	router := transport.NewRouter(workspaceSvc, chatSvc, backendClient, suggester, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func openStorage(cfg config.StorageConfig, logger *slog.Logger) (storage.KV, error) {
	switch cfg.Driver {
	case "sqlite":
		if err := ensureDBDir(cfg.Path); err != nil {
			return nil, fmt.Errorf("preparing database path: %w", err)
		}
		return storage.NewSQLite(cfg.Path)
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return storage.NewPostgres(ctx, cfg.DSN)
	case "memory":
		logger.Warn("using in-memory storage, workspace state will not survive restarts")
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openChannel(cfg config.RealtimeConfig, logger *slog.Logger) (realtime.Channel, error) {
	switch cfg.Driver {
	case "memory":
		return realtime.NewBus(logger), nil
	case "amqp":
		return realtime.DialAMQP(cfg.URL, cfg.Exchange, logger)
	default:
		return nil, fmt.Errorf("unknown realtime driver %q", cfg.Driver)
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
