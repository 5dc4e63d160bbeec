package main

import (
	"context"
	"log/slog"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"

	"github.com/Tyrowin/relaychat/internal/server"
	"github.com/Tyrowin/relaychat/internal/upload"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := server.NewConfigFromEnv()
	logger := server.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("open upload store", "err", err)
		os.Exit(1)
	}

	srv := server.New(cfg, logger, store)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("server stopped", "err", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"relaychat": func(ctx context.Context) error {
				logger.Info("graceful shutdown initiated")
				if err := srv.Shutdown(ctx); err != nil {
					return err
				}
				return store.Close()
			},
		},
	)

	exitCode := <-wait
	logger.Info("relaychat exited", "code", exitCode)
	os.Exit(exitCode)
}

// openStore uses JetStream when NATS_URL is set and the local upload
// directory otherwise.
func openStore(cfg *server.Config, logger *slog.Logger) (upload.Store, error) {
	if cfg.Upload.NATSURL == "" {
		logger.Info("storing uploads on disk", "dir", cfg.Upload.Dir)
		return upload.NewDiskStore(cfg.Upload.Dir)
	}

	js, err := upload.NewJetStreamStore(cfg.Upload.NATSURL, cfg.Upload.Bucket)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := js.Init(ctx); err != nil {
		_ = js.Close()
		return nil, err
	}

	logger.Info("storing uploads in JetStream", "url", cfg.Upload.NATSURL, "bucket", cfg.Upload.Bucket)
	return js, nil
}
