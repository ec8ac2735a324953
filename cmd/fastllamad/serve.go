package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fastllamad/internal/config"
	"fastllamad/internal/httpapi"
	"fastllamad/internal/logging"
	"fastllamad/internal/manager"
	"fastllamad/internal/native"
	"fastllamad/internal/store"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve chat sessions over websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			lis, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			log := logging.Setup(cfg.LogLevel, cfg.LogFormat)
			return serve(ctx, cfg, lis, native.NewLlamaEngine(), log)
		},
	}
	f := cmd.Flags()
	f.String("addr", "", "HTTP listen address (default "+defaultAddr+")")
	f.String("workspace-dir", "", "Root of the client file browser (default: models dir)")
	f.Int("max-sessions", 0, "Maximum concurrently open sessions")
	f.Int64("max-message-bytes", 0, "Maximum inbound record size in bytes")
	f.String("cors-origins", "", "Comma-separated allowed origins; enables CORS")
	return cmd
}

// serve runs the HTTP server on lis until ctx is done, then drains sessions.
func serve(ctx context.Context, cfg config.Config, lis net.Listener, eng native.Engine, log zerolog.Logger) error {
	httpapi.SetLogger(log)
	httpapi.SetMaxMessageBytes(cfg.MaxMessageBytes)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)

	st, err := store.Open(savesDir(cfg), cfg.IndexBackend)
	if err != nil {
		_ = lis.Close()
		return err
	}
	defer st.Close()

	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Engine:         eng,
		Store:          st,
		ModelsDir:      cfg.ModelsDir,
		WorkspaceDir:   cfg.WorkspaceDir,
		EngineDefaults: cfg.Engine,
		Generation:     cfg.Generation,
		MaxSessions:    cfg.MaxSessions,
		Logger:         log,
	})
	mgr.SetEventPublisher(manager.NewLogPublisher(log))

	srv := &http.Server{
		Handler:           httpapi.NewMux(httpapi.FromManager(mgr)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	httpapi.SetBaseContext(gctx)
	g.Go(func() error {
		log.Info().
			Str("addr", lis.Addr().String()).
			Str("models_dir", cfg.ModelsDir).
			Str("data_dir", cfg.DataDir).
			Bool("llama_built", native.LlamaBuilt).
			Msg("fastllamad listening")
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		if cerr := mgr.Close(); err == nil {
			err = cerr
		}
		return err
	})
	return g.Wait()
}
