package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/psantana5/exectime/internal/pipeline"
	"github.com/psantana5/exectime/internal/server"
	"github.com/psantana5/exectime/internal/shutdown"
	"github.com/psantana5/exectime/pkg/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an instrumented demo API with metrics and stats",
	Long: `Starts an HTTP API whose /api routes are timed, a gRPC health service
with timing interceptors, and /metrics, /stats and /slow endpoints.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("http-addr", "", "HTTP listen address (overrides server.http_addr)")
	serveCmd.Flags().String("grpc-addr", "", "gRPC listen address (overrides server.grpc_addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	httpAddr := flagOr(cmd, "http-addr", cfg.Server.HTTPAddr)
	grpcAddr := flagOr(cmd, "grpc-addr", cfg.Server.GRPCAddr)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx := cmd.Context()
	p, err := pipeline.Build(ctx, cfg, pipeline.Options{Logger: logger, Registry: reg})
	if err != nil {
		return err
	}

	mgr := shutdown.New(cfg.Server.ShutdownTimeout, logger)
	mgr.Register("timing pipeline", p.Close)

	router := server.NewRouter(server.Deps{
		Timer:    p.Timer,
		Stats:    p.Stats,
		SlowLog:  p.SlowLog,
		Gatherer: reg,
		Logger:   logger,
	})
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcSrv, health := server.NewGRPCServer(p.Timer)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		mgr.Shutdown()
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("HTTP server listening", logging.Fields{"addr": httpAddr, "sinks": p.Sinks()})
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("gRPC server listening", logging.Fields{"addr": lis.Addr().String()})
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	mgr.Register("grpc server", func(ctx context.Context) error {
		health.Shutdown()
		stopped := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
			return nil
		case <-ctx.Done():
			grpcSrv.Stop()
			return ctx.Err()
		}
	})
	mgr.Register("http server", shutdown.StopServer(httpSrv))

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	failed := make(chan error, 1)
	go func() {
		select {
		case err := <-errCh:
			logger.Error("Server failed", logging.Fields{"error": err})
			failed <- err
			cancel()
		case <-waitCtx.Done():
		}
	}()

	err = mgr.WaitWithContext(waitCtx)
	select {
	case serveErr := <-failed:
		return serveErr
	default:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func flagOr(cmd *cobra.Command, name, def string) string {
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v
	}
	return def
}
