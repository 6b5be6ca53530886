package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/idwby/cpumon/internal/broker"
	"github.com/idwby/cpumon/internal/cache"
	"github.com/idwby/cpumon/internal/config"
	"github.com/idwby/cpumon/internal/server"
	"github.com/idwby/cpumon/internal/subscriber"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Subscribe to the topic and serve the latest snapshot over HTTP",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("listen", "", "HTTP listen address (default from config, 0.0.0.0:8080)")
	f.Bool("local", false, "sample this host in-process instead of connecting to a broker")
	f.Duration("period", 0, "publish period for --local")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Log, "")
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	local, _ := cmd.Flags().GetBool("local")
	c := cache.New(time.Now())
	sub, closeFn, err := startSubscription(ctx, cfg, c, local, log)
	if err != nil {
		return err
	}
	defer closeFn()

	// Binding the listener is the one fatal startup step.
	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.HTTP.Addr, err)
	}
	srv := &http.Server{
		Handler:           server.New(c, sub.Counts, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	log.Info("serving", zap.String("addr", ln.Addr().String()), zap.String("topic", cfg.TopicName()))

	select {
	case <-ctx.Done():
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
	}
	log.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	return srv.Shutdown(shutdownCtx)
}

// startSubscription connects a transport, subscribes the cache to the
// configured topic and returns a cleanup func. With local set, an in-process
// publisher samples this host onto a Memory transport instead of MQTT.
func startSubscription(ctx context.Context, cfg config.Config, c *cache.Cache, local bool, log *zap.Logger) (*subscriber.Subscriber, func(), error) {
	var client broker.Client
	if local {
		client = broker.NewMemory()
	} else {
		mq, err := connectMQTT(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		client = mq
	}

	sub := subscriber.New(client, cfg.TopicName(), c, log)
	if err := sub.Start(ctx); err != nil {
		client.Close()
		return nil, nil, err
	}
	if local {
		go func() {
			if err := runPublisher(ctx, cfg, client, log.Named("local")); err != nil {
				log.Error("local publisher", zap.Error(err))
			}
		}()
	}
	return sub, client.Close, nil
}
