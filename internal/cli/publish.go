package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/idwby/cpumon/internal/broker"
	"github.com/idwby/cpumon/internal/config"
	"github.com/idwby/cpumon/internal/probe"
	"github.com/idwby/cpumon/internal/publisher"
	"github.com/idwby/cpumon/internal/sampler"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Sample this host periodically and publish snapshots to the broker",
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().Duration("period", 0, "publish period (default from config, 5s)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Log, "")
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	client, err := connectMQTT(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer client.Close()

	log.Info("publishing",
		zap.String("profile", cfg.Profile),
		zap.String("topic", cfg.TopicName()),
		zap.Duration("period", cfg.Period))
	return runPublisher(ctx, cfg, client, log)
}

// runPublisher drives the sampling loop on client until ctx is cancelled.
func runPublisher(ctx context.Context, cfg config.Config, client broker.Client, log *zap.Logger) error {
	profile := cfg.ProducerProfile()
	smp := sampler.New(profile, probe.ForProfile(profile, probeOptions(cfg)))
	pub := publisher.New(smp, client, cfg.TopicName(), cfg.Period, log)
	if err := pub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("publisher stopped")
	return nil
}
