package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/idwby/cpumon/internal/cache"
	"github.com/idwby/cpumon/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Subscribe to the topic and show the latest snapshot in the terminal",
	RunE:  runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.Bool("local", false, "sample this host in-process instead of connecting to a broker")
	f.Duration("period", 0, "publish period for --local")
	f.String("log-file", "", "write logs to this file (logs are discarded otherwise)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// The dashboard owns the terminal, so logs go to a file or nowhere.
	logFile, _ := cmd.Flags().GetString("log-file")
	if logFile == "" {
		logFile = "/dev/null"
	}
	log, err := newLogger(cfg.Log, logFile)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	local, _ := cmd.Flags().GetBool("local")
	c := cache.New(time.Now())
	_, closeFn, err := startSubscription(ctx, cfg, c, local, log)
	if err != nil {
		return err
	}
	defer closeFn()

	return ui.Run(c, cfg.TopicName())
}
