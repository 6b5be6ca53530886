package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idwby/cpumon/internal/model"
	"github.com/idwby/cpumon/internal/probe"
	"github.com/idwby/cpumon/internal/sampler"
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Take one snapshot of this host and print it as JSON",
	RunE:  runSample,
}

func init() {
	sampleCmd.Flags().Bool("probe", false, "also report which temperature strategy answered")
	rootCmd.AddCommand(sampleCmd)
}

func runSample(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	profile := cfg.ProducerProfile()
	raw, source := sampler.New(profile, probe.ForProfile(profile, probeOptions(cfg))).SampleSource(ctx)
	snap := raw.Round()

	data, err := model.Encode(snap)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.String())

	if showProbe, _ := cmd.Flags().GetBool("probe"); showProbe {
		fmt.Fprintf(cmd.ErrOrStderr(), "temperature %.1f°C from %s\n", snap.TemperatureC, source)
	}
	return nil
}
