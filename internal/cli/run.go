package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/quickpulse/internal/config"
	"github.com/wesleyorama2/quickpulse/internal/perfcounter"
	"github.com/wesleyorama2/quickpulse/internal/platform"
	"github.com/wesleyorama2/quickpulse/internal/quickpulse"
)

// defaultConfigFile is read from the working directory when --config is not given.
const defaultConfigFile = "quickpulse.yaml"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the window collector and emit one JSON sample per window",
	Long: `Run opens a window every interval and writes each finished sample to
stdout as a single JSON line. Diagnostics go to stderr.

Examples:
  quickpulse run --config quickpulse.yaml
  quickpulse run --duration 30s --no-color`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		duration, _ := cmd.Flags().GetDuration("duration")
		noColor, _ := cmd.Flags().GetBool("no-color")

		plat := platform.NewWithOptions(platform.Options{
			DebugWriter: cmd.ErrOrStderr(),
			NoColor:     noColor,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if duration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, duration)
			defer cancel()
		}

		return runCollector(ctx, plat, configFile, cmd.OutOrStdout())
	},
}

// sampleRecord is the JSON line written for each sample.
type sampleRecord struct {
	StreamID    string `json:"streamId"`
	MachineName string `json:"machineName,omitempty"`
	*quickpulse.Sample
}

// runCollector runs windows until ctx is done, then flushes the final window.
func runCollector(ctx context.Context, plat *platform.Platform, configFile string, out io.Writer) error {
	cfg, err := loadConfig(plat, configFile)
	if err != nil {
		return err
	}

	debug := plat.DebugOutput()
	if cfg.Debug.NoColor && debug.UsesColors() {
		debug = platform.NewDebugOutput(plat.DebugWriter(), true)
	}

	machine := plat.MachineName()
	encoder := json.NewEncoder(out)

	collector := quickpulse.NewCollectorWithConfig(quickpulse.CollectorConfig{
		Interval:    time.Duration(cfg.Interval),
		HistorySize: cfg.HistorySize,
		StreamID:    cfg.StreamID,
		Source:      buildSource(cfg),
		Logger:      debug,
		Sink: quickpulse.SinkFunc(func(s *quickpulse.Sample) error {
			return encoder.Encode(sampleRecord{StreamID: cfg.StreamID, MachineName: machine, Sample: s})
		}),
	})

	debug.Infof("collecting stream %s every %s", cfg.StreamID, cfg.Interval)

	if err := collector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start collector: %w", err)
	}

	<-ctx.Done()

	if _, err := collector.Stop(); err != nil {
		debug.Warnf("final window: %v", err)
	}

	p := collector.History().RequestDurationPercentiles()
	debug.Infof("%d windows (%d failed); request duration p50=%s p99=%s",
		collector.Windows(), collector.Failures(), p.P50, p.P99)

	return nil
}

// loadConfig reads the explicit config file, or the default file if present,
// and applies defaults, environment overrides and validation.
func loadConfig(plat *platform.Platform, configFile string) (*config.Config, error) {
	var cfg *config.Config

	if configFile != "" {
		loaded, err := config.LoadConfig(configFile)
		if err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
		cfg = loaded
	} else if content := readDefaultConfig(plat); content != "" {
		loaded, err := config.ParseConfig([]byte(content), defaultConfigFile)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", defaultConfigFile, err)
		}
		cfg = loaded
	} else {
		cfg = &config.Config{}
	}

	if err := cfg.ApplyEnvironment(plat); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readDefaultConfig(plat *platform.Platform) string {
	if _, err := os.Stat(defaultConfigFile); err != nil {
		return ""
	}
	return plat.ReadConfiguration(defaultConfigFile)
}

// buildSource returns the counter source selected by the configuration, or nil.
func buildSource(cfg *config.Config) perfcounter.Source {
	if cfg.Counters.File != "" {
		return &perfcounter.JSONSource{Path: cfg.Counters.File, Root: cfg.Counters.Root}
	}

	if len(cfg.Counters.Static) > 0 {
		readings := make(perfcounter.Readings, len(cfg.Counters.Static))
		for name, value := range cfg.Counters.Static {
			readings.Add(name, value)
		}
		return perfcounter.NewStaticSource(readings)
	}

	return nil
}

func init() {
	runCmd.Flags().StringP("config", "c", "", "Configuration file (default: ./"+defaultConfigFile+" if present)")
	runCmd.Flags().DurationP("duration", "d", 0, "Stop after this long (default: run until interrupted)")
	runCmd.Flags().Bool("no-color", false, "Disable colored diagnostics")
}
