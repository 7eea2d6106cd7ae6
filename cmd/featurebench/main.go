package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"featurebench/internal/config"
	"featurebench/internal/engine"
	"featurebench/internal/featurespec"
	"featurebench/internal/logging"
	"featurebench/sink"
)

var version = "0.1.0"

// flagKeys maps each CLI flag to the koanf key it overrides. Only flags set on
// the command line are applied, so file and env values survive defaults.
var flagKeys = map[string]string{
	"modelset-endpoint":  "modelset_endpoint",
	"record-input-file":  "record_input_file",
	"record-output-file": "record_output_file",
	"test-feature-spec":  "test_feature_spec_file",
	"verbose":            "metadata.verbose",
	"metadata-transport": "metadata.transport",
	"input-compression":  "input_compression",
	"output-compression": "output_compression",
	"metrics-port":       "metrics_port",
	"control-port":       "control_port",
	"log-level":          "log.level",
	"log-json":           "log.json",
	"sink":               "sinks",
}

func main() {
	logging.InitFromEnv()
	root := newRootCmd()
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "featurebench v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "sinks",
		Short: "List registered sinks",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range sink.Names() {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", name)
			}
		},
	})

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "featurebench",
		Short: "Filter and enrich tf.Example records for model benchmarking",
		Long: `featurebench reads a TFRecord file of tf.Example records, keeps only the
features the model server reports as served, adds synthetic test features
and writes the result to a new TFRecord file.

Example:
  featurebench --modelset-endpoint http://localhost:8501/v1/models/ranker/metadata \
    --record-input-file train.tfrecord --record-output-file bench.tfrecord \
    --test-feature-spec spec.json`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, overrides(cmd.Flags()))
			if err != nil {
				return err
			}
			logging.Configure(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "Path to a YAML config file (optional)")
	f.String("modelset-endpoint", "", "Model server metadata URL (required)")
	f.String("record-input-file", "", "TFRecord file to read (required)")
	f.String("record-output-file", "", "TFRecord file to write (required)")
	f.String("test-feature-spec", featurespec.NoSpec, "JSON or YAML test feature spec; \"{}\" disables it")
	f.Bool("verbose", false, "Log the raw metadata response")
	f.String("metadata-transport", "http", "Metadata transport (http, exec)")
	f.String("input-compression", "none", "Input compression (none, gzip, zlib)")
	f.String("output-compression", "none", "Output compression (none, gzip, zlib)")
	f.Int("metrics-port", 0, "Serve Prometheus metrics on this port (0 disables)")
	f.Int("control-port", 0, "Serve gRPC health on this port (0 disables)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.Bool("log-json", false, "Log as JSON")
	f.StringSlice("sink", nil, "Mirror sinks in addition to the output file (stdout, kafka)")
	return cmd
}

func overrides(fs *pflag.FlagSet) map[string]any {
	out := map[string]any{}
	fs.Visit(func(fl *pflag.Flag) {
		key, ok := flagKeys[fl.Name]
		if !ok {
			return
		}
		switch fl.Value.Type() {
		case "bool":
			v, _ := fs.GetBool(fl.Name)
			out[key] = v
		case "int":
			v, _ := fs.GetInt(fl.Name)
			out[key] = v
		case "stringSlice":
			v, _ := fs.GetStringSlice(fl.Name)
			out[key] = v
		default:
			out[key] = fl.Value.String()
		}
	})
	return out
}

func run(ctx context.Context, cfg config.Config) error {
	e, err := engine.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if _, err := e.Run(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
