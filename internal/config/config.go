package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"featurebench/internal/featurespec"
	"featurebench/internal/metadata"
	"featurebench/internal/tfrecord"
	"featurebench/sink/kafka"
	"featurebench/sink/stdout"
)

const (
	SupportedSchema = "v1"
	EnvPrefix       = "FEATUREBENCH__"
)

// MirrorSinks are the sinks that may receive a copy of every output record in
// addition to the output file.
var MirrorSinks = []string{"stdout", "kafka"}

type LogConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

type Config struct {
	SchemaVersion string `koanf:"schema_version"`

	ModelsetEndpoint    string `koanf:"modelset_endpoint"`
	RecordInputFile     string `koanf:"record_input_file"`
	RecordOutputFile    string `koanf:"record_output_file"`
	TestFeatureSpecFile string `koanf:"test_feature_spec_file"` // "{}" = none

	InputCompression  string `koanf:"input_compression"`  // none|gzip|zlib
	OutputCompression string `koanf:"output_compression"` // none|gzip|zlib

	Metadata metadata.Config `koanf:"metadata"`

	Sinks  []string      `koanf:"sinks"` // mirrors, see MirrorSinks
	Stdout stdout.Config `koanf:"stdout"`
	Kafka  kafka.Config  `koanf:"kafka"`

	MetricsPort int `koanf:"metrics_port"` // 0 = off
	ControlPort int `koanf:"control_port"` // 0 = off

	Log LogConfig `koanf:"log"`
}

func Default() Config {
	return Config{
		SchemaVersion:       SupportedSchema,
		TestFeatureSpecFile: featurespec.NoSpec,
		InputCompression:    string(tfrecord.None),
		OutputCompression:   string(tfrecord.None),
		Metadata:            metadata.Config{Transport: "http"},
		Kafka:               kafka.Config{Acks: 1},
		Log:                 LogConfig{Level: "info"},
	}
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

// Load merges, lowest priority first: defaults, the YAML file at path (if
// any), env-vars (prefix `FEATUREBENCH__`, delimiter `__`) and overrides,
// keyed by dotted koanf path.
func Load(path string, overrides map[string]any) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	// schema version check (only when YAML is present)
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Config{}, fmt.Errorf("config schema_version %q not supported (want %q)", sv, SupportedSchema)
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, "__", envValue), nil); err != nil {
		return Config{}, fmt.Errorf("config env: %w", err)
	}
	for key, v := range overrides {
		if err := k.Set(key, v); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", key, err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var listKeys = []string{"sinks", "kafka__brokers", "metadata__args"}

func envValue(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if slices.Contains(listKeys, key) {
		return key, strings.Split(value, ",")
	}
	return key, value
}

// Validate reports every missing or unknown setting.
func (c Config) Validate() error {
	var errs []error
	required := map[string]string{
		"modelset_endpoint":  c.ModelsetEndpoint,
		"record_input_file":  c.RecordInputFile,
		"record_output_file": c.RecordOutputFile,
	}
	for _, key := range []string{"modelset_endpoint", "record_input_file", "record_output_file"} {
		if strings.TrimSpace(required[key]) == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	if _, err := tfrecord.ParseCompression(c.InputCompression); err != nil {
		errs = append(errs, fmt.Errorf("input_compression: %w", err))
	}
	if _, err := tfrecord.ParseCompression(c.OutputCompression); err != nil {
		errs = append(errs, fmt.Errorf("output_compression: %w", err))
	}
	if _, err := metadata.NewFetcher(c.Metadata); err != nil {
		errs = append(errs, err)
	}
	for _, s := range c.Sinks {
		if !slices.Contains(MirrorSinks, s) {
			errs = append(errs, fmt.Errorf("sinks: unknown sink %q (want one of %v)", s, MirrorSinks))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
