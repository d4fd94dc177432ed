package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "VCF2PARQUET"

// flagKeys maps command line flag names to config keys
var flagKeys = map[string]string{
	"batch-size":    "convert.batch_size",
	"compression":   "convert.compression",
	"read-buffer":   "convert.read_buffer",
	"info-optional": "convert.info_optional",
	"info":          "convert.info",
	"format":        "convert.format",
	"skip-invalid":  "convert.skip_invalid",
	"encoding":      "convert.encoding",
	"dataset":       "convert.dataset",
	"data-dir":      "storage.data_dir",
	"storage":       "storage.type",
	"catalog":       "catalog.type",
	"port":          "server.port",
	"log-level":     "logging.level",
}

// Load reads the config file at configPath, or config.yaml from the usual locations when empty,
// then applies VCF2PARQUET_ environment variables and any flags set on flags. Flags win.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/vcf2parquet")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("error in BindPFlag for %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return parseConfig(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("convert.batch_size", 100000)
	v.SetDefault("convert.compression", "snappy")
	v.SetDefault("convert.read_buffer", 8192)
	v.SetDefault("convert.info_optional", true)
	v.SetDefault("convert.info", []string{})
	v.SetDefault("convert.format", []string{})
	v.SetDefault("convert.skip_invalid", false)
	v.SetDefault("convert.encoding", "PLAIN")
	v.SetDefault("convert.column_encodings", map[string]string{})
	v.SetDefault("convert.dataset", "default")
	v.SetDefault("convert.parallelism", 4)

	v.SetDefault("storage.type", "disk")
	v.SetDefault("storage.data_dir", ".")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.prefix", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.path_style", false)
	v.SetDefault("storage.s3.temp_dir", "")

	v.SetDefault("catalog.type", "none")
	v.SetDefault("catalog.crdb_dsn", "")
	v.SetDefault("catalog.migrate", true)
	v.SetDefault("catalog.max_runtime", "60s")
	v.SetDefault("catalog.redis.addr", "")
	v.SetDefault("catalog.redis.password", "")
	v.SetDefault("catalog.redis.db", 0)
	v.SetDefault("catalog.redis.ping_test", true)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_size", "")

	v.SetDefault("logging.level", "info")
}

func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
