package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danthegoodman1/vcf2parquet/chunk"
	"github.com/danthegoodman1/vcf2parquet/parquet_writer"
	"github.com/rs/zerolog"
)

// Config is the complete application configuration
type Config struct {
	Convert ConvertConfig `mapstructure:"convert"`
	Storage StorageConfig `mapstructure:"storage"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ConvertConfig struct {
	BatchSize    int    `mapstructure:"batch_size"`
	Compression  string `mapstructure:"compression"`
	ReadBuffer   int    `mapstructure:"read_buffer"`
	InfoOptional bool   `mapstructure:"info_optional"`
	// Infos and Formats restrict the header fields turned into columns, empty means all
	Infos   []string `mapstructure:"info"`
	Formats []string `mapstructure:"format"`
	// SkipInvalid drops records whose values do not fit their column instead of failing
	SkipInvalid bool `mapstructure:"skip_invalid"`
	// Encoding is the default column encoding, ColumnEncodings overrides it per column name
	Encoding        string            `mapstructure:"encoding"`
	ColumnEncodings map[string]string `mapstructure:"column_encodings"`
	Dataset         string            `mapstructure:"dataset"`
	Parallelism     int               `mapstructure:"parallelism"`
}

type StorageConfig struct {
	Type    string   `mapstructure:"type"` // disk, s3
	DataDir string   `mapstructure:"data_dir"`
	S3      S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
	// TempDir stages files before upload, empty means the OS temp dir
	TempDir string `mapstructure:"temp_dir"`
}

type CatalogConfig struct {
	Type       string        `mapstructure:"type"` // none, memory, crdb, redis
	CRDBDSN    string        `mapstructure:"crdb_dsn"`
	Migrate    bool          `mapstructure:"migrate"`
	MaxRuntime time.Duration `mapstructure:"max_runtime"`
	Redis      RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PingTest bool   `mapstructure:"ping_test"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// MaxBodySize is an echo body limit like "2G"
	MaxBodySize string `mapstructure:"max_body_size"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

var ErrInvalidConfig = errors.New("invalid config")

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Convert.Validate(); err != nil {
		return fmt.Errorf("convert config: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}
	if err := c.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog config: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

func (c *ConvertConfig) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.ReadBuffer < 1 {
		return fmt.Errorf("%w: read_buffer must be positive, got %d", ErrInvalidConfig, c.ReadBuffer)
	}
	comp, err := parquet_writer.ParseCompression(c.Compression)
	if err != nil {
		return err
	}
	if _, err := comp.Codec(); err != nil {
		return err
	}
	if _, err := chunk.ParseEncoding(c.Encoding); err != nil {
		return err
	}
	for name, enc := range c.ColumnEncodings {
		if _, err := chunk.ParseEncoding(enc); err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
	}
	if c.Dataset == "" || strings.ContainsAny(c.Dataset, "/\\") {
		return fmt.Errorf("%w: dataset must be a non empty name without slashes, got %q", ErrInvalidConfig, c.Dataset)
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	switch c.Type {
	case "disk":
		if c.DataDir == "" {
			return fmt.Errorf("%w: data_dir is required for disk storage", ErrInvalidConfig)
		}
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("%w: s3.bucket is required for s3 storage", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage type %q", ErrInvalidConfig, c.Type)
	}
	return nil
}

func (c *CatalogConfig) Validate() error {
	switch c.Type {
	case "none", "memory":
	case "crdb":
		if c.CRDBDSN == "" {
			return fmt.Errorf("%w: crdb_dsn is required for the crdb catalog", ErrInvalidConfig)
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr is required for the redis catalog", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown catalog type %q", ErrInvalidConfig, c.Type)
	}
	if c.MaxRuntime <= 0 {
		return fmt.Errorf("%w: max_runtime must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil {
		return fmt.Errorf("%w: invalid level %q", ErrInvalidConfig, c.Level)
	}
	return nil
}

// ColumnEncodingMap parses the per column encoding overrides.
func (c *ConvertConfig) ColumnEncodingMap() (map[string]chunk.Encoding, error) {
	out := make(map[string]chunk.Encoding, len(c.ColumnEncodings))
	for name, enc := range c.ColumnEncodings {
		e, err := chunk.ParseEncoding(enc)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		out[name] = e
	}
	return out, nil
}
