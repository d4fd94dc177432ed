package main

import (
	"context"
	"fmt"

	"github.com/danthegoodman1/vcf2parquet/config"
	"github.com/danthegoodman1/vcf2parquet/converter"
	"github.com/danthegoodman1/vcf2parquet/crdb"
	"github.com/danthegoodman1/vcf2parquet/datastore"
	"github.com/danthegoodman1/vcf2parquet/metastore"
	"github.com/danthegoodman1/vcf2parquet/metrics"
	"github.com/danthegoodman1/vcf2parquet/migrations"
	"github.com/danthegoodman1/vcf2parquet/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type (
	// App is everything a conversion needs, built from the config.
	App struct {
		Config    *config.Config
		MetaStore metastore.MetaStore
		DataStore datastore.DataStore
		Registry  *prometheus.Registry
		Metrics   *metrics.Metrics
		Converter *converter.Converter
		Options   converter.Options
	}
)

// NewApp connects the configured stores. diskRoot overrides storage.data_dir for disk storage
// when not empty.
func NewApp(ctx context.Context, cfg *config.Config, diskRoot string) (*App, error) {
	opts, err := converter.FromConfig(cfg.Convert)
	if err != nil {
		return nil, err
	}

	ds, err := newDataStore(cfg.Storage, diskRoot)
	if err != nil {
		return nil, err
	}
	ms, err := newMetaStore(ctx, cfg.Catalog)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	app := &App{
		Config:    cfg,
		MetaStore: ms,
		DataStore: ds,
		Registry:  reg,
		Metrics:   m,
		Converter: converter.New(ds, ms, m),
		Options:   opts,
	}

	return app, nil
}

func newDataStore(cfg config.StorageConfig, diskRoot string) (datastore.DataStore, error) {
	switch cfg.Type {
	case "s3":
		client, err := s3.NewClient(s3.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("error in s3.NewClient: %w", err)
		}
		return datastore.NewS3DataStore(client, cfg.S3.Prefix, cfg.S3.TempDir), nil
	default:
		root := cfg.DataDir
		if diskRoot != "" {
			root = diskRoot
		}
		return datastore.NewDiskDataStore(root)
	}
}

func newMetaStore(ctx context.Context, cfg config.CatalogConfig) (metastore.MetaStore, error) {
	switch cfg.Type {
	case "memory":
		return metastore.NewMemoryMetaStore(), nil
	case "redis":
		return metastore.NewRedisMetaStore(ctx, metastore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PingTest: cfg.Redis.PingTest,
		})
	case "crdb":
		if cfg.Migrate {
			if _, err := migrations.RunMigrations(cfg.CRDBDSN); err != nil {
				return nil, fmt.Errorf("error running migrations: %w", err)
			}
		} else if err := migrations.CheckMigrations(cfg.CRDBDSN); err != nil {
			return nil, fmt.Errorf("error checking migrations: %w", err)
		}
		pool, err := crdb.ConnectToDB(ctx, cfg.CRDBDSN)
		if err != nil {
			return nil, fmt.Errorf("error connecting to CRDB: %w", err)
		}
		return metastore.NewCRDBMetaStore(pool, cfg.MaxRuntime), nil
	default:
		return metastore.NopMetaStore{}, nil
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	if err := a.MetaStore.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down meta store: %w", err)
	}
	if err := a.DataStore.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down data store: %w", err)
	}
	return nil
}
