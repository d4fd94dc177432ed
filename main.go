package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/danthegoodman1/vcf2parquet/config"
	"github.com/danthegoodman1/vcf2parquet/converter"
	"github.com/danthegoodman1/vcf2parquet/gologger"
	"github.com/danthegoodman1/vcf2parquet/http_server"
	"github.com/danthegoodman1/vcf2parquet/utils"
	"github.com/spf13/pflag"
)

var logger = gologger.NewLogger()

const usage = `Usage: vcf2parquet [flags] <command>

Commands:
  convert   convert the input into one parquet file (-o)
  split     write one parquet file per batch, {} in the template is the batch index (-f)
  serve     serve conversions over HTTP

Flags:
`

var ErrUsage = errors.New("usage error")

func main() {
	if err := run(os.Args[1:], os.Stdin); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			logger.Error().Err(err).Msg("vcf2parquet failed")
			os.Exit(1)
		}
	}
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("vcf2parquet", pflag.ContinueOnError)
	fs.StringP("input", "i", "-", "input VCF path, plain or gzipped, - for stdin")
	fs.StringP("output", "o", "", "output file for convert")
	fs.StringP("template", "f", "", "output file template for split, {} is replaced by the batch index")
	fs.IntP("batch-size", "b", converter.DefaultBatchSize, "records per batch, one row group per batch")
	fs.StringP("compression", "c", "snappy", "uncompressed, snappy, gzip, lz4 or zstd")
	fs.IntP("read-buffer", "r", 8192, "read buffer size in bytes")
	fs.BoolP("info-optional", "I", true, "make INFO columns nullable")
	fs.StringSlice("info", nil, "INFO fields to convert, all when empty")
	fs.StringSlice("format", nil, "FORMAT fields to convert, all when empty")
	fs.Bool("skip-invalid", false, "drop records with values that do not fit their column")
	fs.String("encoding", "PLAIN", "default column encoding")
	fs.String("dataset", "default", "catalog dataset of written files")
	fs.String("data-dir", ".", "root directory of disk storage")
	fs.String("storage", "disk", "disk or s3")
	fs.String("catalog", "none", "none, memory, crdb or redis")
	fs.Int("port", 8080, "serve port")
	fs.String("log-level", "info", "log level")
	fs.String("config", "", "config file, config.yaml in . or /etc/vcf2parquet when empty")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	return fs
}

func run(args []string, stdin io.Reader) error {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("%w: expected one command, got %v", ErrUsage, fs.Args())
	}

	configPath, _ := fs.GetString("config")
	cfg, err := config.Load(configPath, fs)
	if err != nil {
		return err
	}
	gologger.SetLevel(cfg.Logging.Level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx)

	switch cmd := fs.Arg(0); cmd {
	case "convert":
		output, _ := fs.GetString("output")
		if output == "" {
			return fmt.Errorf("%w: convert needs -o", ErrUsage)
		}
		return runFile(ctx, cfg, fs, stdin, output, func(app *App, in io.Reader, name string) (*converter.Result, error) {
			return app.Converter.Convert(ctx, in, name, app.Options)
		})
	case "split":
		template, _ := fs.GetString("template")
		if template == "" {
			return fmt.Errorf("%w: split needs -f", ErrUsage)
		}
		return runFile(ctx, cfg, fs, stdin, template, func(app *App, in io.Reader, name string) (*converter.Result, error) {
			return app.Converter.Split(ctx, in, name, app.Options)
		})
	case "serve":
		return serve(ctx, cfg)
	default:
		fs.Usage()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

// runFile opens the input and runs one conversion to output. Disk outputs are written relative
// to their own directory, so any local path works.
func runFile(ctx context.Context, cfg *config.Config, fs *pflag.FlagSet, stdin io.Reader, output string, f func(app *App, in io.Reader, name string) (*converter.Result, error)) error {
	diskRoot, name := "", output
	if cfg.Storage.Type == "disk" {
		dir := filepath.Dir(output)
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cfg.Storage.DataDir, dir)
		}
		diskRoot, name = dir, filepath.Base(output)
	}

	app, err := NewApp(ctx, cfg, diskRoot)
	if err != nil {
		return err
	}
	defer app.Shutdown(context.Background())

	in := stdin
	input, _ := fs.GetString("input")
	if input != "-" && input != "" {
		file, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("error in os.Open: %w", err)
		}
		defer file.Close()
		in = file
	}

	s := time.Now()
	res, err := f(app, in, name)
	if err != nil {
		return err
	}
	logger.Info().Int("records", res.Records).Int("skipped", res.Skipped).Int("files", len(res.Parts)).Int("columns", len(res.Columns)).Str("duration", time.Since(s).String()).Msg("done")
	return nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	app, err := NewApp(ctx, cfg, "")
	if err != nil {
		return err
	}

	httpServer, err := http_server.StartHTTPServer(net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)), http_server.Config{
		Converter:   app.Converter,
		Store:       app.DataStore,
		Meta:        app.MetaStore,
		Defaults:    app.Options,
		Gatherer:    app.Registry,
		MaxBodySize: cfg.Server.MaxBodySize,
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	logger.Warn().Msg("received shutdown signal!")

	// For AWS ALB needing some time to de-register pod
	sleepTime := utils.GetEnvOrDefaultInt("SHUTDOWN_SLEEP_SEC", 0)
	logger.Info().Msg(fmt.Sprintf("sleeping for %ds before exiting", sleepTime))

	time.Sleep(time.Second * time.Duration(sleepTime))
	logger.Info().Msg(fmt.Sprintf("slept for %ds, exiting", sleepTime))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown HTTP server")
	} else {
		logger.Info().Msg("successfully shutdown HTTP server")
	}
	return app.Shutdown(shutdownCtx)
}
