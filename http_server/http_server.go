package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/danthegoodman1/vcf2parquet/converter"
	"github.com/danthegoodman1/vcf2parquet/datastore"
	"github.com/danthegoodman1/vcf2parquet/gologger"
	"github.com/danthegoodman1/vcf2parquet/metastore"
	"github.com/danthegoodman1/vcf2parquet/utils"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

var logger = gologger.NewLogger()

type HTTPServer struct {
	Echo *echo.Echo

	conv     *converter.Converter
	store    datastore.DataStore
	meta     metastore.MetaStore
	defaults converter.Options
}

type Config struct {
	Converter *converter.Converter
	Store     datastore.DataStore
	Meta      metastore.MetaStore
	// Defaults are the conversion options requests start from
	Defaults converter.Options
	Gatherer prometheus.Gatherer
	// MaxBodySize limits request bodies, like "2G", empty means no limit
	MaxBodySize string
}

type CustomValidator struct {
	validator *validator.Validate
}

// New builds the server and its routes without listening.
func New(cfg Config) *HTTPServer {
	s := &HTTPServer{
		Echo:     echo.New(),
		conv:     cfg.Converter,
		store:    cfg.Store,
		meta:     cfg.Meta,
		defaults: cfg.Defaults,
	}
	if s.meta == nil {
		s.meta = metastore.NopMetaStore{}
	}
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.JSONSerializer = &utils.NoEscapeJSONSerializer{}

	s.Echo.Use(CreateReqContext)
	s.Echo.Use(LoggerMiddleware)
	s.Echo.Use(middleware.CORS())
	if cfg.MaxBodySize != "" {
		s.Echo.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	s.Echo.Validator = &CustomValidator{validator: validator.New()}

	// technical - no auth
	s.Echo.GET("/hc", s.HealthCheck)
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.Echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	s.Echo.POST("/convert", ccHandler(s.ConvertHandler))
	datasets := s.Echo.Group("/datasets/:dataset")
	datasets.GET("/parts", ccHandler(s.ListPartsHandler))
	datasets.GET("/parts/:name", ccHandler(s.GetPartFileHandler))
	datasets.GET("/columns", ccHandler(s.GetColumnsHandler))

	return s
}

// StartHTTPServer listens on addr and serves h2c in the background.
func StartHTTPServer(addr string, cfg Config) (*HTTPServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("error creating tcp listener: %w", err)
	}
	s := New(cfg)
	s.Echo.Listener = listener
	go func() {
		logger.Info().Msg("starting h2c server on " + listener.Addr().String())
		err := s.Echo.StartH2CServer("", &http2.Server{})
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start h2c server, exiting")
		}
	}()

	return s, nil
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// ValidateQuery binds query parameters only, leaving the body for the handler.
func ValidateQuery(c echo.Context, s interface{}) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(s); err != nil {
		return err
	}
	return nil
}

func (*HTTPServer) HealthCheck(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	return err
}

func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			// default handler
			c.Error(err)
		}
		stop := time.Since(start)
		// Log otherwise
		logger := zerolog.Ctx(c.Request().Context())
		req := c.Request()
		res := c.Response()

		p := req.URL.Path
		if p == "" {
			p = "/"
		}

		cl := req.Header.Get(echo.HeaderContentLength)
		if cl == "" {
			cl = "0"
		}
		logger.Debug().Str("method", req.Method).Str("remote_ip", c.RealIP()).Str("req_uri", req.RequestURI).Str("handler_path", c.Path()).Str("path", p).Int("status", res.Status).Int64("latency_ns", int64(stop)).Str("protocol", req.Proto).Str("bytes_in", cl).Int64("bytes_out", res.Size).Msg("req recived")
		return nil
	}
}
