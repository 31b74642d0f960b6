package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	asyncapi "github.com/hedisam/assetd/server/api/async"
	restapi "github.com/hedisam/assetd/server/api/rest"
	"github.com/hedisam/assetd/server/internal/blobstorage/filesystem"
	"github.com/hedisam/assetd/server/internal/config"
	"github.com/hedisam/assetd/server/internal/emitter"
	"github.com/hedisam/assetd/server/internal/fetcher"
	"github.com/hedisam/assetd/server/internal/interceptors"
	"github.com/hedisam/assetd/server/internal/naming"
	"github.com/hedisam/assetd/server/internal/sampler"
	"github.com/hedisam/assetd/server/internal/store"
	"github.com/hedisam/assetd/server/internal/store/memdb"
)

const (
	appName = "assetd"

	orphanBuffer    = 64
	staleTempAge    = time.Minute
	shutdownTimeout = 10 * time.Second
)

// Options defines a set of config options. Flags set on the command line win over the config file.
type Options struct {
	ConfigPath    string
	ServerAddr    string
	Dir           string
	Storage       string
	PublicBaseURL string
	Quiet         bool
}

// AssetStorage is what the http layer needs from either store implementation.
type AssetStorage interface {
	restapi.AssetWriter
	restapi.AssetLister
	restapi.AssetOpener
}

func main() {
	logger := logrus.New()
	logger.AddHook(&interceptors.TraceHook{})

	var opts Options
	flag.StringVar(&opts.ConfigPath, "config", "", "Path to a YAML config file (optional)")
	flag.StringVar(&opts.ServerAddr, "server-addr", "", "Address to listen on (overrides config addr)")
	flag.StringVar(&opts.Dir, "dir", "", "Directory to store assets in (overrides config dir)")
	flag.StringVar(&opts.Storage, "storage", "", "Storage backend, disk or memory (overrides config storage)")
	flag.StringVar(&opts.PublicBaseURL, "public-base-url", "", "Base URL assets are served under (overrides config public_base_url)")
	flag.BoolVar(&opts.Quiet, "quiet", false, "Only log warnings and errors")
	flag.Parse()

	cfg := mustLoadConfig(logger, opts)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracer := mustInitTracer(logger, appName, !cfg.TraceStdout)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			logger.WithError(err).Error("Failed to shutdown tracer")
		}
	}()

	e := emitter.New(orphanBuffer)
	defer e.Close()

	assets, closeStorage := mustInitStorage(ctx, logger, cfg, e)
	defer closeStorage()

	urls, err := store.NewURLResolver(cfg.PublicBaseURL)
	if err != nil {
		logger.WithError(err).Fatal("Invalid public base url")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := interceptors.NewAssetMetrics(reg)

	keys := naming.New()
	remote := fetcher.New(logger, fetcher.Config{
		Timeout:              cfg.FetchTimeout,
		MaxBytes:             cfg.FetchMaxBytes,
		AllowPrivateNetworks: cfg.AllowPrivateNetworks,
	})

	uploadServer := restapi.NewUploadServer(logger, assets, keys, urls, metrics, cfg.MaxFiles, cfg.MaxFileSize)
	fetchServer := restapi.NewFetchServer(logger, remote, assets, keys, urls, metrics, cfg.FetchHint)
	sampleServer := restapi.NewSampleServer(logger, assets, sampler.New(nil), urls, cfg.SampleSize)
	staticServer := restapi.NewStaticServer(logger, assets)

	var limiter *interceptors.ClientRateLimiter
	if cfg.FetchRateLimit > 0 {
		limiter = interceptors.NewClientRateLimiter(cfg.FetchRateLimit, cfg.FetchBurst)
	}
	rateLimited := func(next http.HandlerFunc) http.HandlerFunc {
		return interceptors.RateLimit(logger, limiter, next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload-multiple", uploadServer.UploadMultiple)
	restapi.RegisterFunc(logger, mux, http.MethodPost, "/api/upload-dog", fetchServer.UploadFromURL, rateLimited)
	restapi.RegisterFunc(logger, mux, http.MethodGet, "/api/random-images", sampleServer.RandomImages)
	mux.HandleFunc("GET /{key}", staticServer.ServeAsset)
	mux.HandleFunc("GET /{$}", staticServer.Root)

	var handler http.Handler = otelhttp.NewHandler(mux, appName)
	handler = interceptors.InterceptWithDefaultMetrics(reg, handler)
	handler = interceptors.CORS(cfg.CORSOrigin, handler)

	// Expose the registered metrics via HTTP
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown server gracefully")
		}
	}()

	logger.WithFields(logrus.Fields{
		"addr":    cfg.Addr,
		"storage": cfg.Storage,
		"dir":     cfg.Dir,
	}).Info("Starting server")
	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("Server failed with error")
	}

	// ListenAndServe returns as soon as Shutdown starts; in-flight handlers still use the
	// storage and emitter closed by the deferred calls below
	<-drained
	logger.Info("Server stopped")
}

func mustLoadConfig(logger *logrus.Logger, opts Options) *config.Config {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}

	if opts.ServerAddr != "" {
		cfg.Addr = opts.ServerAddr
	}
	if opts.Dir != "" {
		cfg.Dir = opts.Dir
	}
	if opts.Storage != "" {
		cfg.Storage = opts.Storage
	}
	if opts.PublicBaseURL != "" {
		cfg.PublicBaseURL = opts.PublicBaseURL
	}
	if opts.Quiet {
		cfg.LogLevel = logrus.WarnLevel.String()
	}

	err = cfg.Validate()
	if err != nil {
		logger.WithError(err).Fatal("Invalid config")
	}

	level, _ := logrus.ParseLevel(cfg.LogLevel)
	logger.SetLevel(level)

	return cfg
}

func mustInitStorage(ctx context.Context, logger *logrus.Logger, cfg *config.Config, e *emitter.Emitter) (AssetStorage, func()) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("Using in-memory storage, assets are lost on restart")
		return memdb.NewAssetStore(), func() {}
	}

	fs, err := filesystem.New(logger, cfg.Dir, e)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize filesystem")
	}

	// the janitor must be draining before the sweep fills the emitter
	janitor := asyncapi.NewJanitor(logger, fs)
	go janitor.Run(ctx, e.Chan())

	queued, err := fs.SweepTemp(ctx, staleTempAge)
	if err != nil {
		logger.WithError(err).Warn("Failed to sweep leftover temp files")
	}
	if queued > 0 {
		logger.WithField("queued", queued).Info("Queued leftover temp files for removal")
	}

	return fs, func() {
		if err := fs.Close(); err != nil {
			logger.WithError(err).Error("Failed to close filesystem")
		}
	}
}

func mustInitTracer(logger *logrus.Logger, appName string, discard bool) func(context.Context) error {
	exp, err := interceptors.NewSTDOUTExporter(discard)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize STDOUT trace exporter")
	}

	tp, err := interceptors.RegisterTraceProvider(appName, exp)
	if err != nil {
		logger.WithError(err).Fatal("Failed to register trace provider")
	}

	return tp.Shutdown
}
