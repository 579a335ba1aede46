package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"holodash/internal/config"
	"holodash/internal/discovery"
	"holodash/internal/handlers"
	"holodash/internal/manager"
	"holodash/internal/metrics"
	"holodash/internal/middleware"
	"holodash/internal/probe"
	"holodash/internal/registry"
	"holodash/internal/telemetry"
	"holodash/internal/utils"
	"holodash/internal/version"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

type App struct {
	cfg         config.Config
	logger      *utils.Logger
	registry    *registry.Registry
	wsHub       *middleware.Hub
	scheduler   *manager.Scheduler
	metrics     *metrics.Collectors
	rateLimiter *middleware.RateLimiter
	fanLimiter  *middleware.RateLimiter
}

var app *App

const (
	envConfig = "HOLODASH_CONFIG"
	envDebug  = "HOLODASH_DEBUG"
)

func envBool(key string) bool {
	val := os.Getenv(key)
	if val == "" {
		return false
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false
	}
	return parsed
}

func main() {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	if envBool(envDebug) {
		gin.SetMode(gin.DebugMode)
	}

	fs := pflag.NewFlagSet("holodash", pflag.ExitOnError)
	configPath := fs.StringP("config", "c", os.Getenv(envConfig), "path to a YAML config file")
	logFile := fs.String("log-file", "", "log file (default logs/holodash.log next to the binary)")
	showVersion := fs.BoolP("version", "v", false, "print the version and exit")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: holodash [flags] [snapshot]\n\n")
		fmt.Fprintf(os.Stderr, "With no command, serves the dashboard stream. \"snapshot\" prints one sample and exits.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(*configPath, *logFile)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	switch fs.Arg(0) {
	case "":
	case "snapshot":
		if err := snapshotCommand(cfg, os.Stdout); err != nil {
			log.Fatalf("snapshot: %v", err)
		}
		return
	default:
		fs.Usage()
		os.Exit(2)
	}

	paths := utils.ExecutablePaths()
	if cfg.LogFile == "" {
		cfg.LogFile = paths.LogFile()
	}
	logger := utils.NewLogger(cfg.LogFile)
	defer logger.Close()
	logger.Write("holodash " + version.String() + " starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	candidates := paths.ProbeCandidates(cfg.ProbePaths...)
	var sensor probe.Probe
	if tool := probe.Discover(ctx, candidates, nil); tool != nil {
		logger.Write("Found temp_sensor at: " + tool.Path)
		sensor = tool
	} else {
		logger.Write("temp_sensor not found, using platform sensors")
	}
	aggregator := telemetry.NewAggregator(ctx, telemetry.NewHostPlatform(), sensor, logger)

	udpAddr, err := net.ResolveUDPAddr("udp", cfg.UDPAddr())
	if err != nil {
		log.Fatalf("Invalid UDP address %s: %v", cfg.UDPAddr(), err)
	}
	udpConn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		log.Fatalf("UDP bind %s failed: %v", cfg.UDPAddr(), err)
	}
	logger.Write("UDP discovery listening on " + udpConn.LocalAddr().String())

	app = newApp(cfg, logger, aggregator, udpConn)

	listener := discovery.NewListener(udpConn, app.registry, probe.NewFanControl(candidates, nil), logger).
		WithFanLimiter(app.fanLimiter).
		WithMetrics(app.metrics)
	go func() {
		if err := listener.Serve(ctx); err != nil {
			logger.Write(fmt.Sprintf("UDP listener stopped: %v", err))
		}
	}()

	app.scheduler.Start(ctx)

	var forwarder *utils.PortForwarder
	if cfg.NAT.Enabled {
		forwarder = utils.NewPortForwarder(logger, cfg.NAT.Lease,
			utils.PortMapping{Protocol: "tcp", Port: cfg.WSPort},
			utils.PortMapping{Protocol: "udp", Port: cfg.UDPPort},
		)
		forwarder.Start(ctx)
	}

	r := setupRouter()

	// Streaming sessions manage their own deadlines, so only headers are bounded here.
	srv := &http.Server{
		Addr:              cfg.WSAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Write("WebSocket server listening on " + cfg.WSAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Write("Shutting down server...")

	// the scheduler writes to the UDP socket, stop it before the listener closes it
	app.scheduler.Stop()
	if forwarder != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		forwarder.Stop(stopCtx)
		stopCancel()
	}
	cancel()

	app.rateLimiter.Stop()
	app.fanLimiter.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Write(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	logger.Write("Server exited")
}

// loadConfig layers the YAML file, HOLODASH_* variables and flags, in that order.
func loadConfig(path, logFile string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := config.ApplyEnv(&cfg, os.Getenv); err != nil {
		return config.Config{}, err
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newApp wires the shared components. sender may be nil to disable unicast.
func newApp(cfg config.Config, logger *utils.Logger, sampler manager.Sampler, sender manager.Sender) *App {
	a := &App{
		cfg:         cfg,
		logger:      logger,
		registry:    registry.New(),
		wsHub:       middleware.NewHub(logger),
		metrics:     metrics.New(),
		rateLimiter: middleware.NewRateLimiter(rate.Every(time.Minute/time.Duration(cfg.HTTPRate)), 10),
		fanLimiter:  middleware.NewRateLimiter(rate.Every(time.Second), cfg.FanBurst),
	}
	a.scheduler = manager.NewScheduler(sampler, a.wsHub, a.registry, sender, logger).WithMetrics(a.metrics)

	a.metrics.GaugeFunc("stream_sessions", "Attached WebSocket sessions.", func() float64 {
		return float64(a.wsHub.Count())
	})
	a.metrics.GaugeFunc("udp_clients", "Registered datagram clients.", func() float64 {
		return float64(a.registry.Len())
	})
	return a
}

func setupRouter() *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output: app.logger.Writer(),
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC1123),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	status := handlers.NewStatusHandlers(app.scheduler, app.registry, app.wsHub)

	r.GET("/healthz", status.Healthz)
	r.GET("/readyz", status.Readyz)
	r.GET("/version", status.Version)

	// dashboards connect to the bare host:port as well as /ws
	r.GET("/", app.wsHub.HandleWebSocket())
	r.GET("/ws", app.wsHub.HandleWebSocket())

	api := r.Group("/api")
	api.Use(app.rateLimiter.Middleware())
	{
		api.GET("/snapshot", status.APISnapshot)
		api.GET("/clients", status.APIClients)
	}

	r.GET("/metrics", app.rateLimiter.Middleware(), gin.WrapH(app.metrics.Handler()))

	return r
}

func snapshotCommand(cfg config.Config, out *os.File) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := utils.NewWriterLogger(io.Discard)
	candidates := utils.ExecutablePaths().ProbeCandidates(cfg.ProbePaths...)
	var sensor probe.Probe
	if tool := probe.Discover(ctx, candidates, nil); tool != nil {
		sensor = tool
	}
	aggregator := telemetry.NewAggregator(ctx, telemetry.NewHostPlatform(), sensor, logger)
	// a synchronous probe query keeps the one-shot sample complete
	aggregator.SetProbeBudget(probe.DefaultQueryTimeout)

	return writeSnapshot(ctx, aggregator, out, term.IsTerminal(int(out.Fd())))
}

// writeSnapshot takes one sample after the warm-up and prints it as JSON,
// indented when pretty is set.
func writeSnapshot(ctx context.Context, sampler manager.Sampler, w io.Writer, pretty bool) error {
	// first call primes the CPU counters
	sampler.Sample(ctx)
	select {
	case <-time.After(manager.WarmUp):
	case <-ctx.Done():
		return ctx.Err()
	}
	snap := sampler.Sample(ctx)

	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(snap, "", "  ")
	} else {
		data, err = json.Marshal(snap)
	}
	if err != nil {
		return fmt.Errorf("serialize snapshot: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
