package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/gymtracker/internal/auth"
	"github.com/2beens/gymtracker/internal/config"
	"github.com/2beens/gymtracker/internal/drivesync"
	"github.com/2beens/gymtracker/internal/logging"
	"github.com/2beens/gymtracker/internal/metrics"
	"github.com/2beens/gymtracker/internal/store"
	"github.com/2beens/gymtracker/internal/tracker"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	sentryDSN := os.Getenv("SENTRY_DSN")
	logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.LogsPath,
		LogToStdout:   cfg.LogToStdout,
		LogLevel:      cfg.LogLevel,
		LogFormatJSON: false,
		Environment:   cfg.Environment,
		SentryEnabled: cfg.SentryEnabled,
		SentryDSN:     sentryDSN,
	})

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using logs path: [%s]", cfg.LogsPath)
	log.Debugf("using database path: [%s]", cfg.DatabasePath)

	driveClientSecret := os.Getenv("GYMTRACKER_DRIVE_CLIENT_SECRET")
	if driveClientSecret == "" {
		log.Errorf("drive client secret not set, use GYMTRACKER_DRIVE_CLIENT_SECRET env var to set it")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		log.Fatalf("create database dir: %s", err)
	}

	localStore, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open local store: %s", err)
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	snapshot, found := localStore.LoadSnapshot(ctx)
	if found {
		log.Debugf("loaded %d machines from local store", len(snapshot.Machines))
	} else {
		log.Debugln("no saved state found, starting empty")
	}
	trackerModel := tracker.New(snapshot)

	promRegistry := prometheus.NewRegistry()
	metricsManager := metrics.NewManager("gymtracker", "service", promRegistry)

	autosaver := tracker.NewAutosaver(trackerModel, localStore, metricsManager)

	flow := auth.NewLoopbackFlow(cfg.DriveClientID, driveClientSecret)
	authManager := auth.NewManager(flow, localStore)

	transport, err := drivesync.NewDriveTransport(ctx, authManager)
	if err != nil {
		log.Fatalf("create drive transport: %s", err)
	}

	engine := drivesync.NewEngine(
		transport, authManager, trackerModel, localStore, autosaver, metricsManager,
	)
	engine.LoadBookkeeping(ctx)

	autosaver.OnSaved = func() {
		engine.MaybeSync(ctx)
	}
	autosaver.Start(ctx)

	router := mux.NewRouter()
	tracker.NewHandler(trackerModel, engine.LoginRequired).SetupRoutes(router)
	drivesync.NewHandler(engine, localStore).SetupRoutes(router)

	ipAndPort := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	httpServer := &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	metricsAddr := net.JoinHostPort(cfg.PrometheusMetricsHost, cfg.PrometheusMetricsPort)
	metricsHttpServer := &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	metricsManager.GaugeLifeSignal.Set(1)

	// silent reconnect: never pops a prompt, just re-arms the sign-in
	// gate when it cannot proceed
	if authManager.PreviouslyConnected(ctx) {
		go func() {
			if err := engine.Connect(ctx, false); err != nil {
				log.Debugf("silent drive reconnect not possible: %s", err)
			}
		}()
	}

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, shutting down ...", receivedSig)
	cancel()

	gracefulShutdown(httpServer, metricsHttpServer, engine, autosaver, localStore, metricsManager)
}

func gracefulShutdown(
	httpServer *http.Server,
	metricsHttpServer *http.Server,
	engine *drivesync.Engine,
	autosaver *tracker.Autosaver,
	localStore *store.Store,
	metricsManager *metrics.Manager,
) {
	log.Debug("graceful shutdown initiated ...")

	metricsManager.GaugeLifeSignal.Set(0)

	engine.StopScheduler()
	autosaver.Wait()

	if err := localStore.Close(); err != nil {
		log.Errorf("failed to close local store: %s", err)
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := 15 * time.Second
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}
