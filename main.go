package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"matchfabric/api"
	"matchfabric/config"
	"matchfabric/engine"
	"matchfabric/fabric"
	"matchfabric/feed"
	"matchfabric/matching"
)

const feedWorkers = 32

func main() {
	cfg, err := config.Load(os.Getenv("MATCHFABRIC_CONFIG"))
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	// Trade sinks: structured log always, websocket feed when enabled.
	sinks := fabric.MultiSink{fabric.NewLogSink(logger)}
	var hub *feed.Hub
	var feedHandler gin.HandlerFunc
	if cfg.Feed.Enabled {
		hub, err = feed.NewHub(feedWorkers, logger)
		if err != nil {
			logger.Fatal("feed hub init failed", zap.Error(err))
		}
		sinks = append(sinks, hub)
		feedHandler = hub.Handler()
	}

	symbols := make([]engine.SymbolSpec, 0, len(cfg.Symbols))
	for _, sc := range cfg.Symbols {
		alg, err := matching.ParseAlgorithm(sc.Algorithm)
		if err != nil {
			logger.Fatal("bad symbol config", zap.String("symbol", sc.Name), zap.Error(err))
		}
		frac := sc.FIFOFraction
		if alg == matching.AlgorithmHybrid && frac == 0 {
			frac = matching.DefaultFIFOFraction
		}
		symbols = append(symbols, engine.SymbolSpec{
			Name:         sc.Name,
			Algorithm:    alg,
			FIFOFraction: frac,
		})
	}

	sup, err := engine.New(engine.Options{
		Symbols:        symbols,
		IngressWorkers: cfg.Engine.IngressWorkers,
		IngressBuffer:  cfg.Engine.IngressBuffer,
		ShardQueueSize: cfg.Engine.ShardQueueSize,
		PinCPUs:        cfg.Engine.PinCPUs,
		Sink:           sinks,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("engine startup failed", zap.Error(err))
	}
	sup.Start()

	port := api.NewServer(sup.Ingress(), cfg.SymbolNames(), logger, cfg.Feed.Path, feedHandler)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: port.Handler(),
	}

	go func() {
		logger.Info("submission port listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	sup.Stop()
	if hub != nil {
		hub.Close()
	}
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
