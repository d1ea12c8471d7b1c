package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/swdee/go-facewatch"
	"github.com/swdee/go-facewatch/eventbus"
	"github.com/swdee/go-facewatch/geometry"
	"github.com/swdee/go-facewatch/internal/config"
	"github.com/swdee/go-facewatch/internal/log"
	"github.com/swdee/go-facewatch/monitor"
	"github.com/swdee/go-facewatch/render"
	"github.com/swdee/go-facewatch/stream"
)

func main() {

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := config.Default()
	cfg.RegisterFlags(flag.CommandLine)
	labelFile := flag.String("l", "", "Text file containing labels to restrict rendering to")

	flag.Parse()

	logger := log.NewLogger(log.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	if err := cfg.Validate(); err != nil {
		logger.Fatal(err)
	}

	allow := facewatch.ParseLabels(cfg.Labels)

	if *labelFile != "" {
		var err error
		allow, err = facewatch.LoadLabels(*labelFile)

		if err != nil {
			logger.WithError(err).Fatal("Error loading labels")
		}
	}

	format, err := facewatch.ParseFormat(cfg.DetectorFormat)

	if err != nil {
		logger.Fatal(err)
	}

	// create a pool of detectors so frames that take longer than the
	// interval to detect can overlap
	pool, err := facewatch.NewPool(cfg.PoolSize, func() (facewatch.Detector, error) {
		d := facewatch.NewHTTPDetector(cfg.DetectorURL, cfg.DetectorTimeout)
		d.SetFormat(format)
		return d, nil
	})

	if err != nil {
		logger.WithError(err).Fatal("Error creating detector pool")
	}

	defer pool.Close()

	probe := facewatch.NewHTTPDetector(cfg.DetectorURL, cfg.DetectorTimeout)

	if !probe.IsAlive(context.Background()) {
		logger.WithField("url", cfg.DetectorURL).Warn("Detector not reachable, frames will fail until it is")
	}

	probe.Close()

	source, err := monitor.OpenVideoSource(cfg.Source)

	if err != nil {
		logger.WithError(err).Fatal("Error opening video source")
	}

	defer source.Close()

	surface := monitor.NewSurface(
		geometry.NewSize(cfg.DisplayWidth, cfg.DisplayHeight),
		monitor.ParseFit(cfg.Fit),
	)

	hub := stream.NewHub(render.NewRenderer(cfg.HistorySize, allow), surface,
		render.DefaultStyle(), logger)
	defer hub.Close()

	mon := monitor.New(source, pool, surface, hub, monitor.Options{
		Interval:    cfg.Interval,
		MaxInFlight: cfg.PoolSize * 2,
		Log:         logger,
	})

	if cfg.RedisAddr != "" {
		bus := eventbus.NewRedisPublisher(eventbus.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Channel:  cfg.RedisChannel,
		}, mon.SessionID(), logger)
		defer bus.Close()

		mon.AddSink(bus)
	}

	hub.SetStats(mon.Stats().Summary)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Open browser and view video at http://%s/", cfg.HTTPAddr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("HTTP server failed")
			stop()
		}
	}()

	if err := mon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("Monitor stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv.Shutdown(shutdownCtx)

	sum := mon.Stats().Summary()
	logger.WithFields(log.Fields{
		"frames":  sum.Frames,
		"errors":  sum.Errors,
		"dropped": sum.Dropped,
		"latency": sum.MeanLatency,
	}).Info("Shutdown complete")
}
