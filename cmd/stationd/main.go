// Command stationd runs the station-mode WiFi manager, the diagnostics
// API and the LED-matrix status loop of the GridLight device.
//
// The host build wires the simulated driver and a discard SPI bus; the
// hardware build substitutes the vendor driver binding and the real SPI
// transport at this seam.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gridlight/stationd/internal/audit"
	"github.com/gridlight/stationd/internal/auth"
	"github.com/gridlight/stationd/internal/config"
	"github.com/gridlight/stationd/internal/diag"
	"github.com/gridlight/stationd/internal/display"
	"github.com/gridlight/stationd/internal/driver"
	"github.com/gridlight/stationd/internal/driver/fake"
	"github.com/gridlight/stationd/internal/station"
	"github.com/gridlight/stationd/internal/telemetry"
)

const version = "1.0.0"

// discardSPI stands in for the hardware SPI bus on host builds.
type discardSPI struct{}

func (discardSPI) Tx(w []byte) error { return nil }

func main() {
	configPath := flag.String("config", "stationd.toml", "path to TOML configuration")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("starting stationd", zap.String("version", version))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	auditLog, err := audit.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal("failed to open audit log", zap.Error(err))
	}
	defer auditLog.Close()

	hub := telemetry.NewHub(cfg.Diag.EventBufferSize)
	defer hub.Close()

	drv := fake.New()
	mgr := station.NewManager(drv,
		station.WithLogger(log.Named("station")),
		station.WithTimings(cfg.Timing.Timings()),
		station.WithTelemetry(hub),
	)

	if err := mgr.Init(); err != nil {
		log.Fatal("station init failed", zap.Error(err))
	}

	if cfg.Station.SSID != "" {
		go func() {
			if err := mgr.ConnectSta(cfg.Station.SSID, cfg.Station.Password, cfg.Station.ConnectTimeout()); err != nil {
				log.Warn("boot connect failed", zap.Error(err))
			}
		}()
	}

	matrix, err := display.NewMatrix(discardSPI{}, cfg.Display.Cascade, byte(cfg.Display.Intensity))
	if err != nil {
		log.Fatal("display setup failed", zap.Error(err))
	}
	if err := matrix.Init(); err != nil {
		log.Warn("display init failed", zap.Error(err))
	}

	stop := make(chan struct{})
	go statusLoop(log, mgr, matrix, stop)

	var authM *auth.Middleware
	if cfg.Diag.AuthSecret != "" {
		verifier, err := auth.NewVerifier(cfg.Diag.AuthSecret)
		if err != nil {
			log.Fatal("auth setup failed", zap.Error(err))
		}
		authM = auth.NewMiddleware(verifier)
	} else {
		authM = auth.NewMiddleware(nil)
		log.Warn("diagnostics auth disabled: no auth_secret configured")
	}

	server := diag.NewServer(log.Named("diag"), mgr, hub, auditLog, authM)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(cfg.Diag.Addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Info("shutting down", zap.String("signal", s.String()))
	case err := <-serverErr:
		log.Error("diagnostics server failed", zap.Error(err))
	}

	close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn("diag shutdown incomplete", zap.Error(err))
	}

	// Resource-keeping teardown first, then full release on exit: the
	// process owns everything it created, so nothing is shared anymore.
	if err := mgr.Stop(); err != nil {
		log.Warn("station stop incomplete", zap.Error(err))
	}
	if err := mgr.Release(); err != nil {
		log.Warn("station release incomplete", zap.Error(err))
	}
	if err := matrix.Shutdown(); err != nil {
		log.Warn("display shutdown incomplete", zap.Error(err))
	}
	log.Info("stationd stopped")
}

// statusLoop refreshes the LED matrix with the connectivity state once a
// second.
func statusLoop(log *zap.Logger, mgr *station.Manager, matrix *display.Matrix, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		matrix.Clear()
		switch {
		case mgr.IsConnected():
			if info, err := mgr.GetIpInfo(); err == nil {
				matrix.DrawText(0, lastOctet(info))
			} else {
				matrix.DrawText(0, "UP")
			}
		case mgr.IsStarted():
			matrix.DrawText(0, "NC")
		default:
			matrix.DrawText(0, "OFF")
		}
		if err := matrix.Flush(); err != nil {
			log.Debug("display flush failed", zap.Error(err))
		}
	}
}

func lastOctet(info driver.IPInfo) string {
	addr := info.Addr
	if !addr.Is4() {
		return "UP"
	}
	b := addr.As4()
	return "." + strconv.Itoa(int(b[3]))
}
