package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"BurstScope/internal/api"
	"BurstScope/internal/capture"
	"BurstScope/internal/config"
	"BurstScope/internal/engine/wlan"
	"BurstScope/internal/model"
	"BurstScope/internal/output"
	"BurstScope/internal/pipeline"
)

func main() {
	log.Println("Starting burstscope...")

	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	mode, err := model.ParseMode(cfg.Capture.Mode)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	format, err := model.ParseTimeFormat(cfg.Output.TimeFormat)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	average, err := wlan.ParseAveragePolicy(cfg.WLAN.Average)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	inactive, err := cfg.InactiveTime()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	tick, err := cfg.TickInterval()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	withPorts := mode == model.ModeIP && !cfg.Burst.IgnorePorts

	var rowWriters, exportWriters []output.Writer
	var mirror *os.File

	if !cfg.Output.Suppress {
		rowWriters = append(rowWriters, output.NewTextWriter(os.Stdout, withPorts))
	}
	if cfg.Output.File != "" {
		mirror, err = os.Create(cfg.Output.File)
		if err != nil {
			log.Fatalf("Failed to open bursts file: %v", err)
		}
		rowWriters = append(rowWriters, output.NewTextWriter(mirror, withPorts))
	}
	if cfg.Output.SQLite.Enabled {
		w, err := output.NewSQLiteWriter(cfg.Output.SQLite.Path)
		if err != nil {
			log.Fatalf("Failed to open burst store: %v", err)
		}
		exportWriters = append(exportWriters, w)
	}
	if cfg.Output.ClickHouse.Enabled {
		w, err := output.NewClickHouseWriter(cfg.Output.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to create ClickHouse writer: %v", err)
		}
		exportWriters = append(exportWriters, w)
	}
	if cfg.Output.NATS.Enabled {
		w, err := output.NewNATSWriter(cfg.Output.NATS)
		if err != nil {
			log.Fatalf("Failed to create NATS writer: %v", err)
		}
		exportWriters = append(exportWriters, w)
	}

	p := pipeline.New(pipeline.Options{
		Mode:          mode,
		IgnorePorts:   cfg.Burst.IgnorePorts,
		Inactive:      inactive,
		TickInterval:  tick,
		Guess:         !cfg.WLAN.NoGuess,
		MaxDeviation:  cfg.MaxDeviation(),
		Average:       average,
		TimeFormat:    format,
		Filter:        output.NewFilter(cfg.Filter),
		RowWriters:    rowWriters,
		ExportWriters: exportWriters,
	})

	var apiServer *api.Server
	if cfg.API.ListenAddr != "" {
		apiServer = api.NewServer(cfg.API.ListenAddr, p)
		apiServer.Start()
	}

	src, err := capture.NewTsharkSource(capture.Args(cfg, mode, format))
	if err != nil {
		log.Fatalf("Failed to start capture: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutdown signal received, stopping capture...")
		src.Stop()
	}()

	runErr := p.Run(src)

	for _, w := range append(rowWriters, exportWriters...) {
		if err := w.Close(); err != nil {
			log.Printf("Failed to close writer: %v", err)
		}
	}
	if mirror != nil {
		if err := mirror.Close(); err != nil {
			log.Printf("Failed to close bursts file: %v", err)
		}
	}

	if apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		apiServer.Shutdown(ctx)
		cancel()
	}

	if runErr != nil {
		log.Fatalf("Capture failed: %v", runErr)
	}
	log.Println("Shutdown complete.")
}
