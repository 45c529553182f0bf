package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/scottsmith200544/Firewall-Analysis/internal/config"
	"github.com/scottsmith200544/Firewall-Analysis/internal/engine/stream"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML config file.")
	flag.Parse()

	log.Println("Starting fwa-engine...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize the streaming engine
	eng, err := stream.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	// 3. Start consuming batches
	if err := eng.Start(); err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}

	// 4. Wait for a shutdown signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	log.Println("Shutdown signal received, stopping engine...")
	eng.Stop()
	log.Println("Shutdown complete.")
}
