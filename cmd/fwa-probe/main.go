package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/scottsmith200544/Firewall-Analysis/internal/config"
	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
	"github.com/scottsmith200544/Firewall-Analysis/internal/probe"
	"github.com/scottsmith200544/Firewall-Analysis/internal/probe/archive"
	"github.com/scottsmith200544/Firewall-Analysis/pkg/logfile"
	"github.com/scottsmith200544/Firewall-Analysis/pkg/pcapfile"
)

func main() {
	// --- Command-Line Flag Parsing ---
	mode := flag.String("mode", "sub", "Operating mode: 'pub' to read a file and publish, 'sub' to subscribe and print.")
	input := flag.String("input", "", "Log or capture file to publish (required for pub mode).")
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML config file.")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// --- Mode Dispatch ---
	switch *mode {
	case "pub":
		runPublisher(cfg, *input)
	case "sub":
		runSubscriber(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runPublisher reads the input file batch by batch and ships it to NATS.
func runPublisher(cfg *config.Config, inputPath string) {
	if inputPath == "" {
		log.Println("Error: -input flag is required for pub mode.")
		flag.Usage()
		os.Exit(1)
	}
	log.Printf("Starting fwa-probe in PUBLISH mode for file: %s", inputPath)

	pub, err := probe.NewPublisher(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	// Batches are sized for the message bus, not for analysis chunking.
	src, err := openSource(inputPath, cfg.Probe.BatchSize)
	if err != nil {
		log.Fatalf("Failed to open input: %v", err)
	}
	defer src.Close()

	var spool *archive.Worker
	if cfg.Probe.Archive.Enabled {
		spool, err = archive.NewWorker(cfg.Probe.Archive)
		if err != nil {
			log.Fatalf("Failed to start archive worker: %v", err)
		}
		defer spool.Stop()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		published := 0
		batches := 0
		for {
			recs, err := src.NextBatch()
			if len(recs) > 0 {
				batch := model.Batch{Records: recs}
				if perr := pub.Publish(batch); perr != nil {
					log.Printf("Failed to publish batch: %v", perr)
				}
				if spool != nil {
					spool.Enqueue(batch)
				}
				published += len(recs)
				batches++
				if batches%100 == 0 {
					log.Printf("%d records published...", published)
				}
			}
			if err == io.EOF {
				// Ship the final skip count so the engine's totals are exact.
				if src.Skipped() > 0 {
					if perr := pub.Publish(model.Batch{Skipped: src.Skipped()}); perr != nil {
						log.Printf("Failed to publish skip count: %v", perr)
					}
				}
				log.Printf("Finished publishing %d records (%d rows skipped).", published, src.Skipped())
				return
			}
			if err != nil {
				log.Printf("Fatal read error: %v", err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-sigChan:
		log.Println("Shutdown signal received, cleaning up...")
	}
}

// runSubscriber subscribes to the configured subject and prints a summary
// line per received batch.
func runSubscriber(cfg *config.Config) {
	log.Println("Starting fwa-probe in SUBSCRIBER mode...")

	sub, err := probe.NewSubscriber(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	handler := func(batch model.Batch) {
		log.Printf("Received batch: %d records, %d skipped", len(batch.Records), batch.Skipped)
	}

	if err := sub.Start(handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}

func openSource(path string, chunkSize int) (model.RecordSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcap", ".cap":
		return pcapfile.Open(path, chunkSize)
	default:
		return logfile.Open(path, chunkSize)
	}
}
