package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/scottsmith200544/Firewall-Analysis/internal/config"
	"github.com/scottsmith200544/Firewall-Analysis/internal/engine/analyzer"
	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
	"github.com/scottsmith200544/Firewall-Analysis/internal/storage"
	"github.com/scottsmith200544/Firewall-Analysis/pkg/logfile"
	"github.com/scottsmith200544/Firewall-Analysis/pkg/pcapfile"
)

func main() {
	// 1. Parse command-line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML config file")
	topN := flag.Int("top", 0, "Override the number of candidate rules to emit (0 = use config)")
	ipThreshold := flag.Float64("ip-threshold", 0, "Override the prefix coverage threshold (0 = use config)")
	portThreshold := flag.Float64("port-threshold", 0, "Override the port dominance threshold (0 = use config)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: fwa-analyze [flags] <path_to_log_or_pcap_file>")
		flag.Usage()
		os.Exit(1)
	}
	inputPath := flag.Arg(0)

	// 2. Load configuration, falling back to defaults when the default
	// config file is absent.
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !flagWasSet("config") {
			log.Println("No config file found, using built-in defaults.")
			cfg = config.Default()
		} else {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *topN != 0 {
		cfg.Analysis.TopN = *topN
	}
	if *ipThreshold != 0 {
		cfg.Analysis.IPThreshold = *ipThreshold
	}
	if *portThreshold != 0 {
		cfg.Analysis.PortThreshold = *portThreshold
	}

	// 3. Initialize the analyzer; invalid options are fatal before any
	// input is read.
	a, err := analyzer.New(cfg.Analysis)
	if err != nil {
		log.Fatalf("Invalid analysis options: %v", err)
	}

	// 4. Open the input, picking the source by file extension.
	src, err := openSource(inputPath, cfg.Analysis.ChunkSize)
	if err != nil {
		log.Fatalf("Failed to open input: %v", err)
	}
	defer src.Close()
	log.Printf("Analyzing '%s'...", inputPath)

	// 5. Stream the whole input through the analyzer.
	if err := a.Run(src); err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	report, err := a.Finalize()
	if err != nil {
		log.Fatalf("Failed to finalize report: %v", err)
	}
	log.Printf("Processed %d records (%d skipped), %d candidate rules.",
		report.Records, report.Skipped, len(report.Rules))

	// 6. Persist the report through the configured writers.
	writers := storage.NewWriters(cfg.Writers)
	for _, w := range writers {
		if err := w.Write(report, cfg.Engine.AnalysisName); err != nil {
			log.Printf("Error writing report: %v", err)
		}
	}
	if err := storage.CloseAll(writers); err != nil {
		log.Printf("Error closing writers: %v", err)
	}

	// 7. Emit the report as JSON on stdout.
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		log.Fatalf("Failed to encode report: %v", err)
	}
}

// openSource picks the record source from the input file extension:
// capture files go through the packet decoder, everything else is treated
// as an exported firewall log.
func openSource(path string, chunkSize int) (model.RecordSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcap", ".cap":
		return pcapfile.Open(path, chunkSize)
	default:
		return logfile.Open(path, chunkSize)
	}
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
