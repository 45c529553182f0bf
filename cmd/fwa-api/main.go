package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/scottsmith200544/Firewall-Analysis/internal/config"
	"github.com/scottsmith200544/Firewall-Analysis/internal/engine/analyzer"
	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
	"github.com/scottsmith200544/Firewall-Analysis/internal/query"
	"github.com/scottsmith200544/Firewall-Analysis/internal/storage"
	"github.com/scottsmith200544/Firewall-Analysis/pkg/logfile"
	"github.com/scottsmith200544/Firewall-Analysis/pkg/pcapfile"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML config file.")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.API.LogPath)

	// Report writers are shared by every analysis run through the API.
	writers := storage.NewWriters(cfg.Writers)

	// Find the first enabled SQLite writer config; it backs the rule
	// history endpoint. The writers above have already ensured the schema.
	var querier query.Querier
	for _, writerDef := range cfg.Writers {
		if writerDef.Enabled && writerDef.Type == "sqlite" {
			q, qerr := query.NewSQLiteQuerier(writerDef.SQLite)
			if qerr != nil {
				log.Printf("Warning: rule history disabled: %v", qerr)
				break
			}
			querier = q
			break
		}
	}
	if querier == nil {
		log.Println("No enabled sqlite writer found; /api/v1/rules will be unavailable.")
	}

	metrics := newAPIMetrics()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		metrics.analyses,
		metrics.records,
		metrics.skipped,
		metrics.duration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
		collectors.NewBuildInfoCollector(),
	)

	// Initialize router
	r := mux.NewRouter()

	// Create API handler with its dependencies
	apiHandler := &APIHandler{
		cfg:     cfg.Analysis,
		name:    cfg.Engine.AnalysisName,
		writers: writers,
		querier: querier,
		metrics: metrics,
	}

	// Define API routes
	r.HandleFunc("/api/v1/analyze", apiHandler.analyzeHandler).Methods("POST")
	r.HandleFunc("/api/v1/report", apiHandler.reportHandler).Methods("GET")
	r.HandleFunc("/api/v1/rules", apiHandler.rulesHandler).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")

	// Start HTTP server
	server := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: r,
	}

	go func() {
		log.Printf("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	if err := storage.CloseAll(writers); err != nil {
		log.Printf("Failed to close writers: %v", err)
	}
	if querier != nil {
		if err := querier.Close(); err != nil {
			log.Printf("Failed to close querier: %v", err)
		}
	}
	log.Println("API server exited.")
}

// setupLogging mirrors stdout to a rotating log file when a path is
// configured.
func setupLogging(path string) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if path == "" {
		return
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("Warning: could not create log directory: %v", err)
			return
		}
	}

	logFile := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,  // files
		MaxAge:     28, // days
		Compress:   true,
	}

	// Write to both standard output and the file
	multiWriter := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(multiWriter)
}

type apiMetrics struct {
	analyses prometheus.Counter
	records  prometheus.Counter
	skipped  prometheus.Counter
	duration prometheus.Histogram
}

func newAPIMetrics() *apiMetrics {
	return &apiMetrics{
		analyses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fwa_analyses_total",
			Help: "Number of analysis runs served by the API.",
		}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fwa_records_analyzed_total",
			Help: "Number of traffic records aggregated across all runs.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fwa_rows_skipped_total",
			Help: "Number of unparsable rows skipped across all runs.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fwa_analysis_duration_seconds",
			Help:    "Wall-clock duration of a single analysis run.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// APIHandler holds the dependencies for API handlers.
type APIHandler struct {
	cfg     config.AnalysisConfig
	name    string
	writers []model.ReportWriter
	querier query.Querier
	metrics *apiMetrics

	mu         sync.RWMutex
	lastReport *model.Report
}

// analyzeRequest names the input file and optional per-request
// overrides of the configured analysis options. Pointer fields
// distinguish an absent override from an explicit zero.
type analyzeRequest struct {
	Path          string   `json:"path"`
	TopN          *int     `json:"top_n,omitempty"`
	IPThreshold   *float64 `json:"ip_threshold,omitempty"`
	PortThreshold *float64 `json:"port_threshold,omitempty"`
}

// analyzeHandler runs a full analysis of the requested file and returns
// the report.
func (h *APIHandler) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		http.Error(w, "field 'path' is required", http.StatusBadRequest)
		return
	}

	cfg := h.cfg
	if req.TopN != nil {
		cfg.TopN = *req.TopN
	}
	if req.IPThreshold != nil {
		cfg.IPThreshold = *req.IPThreshold
	}
	if req.PortThreshold != nil {
		cfg.PortThreshold = *req.PortThreshold
	}

	a, err := analyzer.New(cfg)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid analysis options: %v", err), http.StatusBadRequest)
		return
	}

	src, err := openSource(req.Path, cfg.ChunkSize)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, os.ErrNotExist) {
			status = http.StatusBadRequest
		}
		http.Error(w, fmt.Sprintf("failed to open input: %v", err), status)
		return
	}
	defer src.Close()

	start := time.Now()
	if err := a.Run(src); err != nil {
		http.Error(w, fmt.Sprintf("analysis failed: %v", err), http.StatusInternalServerError)
		return
	}
	report, err := a.Finalize()
	if err != nil {
		http.Error(w, fmt.Sprintf("analysis failed: %v", err), http.StatusInternalServerError)
		return
	}

	h.metrics.duration.Observe(time.Since(start).Seconds())
	h.metrics.analyses.Inc()
	h.metrics.records.Add(float64(report.Records))
	h.metrics.skipped.Add(float64(report.Skipped))

	h.mu.Lock()
	h.lastReport = report
	h.mu.Unlock()

	for _, wr := range h.writers {
		if werr := wr.Write(report, h.name); werr != nil {
			log.Printf("Failed to persist report: %v", werr)
		}
	}
	log.Printf("Analyzed %s: %d records (%d skipped), %d candidate rules.",
		req.Path, report.Records, report.Skipped, len(report.Rules))

	writeJSON(w, report)
}

// rulesHandler serves the candidate rules of the most recent persisted
// report for an analysis, read back from the history database.
func (h *APIHandler) rulesHandler(w http.ResponseWriter, r *http.Request) {
	if h.querier == nil {
		http.Error(w, "rule history requires an enabled sqlite writer", http.StatusServiceUnavailable)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = h.name
	}

	rules, err := h.querier.LatestRules(r.Context(), name)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query rule history: %v", err), http.StatusInternalServerError)
		return
	}
	if len(rules) == 0 {
		http.Error(w, fmt.Sprintf("no stored rules for analysis %q", name), http.StatusNotFound)
		return
	}
	writeJSON(w, rules)
}

// reportHandler returns the most recent report, if any.
func (h *APIHandler) reportHandler(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	report := h.lastReport
	h.mu.RUnlock()

	if report == nil {
		http.Error(w, "no report available yet", http.StatusNotFound)
		return
	}
	writeJSON(w, report)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(jsonBytes)
}

func openSource(path string, chunkSize int) (model.RecordSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcap", ".cap":
		return pcapfile.Open(path, chunkSize)
	default:
		return logfile.Open(path, chunkSize)
	}
}
