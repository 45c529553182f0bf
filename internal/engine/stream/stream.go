package stream

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/scottsmith200544/Firewall-Analysis/internal/config"
	"github.com/scottsmith200544/Firewall-Analysis/internal/engine/analyzer"
	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
	"github.com/scottsmith200544/Firewall-Analysis/internal/probe"
	"github.com/scottsmith200544/Firewall-Analysis/internal/storage"
)

// Engine ties a NATS subscriber to an analyzer and a set of report
// writers. Each snapshot interval is an independent measurement window:
// the engine finalizes a report, hands it to every writer and resets the
// accumulators for the next window.
type Engine struct {
	analyzer *analyzer.Analyzer
	writers  []model.ReportWriter
	sub      *probe.Subscriber
	name     string
	interval time.Duration

	batchChan  chan model.Batch
	done       chan struct{}
	workerWg   sync.WaitGroup
	snapshotWg sync.WaitGroup
}

// New creates an engine from the full configuration.
func New(cfg *config.Config) (*Engine, error) {
	a, err := analyzer.New(cfg.Analysis)
	if err != nil {
		return nil, err
	}

	interval, err := time.ParseDuration(cfg.Engine.SnapshotInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot_interval: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("snapshot_interval must be a positive duration")
	}

	sub, err := probe.NewSubscriber(cfg.Probe)
	if err != nil {
		return nil, err
	}

	return &Engine{
		analyzer:  a,
		writers:   storage.NewWriters(cfg.Writers),
		sub:       sub,
		name:      cfg.Engine.AnalysisName,
		interval:  interval,
		batchChan: make(chan model.Batch, 256),
		done:      make(chan struct{}),
	}, nil
}

// Start begins consuming batches and launches the snapshot loop.
func (e *Engine) Start() error {
	if err := e.sub.Start(e.enqueue); err != nil {
		return err
	}

	e.workerWg.Add(1)
	go e.worker()

	e.snapshotWg.Add(1)
	go e.runSnapshotter()

	log.Printf("Engine started: analysis '%s', snapshot interval %s, %d writer(s).",
		e.name, e.interval, len(e.writers))
	return nil
}

// enqueue hands a batch from the subscriber to the worker. When the buffer
// is full the batch is dropped rather than stalling the NATS callback.
func (e *Engine) enqueue(batch model.Batch) {
	select {
	case e.batchChan <- batch:
	default:
		log.Println("Engine: batch channel is full, dropping batch.")
	}
}

func (e *Engine) worker() {
	defer e.workerWg.Done()
	for batch := range e.batchChan {
		e.analyzer.ObserveBatch(batch.Records)
		if batch.Skipped > 0 {
			e.analyzer.AddSkipped(batch.Skipped)
		}
	}
}

func (e *Engine) runSnapshotter() {
	defer e.snapshotWg.Done()
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.takeSnapshot()
		case <-e.done:
			e.takeSnapshot()
			return
		}
	}
}

// takeSnapshot closes the current measurement window. Windows in which
// nothing arrived produce no report.
func (e *Engine) takeSnapshot() {
	report, err := e.analyzer.Finalize()
	if err != nil {
		log.Printf("Error finalizing report: %v", err)
		return
	}
	if report.Records == 0 && report.Skipped == 0 {
		return
	}

	for _, w := range e.writers {
		if err := w.Write(report, e.name); err != nil {
			log.Printf("Error writing report for analysis '%s': %v", e.name, err)
		}
	}
	e.analyzer.Reset()

	log.Printf("Snapshot for analysis '%s': %d records, %d skipped, %d rules.",
		e.name, report.Records, report.Skipped, len(report.Rules))
}

// Stop gracefully shuts down the engine.
func (e *Engine) Stop() {
	log.Println("Engine stopping...")
	// 1. Stop accepting new batches.
	e.sub.Close()
	close(e.batchChan)

	// 2. Wait for the worker to drain buffered batches.
	e.workerWg.Wait()

	// 3. Signal the snapshotter to write the final window and exit.
	close(e.done)
	e.snapshotWg.Wait()

	// 4. Close the writers.
	if err := storage.CloseAll(e.writers); err != nil {
		log.Printf("Error closing writers: %v", err)
	}
	log.Println("Engine stopped.")
}
