package archive

import (
	"encoding/csv"
	"encoding/gob"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/scottsmith200544/Firewall-Analysis/internal/config"
	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

// Worker spools record batches to a local file in the background, so a
// probe keeps a replayable copy of everything it ships to the engine. The
// csv encoding writes a columnar log that the analyzer accepts as input;
// gob writes the raw batch stream.
type Worker struct {
	batchChan chan model.Batch
	done      chan struct{}
	path      string
}

// NewWorker creates the archive file and starts the spool goroutine.
func NewWorker(cfg config.ArchiveConfig) (*Worker, error) {
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "csv"
	}
	ext := ".csv"
	if encoding == "gob" {
		ext = ".gob"
	}

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 64
	}

	fileName := fmt.Sprintf("%s%s", time.Now().Format("2006-01-02_15-04-05"), ext)
	filePath := filepath.Join(cfg.Path, fileName)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}

	w := &Worker{
		batchChan: make(chan model.Batch, bufferSize),
		done:      make(chan struct{}),
		path:      filePath,
	}

	switch encoding {
	case "csv":
		go w.runCSV(file)
	case "gob":
		go w.runGob(file)
	default:
		file.Close()
		os.Remove(filePath)
		return nil, fmt.Errorf("unknown archive encoding '%s'", encoding)
	}

	log.Printf("Archive worker started, encoding: %s, writing to: %s", encoding, filePath)
	return w, nil
}

// Path returns the archive file location.
func (w *Worker) Path() string {
	return w.path
}

// Enqueue hands a batch to the spool goroutine. When the buffer is full
// the batch is dropped rather than stalling the capture path.
func (w *Worker) Enqueue(batch model.Batch) {
	select {
	case w.batchChan <- batch:
	default:
		log.Println("Archive worker: channel is full, dropping batch.")
	}
}

// Stop flushes pending batches and closes the archive file.
func (w *Worker) Stop() {
	close(w.batchChan)
	<-w.done
}

func (w *Worker) runCSV(file *os.File) {
	defer close(w.done)
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write([]string{"srcip", "dstip", "srcport", "dstport"}); err != nil {
		log.Printf("Archive worker (csv): error writing header: %v", err)
	}
	for batch := range w.batchChan {
		for _, rec := range batch.Records {
			row := []string{
				model.FormatAddr(rec.SrcIP),
				model.FormatAddr(rec.DstIP),
				strconv.Itoa(int(rec.SrcPort)),
				strconv.Itoa(int(rec.DstPort)),
			}
			if err := cw.Write(row); err != nil {
				log.Printf("Archive worker (csv): error writing record: %v", err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Printf("Archive worker (csv): error flushing: %v", err)
	}
}

func (w *Worker) runGob(file *os.File) {
	defer close(w.done)
	defer file.Close()

	encoder := gob.NewEncoder(file)
	for batch := range w.batchChan {
		if err := encoder.Encode(batch); err != nil {
			log.Printf("Archive worker (gob): error encoding batch: %v", err)
		}
	}
}
