package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"
)

func main() {
	outputFile := flag.String("o", "test.csv", "Output log file path")
	rowCount := flag.Int("c", 1000, "Number of rows to generate")
	format := flag.String("format", "csv", "Row format: 'csv' or 'kv'")
	malformed := flag.Float64("malformed", 0.01, "Fraction of rows emitted malformed")
	flag.Parse()

	if *format != "csv" && *format != "kv" {
		log.Fatalf("Unknown format %q, want 'csv' or 'kv'", *format)
	}

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	log.Printf("Generating %d %s rows into %s...", *rowCount, *format, *outputFile)

	var w *csv.Writer
	if *format == "csv" {
		w = csv.NewWriter(f)
		if err := w.Write([]string{"date", "srcip", "srcport", "dstip", "dstport", "action"}); err != nil {
			log.Fatalf("Failed to write header: %v", err)
		}
	}

	day := time.Now().Format("2006-01-02")
	bad := 0
	for i := 0; i < *rowCount; i++ {
		if (i+1)%100000 == 0 {
			log.Printf("Generated %d rows...", i+1)
		}

		// The first row must be clean so format detection works on the
		// generated file.
		if i > 0 && rand.Float64() < *malformed {
			bad++
			if w != nil {
				if err := w.Write(malformedRow()); err != nil {
					log.Fatalf("Failed to write row: %v", err)
				}
			} else {
				if _, err := fmt.Fprintln(f, malformedKV()); err != nil {
					log.Fatalf("Failed to write row: %v", err)
				}
			}
			continue
		}

		srcIP, dstIP, srcPort, dstPort := nextTuple()
		if w != nil {
			row := []string{day, srcIP, strconv.Itoa(srcPort), dstIP, strconv.Itoa(dstPort), action()}
			if err := w.Write(row); err != nil {
				log.Fatalf("Failed to write row: %v", err)
			}
		} else {
			line := fmt.Sprintf(`date="%s",srcip="%s",srcport="%d",dstip="%s",dstport="%d",action="%s"`,
				day, srcIP, srcPort, dstIP, dstPort, action())
			if _, err := fmt.Fprintln(f, line); err != nil {
				log.Fatalf("Failed to write row: %v", err)
			}
		}
	}

	if w != nil {
		w.Flush()
		if err := w.Error(); err != nil {
			log.Fatalf("Failed to flush output: %v", err)
		}
	}

	log.Printf("Successfully generated %d rows (%d malformed) into %s.", *rowCount, bad, *outputFile)
}

// nextTuple draws one flow from a clustered traffic mix: most rows are
// office clients hitting two internal services, the rest uniform noise.
func nextTuple() (string, string, int, int) {
	r := rand.Float64()
	switch {
	case r < 0.70:
		return clientIP(), "192.168.1.10", ephemeralPort(), 443
	case r < 0.85:
		return clientIP(), "192.168.1.20", ephemeralPort(), 53
	default:
		return randIP(), randIP(), ephemeralPort(), rand.Intn(65536)
	}
}

func clientIP() string {
	return fmt.Sprintf("10.0.%d.%d", rand.Intn(8), rand.Intn(254)+1)
}

func randIP() string {
	return fmt.Sprintf("%d.%d.%d.%d", rand.Intn(223)+1, rand.Intn(256), rand.Intn(256), rand.Intn(256))
}

func ephemeralPort() int {
	return rand.Intn(65535-1024) + 1024
}

func action() string {
	if rand.Intn(10) == 0 {
		return "deny"
	}
	return "allow"
}

// Malformed shapes seen in real exports: truncated rows, junk addresses,
// ports past the valid range.
func malformedRow() []string {
	switch rand.Intn(3) {
	case 0:
		return []string{"2026-01-01", "10.0.0.1"}
	case 1:
		return []string{"2026-01-01", "999.0.0.1", "51234", "192.168.1.10", "443", "allow"}
	default:
		return []string{"2026-01-01", "10.0.0.1", "51234", "192.168.1.10", "70000", "allow"}
	}
}

func malformedKV() string {
	switch rand.Intn(3) {
	case 0:
		return `srcip="10.0.0.1",dstport="443"`
	case 1:
		return `srcip="banana",dstip="192.168.1.10",srcport="51234",dstport="443"`
	default:
		return "--- MARK ---"
	}
}
