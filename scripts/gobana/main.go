package main

import (
	"encoding/gob"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/gobana/main.go <archive_file>")
		os.Exit(1)
	}
	archiveFile := os.Args[1]

	file, err := os.Open(archiveFile)
	if err != nil {
		log.Fatalf("Unable to open file: %v", err)
	}
	defer file.Close()

	decoder := gob.NewDecoder(file)

	var (
		batches int
		records uint64
		skipped uint64
	)
	for {
		var batch model.Batch
		err := decoder.Decode(&batch)
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to decode batch %d: %v", batches+1, err)
		}
		batches++
		records += uint64(len(batch.Records))
		skipped += batch.Skipped
		fmt.Printf("batch %4d: %6d records, %d skipped\n", batches, len(batch.Records), batch.Skipped)
	}

	fmt.Printf("Total: %d batches, %d records, %d skipped rows\n", batches, records, skipped)
}
