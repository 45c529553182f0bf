package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/ClickHouse/clickhouse-go/v2"
)

func main() {
	// Define command-line flags
	mode := flag.String("mode", "api", "Query mode: 'api' to query via HTTP API, 'direct' to query ClickHouse directly.")
	analysis := flag.String("analysis", "default", "The analysis name to query.")
	apiURL := flag.String("url", "http://localhost:8080", "Base URL of the fwa-api service (api mode).")
	chAddr := flag.String("addr", "localhost:9000", "ClickHouse address (direct mode).")
	chDatabase := flag.String("database", "default", "ClickHouse database (direct mode).")
	chUsername := flag.String("username", "default", "ClickHouse username (direct mode).")
	chPassword := flag.String("password", "", "ClickHouse password (direct mode).")
	flag.Parse()

	log.Printf("Running in '%s' mode.", *mode)

	switch *mode {
	case "api":
		queryViaAPI(*apiURL, *analysis)
	case "direct":
		directQueryClickHouse(*chAddr, *chDatabase, *chUsername, *chPassword, *analysis)
	default:
		log.Fatalf("Invalid mode: %s. Use 'api' or 'direct'.", *mode)
	}
}

// --- API Query Logic ---
func queryViaAPI(baseURL, analysis string) {
	url := fmt.Sprintf("%s/api/v1/rules?name=%s", baseURL, analysis)
	log.Printf("Sending request to %s", url)

	resp, err := http.Get(url)
	if err != nil {
		log.Fatalf("Error sending request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("API returned non-200 status code: %d\nResponse: %s", resp.StatusCode, string(respBody))
	}

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, respBody, "", "  "); err != nil {
		log.Printf("Could not prettify JSON, printing raw response:")
		fmt.Println(string(respBody))
		return
	}

	log.Println("---")
	fmt.Println(prettyJSON.String())
}

// --- Direct ClickHouse Query Logic ---
func directQueryClickHouse(addr, database, username, password, analysis string) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
	})
	if err != nil {
		log.Fatalf("Error connecting to ClickHouse: %v", err)
	}
	defer conn.Close()

	log.Println("Successfully connected to ClickHouse.")

	rows, err := conn.Query(context.Background(), `
		SELECT Rank, SrcCIDR, DstCIDR, Port, Coverage, Hits
		FROM rule_suggestions
		WHERE AnalysisName = ?
		  AND Timestamp = (SELECT max(Timestamp) FROM rule_suggestions WHERE AnalysisName = ?)
		ORDER BY Rank
	`, analysis, analysis)
	if err != nil {
		log.Fatalf("Error executing query: %v", err)
	}
	defer rows.Close()

	log.Println("--- Latest Candidate Rules (Direct) ---")

	var foundResult bool
	for rows.Next() {
		foundResult = true
		var (
			rank     uint16
			srcCIDR  string
			dstCIDR  string
			port     *uint16
			coverage float64
			hits     uint64
		)

		if err := rows.Scan(&rank, &srcCIDR, &dstCIDR, &port, &coverage, &hits); err != nil {
			log.Printf("Error scanning row: %v", err)
			continue
		}

		portStr := "any"
		if port != nil {
			portStr = fmt.Sprintf("%d", *port)
		}
		fmt.Printf("%2d. %s -> %s port %s\n", rank, srcCIDR, dstCIDR, portStr)
		fmt.Printf("    Coverage: %.4f  Hits: %d\n", coverage, hits)
	}

	if !foundResult {
		log.Println("No rules found for the specified analysis.")
	}

	if err := rows.Err(); err != nil {
		log.Printf("An error occurred during row iteration: %v", err)
	}
}
