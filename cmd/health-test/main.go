package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Services  struct {
		Buildkite struct {
			TokenConfigured bool `json:"token_configured"`
		} `json:"buildkite"`
	} `json:"services"`
}

func main() {
	url := "http://localhost:63330/health"
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	fmt.Printf("Testing health endpoint: %s\n", url)

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("Error connecting to health endpoint: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Error reading response: %v\n", err)
		os.Exit(1)
	}

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Health check failed with status %d: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		fmt.Printf("Error parsing JSON response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Status:    %s\n", health.Status)
	fmt.Printf("Version:   %s\n", health.Version)
	fmt.Printf("Timestamp: %s\n", health.Timestamp)
	fmt.Printf("Buildkite token configured: %v\n", health.Services.Buildkite.TokenConfigured)

	if health.Status != "ok" {
		os.Exit(1)
	}
}
