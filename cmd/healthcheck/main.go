package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

// healthcheck probes a running "apicover serve" instance. It is meant for
// container HEALTHCHECK directives where no shell or curl is available.
func main() {
	port := os.Getenv("APICOVER_PORT")
	if port == "" {
		port = "8080"
	}
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
	if err != nil {
		os.Exit(1)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
