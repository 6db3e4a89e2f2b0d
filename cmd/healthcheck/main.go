// Command healthcheck probes the deviceauth admin API's health endpoint and
// exits 0 when it answers 200 OK, 1 otherwise. It is meant for container
// HEALTHCHECK directives, so it has no flags and no dependencies.
//
// The address comes from DEVICEAUTH_LISTEN_ADDR, the same variable the
// server binds to; when unset it targets 127.0.0.1:8080. A bind-all host is
// rewritten to loopback.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
)

func main() {
	os.Exit(check())
}

// check resolves the configured address and probes it.
func check() int {
	return probe(healthURL(os.Getenv("DEVICEAUTH_LISTEN_ADDR")))
}

// healthURL builds the health endpoint URL for the configured listen address.
func healthURL(listenAddr string) string {
	return fmt.Sprintf("http://%s/api/v1/health", normalizeAddr(listenAddr))
}

// probe returns 0 when url answers 200 OK within two seconds, 1 otherwise.
func probe(url string) int {
	client := &http.Client{Timeout: 2 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 1
	}

	resp, err := client.Do(req)
	if err != nil {
		return 1
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 1
	}

	return 0
}

// normalizeAddr ensures the healthcheck connects to loopback rather than the
// bind-all address. Docker containers bind 0.0.0.0 but the healthcheck runs
// inside the same container, so loopback is reachable and more correct.
func normalizeAddr(raw string) string {
	if raw == "" {
		return "127.0.0.1:8080"
	}

	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return "127.0.0.1:8080"
	}

	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
