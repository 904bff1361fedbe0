// Command smoke exercises a running urede-api instance end to end: health,
// authentication and the main read surfaces. Intended for post-deploy checks.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

type check struct {
	Name   string
	Method string
	Path   string
	Auth   bool
}

var checks = []check{
	{Name: "health", Method: http.MethodGet, Path: "/health"},
	{Name: "ready", Method: http.MethodGet, Path: "/ready"},
	{Name: "metrics", Method: http.MethodGet, Path: "/metrics"},
	{Name: "me", Method: http.MethodGet, Path: "/api/v1/auth/me", Auth: true},
	{Name: "cooperativas", Method: http.MethodGet, Path: "/api/v1/cooperativas", Auth: true},
	{Name: "cidades", Method: http.MethodGet, Path: "/api/v1/cidades", Auth: true},
	{Name: "pedidos", Method: http.MethodGet, Path: "/api/v1/pedidos", Auth: true},
}

func main() {
	var (
		base     string
		email    string
		password string
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&email, "email", os.Getenv("SMOKE_EMAIL"), "login email for authenticated checks")
	flag.StringVar(&password, "password", os.Getenv("SMOKE_PASSWORD"), "login password")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}

	var token string
	if email != "" && password != "" {
		t, err := login(client, base, email, password)
		if err != nil {
			log.Fatalf("login failed: %v", err)
		}
		token = t
	}

	failed := 0
	for _, c := range checks {
		if c.Auth && token == "" {
			fmt.Printf("SKIP %-14s (no credentials)\n", c.Name)
			continue
		}
		status, dur, err := run(client, base, c, token)
		switch {
		case err != nil:
			failed++
			fmt.Printf("FAIL %-14s %v\n", c.Name, err)
		case status >= 400:
			failed++
			fmt.Printf("FAIL %-14s status=%d (%s)\n", c.Name, status, dur)
		default:
			fmt.Printf("OK   %-14s status=%d (%s)\n", c.Name, status, dur)
		}
	}

	if failed > 0 {
		log.Fatalf("%d check(s) failed", failed)
	}
}

func login(client *http.Client, base, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}
	resp, err := client.Post(base+"/api/v1/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", err
	}
	if envelope.Data.AccessToken == "" {
		return "", fmt.Errorf("login response carried no token")
	}
	return envelope.Data.AccessToken, nil
}

func run(client *http.Client, base string, c check, token string) (int, time.Duration, error) {
	req, err := http.NewRequest(c.Method, base+c.Path, nil)
	if err != nil {
		return 0, 0, err
	}
	if c.Auth {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	dur := time.Since(start).Round(time.Millisecond)
	if err != nil {
		return 0, dur, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	return resp.StatusCode, dur, nil
}
