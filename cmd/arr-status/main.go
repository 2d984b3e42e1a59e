package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lexfrei/go-arr"
	"github.com/lexfrei/go-arr/health"
	"github.com/lexfrei/go-arr/observability"
)

var (
	name       = flag.String("name", envOr("ARR_NAME", "radarr"), "Service name (or use ARR_NAME env)")
	host       = flag.String("host", envOr("ARR_HOST", "localhost"), "Service host (or use ARR_HOST env)")
	port       = flag.Int("port", envInt("ARR_PORT", 7878), "Service port (or use ARR_PORT env)")
	pathPrefix = flag.String("path", os.Getenv("ARR_PATH"), "Reverse proxy base path (or use ARR_PATH env)")
	apiVersion = flag.String("api-version", envOr("ARR_API_VERSION", "api/v3"), "API version path (or use ARR_API_VERSION env)")
	apiKey     = flag.String("api-key", os.Getenv("ARR_API_KEY"), "API key (or use ARR_API_KEY env)")
	username   = flag.String("username", os.Getenv("ARR_USERNAME"), "Basic auth username (or use ARR_USERNAME env)")
	password   = flag.String("password", os.Getenv("ARR_PASSWORD"), "Basic auth password (or use ARR_PASSWORD env)")
	useTLS     = flag.Bool("tls", false, "Use https")
	insecure   = flag.Bool("insecure", false, "Skip TLS certificate verification")
	endpoint   = flag.String("endpoint", "", "Status endpoint (defaults to system/status)")
	method     = flag.String("method", "", "Status request method (defaults to GET)")
	body       = flag.String("body", "", `Status request JSON body, e.g. {"method":"session-get"}`)
	versionAt  = flag.String("version-path", "", "gjson path of the version (defaults to version)")
	sessionID  = flag.String("session-header", "", "Session id header negotiated on 409, e.g. X-Transmission-Session-Id")
	get        = flag.String("get", "", "Also fetch this endpoint and print the response")
	timeout    = flag.Duration("timeout", arr.DefaultTimeout, "Request timeout")
	retries    = flag.Int("retries", arr.DefaultMaxRetries, "Retries after the first attempt")
	verbose    = flag.Bool("verbose", false, "Debug logging")
)

func main() {
	flag.Parse()

	os.Exit(run())
}

func run() int {

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}

	logger := observability.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	client, err := arr.New(arr.Profile{
		Name:               *name,
		Host:               *host,
		Port:               *port,
		PathPrefix:         *pathPrefix,
		UseTLS:             *useTLS,
		InsecureSkipVerify: *insecure,
		Credential:         *apiKey,
		Username:           *username,
		Password:           *password,
		APIVersion:         *apiVersion,
		Timeout:            *timeout,
		MaxRetries:         arr.Int(*retries),
		StatusEndpoint:     *endpoint,
		StatusMethod:       *method,
		StatusBody:         json.RawMessage(*body),
		VersionPath:        *versionAt,
		SessionIDHeader:    *sessionID,
	}, arr.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()

	fmt.Printf("📡 Checking %s at %s\n", *name, client.URL(client.Profile().StatusEndpoint))
	fmt.Println("=" + strings.Repeat("=", 60))

	start := time.Now()
	reports := health.CheckAll(ctx, []health.Service{{Name: *name, Checker: client}}, health.Config{
		Timeout: *timeout * time.Duration(*retries+2),
		Logger:  logger,
	})

	for _, report := range reports {
		icon := "✅"
		if !report.Healthy {
			icon = "❌"
		}

		fmt.Printf("%s %s (%v)\n", icon, report, time.Since(start).Round(time.Millisecond))
	}

	if *get != "" {
		fmt.Println()
		printEndpoint(ctx, client, *get)
	}

	if !health.AllHealthy(reports) {
		return 1
	}

	return 0
}

func printEndpoint(ctx context.Context, client *arr.Client, target string) {
	res := client.Execute(ctx, arr.Request{Endpoint: target})
	if !res.OK() {
		fmt.Printf("❌ %s: %s\n", target, res.Message())

		return
	}

	fmt.Printf("✅ %s (HTTP %d, %d attempt(s))\n", target, res.StatusCode(), res.Attempts())

	if res.Data() == nil {
		fmt.Println("   (no JSON body)")

		return
	}

	pretty, err := json.MarshalIndent(res.Data(), "   ", "  ")
	if err != nil {
		fmt.Printf("   %s\n", res.Data())

		return
	}

	fmt.Printf("   %s\n", pretty)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}

	return v
}
