// ABOUTME: CLI entrypoint for uplink with server and client upload modes.
// ABOUTME: Wires together the upload server, the chunked upload coordinator, and the progress TUI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/2389-research/uplink/server"
	"github.com/2389-research/uplink/tui"
	"github.com/2389-research/uplink/upload"
)

var version = "dev"

// config holds all CLI configuration parsed from flags and positional arguments.
type config struct {
	serverMode  bool
	configPath  string
	addr        string
	dataDir     string
	baseURL     string
	chunkSize   int64
	maxInFlight int
	retryPolicy string
	authToken   string
	metadata    string
	tuiMode     bool
	showVersion bool
	filePath    string
}

func main() {
	loadDotEnv(".env")

	cfg := parseFlags()

	if cfg.showVersion {
		fmt.Printf("uplink %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

// parseFlags parses command-line flags and returns a populated config.
func parseFlags() config {
	var cfg config

	fs := flag.NewFlagSet("uplink", flag.ContinueOnError)
	fs.BoolVar(&cfg.serverMode, "server", false, "Start the upload server")
	fs.StringVar(&cfg.configPath, "config", "uplink.yaml", "Server config file (YAML)")
	fs.StringVar(&cfg.addr, "addr", "", "Server listen address (overrides config)")
	fs.StringVar(&cfg.dataDir, "data-dir", "", "Server data directory (overrides config)")
	fs.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:2389/api/upload", "Upload protocol base URL")
	fs.Int64Var(&cfg.chunkSize, "chunk-size", 0, "Chunk size in bytes (default: 1 MiB)")
	fs.IntVar(&cfg.maxInFlight, "max-in-flight", 1, "Chunk requests in flight at once (1 = sequential)")
	fs.StringVar(&cfg.retryPolicy, "retry", "none", "Retry policy: none, standard")
	fs.StringVar(&cfg.authToken, "auth", "", "Bearer token forwarded on every request")
	fs.StringVar(&cfg.metadata, "meta", "", "Session metadata as comma-separated key=value pairs")
	fs.BoolVar(&cfg.tuiMode, "tui", false, "Show an interactive progress bar while uploading")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		printHelp(os.Stderr, version)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg.filePath = fs.Arg(0)
	return cfg
}

func run(cfg config) int {
	if cfg.serverMode {
		return runServer(cfg)
	}

	if cfg.filePath == "" {
		printHelp(os.Stderr, version)
		return 0
	}

	return runUpload(cfg)
}

// runServer loads the YAML config, applies flag overrides, and serves until
// SIGINT or SIGTERM.
func runServer(cfg config) int {
	srvCfg, err := server.LoadConfig(cfg.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if cfg.addr != "" {
		srvCfg.Addr = cfg.addr
	}
	if cfg.dataDir != "" {
		srvCfg.DataDir = cfg.dataDir
	}

	srv, err := server.NewServer(srvCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	httpServer := &http.Server{
		Addr:    srv.Addr(),
		Handler: srv,
	}

	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	fmt.Fprintf(os.Stderr, "listening on %s\n", srv.Addr())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	return 0
}

// runUpload streams one file to the server, with either log-line progress or
// the interactive TUI.
func runUpload(cfg config) int {
	f, err := os.Open(cfg.filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	info := upload.FileInfo{
		Name:     filepath.Base(cfg.filePath),
		Size:     fi.Size(),
		MIMEType: detectMIME(cfg.filePath),
		Metadata: parseMetadata(cfg.metadata),
	}

	var clientOpts []upload.ClientOption
	if cfg.authToken != "" {
		clientOpts = append(clientOpts, upload.WithHeader("Authorization", "Bearer "+cfg.authToken))
	}
	client := upload.NewClient(cfg.baseURL, clientOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, canceling upload...")
		cancel()
	}()

	var resp *upload.CompleteResponse
	if cfg.tuiMode {
		resp, err = tui.Run(ctx, client, f, info, cfg.chunkSize)
	} else {
		opts := []upload.CoordinatorOption{
			upload.WithProgress(func(p upload.Progress) {
				log.Printf("upload progress uploadId=%s chunks=%d/%d percent=%d",
					p.UploadID, p.UploadedChunks, p.TotalChunks, p.Percent)
			}),
		}
		if cfg.chunkSize > 0 {
			opts = append(opts, upload.WithChunkSize(cfg.chunkSize))
		}
		if cfg.maxInFlight > 1 {
			opts = append(opts, upload.WithMaxInFlight(cfg.maxInFlight))
		}
		if cfg.retryPolicy == "standard" {
			opts = append(opts, upload.WithRetryPolicy(upload.RetryPolicyStandard()))
		}
		co := upload.NewCoordinator(client, opts...)
		resp, err = co.Upload(ctx, f, info)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Printf("uploaded %s (%d bytes) artifactId=%s processing=%s\n",
		resp.Filename, resp.FileSize, resp.ArtifactID, resp.ProcessingStatus)
	return 0
}

// detectMIME resolves a MIME type from the file extension, falling back to
// a generic binary type.
func detectMIME(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// parseMetadata turns "thread=t-42,source=cli" into a metadata map. Malformed
// pairs are skipped.
func parseMetadata(s string) map[string]any {
	if s == "" {
		return nil
	}
	meta := make(map[string]any)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}
		meta[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
