// ABOUTME: Help display for the uplink CLI with grouped flags and examples.
// ABOUTME: Provides printHelp for usage output shared by -h and the bare invocation.
package main

import (
	"fmt"
	"io"
)

// printHelp writes a formatted help message to w, including usage patterns,
// grouped flags, and examples.
func printHelp(w io.Writer, ver string) {
	fmt.Fprintf(w, "uplink %s — resumable chunked upload client and server\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  uplink <file>                      Upload a file")
	fmt.Fprintln(w, "  uplink -tui <file>                 Upload with a progress bar")
	fmt.Fprintln(w, "  uplink -server [-addr HOST:PORT]   Start the upload server")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Client Flags:")
	fmt.Fprintln(w, "  -base-url URL       Upload protocol base URL (default: http://127.0.0.1:2389/api/upload)")
	fmt.Fprintln(w, "  -chunk-size N       Chunk size in bytes (default: 1 MiB)")
	fmt.Fprintln(w, "  -max-in-flight N    Chunk requests in flight at once (default: 1, sequential)")
	fmt.Fprintln(w, "  -retry POLICY       Retry policy: none (default), standard")
	fmt.Fprintln(w, "  -auth TOKEN         Bearer token forwarded on every request")
	fmt.Fprintln(w, "  -meta K=V,K=V       Free-form session metadata")
	fmt.Fprintln(w, "  -tui                Interactive progress display")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Server Flags:")
	fmt.Fprintln(w, "  -config FILE        YAML config file (default: uplink.yaml)")
	fmt.Fprintln(w, "  -addr HOST:PORT     Listen address (overrides config)")
	fmt.Fprintln(w, "  -data-dir DIR       Data directory for chunks, artifacts, and the index")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  uplink -server -addr 127.0.0.1:2389")
	fmt.Fprintln(w, "  uplink -tui -meta thread=t-42 report.md")
	fmt.Fprintln(w, "  uplink -chunk-size 262144 -retry standard big.bin")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  -version            Print version and exit")
	fmt.Fprintln(w, "  -h, -help           Show this help")
}
