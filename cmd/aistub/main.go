package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"zujuan/internal/stub"
)

// aistub serves a deterministic OpenAI-compatible API for local development
// and tests, so the main server can run without a real vision model.
func main() {
	addr := flag.String("addr", ":8090", "HTTP listen address")
	model := flag.String("model", "stub-vision-1", "model name reported by the API")
	flag.Parse()

	h := stub.New(*model)
	slog.Info("starting AI stub server", "addr", *addr, "model", *model)
	if err := http.ListenAndServe(*addr, h.Routes()); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}
