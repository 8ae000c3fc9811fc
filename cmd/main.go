// Package main is the entry point for the cuedeck playback core.
//
// cuedeck keeps a playback state store, one live audio engine, and the sync
// service that holds them together, streaming audio from a local backend.
//
// Build:
//
//	go build -o build/cuedeck ./cmd
//
// Run:
//
//	./build/cuedeck
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuedeck/cuedeck/internal/app"
)

func main() {
	mockEngine := flag.Bool("mock-engine", false, "use the in-memory engine instead of real audio output")
	flag.Parse()

	application, err := app.New(app.Options{
		UseMockEngine: *mockEngine,
	})
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	defer application.Shutdown()

	application.Logger().Info("running, press Ctrl+C to exit")

	// Block until interrupted; the store is driven by external callers
	// (IPC surface, future UI) while the sync service reacts to it.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
