package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/df07/go-restir-di/pkg/core"
	"github.com/df07/go-restir-di/web/server"
)

func main() {
	// Parse command line flags
	port := flag.Int("port", 8080, "Port to serve on")
	verbose := flag.Bool("v", false, "Verbose (debug) logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	core.SetLogger(logger)

	webServer := server.NewServer(*port, logger)
	logger.Info("ReSTIR web server", "render", "/api/render?scene=cornell-box&frames=16", "port", *port)

	if err := webServer.Start(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
