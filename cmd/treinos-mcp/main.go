package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/treinos/internal/config"
	treinosmcp "github.com/meltforce/treinos/internal/mcp"
	"github.com/meltforce/treinos/internal/store"
	"github.com/meltforce/treinos/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	backendURL := flag.String("backend", "", "workout API base URL (overrides config)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("treinos-mcp", Version)
		return
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	baseURL, timeout, accepted, err := backendSettings(*configPath, *backendURL)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	client := store.NewClient(baseURL, timeout)
	flow := upload.NewFlow(client, accepted, log)

	s := treinosmcp.New(client, flow, Version, log)
	log.Info("MCP server starting", "version", Version, "backend", baseURL)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}

// backendSettings resolves the backend URL, request timeout and upload
// allowlist. An explicit backend URL skips the config file and uses defaults.
func backendSettings(configPath, backendURL string) (string, time.Duration, []string, error) {
	if backendURL != "" {
		return backendURL, config.DefaultTimeout, nil, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", 0, nil, err
	}
	return cfg.Backend.BaseURL, cfg.Backend.Timeout(), cfg.Upload.AcceptedExtensions, nil
}
