// saaschat TUI - a terminal client for the saaschat streaming backend.
//
// Copyright (c) 2024-2025 Sanjit Verma (skverma)
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/skverma/saaschat-tui/internal/api"
	"github.com/skverma/saaschat-tui/internal/config"
	"github.com/skverma/saaschat-tui/internal/export"
	"github.com/skverma/saaschat-tui/internal/server"
	"github.com/skverma/saaschat-tui/internal/session"
	"github.com/skverma/saaschat-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	// A missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	cmd := "tui"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "tui":
		runTUI(args)
	case "serve":
		runServe(args)
	case "export":
		runExport(args)
	case "version":
		fmt.Printf("saaschat-tui %s (%s, built %s)\n", Version, GitCommit, BuildDate)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`saaschat-tui - terminal client for the saaschat backend

Usage:
  saaschat-tui [tui]      start the chat interface (default)
  saaschat-tui serve      run the development backend
  saaschat-tui export     export a saved chat to PDF
  saaschat-tui version    print version information

tui flags:
  --email ADDR   sign in as ADDR (overrides config)
  --guest        run without an account; nothing is saved

serve flags:
  --addr HOST:PORT   listen address (overrides config)

export flags:
  --session KEY   session key to export (required)
  --out DIR       output directory (default: config dir)`)
}

// loadConfig loads the config file, applies env overrides, and validates.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// =============================================================================
// COMMANDS
// =============================================================================

func runTUI(args []string) {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
	email := fs.String("email", "", "sign in as this email address")
	guest := fs.Bool("guest", false, "run without an account")
	fs.Parse(args)

	cfg := loadConfig()
	if *email != "" {
		cfg.User.Email = *email
	}
	if *guest {
		cfg.User.Guest = true
	}
	if !cfg.User.Guest && cfg.User.Email == "" {
		fmt.Fprintln(os.Stderr, "No email configured. Set user.email in the config file, pass --email, or run with --guest.")
		os.Exit(1)
	}

	backend := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
	})
	client := session.NewClient(backend, session.Config{
		Email:             cfg.User.Email,
		Guest:             cfg.User.Guest,
		PreCreateSessions: cfg.User.PreCreateSessions,
		Logger:            log.Default(),
	})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(
		chat.New(ctx, client, *cfg),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address")
	fs.Parse(args)

	cfg := loadConfig()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	srv := server.New(cfg.Server, log.Default())

	// Stop on SIGINT/SIGTERM with a bounded drain.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-done
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	sessionKey := fs.String("session", "", "session key to export")
	outDir := fs.String("out", "", "output directory")
	fs.Parse(args)

	if *sessionKey == "" {
		fmt.Fprintln(os.Stderr, "export requires --session KEY")
		os.Exit(1)
	}

	cfg := loadConfig()
	if cfg.User.Email == "" {
		fmt.Fprintln(os.Stderr, "export requires a configured email")
		os.Exit(1)
	}

	dir := *outDir
	if dir == "" {
		var err error
		dir, err = config.ConfigDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	backend := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	path, err := export.SessionPDF(ctx, backend, cfg.User.Email, *sessionKey, dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported to %s\n", path)
}
