// Package main is the entry point for the taskdock terminal client.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"taskdock/internal/api"
	"taskdock/internal/cache"
	"taskdock/internal/conn"
	"taskdock/internal/speech"
	"taskdock/internal/ui"
)

func main() {
	dbPath := flag.String("db", cache.DefaultPath(), "path to the session cache database")
	server := flag.String("server", "", "server API URL prefilled in the login form")
	debug := flag.Bool("debug", false, "enable debug logging to the log file")
	logPath := flag.String("log", "", "write logs to this file (default: discard)")
	flag.Parse()

	if err := run(*dbPath, *logPath, *server, *debug); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(dbPath, logPath, serverURL string, debug bool) error {
	logger, closeLog, err := newLogger(logPath, debug)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := cache.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	machine, err := conn.New(store, api.NewClient(), conn.DialSession, logger)
	if err != nil {
		return err
	}

	model := ui.New(machine, speech.New(logger), logger, serverURL)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("interface error: %w", err)
	}
	return nil
}

// newLogger builds the slog logger. The terminal is owned by the UI, so logs
// go to a file or nowhere.
func newLogger(logPath string, debug bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	if logPath == "" {
		handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level})
		return slog.New(handler), func() {}, nil
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})
	return slog.New(handler), func() { f.Close() }, nil
}
