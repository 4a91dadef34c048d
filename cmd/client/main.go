// RATS Client - Main Entry Point
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"rats/internal/client"
	"rats/internal/config"
	"rats/pkg/logger"
)

const (
	exitOK            = 0
	exitUsage         = 1
	exitEmptyArg      = 3
	exitConnect       = 8
	exitUserQuit      = 13
	exitProtocol      = 15
	exitUnexpectedEOF = 16
)

const dialTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("ratsclient", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	logLevel := fs.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	logFile := fs.String("log-file", "", "Log file path (optional)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, config.ClientUsage)
		return exitUsage
	}

	args, err := config.ParseClientArgs(fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, config.ClientUsage)
		if errors.Is(err, config.ErrEmptyArgument) {
			return exitEmptyArg
		}
		return exitUsage
	}

	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ratsclient: %v\n", err)
		return exitUsage
	}

	// Initialize logging
	if err := initLogging(env, *logLevel, *logFile); err != nil {
		fmt.Fprintf(os.Stderr, "ratsclient: failed to initialize logging: %v\n", err)
		return exitUsage
	}
	defer logger.Client.Close()

	prompter, err := client.NewPrompter(os.Stdin, os.Stdout)
	if err != nil {
		logger.Client.Warn("Falling back to plain input: %v", err)
		prompter = client.NewLinePrompter(os.Stdin, os.Stdout)
	}
	defer prompter.Close()

	host := env.Host
	if host == "" {
		host = "localhost"
	}

	gameClient := client.NewClient(args.Player, args.Game, client.NewDisplay(os.Stdout), prompter)
	if err := gameClient.Connect(net.JoinHostPort(host, args.Port), dialTimeout); err != nil {
		fmt.Fprintln(os.Stderr, "ratsclient: cannot connect to the server")
		return exitConnect
	}

	err = gameClient.Run()
	switch {
	case err == nil:
		logger.Client.Info("Client shutting down gracefully")
		return exitOK
	case errors.Is(err, client.ErrUserQuit):
		fmt.Fprintln(os.Stderr, "ratsclient: user quit")
		return exitUserQuit
	case errors.Is(err, client.ErrUnexpectedEOF):
		fmt.Fprintln(os.Stderr, "ratsclient: unexpected end of file from server")
		return exitUnexpectedEOF
	default:
		logger.Client.Error("Client failed: %v", err)
		fmt.Fprintln(os.Stderr, "ratsclient: unexpected communication error")
		return exitProtocol
	}
}

// initLogging sets up file-only logging; stdout belongs to the game
func initLogging(env config.Env, level, file string) error {
	if level == "" {
		level = env.LogLevel
	}
	logger.Client.SetLevel(logger.ParseLevel(level))

	if file == "" {
		file = env.LogFile
	}
	if file == "" && env.LogDir != "" {
		if err := os.MkdirAll(env.LogDir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		file = filepath.Join(env.LogDir, "client.log")
	}
	if file == "" {
		return nil
	}
	if err := logger.Client.SetFile(file); err != nil {
		return fmt.Errorf("failed to set log file: %w", err)
	}
	return nil
}
