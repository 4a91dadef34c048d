// RATS Server - Main Entry Point
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"rats/internal/config"
	"rats/internal/game"
	"rats/internal/server"
	"rats/pkg/logger"
)

const (
	exitUsage  = 8
	exitPort   = 17
	exitSystem = 20
)

var version = "1.0.0"

func main() {
	fs := flag.NewFlagSet("ratsserver", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	logLevel := fs.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	logFile := fs.String("log-file", "", "Log file path (optional)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		usage()
	}
	args, err := config.ParseServerArgs(fs.Args())
	if err != nil {
		usage()
	}

	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ratsserver: %v\n", err)
		os.Exit(exitSystem)
	}

	// Initialize logging
	if err := initLogging(env, *logLevel, *logFile); err != nil {
		fmt.Fprintf(os.Stderr, "ratsserver: failed to initialize logging: %v\n", err)
		os.Exit(exitSystem)
	}

	ln, err := net.Listen("tcp", args.Addr(env.Host))
	if err != nil {
		logger.Server.Debug("Listen: %v", err)
		fmt.Fprintf(os.Stderr, "ratsserver: cannot listen on given port \"%s\"\n", args.Port)
		os.Exit(exitPort)
	}
	fmt.Fprintf(os.Stderr, "%d\n", ln.Addr().(*net.TCPAddr).Port)

	logger.Server.Info("Starting RATS server v%s", version)

	if err := run(ln, args, env); err != nil {
		logger.Server.Error("Server failed: %v", err)
		os.Exit(exitSystem)
	}
	logger.Server.Close()
}

// run serves until SIGINT or SIGTERM
func run(ln net.Listener, args config.ServerArgs, env config.Env) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	dealer := game.NewDealer(nil)
	if env.DealSeed != 0 {
		dealer = game.NewSeededDealer(env.DealSeed)
	}

	srv := server.NewServer(server.Config{
		MaxConns:     args.MaxConns,
		Message:      args.Message,
		WriteTimeout: env.WriteTimeout,
		MailboxSize:  env.MailboxSize,
		Rules:        game.Rules{FollowSuit: env.FollowSuit},
		Dealer:       dealer,
	})

	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return srv.Serve(ctx, ln)
	})

	g.Go(func() error {
		return server.RunStatsReporter(ctx, hup, srv.Hub(), os.Stderr)
	})

	if env.StatsAddr != "" {
		httpServer := &http.Server{
			Addr:              env.StatsAddr,
			Handler:           server.NewStatsHandler(srv.Hub()),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logger.Server.Info("Stats endpoint on http://%s/stats", env.StatsAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("stats endpoint: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	if sigCtx.Err() != nil {
		logger.Server.Info("Received shutdown signal, server stopped")
	}
	return err
}

// initLogging sets up the logging system; flags take precedence over the environment.
// Without a level the console only shows warnings, keeping stderr for the port and stats.
func initLogging(env config.Env, level, file string) error {
	if level == "" {
		level = env.LogLevel
	}
	if level == "" {
		logger.SetGlobalLogLevel(logger.WARN)
	} else {
		logger.SetGlobalLogLevel(logger.ParseLevel(level))
	}

	if file == "" {
		file = env.LogFile
	}
	if file != "" {
		if err := logger.Server.SetFile(file); err != nil {
			return fmt.Errorf("failed to set log file: %w", err)
		}
		logger.Server.Info("Logging to file: %s", file)
		return nil
	}

	if env.LogDir != "" {
		if err := logger.InitializeFileLogging(env.LogDir); err != nil {
			// Console logging still works
			logger.Server.Warn("Could not initialize file logging: %v", err)
		}
	}
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, config.ServerUsage)
	os.Exit(exitUsage)
}
