package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// WriteTo prints the counters, one per line
func (s Stats) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Players connected: %d\n", s.Connected)
	fmt.Fprintf(&buf, "Total connected players: %d\n", s.TotalConnected)
	fmt.Fprintf(&buf, "Running games: %d\n", s.RunningGames())
	fmt.Fprintf(&buf, "Games started: %d\n", s.GamesStarted)
	fmt.Fprintf(&buf, "Games completed: %d\n", s.GamesCompleted)
	fmt.Fprintf(&buf, "Games terminated: %d\n", s.GamesTerminated)
	fmt.Fprintf(&buf, "Total tricks: %d\n", s.TotalTricks)
	fmt.Fprintf(&buf, "Max connections: %d\n", s.MaxConns)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// RunStatsReporter prints a snapshot of the hub counters to w each time a
// signal arrives, until ctx is done.
func RunStatsReporter(ctx context.Context, signals <-chan os.Signal, hub *Hub, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-signals:
			if !ok {
				return nil
			}
			if _, err := hub.Snapshot().WriteTo(w); err != nil {
				hub.logger.Warn("Failed to write stats: %v", err)
			}
		}
	}
}

// NewStatsHandler serves the hub counters as JSON at /stats and a liveness probe at /healthz
func NewStatsHandler(hub *Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok\n")
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		stats := hub.Snapshot()
		pending, active := hub.Games()

		body := struct {
			Stats
			RunningGames int `json:"running_games"`
			PendingGames int `json:"pending_games"`
			ActiveGames  int `json:"active_games"`
		}{stats, stats.RunningGames(), pending, active}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(body); err != nil {
			hub.logger.Warn("Failed to encode stats: %v", err)
		}
	})

	return r
}
