package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rats/internal/game"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAdmissionTicketReleasesOnce(t *testing.T) {
	a := NewAdmission(1)
	assert.Equal(t, 1, a.Limit())

	ticket, ok := a.TryAcquire()
	require.True(t, ok)
	_, ok = a.TryAcquire()
	assert.False(t, ok)

	ticket.Release()
	ticket.Release()

	_, ok = a.TryAcquire()
	assert.True(t, ok)
	_, ok = a.TryAcquire()
	assert.False(t, ok, "a double release must not free a second slot")
}

func TestHubCounters(t *testing.T) {
	hub := NewHub(10, game.DefaultRules(), nil)
	hub.GameStarted()
	hub.GameStarted()
	hub.TrickResolved()
	hub.GameCompleted()

	stats := hub.Snapshot()
	assert.Equal(t, 2, stats.GamesStarted)
	assert.Equal(t, 1, stats.RunningGames())
	assert.Equal(t, 1, stats.TotalTricks)
	assert.Equal(t, 10, stats.MaxConns)
}

func TestStatsWriteTo(t *testing.T) {
	var buf bytes.Buffer
	stats := Stats{Connected: 3, TotalConnected: 9, GamesStarted: 4, GamesCompleted: 2, GamesTerminated: 1, TotalTricks: 30, MaxConns: 10}
	_, err := stats.WriteTo(&buf)
	require.NoError(t, err)

	want := "Players connected: 3\n" +
		"Total connected players: 9\n" +
		"Running games: 1\n" +
		"Games started: 4\n" +
		"Games completed: 2\n" +
		"Games terminated: 1\n" +
		"Total tricks: 30\n" +
		"Max connections: 10\n"
	assert.Equal(t, want, buf.String())
}

func TestStatsReporterPrintsOnSignal(t *testing.T) {
	hub := NewHub(5, game.DefaultRules(), nil)
	hub.TrickResolved()

	signals := make(chan os.Signal, 1)
	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunStatsReporter(ctx, signals, hub, out) }()

	assert.Empty(t, out.String())
	signals <- syscall.SIGHUP
	assert.Eventually(t, func() bool {
		return bytes.Contains([]byte(out.String()), []byte("Total tricks: 1\n"))
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reporter did not stop")
	}
}

func TestStatsHandler(t *testing.T) {
	hub := NewHub(7, game.DefaultRules(), nil)
	hub.GameStarted()
	hub.TrickResolved()

	ts := httptest.NewServer(NewStatsHandler(hub))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 7, body["max_connections"])
	assert.Equal(t, 1, body["games_started"])
	assert.Equal(t, 1, body["running_games"])
	assert.Equal(t, 1, body["total_tricks"])
	assert.Equal(t, 0, body["pending_games"])

	health, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	text, err := io.ReadAll(health.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", string(text))

	missing, err := http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}
