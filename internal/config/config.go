// Package config parses command-line arguments and environment settings for both programs
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. RATS_LOG_LEVEL
	EnvPrefix = "RATS"

	// MaxConnsLimit is the largest accepted maxconns argument
	MaxConnsLimit = 10000

	ServerUsage = "Usage: ./ratsserver maxconns message [portnum]"
	ClientUsage = "Usage: ./ratsclient playername game port"
)

var (
	ErrUsage         = errors.New("invalid command line")
	ErrEmptyArgument = errors.New("empty argument")
)

// Env holds settings read from the environment and an optional .env file
type Env struct {
	LogLevel     string        `split_words:"true"`
	LogFile      string        `split_words:"true"`
	LogDir       string        `split_words:"true"`
	Host         string        `default:""`
	StatsAddr    string        `split_words:"true"`
	WriteTimeout time.Duration `split_words:"true" default:"5s"`
	MailboxSize  int           `split_words:"true" default:"256"`
	FollowSuit   bool          `split_words:"true" default:"true"`
	DealSeed     int64         `split_words:"true"`
}

// LoadEnv loads files (".env" when none are given) into the process
// environment, skipping missing ones, then decodes the RATS_ variables.
func LoadEnv(files ...string) (Env, error) {
	var env Env

	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return env, fmt.Errorf("load env file: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return env, fmt.Errorf("process env: %w", err)
	}
	if env.MailboxSize <= 0 {
		return env, fmt.Errorf("process env: %s_MAILBOX_SIZE must be positive", EnvPrefix)
	}
	if env.WriteTimeout <= 0 {
		return env, fmt.Errorf("process env: %s_WRITE_TIMEOUT must be positive", EnvPrefix)
	}
	return env, nil
}

// ServerArgs are the positional arguments of the server
type ServerArgs struct {
	MaxConns int
	Message  string
	Port     string
}

// Addr returns the listen address on host
func (a ServerArgs) Addr(host string) string {
	return net.JoinHostPort(host, a.Port)
}

// ParseServerArgs parses "maxconns message [port]". An omitted port selects an ephemeral one.
func ParseServerArgs(args []string) (ServerArgs, error) {
	if len(args) < 2 || len(args) > 3 {
		return ServerArgs{}, ErrUsage
	}
	for _, arg := range args {
		if arg == "" {
			return ServerArgs{}, fmt.Errorf("%w: %w", ErrUsage, ErrEmptyArgument)
		}
	}

	maxConns, err := parseMaxConns(args[0])
	if err != nil {
		return ServerArgs{}, err
	}

	parsed := ServerArgs{MaxConns: maxConns, Message: args[1], Port: "0"}
	if len(args) == 3 {
		parsed.Port = args[2]
	}
	return parsed, nil
}

func parseMaxConns(s string) (int, error) {
	digits := strings.TrimPrefix(s, "+")
	if digits == "" || len(digits) > len(strconv.Itoa(MaxConnsLimit)) {
		return 0, fmt.Errorf("%w: maxconns %q", ErrUsage, s)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: maxconns %q", ErrUsage, s)
		}
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || n > MaxConnsLimit {
		return 0, fmt.Errorf("%w: maxconns %q", ErrUsage, s)
	}
	return n, nil
}

// ClientArgs are the positional arguments of the client
type ClientArgs struct {
	Player string
	Game   string
	Port   string
}

// ParseClientArgs parses "playername game port". The player and game names
// travel as single words in JOIN, so they may not contain whitespace.
func ParseClientArgs(args []string) (ClientArgs, error) {
	if len(args) != 3 {
		return ClientArgs{}, ErrUsage
	}
	for _, arg := range args {
		if arg == "" {
			return ClientArgs{}, ErrEmptyArgument
		}
		if strings.ContainsFunc(arg, unicode.IsSpace) {
			return ClientArgs{}, fmt.Errorf("%w: %q contains whitespace", ErrUsage, arg)
		}
	}
	return ClientArgs{Player: args[0], Game: args[1], Port: args[2]}, nil
}
