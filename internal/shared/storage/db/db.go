package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"resume-builder/internal/shared/telemetry"
)

// Profile names the kind of process holding the pool. Pool sizing follows it.
type Profile string

const (
	ProfileAPI    Profile = "api"
	ProfileLambda Profile = "lambda"
	ProfileCLI    Profile = "cli"
)

// Options controls database pool and connectivity behavior.
type Options struct {
	Profile         Profile
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var ErrNoDatabaseURL = errors.New("DATABASE_URL is empty")

var (
	openDB         = sql.Open
	singletonMu    sync.Mutex
	singletonCond  = sync.NewCond(&singletonMu)
	singletonDB    *sql.DB
	singletonInFly bool
)

// IsLambdaRuntime reports whether the current process is running in AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// OptionsFor returns pool defaults for p.
//
// The API holds a few connections per in-flight request: resume reads and
// writes are single-row JSONB statements, and exports render after the row
// is loaded, so the pool stays small. Lambda instances serve one request at a
// time. CLI tools (migrate, admin) need a single connection.
func OptionsFor(p Profile) Options {
	switch p {
	case ProfileLambda:
		return Options{
			Profile:         ProfileLambda,
			MaxOpenConns:    2,
			MaxIdleConns:    1,
			ConnMaxIdleTime: 30 * time.Second,
			ConnMaxLifetime: 15 * time.Minute,
			PingTimeout:     3 * time.Second,
		}
	case ProfileCLI:
		return Options{
			Profile:         ProfileCLI,
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			PingTimeout:     10 * time.Second,
		}
	default:
		return Options{
			Profile:         ProfileAPI,
			MaxOpenConns:    15,
			MaxIdleConns:    5,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: time.Hour,
			PingTimeout:     5 * time.Second,
		}
	}
}

// OptionsFromEnv applies DATABASE_* overrides on top of the profile defaults.
// Invalid values are logged and ignored.
func OptionsFromEnv(p Profile) Options {
	opts := OptionsFor(p)
	if v, ok := readEnvInt("DATABASE_MAX_OPEN_CONNS"); ok {
		opts.MaxOpenConns = v
	}
	if v, ok := readEnvInt("DATABASE_MAX_IDLE_CONNS"); ok {
		opts.MaxIdleConns = v
	}
	if v, ok := readEnvDuration("DATABASE_CONN_MAX_LIFETIME"); ok {
		opts.ConnMaxLifetime = v
	}
	if v, ok := readEnvDuration("DATABASE_CONN_MAX_IDLE_TIME"); ok {
		opts.ConnMaxIdleTime = v
	}
	if v, ok := readEnvDuration("DATABASE_PING_TIMEOUT"); ok {
		opts.PingTimeout = v
	}
	if opts.MaxIdleConns > opts.MaxOpenConns {
		opts.MaxIdleConns = opts.MaxOpenConns
	}
	return opts
}

// Connect opens a pgx-backed *sql.DB and pings it. Callers share the result.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, ErrNoDatabaseURL
	}

	database, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	applyOptions(database, opts)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := database.PingContext(pingCtx); err != nil {
		_ = database.Close()
		telemetry.Warn("db.ping_failed", map[string]any{"profile": string(opts.Profile), "error": err.Error()})
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logPoolStats(database, "db.init", opts.Profile)
	return database, nil
}

// GetSingleton returns a process-wide *sql.DB for warm Lambda invocations.
// A failed initialization is retried by the next caller.
func GetSingleton(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	singletonMu.Lock()
	for singletonInFly && singletonDB == nil {
		singletonCond.Wait()
	}
	if singletonDB != nil {
		database := singletonDB
		singletonMu.Unlock()
		return database, nil
	}
	singletonInFly = true
	singletonMu.Unlock()

	database, err := Connect(ctx, databaseURL, opts)

	singletonMu.Lock()
	if err == nil {
		singletonDB = database
	}
	singletonInFly = false
	singletonCond.Broadcast()
	singletonMu.Unlock()

	if err != nil {
		return nil, err
	}
	telemetry.Info("db.singleton_init", map[string]any{"profile": string(opts.Profile)})
	return database, nil
}

func applyOptions(database *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 1
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	database.SetMaxOpenConns(opts.MaxOpenConns)
	database.SetMaxIdleConns(opts.MaxIdleConns)
	database.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		database.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func logPoolStats(database *sql.DB, event string, profile Profile) {
	stats := database.Stats()
	telemetry.Info(event, map[string]any{
		"profile":  string(profile),
		"open":     stats.OpenConnections,
		"in_use":   stats.InUse,
		"idle":     stats.Idle,
		"max_open": stats.MaxOpenConnections,
	})
}

func readEnvInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		telemetry.Warn("db.env_invalid", map[string]any{"key": key, "value": raw})
		return 0, false
	}
	return val, true
}

func readEnvDuration(key string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		telemetry.Warn("db.env_invalid", map[string]any{"key": key, "value": raw})
		return 0, false
	}
	return val, true
}
