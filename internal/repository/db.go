package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/document-extractor/internal/common"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ConfigFrom maps application database settings onto a repository Config.
func ConfigFrom(c common.DatabaseConfig) Config {
	return Config(c)
}

// DB is the journal connection. Postgres goes through a pgx pool wrapped as
// *sql.DB; anything else is SQLite, in memory when the DSN is empty.
type DB struct {
	SQL     *sql.DB
	Pool    *pgxpool.Pool
	Dialect Dialect
	logger  *slog.Logger
}

// Open connects to the journal database and creates its schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var db *DB
	var err error
	if isPostgres(cfg.DSN) {
		db, err = openPostgres(ctx, cfg, logger)
	} else {
		db, err = openSQLite(cfg, logger)
	}
	if err != nil {
		logger.Error("failed to connect to database", "dialect", dialectOf(cfg.DSN), "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	if err := db.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", common.ErrDatabase, err)
	}
	logger.Info("successfully connected to database", "dialect", db.Dialect)
	return db, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func dialectOf(dsn string) Dialect {
	if isPostgres(dsn) {
		return Postgres
	}
	return SQLite
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "dialect", Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "document-extractor"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	ctx, cancel := common.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}

	return &DB{SQL: stdlib.OpenDBFromPool(pool), Pool: pool, Dialect: Postgres, logger: logger}, nil
}

func openSQLite(cfg Config, logger *slog.Logger) (*DB, error) {
	dsn := strings.TrimPrefix(cfg.DSN, "sqlite://")
	if dsn == "" {
		dsn = ":memory:"
	}
	logger.Info("connecting to database", "dialect", SQLite, "dsn", dsn)
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection keeps an in-memory database alive and serializes writers.
	sqldb.SetMaxOpenConns(1)
	return &DB{SQL: sqldb, Dialect: SQLite, logger: logger}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS extractions (
	id               TEXT PRIMARY KEY,
	source_path      TEXT NOT NULL,
	content_hash     TEXT NOT NULL,
	status           TEXT NOT NULL,
	record_json      TEXT,
	diagnostics_json TEXT,
	error_message    TEXT,
	started_at_ms    BIGINT NOT NULL,
	finished_at_ms   BIGINT
);
CREATE INDEX IF NOT EXISTS extractions_content_hash_idx ON extractions (content_hash);
`

func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.SQL.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $n for Postgres.
func (db *DB) rebind(query string) string {
	if db.Dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the database connections gracefully
func (db *DB) Close() {
	db.logger.Info("closing database connections")
	if err := db.SQL.Close(); err != nil {
		db.logger.Error("failed to close database", "error", err)
	}
	if db.Pool != nil {
		db.Pool.Close()
	}
	db.logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := common.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.SQL.PingContext(ctx); err != nil {
		db.logger.Error("database ping failed", "error", err)
		return err
	}
	db.logger.Debug("database ping successful")
	return nil
}
