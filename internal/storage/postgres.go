// Package storage persists signals in PostgreSQL and runtime state
// snapshots in Redis.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"swing-signal-bot/internal/analysis"
	"swing-signal-bot/internal/market"
	"swing-signal-bot/internal/signal"
)

// PostgresConfig holds database connection settings.
type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
	Enabled  bool   `json:"enabled"`
}

// DB wraps the PostgreSQL connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDB connects to PostgreSQL and verifies the connection.
func NewDB(ctx context.Context, cfg PostgresConfig, logger zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	l := logger.With().Str("component", "storage").Logger()
	l.Info().Str("database", cfg.Database).Msg("connected to postgres")
	return &DB{Pool: pool, logger: l}, nil
}

// Close shuts the pool down.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Migrate creates the signal tables.
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id UUID PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			direction VARCHAR(5) NOT NULL,
			setup VARCHAR(20) NOT NULL,
			entry DECIMAL(20, 8) NOT NULL,
			stop_loss DECIMAL(20, 8) NOT NULL,
			tp1 DECIMAL(20, 8) NOT NULL,
			tp2 DECIMAL(20, 8) NOT NULL,
			tp3 DECIMAL(20, 8) NOT NULL,
			score INT NOT NULL,
			breakdown JSONB,
			risk_pct DECIMAL(10, 6) NOT NULL,
			size DECIMAL(20, 8) NOT NULL,
			window_open TIMESTAMPTZ NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'active',
			outcome VARCHAR(5),
			created_at TIMESTAMPTZ NOT NULL,
			resolved_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_status ON signals(status)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_created_at ON signals(created_at)`,
	}

	for i, m := range migrations {
		if _, err := db.Pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	db.logger.Info().Msg("migrations completed")
	return nil
}

// SignalRepository persists signals through the shared pool.
type SignalRepository struct {
	db *DB
}

// NewSignalRepository creates a repository over db.
func NewSignalRepository(db *DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// SaveSignal inserts an emitted signal.
func (r *SignalRepository) SaveSignal(ctx context.Context, s signal.Signal) error {
	breakdown, err := json.Marshal(s.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO signals
			(id, symbol, direction, setup, entry, stop_loss, tp1, tp2, tp3,
			 score, breakdown, risk_pct, size, window_open, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		s.ID, s.Symbol, string(s.Direction), string(s.Setup),
		s.Entry, s.StopLoss, s.TP1, s.TP2, s.TP3,
		s.Score, breakdown, s.RiskPct, s.Size, s.Window, string(s.Status), s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// ResolveSignal marks a stored signal resolved with its outcome.
func (r *SignalRepository) ResolveSignal(ctx context.Context, id string, outcome signal.Outcome, resolvedAt time.Time) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE signals
		 SET status = 'resolved', outcome = $2, resolved_at = $3
		 WHERE id = $1 AND status = 'active'`,
		id, string(outcome), resolvedAt,
	)
	if err != nil {
		return fmt.Errorf("resolve signal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return signal.ErrNotFound
	}
	return nil
}

// ActiveSignals loads unresolved signals for restart recovery, oldest
// first so restored dedup records keep their emission order.
func (r *SignalRepository) ActiveSignals(ctx context.Context) ([]signal.Signal, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, symbol, direction, setup, entry, stop_loss, tp1, tp2, tp3,
		        score, risk_pct, size, window_open, status,
		        COALESCE(outcome, ''), created_at, COALESCE(resolved_at, 'epoch'::timestamptz)
		 FROM signals WHERE status = 'active' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []signal.Signal
	for rows.Next() {
		var s signal.Signal
		var direction, setup, status, outcome string
		if err := rows.Scan(&s.ID, &s.Symbol, &direction, &setup,
			&s.Entry, &s.StopLoss, &s.TP1, &s.TP2, &s.TP3,
			&s.Score, &s.RiskPct, &s.Size, &s.Window, &status,
			&outcome, &s.CreatedAt, &s.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		s.Direction = market.Direction(direction)
		s.Setup = analysis.Regime(setup)
		s.Status = signal.Status(status)
		s.Outcome = signal.Outcome(outcome)
		out = append(out, s)
	}
	return out, rows.Err()
}
