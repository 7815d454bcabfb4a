package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// PostgresRecorder persists historical data to PostgreSQL.
type PostgresRecorder struct {
	db *sql.DB
}

// NewPostgresRecorder connects using a postgres:// URL and runs migrations.
func NewPostgresRecorder(url string) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	r, err := newPostgresRecorder(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Info("postgres recorder connected")
	return r, nil
}

func newPostgresRecorder(db *sql.DB) (*PostgresRecorder, error) {
	r := &PostgresRecorder{db: db}
	if err := r.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *PostgresRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_analysis (
			id           BIGSERIAL PRIMARY KEY,
			symbol       VARCHAR(16) NOT NULL,
			trade_date   DATE NOT NULL,
			strategies   TEXT NOT NULL,
			close_price  DOUBLE PRECISION,
			rsi          DOUBLE PRECISION,
			indicators   JSONB,
			ai_score     DOUBLE PRECISION,
			ai_sentiment VARCHAR(20),
			ai_summary   TEXT,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (symbol, trade_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_date ON daily_analysis(trade_date)`,

		`CREATE TABLE IF NOT EXISTS scan_history (
			id          BIGSERIAL PRIMARY KEY,
			started_at  TIMESTAMPTZ NOT NULL,
			duration_ms BIGINT,
			source      VARCHAR(16),
			symbols     INTEGER,
			row_count   INTEGER,
			signals     INTEGER,
			failed      TEXT,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_started ON scan_history(started_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// SaveAnalysis inserts the record or overwrites the one stored for the same
// symbol and trading day.
func (r *PostgresRecorder) SaveAnalysis(ctx context.Context, rec *AnalysisRecord) error {
	ind, err := rec.indicatorsJSON()
	if err != nil {
		return fmt.Errorf("encode indicators: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO daily_analysis
		(symbol, trade_date, strategies, close_price, rsi, indicators, ai_score, ai_sentiment, ai_summary, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			strategies   = EXCLUDED.strategies,
			close_price  = EXCLUDED.close_price,
			rsi          = EXCLUDED.rsi,
			indicators   = EXCLUDED.indicators,
			ai_score     = EXCLUDED.ai_score,
			ai_sentiment = EXCLUDED.ai_sentiment,
			ai_summary   = EXCLUDED.ai_summary,
			updated_at   = NOW()`,
		rec.Symbol, rec.tradeDay(), rec.strategyList(), rec.Close, rec.rsiValue(), ind,
		rec.Score, rec.Sentiment, rec.Summary,
	)
	if err != nil {
		return fmt.Errorf("save analysis %s: %w", rec.Symbol, err)
	}
	return nil
}

func (r *PostgresRecorder) RecordScan(ctx context.Context, evt *ScanEvent) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO scan_history
		(started_at, duration_ms, source, symbols, row_count, signals, failed, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		evt.StartedAt.UTC(), evt.Duration.Milliseconds(), evt.Trigger,
		evt.Symbols, evt.Rows, evt.Signals, strings.Join(evt.Failed, ","), evt.Error,
	)
	if err != nil {
		return fmt.Errorf("record scan: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) Close() error {
	log.Info("closing postgres recorder")
	return r.db.Close()
}
