package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for concurrent readers while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infof("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_analysis (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol       TEXT NOT NULL,
			trade_date   TEXT NOT NULL,
			strategies   TEXT NOT NULL,
			close_price  REAL,
			rsi          REAL,
			indicators   TEXT,
			ai_score     REAL,
			ai_sentiment TEXT,
			ai_summary   TEXT,
			updated_at   INTEGER NOT NULL,
			UNIQUE (symbol, trade_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_date ON daily_analysis(trade_date)`,

		`CREATE TABLE IF NOT EXISTS scan_history (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			duration_ms INTEGER,
			source      TEXT,
			symbols     INTEGER,
			row_count   INTEGER,
			signals     INTEGER,
			failed      TEXT,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_ts ON scan_history(timestamp)`,
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
func (r *SQLiteRecorder) SaveAnalysis(ctx context.Context, rec *AnalysisRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ind, err := rec.indicatorsJSON()
	if err != nil {
		return fmt.Errorf("encode indicators: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO daily_analysis
		(symbol, trade_date, strategies, close_price, rsi, indicators, ai_score, ai_sentiment, ai_summary, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(symbol, trade_date) DO UPDATE SET
			strategies   = excluded.strategies,
			close_price  = excluded.close_price,
			rsi          = excluded.rsi,
			indicators   = excluded.indicators,
			ai_score     = excluded.ai_score,
			ai_sentiment = excluded.ai_sentiment,
			ai_summary   = excluded.ai_summary,
			updated_at   = excluded.updated_at`,
		rec.Symbol, rec.tradeDay(), rec.strategyList(), rec.Close, rec.rsiValue(), ind,
		rec.Score, rec.Sentiment, rec.Summary, time.Now().Unix(),
	)
	return err
}

func (r *SQLiteRecorder) RecordScan(ctx context.Context, evt *ScanEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO scan_history
		(timestamp, duration_ms, source, symbols, row_count, signals, failed, error)
		VALUES (?,?,?,?,?,?,?,?)`,
		evt.StartedAt.Unix(), evt.Duration.Milliseconds(), evt.Trigger,
		evt.Symbols, evt.Rows, evt.Signals, strings.Join(evt.Failed, ","), evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Info("closing sqlite recorder")
	return r.db.Close()
}
