package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"alphaTransformer/internal/domain"
	"alphaTransformer/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.AnalysisRepository using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/market_agent.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from a
	// single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS analysis_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		trend_direction TEXT NOT NULL DEFAULT '',
		trend_consistency REAL NOT NULL DEFAULT 0,
		payload TEXT NOT NULL,
		analyzed_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analysis_snapshots_symbol_analyzed_at ON analysis_snapshots (symbol, analyzed_at);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// SaveAnalysis persists a completed analysis and returns its assigned ID.
func (r *Repository) SaveAnalysis(ctx context.Context, rec *domain.AnalysisRecord) (int64, error) {
	const query = `
	INSERT INTO analysis_snapshots (symbol, trend_direction, trend_consistency, payload, analyzed_at)
	VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		rec.Symbol, rec.TrendDirection, rec.TrendConsistency, rec.Payload, rec.AnalyzedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis for symbol %s: %w: %w", rec.Symbol, ports.ErrQueryFailed, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for analysis %s: %w", rec.Symbol, err)
	}
	rec.ID = id
	r.logger.Debug(ctx, "Analysis saved", map[string]interface{}{"analysisID": id, "symbol": rec.Symbol})
	return id, nil
}

// FindRecentBySymbol returns the most recent analyses for a symbol, newest
// first.
func (r *Repository) FindRecentBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
	SELECT id, symbol, trend_direction, trend_consistency, payload, analyzed_at
	FROM analysis_snapshots
	WHERE symbol = ?
	ORDER BY analyzed_at DESC, id DESC
	LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses for symbol %s: %w: %w", symbol, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var records []*domain.AnalysisRecord
	for rows.Next() {
		rec := &domain.AnalysisRecord{}
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.TrendDirection, &rec.TrendConsistency, &rec.Payload, &rec.AnalyzedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis row for symbol %s: %w", symbol, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis rows for symbol %s: %w", symbol, err)
	}
	return records, nil
}
