package cost

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MissyMedina/autodev-gateway/services/providers"
)

// UsageRecord is one billable request written to the ledger
type UsageRecord struct {
	RequestID  string
	Provider   string
	Model      string
	TaskType   providers.TaskType
	TokensUsed int
	Cost       float64
	LatencyMs  int64
}

// Ledger persists per-request usage rows to PostgreSQL for billing and
// reporting. The ledger is optional: without a database the accountant runs
// purely in memory, and ledger write failures never fail a request.
type Ledger struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLedger creates a new usage ledger
func NewLedger(db *sql.DB, logger *zap.Logger) *Ledger {
	return &Ledger{
		db:     db,
		logger: logger,
	}
}

// InitSchema creates the ledger table when absent
func (l *Ledger) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS usage_ledger (
			id BIGSERIAL PRIMARY KEY,
			request_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			task_type TEXT NOT NULL,
			tokens_used INTEGER NOT NULL,
			cost NUMERIC(12, 6) NOT NULL,
			latency_ms BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := l.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create usage_ledger table: %w", err)
	}
	return nil
}

// RecordUsage inserts one usage row
func (l *Ledger) RecordUsage(ctx context.Context, rec UsageRecord) error {
	query := `
		INSERT INTO usage_ledger (request_id, provider, model, task_type, tokens_used, cost, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := l.db.ExecContext(ctx, query,
		rec.RequestID,
		rec.Provider,
		rec.Model,
		string(rec.TaskType),
		rec.TokensUsed,
		rec.Cost,
		rec.LatencyMs,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

// ProviderSpendSince returns the total recorded cost per provider since a
// cutoff, for reporting endpoints
func (l *Ledger) ProviderSpendSince(ctx context.Context, since time.Time) (map[string]float64, error) {
	query := `
		SELECT provider, COALESCE(SUM(cost), 0)
		FROM usage_ledger
		WHERE created_at >= $1
		GROUP BY provider
	`
	rows, err := l.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query provider spend: %w", err)
	}
	defer rows.Close()

	spend := make(map[string]float64)
	for rows.Next() {
		var provider string
		var total float64
		if err := rows.Scan(&provider, &total); err != nil {
			return nil, fmt.Errorf("failed to scan spend row: %w", err)
		}
		spend[provider] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate spend rows: %w", err)
	}
	return spend, nil
}
