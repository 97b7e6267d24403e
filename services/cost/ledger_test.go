package cost

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MissyMedina/autodev-gateway/services/providers"
)

func TestLedger_InitSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS usage_ledger").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ledger := NewLedger(db, zap.NewNop())
	require.NoError(t, ledger.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_RecordUsage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO usage_ledger").
		WithArgs("req-1", "openai", "gpt-4o-mini", "code-generation", 120, 0.012, int64(850), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ledger := NewLedger(db, zap.NewNop())
	err = ledger.RecordUsage(context.Background(), UsageRecord{
		RequestID:  "req-1",
		Provider:   "openai",
		Model:      "gpt-4o-mini",
		TaskType:   providers.TaskCodeGen,
		TokensUsed: 120,
		Cost:       0.012,
		LatencyMs:  850,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_RecordUsage_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO usage_ledger").
		WillReturnError(assert.AnError)

	ledger := NewLedger(db, zap.NewNop())
	err = ledger.RecordUsage(context.Background(), UsageRecord{RequestID: "req-1", Provider: "openai"})
	assert.Error(t, err)
}

func TestLedger_ProviderSpendSince(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	since := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"provider", "coalesce"}).
		AddRow("openai", 1.25).
		AddRow("ollama", 0.0)

	mock.ExpectQuery("SELECT provider, COALESCE").
		WithArgs(since).
		WillReturnRows(rows)

	ledger := NewLedger(db, zap.NewNop())
	spend, err := ledger.ProviderSpendSince(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, 1.25, spend["openai"])
	assert.Equal(t, 0.0, spend["ollama"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
