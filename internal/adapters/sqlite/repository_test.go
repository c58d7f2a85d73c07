package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"alphaTransformer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) *Repository {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "market-agent-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	})
	return repo
}

func TestRepository_SaveAndFindAnalysis(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	rec := &domain.AnalysisRecord{
		Symbol:           "BTCUSDT",
		TrendDirection:   domain.TrendUp,
		TrendConsistency: 1.0,
		Payload:          `{"symbol":"BTCUSDT"}`,
		AnalyzedAt:       time.Now().UTC(),
	}
	id, err := repo.SaveAnalysis(ctx, rec)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))
	assert.Equal(t, id, rec.ID)

	records, err := repo.FindRecentBySymbol(ctx, "BTCUSDT", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "BTCUSDT", records[0].Symbol)
	assert.Equal(t, domain.TrendUp, records[0].TrendDirection)
	assert.Equal(t, 1.0, records[0].TrendConsistency)
	assert.Equal(t, rec.Payload, records[0].Payload)
}

func TestRepository_FindRecentBySymbol_OrderAndLimit(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := repo.SaveAnalysis(ctx, &domain.AnalysisRecord{
			Symbol:         "ETHUSDT",
			TrendDirection: domain.TrendChoppy,
			Payload:        "{}",
			AnalyzedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	records, err := repo.FindRecentBySymbol(ctx, "ETHUSDT", 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.True(t, records[0].AnalyzedAt.After(records[1].AnalyzedAt))
	assert.True(t, records[1].AnalyzedAt.After(records[2].AnalyzedAt))
}

func TestRepository_FindRecentBySymbol_UnknownSymbol(t *testing.T) {
	repo := setupTestDB(t)

	records, err := repo.FindRecentBySymbol(context.Background(), "NOSUCH", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
