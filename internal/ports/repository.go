package ports

import (
	"context"

	"alphaTransformer/internal/domain"
)

// AnalysisRepository persists completed multi-timeframe analyses so the
// decision collaborator can review its own history.
type AnalysisRepository interface {
	// SaveAnalysis stores a completed analysis and returns its new ID.
	SaveAnalysis(ctx context.Context, record *domain.AnalysisRecord) (int64, error)

	// FindRecentBySymbol returns up to limit most recent records for the
	// symbol, newest first.
	FindRecentBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.AnalysisRecord, error)
}
