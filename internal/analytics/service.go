package analytics

import (
	"context"

	"github.com/hr-assistant/backend/internal/storage/models"
	"github.com/hr-assistant/backend/internal/storage/sqlite"
)

// Service is the read side for the HR dashboard: aggregated views over
// the append-only resolution records.
type Service struct {
	db *sqlite.Client
}

func NewService(db *sqlite.Client) *Service {
	return &Service{db: db}
}

func (s *Service) Overview(ctx context.Context) (*models.Overview, error) {
	return s.db.Overview(ctx)
}

func (s *Service) DailyTrends(ctx context.Context, days int) ([]models.DailyTrend, error) {
	return s.db.DailyTrends(ctx, days)
}

func (s *Service) PendingEscalations(ctx context.Context) ([]models.EscalationLog, error) {
	return s.db.PendingEscalations(ctx)
}

// ResolveEscalation closes a pending escalation with notes. The
// underlying resolution record is untouched; only the escalation queue
// entry changes state.
func (s *Service) ResolveEscalation(ctx context.Context, id int, notes string) error {
	return s.db.ResolveEscalation(ctx, id, notes)
}

func (s *Service) QueryHistory(ctx context.Context, employeeID string, limit int) ([]models.ResolutionRecord, error) {
	return s.db.ListResolutionsByEmployee(ctx, employeeID, limit)
}

func (s *Service) SubmitFeedback(ctx context.Context, fb *models.Feedback) error {
	return s.db.InsertFeedback(ctx, fb)
}
