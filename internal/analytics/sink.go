package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hr-assistant/backend/internal/escalation"
	"github.com/hr-assistant/backend/internal/storage/models"
	"github.com/hr-assistant/backend/internal/storage/sqlite"
	"github.com/hr-assistant/backend/pkg/logger"
)

// ErrSinkWrite reports a failed durable append. The orchestrator retries
// it and, if the sink stays down, degrades the response instead of
// dropping the record silently.
var ErrSinkWrite = errors.New("analytics sink write failed")

// SQLiteSink appends resolution records to the relational store.
// Append-only: records are never updated after the write.
type SQLiteSink struct {
	db *sqlite.Client
}

func NewSQLiteSink(db *sqlite.Client) *SQLiteSink {
	return &SQLiteSink{db: db}
}

// Append writes the record and, for escalated resolutions, a pending
// escalation-log row for the HR queue. The employee directory entry is
// refreshed best-effort; only the record and escalation writes decide
// success.
func (s *SQLiteSink) Append(ctx context.Context, record *models.ResolutionRecord) error {
	if err := s.db.InsertResolutionRecord(ctx, record); err != nil {
		return fmt.Errorf("%w: %v", ErrSinkWrite, err)
	}

	if record.Escalated {
		reason := escalation.Reason(record.EscalationReason)

		err := s.db.InsertEscalation(ctx, &models.EscalationLog{
			SessionID:      record.SessionID,
			EmployeeID:     record.EmployeeID,
			Department:     record.Department,
			EscalationType: record.EscalationReason,
			EscalationNote: record.FailureNote,
			Priority:       reason.Priority(),
			CreatedAt:      time.Now(),
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSinkWrite, err)
		}
	}

	if record.EmployeeID != "" {
		err := s.db.UpsertEmployee(ctx, &models.Employee{
			EmployeeID: record.EmployeeID,
			Department: record.Department,
			Role:       record.Role,
			CreatedAt:  record.CreatedAt,
		})
		if err != nil {
			logger.Warn("Failed to refresh employee directory",
				zap.String("employee_id", record.EmployeeID),
				zap.Error(err),
			)
		}
	}

	return nil
}
