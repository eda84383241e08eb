package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hr-assistant/backend/internal/storage/models"
	"github.com/hr-assistant/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resolution_records (
		session_id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		department TEXT,
		role TEXT,
		query_text TEXT NOT NULL,
		query_intent TEXT,
		category TEXT NOT NULL,
		response_text TEXT,
		confidence REAL,
		escalated INTEGER NOT NULL DEFAULT 0,
		escalation_reason TEXT NOT NULL,
		failure_note TEXT,
		response_time_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_resolutions_employee ON resolution_records(employee_id);
	CREATE INDEX IF NOT EXISTS idx_resolutions_category ON resolution_records(category);
	CREATE INDEX IF NOT EXISTS idx_resolutions_created ON resolution_records(created_at);

	CREATE TABLE IF NOT EXISTS resolution_sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		rank INTEGER NOT NULL,
		source TEXT NOT NULL,
		FOREIGN KEY (session_id) REFERENCES resolution_records(session_id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_sources_session ON resolution_sources(session_id);

	CREATE TABLE IF NOT EXISTS escalation_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		department TEXT,
		escalation_type TEXT NOT NULL,
		escalation_note TEXT,
		assigned_to TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		priority TEXT NOT NULL DEFAULT 'medium',
		resolution_notes TEXT,
		created_at INTEGER NOT NULL,
		resolved_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_escalations_status ON escalation_logs(status);
	CREATE INDEX IF NOT EXISTS idx_escalations_session ON escalation_logs(session_id);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT UNIQUE NOT NULL,
		title TEXT,
		document_type TEXT,
		category TEXT,
		chunk_count INTEGER DEFAULT 0,
		content_hash TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (doc_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_doc ON document_chunks(doc_id);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		satisfied INTEGER NOT NULL,
		feedback_text TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_session ON feedback(session_id);

	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		email TEXT,
		department TEXT,
		role TEXT NOT NULL DEFAULT 'employee',
		is_active INTEGER DEFAULT 1,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_employees_id ON employees(employee_id);

	CREATE TABLE IF NOT EXISTS evaluation_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		relevance_score REAL,
		accuracy_score REAL,
		completeness_score REAL,
		citation_score REAL,
		overall_classification TEXT,
		reasoning TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_eval_session ON evaluation_results(session_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// InsertResolutionRecord appends a resolution and its sources in one
// transaction. A record is written at most once per session id.
func (c *Client) InsertResolutionRecord(ctx context.Context, record *models.ResolutionRecord) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	escalated := 0
	if record.Escalated {
		escalated = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO resolution_records (session_id, employee_id, department, role, query_text,
			query_intent, category, response_text, confidence, escalated, escalation_reason,
			failure_note, response_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.SessionID,
		record.EmployeeID,
		record.Department,
		record.Role,
		record.QueryText,
		record.QueryIntent,
		record.Category,
		record.ResponseText,
		record.Confidence,
		escalated,
		record.EscalationReason,
		record.FailureNote,
		record.ResponseTimeMS,
		record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert resolution record: %w", err)
	}

	for i, source := range record.Sources {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO resolution_sources (session_id, rank, source) VALUES (?, ?, ?)`,
			record.SessionID, i+1, source,
		)
		if err != nil {
			return fmt.Errorf("failed to insert resolution source: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit resolution record: %w", err)
	}

	logger.Info("Resolution recorded",
		zap.String("session_id", record.SessionID),
		zap.String("category", record.Category),
		zap.Float64("confidence", record.Confidence),
		zap.Bool("escalated", record.Escalated),
	)

	return nil
}

func (c *Client) InsertEscalation(ctx context.Context, esc *models.EscalationLog) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO escalation_logs (session_id, employee_id, department, escalation_type,
			escalation_note, status, priority, created_at)
		VALUES (?, ?, ?, ?, ?, 'pending', ?, ?)`,
		esc.SessionID,
		esc.EmployeeID,
		esc.Department,
		esc.EscalationType,
		esc.EscalationNote,
		esc.Priority,
		esc.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert escalation: %w", err)
	}

	return nil
}

func (c *Client) ListResolutionsByEmployee(ctx context.Context, employeeID string, limit int) ([]models.ResolutionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT session_id, employee_id, department, role, query_text, query_intent,
			category, response_text, confidence, escalated, escalation_reason,
			failure_note, response_time_ms, created_at
		FROM resolution_records
		WHERE employee_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		employeeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolutions: %w", err)
	}
	defer rows.Close()

	var records []models.ResolutionRecord
	for rows.Next() {
		var rec models.ResolutionRecord
		var escalated int
		var createdAt int64

		err := rows.Scan(
			&rec.SessionID,
			&rec.EmployeeID,
			&rec.Department,
			&rec.Role,
			&rec.QueryText,
			&rec.QueryIntent,
			&rec.Category,
			&rec.ResponseText,
			&rec.Confidence,
			&escalated,
			&rec.EscalationReason,
			&rec.FailureNote,
			&rec.ResponseTimeMS,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}

		rec.Escalated = escalated == 1
		rec.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (c *Client) Overview(ctx context.Context) (*models.Overview, error) {
	overview := &models.Overview{
		CategoryDistribution:   make(map[string]int),
		DepartmentDistribution: make(map[string]int),
	}

	todayStart := time.Now().Truncate(24 * time.Hour).Unix()

	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(confidence), 0),
			COALESCE(AVG(escalated), 0),
			COALESCE(AVG(response_time_ms), 0)
		FROM resolution_records`,
		todayStart,
	).Scan(
		&overview.TotalQueries,
		&overview.QueriesToday,
		&overview.AvgConfidence,
		&overview.EscalationRate,
		&overview.AvgResponseTimeMS,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate overview: %w", err)
	}

	err = c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM escalation_logs WHERE status = 'pending'`,
	).Scan(&overview.PendingEscalations)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending escalations: %w", err)
	}

	err = c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM employees WHERE is_active = 1`,
	).Scan(&overview.ActiveEmployees)
	if err != nil {
		return nil, fmt.Errorf("failed to count active employees: %w", err)
	}

	if err := c.countBy(ctx, "category", overview.CategoryDistribution); err != nil {
		return nil, err
	}
	if err := c.countBy(ctx, "department", overview.DepartmentDistribution); err != nil {
		return nil, err
	}

	return overview, nil
}

func (c *Client) countBy(ctx context.Context, column string, dest map[string]int) error {
	// column is a fixed internal name, never caller input
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s, COUNT(*) FROM resolution_records GROUP BY %s`, column, column,
	))
	if err != nil {
		return fmt.Errorf("failed to group by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan %s distribution: %w", column, err)
		}
		dest[key] = count
	}

	return rows.Err()
}

func (c *Client) DailyTrends(ctx context.Context, days int) ([]models.DailyTrend, error) {
	if days <= 0 {
		days = 14
	}
	since := time.Now().AddDate(0, 0, -days).Unix()

	rows, err := c.db.QueryContext(ctx, `
		SELECT date(created_at, 'unixepoch') AS day,
			COUNT(*),
			COALESCE(SUM(escalated), 0)
		FROM resolution_records
		WHERE created_at >= ?
		GROUP BY day
		ORDER BY day`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily trends: %w", err)
	}
	defer rows.Close()

	var trends []models.DailyTrend
	for rows.Next() {
		var t models.DailyTrend
		if err := rows.Scan(&t.Date, &t.Queries, &t.Escalations); err != nil {
			return nil, fmt.Errorf("failed to scan daily trend: %w", err)
		}
		trends = append(trends, t)
	}

	return trends, rows.Err()
}

func (c *Client) PendingEscalations(ctx context.Context) ([]models.EscalationLog, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, session_id, employee_id, department, escalation_type,
			COALESCE(escalation_note, ''), COALESCE(assigned_to, ''),
			status, priority, COALESCE(resolution_notes, ''), created_at, resolved_at
		FROM escalation_logs
		WHERE status = 'pending'
		ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending escalations: %w", err)
	}
	defer rows.Close()

	var escalations []models.EscalationLog
	for rows.Next() {
		var esc models.EscalationLog
		var createdAt int64
		var resolvedAt sql.NullInt64

		err := rows.Scan(
			&esc.ID,
			&esc.SessionID,
			&esc.EmployeeID,
			&esc.Department,
			&esc.EscalationType,
			&esc.EscalationNote,
			&esc.AssignedTo,
			&esc.Status,
			&esc.Priority,
			&esc.ResolutionNotes,
			&createdAt,
			&resolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation: %w", err)
		}

		esc.CreatedAt = time.Unix(createdAt, 0)
		if resolvedAt.Valid {
			t := time.Unix(resolvedAt.Int64, 0)
			esc.ResolvedAt = &t
		}
		escalations = append(escalations, esc)
	}

	return escalations, rows.Err()
}

func (c *Client) ResolveEscalation(ctx context.Context, id int, resolutionNotes string) error {
	result, err := c.db.ExecContext(ctx, `
		UPDATE escalation_logs
		SET status = 'resolved', resolution_notes = ?, resolved_at = ?
		WHERE id = ? AND status = 'pending'`,
		resolutionNotes, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve escalation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check resolve result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("escalation %d not found or not pending", id)
	}

	logger.Info("Escalation resolved", zap.Int("escalation_id", id))
	return nil
}

// UpsertEmployee refreshes the directory entry seen on a resolution.
// Department and role track the most recent query; the row is keyed by
// employee id, so repeat askers never duplicate.
func (c *Client) UpsertEmployee(ctx context.Context, emp *models.Employee) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO employees (employee_id, name, email, department, role, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			department = excluded.department,
			role = excluded.role,
			is_active = 1`,
		emp.EmployeeID,
		emp.Name,
		emp.Email,
		emp.Department,
		emp.Role,
		emp.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert employee: %w", err)
	}

	return nil
}

func (c *Client) GetEmployee(ctx context.Context, employeeID string) (*models.Employee, error) {
	var emp models.Employee
	var isActive int
	var createdAt int64

	err := c.db.QueryRowContext(ctx, `
		SELECT id, employee_id, name, COALESCE(email, ''), COALESCE(department, ''), role, is_active, created_at
		FROM employees
		WHERE employee_id = ?`,
		employeeID,
	).Scan(
		&emp.ID,
		&emp.EmployeeID,
		&emp.Name,
		&emp.Email,
		&emp.Department,
		&emp.Role,
		&isActive,
		&createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	emp.IsActive = isActive == 1
	emp.CreatedAt = time.Unix(createdAt, 0)
	return &emp, nil
}

func (c *Client) InsertFeedback(ctx context.Context, fb *models.Feedback) error {
	satisfied := 0
	if fb.Satisfied {
		satisfied = 1
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO feedback (session_id, satisfied, feedback_text, created_at) VALUES (?, ?, ?, ?)`,
		fb.SessionID, satisfied, fb.FeedbackText, fb.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}

	return nil
}

func (c *Client) UpsertDocument(ctx context.Context, doc *models.PolicyDocument) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, title, document_type, category, chunk_count, content_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			title = excluded.title,
			document_type = excluded.document_type,
			category = excluded.category,
			chunk_count = excluded.chunk_count,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at`,
		doc.ID,
		doc.Filename,
		doc.Title,
		doc.DocumentType,
		doc.Category,
		doc.ChunkCount,
		doc.ContentHash,
		doc.CreatedAt.Unix(),
		doc.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	logger.Debug("Document upserted", zap.String("doc_id", doc.ID), zap.String("filename", doc.Filename))
	return nil
}

func (c *Client) InsertChunk(ctx context.Context, chunk *models.DocumentChunk) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO document_chunks (id, doc_id, chunk_index, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		chunk.ID, chunk.DocID, chunk.ChunkIndex, chunk.Text, chunk.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}

	return nil
}

func (c *Client) DocumentStats(ctx context.Context) (documents int, chunks int, err error) {
	err = c.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM documents), (SELECT COUNT(*) FROM document_chunks)`,
	).Scan(&documents, &chunks)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return documents, chunks, nil
}

func (c *Client) InsertEvaluationResult(ctx context.Context, result *models.EvaluationResult) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO evaluation_results (session_id, relevance_score, accuracy_score,
			completeness_score, citation_score, overall_classification, reasoning, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.SessionID,
		result.RelevanceScore,
		result.AccuracyScore,
		result.CompletenessScore,
		result.CitationScore,
		result.OverallClassification,
		result.Reasoning,
		result.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation result: %w", err)
	}

	return nil
}
