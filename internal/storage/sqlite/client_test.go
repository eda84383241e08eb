package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hr-assistant/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.InitSchema(); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}
	return client
}

func sampleRecord(sessionID, employeeID string) *models.ResolutionRecord {
	return &models.ResolutionRecord{
		SessionID:        sessionID,
		EmployeeID:       employeeID,
		Department:       "engineering",
		Role:             "employee",
		QueryText:        "How many vacation days do I get?",
		QueryIntent:      "asking about PTO allowance",
		Category:         "leave_policy",
		ResponseText:     "You get 20 days of PTO per year.",
		Confidence:       0.87,
		Escalated:        false,
		EscalationReason: "none",
		Sources:          []string{"leave_policy.md", "handbook.md"},
		ResponseTimeMS:   1200,
		CreatedAt:        time.Now(),
	}
}

func TestInsertAndListResolutions(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.InsertResolutionRecord(ctx, sampleRecord("s-1", "emp-1")); err != nil {
		t.Fatalf("InsertResolutionRecord() error = %v", err)
	}

	records, err := client.ListResolutionsByEmployee(ctx, "emp-1", 10)
	if err != nil {
		t.Fatalf("ListResolutionsByEmployee() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.SessionID != "s-1" || rec.Category != "leave_policy" || rec.Confidence != 0.87 {
		t.Errorf("record round trip mismatch: %+v", rec)
	}
	if rec.EscalationReason != "none" || rec.Escalated {
		t.Errorf("escalation fields mismatch: %+v", rec)
	}
}

func TestInsertResolutionDuplicateSessionRejected(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.InsertResolutionRecord(ctx, sampleRecord("s-1", "emp-1")); err != nil {
		t.Fatalf("first insert error = %v", err)
	}
	if err := client.InsertResolutionRecord(ctx, sampleRecord("s-1", "emp-2")); err == nil {
		t.Error("duplicate session id should be rejected")
	}

	records, err := client.ListResolutionsByEmployee(ctx, "emp-1", 10)
	if err != nil {
		t.Fatalf("ListResolutionsByEmployee() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records after duplicate insert, want 1", len(records))
	}
}

func TestOverviewAggregates(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	answered := sampleRecord("s-1", "emp-1")
	if err := client.InsertResolutionRecord(ctx, answered); err != nil {
		t.Fatalf("insert error = %v", err)
	}

	escalated := sampleRecord("s-2", "emp-2")
	escalated.Department = "sales"
	escalated.Category = "payroll"
	escalated.Confidence = 0.3
	escalated.Escalated = true
	escalated.EscalationReason = "low_confidence"
	if err := client.InsertResolutionRecord(ctx, escalated); err != nil {
		t.Fatalf("insert error = %v", err)
	}

	overview, err := client.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}

	if overview.TotalQueries != 2 {
		t.Errorf("TotalQueries = %d, want 2", overview.TotalQueries)
	}
	if overview.EscalationRate != 0.5 {
		t.Errorf("EscalationRate = %v, want 0.5", overview.EscalationRate)
	}
	wantCategories := map[string]int{"leave_policy": 1, "payroll": 1}
	if diff := cmp.Diff(wantCategories, overview.CategoryDistribution); diff != "" {
		t.Errorf("CategoryDistribution mismatch (-want +got):\n%s", diff)
	}
	wantDepartments := map[string]int{"engineering": 1, "sales": 1}
	if diff := cmp.Diff(wantDepartments, overview.DepartmentDistribution); diff != "" {
		t.Errorf("DepartmentDistribution mismatch (-want +got):\n%s", diff)
	}
}

func TestEscalationLifecycle(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.InsertEscalation(ctx, &models.EscalationLog{
		SessionID:      "s-1",
		EmployeeID:     "emp-1",
		Department:     "engineering",
		EscalationType: "sensitive",
		Priority:       "high",
		CreatedAt:      time.Now(),
	}); err != nil {
		t.Fatalf("InsertEscalation() error = %v", err)
	}

	pending, err := client.PendingEscalations(ctx)
	if err != nil {
		t.Fatalf("PendingEscalations() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending escalations, want 1", len(pending))
	}
	if pending[0].Status != "pending" || pending[0].Priority != "high" {
		t.Errorf("escalation fields mismatch: %+v", pending[0])
	}

	if err := client.ResolveEscalation(ctx, pending[0].ID, "spoke with employee"); err != nil {
		t.Fatalf("ResolveEscalation() error = %v", err)
	}

	pending, err = client.PendingEscalations(ctx)
	if err != nil {
		t.Fatalf("PendingEscalations() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d pending escalations after resolve, want 0", len(pending))
	}

	if err := client.ResolveEscalation(ctx, 9999, "nothing here"); err == nil {
		t.Error("resolving a missing escalation should error")
	}
}

func TestEmployeeDirectory(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.UpsertEmployee(ctx, &models.Employee{
		EmployeeID: "emp-1",
		Department: "engineering",
		Role:       "employee",
		CreatedAt:  time.Now(),
	}); err != nil {
		t.Fatalf("UpsertEmployee() error = %v", err)
	}

	emp, err := client.GetEmployee(ctx, "emp-1")
	if err != nil {
		t.Fatalf("GetEmployee() error = %v", err)
	}
	if emp.Department != "engineering" || emp.Role != "employee" || !emp.IsActive {
		t.Errorf("employee round trip mismatch: %+v", emp)
	}

	// A later sighting updates department and role in place.
	if err := client.UpsertEmployee(ctx, &models.Employee{
		EmployeeID: "emp-1",
		Department: "sales",
		Role:       "manager",
		CreatedAt:  time.Now(),
	}); err != nil {
		t.Fatalf("UpsertEmployee() second call error = %v", err)
	}

	emp, err = client.GetEmployee(ctx, "emp-1")
	if err != nil {
		t.Fatalf("GetEmployee() error = %v", err)
	}
	if emp.Department != "sales" || emp.Role != "manager" {
		t.Errorf("upsert did not update in place: %+v", emp)
	}

	overview, err := client.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if overview.ActiveEmployees != 1 {
		t.Errorf("ActiveEmployees = %d, want 1 after repeated upserts", overview.ActiveEmployees)
	}

	if _, err := client.GetEmployee(ctx, "missing"); err == nil {
		t.Error("GetEmployee for an unknown id should error")
	}
}

func TestDocumentStats(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	doc := &models.PolicyDocument{
		ID:           "doc-1",
		Filename:     "leave_policy.md",
		Title:        "Leave Policy",
		DocumentType: "policy",
		Category:     "leave_policy",
		ChunkCount:   2,
		ContentHash:  "abc123",
	}
	if err := client.UpsertDocument(ctx, doc); err != nil {
		t.Fatalf("UpsertDocument() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		err := client.InsertChunk(ctx, &models.DocumentChunk{
			ID:         "doc-1-" + string(rune('a'+i)),
			DocID:      "doc-1",
			ChunkIndex: i,
			Text:       "chunk text",
		})
		if err != nil {
			t.Fatalf("InsertChunk() error = %v", err)
		}
	}

	documents, chunks, err := client.DocumentStats(ctx)
	if err != nil {
		t.Fatalf("DocumentStats() error = %v", err)
	}
	if documents != 1 || chunks != 2 {
		t.Errorf("DocumentStats() = (%d, %d), want (1, 2)", documents, chunks)
	}

	// Re-ingesting the same filename updates in place.
	doc.Title = "Leave Policy v2"
	if err := client.UpsertDocument(ctx, doc); err != nil {
		t.Fatalf("UpsertDocument() second call error = %v", err)
	}
	documents, _, err = client.DocumentStats(ctx)
	if err != nil {
		t.Fatalf("DocumentStats() error = %v", err)
	}
	if documents != 1 {
		t.Errorf("documents = %d after upsert, want 1", documents)
	}
}
