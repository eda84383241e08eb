package models

import "time"

// ResolutionRecord is the durable, append-only audit entry for one
// processed query. Never mutated after creation; a later escalation
// resolution is a separate escalation-log row referencing the session.
type ResolutionRecord struct {
	SessionID        string
	EmployeeID       string
	Department       string
	Role             string
	QueryText        string
	QueryIntent      string
	Category         string
	ResponseText     string
	Confidence       float64
	Escalated        bool
	EscalationReason string
	FailureNote      string
	Sources          []string
	ResponseTimeMS   int
	CreatedAt        time.Time
}

// EscalationLog tracks a resolution routed to the HR team.
type EscalationLog struct {
	ID              int
	SessionID       string
	EmployeeID      string
	Department      string
	EscalationType  string
	EscalationNote  string
	AssignedTo      string
	Status          string
	Priority        string
	ResolutionNotes string
	CreatedAt       time.Time
	ResolvedAt      *time.Time
}

// PolicyDocument tracks an ingested HR document.
type PolicyDocument struct {
	ID           string
	Filename     string
	Title        string
	DocumentType string
	Category     string
	ChunkCount   int
	ContentHash  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type DocumentChunk struct {
	ID         string
	DocID      string
	ChunkIndex int
	Text       string
	CreatedAt  time.Time
}

type Feedback struct {
	ID           int
	SessionID    string
	Satisfied    bool
	FeedbackText string
	CreatedAt    time.Time
}

type Employee struct {
	ID         int
	EmployeeID string
	Name       string
	Email      string
	Department string
	Role       string
	IsActive   bool
	CreatedAt  time.Time
}

type EvaluationResult struct {
	ID                    int
	SessionID             string
	RelevanceScore        float64
	AccuracyScore         float64
	CompletenessScore     float64
	CitationScore         float64
	OverallClassification string
	Reasoning             string
	CreatedAt             time.Time
}

// Overview is the aggregated analytics snapshot for the HR dashboard.
type Overview struct {
	TotalQueries         int
	QueriesToday         int
	AvgConfidence        float64
	EscalationRate       float64
	AvgResponseTimeMS    float64
	PendingEscalations   int
	ActiveEmployees      int
	CategoryDistribution map[string]int
	DepartmentDistribution map[string]int
}

// DailyTrend is one day of query volume for the trends endpoint.
type DailyTrend struct {
	Date        string
	Queries     int
	Escalations int
}
