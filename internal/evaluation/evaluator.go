package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hr-assistant/backend/internal/llm"
	"github.com/hr-assistant/backend/internal/storage/models"
	"github.com/hr-assistant/backend/internal/storage/sqlite"
	"github.com/hr-assistant/backend/pkg/logger"
)

type answerScorer interface {
	EvaluateAnswer(ctx context.Context, query, answer, groundTruth string) (*llm.EvaluationScore, error)
}

// Evaluator scores stored answers against ground-truth policy text.
// Offline tooling; never part of the query pipeline.
type Evaluator struct {
	db     *sqlite.Client
	scorer answerScorer
}

type Dataset struct {
	Items []DatasetItem
}

type DatasetItem struct {
	Query       string `json:"query"`
	Answer      string `json:"answer"`
	GroundTruth string `json:"ground_truth"`
	Category    string `json:"category"`
}

// LoadDataset reads a JSON dataset file: an array of items with query,
// answer, ground_truth and optional category.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var items []DatasetItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}

	return &Dataset{Items: items}, nil
}

type Report struct {
	TotalAnswers         int
	IrrelevantCount      int
	ModerateCount        int
	FullyRelevantCount   int
	AvgRelevanceScore    float64
	AvgAccuracyScore     float64
	AvgCompletenessScore float64
	AvgCitationScore     float64
}

func NewEvaluator(db *sqlite.Client, llmClient *llm.Client) *Evaluator {
	return &Evaluator{
		db:     db,
		scorer: llmClient,
	}
}

func (e *Evaluator) EvaluateAnswer(ctx context.Context, sessionID, query, answer, groundTruth string) (*models.EvaluationResult, error) {
	logger.Info("Evaluating answer", zap.String("session_id", sessionID))

	score, err := e.scorer.EvaluateAnswer(ctx, query, answer, groundTruth)
	if err != nil {
		return nil, fmt.Errorf("failed to get LLM evaluation: %w", err)
	}

	result := &models.EvaluationResult{
		SessionID:             sessionID,
		RelevanceScore:        score.Relevance,
		AccuracyScore:         score.Accuracy,
		CompletenessScore:     score.Completeness,
		CitationScore:         score.Citations,
		OverallClassification: score.Classification,
		Reasoning:             score.Reasoning,
		CreatedAt:             time.Now(),
	}

	if err := e.db.InsertEvaluationResult(ctx, result); err != nil {
		logger.Warn("Failed to store evaluation result", zap.Error(err))
	}

	logger.Info("Answer evaluated",
		zap.String("session_id", sessionID),
		zap.String("classification", score.Classification),
		zap.Float64("relevance", score.Relevance),
	)

	return result, nil
}

func (e *Evaluator) RunDataset(ctx context.Context, dataset *Dataset) (*Report, error) {
	logger.Info("Running dataset evaluation", zap.Int("items", len(dataset.Items)))

	report := &Report{
		TotalAnswers: len(dataset.Items),
	}

	var totalRelevance, totalAccuracy, totalCompleteness, totalCitation float64
	evaluated := 0

	for i, item := range dataset.Items {
		sessionID := fmt.Sprintf("eval_%d", i)

		result, err := e.EvaluateAnswer(ctx, sessionID, item.Query, item.Answer, item.GroundTruth)
		if err != nil {
			logger.Error("Failed to evaluate answer", zap.Int("index", i), zap.Error(err))
			continue
		}
		evaluated++

		switch result.OverallClassification {
		case "irrelevant":
			report.IrrelevantCount++
		case "moderate":
			report.ModerateCount++
		case "fully_relevant":
			report.FullyRelevantCount++
		}

		totalRelevance += result.RelevanceScore
		totalAccuracy += result.AccuracyScore
		totalCompleteness += result.CompletenessScore
		totalCitation += result.CitationScore
	}

	if evaluated > 0 {
		report.AvgRelevanceScore = totalRelevance / float64(evaluated)
		report.AvgAccuracyScore = totalAccuracy / float64(evaluated)
		report.AvgCompletenessScore = totalCompleteness / float64(evaluated)
		report.AvgCitationScore = totalCitation / float64(evaluated)
	}

	logger.Info("Dataset evaluation complete",
		zap.Int("evaluated", evaluated),
		zap.Float64("avg_relevance", report.AvgRelevanceScore),
	)

	return report, nil
}
