package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hr-assistant/backend/internal/evaluation"
	"github.com/hr-assistant/backend/internal/llm"
	"github.com/hr-assistant/backend/internal/storage/sqlite"
	"github.com/hr-assistant/backend/pkg/config"
	appLogger "github.com/hr-assistant/backend/pkg/logger"
)

// Offline evaluation runner: scores a ground-truth dataset of answers
// and stores the per-answer results alongside the resolution records.
func main() {
	datasetPath := flag.String("dataset", "", "path to a JSON evaluation dataset")
	flag.Parse()

	if *datasetPath == "" {
		fmt.Println("usage: evaluate -dataset <path>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	dataset, err := evaluation.LoadDataset(*datasetPath)
	if err != nil {
		appLogger.Fatal("Failed to load dataset", zap.Error(err))
	}

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)

	evaluator := evaluation.NewEvaluator(sqliteClient, llmClient)

	report, err := evaluator.RunDataset(context.Background(), dataset)
	if err != nil {
		appLogger.Fatal("Evaluation failed", zap.Error(err))
	}

	fmt.Printf("Evaluated %d answers\n", report.TotalAnswers)
	fmt.Printf("  fully relevant: %d\n", report.FullyRelevantCount)
	fmt.Printf("  moderate:       %d\n", report.ModerateCount)
	fmt.Printf("  irrelevant:     %d\n", report.IrrelevantCount)
	fmt.Printf("  avg relevance:    %.2f\n", report.AvgRelevanceScore)
	fmt.Printf("  avg accuracy:     %.2f\n", report.AvgAccuracyScore)
	fmt.Printf("  avg completeness: %.2f\n", report.AvgCompletenessScore)
	fmt.Printf("  avg citations:    %.2f\n", report.AvgCitationScore)
}
