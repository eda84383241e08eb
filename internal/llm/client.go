package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hr-assistant/backend/internal/metrics"
	"github.com/hr-assistant/backend/pkg/circuitbreaker"
	"github.com/hr-assistant/backend/pkg/logger"
	"github.com/hr-assistant/backend/pkg/retry"
)

type Client struct {
	client         *openai.Client
	model          string
	embeddingModel string
	temperature    float32
	maxTokens      int
	cb             *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

type CompletionResponse struct {
	Content string
	Usage   Usage
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// recordTokenUsage feeds the token counters. Zero counts are skipped so
// providers that omit usage data do not emit empty series.
func recordTokenUsage(model string, usage Usage) {
	if usage.PromptTokens > 0 {
		metrics.LLMTokensUsed.WithLabelValues(model, "prompt").Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		metrics.LLMTokensUsed.WithLabelValues(model, "completion").Add(float64(usage.CompletionTokens))
	}
}

func NewClient(apiKey, model, embeddingModel string, temperature float32, maxTokens int) *Client {
	client := openai.NewClient(apiKey)

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("LLM client initialized",
		zap.String("model", model),
		zap.String("embedding_model", embeddingModel),
	)

	return &Client{
		client:         client,
		model:          model,
		embeddingModel: embeddingModel,
		temperature:    temperature,
		maxTokens:      maxTokens,
		cb:             cb,
		retryConfig:    retryConfig,
	}
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: req.UserPrompt,
		},
	}

	var result *CompletionResponse

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       c.model,
					Messages:    messages,
					Temperature: temperature,
					MaxTokens:   maxTokens,
				},
			)

			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			if len(resp.Choices) == 0 {
				return fmt.Errorf("completion returned no choices")
			}

			logger.Debug("LLM completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			result = &CompletionResponse{
				Content: resp.Choices[0].Message.Content,
				Usage: Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				},
			}

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	recordTokenUsage(c.model, result.Usage)

	return result, nil
}

func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	var embedding []float32

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateEmbeddings(
				ctx,
				openai.EmbeddingRequest{
					Input: []string{text},
					Model: openai.EmbeddingModel(c.embeddingModel),
				},
			)

			if err != nil {
				return fmt.Errorf("failed to generate embedding: %w", err)
			}

			if len(resp.Data) == 0 {
				return fmt.Errorf("embedding response is empty")
			}

			embedding = make([]float32, len(resp.Data[0].Embedding))
			copy(embedding, resp.Data[0].Embedding)

			recordTokenUsage(c.embeddingModel, Usage{PromptTokens: resp.Usage.PromptTokens})

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return embedding, nil
}

func (c *Client) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var embeddings [][]float32

	batchSize := 100
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := texts[i:end]

		err := c.cb.Execute(ctx, func() error {
			return retry.Do(ctx, c.retryConfig, func() error {
				resp, err := c.client.CreateEmbeddings(
					ctx,
					openai.EmbeddingRequest{
						Input: batch,
						Model: openai.EmbeddingModel(c.embeddingModel),
					},
				)

				if err != nil {
					return fmt.Errorf("failed to generate batch embeddings: %w", err)
				}

				for _, data := range resp.Data {
					embedding := make([]float32, len(data.Embedding))
					copy(embedding, data.Embedding)
					embeddings = append(embeddings, embedding)
				}

				recordTokenUsage(c.embeddingModel, Usage{PromptTokens: resp.Usage.PromptTokens})

				return nil
			})
		})

		if err != nil {
			return nil, err
		}
	}

	logger.Debug("Batch embeddings generated", zap.Int("count", len(embeddings)))

	return embeddings, nil
}

// Classification is the raw model verdict for one query. The classify
// package maps it onto the category taxonomy.
type Classification struct {
	Category  string `json:"category"`
	Intent    string `json:"intent"`
	Sensitive bool   `json:"sensitive"`
}

const classifySystemPrompt = `You are an HR query classifier. Analyze the employee's question and return a JSON response.

Categories: leave_policy, reimbursement, insurance, onboarding, payroll, performance,
code_of_conduct, remote_work, benefits, it_policy, general_policy, unknown

Mark sensitive=true for:
- Grievances, harassment, discrimination complaints
- Legal disputes or compliance violations
- Personal salary negotiations
- Termination or disciplinary actions
- Queries requiring access to personal employee records

Return ONLY valid JSON:
{"category": "<category>", "intent": "<one-line description of what the employee wants>", "sensitive": <true/false>}`

// ClassifyQuery asks the model for a category and sensitivity verdict.
// Temperature is pinned to keep classification deterministic for
// identical input on the same model.
func (c *Client) ClassifyQuery(ctx context.Context, query string) (*Classification, error) {
	resp, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: classifySystemPrompt,
		UserPrompt:   fmt.Sprintf("Query: %s", query),
		Temperature:  0.01,
		MaxTokens:    200,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to classify query: %w", err)
	}

	var cls Classification
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &cls); err != nil {
		return nil, fmt.Errorf("failed to parse classification: %w", err)
	}

	return &cls, nil
}

type AnswerRequest struct {
	Query      string
	Role       string
	Department string
	Category   string
	Context    string
}

// GeneratedAnswer carries the answer text and the model's self-reported
// quality. HasQuality is false when the envelope could not be parsed.
type GeneratedAnswer struct {
	Text       string
	Quality    float64
	HasQuality bool
}

const answerSystemPrompt = `You are an expert HR assistant for a company. Answer the employee's question
using ONLY the provided policy documents as your source of truth.

Employee Context:
- Role: %s
- Department: %s
- Query Category: %s

Guidelines:
1. Be clear, concise, and empathetic
2. Cite specific policy sections when possible
3. Use bullet points for multi-step processes
4. If information is partial, acknowledge what you know and what might need clarification
5. Always recommend consulting HR for personal or sensitive matters
6. Tailor the response to the employee's role level

Policy Documents Context:
%s

Return ONLY valid JSON:
{"answer": "<your answer>", "quality": <0.0-1.0 self-assessment of how well the context supports the answer>}`

const answerNoContextPrompt = `You are an expert HR assistant. No specific policy documents were found for this query.
Provide a general, helpful response about common HR practices but clearly state that:
1. You could not find specific company policy for this topic
2. The employee should contact HR directly for authoritative information
3. What general best practices suggest

Employee Context: Role: %s, Department: %s

Return ONLY valid JSON:
{"answer": "<your answer>", "quality": <0.0-1.0 self-assessment>}`

func (c *Client) GenerateAnswer(ctx context.Context, req AnswerRequest) (*GeneratedAnswer, error) {
	var systemPrompt string
	if req.Context != "" {
		systemPrompt = fmt.Sprintf(answerSystemPrompt, req.Role, req.Department, req.Category, req.Context)
	} else {
		systemPrompt = fmt.Sprintf(answerNoContextPrompt, req.Role, req.Department)
	}

	resp, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   req.Query,
		Temperature:  0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	answer := parseAnswerEnvelope(resp.Content)

	logger.Info("Answer generated",
		zap.Int("response_length", len(answer.Text)),
		zap.Bool("has_quality", answer.HasQuality),
	)

	return answer, nil
}

// parseAnswerEnvelope extracts the answer/quality JSON envelope. A model
// that ignores the format still yields a usable answer; only the quality
// signal is lost.
func parseAnswerEnvelope(content string) *GeneratedAnswer {
	stripped := stripCodeFence(content)

	var envelope struct {
		Answer  string   `json:"answer"`
		Quality *float64 `json:"quality"`
	}

	if err := json.Unmarshal([]byte(stripped), &envelope); err == nil && envelope.Answer != "" {
		answer := &GeneratedAnswer{Text: envelope.Answer}
		if envelope.Quality != nil {
			answer.Quality = *envelope.Quality
			answer.HasQuality = true
		}
		return answer
	}

	return &GeneratedAnswer{Text: strings.TrimSpace(content)}
}

type EvaluationScore struct {
	Relevance      float64 `json:"relevance"`
	Accuracy       float64 `json:"accuracy"`
	Completeness   float64 `json:"completeness"`
	Citations      float64 `json:"citations"`
	Classification string  `json:"classification"`
	Reasoning      string  `json:"reasoning"`
}

const evaluateSystemPrompt = `You are an AI evaluation expert. Rate the quality of HR assistant answers.

Rate each dimension on a scale of 1-3:
1. Relevance: does it address the question?
2. Accuracy: does it match the ground truth policy?
3. Completeness: are the steps actionable?
4. Citations: are policy sources referenced?

Return JSON:
{"relevance": 3, "accuracy": 3, "completeness": 2, "citations": 3, "classification": "fully_relevant", "reasoning": "explanation"}`

func (c *Client) EvaluateAnswer(ctx context.Context, query, answer, groundTruth string) (*EvaluationScore, error) {
	userPrompt := fmt.Sprintf("Query: %s\n\nAnswer: %s\n\nGround Truth: %s\n\nEvaluate the answer.",
		query, answer, groundTruth)

	resp, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: evaluateSystemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.1,
		MaxTokens:    400,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate answer: %w", err)
	}

	var score EvaluationScore
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &score); err != nil {
		return nil, fmt.Errorf("failed to parse evaluation score: %w", err)
	}

	return &score, nil
}

// stripCodeFence unwraps model output of the form ```json ... ```.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)

	if strings.Contains(content, "```json") {
		parts := strings.SplitN(content, "```json", 2)
		content = parts[1]
		if idx := strings.Index(content, "```"); idx >= 0 {
			content = content[:idx]
		}
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if idx := strings.Index(content, "```"); idx >= 0 {
			content = content[:idx]
		}
	}

	return strings.TrimSpace(content)
}
