package llm

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hr-assistant/backend/internal/metrics"
)

func TestRecordTokenUsage(t *testing.T) {
	prompt := metrics.LLMTokensUsed.WithLabelValues("test-model", "prompt")
	completion := metrics.LLMTokensUsed.WithLabelValues("test-model", "completion")
	promptBefore := testutil.ToFloat64(prompt)
	completionBefore := testutil.ToFloat64(completion)

	recordTokenUsage("test-model", Usage{PromptTokens: 120, CompletionTokens: 45})

	if got := testutil.ToFloat64(prompt) - promptBefore; got != 120 {
		t.Errorf("prompt tokens counted = %v, want 120", got)
	}
	if got := testutil.ToFloat64(completion) - completionBefore; got != 45 {
		t.Errorf("completion tokens counted = %v, want 45", got)
	}

	// Embedding usage reports prompt tokens only; no empty completion
	// series appears.
	recordTokenUsage("test-embedding", Usage{PromptTokens: 30})
	if got := testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("test-embedding", "prompt")); got != 30 {
		t.Errorf("embedding prompt tokens = %v, want 30", got)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain json", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fence with prose before", "Here you go:\n```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  {\"a\": 1}  \n", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFence(tt.input); got != tt.want {
				t.Errorf("stripCodeFence(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseAnswerEnvelope(t *testing.T) {
	t.Run("full envelope", func(t *testing.T) {
		got := parseAnswerEnvelope(`{"answer": "You get 20 days of PTO.", "quality": 0.85}`)
		if got.Text != "You get 20 days of PTO." {
			t.Errorf("Text = %q", got.Text)
		}
		if !got.HasQuality || got.Quality != 0.85 {
			t.Errorf("Quality = %v HasQuality = %v, want 0.85 true", got.Quality, got.HasQuality)
		}
	})

	t.Run("envelope without quality", func(t *testing.T) {
		got := parseAnswerEnvelope(`{"answer": "See the handbook."}`)
		if got.Text != "See the handbook." {
			t.Errorf("Text = %q", got.Text)
		}
		if got.HasQuality {
			t.Error("HasQuality should be false when quality is absent")
		}
	})

	t.Run("fenced envelope", func(t *testing.T) {
		got := parseAnswerEnvelope("```json\n{\"answer\": \"Yes.\", \"quality\": 0.9}\n```")
		if got.Text != "Yes." || !got.HasQuality {
			t.Errorf("got %+v, want parsed fenced envelope", got)
		}
	})

	t.Run("plain text fallback", func(t *testing.T) {
		got := parseAnswerEnvelope("  The policy allows remote work twice a week.  ")
		if got.Text != "The policy allows remote work twice a week." {
			t.Errorf("Text = %q", got.Text)
		}
		if got.HasQuality {
			t.Error("plain text has no quality signal")
		}
	})

	t.Run("malformed json fallback", func(t *testing.T) {
		got := parseAnswerEnvelope(`{"answer": truncated`)
		if got.Text == "" {
			t.Error("malformed envelope should fall back to raw text")
		}
		if got.HasQuality {
			t.Error("malformed envelope has no quality signal")
		}
	})
}
