package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hr-assistant/backend/internal/cache/redis"
	"github.com/hr-assistant/backend/internal/classify"
	"github.com/hr-assistant/backend/internal/llm"
	"github.com/hr-assistant/backend/internal/metrics"
	"github.com/hr-assistant/backend/internal/vector/milvus"
	"github.com/hr-assistant/backend/pkg/logger"
	"github.com/hr-assistant/backend/pkg/utils"
)

// ErrUnavailable reports a retrieval backend failure. Distinct from an
// empty result, which is a valid business outcome (policy gap).
var ErrUnavailable = errors.New("retrieval backend unavailable")

// Fragment is one retrieved policy passage with its provenance.
type Fragment struct {
	Content   string
	Source    string
	Category  string
	Relevance float64
}

// Context is the ordered, read-only retrieval result for one query.
type Context struct {
	Fragments []Fragment
}

func (c Context) Empty() bool {
	return len(c.Fragments) == 0
}

// MaxRelevance returns the best relevance score, 0 when empty.
func (c Context) MaxRelevance() float64 {
	max := 0.0
	for _, f := range c.Fragments {
		if f.Relevance > max {
			max = f.Relevance
		}
	}
	return max
}

// Sources returns the distinct source documents in rank order.
func (c Context) Sources() []string {
	seen := make(map[string]struct{})
	var sources []string
	for _, f := range c.Fragments {
		if _, ok := seen[f.Source]; ok {
			continue
		}
		seen[f.Source] = struct{}{}
		sources = append(sources, f.Source)
	}
	return sources
}

// PromptBlock renders the top fragments as a context block for the
// responder prompt.
func (c Context) PromptBlock() string {
	if c.Empty() {
		return ""
	}

	var builder strings.Builder
	for i, f := range c.Fragments {
		if i >= 4 {
			break
		}
		if i > 0 {
			builder.WriteString("\n\n---\n\n")
		}
		builder.WriteString(fmt.Sprintf("[Source %d: %s | Relevance: %.3f]\n%s",
			i+1, f.Source, f.Relevance, f.Content))
	}
	return builder.String()
}

type embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type vectorSearcher interface {
	Search(ctx context.Context, embedding []float32, topK int, category string) ([]milvus.SearchResult, error)
}

type embeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

// Retriever resolves a query to ranked policy fragments via vector
// similarity search. Each call embeds and searches fresh; only the
// immutable text-to-embedding mapping is cached.
type Retriever struct {
	llmClient    embedder
	vectorDB     vectorSearcher
	cache        embeddingCache
	topK         int
	minRelevance float64
}

func NewRetriever(llmClient *llm.Client, vectorDB *milvus.Client, cache *redis.Client, topK int, minRelevance float64) *Retriever {
	r := &Retriever{
		llmClient:    llmClient,
		vectorDB:     vectorDB,
		topK:         topK,
		minRelevance: minRelevance,
	}
	// A nil *redis.Client must stay a nil interface.
	if cache != nil {
		r.cache = cache
	}
	return r
}

// Retrieve embeds the query and searches the policy index, filtered by
// category when one is known. An empty Context with a nil error means no
// relevant policy exists; ErrUnavailable means the backend failed.
func (r *Retriever) Retrieve(ctx context.Context, text string, category classify.Category) (Context, error) {
	embedding, err := r.embed(ctx, text)
	if err != nil {
		return Context{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	filter := ""
	if category != classify.CategoryUnknown && category != classify.CategoryGeneral {
		filter = string(category)
	}

	results, err := r.vectorDB.Search(ctx, embedding, r.topK, filter)
	if err != nil {
		return Context{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// A category filter with no hits falls back to an unfiltered pass so a
	// misclassified category cannot manufacture a policy gap.
	if len(results) == 0 && filter != "" {
		results, err = r.vectorDB.Search(ctx, embedding, r.topK, "")
		if err != nil {
			return Context{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	var fragments []Fragment
	for _, res := range results {
		relevance := float64(res.Score)
		if relevance < r.minRelevance {
			continue
		}
		fragments = append(fragments, Fragment{
			Content:   res.Text,
			Source:    res.Source,
			Category:  res.Category,
			Relevance: relevance,
		})
	}

	logger.Debug("Policy fragments retrieved",
		zap.Int("count", len(fragments)),
		zap.String("category_filter", filter),
	)

	return Context{Fragments: fragments}, nil
}

func (r *Retriever) embed(ctx context.Context, text string) ([]float32, error) {
	key := utils.HashString(text)

	if r.cache != nil {
		if embedding, ok, err := r.cache.GetEmbedding(ctx, key); err == nil && ok {
			metrics.CacheHits.WithLabelValues("embedding").Inc()
			return embedding, nil
		}
		metrics.CacheMisses.WithLabelValues("embedding").Inc()
	}

	embedding, err := r.llmClient.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.SetEmbedding(ctx, key, embedding, redis.EmbeddingTTL); err != nil {
			logger.Warn("Failed to cache embedding", zap.Error(err))
		}
	}

	return embedding, nil
}
