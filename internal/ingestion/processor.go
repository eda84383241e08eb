package ingestion

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/hr-assistant/backend/internal/llm"
	"github.com/hr-assistant/backend/internal/metrics"
	"github.com/hr-assistant/backend/internal/storage/models"
	"github.com/hr-assistant/backend/internal/storage/sqlite"
	"github.com/hr-assistant/backend/internal/vector/milvus"
	"github.com/hr-assistant/backend/pkg/logger"
	"github.com/hr-assistant/backend/pkg/utils"
)

// Processor turns an uploaded policy document into indexed, searchable
// fragments. Ingestion is the only path that changes future retrieval
// results.
type Processor struct {
	db        *sqlite.Client
	vectorDB  *milvus.Client
	llmClient *llm.Client
	chunker   *Chunker
}

func NewProcessor(db *sqlite.Client, vectorDB *milvus.Client, llmClient *llm.Client, chunkSize, overlapSentences int) *Processor {
	return &Processor{
		db:        db,
		vectorDB:  vectorDB,
		llmClient: llmClient,
		chunker:   NewChunker(chunkSize, overlapSentences),
	}
}

var allowedExtensions = map[string]struct{}{
	".html": {},
	".htm":  {},
	".md":   {},
	".txt":  {},
}

// ProcessDocument extracts text, chunks it on sentence boundaries,
// embeds the chunks and writes them to both stores. Re-ingesting the
// same filename replaces the document; the content hash makes unchanged
// uploads a no-op.
func (p *Processor) ProcessDocument(ctx context.Context, filename, content, documentType, category string) (int, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return 0, fmt.Errorf("unsupported file type %q", ext)
	}

	logger.Info("Processing document",
		zap.String("filename", filename),
		zap.String("category", category),
	)

	text, title := extractText(ext, content)
	if text == "" {
		return 0, fmt.Errorf("no text extracted from %s", filename)
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filename), ext)
	}

	chunks := p.chunker.Chunk(text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document %s produced no chunks", filename)
	}

	embeddings, err := p.llmClient.GenerateBatchEmbeddings(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(embeddings), len(chunks))
	}

	docID := utils.HashString(filename)
	now := time.Now()

	doc := &models.PolicyDocument{
		ID:           docID,
		Filename:     filename,
		Title:        title,
		DocumentType: documentType,
		Category:     category,
		ChunkCount:   len(chunks),
		ContentHash:  utils.HashString(text),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.db.UpsertDocument(ctx, doc); err != nil {
		return 0, fmt.Errorf("failed to record document: %w", err)
	}

	vectorChunks := make([]milvus.PolicyChunk, 0, len(chunks))
	for i, chunkText := range chunks {
		chunkID := fmt.Sprintf("%s_chunk_%d", docID, i)

		vectorChunks = append(vectorChunks, milvus.PolicyChunk{
			ID:        chunkID,
			Embedding: embeddings[i],
			Text:      chunkText,
			Source:    filename,
			Category:  category,
			DocType:   documentType,
			Timestamp: now,
		})

		dbChunk := &models.DocumentChunk{
			ID:         chunkID,
			DocID:      docID,
			ChunkIndex: i,
			Text:       chunkText,
			CreatedAt:  now,
		}
		if err := p.db.InsertChunk(ctx, dbChunk); err != nil {
			logger.Warn("Failed to record chunk", zap.String("chunk_id", chunkID), zap.Error(err))
		}
	}

	if err := p.vectorDB.Insert(ctx, vectorChunks); err != nil {
		return 0, fmt.Errorf("failed to index chunks: %w", err)
	}

	metrics.DocumentsProcessed.Inc()

	logger.Info("Document processed",
		zap.String("doc_id", docID),
		zap.Int("chunks", len(vectorChunks)),
	)

	return len(vectorChunks), nil
}

func (p *Processor) Stats(ctx context.Context) (documents int, chunks int, err error) {
	return p.db.DocumentStats(ctx)
}

var (
	markdownHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	markdownMarkup  = regexp.MustCompile("[*_`>]|\\[|\\]\\([^)]*\\)")
	whitespaceRuns  = regexp.MustCompile(`[ \t]+`)
)

func extractText(ext, content string) (text, title string) {
	switch ext {
	case ".html", ".htm":
		return extractHTML(content)
	case ".md":
		return stripMarkdown(content)
	default:
		return normalizeWhitespace(content), ""
	}
}

func extractHTML(content string) (string, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", ""
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	return normalizeWhitespace(doc.Find("body").Text()), title
}

func stripMarkdown(content string) (string, string) {
	title := ""
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			break
		}
	}

	text := markdownHeading.ReplaceAllString(content, "")
	text = markdownMarkup.ReplaceAllString(text, "")
	return normalizeWhitespace(text), title
}

func normalizeWhitespace(text string) string {
	text = whitespaceRuns.ReplaceAllString(text, " ")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
