package ingestion

import (
	"strings"

	prose "github.com/jdkato/prose/v2"
)

// Chunker splits document text into fragments that break on sentence
// boundaries, with a configurable sentence overlap between adjacent
// chunks so policy statements spanning a boundary stay retrievable.
type Chunker struct {
	chunkSize        int
	overlapSentences int
}

func NewChunker(chunkSize, overlapSentences int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	return &Chunker{
		chunkSize:        chunkSize,
		overlapSentences: overlapSentences,
	}
}

func (c *Chunker) Chunk(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0

	for i := 0; i < len(sentences); i++ {
		sentence := sentences[i]

		if currentLen+len(sentence) > c.chunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))

			overlapStart := len(current) - c.overlapSentences
			if overlapStart < 0 {
				overlapStart = 0
			}
			current = append([]string(nil), current[overlapStart:]...)
			currentLen = 0
			for _, s := range current {
				currentLen += len(s) + 1
			}
		}

		current = append(current, sentence)
		currentLen += len(sentence) + 1
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// splitSentences segments text with prose, falling back to a whole-text
// single sentence when segmentation fails.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return []string{text}
	}

	var sentences []string
	for _, sent := range doc.Sentences() {
		s := strings.TrimSpace(sent.Text)
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	if len(sentences) == 0 {
		return []string{text}
	}

	return sentences
}
