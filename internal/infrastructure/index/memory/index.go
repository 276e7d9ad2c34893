package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/kazaneza/openchat/internal/core/domain"
)

// Index is a process-local passage index for development and tests. It
// serves the same read contract as the Qdrant client from a seeded set.
type Index struct {
	mu       sync.RWMutex
	passages []domain.Passage
}

func New() *Index {
	return &Index{}
}

func (i *Index) Seed(passages ...domain.Passage) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.passages = append(i.passages, passages...)
}

// LoadFile seeds the index from a JSON array of passages.
func (i *Index) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read passage seed file: %w", err)
	}
	var passages []domain.Passage
	if err := json.Unmarshal(raw, &passages); err != nil {
		return fmt.Errorf("parse passage seed file %s: %w", path, err)
	}
	i.Seed(passages...)
	return nil
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.passages)
}

func (i *Index) Search(ctx context.Context, organizationID string, queryVector []float32, topK int) ([]domain.ScoredPassage, error) {
	if len(queryVector) == 0 || topK <= 0 {
		return nil, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	scored := make([]domain.ScoredPassage, 0, len(i.passages))
	for _, p := range i.passages {
		if p.OrganizationID != organizationID || len(p.Embedding) == 0 {
			continue
		}
		scored = append(scored, domain.ScoredPassage{
			Passage: p,
			Score:   cosineSimilarity(queryVector, p.Embedding),
		})
	}
	return topScored(scored, topK), nil
}

func (i *Index) KeywordSearch(ctx context.Context, organizationID string, terms []string, topK int) ([]domain.ScoredPassage, error) {
	query := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			query[term] = struct{}{}
		}
	}
	if len(query) == 0 || topK <= 0 {
		return nil, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	scored := make([]domain.ScoredPassage, 0, len(i.passages))
	for _, p := range i.passages {
		if p.OrganizationID != organizationID {
			continue
		}
		tokens := tokenSet(p.Text + " " + p.DocumentName)
		matched := 0
		for term := range query {
			if _, ok := tokens[term]; ok {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		scored = append(scored, domain.ScoredPassage{
			Passage: p,
			Score:   float64(matched) / float64(len(query)),
		})
	}
	return topScored(scored, topK), nil
}

func topScored(scored []domain.ScoredPassage, topK int) []domain.ScoredPassage {
	sort.SliceStable(scored, func(a, b int) bool { return scored[a].Score > scored[b].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

func cosineSimilarity(a []float32, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{}, 32)
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			out[b.String()] = struct{}{}
			b.Reset()
		}
	}
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return out
}
