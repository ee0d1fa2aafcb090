package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-combiner/internal/domain"
	"github.com/dvloznov/finance-combiner/internal/logger"
	"google.golang.org/genai"
)

// DefaultModelName is the default Gemini model used for categorization.
const DefaultModelName = "gemini-2.5-flash"

// DefaultBatchSize caps the records sent in one prompt.
const DefaultBatchSize = 100

// ContentGenerator is the part of the genai client the categorizer uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiCategorizer asks a Gemini model to pick one of a fixed set of
// categories for each uncategorized record.
type GeminiCategorizer struct {
	models     ContentGenerator
	model      string
	categories []string
	allowed    map[string]bool
	batchSize  int
}

// NewGeminiCategorizer creates a genai client. Credentials come from the
// environment (GOOGLE_API_KEY or Vertex AI settings).
func NewGeminiCategorizer(ctx context.Context, model string, categories []string) (*GeminiCategorizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiCategorizer: create genai client: %w", err)
	}
	return NewGeminiCategorizerWithClient(client.Models, model, categories), nil
}

// NewGeminiCategorizerWithClient uses an existing generator.
func NewGeminiCategorizerWithClient(models ContentGenerator, model string, categories []string) *GeminiCategorizer {
	if model == "" {
		model = DefaultModelName
	}
	allowed := make(map[string]bool, len(categories))
	for _, c := range categories {
		allowed[c] = true
	}
	return &GeminiCategorizer{
		models:     models,
		model:      model,
		categories: categories,
		allowed:    allowed,
		batchSize:  DefaultBatchSize,
	}
}

type assignment struct {
	Index    int    `json:"index"`
	Category string `json:"category"`
}

// Categorize implements Categorizer. Records are sent in batches; the first
// failing batch stops the run and its error is returned along with the
// number of records categorized so far.
func (g *GeminiCategorizer) Categorize(ctx context.Context, records []domain.CanonicalRecord) (int, error) {
	log := logger.FromContext(ctx)

	var pending []int
	for i := range records {
		if records[i].Category == "" {
			pending = append(pending, i)
		}
	}

	n := 0
	for start := 0; start < len(pending); start += g.batchSize {
		end := min(start+g.batchSize, len(pending))
		batch := pending[start:end]

		got, err := g.categorizeBatch(ctx, records, batch)
		if err != nil {
			return n, err
		}
		for _, a := range got {
			if a.Index < 0 || a.Index >= len(batch) {
				continue
			}
			if !g.allowed[a.Category] {
				log.Debug().Str("category", a.Category).Msg("Dropping category outside the configured list")
				continue
			}
			rec := &records[batch[a.Index]]
			if rec.Category == "" {
				rec.Category = a.Category
				n++
			}
		}
	}
	log.Info().Int("pending", len(pending)).Int("categorized", n).Msg("Gemini categorization finished")
	return n, nil
}

func (g *GeminiCategorizer) categorizeBatch(ctx context.Context, records []domain.CanonicalRecord, batch []int) ([]assignment, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: g.prompt(records, batch)}},
		},
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("categorizeBatch: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("categorizeBatch: empty response from model")
	}

	var out []assignment
	if err := json.Unmarshal([]byte(cleanModelJSON(rawText)), &out); err != nil {
		return nil, fmt.Errorf("categorizeBatch: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}
	return out, nil
}

func (g *GeminiCategorizer) prompt(records []domain.CanonicalRecord, batch []int) string {
	var b strings.Builder
	b.WriteString("You are a categorizer for German personal bank and credit card transactions.\n\n")
	b.WriteString("Use ONLY the following categories (case-sensitive):\n")
	for _, c := range g.categories {
		b.WriteString("  - " + c + "\n")
	}
	b.WriteString("\nTransactions:\n")
	for i, idx := range batch {
		rec := records[idx]
		amount := ""
		if rec.Amount.Valid {
			amount = rec.Amount.Decimal.StringFixed(2)
		}
		fmt.Fprintf(&b, "%d. date=%s amount=%s counterparty=%q description=%q\n",
			i, rec.DocumentDate, amount, rec.Counterparty, rec.Description)
	}
	b.WriteString("\nRules:\n" +
		"- Output a JSON array of objects with fields \"index\" (number) and \"category\" (string).\n" +
		"- Leave out transactions that fit none of the categories.\n" +
		"Return ONLY valid raw JSON.\n" +
		"Do NOT wrap the response in code fences.\n" +
		"Output must begin with \"[\" and end with \"]\".\n")
	return b.String()
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only from the first '[' to the last ']'.
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
