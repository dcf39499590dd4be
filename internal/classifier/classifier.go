// Package classifier asks a Gemini model to suggest a debt type for
// imported rows that arrived without one.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// Generator returns the model's text answer to prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini client. Credentials come from the
// environment (GOOGLE_API_KEY or Vertex AI settings).
func NewGeminiGenerator(ctx context.Context, model string) (*GeminiGenerator, error) {
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiGenerator: create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate sends prompt as a single user turn.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Generate: empty response from model")
	}
	return text, nil
}

// Classifier maps debt names to debt types.
type Classifier struct {
	gen Generator
	log zerolog.Logger
}

// New creates a Classifier backed by gen.
func New(gen Generator, log zerolog.Logger) *Classifier {
	return &Classifier{gen: gen, log: log}
}

var debtTypes = []domain.DebtType{
	domain.DebtTypeCreditCard,
	domain.DebtTypeLoan,
	domain.DebtTypeFinancing,
	domain.DebtTypeBill,
	domain.DebtTypeOther,
}

// SuggestDebtTypes returns one debt type per name, in order. Answers
// outside the known types become Outros.
func (c *Classifier) SuggestDebtTypes(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	raw, err := c.gen.Generate(ctx, buildPrompt(names))
	if err != nil {
		return nil, fmt.Errorf("SuggestDebtTypes: %w", err)
	}

	var answers []string
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &answers); err != nil {
		return nil, fmt.Errorf("SuggestDebtTypes: unmarshal JSON: %w", err)
	}
	if len(answers) != len(names) {
		return nil, fmt.Errorf("SuggestDebtTypes: got %d answers for %d names", len(answers), len(names))
	}

	out := make([]string, len(answers))
	for i, a := range answers {
		out[i] = string(domain.ParseDebtType(a))
	}
	c.log.Debug().Int("names", len(names)).Msg("Debt types suggested")
	return out, nil
}

func buildPrompt(names []string) string {
	var b strings.Builder
	b.WriteString("You classify personal debts from a Brazilian finance tracker.\n\n")
	b.WriteString("Allowed types:\n")
	for _, t := range debtTypes {
		b.WriteString("  - " + string(t) + "\n")
	}
	b.WriteString("\nDebts:\n")
	for i, n := range names {
		fmt.Fprintf(&b, "%d. %s\n", i+1, n)
	}
	b.WriteString("\nRules:\n")
	b.WriteString("1. Answer with one allowed type per debt, in the same order.\n")
	b.WriteString("2. Use \"Outros\" when unsure.\n")
	b.WriteString("Return ONLY a raw JSON array of strings.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	return b.String()
}

// cleanModelJSON strips Markdown fences and any text around the JSON array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
