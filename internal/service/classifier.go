package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cinequery/cinequery/internal/domain"
)

// TextGenerator produces text from a prompt. Implemented by llm.Client.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

const classifierSystemPrompt = `You route questions about a movie catalog to the right data source.

1. STRUCTURED (rental catalog): basic info and rental statistics.
   - title, release year, rating, language, duration
   - rental counts, inventory, popularity metrics
   - e.g. "When was X released?", "most rented movies", "rental counts"

2. SEMANTIC (plot summaries): detailed movie content.
   - plot summaries, themes and story elements, actor roles
   - e.g. "What is the plot of X?", "movies about Y theme", "find movies similar to X"

3. BOTH: only when the question needs rental statistics combined with plot or content detail.

Respond with JSON only:
{"route": "STRUCTURED" | "SEMANTIC" | "BOTH", "confidence": 0.0-1.0, "reasoning": "one sentence"}`

// Classifier decides which backend(s) a query should use. It is a pure
// function of the query plus recent history; the underlying LLM call may
// fail or time out, in which case it falls back to BOTH rather than block
// the pipeline.
type Classifier struct {
	gen       TextGenerator
	threshold float64
	logger    *zap.Logger
}

// NewClassifier creates an intent classifier. Results with confidence below
// threshold are widened to BOTH.
func NewClassifier(gen TextGenerator, threshold float64, logger *zap.Logger) *Classifier {
	return &Classifier{gen: gen, threshold: threshold, logger: logger}
}

// Classify inspects the query and emits a routing decision. The only error
// it returns is ErrInvalidQuery for blank input; classification failures
// degrade to BOTH with confidence 0.
func (c *Classifier) Classify(ctx context.Context, query domain.Query, history *domain.ConversationState) (domain.ClassificationResult, error) {
	if strings.TrimSpace(query.Text) == "" {
		return domain.ClassificationResult{}, domain.ErrInvalidQuery
	}

	prompt := c.buildPrompt(query, history)
	raw, err := c.gen.Generate(ctx, classifierSystemPrompt, prompt)
	if err != nil {
		c.logger.Warn("classifier unavailable, routing to both", zap.Error(err))
		return domain.ClassificationResult{
			Route:      domain.RouteBoth,
			Confidence: 0,
			Reasoning:  "classifier-unavailable",
		}, nil
	}

	result := parseClassification(raw, query.Text)
	if result.Confidence < c.threshold && result.Route != domain.RouteBoth {
		c.logger.Debug("classification below threshold, widening to both",
			zap.String("route", string(result.Route)),
			zap.Float64("confidence", result.Confidence),
		)
		result.Route = domain.RouteBoth
	}

	return result, nil
}

func (c *Classifier) buildPrompt(query domain.Query, history *domain.ConversationState) string {
	var sb strings.Builder
	if history != nil {
		for _, turn := range history.Recent(3) {
			sb.WriteString(fmt.Sprintf("User asked: %s\n", truncate(turn.Query.Text, 200)))
			sb.WriteString(fmt.Sprintf("Assistant answered: %s\n", truncate(turn.Answer, 200)))
		}
	}
	if sb.Len() > 0 {
		return fmt.Sprintf("Previous conversation context:\n%s\nCurrent question: %s", sb.String(), query.Text)
	}
	return fmt.Sprintf("Question: %s", query.Text)
}

// parseClassification extracts the routing decision from the LLM output.
// It tries strict JSON first, then keyword matching on the output, then
// lexical cues in the query itself. It always produces a usable result.
func parseClassification(raw, queryText string) domain.ClassificationResult {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); start >= 0 && end > start {
		var parsed struct {
			Route      string  `json:"route"`
			Confidence float64 `json:"confidence"`
			Reasoning  string  `json:"reasoning"`
		}
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &parsed); err == nil {
			if route, ok := normalizeRoute(parsed.Route); ok {
				return domain.ClassificationResult{
					Route:      route,
					Confidence: clamp01(parsed.Confidence),
					Reasoning:  parsed.Reasoning,
				}
			}
		}
	}

	// JSON parse failed - look for a route keyword in the raw output
	if route, ok := normalizeRoute(cleaned); ok {
		return domain.ClassificationResult{
			Route:      route,
			Confidence: 0.5,
			Reasoning:  "keyword match on classifier output",
		}
	}

	// Last resort: lexical cues in the question itself
	return lexicalClassification(queryText)
}

func normalizeRoute(s string) (domain.Route, bool) {
	upper := strings.ToUpper(s)
	both := strings.Contains(upper, "BOTH")
	structured := strings.Contains(upper, "STRUCTURED") || strings.Contains(upper, "SQL")
	semantic := strings.Contains(upper, "SEMANTIC") || strings.Contains(upper, "RAG")

	switch {
	case both || (structured && semantic):
		return domain.RouteBoth, true
	case structured:
		return domain.RouteStructured, true
	case semantic:
		return domain.RouteSemantic, true
	}
	return "", false
}

var (
	structuredCues = []string{
		"most rented", "rental", "rented", "how many", "count",
		"top ", "rating", "released", "release year", "popular",
		"rank", "inventory", "longest", "shortest",
	}
	semanticCues = []string{
		"plot", "about movies", "movies about", "theme", "similar to",
		"describe", "story", "summary", "character", "involving",
	}
)

// lexicalClassification routes on surface cues alone. Confidence is kept
// low so the threshold check can still widen the route.
func lexicalClassification(queryText string) domain.ClassificationResult {
	lower := strings.ToLower(queryText)
	structured := containsAny(lower, structuredCues)
	semantic := containsAny(lower, semanticCues)

	switch {
	case structured && semantic:
		return domain.ClassificationResult{Route: domain.RouteBoth, Confidence: 0.6, Reasoning: "lexical cues for both backends"}
	case structured:
		return domain.ClassificationResult{Route: domain.RouteStructured, Confidence: 0.6, Reasoning: "lexical cues for rental statistics"}
	case semantic:
		return domain.ClassificationResult{Route: domain.RouteSemantic, Confidence: 0.6, Reasoning: "lexical cues for plot content"}
	default:
		return domain.ClassificationResult{Route: domain.RouteBoth, Confidence: 0.3, Reasoning: "ambiguous query, using both backends"}
	}
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
