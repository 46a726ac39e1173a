package adapter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cinequery/cinequery/internal/domain"
)

// Generator produces text from a prompt. Implemented by llm.Client.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// CatalogQuerier executes read-only SQL against the film catalog.
// Implemented by repository.FilmRepository.
type CatalogQuerier interface {
	QueryItems(ctx context.Context, query string) ([]domain.ResultItem, error)
}

// catalogSchema is the only schema surface the SQL generator may target.
const catalogSchema = `films(id INTEGER, title TEXT, release_year INTEGER, rating TEXT, language TEXT, category TEXT, actors TEXT, rental_count INTEGER)`

const sqlSystemPrompt = `You translate questions about a movie rental catalog into a single SQLite SELECT statement.
Schema: %s
Rules:
- Output only the SQL, no explanation, no markdown fences.
- SELECT statements only. Never modify data.
- Always include an ORDER BY when the question implies ranking.
- Always include a LIMIT clause.`

const maxRows = 25

// StructuredAdapter answers quantitative/tabular queries (rentals, ratings,
// cast lists) by generating a guarded SELECT and running it on the catalog.
type StructuredAdapter struct {
	catalog CatalogQuerier
	gen     Generator
	logger  *zap.Logger
}

// NewStructuredAdapter creates the structured-query adapter.
func NewStructuredAdapter(catalog CatalogQuerier, gen Generator, logger *zap.Logger) *StructuredAdapter {
	return &StructuredAdapter{catalog: catalog, gen: gen, logger: logger}
}

// Backend returns the adapter's backend tag.
func (a *StructuredAdapter) Backend() domain.Backend {
	return domain.BackendStructured
}

// Invoke generates SQL for the request, validates it, and executes it.
// Any failure is returned as a StatusError response, never an error.
func (a *StructuredAdapter) Invoke(ctx context.Context, req domain.AdapterRequest) domain.AdapterResponse {
	start := time.Now()
	ctx, cancel := withTimeout(ctx, req)
	defer cancel()

	prompt := fmt.Sprintf("Question: %s", req.BackendQuery)
	raw, err := a.gen.Generate(ctx, fmt.Sprintf(sqlSystemPrompt, catalogSchema), prompt)
	if err != nil {
		return failure(domain.BackendStructured, start, fmt.Errorf("sql generation: %w", err))
	}

	query, err := sanitizeSQL(raw)
	if err != nil {
		a.logger.Warn("rejected generated sql",
			zap.String("sql", raw),
			zap.Error(err),
		)
		return failure(domain.BackendStructured, start, err)
	}

	items, err := a.catalog.QueryItems(ctx, query)
	if err != nil {
		return failure(domain.BackendStructured, start, err)
	}

	a.logger.Debug("structured query executed",
		zap.String("sql", query),
		zap.Int("rows", len(items)),
	)
	return success(domain.BackendStructured, start, items)
}

// forbidden lists keywords that must never appear in a generated statement.
var forbidden = []string{
	"insert", "update", "delete", "drop", "alter", "create",
	"attach", "detach", "pragma", "vacuum", "replace",
}

// sanitizeSQL strips markdown fences, enforces a single SELECT statement,
// and caps the row count.
func sanitizeSQL(raw string) (string, error) {
	q := strings.TrimSpace(raw)
	q = strings.TrimPrefix(q, "```sql")
	q = strings.TrimPrefix(q, "```")
	q = strings.TrimSuffix(q, "```")
	q = strings.TrimSpace(q)
	q = strings.TrimSuffix(q, ";")

	if q == "" {
		return "", fmt.Errorf("empty sql statement")
	}
	if strings.Contains(q, ";") {
		return "", fmt.Errorf("multiple sql statements rejected")
	}

	lower := strings.ToLower(q)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return "", fmt.Errorf("only select statements are allowed")
	}
	for _, kw := range forbidden {
		if containsWord(lower, kw) {
			return "", fmt.Errorf("forbidden keyword %q in statement", kw)
		}
	}

	if !containsWord(lower, "limit") {
		q = fmt.Sprintf("%s LIMIT %d", q, maxRows)
	}
	return q, nil
}

// containsWord matches kw as a whole word, not as a substring of an
// identifier (e.g. "created_at" must not trip on "create").
func containsWord(s, kw string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], kw)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isIdentChar(s[i-1])
		afterIdx := i + len(kw)
		after := afterIdx >= len(s) || !isIdentChar(s[afterIdx])
		if before && after {
			return true
		}
		idx = i + len(kw)
	}
}

func isIdentChar(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('0' <= c && c <= '9')
}
