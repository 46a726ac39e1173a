package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cinequery/cinequery/internal/adapter"
	"github.com/cinequery/cinequery/internal/domain"
)

// Orchestrator routes each query to one or both backends, fans out the
// invocations concurrently, and merges the partial results. Failures below
// this layer are always data (status flags), never errors; the only error
// Handle returns is ErrInvalidQuery on the original query.
type Orchestrator struct {
	classifier *Classifier
	structured adapter.Adapter
	semantic   adapter.Adapter
	timeout    time.Duration
	dedup      bool
	logger     *zap.Logger
}

// NewOrchestrator creates the router/orchestrator. A nil adapter is treated
// as a permanently unavailable backend: invocations against it degrade
// instead of failing the query.
func NewOrchestrator(
	classifier *Classifier,
	structured adapter.Adapter,
	semantic adapter.Adapter,
	timeout time.Duration,
	dedup bool,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		structured: structured,
		semantic:   semantic,
		timeout:    timeout,
		dedup:      dedup,
		logger:     logger,
	}
}

// invocation pairs a backend tag with its adapter so a missing adapter can
// still be reported under the right backend.
type invocation struct {
	backend domain.Backend
	adapter adapter.Adapter
}

// Handle classifies the query, invokes the indicated adapters concurrently,
// and merges their responses. No retry happens here; retrying a whole Handle
// call is the caller's policy.
func (o *Orchestrator) Handle(ctx context.Context, query domain.Query, history *domain.ConversationState) (domain.MergedResult, domain.ClassificationResult, error) {
	classification, err := o.classifier.Classify(ctx, query, history)
	if err != nil {
		return domain.MergedResult{}, classification, err
	}

	targets := o.targets(classification.Route)
	responses, incomplete := o.fanOut(ctx, query, targets)
	merged := o.merge(len(targets), responses, incomplete)

	o.logger.Info("query handled",
		zap.String("route", string(classification.Route)),
		zap.Float64("confidence", classification.Confidence),
		zap.Int("items", len(merged.Items)),
		zap.Bool("degraded", merged.Degraded),
	)
	return merged, classification, nil
}

func (o *Orchestrator) targets(route domain.Route) []invocation {
	switch route {
	case domain.RouteStructured:
		return []invocation{{domain.BackendStructured, o.structured}}
	case domain.RouteSemantic:
		return []invocation{{domain.BackendSemantic, o.semantic}}
	default:
		return []invocation{
			{domain.BackendStructured, o.structured},
			{domain.BackendSemantic, o.semantic},
		}
	}
}

// fanOut invokes every target concurrently with the per-adapter timeout.
// A slow or erroring adapter never stalls the other; if the overall query
// deadline expires first, fanOut returns whatever responses are already in
// with incomplete=true.
func (o *Orchestrator) fanOut(ctx context.Context, query domain.Query, targets []invocation) ([]domain.AdapterResponse, bool) {
	ch := make(chan domain.AdapterResponse, len(targets))
	for _, t := range targets {
		go func(t invocation) {
			if t.adapter == nil {
				ch <- domain.AdapterResponse{
					Backend: t.backend,
					Status:  domain.StatusError,
					Detail:  "backend unavailable",
				}
				return
			}
			ch <- t.adapter.Invoke(ctx, domain.AdapterRequest{
				BackendQuery: query.Text,
				Query:        query,
				Timeout:      o.timeout,
			})
		}(t)
	}

	responses := make([]domain.AdapterResponse, 0, len(targets))
	for range targets {
		select {
		case r := <-ch:
			responses = append(responses, r)
		case <-ctx.Done():
			return responses, true
		}
	}
	return responses, false
}

// merge applies the composition policy: single-source results pass through
// verbatim; dual-source results concatenate structured-then-semantic,
// preserving each source's internal order. A partial failure keeps the OK
// set and marks the result degraded; both failing is a total-failure
// outcome, never silently treated as success.
func (o *Orchestrator) merge(invoked int, responses []domain.AdapterResponse, incomplete bool) domain.MergedResult {
	byBackend := make(map[domain.Backend]domain.AdapterResponse, len(responses))
	anyError := incomplete
	for _, r := range responses {
		byBackend[r.Backend] = r
		if r.Status == domain.StatusError {
			anyError = true
			o.logger.Warn("adapter failed",
				zap.String("backend", string(r.Backend)),
				zap.String("detail", r.Detail),
			)
		}
	}

	// Deterministic source order: structured first, then semantic.
	var okResponses []domain.AdapterResponse
	sources := []domain.Backend{}
	for _, b := range []domain.Backend{domain.BackendStructured, domain.BackendSemantic} {
		if r, ok := byBackend[b]; ok && r.Status == domain.StatusOK {
			okResponses = append(okResponses, r)
			sources = append(sources, b)
		}
	}

	degraded := anyError || (invoked == 2 && len(okResponses) == 1)

	switch len(okResponses) {
	case 0:
		return domain.MergedResult{Items: []domain.ResultItem{}, SourcesUsed: sources, Degraded: degraded}
	case 1:
		return domain.MergedResult{Items: okResponses[0].Items, SourcesUsed: sources, Degraded: degraded}
	default:
		items := okResponses[0].Items
		if o.dedup {
			items = combineByTitle(okResponses[0].Items, okResponses[1].Items)
		} else {
			items = append(append([]domain.ResultItem{}, items...), okResponses[1].Items...)
		}
		return domain.MergedResult{Items: items, SourcesUsed: sources, Degraded: degraded}
	}
}

// combineByTitle concatenates both item sets; when the normalized title of a
// semantic item matches a structured item, the two are combined into one
// composite item carrying the structured record's quantitative fields and
// the semantic record's descriptive fields.
func combineByTitle(structured, semantic []domain.ResultItem) []domain.ResultItem {
	out := make([]domain.ResultItem, len(structured))
	copy(out, structured)

	index := make(map[string]int, len(out))
	for i, item := range out {
		if key := normalizeTitle(item.Title); key != "" {
			index[key] = i
		}
	}

	for _, item := range semantic {
		key := normalizeTitle(item.Title)
		if i, ok := index[key]; ok && key != "" {
			out[i] = composite(out[i], item)
			continue
		}
		out = append(out, item)
	}
	return out
}

func composite(structured, semantic domain.ResultItem) domain.ResultItem {
	merged := structured
	merged.Source = domain.BackendComposite
	merged.Excerpt = semantic.Excerpt
	merged.SimilarityScore = semantic.SimilarityScore
	merged.Genres = semantic.Genres
	if merged.Actors == "" {
		merged.Actors = semantic.Actors
	}
	if merged.ReleaseYear == 0 {
		merged.ReleaseYear = semantic.ReleaseYear
	}
	return merged
}

// normalizeTitle lowers the title and strips everything but letters, digits
// and single spaces so "The Matrix " and "the matrix" cross-reference.
func normalizeTitle(title string) string {
	var sb strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			sb.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(sb.String())
}
