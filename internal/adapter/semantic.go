package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/cinequery/cinequery/internal/domain"
)

// Embedder turns query text into a vector. Implemented by llm.Client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// PointQuerier runs a ranked point query. Satisfied by *qdrant.Client.
type PointQuerier interface {
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
}

// minSimilarity drops matches too weak to ground an answer on.
const minSimilarity = 0.3

// SemanticAdapter answers descriptive/content queries (plot, themes,
// "similar to") with a top-k vector search over the movie summaries
// collection.
type SemanticAdapter struct {
	points     PointQuerier
	embedder   Embedder
	collection string
	topK       uint64
	logger     *zap.Logger
}

// NewSemanticAdapter creates the semantic-retrieval adapter.
func NewSemanticAdapter(points PointQuerier, embedder Embedder, collection string, topK int, logger *zap.Logger) *SemanticAdapter {
	if topK <= 0 {
		topK = 5
	}
	return &SemanticAdapter{
		points:     points,
		embedder:   embedder,
		collection: collection,
		topK:       uint64(topK),
		logger:     logger,
	}
}

// Backend returns the adapter's backend tag.
func (a *SemanticAdapter) Backend() domain.Backend {
	return domain.BackendSemantic
}

// Invoke embeds the query text and retrieves the top-k closest summaries.
// Items come back ordered by descending similarity score. Any failure is
// returned as a StatusError response, never an error.
func (a *SemanticAdapter) Invoke(ctx context.Context, req domain.AdapterRequest) domain.AdapterResponse {
	start := time.Now()
	ctx, cancel := withTimeout(ctx, req)
	defer cancel()

	vector, err := a.embedder.Embed(ctx, req.BackendQuery)
	if err != nil {
		return failure(domain.BackendSemantic, start, fmt.Errorf("query embedding: %w", err))
	}

	limit := a.topK
	points, err := a.points.Query(ctx, &qdrant.QueryPoints{
		CollectionName: a.collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return failure(domain.BackendSemantic, start, fmt.Errorf("vector search: %w", err))
	}

	items := make([]domain.ResultItem, 0, len(points))
	for _, p := range points {
		if p.GetScore() < minSimilarity {
			continue
		}
		items = append(items, pointToItem(p))
	}

	a.logger.Debug("semantic query executed",
		zap.Int("points", len(points)),
		zap.Int("kept", len(items)),
	)
	return success(domain.BackendSemantic, start, items)
}

// pointToItem maps a scored point's payload to a semantic result item.
// Payload keys follow the summaries ingestion: title, year, genres,
// plot_summary, actors.
func pointToItem(p *qdrant.ScoredPoint) domain.ResultItem {
	payload := p.GetPayload()
	item := domain.ResultItem{
		Source:          domain.BackendSemantic,
		SimilarityScore: float64(p.GetScore()),
	}
	if v, ok := payload["title"]; ok {
		item.Title = v.GetStringValue()
	}
	if v, ok := payload["plot_summary"]; ok {
		item.Excerpt = v.GetStringValue()
	}
	if v, ok := payload["genres"]; ok {
		item.Genres = v.GetStringValue()
	}
	if v, ok := payload["actors"]; ok {
		item.Actors = v.GetStringValue()
	}
	if v, ok := payload["year"]; ok {
		switch {
		case v.GetIntegerValue() != 0:
			item.ReleaseYear = int(v.GetIntegerValue())
		case v.GetStringValue() != "":
			fmt.Sscanf(v.GetStringValue(), "%d", &item.ReleaseYear)
		}
	}
	return item
}
