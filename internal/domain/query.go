package domain

import "time"

// Route is the classifier's decision of which backend(s) a query should use.
type Route string

const (
	RouteStructured Route = "structured"
	RouteSemantic   Route = "semantic"
	RouteBoth       Route = "both"
)

// Query is a single user question. Immutable once created.
type Query struct {
	Text      string    `json:"text"`
	TurnID    int       `json:"turn_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ClassificationResult is the routing decision for one query.
type ClassificationResult struct {
	Route      Route   `json:"route"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}
