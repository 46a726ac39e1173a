// Package adapter wraps the two heterogeneous backends behind one
// request/response contract. Adapters never return an error past their
// boundary: every internal failure becomes a StatusError response with a
// detail string, so the orchestrator always has data to merge.
package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/cinequery/cinequery/internal/domain"
)

// Adapter is the uniform backend capability.
type Adapter interface {
	Backend() domain.Backend
	Invoke(ctx context.Context, req domain.AdapterRequest) domain.AdapterResponse
}

// withTimeout derives the invocation context from the request timeout.
func withTimeout(ctx context.Context, req domain.AdapterRequest) (context.Context, context.CancelFunc) {
	if req.Timeout > 0 {
		return context.WithTimeout(ctx, req.Timeout)
	}
	return context.WithCancel(ctx)
}

// failure builds an error response, collapsing deadline expiry to the
// fixed "timeout" detail.
func failure(backend domain.Backend, start time.Time, err error) domain.AdapterResponse {
	detail := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		detail = "timeout"
	}
	return domain.AdapterResponse{
		Backend: backend,
		Status:  domain.StatusError,
		Detail:  detail,
		Latency: time.Since(start),
	}
}

// success builds an OK or EMPTY response depending on the item count.
func success(backend domain.Backend, start time.Time, items []domain.ResultItem) domain.AdapterResponse {
	status := domain.StatusOK
	if len(items) == 0 {
		status = domain.StatusEmpty
	}
	return domain.AdapterResponse{
		Backend: backend,
		Status:  status,
		Items:   items,
		Latency: time.Since(start),
	}
}
