// Package retrieval defines the contract for context retrieval collaborators.
//
// Retrieval grounds generated responses in external content. It is treated as
// a best-effort dependency: the orchestrator bounds every call with a
// deadline and degrades to an empty context on any failure.
package retrieval

import "context"

// DefaultTopK is the number of ranked snippets requested per lookup.
const DefaultTopK = 3

type Retriever interface {
	// Retrieve returns supporting context for a query within a content scope.
	// Implementations must honor ctx cancellation; the caller enforces the
	// deadline and maps errors to an empty context.
	Retrieve(ctx context.Context, query, scopeID string, topK int) (string, error)
}
