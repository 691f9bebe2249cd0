// Package embeddings defines the embedding capability used by the matching
// pipeline and its provider implementations. The query/document role prefix
// convention lives here and nowhere else: call sites pass a Role, never a
// prefixed string.
package embeddings

import "context"

// Role tells an asymmetric embedding model which side of the match the text
// is on. Query and document embeddings occupy related but distinguishable
// subspaces; mixing roles is a silent quality bug, not a crash, which is why
// the prefix is resolved inside the client adapters only.
type Role int

const (
	// RoleQuery marks free text a user is searching with.
	RoleQuery Role = iota
	// RoleDocument marks stored content being indexed or reranked.
	RoleDocument
)

// Prefix returns the textual marker for the role in the E5 convention.
// Documents indexed with one prefix must always be queried with the other;
// changing either invalidates every stored vector.
func (r Role) Prefix() string {
	if r == RoleQuery {
		return "query: "
	}

	return "passage: "
}

// Apply prepends the role marker to text.
func (r Role) Apply(text string) string {
	return r.Prefix() + text
}

// Client generates unit-normalized embedding vectors for text. All
// implementations must apply the Role prefix themselves and return vectors of
// one fixed dimension; vectors from different clients or models must never be
// compared by distance.
type Client interface {
	Embed(ctx context.Context, text string, role Role) ([]float32, error)
}
