package authz

import (
	"github.com/rs/zerolog/log"
)

// DependencyResolver expands a set of permission codes along the
// catalog's "implies" edges until no new codes appear. Expansion is
// idempotent and cycle-safe: a visited set guarantees termination even if
// the catalog contains a cycle, which is logged as a data-quality
// warning rather than treated as fatal.
type DependencyResolver struct {
	store *Store
}

// NewDependencyResolver creates a resolver over the given store.
func NewDependencyResolver(store *Store) *DependencyResolver {
	return &DependencyResolver{store: store}
}

// Expand returns the closure of the input set over implication edges.
// The input map is not modified.
func (r *DependencyResolver) Expand(codes map[string]struct{}) (map[string]struct{}, error) {
	result := make(map[string]struct{}, len(codes))
	frontier := make([]string, 0, len(codes))

	for code := range codes {
		result[code] = struct{}{}
		frontier = append(frontier, code)
	}

	for len(frontier) > 0 {
		edges, err := r.store.Implications(frontier)
		if err != nil {
			return nil, err
		}

		var next []string

		revisited := false

		for _, edge := range edges {
			if _, seen := result[edge.ImpliesCode]; seen {
				revisited = true
				continue
			}

			result[edge.ImpliesCode] = struct{}{}
			next = append(next, edge.ImpliesCode)
		}

		if revisited {
			log.Warn().Msg("permission implication graph contains a cycle or duplicate edge")
		}

		frontier = next
	}

	return result, nil
}
