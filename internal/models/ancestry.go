package models

import (
	"fmt"

	"github.com/roach88/depres/internal/ir"
)

// MostSpecific narrows candidates to those explicitly tailored for the
// closest generation of the starting models.
//
// The walk starts at the models in start, keeps the candidates explicitly
// allowed for any model of the current generation, and stops at the first
// generation that keeps at least one. Otherwise every model is replaced by
// its single parent and models without a parent drop out. A model with more
// than one parent makes the walk ambiguous and fails with
// AMBIGUOUS_MODEL_ANCESTRY.
//
// If no generation keeps a candidate, the input is returned unchanged.
// Kept candidates retain their input order.
func MostSpecific[T any](h *Hierarchy, start []string, candidates []T, descriptor func(T) *ir.Functor) ([]T, error) {
	generation := append([]string(nil), start...)
	visited := make(map[string]bool)
	for len(generation) > 0 {
		var kept []T
		for _, c := range candidates {
			f := descriptor(c)
			for _, m := range generation {
				if h.ExplicitlyAllowed(f, m) {
					kept = append(kept, c)
					break
				}
			}
		}
		if len(kept) > 0 {
			return kept, nil
		}

		var next []string
		for _, m := range generation {
			visited[m] = true
			parents := h.Parents(m)
			switch {
			case len(parents) > 1:
				return nil, &ir.ResolutionError{
					Code: ir.ErrCodeAmbiguousAncestry,
					Message: fmt.Sprintf("model %s has %d parents; multi-parent models cannot be used when "+
						"model-specific tie-breaking is needed, specify the dependency more fully in the configuration",
						m, len(parents)),
					Details: map[string]string{"model": m},
				}
			case len(parents) == 1 && !visited[parents[0]]:
				next = append(next, parents[0])
			}
		}
		generation = next
	}
	return candidates, nil
}
