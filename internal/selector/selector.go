// Package selector picks one provider out of a candidate list.
//
// Selection is a strict priority partition over modes, not a score:
// the first explicit candidate wins, then the first packaged one, then the
// first implicit one. Ties inside a tier go to the earlier candidate, so
// callers must pass candidates in a stable order.
package selector

import "github.com/anvil-platform/composer/internal/meta"

var priority = []meta.Mode{meta.ModeExplicit, meta.ModePackaged, meta.ModeImplicit}

// Select filters candidates with match and returns the highest-priority
// survivor. A nil match accepts every candidate.
func Select[T any](candidates []T, modeOf func(T) meta.Mode, match func(T) bool) (T, bool) {
	filtered := make([]T, 0, len(candidates))
	for _, c := range candidates {
		if match == nil || match(c) {
			filtered = append(filtered, c)
		}
	}
	for _, mode := range priority {
		for _, c := range filtered {
			if modeOf(c) == mode {
				return c, true
			}
		}
	}
	var zero T
	return zero, false
}

// Moded is anything that carries a mode, such as a deployment model.
type Moded interface {
	Mode() meta.Mode
}

// Models selects among live models.
func Models[M Moded](candidates []M, match func(M) bool) (M, bool) {
	return Select(candidates, func(m M) meta.Mode { return m.Mode() }, match)
}

// Profiles selects among deployment profiles.
func Profiles(candidates []meta.Profile, match func(meta.Profile) bool) (meta.Profile, bool) {
	return Select(candidates, func(p meta.Profile) meta.Mode { return p.Mode }, match)
}
