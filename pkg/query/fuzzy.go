package query

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// maxSuggestions caps the number of fuzzy-match suggestions returned in a
// PathResolutionError or UnknownRootEntityError (spec.md §4.B: "up to 5").
const maxSuggestions = 5

// maxEditDistance is the edit-distance threshold used when suggesting a
// replacement for an unknown root entity name (spec.md §4.B: "edit-distance
// ≤ 2").
const maxEditDistance = 2

type scoredCandidate struct {
	name     string
	distance int
}

// closeEntityMatches returns up to maxSuggestions registered entity names
// within maxEditDistance of target, closest first.
func closeEntityMatches(target string, candidates []string) []string {
	return closeMatchesWithin(target, candidates, maxEditDistance)
}

// closeMatches returns up to maxSuggestions candidates ranked by edit
// distance to target, regardless of distance (used for
// relationship-name/property-name suggestions within PATH_RESOLUTION_ERROR,
// where the source does not bound the distance).
func closeMatches(target string, candidates []string) []string {
	return closeMatchesWithin(target, candidates, -1)
}

func closeMatchesWithin(target string, candidates []string, maxDistance int) []string {
	lowerTarget := strings.ToLower(target)
	scored := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		d := levenshtein.Distance(lowerTarget, strings.ToLower(c), nil)
		if maxDistance >= 0 && d > maxDistance {
			continue
		}
		scored = append(scored, scoredCandidate{name: c, distance: d})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].distance < scored[j].distance
	})
	if len(scored) > maxSuggestions {
		scored = scored[:maxSuggestions]
	}
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.name
	}
	return out
}
