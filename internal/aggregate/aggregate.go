// Package aggregate folds a cycle's probe results into status trees.
package aggregate

import (
	"time"

	"github.com/hamed0406/healthalert/internal/domain"
)

// Fold builds both views of a cycle in one pass over results, so
// ServerSets and ServerSetCounts always share their group/subgroup keys.
// A repeated target name inside one subgroup keeps the last status but is
// counted every time it appears.
func Fold(results []domain.Result) domain.Snapshot {
	sets := domain.StatusTree{}
	counts := domain.CountTree{}

	for _, r := range results {
		g, sg := r.Target.Group, r.Target.SubGroup

		if sets[g] == nil {
			sets[g] = map[string]map[string]string{}
			counts[g] = map[string]map[string]int{}
		}
		if sets[g][sg] == nil {
			sets[g][sg] = map[string]string{}
			counts[g][sg] = map[string]int{}
		}

		sets[g][sg][r.Target.Name] = r.Outcome.Status
		counts[g][sg][r.Outcome.Status]++
	}

	return domain.Snapshot{
		ServerSets:      sets,
		ServerSetCounts: counts,
		TakenAt:         time.Now().UTC(),
	}
}
