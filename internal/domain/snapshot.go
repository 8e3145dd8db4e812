package domain

import "time"

// StatusTree is group → subgroup → target name → status name.
type StatusTree map[string]map[string]map[string]string

// CountTree is group → subgroup → status name → number of targets.
type CountTree map[string]map[string]map[string]int

// Snapshot is the aggregate of one cycle. Both trees come from the same
// result list and share their group/subgroup keys.
type Snapshot struct {
	ServerSets      StatusTree `json:"serverSets"`
	ServerSetCounts CountTree  `json:"serverSetCounts"`
	TakenAt         time.Time  `json:"takenAt"`
}

// Count returns how many targets reported status, optionally restricted to
// a group and subgroup (empty means any).
func (s Snapshot) Count(status, group, subGroup string) int {
	n := 0
	for g, subs := range s.ServerSetCounts {
		if group != "" && g != group {
			continue
		}
		for sg, counts := range subs {
			if subGroup != "" && sg != subGroup {
				continue
			}
			n += counts[status]
		}
	}
	return n
}
