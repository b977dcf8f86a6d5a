package kg

import (
	"sort"

	"github.com/lattice-kb/lattice/pkg/common"
)

// RankEvidence orders one subject's evidence best-first: highest score first,
// rows without a score after every scored row, and newer rows before older
// ones within a tie. The sort is stable so equal rows keep insertion order.
func RankEvidence(rows []common.Evidence) []common.Evidence {
	out := make([]common.Evidence, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Score != nil && b.Score == nil:
			return true
		case a.Score == nil && b.Score != nil:
			return false
		case a.Score != nil && b.Score != nil && *a.Score != *b.Score:
			return *a.Score > *b.Score
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out
}

// TrimPlan groups rows by subject, ranks each group, and returns the IDs of
// every row past the first keep. A non-positive keep deletes nothing.
func TrimPlan(rows []common.Evidence, keep int) []string {
	if keep <= 0 || len(rows) == 0 {
		return nil
	}
	bySubject := make(map[string][]common.Evidence)
	for _, r := range rows {
		bySubject[r.SubjectID] = append(bySubject[r.SubjectID], r)
	}
	var victims []string
	for _, group := range bySubject {
		if len(group) <= keep {
			continue
		}
		ranked := RankEvidence(group)
		for _, r := range ranked[keep:] {
			victims = append(victims, r.ID)
		}
	}
	sort.Strings(victims)
	return victims
}
