package kg

import (
	"testing"
	"time"

	"github.com/lattice-kb/lattice/pkg/common"
)

func scored(id string, score float64, created time.Time) common.Evidence {
	return common.Evidence{ID: id, SubjectID: "n1", Score: &score, CreatedAt: created}
}

func unscored(id string, created time.Time) common.Evidence {
	return common.Evidence{ID: id, SubjectID: "n1", CreatedAt: created}
}

func TestRankEvidenceOrdering(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []common.Evidence{
		unscored("null-old", base),
		scored("low", 0.2, base),
		unscored("null-new", base.Add(time.Hour)),
		scored("high", 0.9, base),
		scored("high-newer", 0.9, base.Add(time.Hour)),
	}

	ranked := RankEvidence(rows)

	want := []string{"high-newer", "high", "low", "null-new", "null-old"}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Fatalf("rank %d: expected %s, got %s", i, id, ranked[i].ID)
		}
	}
}

func TestTrimPlanKeepsTopKPerSubject(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []common.Evidence{
		scored("a", 0.9, base),
		scored("b", 0.5, base),
		unscored("c", base),
		{ID: "other", SubjectID: "n2", CreatedAt: base},
	}

	victims := TrimPlan(rows, 2)

	if len(victims) != 1 || victims[0] != "c" {
		t.Fatalf("expected only the unscored row of n1 to be trimmed, got %v", victims)
	}
}

func TestTrimPlanUnderKeepIsNoop(t *testing.T) {
	rows := []common.Evidence{unscored("a", time.Now())}
	if victims := TrimPlan(rows, 5); victims != nil {
		t.Fatalf("expected no victims below the keep threshold, got %v", victims)
	}
}

func TestTrimPlanNonPositiveKeep(t *testing.T) {
	rows := []common.Evidence{unscored("a", time.Now())}
	if victims := TrimPlan(rows, 0); victims != nil {
		t.Fatalf("expected non-positive keep to delete nothing, got %v", victims)
	}
}
