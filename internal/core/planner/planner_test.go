package planner

import (
	"testing"

	"github.com/Ning0612/snapsync/internal/domain"
)

// reversingDiffer returns changes in the worst possible order
type reversingDiffer struct {
	changes []domain.Change
}

func (r *reversingDiffer) Diff(from, to domain.Descriptor) []domain.Change {
	out := make([]domain.Change, len(r.changes))
	for i, c := range r.changes {
		out[len(r.changes)-1-i] = c
	}
	return out
}

func TestPlan_Stats(t *testing.T) {
	planner := NewDefaultPlanner()

	destination := domain.NewDescriptor("A", map[string]string{
		"keep":    "h1",
		"change":  "h2",
		"gone":    "h3",
		"olddir":  "",
		"olddir2": "",
	})
	reference := domain.NewDescriptor("B", map[string]string{
		"keep":   "h1",
		"change": "h2b",
		"added":  "h4",
		"added2": "h5",
		"newdir": "",
	})

	plan := planner.Plan(destination, reference)

	if plan.DestinationHash != "A" || plan.ReferenceHash != "B" {
		t.Errorf("Unexpected hashes: %s -> %s", plan.DestinationHash, plan.ReferenceHash)
	}
	if plan.UpToDate() {
		t.Error("Plan should not be up to date")
	}

	want := domain.SyncPlanStats{Total: 6, Creates: 2, Modifies: 1, Removes: 1, DirRemoves: 2}
	if plan.Stats != want {
		t.Errorf("Expected stats %+v, got %+v", want, plan.Stats)
	}
}

func TestPlan_UpToDate(t *testing.T) {
	planner := NewDefaultPlanner()
	d := domain.NewDescriptor("A", map[string]string{"f": "h"})

	plan := planner.Plan(d, d)

	if !plan.UpToDate() {
		t.Error("Plan should be up to date")
	}
	if len(plan.Changes) != 0 || plan.Stats.Total != 0 {
		t.Errorf("Expected empty plan, got %v", plan.Changes)
	}
}

func TestPlan_SortsDifferOutput(t *testing.T) {
	planner := &DefaultPlanner{
		Differ: &reversingDiffer{changes: []domain.Change{
			domain.Remove("a", "h"),
			domain.RemoveDir("b"),
			domain.Modify("c", "o", "n"),
			domain.Create("d", "h"),
		}},
	}

	plan := planner.Plan(domain.EmptyDescriptor(), domain.NewDescriptor("B", nil))

	for i, want := range []domain.ChangeKind{
		domain.ChangeRemove,
		domain.ChangeRemoveDir,
		domain.ChangeModify,
		domain.ChangeCreate,
	} {
		if plan.Changes[i].Kind != want {
			t.Errorf("change %d: expected %s, got %s", i, want, plan.Changes[i].Kind)
		}
	}
}
