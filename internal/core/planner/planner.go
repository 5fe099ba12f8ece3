package planner

import (
	"github.com/Ning0612/snapsync/internal/core/diff"
	"github.com/Ning0612/snapsync/internal/domain"
)

// Planner generates sync plans
type Planner interface {
	Plan(destination, reference domain.Descriptor) *domain.SyncPlan
}

// DefaultPlanner builds plans from a descriptor differ
type DefaultPlanner struct {
	Differ diff.Differ
}

// NewDefaultPlanner creates a new planner with default components
func NewDefaultPlanner() *DefaultPlanner {
	return &DefaultPlanner{
		Differ: diff.NewDescriptorDiffer(),
	}
}

// Plan computes the ordered changes that bring destination to reference
func (p *DefaultPlanner) Plan(destination, reference domain.Descriptor) *domain.SyncPlan {
	plan := &domain.SyncPlan{
		DestinationHash: destination.WholeHash(),
		ReferenceHash:   reference.WholeHash(),
		Changes:         p.Differ.Diff(destination, reference),
	}

	// Differ implementations are not trusted to order their output
	diff.Sort(plan.Changes)

	calculateStats(plan)
	return plan
}

// calculateStats computes summary statistics for a plan
func calculateStats(plan *domain.SyncPlan) {
	plan.Stats = domain.SyncPlanStats{}
	for _, change := range plan.Changes {
		plan.Stats.Total++
		switch change.Kind {
		case domain.ChangeCreate:
			plan.Stats.Creates++
		case domain.ChangeModify:
			plan.Stats.Modifies++
		case domain.ChangeRemove:
			plan.Stats.Removes++
		case domain.ChangeRemoveDir:
			plan.Stats.DirRemoves++
		}
	}
}
