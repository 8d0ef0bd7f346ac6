package loader

import (
	"sort"

	"github.com/qmtool-platform/qmtool-core/pkg/descriptor"
)

// computeBootOrder linearizes features by topological sort (Kahn's
// algorithm), ported exactly from loader.py's _compute_boot_order. Edges
// are the declared dependencies intersected with the discovered feature
// set, plus three implicit-edge rules:
//
//   - every non-core, non-audittrail feature whose audit.must_audit is
//     true gains an edge to "audittrail" when audittrail is present;
//   - every non-core feature (again excluding audittrail, which is
//     handled by the rule below) gains an edge to "database" when
//     database is present;
//   - "audittrail" itself gains edges to "configurator" and "database"
//     when they are present.
//
// Core-infrastructure ids (licensing, configurator, database) never gain
// implicit edges. The ready queue is kept sorted by (sort_order, id) so
// the result is deterministic for a fixed input.
func computeBootOrder(features map[string]*descriptor.FeatureDescriptor) ([]string, error) {
	graph := make(map[string]map[string]bool, len(features))

	for id, d := range features {
		deps := make(map[string]bool)

		for _, dep := range d.Dependencies {
			if _, ok := features[dep]; ok {
				deps[dep] = true
			}
		}

		if id != "audittrail" && !coreInfrastructure[id] {
			if d.Audit != nil && d.Audit.MustAudit {
				if _, ok := features["audittrail"]; ok {
					deps["audittrail"] = true
				}
			}
			if _, ok := features["database"]; ok {
				deps["database"] = true
			}
		}

		if id == "audittrail" {
			if _, ok := features["configurator"]; ok {
				deps["configurator"] = true
			}
			if _, ok := features["database"]; ok {
				deps["database"] = true
			}
		}

		graph[id] = deps
	}

	inDegree := make(map[string]int, len(features))
	for id := range features {
		inDegree[id] = len(graph[id])
	}

	type ready struct {
		sortOrder int
		id        string
	}
	var queue []ready
	for id := range features {
		if inDegree[id] == 0 {
			queue = append(queue, ready{features[id].SortOrder, id})
		}
	}
	sortQueue := func() {
		sort.Slice(queue, func(i, j int) bool {
			if queue[i].sortOrder != queue[j].sortOrder {
				return queue[i].sortOrder < queue[j].sortOrder
			}
			return queue[i].id < queue[j].id
		})
	}
	sortQueue()

	var result []string
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		result = append(result, next.id)

		for otherID := range features {
			if graph[otherID][next.id] {
				inDegree[otherID]--
				if inDegree[otherID] == 0 {
					queue = append(queue, ready{features[otherID].SortOrder, otherID})
				}
			}
		}
		sortQueue()
	}

	if len(result) != len(features) {
		seen := make(map[string]bool, len(result))
		for _, id := range result {
			seen[id] = true
		}
		var remaining []string
		for id := range features {
			if !seen[id] {
				remaining = append(remaining, id)
			}
		}
		sort.Strings(remaining)
		return nil, &CyclicDependencyError{Remaining: remaining}
	}

	return result, nil
}
