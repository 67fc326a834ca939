// Package engine schedules and executes a Pipeline's jobs as a DAG,
// generalizing the teacher's flat per-job execution (internal/handlers'
// RunJob calls) into level-partitioned, dependency-aware, concurrent
// execution with matrix expansion and reusable-workflow recursion.
package engine

import (
	"fmt"
	"sort"

	"github.com/sanix-darker/git-ci/pkg/types"
)

// jobDependencies returns the union of a job's dependency fields across
// dialects (needs/dependencies/requires), since Pipeline is a
// cross-provider universal type.
func jobDependencies(job *types.Job) []string {
	seen := make(map[string]struct{})
	var deps []string
	add := func(ids []string) {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			deps = append(deps, id)
		}
	}
	add(job.Needs)
	add(job.Dependencies)
	add(job.Requires)
	return deps
}

// BuildLevels partitions a pipeline's jobs into dependency levels using
// Kahn's algorithm: level 0 has no unresolved dependencies, level N depends
// only on jobs in levels < N. Within a level, job IDs are sorted
// lexicographically for deterministic scheduling order. Returns an error if
// the dependency graph has a cycle or references an undefined job.
func BuildLevels(pipeline *types.Pipeline) ([][]string, error) {
	inDegree := make(map[string]int, len(pipeline.Jobs))
	dependents := make(map[string][]string, len(pipeline.Jobs))

	for id, job := range pipeline.Jobs {
		deps := jobDependencies(job)
		inDegree[id] = len(deps)
		for _, dep := range deps {
			if _, ok := pipeline.Jobs[dep]; !ok {
				return nil, fmt.Errorf("job %q depends on undefined job %q", id, dep)
			}
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var levels [][]string
	remaining := len(pipeline.Jobs)

	for remaining > 0 {
		var ready []string
		for id, deg := range inDegree {
			if deg == 0 {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			return nil, fmt.Errorf("cycle detected among jobs: %v", remainingJobs(inDegree))
		}
		sort.Strings(ready)
		levels = append(levels, ready)

		for _, id := range ready {
			delete(inDegree, id)
			remaining--
		}
		for _, id := range ready {
			for _, dependent := range dependents[id] {
				inDegree[dependent]--
			}
		}
	}

	return levels, nil
}

func remainingJobs(inDegree map[string]int) []string {
	ids := make([]string, 0, len(inDegree))
	for id := range inDegree {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
