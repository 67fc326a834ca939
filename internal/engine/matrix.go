package engine

import (
	"sort"

	"github.com/sanix-darker/git-ci/pkg/types"
)

// MatrixBinding is one concrete combination of matrix variable values.
type MatrixBinding map[string]interface{}

// ExpandMatrix produces every concrete combination for a job's matrix
// configuration, honoring GitHub-style Strategy.Matrix/Include/Exclude,
// GitLab-style Parallel.Matrix, and the generic Job.Matrix field. A job
// with no matrix configuration expands to a single empty binding.
func ExpandMatrix(job *types.Job) []MatrixBinding {
	raw := job.Matrix
	var include, exclude []map[string]interface{}

	if job.Strategy != nil {
		if len(job.Strategy.Matrix) > 0 {
			raw = job.Strategy.Matrix
		}
		include = job.Strategy.Include
		exclude = job.Strategy.Exclude
	}

	if len(raw) == 0 && job.Parallel != nil && len(job.Parallel.Matrix) > 0 {
		return dedupe(job.Parallel.Matrix)
	}

	if len(raw) == 0 {
		if len(include) == 0 {
			return []MatrixBinding{{}}
		}
		return dedupe(include)
	}

	combos := cartesianProduct(raw)
	combos = applyExclude(combos, exclude)
	combos = append(combos, toBindings(include)...)
	return combos
}

func cartesianProduct(matrix map[string][]interface{}) []MatrixBinding {
	keys := make([]string, 0, len(matrix))
	for k := range matrix {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	combos := []MatrixBinding{{}}
	for _, key := range keys {
		values := matrix[key]
		var next []MatrixBinding
		for _, combo := range combos {
			for _, v := range values {
				extended := make(MatrixBinding, len(combo)+1)
				for k, val := range combo {
					extended[k] = val
				}
				extended[key] = v
				next = append(next, extended)
			}
		}
		combos = next
	}
	return combos
}

func applyExclude(combos []MatrixBinding, exclude []map[string]interface{}) []MatrixBinding {
	if len(exclude) == 0 {
		return combos
	}
	var kept []MatrixBinding
	for _, combo := range combos {
		excluded := false
		for _, ex := range exclude {
			if matchesSubset(combo, ex) {
				excluded = true
				break
			}
		}
		if !excluded {
			kept = append(kept, combo)
		}
	}
	return kept
}

func matchesSubset(combo MatrixBinding, subset map[string]interface{}) bool {
	for k, v := range subset {
		if existing, ok := combo[k]; !ok || existing != v {
			return false
		}
	}
	return true
}

func toBindings(raw []map[string]interface{}) []MatrixBinding {
	out := make([]MatrixBinding, len(raw))
	for i, m := range raw {
		out[i] = MatrixBinding(m)
	}
	return out
}

func dedupe(raw []map[string]interface{}) []MatrixBinding {
	return toBindings(raw)
}
