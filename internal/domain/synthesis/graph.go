package synthesis

import "github.com/autoci/autoci/internal/domain"

// fanOut wires dependencies for an optimized pipeline. jobs must be sorted
// by stage. Parallelizable jobs of a stage run together once every job of
// the previous non-empty stage finished; serial jobs of the stage follow
// them one at a time.
func fanOut(jobs []domain.Job, serial map[string]bool) {
	var prev []string
	for start := 0; start < len(jobs); {
		end := start
		for end < len(jobs) && jobs[end].Stage == jobs[start].Stage {
			end++
		}
		stage := jobs[start:end]

		var group, all []string
		for i := range stage {
			if serial[stage[i].Name] {
				continue
			}
			stage[i].Needs = copyNames(prev)
			stage[i].Parallel = countParallel(stage, serial) >= 2
			group = append(group, stage[i].Name)
		}
		all = append(all, group...)

		after := prev
		if len(group) > 0 {
			after = group
		}
		for i := range stage {
			if !serial[stage[i].Name] {
				continue
			}
			stage[i].Needs = copyNames(after)
			after = []string{stage[i].Name}
			all = append(all, stage[i].Name)
		}

		prev = all
		start = end
	}
}

func countParallel(stage []domain.Job, serial map[string]bool) int {
	n := 0
	for _, j := range stage {
		if !serial[j.Name] {
			n++
		}
	}
	return n
}

// chain runs every job after the one before it.
func chain(jobs []domain.Job) {
	for i := range jobs {
		jobs[i].Parallel = false
		jobs[i].Needs = nil
		if i > 0 {
			jobs[i].Needs = []string{jobs[i-1].Name}
		}
	}
}

func copyNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	return append([]string(nil), names...)
}
