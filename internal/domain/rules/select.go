package rules

import (
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/autoci/autoci/internal/domain"
)

// Selected is a rule that fired for an analysis.
type Selected struct {
	Rule       *Rule
	Technology string // resolved trigger technology
	Confidence float64
	Version    string // detected version of the trigger technology
	index      int
}

// Select returns the rules that fire for a, ordered by trigger confidence
// descending, then category precedence, then table order. Rules superseded
// by another fired rule are removed.
func (t *Table) Select(a *domain.RepoAnalysis) []Selected {
	var out []Selected
	for i := range t.Rules {
		r := &t.Rules[i]
		tech, ok := r.trigger(a)
		if !ok {
			continue
		}
		out = append(out, Selected{
			Rule:       r,
			Technology: tech.Name,
			Confidence: tech.Confidence,
			Version:    tech.Version,
			index:      i,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if ra, rb := a.Rule.Trigger.Category.Rank(), b.Rule.Trigger.Category.Rank(); ra != rb {
			return ra < rb
		}
		return a.index < b.index
	})

	superseded := map[string]bool{}
	for _, s := range out {
		for _, id := range s.Rule.Supersedes {
			superseded[id] = true
		}
	}
	kept := out[:0]
	for _, s := range out {
		if !superseded[s.Rule.ID] {
			kept = append(kept, s)
		}
	}
	return kept
}

// Fires reports whether the trigger of r is satisfied by a, ignoring
// supersession.
func (r *Rule) Fires(a *domain.RepoAnalysis) bool {
	_, ok := r.trigger(a)
	return ok
}

// trigger resolves the technology r triggers on and reports whether it
// satisfies the threshold, requirements and version range.
func (r *Rule) trigger(a *domain.RepoAnalysis) (domain.Technology, bool) {
	tech, ok := resolve(a, r.Trigger.Category, r.Trigger.Technology)
	if !ok || tech.Confidence < MinConfidence {
		return domain.Technology{}, false
	}
	if !requirementsMet(a, r.Trigger.Requires) || !versionMatches(r.constraint, tech.Version) {
		return domain.Technology{}, false
	}
	return tech, true
}

func resolve(a *domain.RepoAnalysis, c domain.Category, name string) (domain.Technology, bool) {
	if name == Wildcard {
		techs := a.In(c)
		if len(techs) == 0 {
			return domain.Technology{}, false
		}
		return techs[0], true
	}
	return a.Lookup(c, name)
}

func requirementsMet(a *domain.RepoAnalysis, reqs []Requirement) bool {
	for _, req := range reqs {
		if a.Confidence(req.Category, req.Technology) < MinConfidence {
			return false
		}
	}
	return true
}

// versionMatches treats an unknown or unparsable version as not satisfying
// any constraint.
func versionMatches(c *semver.Constraints, version string) bool {
	if c == nil {
		return true
	}
	if version == "" {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return c.Check(v)
}
