// Package audit compares what a repository has against the pipeline
// practices its stack supports and reports the gaps.
package audit

import (
	"fmt"
	"path"
	"strings"

	"github.com/autoci/autoci/internal/domain"
	"github.com/autoci/autoci/internal/domain/rules"
)

// Audit produces the recommendation report for a. It is pure and its
// output is sorted.
func Audit(a *domain.RepoAnalysis, table *rules.Table) domain.AuditReport {
	report := domain.AuditReport{
		PrimaryLanguage: a.PrimaryLanguage,
		Recommendations: []domain.Recommendation{},
		Warnings:        a.Warnings,
	}
	add := func(r domain.Recommendation) {
		report.Recommendations = append(report.Recommendations, r)
	}

	selected := table.Select(a)
	for _, r := range missingCaches(a, selected) {
		add(r)
	}
	for _, r := range weakSecurity(a, table) {
		add(r)
	}

	if a.HasPrimaryLanguage() {
		if !securityFor(a.PrimaryLanguage, selected, table) {
			add(domain.Recommendation{
				Severity:   domain.SeverityInfo,
				Category:   domain.AuditSecurity,
				Technology: a.PrimaryLanguage,
				Message:    fmt.Sprintf("no security scan applies to %s; add a dependency or static analysis scanner", a.PrimaryLanguage),
			})
		}
		if len(a.TestTools) == 0 {
			add(domain.Recommendation{
				Severity:   domain.SeverityWarning,
				Category:   domain.AuditCoverage,
				Technology: a.PrimaryLanguage,
				Message:    fmt.Sprintf("no test framework detected for %s; tests and coverage upload cannot be generated", a.PrimaryLanguage),
			})
		}
	}

	if len(a.CISystems) == 0 {
		add(domain.Recommendation{
			Severity: domain.SeverityInfo,
			Category: domain.AuditCI,
			Message:  "no CI configuration found; run autoci generate to create one",
		})
	}
	if len(a.Containers) == 0 {
		add(domain.Recommendation{
			Severity: domain.SeverityInfo,
			Category: domain.AuditContainer,
			Message:  "no container definition found; a Dockerfile enables image build and scan jobs",
		})
	}
	if len(a.PackageManagers) == 0 {
		add(domain.Recommendation{
			Severity: domain.SeverityInfo,
			Category: domain.AuditLockfile,
			Message:  "no package manager manifest or lockfile found; builds are not reproducible",
		})
	}

	report.Sort()
	return report
}

// missingCaches flags fired rules whose cache key hashes lockfiles the
// repository does not have.
func missingCaches(a *domain.RepoAnalysis, selected []rules.Selected) []domain.Recommendation {
	observed := map[string]bool{}
	for _, f := range a.Files() {
		observed[path.Base(f)] = true
	}

	var out []domain.Recommendation
	seen := map[string]bool{}
	for _, s := range selected {
		c := s.Rule.Cache
		if c == nil || len(c.KeyFiles) == 0 || seen[c.Key] {
			continue
		}
		seen[c.Key] = true
		found := false
		for _, f := range c.KeyFiles {
			if observed[f] {
				found = true
				break
			}
		}
		if found {
			continue
		}
		out = append(out, domain.Recommendation{
			Severity:   domain.SeverityWarning,
			Category:   domain.AuditCaching,
			Technology: s.Technology,
			Message: fmt.Sprintf("%s cache has no lockfile to key on (expected %s); commit one to enable dependency caching",
				c.Key, strings.Join(c.KeyFiles, " or ")),
		})
	}
	return out
}

// weakSecurity flags languages with some evidence but too little for their
// security rules to fire.
func weakSecurity(a *domain.RepoAnalysis, table *rules.Table) []domain.Recommendation {
	var out []domain.Recommendation
	for _, lang := range a.Languages {
		if lang.Confidence <= 0 || lang.Confidence >= rules.MinConfidence {
			continue
		}
		if !hasSecurityRule(lang.Name, table) {
			continue
		}
		out = append(out, domain.Recommendation{
			Severity:   domain.SeverityWarning,
			Category:   domain.AuditSecurity,
			Technology: lang.Name,
			Message: fmt.Sprintf("%s detected with low confidence (%.2f); its security scan was not generated",
				lang.Name, lang.Confidence),
		})
	}
	return out
}

func hasSecurityRule(lang string, table *rules.Table) bool {
	for i := range table.Rules {
		if r := &table.Rules[i]; r.HasStage(domain.StageSecurity) && boundTo(r, lang, table) {
			return true
		}
	}
	return false
}

func securityFor(lang string, selected []rules.Selected, table *rules.Table) bool {
	for _, s := range selected {
		if s.Rule.HasStage(domain.StageSecurity) && boundTo(s.Rule, lang, table) {
			return true
		}
	}
	return false
}

// boundTo reports whether r serves lang, either by triggering on it or by
// running on its toolchain.
func boundTo(r *rules.Rule, lang string, table *rules.Table) bool {
	if r.Trigger.Category == domain.CategoryLanguage && r.Trigger.Technology == lang {
		return true
	}
	tc, ok := table.Toolchain(r.Toolchain)
	return ok && tc.Language == lang
}
