package domain

import "sort"

// Recommendation is one expected-but-absent pipeline practice.
type Recommendation struct {
	Severity   string `json:"severity"`
	Category   string `json:"category,omitempty"`
	Technology string `json:"technology,omitempty"`
	Message    string `json:"message"`
}

// Audit recommendation categories.
const (
	AuditCaching   = "caching"
	AuditSecurity  = "security"
	AuditCoverage  = "coverage"
	AuditCI        = "ci"
	AuditContainer = "container"
	AuditLockfile  = "lockfile"
)

// AuditReport lists recommendations ordered by severity, then message.
type AuditReport struct {
	PrimaryLanguage string           `json:"primaryLanguage"`
	Recommendations []Recommendation `json:"recommendations"`
	// Warnings are the per-file problems hit while scanning.
	Warnings []string `json:"warnings,omitempty"`
}

// Sort orders recommendations deterministically.
func (r *AuditReport) Sort() {
	sort.SliceStable(r.Recommendations, func(i, j int) bool {
		a, b := r.Recommendations[i], r.Recommendations[j]
		if ra, rb := SeverityRank(a.Severity), SeverityRank(b.Severity); ra != rb {
			return ra < rb
		}
		return a.Message < b.Message
	})
}

// Count returns how many recommendations have the given severity.
func (r *AuditReport) Count(severity string) int {
	n := 0
	for _, rec := range r.Recommendations {
		if rec.Severity == severity {
			n++
		}
	}
	return n
}
