package domain

import "sort"

// UnknownLanguage is the primary language reported when no language
// evidence was found.
const UnknownLanguage = "unknown"

// Category groups technologies detected in a repository.
type Category string

const (
	CategoryLanguage       Category = "language"
	CategoryFramework      Category = "framework"
	CategoryTestTool       Category = "test_tool"
	CategoryBuildTool      Category = "build_tool"
	CategoryContainer      Category = "container"
	CategoryIaC            Category = "iac"
	CategoryPackageManager Category = "package_manager"
	CategoryCI             Category = "ci"
)

// Categories lists every category in rule-selection precedence order:
// language > framework > build tool > test tool > container > IaC,
// followed by package managers and existing CI configuration.
var Categories = []Category{
	CategoryLanguage,
	CategoryFramework,
	CategoryBuildTool,
	CategoryTestTool,
	CategoryContainer,
	CategoryIaC,
	CategoryPackageManager,
	CategoryCI,
}

// Rank returns the precedence of c in Categories. Unknown categories sort last.
func (c Category) Rank() int {
	for i, cat := range Categories {
		if cat == c {
			return i
		}
	}
	return len(Categories)
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool { return c.Rank() < len(Categories) }

// Evidence is a single matched detection signal. It lives only for the
// duration of one scan.
type Evidence struct {
	Technology string
	Category   Category
	Source     string // relative path of the matched file
	Signature  int    // index into the signature table
	Weight     float64
	Version    string
}

// Technology is one detected technology with its fused confidence.
type Technology struct {
	Name       string   `json:"name"`
	Confidence float64  `json:"confidence"`
	Version    string   `json:"version,omitempty"`
	Files      []string `json:"files,omitempty"`
}

// RepoAnalysis is the result of scanning a repository. It is never mutated
// after the detection engine returns it.
type RepoAnalysis struct {
	RootPath        string       `json:"rootPath"`
	Languages       []Technology `json:"languages"`
	Frameworks      []Technology `json:"frameworks"`
	TestTools       []Technology `json:"testTools"`
	BuildTools      []Technology `json:"buildTools"`
	Containers      []Technology `json:"containers"`
	IaCTools        []Technology `json:"iacTools"`
	PackageManagers []Technology `json:"packageManagers"`
	CISystems       []Technology `json:"ciSystems"`
	PrimaryLanguage string       `json:"primaryLanguage"`
	Warnings        []string     `json:"warnings,omitempty"`
	// Matched holds every path that produced evidence. Technology.Files is
	// capped for display; this list is not.
	Matched []string `json:"-"`
}

// NewRepoAnalysis returns an empty analysis with non-nil category lists so
// the JSON form always carries every key.
func NewRepoAnalysis(root string) *RepoAnalysis {
	return &RepoAnalysis{
		RootPath:        root,
		Languages:       []Technology{},
		Frameworks:      []Technology{},
		TestTools:       []Technology{},
		BuildTools:      []Technology{},
		Containers:      []Technology{},
		IaCTools:        []Technology{},
		PackageManagers: []Technology{},
		CISystems:       []Technology{},
		PrimaryLanguage: UnknownLanguage,
	}
}

// In returns the technologies detected for category c.
func (a *RepoAnalysis) In(c Category) []Technology {
	switch c {
	case CategoryLanguage:
		return a.Languages
	case CategoryFramework:
		return a.Frameworks
	case CategoryTestTool:
		return a.TestTools
	case CategoryBuildTool:
		return a.BuildTools
	case CategoryContainer:
		return a.Containers
	case CategoryIaC:
		return a.IaCTools
	case CategoryPackageManager:
		return a.PackageManagers
	case CategoryCI:
		return a.CISystems
	}
	return nil
}

// Lookup finds a technology by name in category c.
func (a *RepoAnalysis) Lookup(c Category, name string) (Technology, bool) {
	for _, t := range a.In(c) {
		if t.Name == name {
			return t, true
		}
	}
	return Technology{}, false
}

// Confidence returns the confidence for name in category c, or 0.
func (a *RepoAnalysis) Confidence(c Category, name string) float64 {
	t, _ := a.Lookup(c, name)
	return t.Confidence
}

// HasPrimaryLanguage reports whether a primary language was determined.
func (a *RepoAnalysis) HasPrimaryLanguage() bool {
	return a.PrimaryLanguage != "" && a.PrimaryLanguage != UnknownLanguage
}

// Files returns every matched file path across all categories, sorted and
// de-duplicated.
func (a *RepoAnalysis) Files() []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range a.Matched {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, c := range Categories {
		for _, t := range a.In(c) {
			for _, f := range t.Files {
				if !seen[f] {
					seen[f] = true
					out = append(out, f)
				}
			}
		}
	}
	sort.Strings(out)
	return out
}

// Issue severities, most severe first.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// SeverityRank orders severities for reports.
func SeverityRank(s string) int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}
