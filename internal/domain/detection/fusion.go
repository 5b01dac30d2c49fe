package detection

import (
	"math"
	"path"
	"sort"
	"strings"

	"github.com/autoci/autoci/internal/domain"
)

// MaxTechnologyFiles bounds the matched paths reported per technology.
const MaxTechnologyFiles = 5

// Fuse combines evidence weights into a confidence: min(1, Σ weights),
// rounded to four decimals. Adding evidence never lowers the result.
func Fuse(weights ...float64) float64 {
	sum := 0.0
	for _, w := range weights {
		if w > 0 {
			sum += w
		}
	}
	sum = math.Round(sum*1e4) / 1e4
	return math.Min(1, sum)
}

type techAcc struct {
	key       techKey
	weights   []float64
	fileWt    map[string]float64
	version   string
	versionAt string
	versionSg int
}

// Aggregate fuses evidence into a RepoAnalysis. The result does not depend
// on the order of ev.
func Aggregate(root string, ev []domain.Evidence, t *Table) *domain.RepoAnalysis {
	sorted := append([]domain.Evidence(nil), ev...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Source != sorted[j].Source {
			return sorted[i].Source < sorted[j].Source
		}
		return sorted[i].Signature < sorted[j].Signature
	})

	accs := map[techKey]*techAcc{}
	var matched []string
	for _, e := range sorted {
		if n := len(matched); n == 0 || matched[n-1] != e.Source {
			matched = append(matched, e.Source)
		}
		k := techKey{e.Category, e.Technology}
		a, ok := accs[k]
		if !ok {
			a = &techAcc{key: k, fileWt: map[string]float64{}}
			accs[k] = a
		}
		a.weights = append(a.weights, e.Weight)
		a.fileWt[e.Source] += e.Weight
		if e.Version != "" && versionSourceBefore(e.Source, e.Signature, a) {
			a.version, a.versionAt, a.versionSg = e.Version, e.Source, e.Signature
		}
	}

	out := domain.NewRepoAnalysis(root)
	out.Matched = matched
	byCat := map[domain.Category][]domain.Technology{}
	for k, a := range accs {
		byCat[k.category] = append(byCat[k.category], domain.Technology{
			Name:       k.name,
			Confidence: Fuse(a.weights...),
			Version:    a.version,
			Files:      topFiles(a.fileWt),
		})
	}
	for c, techs := range byCat {
		sortTechnologies(c, techs, t)
		switch c {
		case domain.CategoryLanguage:
			out.Languages = techs
		case domain.CategoryFramework:
			out.Frameworks = techs
		case domain.CategoryTestTool:
			out.TestTools = techs
		case domain.CategoryBuildTool:
			out.BuildTools = techs
		case domain.CategoryContainer:
			out.Containers = techs
		case domain.CategoryIaC:
			out.IaCTools = techs
		case domain.CategoryPackageManager:
			out.PackageManagers = techs
		case domain.CategoryCI:
			out.CISystems = techs
		}
	}
	if len(out.Languages) > 0 {
		out.PrimaryLanguage = out.Languages[0].Name
	}
	return out
}

// versionSourceBefore prefers the shallowest file, then the smallest path,
// then the earliest signature.
func versionSourceBefore(src string, sig int, a *techAcc) bool {
	if a.versionAt == "" {
		return true
	}
	da, db := depth(src), depth(a.versionAt)
	if da != db {
		return da < db
	}
	if src != a.versionAt {
		return src < a.versionAt
	}
	return sig < a.versionSg
}

func depth(rel string) int {
	return strings.Count(path.Clean(rel), "/")
}

func topFiles(w map[string]float64) []string {
	files := make([]string, 0, len(w))
	for f := range w {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		if w[files[i]] != w[files[j]] {
			return w[files[i]] > w[files[j]]
		}
		return files[i] < files[j]
	})
	if len(files) > MaxTechnologyFiles {
		files = files[:MaxTechnologyFiles]
	}
	return files
}

// sortTechnologies orders by confidence, then by language precedence or
// catalog position, then by name.
func sortTechnologies(c domain.Category, techs []domain.Technology, t *Table) {
	rank := func(name string) int {
		if c == domain.CategoryLanguage {
			return t.PrecedenceRank(name)
		}
		return t.CatalogRank(c, name)
	}
	sort.Slice(techs, func(i, j int) bool {
		a, b := techs[i], techs[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if ra, rb := rank(a.Name), rank(b.Name); ra != rb {
			return ra < rb
		}
		return a.Name < b.Name
	})
}
