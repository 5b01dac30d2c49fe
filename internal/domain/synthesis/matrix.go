package synthesis

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/autoci/autoci/internal/domain/rules"
)

// matrixValues picks the version axis of a job. An explicit override wins.
// Otherwise the hint's values, or the toolchain's version set, are narrowed
// to versions not older than the detected one; when that leaves nothing the
// detected version alone is used.
func matrixValues(tc *rules.Toolchain, hinted []string, detected string, override []string) []string {
	if len(override) > 0 {
		return append([]string(nil), override...)
	}
	values := hinted
	if len(values) == 0 {
		values = tc.Versions
	}
	if detected == "" {
		return append([]string(nil), values...)
	}

	var out []string
	for _, v := range values {
		if !olderThan(v, detected) {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []string{detected}
	}
	return out
}

// olderThan compares v against detected at v's precision, so "3.11" is not
// older than a detected "3.11.4". Unparsable versions are never older.
func olderThan(v, detected string) bool {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return false
	}
	parts := strings.Split(detected, ".")
	if n := strings.Count(v, ".") + 1; len(parts) > n {
		parts = parts[:n]
	}
	dv, err := semver.NewVersion(strings.Join(parts, "."))
	if err != nil {
		return false
	}
	return sv.LessThan(dv)
}
