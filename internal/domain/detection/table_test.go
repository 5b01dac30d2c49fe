package detection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoci/autoci/internal/domain"
	"github.com/autoci/autoci/internal/domain/detection"
)

func TestDefaultTable_LoadsOnce(t *testing.T) {
	a, err := detection.DefaultTable()
	require.NoError(t, err)
	b, err := detection.DefaultTable()
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.NotEmpty(t, a.Signatures)
}

func TestDefaultTable_LanguagePrecedence(t *testing.T) {
	table, err := detection.DefaultTable()
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"python", "javascript", "go", "java", "rust", "php", "ruby", "csharp"},
		table.Precedence)
	assert.Less(t, table.PrecedenceRank("python"), table.PrecedenceRank("javascript"))
	assert.Equal(t, len(table.Precedence), table.PrecedenceRank("cobol"))
}

func TestDefaultTable_EveryPrecedenceLanguageHasSignatures(t *testing.T) {
	table, err := detection.DefaultTable()
	require.NoError(t, err)
	for _, lang := range table.Precedence {
		assert.True(t, table.Knows(domain.CategoryLanguage, lang), lang)
	}
}

func TestParseTable_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no selector", "signatures:\n  - {technology: x, category: language, weight: 0.5}\n"},
		{"bad category", "signatures:\n  - {technology: x, category: nope, filename: a, weight: 0.5}\n"},
		{"weight above one", "signatures:\n  - {technology: x, category: language, filename: a, weight: 1.5}\n"},
		{"bad regex", "signatures:\n  - {technology: x, category: language, filename: a, contains: '(', weight: 0.5}\n"},
		{"version without group", "signatures:\n  - {technology: x, category: language, filename: a, version: 'v1', weight: 0.5}\n"},
		{"duplicate precedence", "language_precedence: [x, x]\nsignatures:\n  - {technology: x, category: language, filename: a, weight: 0.5}\n"},
		{"empty", "version: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := detection.ParseTable([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSignature_MatchPath(t *testing.T) {
	table, err := detection.ParseTable([]byte(`
signatures:
  - {technology: a, category: ci, dir: .github/workflows, glob: "*.{yml,yaml}", weight: 0.8}
  - {technology: b, category: test_tool, dir: spec, glob: "*_spec.rb", weight: 0.3}
  - {technology: c, category: language, glob: "src/**/*.ts", weight: 0.2}
  - {technology: d, category: language, filename: go.mod, weight: 0.5}
`))
	require.NoError(t, err)
	ci, rspec, ts, gomod := &table.Signatures[0], &table.Signatures[1], &table.Signatures[2], &table.Signatures[3]

	assert.True(t, ci.MatchPath(".github/workflows/ci.yaml"))
	assert.False(t, ci.MatchPath("docs/ci.yaml"))
	assert.True(t, rspec.MatchPath("spec/models/user_spec.rb"))
	assert.False(t, rspec.MatchPath("lib/user_spec.rb"))
	assert.True(t, ts.MatchPath("src/app/main.ts"))
	assert.False(t, ts.MatchPath("main.ts"))
	assert.True(t, gomod.MatchPath("tools/go.mod"))
	assert.False(t, gomod.MatchPath("go.modx"))
}
