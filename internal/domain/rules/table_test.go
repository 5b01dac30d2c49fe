package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoci/autoci/internal/domain"
	"github.com/autoci/autoci/internal/domain/detection"
	"github.com/autoci/autoci/internal/domain/rules"
)

func TestDefaultTable_Loads(t *testing.T) {
	a, err := rules.DefaultTable()
	require.NoError(t, err)
	b, err := rules.DefaultTable()
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.NotEmpty(t, a.Rules)
}

func TestDefaultTable_TriggersAreDetectable(t *testing.T) {
	rt, err := rules.DefaultTable()
	require.NoError(t, err)
	st, err := detection.DefaultTable()
	require.NoError(t, err)

	for _, r := range rt.Rules {
		if r.Trigger.Technology != rules.Wildcard {
			assert.True(t, st.Knows(r.Trigger.Category, r.Trigger.Technology),
				"rule %s triggers on undetectable %s/%s", r.ID, r.Trigger.Category, r.Trigger.Technology)
		}
		for _, req := range r.Trigger.Requires {
			assert.True(t, st.Knows(req.Category, req.Technology), "rule %s requires %s", r.ID, req.Technology)
		}
	}
}

func TestDefaultTable_ActionStepsHaveFallback(t *testing.T) {
	rt, err := rules.DefaultTable()
	require.NoError(t, err)
	for _, r := range rt.Rules {
		for _, s := range r.Steps {
			step := s.Step()
			if step.Kind == domain.StepAction {
				assert.NotEmpty(t, step.Run, "rule %s step %q", r.ID, s.Name)
			}
		}
	}
}

func TestDefaultTable_EveryPrecedenceLanguageHasSecurityRule(t *testing.T) {
	rt, err := rules.DefaultTable()
	require.NoError(t, err)
	st, err := detection.DefaultTable()
	require.NoError(t, err)

	for _, lang := range st.Precedence {
		found := false
		for _, r := range rt.Rules {
			if r.HasStage(domain.StageSecurity) && r.Trigger.Category == domain.CategoryLanguage && r.Trigger.Technology == lang {
				found = true
			}
		}
		// Some languages are covered through their package manager or build tool.
		if !found {
			tc := languageToolchain(rt, lang)
			require.NotEmpty(t, tc, lang)
			for _, r := range rt.Rules {
				if r.HasStage(domain.StageSecurity) && r.Toolchain == tc {
					found = true
				}
			}
		}
		assert.True(t, found, "no security rule for %s", lang)
	}
}

func languageToolchain(rt *rules.Table, lang string) string {
	for name, tc := range rt.Toolchains {
		if tc.Language == lang {
			return name
		}
	}
	return ""
}

func TestParseTable_Rejects(t *testing.T) {
	const tc = "toolchains:\n  generic: {image: x, circleci_image: y}\n"
	tests := []struct {
		name string
		yaml string
	}{
		{"bad target", tc + "rules:\n  - {id: a, trigger: {technology: go, category: language}, targets: [lint], toolchain: generic}\n"},
		{"bad stage", tc + "rules:\n  - {id: a, trigger: {technology: go, category: language}, targets: [ship/go], toolchain: generic}\n"},
		{"unknown toolchain", tc + "rules:\n  - {id: a, trigger: {technology: go, category: language}, targets: [lint/go], toolchain: nope}\n"},
		{"duplicate id", tc + "rules:\n  - {id: a, trigger: {technology: go, category: language}, targets: [lint/go], toolchain: generic}\n  - {id: a, trigger: {technology: go, category: language}, targets: [lint/go], toolchain: generic}\n"},
		{"unknown supersedes", tc + "rules:\n  - {id: a, trigger: {technology: go, category: language}, targets: [lint/go], toolchain: generic, supersedes: [b]}\n"},
		{"bad constraint", tc + "rules:\n  - {id: a, trigger: {technology: go, category: language, versions: '>>1'}, targets: [lint/go], toolchain: generic}\n"},
		{"step without run", tc + "rules:\n  - {id: a, trigger: {technology: go, category: language}, targets: [lint/go], toolchain: generic, steps: [{name: x, uses: a/b@v1}]}\n"},
		{"matrix without versions", tc + "rules:\n  - {id: a, trigger: {technology: go, category: language}, targets: [lint/go], toolchain: generic, hint: {matrix: true}}\n"},
		{"versioned toolchain without default", "toolchains:\n  go: {image: 'golang:{{version}}', circleci_image: y}\nrules:\n  - {id: a, trigger: {technology: go, category: language}, targets: [lint/go], toolchain: go}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rules.ParseTable([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestToolchain_SetupStep(t *testing.T) {
	rt, err := rules.DefaultTable()
	require.NoError(t, err)

	java, ok := rt.Toolchain("java")
	require.True(t, ok)
	step, ok := java.SetupStep()
	require.True(t, ok)
	assert.Equal(t, domain.StepSetup, step.Kind)
	assert.Equal(t, "actions/setup-java@v4", step.Uses)
	assert.Equal(t, []domain.Param{
		{Key: "java-version", Value: domain.VersionPlaceholder},
		{Key: "distribution", Value: "temurin"},
	}, step.With)
	assert.Equal(t, "java-version", java.Axis())

	trivy, ok := rt.Toolchain("trivy")
	require.True(t, ok)
	_, ok = trivy.SetupStep()
	assert.False(t, ok)
	assert.True(t, trivy.Runtime().ResetEntrypoint)
}
