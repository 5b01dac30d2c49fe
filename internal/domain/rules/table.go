// Package rules holds the declarative rule table mapping detected
// technologies onto pipeline job fragments.
package rules

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/autoci/autoci/internal/domain"
)

//go:embed rules.yaml
var rulesYAML []byte

// MinConfidence is the detection confidence a technology needs before its
// rules fire.
const MinConfidence = 0.3

// Wildcard as a trigger technology matches the best-scoring technology of
// the trigger category.
const Wildcard = "*"

// Target names the job a fragment contributes to.
type Target struct {
	Stage domain.Stage `validate:"required,oneof=lint test build security deploy"`
	Job   string       `validate:"required"`
}

// JobName is the name of the merged job, "<stage>-<job>".
func (t Target) JobName() string { return string(t.Stage) + "-" + t.Job }

func (t Target) String() string { return string(t.Stage) + "/" + t.Job }

// UnmarshalYAML decodes "stage/job".
func (t *Target) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	stage, job, ok := strings.Cut(s, "/")
	if !ok {
		return fmt.Errorf("line %d: target %q is not stage/job", n.Line, s)
	}
	t.Stage, t.Job = domain.Stage(stage), job
	return nil
}

// Requirement is a technology that must be detected alongside the trigger.
type Requirement struct {
	Technology string          `yaml:"technology" validate:"required"`
	Category   domain.Category `yaml:"category"   validate:"required,oneof=language framework test_tool build_tool container iac package_manager ci"`
}

// Trigger is the condition under which a rule fires.
type Trigger struct {
	Technology string          `yaml:"technology" validate:"required"`
	Category   domain.Category `yaml:"category"   validate:"required,oneof=language framework test_tool build_tool container iac package_manager ci"`
	Versions   string          `yaml:"versions"`
	Requires   []Requirement   `yaml:"requires"   validate:"dive"`
}

// RuleStep is a step as written in the table. Run is mandatory: for action
// steps it is the shell fallback.
type RuleStep struct {
	Name  string            `yaml:"name"  validate:"required"`
	Run   string            `yaml:"run"   validate:"required"`
	Uses  string            `yaml:"uses"`
	With  map[string]string `yaml:"with"`
	Phase domain.Phase      `yaml:"phase" validate:"omitempty,oneof=setup install run report"`
}

// Step converts the table form into a pipeline step.
func (s RuleStep) Step() domain.Step {
	st := domain.Step{Kind: domain.StepRun, Name: s.Name, Run: s.Run, Phase: s.Phase}
	if st.Phase == "" {
		st.Phase = domain.PhaseRun
	}
	if s.Uses != "" {
		st.Kind = domain.StepAction
		st.Uses = s.Uses
		st.With = sortedParams(s.With)
	}
	return st
}

// Hint carries optimization directives.
type Hint struct {
	Matrix   bool     `yaml:"matrix"`
	Values   []string `yaml:"values"`
	Parallel *bool    `yaml:"parallel"`
}

// Parallelizable reports whether the job may run alongside its stage peers.
func (h Hint) Parallelizable() bool { return h.Parallel == nil || *h.Parallel }

// Rule is one row of the table.
type Rule struct {
	ID         string        `yaml:"id"         validate:"required"`
	Trigger    Trigger       `yaml:"trigger"`
	Targets    []Target      `yaml:"targets"    validate:"required,min=1,dive"`
	Toolchain  string        `yaml:"toolchain"  validate:"required"`
	Steps      []RuleStep    `yaml:"steps"      validate:"dive"`
	Cache      *domain.Cache `yaml:"cache"`
	Hint       Hint          `yaml:"hint"`
	Supersedes []string      `yaml:"supersedes"`

	constraint *semver.Constraints
}

// HasStage reports whether the rule contributes to a job of stage s.
func (r *Rule) HasStage(s domain.Stage) bool {
	for _, t := range r.Targets {
		if t.Stage == s {
			return true
		}
	}
	return false
}

// Setup is the reusable action installing a toolchain on hosted runners.
type Setup struct {
	Uses  string            `yaml:"uses"  validate:"required"`
	Input string            `yaml:"input"`
	With  map[string]string `yaml:"with"`
}

// Toolchain describes how jobs get a language or tool runtime.
type Toolchain struct {
	Name            string   `yaml:"-"`
	Language        string   `yaml:"language"`
	Setup           *Setup   `yaml:"setup"`
	Image           string   `yaml:"image"          validate:"required"`
	ResetEntrypoint bool     `yaml:"reset_entrypoint"`
	Services        []string `yaml:"services"`
	CircleCIImage   string   `yaml:"circleci_image" validate:"required"`
	Docker          bool     `yaml:"docker"`
	DefaultVersion  string   `yaml:"default_version"`
	Versions        []string `yaml:"versions"`
}

// Versioned reports whether the toolchain's images or setup take a version.
func (tc *Toolchain) Versioned() bool {
	return strings.Contains(tc.Image, domain.VersionPlaceholder) ||
		strings.Contains(tc.CircleCIImage, domain.VersionPlaceholder) ||
		(tc.Setup != nil && tc.Setup.Input != "")
}

// Axis is the matrix axis name used for the toolchain's versions.
func (tc *Toolchain) Axis() string {
	if tc.Setup != nil && tc.Setup.Input != "" {
		return tc.Setup.Input
	}
	return tc.Name + "-version"
}

// SetupStep returns the step installing the toolchain, or false when hosted
// runners already provide it.
func (tc *Toolchain) SetupStep() (domain.Step, bool) {
	if tc.Setup == nil {
		return domain.Step{}, false
	}
	st := domain.Step{
		Kind:  domain.StepSetup,
		Name:  "Set up " + tc.Name,
		Uses:  tc.Setup.Uses,
		Phase: domain.PhaseSetup,
	}
	if tc.Setup.Input != "" {
		st.With = append(st.With, domain.Param{Key: tc.Setup.Input, Value: domain.VersionPlaceholder})
	}
	st.With = append(st.With, sortedParams(tc.Setup.With)...)
	return st, true
}

// Runtime returns the container environment of the toolchain.
func (tc *Toolchain) Runtime() domain.Runtime {
	return domain.Runtime{
		Image:           tc.Image,
		ResetEntrypoint: tc.ResetEntrypoint,
		Services:        append([]string(nil), tc.Services...),
		CircleCIImage:   tc.CircleCIImage,
		Docker:          tc.Docker,
	}
}

// Table is the immutable rule catalog. It is safe for concurrent use.
type Table struct {
	Version    int                   `yaml:"version"`
	Toolchains map[string]*Toolchain `yaml:"toolchains" validate:"required,dive"`
	Rules      []Rule                `yaml:"rules"      validate:"required,min=1,dive"`

	byID map[string]int
}

var defaultTable = sync.OnceValues(func() (*Table, error) {
	return ParseTable(rulesYAML)
})

// DefaultTable returns the embedded rule table, parsed once per process.
func DefaultTable() (*Table, error) { return defaultTable() }

// RawTable returns the embedded rule table source.
func RawTable() []byte { return rulesYAML }

// ParseTable decodes and validates a rule table.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing rule table: %w", err)
	}
	if err := domain.Validator().Struct(t); err != nil {
		return nil, fmt.Errorf("invalid rule table: %w", err)
	}
	for name, tc := range t.Toolchains {
		tc.Name = name
		if tc.Versioned() && tc.DefaultVersion == "" {
			return nil, fmt.Errorf("invalid rule table: toolchain %s takes a version but has no default_version", name)
		}
	}

	t.byID = make(map[string]int, len(t.Rules))
	jobToolchain := map[Target]string{}
	for i := range t.Rules {
		r := &t.Rules[i]
		if _, dup := t.byID[r.ID]; dup {
			return nil, fmt.Errorf("invalid rule table: duplicate rule id %q", r.ID)
		}
		t.byID[r.ID] = i

		tc, ok := t.Toolchains[r.Toolchain]
		if !ok {
			return nil, fmt.Errorf("invalid rule %s: unknown toolchain %q", r.ID, r.Toolchain)
		}
		if r.Hint.Matrix && len(r.Hint.Values) == 0 && len(tc.Versions) == 0 {
			return nil, fmt.Errorf("invalid rule %s: matrix hint but toolchain %s lists no versions", r.ID, r.Toolchain)
		}
		if r.Trigger.Versions != "" {
			c, err := semver.NewConstraint(r.Trigger.Versions)
			if err != nil {
				return nil, fmt.Errorf("invalid rule %s: versions %q: %w", r.ID, r.Trigger.Versions, err)
			}
			r.constraint = c
		}
		for _, tg := range r.Targets {
			if prev, ok := jobToolchain[tg]; ok && prev != r.Toolchain {
				return nil, fmt.Errorf("invalid rule %s: target %s uses toolchain %s, other rules use %s", r.ID, tg, r.Toolchain, prev)
			}
			jobToolchain[tg] = r.Toolchain
		}
	}
	for _, r := range t.Rules {
		for _, id := range r.Supersedes {
			if _, ok := t.byID[id]; !ok {
				return nil, fmt.Errorf("invalid rule %s: supersedes unknown rule %q", r.ID, id)
			}
		}
	}
	return &t, nil
}

// Rule returns the rule with the given id.
func (t *Table) Rule(id string) (*Rule, bool) {
	i, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return &t.Rules[i], true
}

// Toolchain returns the named toolchain.
func (t *Table) Toolchain(name string) (*Toolchain, bool) {
	tc, ok := t.Toolchains[name]
	return tc, ok
}

func sortedParams(m map[string]string) []domain.Param {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]domain.Param, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.Param{Key: k, Value: m[k]})
	}
	return out
}
