package domain

import "strings"

// VersionPlaceholder marks where a toolchain version is substituted in
// setup inputs and runtime images.
const VersionPlaceholder = "{{version}}"

// ExpandVersion substitutes version for every VersionPlaceholder in s.
func ExpandVersion(s, version string) string {
	return strings.ReplaceAll(s, VersionPlaceholder, version)
}

// Stage tags a job with its place in the pipeline.
type Stage string

const (
	StageLint     Stage = "lint"
	StageTest     Stage = "test"
	StageBuild    Stage = "build"
	StageSecurity Stage = "security"
	StageDeploy   Stage = "deploy"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageLint, StageTest, StageBuild, StageSecurity, StageDeploy}

// Rank returns the execution position of s. Unknown stages sort last.
func (s Stage) Rank() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return len(Stages)
}

// StepKind distinguishes the abstract step shapes every renderer understands.
type StepKind string

const (
	StepCheckout StepKind = "checkout"
	StepSetup    StepKind = "setup"
	StepCache    StepKind = "cache"
	StepRun      StepKind = "run"
	StepAction   StepKind = "action"
)

// Phase orders steps inside a merged job.
type Phase string

const (
	PhaseCheckout Phase = "checkout"
	PhaseSetup    Phase = "setup"
	PhaseCache    Phase = "cache"
	PhaseInstall  Phase = "install"
	PhaseRun      Phase = "run"
	PhaseReport   Phase = "report"
)

var phaseOrder = map[Phase]int{
	PhaseCheckout: 0,
	PhaseSetup:    1,
	PhaseCache:    2,
	PhaseInstall:  3,
	PhaseRun:      4,
	PhaseReport:   5,
}

// Rank returns the ordering position of p; the zero Phase counts as run.
func (p Phase) Rank() int {
	if r, ok := phaseOrder[p]; ok {
		return r
	}
	return phaseOrder[PhaseRun]
}

// Param is one ordered key/value input of a reusable action.
type Param struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Cache describes a dependency cache. Paths are home-relative locations used
// by runners with a persistent home; LocalPaths are project-relative
// equivalents for runners that can only cache inside the checkout, with Env
// pointing the tool at them. KeyFiles are the lockfiles the key hashes.
type Cache struct {
	Key        string   `json:"key" yaml:"key" validate:"required"`
	Paths      []string `json:"paths" yaml:"paths" validate:"required,min=1"`
	LocalPaths []string `json:"localPaths,omitempty" yaml:"local_paths"`
	Env        []Param  `json:"env,omitempty" yaml:"env"`
	KeyFiles   []string `json:"keyFiles,omitempty" yaml:"key_files"`
}

// Step is one ordered unit of work in a job. Action steps name a reusable
// action in Uses and must carry a shell fallback in Run for platforms that
// have no equivalent action.
type Step struct {
	Kind  StepKind `json:"kind" validate:"required,oneof=checkout setup cache run action"`
	Name  string   `json:"name,omitempty"`
	Run   string   `json:"run,omitempty"`
	Uses  string   `json:"uses,omitempty"`
	With  []Param  `json:"with,omitempty"`
	Cache *Cache   `json:"cache,omitempty"`
	Phase Phase    `json:"phase,omitempty"`
}

// Key identifies a step for de-duplication: two steps with the same key do
// the same thing.
func (s Step) Key() string {
	k := string(s.Kind) + "\x00" + s.Run + "\x00" + s.Uses
	for _, p := range s.With {
		k += "\x00" + p.Key + "=" + p.Value
	}
	if s.Cache != nil {
		k += "\x00cache=" + s.Cache.Key
	}
	return k
}

// Matrix is an ordered axis of values; a job with a matrix runs once per value.
type Matrix struct {
	Axis   string   `json:"axis" validate:"required"`
	Values []string `json:"values" validate:"required,min=1"`
}

// Trigger holds branch and event filters.
type Trigger struct {
	PushBranches        []string `json:"pushBranches,omitempty"`
	PullRequestBranches []string `json:"pullRequestBranches,omitempty"`
	Schedule            string   `json:"schedule,omitempty"`
	// PushOnly restricts a job to push events on PushBranches.
	PushOnly bool `json:"pushOnly,omitempty"`
}

// Runtime is the execution environment of a job on runners that start each
// job from a container image. Image templates may hold VersionPlaceholder.
type Runtime struct {
	Image           string   `json:"image,omitempty"`
	ResetEntrypoint bool     `json:"resetEntrypoint,omitempty"`
	Services        []string `json:"services,omitempty"`
	CircleCIImage   string   `json:"circleciImage,omitempty"`
	// Docker means the job talks to a Docker daemon.
	Docker bool `json:"docker,omitempty"`
}

// Job is one named unit of the pipeline.
type Job struct {
	Name      string  `json:"name" validate:"required"`
	Stage     Stage   `json:"stage" validate:"required,oneof=lint test build security deploy"`
	Toolchain string  `json:"toolchain,omitempty"`
	Version   string  `json:"version,omitempty"`
	Runtime   Runtime `json:"runtime"`
	// WorkingDir is where run steps execute, relative to the repository
	// root. Empty means the root.
	WorkingDir string   `json:"workingDir,omitempty"`
	Steps      []Step   `json:"steps" validate:"required,min=1,dive"`
	Trigger    *Trigger `json:"trigger,omitempty"`
	Matrix     *Matrix  `json:"matrix,omitempty"`
	Needs      []string `json:"needs,omitempty"`
	Parallel   bool     `json:"parallel,omitempty"`
}

// HasCache reports whether any step of the job is a cache step.
func (j Job) HasCache() bool {
	for _, s := range j.Steps {
		if s.Kind == StepCache {
			return true
		}
	}
	return false
}

// PipelineSpec is the platform-agnostic pipeline: jobs ordered by stage.
type PipelineSpec struct {
	Name    string  `json:"name" validate:"required"`
	Trigger Trigger `json:"trigger"`
	Jobs    []Job   `json:"jobs" validate:"required,min=1,dive"`
}

// Job returns the job with the given name.
func (p *PipelineSpec) Job(name string) (Job, bool) {
	for _, j := range p.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return Job{}, false
}

// StagesUsed returns the stages that have at least one job, in order.
func (p *PipelineSpec) StagesUsed() []Stage {
	used := map[Stage]bool{}
	for _, j := range p.Jobs {
		used[j.Stage] = true
	}
	var out []Stage
	for _, s := range Stages {
		if used[s] {
			out = append(out, s)
		}
	}
	return out
}

// GeneratedPipeline is a rendered pipeline document for one platform.
type GeneratedPipeline struct {
	Platform Platform      `json:"platform"`
	Path     string        `json:"path"`
	Content  string        `json:"content"`
	Analysis *RepoAnalysis `json:"analysis"`
}
