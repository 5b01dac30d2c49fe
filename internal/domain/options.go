package domain

// Default trigger branches, matching the conventional long-lived branches.
var (
	DefaultPushBranches        = []string{"main", "master", "develop"}
	DefaultPullRequestBranches = []string{"main", "master"}
)

// SynthesisOptions are the user toggles applied on top of what the analysis
// and rule table derive. They are the single override point of synthesis.
type SynthesisOptions struct {
	// Optimize keeps caching, version matrices and parallel fan-out.
	Optimize bool
	// SkipSecurity drops the security stage.
	SkipSecurity bool
	// Versions overrides matrix values per toolchain, e.g. "python".
	Versions map[string][]string
	// Branches overrides the push/pull-request branch filters.
	Branches []string
	// DefaultBranch gates deploy jobs; empty means "main".
	DefaultBranch string
	// Schedule adds a cron trigger.
	Schedule string
}

// DefaultSynthesisOptions returns options with every optimization enabled.
func DefaultSynthesisOptions() SynthesisOptions {
	return SynthesisOptions{Optimize: true}
}

// DeployBranch returns the branch deploy jobs run on.
func (o SynthesisOptions) DeployBranch() string {
	if o.DefaultBranch != "" {
		return o.DefaultBranch
	}
	return "main"
}

// Triggers returns the pipeline-level trigger for these options.
func (o SynthesisOptions) Triggers() Trigger {
	t := Trigger{
		PushBranches:        append([]string(nil), DefaultPushBranches...),
		PullRequestBranches: append([]string(nil), DefaultPullRequestBranches...),
		Schedule:            o.Schedule,
	}
	if len(o.Branches) > 0 {
		t.PushBranches = append([]string(nil), o.Branches...)
		t.PullRequestBranches = append([]string(nil), o.Branches...)
	}
	if b := o.DefaultBranch; b != "" && !contains(t.PushBranches, b) {
		t.PushBranches = append(t.PushBranches, b)
		if len(o.Branches) == 0 {
			t.PullRequestBranches = append(t.PullRequestBranches, b)
		}
	}
	return t
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
