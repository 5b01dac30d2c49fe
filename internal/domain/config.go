package domain

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// Scan bounds applied when the project config leaves them unset.
const (
	DefaultMaxDepth    = 12
	DefaultMaxFiles    = 50_000
	DefaultMaxFileSize = 1 << 20
)

// ProjectConfig holds project-level configuration loaded from .autoci.yaml.
type ProjectConfig struct {
	CI           string              `yaml:"ci"            json:"ci,omitempty"`
	ExcludePaths []string            `yaml:"exclude_paths" json:"exclude_paths,omitempty" validate:"dive,required"`
	Versions     map[string][]string `yaml:"versions"      json:"versions,omitempty"      validate:"dive,keys,required,endkeys,min=1,dive,required"`
	Branches     []string            `yaml:"branches"      json:"branches,omitempty"      validate:"dive,required,excludesall= "`
	Schedule     string              `yaml:"schedule"      json:"schedule,omitempty"`
	SkipSecurity bool                `yaml:"skip_security" json:"skip_security,omitempty"`
	MaxDepth     int                 `yaml:"max_depth"     json:"max_depth,omitempty"     validate:"gte=0,lte=64"`
	MaxFiles     int                 `yaml:"max_files"     json:"max_files,omitempty"     validate:"gte=0"`
	MaxFileSize  int64               `yaml:"max_file_size" json:"max_file_size,omitempty" validate:"gte=0"`
	Workers      int                 `yaml:"workers"       json:"workers,omitempty"       validate:"gte=0,lte=256"`
	ScanTimeout  string              `yaml:"scan_timeout"  json:"scan_timeout,omitempty"`
}

// DefaultConfig returns a zero-value config that changes nothing.
func DefaultConfig() ProjectConfig {
	return ProjectConfig{}
}

var validate = sync.OnceValue(func() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
})

// Validator returns the shared struct validator.
func Validator() *validator.Validate { return validate() }

// Validate checks the config for invalid values and returns a descriptive error.
func (c ProjectConfig) Validate() error {
	if err := validate().Struct(c); err != nil {
		return describeValidation(err)
	}
	if c.CI != "" {
		if _, err := ParsePlatform(c.CI); err != nil {
			return fmt.Errorf("invalid ci %s: %w", c.CI, err)
		}
	}
	if c.Schedule != "" {
		if err := ValidateSchedule(c.Schedule); err != nil {
			return err
		}
	}
	if c.ScanTimeout != "" {
		d, err := time.ParseDuration(c.ScanTimeout)
		if err != nil {
			return fmt.Errorf("invalid scan_timeout %q: %w", c.ScanTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("scan_timeout must be positive, got %s", c.ScanTimeout)
		}
	}
	return nil
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	if strings.HasPrefix(strings.TrimSpace(expr), "@") {
		return fmt.Errorf("invalid schedule %q: descriptors are not portable across CI platforms, use five cron fields", expr)
	}
	return nil
}

// ScanOptions returns the walk bounds with defaults applied.
func (c ProjectConfig) ScanOptions() ScanOptions {
	opts := ScanOptions{
		MaxDepth:    DefaultMaxDepth,
		MaxFiles:    DefaultMaxFiles,
		MaxFileSize: DefaultMaxFileSize,
		Exclude:     c.ExcludePaths,
	}
	if c.MaxDepth > 0 {
		opts.MaxDepth = c.MaxDepth
	}
	if c.MaxFiles > 0 {
		opts.MaxFiles = c.MaxFiles
	}
	if c.MaxFileSize > 0 {
		opts.MaxFileSize = c.MaxFileSize
	}
	return opts
}

// Timeout returns the configured scan timeout, or zero for none.
func (c ProjectConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(c.ScanTimeout)
	if err != nil {
		return 0
	}
	return d
}

func describeValidation(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := yamlName(fe.StructField())
	switch fe.Tag() {
	case "gte", "lte":
		return fmt.Errorf("invalid %s %v (must be %s %s)", field, fe.Value(), fe.Tag(), fe.Param())
	case "required", "min":
		return fmt.Errorf("empty value in %s", field)
	case "excludesall":
		return fmt.Errorf("invalid %s %q (must not contain spaces)", field, fe.Value())
	}
	return fmt.Errorf("invalid %s: %s", field, fe.Error())
}

var yamlNames = map[string]string{
	"ExcludePaths": "exclude_paths",
	"Versions":     "versions",
	"Branches":     "branches",
	"MaxDepth":     "max_depth",
	"MaxFiles":     "max_files",
	"MaxFileSize":  "max_file_size",
	"Workers":      "workers",
}

func yamlName(field string) string {
	base, rest, _ := strings.Cut(field, "[")
	if n, ok := yamlNames[base]; ok {
		if rest != "" {
			return n + "[" + rest
		}
		return n
	}
	return field
}
