package detection

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/autoci/autoci/internal/domain"
)

//go:embed signatures.yaml
var signaturesYAML []byte

// Signature is one (technology, evidence pattern, weight) entry.
type Signature struct {
	Technology string          `yaml:"technology" validate:"required"`
	Category   domain.Category `yaml:"category"   validate:"required,oneof=language framework test_tool build_tool container iac package_manager ci"`
	Weight     float64         `yaml:"weight"     validate:"gt=0,lte=1"`

	Filename string `yaml:"filename"`
	Glob     string `yaml:"glob"`
	Dir      string `yaml:"dir"`

	Contains string   `yaml:"contains"`
	TOML     []string `yaml:"toml"`
	JSON     []string `yaml:"json"`
	YAML     []string `yaml:"yaml"`

	Version string `yaml:"version"`

	contains *regexp.Regexp
	version  *regexp.Regexp
}

// NeedsContent reports whether matching the signature reads the file.
func (s *Signature) NeedsContent() bool {
	return s.contains != nil || s.version != nil || len(s.TOML) > 0 || len(s.JSON) > 0 || len(s.YAML) > 0
}

// gatesOnContent reports whether a match depends on the file content, as
// opposed to only reading it for a version.
func (s *Signature) gatesOnContent() bool {
	return s.contains != nil || len(s.TOML) > 0 || len(s.JSON) > 0 || len(s.YAML) > 0
}

// Table is the immutable signature catalog. It is safe for concurrent use.
type Table struct {
	Version    int         `yaml:"version"`
	Precedence []string    `yaml:"language_precedence"`
	Signatures []Signature `yaml:"signatures" validate:"required,min=1,dive"`

	precedence map[string]int
	catalog    map[techKey]int
}

type techKey struct {
	category domain.Category
	name     string
}

var defaultTable = sync.OnceValues(func() (*Table, error) {
	return ParseTable(signaturesYAML)
})

// DefaultTable returns the embedded signature table, parsed once per process.
func DefaultTable() (*Table, error) { return defaultTable() }

// RawTable returns the embedded signature table source.
func RawTable() []byte { return signaturesYAML }

// ParseTable decodes and validates a signature table.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing signature table: %w", err)
	}
	if err := domain.Validator().Struct(t); err != nil {
		return nil, fmt.Errorf("invalid signature table: %w", err)
	}

	t.precedence = make(map[string]int, len(t.Precedence))
	for i, name := range t.Precedence {
		if _, dup := t.precedence[name]; dup {
			return nil, fmt.Errorf("invalid signature table: %q listed twice in language_precedence", name)
		}
		t.precedence[name] = i
	}

	t.catalog = make(map[techKey]int)
	for i := range t.Signatures {
		s := &t.Signatures[i]
		if err := s.compile(); err != nil {
			return nil, fmt.Errorf("invalid signature %d (%s): %w", i, s.Technology, err)
		}
		k := techKey{s.Category, s.Technology}
		if _, ok := t.catalog[k]; !ok {
			t.catalog[k] = len(t.catalog)
		}
	}
	return &t, nil
}

func (s *Signature) compile() error {
	if s.Filename == "" && s.Glob == "" && s.Dir == "" {
		return fmt.Errorf("no filename, glob or dir selector")
	}
	if s.Glob != "" && !doublestar.ValidatePattern(s.Glob) {
		return fmt.Errorf("bad glob %q", s.Glob)
	}
	s.Dir = strings.Trim(s.Dir, "/")
	if s.Contains != "" {
		re, err := regexp.Compile(s.Contains)
		if err != nil {
			return fmt.Errorf("bad contains pattern: %w", err)
		}
		s.contains = re
	}
	if s.Version != "" {
		re, err := regexp.Compile(s.Version)
		if err != nil {
			return fmt.Errorf("bad version pattern: %w", err)
		}
		if re.NumSubexp() < 1 {
			return fmt.Errorf("version pattern %q has no capture group", s.Version)
		}
		s.version = re
	}
	return nil
}

// PrecedenceRank returns the tie-break position of a language. Languages
// missing from the precedence list sort after every listed one.
func (t *Table) PrecedenceRank(language string) int {
	if r, ok := t.precedence[language]; ok {
		return r
	}
	return len(t.precedence)
}

// CatalogRank returns the position of a technology's first signature.
func (t *Table) CatalogRank(c domain.Category, name string) int {
	if r, ok := t.catalog[techKey{c, name}]; ok {
		return r
	}
	return len(t.catalog)
}

// Knows reports whether the table has any signature for the technology.
func (t *Table) Knows(c domain.Category, name string) bool {
	_, ok := t.catalog[techKey{c, name}]
	return ok
}
