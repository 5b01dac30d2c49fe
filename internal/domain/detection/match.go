package detection

import (
	"bytes"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// MatchPath reports whether the file at the slash-separated relative path
// satisfies the signature's selectors.
func (s *Signature) MatchPath(rel string) bool {
	base := path.Base(rel)
	if s.Filename != "" && base != s.Filename {
		return false
	}
	if s.Glob != "" {
		target := base
		if strings.Contains(s.Glob, "/") {
			target = rel
		}
		if ok, _ := doublestar.Match(s.Glob, target); !ok {
			return false
		}
	}
	if s.Dir != "" {
		dir := "/" + path.Dir(rel) + "/"
		if !strings.Contains(dir, "/"+s.Dir+"/") {
			return false
		}
	}
	return true
}

// fileContent holds one file's bytes and the documents parsed from them.
// It is confined to the goroutine matching that file.
type fileContent struct {
	data []byte

	tomlDone bool
	tomlDoc  map[string]any

	yamlDone bool
	yamlDoc  map[string]any

	jsonDone  bool
	jsonValid bool
}

// matchContent reports whether the content checks of s hold for c.
func (s *Signature) matchContent(c *fileContent) bool {
	if s.contains != nil && !s.contains.Match(c.data) {
		return false
	}
	if len(s.TOML) > 0 && !anyTOMLKey(c.toml(), s.TOML) {
		return false
	}
	if len(s.JSON) > 0 {
		if !c.validJSON() {
			return false
		}
		found := false
		for _, p := range s.JSON {
			if gjson.GetBytes(c.data, p).Exists() {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(s.YAML) > 0 {
		doc := c.yaml()
		if doc == nil {
			return false
		}
		for _, k := range s.YAML {
			if _, ok := doc[k]; !ok {
				return false
			}
		}
	}
	return true
}

// extractVersion returns the first capture group of the version pattern.
func (s *Signature) extractVersion(c *fileContent) string {
	if s.version == nil {
		return ""
	}
	m := s.version.FindSubmatch(c.data)
	if len(m) < 2 {
		return ""
	}
	return string(bytes.TrimSpace(m[1]))
}

func (c *fileContent) toml() map[string]any {
	if !c.tomlDone {
		c.tomlDone = true
		var doc map[string]any
		if err := toml.Unmarshal(c.data, &doc); err == nil {
			c.tomlDoc = doc
		}
	}
	return c.tomlDoc
}

// yaml decodes only the first document so multi-document manifests match
// on their leading resource.
func (c *fileContent) yaml() map[string]any {
	if !c.yamlDone {
		c.yamlDone = true
		var doc map[string]any
		dec := yaml.NewDecoder(bytes.NewReader(c.data))
		if err := dec.Decode(&doc); err == nil || errors.Is(err, io.EOF) {
			c.yamlDoc = doc
		}
	}
	return c.yamlDoc
}

func (c *fileContent) validJSON() bool {
	if !c.jsonDone {
		c.jsonDone = true
		c.jsonValid = gjson.ValidBytes(c.data)
	}
	return c.jsonValid
}

func anyTOMLKey(doc map[string]any, paths []string) bool {
	if doc == nil {
		return false
	}
	for _, p := range paths {
		if hasTOMLKey(doc, strings.Split(p, ".")) {
			return true
		}
	}
	return false
}

func hasTOMLKey(node map[string]any, keys []string) bool {
	v, ok := node[keys[0]]
	if !ok {
		return false
	}
	if len(keys) == 1 {
		return true
	}
	child, ok := v.(map[string]any)
	if !ok {
		return false
	}
	return hasTOMLKey(child, keys[1:])
}
