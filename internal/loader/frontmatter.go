// Package loader discovers SQL templates in a directory, parses their YAML
// frontmatter and keeps parsed templates in a bounded cache.
package loader

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/sqlshade/pkg/sqlshade"
	"gopkg.in/yaml.v3"
)

// Frontmatter holds the optional YAML header of a template file.
// Unknown fields cause parse errors (use Meta for extensions).
type Frontmatter struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Strict      *bool          `yaml:"strict"`
	Style       string         `yaml:"style"`
	Params      map[string]any `yaml:"params"` // defaults, overridden by render data
	Tags        []string       `yaml:"tags"`
	Meta        map[string]any `yaml:"meta"`
}

// FrontmatterResult holds the result of frontmatter extraction.
type FrontmatterResult struct {
	Frontmatter *Frontmatter
	// SQL is the template text with the frontmatter block blanked out.
	// Newlines are kept so error positions still match the file.
	SQL     string
	HasYAML bool
}

// frontmatterPattern matches a leading /*--- ... ---*/ block.
var frontmatterPattern = regexp.MustCompile(`(?s)^\s*/\*---\s*\n(.*?)\s*---\*/`)

var knownFields = map[string]bool{
	"name":        true,
	"description": true,
	"strict":      true,
	"style":       true,
	"params":      true,
	"tags":        true,
	"meta":        true,
}

// ExtractFrontmatter splits the frontmatter from template text.
func ExtractFrontmatter(content string) (*FrontmatterResult, error) {
	result := &FrontmatterResult{
		Frontmatter: &Frontmatter{},
		SQL:         content,
	}

	loc := frontmatterPattern.FindStringSubmatchIndex(content)
	if loc == nil {
		return result, nil
	}

	result.HasYAML = true
	block := content[loc[0]:loc[1]]
	result.SQL = strings.Repeat("\n", strings.Count(block, "\n")) + content[loc[1]:]

	fm, err := parseFrontmatterYAML(content[loc[2]:loc[3]])
	if err != nil {
		return nil, err
	}
	result.Frontmatter = fm
	return result, nil
}

// parseFrontmatterYAML parses YAML content with strict field validation.
func parseFrontmatterYAML(yamlContent string) (*Frontmatter, error) {
	var rawMap map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &rawMap); err != nil {
		return nil, &FrontmatterParseError{
			Message: fmt.Sprintf("invalid YAML: %v", err),
		}
	}

	for field := range rawMap {
		if !knownFields[field] {
			return nil, &UnknownFieldError{Field: field}
		}
	}

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(yamlContent), &fm); err != nil {
		return nil, &FrontmatterParseError{
			Message: fmt.Sprintf("failed to parse frontmatter: %v", err),
		}
	}

	if fm.Style != "" {
		if _, err := sqlshade.ParseStyle(fm.Style); err != nil {
			return nil, &FrontmatterParseError{
				Message: fmt.Sprintf("invalid style value: %q, must be one of: positional, named", fm.Style),
			}
		}
	}

	return &fm, nil
}

// ApplyDefaults fills the name from the file name when it is not set.
func (f *Frontmatter) ApplyDefaults(filename string) {
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filename, ".sql")
	}
}

// Options converts the frontmatter into template options. Fields that are
// not set leave the loader defaults in place.
func (f *Frontmatter) Options() []sqlshade.Option {
	var opts []sqlshade.Option
	if f.Strict != nil {
		opts = append(opts, sqlshade.WithStrict(*f.Strict))
	}
	if f.Style != "" {
		if style, err := sqlshade.ParseStyle(f.Style); err == nil {
			opts = append(opts, sqlshade.WithStyle(style))
		}
	}
	return opts
}

// FrontmatterParseError represents a frontmatter parsing error.
type FrontmatterParseError struct {
	File    string
	Line    int
	Message string
}

func (e *FrontmatterParseError) Error() string {
	if e.File != "" {
		if e.Line > 0 {
			return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// UnknownFieldError represents an error for unknown frontmatter fields.
type UnknownFieldError struct {
	File  string
	Field string
}

func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("unknown field %q in frontmatter, use \"meta\" field for custom fields", e.Field)
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, msg)
	}
	return msg
}
