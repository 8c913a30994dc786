// Package prompts splits a prompts document into named sections.
//
// A section starts at a heading line of the form "# Heading Text" and runs
// until the next heading or the end of the document. Text before the first
// heading is ignored.
package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kitbuilder587/stock-agent/internal/domain"
)

// Section names consumed by the analysis service.
const (
	SectionStocks                   = "stocks"
	SectionInstructions             = "instructions"
	SectionQuery                    = "query"
	SectionWebAgentInstructions     = "web_agent_instructions"
	SectionFinanceAgentInstructions = "finance_agent_instructions"
	SectionTeamInstructions         = "team_instructions"
)

// Sections maps a normalized heading to its trimmed body.
type Sections map[string]string

// Get returns the body of the named section. The name is normalized first,
// so Get("Web Agent Instructions") finds "web_agent_instructions".
func (s Sections) Get(name string) (string, error) {
	body, ok := s[NormalizeName(name)]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrMissingSection, NormalizeName(name))
	}
	return body, nil
}

// Lines returns the non-empty trimmed lines of a section.
func (s Sections) Lines(name string) ([]string, error) {
	body, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	return SplitLines(body), nil
}

func (s Sections) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type boundary struct {
	name      string
	lineStart int // offset of the heading line
	bodyStart int // offset right after the heading line
}

// Parse splits doc into sections. When two headings normalize to the same
// name the later body wins.
func Parse(doc string) Sections {
	sections, _ := parse(doc)
	return sections
}

// parse also reports every name that was overwritten by a later heading.
func parse(doc string) (Sections, []string) {
	bounds := scan(doc)
	sections := make(Sections, len(bounds))

	var dups []string
	for i, b := range bounds {
		end := len(doc)
		if i+1 < len(bounds) {
			end = bounds[i+1].lineStart
		}
		if _, exists := sections[b.name]; exists {
			dups = append(dups, b.name)
		}
		sections[b.name] = strings.TrimSpace(doc[b.bodyStart:end])
	}
	return sections, dups
}

// scan walks the document line by line and records every heading.
func scan(doc string) []boundary {
	var bounds []boundary
	pos := 0
	for {
		lineEnd, next := len(doc), len(doc)
		nl := strings.IndexByte(doc[pos:], '\n')
		if nl >= 0 {
			lineEnd = pos + nl
			next = lineEnd + 1
		}

		if name, ok := headingName(doc[pos:lineEnd]); ok {
			bounds = append(bounds, boundary{name: name, lineStart: pos, bodyStart: next})
		}

		if nl < 0 {
			return bounds
		}
		pos = next
	}
}

// headingName reports whether line is "# " followed by non-blank text.
// "##", "#Heading" and "# " alone are body text.
func headingName(line string) (string, bool) {
	if len(line) < 3 || line[0] != '#' || line[1] != ' ' {
		return "", false
	}
	name := NormalizeName(line[2:])
	if name == "" {
		return "", false
	}
	return name, true
}

// NormalizeName lowercases a heading and joins its words with "_".
func NormalizeName(heading string) string {
	return strings.ToLower(strings.Join(strings.Fields(heading), "_"))
}

// SplitLines returns the non-empty trimmed lines of text.
func SplitLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
