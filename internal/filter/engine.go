// Package filter implements the listing item matching engine used to keep
// unwanted uploads (trailers, shorts, clips) out of the corpus.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"vidcorpus/internal/model"
)

// Item is a listing entry to be matched against filters.
type Item struct {
	Title       string
	Description string
}

type rule struct {
	include bool
	scope   model.FilterScope
	word    string
	re      *regexp.Regexp
}

// Set is a compiled list of filter rules.
// Include rules use OR logic (at least one must match).
// Exclude rules use AND logic (none must match).
type Set struct {
	rules       []rule
	hasIncludes bool
}

// Compile validates filters and prepares them for matching.
func Compile(filters []model.Filter) (*Set, error) {
	s := &Set{}
	for _, f := range filters {
		r := rule{scope: f.Scope}
		switch f.Kind {
		case model.FilterInclude, model.FilterIncludeRe:
			r.include = true
			s.hasIncludes = true
		case model.FilterExclude, model.FilterExcludeRe:
		default:
			return nil, fmt.Errorf("unknown filter kind %q", f.Kind)
		}

		switch f.Kind {
		case model.FilterIncludeRe, model.FilterExcludeRe:
			re, err := regexp.Compile("(?i)" + f.Value)
			if err != nil {
				return nil, fmt.Errorf("invalid regex %q: %w", f.Value, err)
			}
			r.re = re
		default:
			r.word = strings.ToLower(f.Value)
		}
		s.rules = append(s.rules, r)
	}
	return s, nil
}

// Match checks whether an item passes the set. An empty or nil set passes everything.
func (s *Set) Match(item Item) bool {
	if s == nil || len(s.rules) == 0 {
		return true
	}

	anyIncludeMatched := false
	for _, r := range s.rules {
		if !r.matches(item) {
			continue
		}
		if !r.include {
			return false
		}
		anyIncludeMatched = true
	}

	return !s.hasIncludes || anyIncludeMatched
}

func (r rule) matches(item Item) bool {
	text := textForScope(item, r.scope)
	if r.re != nil {
		return r.re.MatchString(text)
	}
	return strings.Contains(text, r.word)
}

// Match compiles filters and matches a single item. Invalid rules never match.
func Match(item Item, filters []model.Filter) bool {
	s, err := Compile(filters)
	if err != nil {
		return false
	}
	return s.Match(item)
}

func textForScope(item Item, scope model.FilterScope) string {
	switch scope {
	case model.ScopeTitle:
		return strings.ToLower(item.Title)
	case model.ScopeDescription:
		return strings.ToLower(item.Description)
	default:
		return strings.ToLower(item.Title + " " + item.Description)
	}
}

// ValidateRegex checks whether a pattern is a valid regular expression.
func ValidateRegex(pattern string) error {
	_, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	return nil
}
