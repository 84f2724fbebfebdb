package models

import "strings"

// Filter narrows an aggregated event sequence the way the dashboard map views do.
type Filter struct {
	Category    *Category
	Severity    *Severity
	MinSeverity *Severity // >= this level (e.g. HIGH includes HIGH and CRITICAL)
	Source      string
	Search      string // case-insensitive match on place name or title
	Limit       int
}

func (f Filter) Match(e *DisasterEvent) bool {
	if f.Category != nil && e.Category != *f.Category {
		return false
	}
	if f.Severity != nil && e.Severity != *f.Severity {
		return false
	}
	if f.MinSeverity != nil && e.Severity < *f.MinSeverity {
		return false
	}
	if f.Source != "" && !strings.EqualFold(e.Source, f.Source) {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.PlaceName()), term) &&
			!strings.Contains(strings.ToLower(e.Title), term) {
			return false
		}
	}
	return true
}

// Apply returns matching events in their original order, truncated to Limit when set.
func (f Filter) Apply(events []DisasterEvent) []DisasterEvent {
	out := make([]DisasterEvent, 0, len(events))
	for i := range events {
		if !f.Match(&events[i]) {
			continue
		}
		out = append(out, events[i])
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}
